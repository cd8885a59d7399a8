package service

import "errors"

// Sentinel errors for the service layer. Handlers map these onto HTTP
// statuses with errors.Is; services wrap them with fmt.Errorf("%w: ...")
// to carry detail.
var (
	// ErrValidation marks malformed, missing, or out-of-range input.
	// Never retried internally.
	ErrValidation = errors.New("validation failed")

	// ErrPermission marks a group-membership violation.
	ErrPermission = errors.New("permission denied")

	// ErrDuplicate marks a description collision within a group.
	ErrDuplicate = errors.New("duplicate expense")

	// ErrConsistency marks a split-sum mismatch detected before
	// commit. The transaction is aborted; inconsistent splits never
	// persist.
	ErrConsistency = errors.New("split sum inconsistent with expense amount")
)
