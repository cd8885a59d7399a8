// Package calculator computes per-participant shares for an expense.
// It is pure: strategies take an amount and a participant list and
// return shares whose sum equals the amount exactly, with no I/O.
package calculator

import (
	"errors"
	"fmt"
	"math"

	"github.com/splitledger/splitledger/internal/money"
)

// ErrInvalidSplit is returned when a strategy's arithmetic preconditions
// are violated: no participants, percentages not summing to 100, custom
// amounts not summing to the total, or an unknown strategy tag.
var ErrInvalidSplit = errors.New("invalid split")

// Participant is the transient input to a split: who owes, and the
// strategy-specific portion they asked for. Percentage is set for
// percentage splits, Amount for custom splits; equal splits use neither.
type Participant struct {
	UserID     int64
	Name       string
	Percentage *float64
	Amount     *money.Cents
}

// Share is one participant's computed obligation.
type Share struct {
	UserID int64
	Name   string
	Amount money.Cents
}

// Strategy divides a total among participants. The strategy set is
// closed: the wire tag is resolved once by ParseStrategy at the boundary
// and never re-dispatched by string comparison inside the algorithm.
type Strategy interface {
	// Tag returns the wire identifier for the strategy.
	Tag() string

	// Split computes the shares. The returned shares sum to total
	// exactly. The caller has already validated total > 0.
	Split(total money.Cents, participants []Participant) ([]Share, error)
}

// Wire tags accepted by ParseStrategy.
const (
	TagEqual      = "equal"
	TagPercentage = "percentage"
	TagCustom     = "custom_amount"
)

// ParseStrategy resolves a wire tag to a strategy.
func ParseStrategy(tag string) (Strategy, error) {
	switch tag {
	case TagEqual:
		return Equal{}, nil
	case TagPercentage:
		return Percentage{}, nil
	case TagCustom:
		return Custom{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown split type %q", ErrInvalidSplit, tag)
	}
}

// Equal divides the total evenly. Integer division leaves a residual of
// up to n-1 cents; the whole residual goes to the first participant in
// input order, so the result is deterministic and sums exactly.
type Equal struct{}

// Tag returns the wire identifier.
func (Equal) Tag() string { return TagEqual }

// Split divides total evenly among the participants.
func (Equal) Split(total money.Cents, participants []Participant) ([]Share, error) {
	n := len(participants)
	if n == 0 {
		return nil, fmt.Errorf("%w: at least one participant required", ErrInvalidSplit)
	}

	base := total / money.Cents(n)
	remainder := total - base*money.Cents(n)

	shares := make([]Share, n)
	for i, p := range participants {
		shares[i] = Share{UserID: p.UserID, Name: p.Name, Amount: base}
	}
	shares[0].Amount += remainder
	return shares, nil
}

// Percentage divides the total by per-participant percentages, which
// must sum to 100. Each share is rounded to the cent; the rounding
// residual is absorbed by the largest share (earliest on ties).
type Percentage struct{}

// Tag returns the wire identifier.
func (Percentage) Tag() string { return TagPercentage }

// Split divides total proportionally to each participant's percentage.
func (Percentage) Split(total money.Cents, participants []Participant) ([]Share, error) {
	n := len(participants)
	if n == 0 {
		return nil, fmt.Errorf("%w: at least one participant required", ErrInvalidSplit)
	}

	var sum float64
	for _, p := range participants {
		if p.Percentage == nil {
			return nil, fmt.Errorf("%w: participant %d missing percentage", ErrInvalidSplit, p.UserID)
		}
		if *p.Percentage < 0 {
			return nil, fmt.Errorf("%w: participant %d has negative percentage", ErrInvalidSplit, p.UserID)
		}
		sum += *p.Percentage
	}
	if math.Abs(sum-100) > 0.01 {
		return nil, fmt.Errorf("%w: percentages sum to %.2f, want 100", ErrInvalidSplit, sum)
	}

	shares := make([]Share, n)
	var allocated money.Cents
	largest := 0
	for i, p := range participants {
		amt := money.Cents(math.Round(float64(total) * *p.Percentage / 100))
		shares[i] = Share{UserID: p.UserID, Name: p.Name, Amount: amt}
		allocated += amt
		if amt > shares[largest].Amount {
			largest = i
		}
	}

	// Per-share rounding drifts the sum by at most one cent per
	// participant; anything beyond that means the inputs were bad.
	residual := total - allocated
	if residual > money.Cents(n) || residual < -money.Cents(n) {
		return nil, fmt.Errorf("%w: rounded shares drift %d cents from total", ErrInvalidSplit, residual)
	}
	shares[largest].Amount += residual
	return shares, nil
}

// Custom passes through caller-supplied amounts, which must sum to the
// total exactly.
type Custom struct{}

// Tag returns the wire identifier.
func (Custom) Tag() string { return TagCustom }

// Split returns the participants' fixed amounts unchanged.
func (Custom) Split(total money.Cents, participants []Participant) ([]Share, error) {
	n := len(participants)
	if n == 0 {
		return nil, fmt.Errorf("%w: at least one participant required", ErrInvalidSplit)
	}

	shares := make([]Share, n)
	var sum money.Cents
	for i, p := range participants {
		if p.Amount == nil {
			return nil, fmt.Errorf("%w: participant %d missing amount", ErrInvalidSplit, p.UserID)
		}
		if *p.Amount < 0 {
			return nil, fmt.Errorf("%w: participant %d has negative amount", ErrInvalidSplit, p.UserID)
		}
		shares[i] = Share{UserID: p.UserID, Name: p.Name, Amount: *p.Amount}
		sum += *p.Amount
	}
	if sum != total {
		return nil, fmt.Errorf("%w: amounts sum to %d cents, want %d", ErrInvalidSplit, sum, total)
	}
	return shares, nil
}

// SumShares totals a share list. Callers verify the result against the
// expense amount before persisting anything.
func SumShares(shares []Share) money.Cents {
	var sum money.Cents
	for _, s := range shares {
		sum += s.Amount
	}
	return sum
}
