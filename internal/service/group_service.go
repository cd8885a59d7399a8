package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/storage"
)

// GroupService manages groups and their membership. It is thin on
// purpose: groups exist so the expense ledger has a membership set to
// validate against.
type GroupService struct {
	store storage.Store
}

// NewGroupService creates a GroupService.
func NewGroupService(store storage.Store) *GroupService {
	return &GroupService{store: store}
}

// CreateGroup creates a group with the caller as its first member.
func (s *GroupService) CreateGroup(ctx context.Context, userID int64, name string) (*models.Group, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: group name is required", ErrValidation)
	}

	group := &models.Group{Name: name, CreatedBy: userID}
	if err := s.store.CreateGroup(ctx, group); err != nil {
		return nil, err
	}

	slog.Info("Group created", "group_id", group.ID, "created_by", userID)
	return group, nil
}

// AddMembers adds users to a group. Only existing members may invite;
// ids already in the group are ignored.
func (s *GroupService) AddMembers(ctx context.Context, userID, groupID int64, memberIDs []int64) (*models.Group, error) {
	if len(memberIDs) == 0 {
		return nil, fmt.Errorf("%w: no members given", ErrValidation)
	}

	isMember, err := s.store.IsGroupMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, fmt.Errorf("%w: user %d is not a member of group %d", ErrPermission, userID, groupID)
	}

	for _, id := range memberIDs {
		if _, err := s.store.GetUserByID(ctx, id); err != nil {
			return nil, fmt.Errorf("%w: user %d does not exist", ErrValidation, id)
		}
	}

	if err := s.store.AddGroupMembers(ctx, groupID, memberIDs); err != nil {
		return nil, err
	}

	slog.Info("Members added", "group_id", groupID, "count", len(memberIDs))
	return s.store.GetGroup(ctx, groupID)
}

// GetGroup returns the group with its member list. Members only.
func (s *GroupService) GetGroup(ctx context.Context, userID, groupID int64) (*models.Group, error) {
	isMember, err := s.store.IsGroupMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, fmt.Errorf("%w: user %d is not a member of group %d", ErrPermission, userID, groupID)
	}
	return s.store.GetGroup(ctx, groupID)
}
