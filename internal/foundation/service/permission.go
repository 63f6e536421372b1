package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/cobaltgrid/foundation/internal/foundation/domain"
	"github.com/cobaltgrid/foundation/internal/foundation/store"
	"github.com/cobaltgrid/foundation/pkg/idx"
)

// PermissionService resolves effective permissions and manages role and
// user level grants. The permission model is additive: user grants only ever
// add actions on top of role grants, never remove them.
type PermissionService struct {
	Store store.Store
}

// MergeGrants unions two grants for the same menu. Order is role actions
// first, then user actions not already present; duplicates collapse on
// action ID. Callers must pre-group by menu.
func MergeGrants(role, user domain.Grant) domain.Grant {
	merged := domain.Grant{MenuID: role.MenuID}
	seen := make(map[string]struct{}, len(role.ActionIDs)+len(user.ActionIDs))

	for _, id := range role.ActionIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		merged.ActionIDs = append(merged.ActionIDs, id)
	}
	for _, id := range user.ActionIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		merged.ActionIDs = append(merged.ActionIDs, id)
	}
	return merged
}

// EffectivePermissions resolves the per-menu union of the user's role
// grants and the grants of every permission group containing the user,
// ordered by menu sort order.
func (s *PermissionService) EffectivePermissions(ctx context.Context, userID string) ([]domain.EffectivePermission, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	byMenu := make(map[string]domain.Grant)
	var order []string

	if user.RoleID != nil {
		rolePerms, err := s.Store.RolePermissions().ListByRole(ctx, *user.RoleID)
		if err != nil {
			return nil, err
		}
		for _, p := range rolePerms {
			byMenu[p.MenuID] = domain.Grant{MenuID: p.MenuID, ActionIDs: p.ActionIDs}
			order = append(order, p.MenuID)
		}
	}

	userGrants, err := s.Store.UserPermissions().ListGrantsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, g := range userGrants {
		grant := domain.Grant{MenuID: g.MenuID, ActionIDs: g.ActionIDs}
		if existing, ok := byMenu[g.MenuID]; ok {
			byMenu[g.MenuID] = MergeGrants(existing, grant)
			continue
		}
		byMenu[g.MenuID] = grant
		order = append(order, g.MenuID)
	}

	out := make([]domain.EffectivePermission, 0, len(order))
	for _, menuID := range order {
		menu, err := s.Store.Menus().GetMenuByID(ctx, menuID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, err
		}

		grant := byMenu[menuID]
		actions := make([]domain.MenuAction, 0, len(grant.ActionIDs))
		for _, actionID := range grant.ActionIDs {
			action, err := s.Store.MenuActions().GetMenuActionByID(ctx, actionID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					continue
				}
				return nil, err
			}
			actions = append(actions, action)
		}
		out = append(out, domain.EffectivePermission{Menu: menu, Actions: actions})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Menu.SortOrder < out[j].Menu.SortOrder
	})
	return out, nil
}

// ListRolePermissions returns the grants configured for a role.
func (s *PermissionService) ListRolePermissions(ctx context.Context, roleID string) ([]domain.RolePermission, error) {
	if _, err := s.Store.Roles().GetRoleByID(ctx, roleID); err != nil {
		return nil, err
	}
	return s.Store.RolePermissions().ListByRole(ctx, roleID)
}

// SetRolePermission replaces the action set for one (role, menu) pair.
func (s *PermissionService) SetRolePermission(ctx context.Context, actingID, roleID, menuID string, actionIDs []string) error {
	now := time.Now().UTC()
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Roles().GetRoleByID(ctx, roleID); err != nil {
			return err
		}
		if _, err := tx.Menus().GetMenuByID(ctx, menuID); err != nil {
			return err
		}
		for _, actionID := range actionIDs {
			if _, err := tx.MenuActions().GetMenuActionByID(ctx, actionID); err != nil {
				return err
			}
		}
		return tx.RolePermissions().UpsertRolePermission(ctx, domain.RolePermission{
			ID:        idx.New().String(),
			RoleID:    roleID,
			MenuID:    menuID,
			ActionIDs: actionIDs,
			CreatedAt: now,
			UpdatedAt: now,
			CreatedBy: actingID,
			UpdatedBy: actingID,
		})
	})
}

func (s *PermissionService) DeleteRolePermission(ctx context.Context, roleID, menuID string) error {
	return s.Store.RolePermissions().DeleteRolePermission(ctx, roleID, menuID)
}

// Permission groups.

func (s *PermissionService) GetGroup(ctx context.Context, id string) (domain.UserPermissionGroup, error) {
	return s.Store.UserPermissions().GetGroupByID(ctx, id)
}

func (s *PermissionService) ListGroups(ctx context.Context) ([]domain.UserPermissionGroup, error) {
	return s.Store.UserPermissions().ListGroups(ctx)
}

func (s *PermissionService) CreateGroup(ctx context.Context, actingID, name string, userIDs []string) (domain.UserPermissionGroup, error) {
	now := time.Now().UTC()
	group := domain.UserPermissionGroup{
		ID:        idx.New().String(),
		Name:      name,
		UserIDs:   userIDs,
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: actingID,
		UpdatedBy: actingID,
	}
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		for _, userID := range userIDs {
			if _, err := tx.Users().GetUserByID(ctx, userID); err != nil {
				return err
			}
		}
		return tx.UserPermissions().CreateGroup(ctx, group)
	})
	if err != nil {
		return domain.UserPermissionGroup{}, err
	}
	return group, nil
}

func (s *PermissionService) UpdateGroup(ctx context.Context, actingID string, group domain.UserPermissionGroup) error {
	group.UpdatedBy = actingID
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		for _, userID := range group.UserIDs {
			if _, err := tx.Users().GetUserByID(ctx, userID); err != nil {
				return err
			}
		}
		return tx.UserPermissions().UpdateGroup(ctx, group)
	})
}

func (s *PermissionService) DeleteGroup(ctx context.Context, id string) error {
	return s.Store.UserPermissions().DeleteGroup(ctx, id)
}

func (s *PermissionService) ListGrants(ctx context.Context, groupID string) ([]domain.UserPermissionGrant, error) {
	if _, err := s.Store.UserPermissions().GetGroupByID(ctx, groupID); err != nil {
		return nil, err
	}
	return s.Store.UserPermissions().ListGrantsByGroup(ctx, groupID)
}

// SetGrant replaces the action set for one (group, menu) pair.
func (s *PermissionService) SetGrant(ctx context.Context, actingID, groupID, menuID string, actionIDs []string) error {
	now := time.Now().UTC()
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.UserPermissions().GetGroupByID(ctx, groupID); err != nil {
			return err
		}
		if _, err := tx.Menus().GetMenuByID(ctx, menuID); err != nil {
			return err
		}
		for _, actionID := range actionIDs {
			if _, err := tx.MenuActions().GetMenuActionByID(ctx, actionID); err != nil {
				return err
			}
		}
		return tx.UserPermissions().UpsertGrant(ctx, domain.UserPermissionGrant{
			ID:        idx.New().String(),
			GroupID:   groupID,
			MenuID:    menuID,
			ActionIDs: actionIDs,
			CreatedAt: now,
			UpdatedAt: now,
			CreatedBy: actingID,
			UpdatedBy: actingID,
		})
	})
}

func (s *PermissionService) DeleteGrant(ctx context.Context, groupID, menuID string) error {
	return s.Store.UserPermissions().DeleteGrant(ctx, groupID, menuID)
}
