package service

import (
	"context"
	"testing"

	"github.com/cobaltgrid/foundation/internal/foundation/domain"
	"github.com/cobaltgrid/foundation/internal/foundation/store"
	"github.com/stretchr/testify/require"
)

func TestMergeGrants(t *testing.T) {
	t.Parallel()

	t.Run("role actions come first, user actions appended", func(t *testing.T) {
		role := domain.Grant{MenuID: "m1", ActionIDs: []string{"view", "edit"}}
		user := domain.Grant{MenuID: "m1", ActionIDs: []string{"delete"}}

		merged := MergeGrants(role, user)
		require.Equal(t, []string{"view", "edit", "delete"}, merged.ActionIDs)
	})

	t.Run("duplicates collapse on action id", func(t *testing.T) {
		role := domain.Grant{MenuID: "m1", ActionIDs: []string{"view", "edit", "view"}}
		user := domain.Grant{MenuID: "m1", ActionIDs: []string{"edit", "delete", "delete"}}

		merged := MergeGrants(role, user)
		require.Equal(t, []string{"view", "edit", "delete"}, merged.ActionIDs)
	})

	t.Run("user grants never remove role actions", func(t *testing.T) {
		role := domain.Grant{MenuID: "m1", ActionIDs: []string{"view", "edit"}}
		user := domain.Grant{MenuID: "m1"}

		merged := MergeGrants(role, user)
		require.Equal(t, []string{"view", "edit"}, merged.ActionIDs)
	})

	t.Run("empty role grant takes user actions as-is", func(t *testing.T) {
		merged := MergeGrants(domain.Grant{MenuID: "m1"}, domain.Grant{MenuID: "m1", ActionIDs: []string{"view"}})
		require.Equal(t, []string{"view"}, merged.ActionIDs)
	})
}

func TestEffectivePermissions(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	users := &UserService{Store: st}
	menus := &MenuService{Store: st}
	svc := &PermissionService{Store: st}

	role, err := users.CreateRole(ctx, "admin", domain.Role{Name: "Staff"})
	require.NoError(t, err)

	reports, err := menus.CreateMenu(ctx, "admin", domain.Menu{Name: "Reports", SortOrder: 2})
	require.NoError(t, err)
	dashboard, err := menus.CreateMenu(ctx, "admin", domain.Menu{Name: "Dashboard", SortOrder: 1})
	require.NoError(t, err)

	view, err := menus.CreateAction(ctx, "admin", domain.MenuAction{Code: "view"})
	require.NoError(t, err)
	edit, err := menus.CreateAction(ctx, "admin", domain.MenuAction{Code: "edit"})
	require.NoError(t, err)
	export, err := menus.CreateAction(ctx, "admin", domain.MenuAction{Code: "export"})
	require.NoError(t, err)

	user := seedUser(t, st, "alice@example.com", "correct horse battery")
	user.RoleID = &role.ID
	require.NoError(t, st.Users().UpdateUser(ctx, user))

	require.NoError(t, svc.SetRolePermission(ctx, "admin", role.ID, reports.ID, []string{view.ID}))
	require.NoError(t, svc.SetRolePermission(ctx, "admin", role.ID, dashboard.ID, []string{view.ID, edit.ID}))

	group, err := svc.CreateGroup(ctx, "admin", "Analysts", []string{user.ID})
	require.NoError(t, err)
	require.NoError(t, svc.SetGrant(ctx, "admin", group.ID, reports.ID, []string{view.ID, export.ID}))

	t.Run("role and group grants union per menu", func(t *testing.T) {
		perms, err := svc.EffectivePermissions(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, perms, 2)

		// Ordered by menu sort order.
		require.Equal(t, dashboard.ID, perms[0].Menu.ID)
		require.Equal(t, reports.ID, perms[1].Menu.ID)

		var reportCodes []string
		for _, a := range perms[1].Actions {
			reportCodes = append(reportCodes, a.Code)
		}
		require.Equal(t, []string{"view", "export"}, reportCodes)
	})

	t.Run("users outside the group only see role grants", func(t *testing.T) {
		other := seedUser(t, st, "bob@example.com", "correct horse battery")
		other.RoleID = &role.ID
		require.NoError(t, st.Users().UpdateUser(ctx, other))

		perms, err := svc.EffectivePermissions(ctx, other.ID)
		require.NoError(t, err)
		require.Len(t, perms, 2)

		var reportCodes []string
		for _, a := range perms[1].Actions {
			reportCodes = append(reportCodes, a.Code)
		}
		require.Equal(t, []string{"view"}, reportCodes)
	})

	t.Run("setting a role permission replaces the action set", func(t *testing.T) {
		require.NoError(t, svc.SetRolePermission(ctx, "admin", role.ID, dashboard.ID, []string{edit.ID}))

		perms, err := svc.ListRolePermissions(ctx, role.ID)
		require.NoError(t, err)

		for _, p := range perms {
			if p.MenuID == dashboard.ID {
				require.Equal(t, []string{edit.ID}, p.ActionIDs)
			}
		}
	})

	t.Run("grants for unknown actions are rejected", func(t *testing.T) {
		err := svc.SetRolePermission(ctx, "admin", role.ID, dashboard.ID, []string{"missing"})
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestGroupMembersMustExist(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &PermissionService{Store: st}

	_, err := svc.CreateGroup(ctx, "admin", "Ghosts", []string{"no-such-user"})
	require.ErrorIs(t, err, store.ErrNotFound)
}
