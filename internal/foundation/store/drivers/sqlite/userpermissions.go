package sqlite

import (
	"context"
	"time"

	"github.com/cobaltgrid/foundation/internal/foundation/domain"
)

type userPermissionsRepo struct {
	q queryer
}

const groupColumns = `id, name, created_at, updated_at, created_by, updated_by`

func (r *userPermissionsRepo) GetGroupByID(ctx context.Context, id string) (domain.UserPermissionGroup, error) {
	var g domain.UserPermissionGroup
	err := r.q.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM user_permission_groups WHERE id = ?`, id).
		Scan(&g.ID, &g.Name, &g.CreatedAt, &g.UpdatedAt, &g.CreatedBy, &g.UpdatedBy)
	if err != nil {
		return domain.UserPermissionGroup{}, mapNotFound(err)
	}

	g.UserIDs, err = r.listMembers(ctx, g.ID)
	return g, err
}

func (r *userPermissionsRepo) listMembers(ctx context.Context, groupID string) ([]string, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT user_id FROM user_permission_members WHERE group_id = ? ORDER BY user_id`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *userPermissionsRepo) ListGroups(ctx context.Context) ([]domain.UserPermissionGroup, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+groupColumns+` FROM user_permission_groups ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.UserPermissionGroup
	for rows.Next() {
		var g domain.UserPermissionGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedAt, &g.UpdatedAt,
			&g.CreatedBy, &g.UpdatedBy); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		members, err := r.listMembers(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].UserIDs = members
	}
	return out, nil
}

func (r *userPermissionsRepo) CreateGroup(ctx context.Context, g domain.UserPermissionGroup) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO user_permission_groups (id, name, created_at, updated_at, created_by, updated_by)
		VALUES (?, ?, ?, ?, ?, ?)`,
		g.ID, g.Name, g.CreatedAt, g.UpdatedAt, g.CreatedBy, g.UpdatedBy,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return r.setMembers(ctx, g.ID, g.UserIDs)
}

// UpdateGroup rewrites name and membership. Must run inside a transaction.
func (r *userPermissionsRepo) UpdateGroup(ctx context.Context, g domain.UserPermissionGroup) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE user_permission_groups SET name = ?, updated_at = ?, updated_by = ?
		WHERE id = ?`,
		g.Name, time.Now().UTC(), g.UpdatedBy, g.ID,
	)
	if err != nil {
		return mapConstraint(err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return r.setMembers(ctx, g.ID, g.UserIDs)
}

func (r *userPermissionsRepo) setMembers(ctx context.Context, groupID string, userIDs []string) error {
	if _, err := r.q.ExecContext(ctx,
		`DELETE FROM user_permission_members WHERE group_id = ?`, groupID); err != nil {
		return err
	}
	for _, userID := range userIDs {
		if _, err := r.q.ExecContext(ctx, `
			INSERT INTO user_permission_members (group_id, user_id) VALUES (?, ?)`,
			groupID, userID); err != nil {
			return mapConstraint(err)
		}
	}
	return nil
}

func (r *userPermissionsRepo) DeleteGroup(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM user_permission_groups WHERE id = ?`, id)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRow(res)
}

const grantColumns = `id, group_id, menu_id, created_at, updated_at, created_by, updated_by`

func (r *userPermissionsRepo) ListGrantsByGroup(ctx context.Context, groupID string) ([]domain.UserPermissionGrant, error) {
	return r.listGrants(ctx,
		`SELECT `+grantColumns+` FROM user_permission_grants WHERE group_id = ? ORDER BY created_at`,
		groupID)
}

// ListGrantsForUser resolves the grants of every group the user belongs to.
func (r *userPermissionsRepo) ListGrantsForUser(ctx context.Context, userID string) ([]domain.UserPermissionGrant, error) {
	return r.listGrants(ctx, `
		SELECT `+prefixColumns("g", grantColumns)+`
		FROM user_permission_grants g
		JOIN user_permission_members m ON m.group_id = g.group_id
		WHERE m.user_id = ?
		ORDER BY g.created_at`, userID)
}

func (r *userPermissionsRepo) listGrants(ctx context.Context, query string, args ...any) ([]domain.UserPermissionGrant, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.UserPermissionGrant
	for rows.Next() {
		var g domain.UserPermissionGrant
		if err := rows.Scan(&g.ID, &g.GroupID, &g.MenuID,
			&g.CreatedAt, &g.UpdatedAt, &g.CreatedBy, &g.UpdatedBy); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		actions, err := r.listGrantActions(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].ActionIDs = actions
	}
	return out, nil
}

func (r *userPermissionsRepo) listGrantActions(ctx context.Context, grantID string) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT action_id FROM user_permission_grant_actions
		WHERE grant_id = ? ORDER BY position`, grantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// UpsertGrant replaces the action set for the (group, menu) pair. Must run
// inside a transaction.
func (r *userPermissionsRepo) UpsertGrant(ctx context.Context, g domain.UserPermissionGrant) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO user_permission_grants (id, group_id, menu_id, created_at, updated_at, created_by, updated_by)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (group_id, menu_id) DO UPDATE SET updated_at = excluded.updated_at,
			updated_by = excluded.updated_by`,
		g.ID, g.GroupID, g.MenuID, g.CreatedAt, g.UpdatedAt, g.CreatedBy, g.UpdatedBy,
	)
	if err != nil {
		return mapConstraint(err)
	}

	var grantID string
	if err := r.q.QueryRowContext(ctx,
		`SELECT id FROM user_permission_grants WHERE group_id = ? AND menu_id = ?`,
		g.GroupID, g.MenuID).Scan(&grantID); err != nil {
		return mapNotFound(err)
	}

	if _, err := r.q.ExecContext(ctx,
		`DELETE FROM user_permission_grant_actions WHERE grant_id = ?`, grantID); err != nil {
		return err
	}
	for i, actionID := range g.ActionIDs {
		if _, err := r.q.ExecContext(ctx, `
			INSERT INTO user_permission_grant_actions (grant_id, action_id, position)
			VALUES (?, ?, ?)`, grantID, actionID, i); err != nil {
			return mapConstraint(err)
		}
	}
	return nil
}

func (r *userPermissionsRepo) DeleteGrant(ctx context.Context, groupID, menuID string) error {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM user_permission_grants WHERE group_id = ? AND menu_id = ?`,
		groupID, menuID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *userPermissionsRepo) CountByMenu(ctx context.Context, menuID string) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_permission_grants WHERE menu_id = ?`, menuID).Scan(&n)
	return n, err
}

func (r *userPermissionsRepo) CountByAction(ctx context.Context, actionID string) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_permission_grant_actions WHERE action_id = ?`, actionID).Scan(&n)
	return n, err
}
