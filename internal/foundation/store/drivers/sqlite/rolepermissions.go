package sqlite

import (
	"context"

	"github.com/cobaltgrid/foundation/internal/foundation/domain"
)

type rolePermissionsRepo struct {
	q queryer
}

func (r *rolePermissionsRepo) ListByRole(ctx context.Context, roleID string) ([]domain.RolePermission, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, role_id, menu_id, created_at, updated_at, created_by, updated_by
		FROM role_permissions WHERE role_id = ?
		ORDER BY created_at`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RolePermission
	for rows.Next() {
		var p domain.RolePermission
		if err := rows.Scan(&p.ID, &p.RoleID, &p.MenuID,
			&p.CreatedAt, &p.UpdatedAt, &p.CreatedBy, &p.UpdatedBy); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		actions, err := r.listActions(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].ActionIDs = actions
	}
	return out, nil
}

func (r *rolePermissionsRepo) listActions(ctx context.Context, permissionID string) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT action_id FROM role_permission_actions
		WHERE role_permission_id = ? ORDER BY position`, permissionID)
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

// UpsertRolePermission replaces the action set for the (role, menu) pair,
// creating the row when absent. Must run inside a transaction.
func (r *rolePermissionsRepo) UpsertRolePermission(ctx context.Context, p domain.RolePermission) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO role_permissions (id, role_id, menu_id, created_at, updated_at, created_by, updated_by)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (role_id, menu_id) DO UPDATE SET updated_at = excluded.updated_at,
			updated_by = excluded.updated_by`,
		p.ID, p.RoleID, p.MenuID, p.CreatedAt, p.UpdatedAt, p.CreatedBy, p.UpdatedBy,
	)
	if err != nil {
		return mapConstraint(err)
	}

	var permissionID string
	if err := r.q.QueryRowContext(ctx,
		`SELECT id FROM role_permissions WHERE role_id = ? AND menu_id = ?`,
		p.RoleID, p.MenuID).Scan(&permissionID); err != nil {
		return mapNotFound(err)
	}

	if _, err := r.q.ExecContext(ctx,
		`DELETE FROM role_permission_actions WHERE role_permission_id = ?`, permissionID); err != nil {
		return err
	}
	for i, actionID := range p.ActionIDs {
		if _, err := r.q.ExecContext(ctx, `
			INSERT INTO role_permission_actions (role_permission_id, action_id, position)
			VALUES (?, ?, ?)`, permissionID, actionID, i); err != nil {
			return mapConstraint(err)
		}
	}
	return nil
}

func (r *rolePermissionsRepo) DeleteRolePermission(ctx context.Context, roleID, menuID string) error {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM role_permissions WHERE role_id = ? AND menu_id = ?`, roleID, menuID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *rolePermissionsRepo) DeleteByRole(ctx context.Context, roleID string) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM role_permissions WHERE role_id = ?`, roleID)
	return err
}

func (r *rolePermissionsRepo) CountByMenu(ctx context.Context, menuID string) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM role_permissions WHERE menu_id = ?`, menuID).Scan(&n)
	return n, err
}

func (r *rolePermissionsRepo) CountByAction(ctx context.Context, actionID string) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM role_permission_actions WHERE action_id = ?`, actionID).Scan(&n)
	return n, err
}
