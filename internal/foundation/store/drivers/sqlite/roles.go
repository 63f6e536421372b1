package sqlite

import (
	"context"
	"time"

	"github.com/cobaltgrid/foundation/internal/foundation/domain"
)

type rolesRepo struct {
	q queryer
}

const roleColumns = `id, name, visible_in_signup, created_at, updated_at, created_by, updated_by`

func scanRole(row interface{ Scan(...any) error }) (domain.Role, error) {
	var r domain.Role
	err := row.Scan(&r.ID, &r.Name, &r.VisibleInSignup,
		&r.CreatedAt, &r.UpdatedAt, &r.CreatedBy, &r.UpdatedBy)
	return r, err
}

func (r *rolesRepo) GetRoleByID(ctx context.Context, id string) (domain.Role, error) {
	role, err := scanRole(r.q.QueryRowContext(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE id = ?`, id))
	return role, mapNotFound(err)
}

func (r *rolesRepo) GetRoleByName(ctx context.Context, name string) (domain.Role, error) {
	role, err := scanRole(r.q.QueryRowContext(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE name = ?`, name))
	return role, mapNotFound(err)
}

func (r *rolesRepo) ListRoles(ctx context.Context, signupOnly bool) ([]domain.Role, error) {
	query := `SELECT ` + roleColumns + ` FROM roles`
	if signupOnly {
		query += ` WHERE visible_in_signup = 1`
	}
	query += ` ORDER BY name`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

func (r *rolesRepo) CreateRole(ctx context.Context, role domain.Role) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO roles (id, name, visible_in_signup, created_at, updated_at, created_by, updated_by)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		role.ID, role.Name, role.VisibleInSignup,
		role.CreatedAt, role.UpdatedAt, role.CreatedBy, role.UpdatedBy,
	)
	return mapConstraint(err)
}

func (r *rolesRepo) UpdateRole(ctx context.Context, role domain.Role) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE roles SET name = ?, visible_in_signup = ?, updated_at = ?, updated_by = ?
		WHERE id = ?`,
		role.Name, role.VisibleInSignup, time.Now().UTC(), role.UpdatedBy, role.ID,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRow(res)
}

func (r *rolesRepo) DeleteRole(ctx context.Context, roleID string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM roles WHERE id = ?`, roleID)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRow(res)
}
