package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/cobaltgrid/foundation/internal/foundation/domain"
)

type menusRepo struct {
	q queryer
}

const menuColumns = `id, name, slug, url, parent_id, depth, sort_order,
	visible_authenticated, visible_anonymous,
	created_at, updated_at, created_by, updated_by`

func scanMenu(row interface{ Scan(...any) error }) (domain.Menu, error) {
	var (
		m      domain.Menu
		parent sql.NullString
	)
	err := row.Scan(
		&m.ID, &m.Name, &m.Slug, &m.URL, &parent, &m.Depth, &m.SortOrder,
		&m.VisibleAuthenticated, &m.VisibleAnonymous,
		&m.CreatedAt, &m.UpdatedAt, &m.CreatedBy, &m.UpdatedBy,
	)
	if err != nil {
		return domain.Menu{}, err
	}
	m.ParentID = mapNullStringPtr(parent)
	return m, nil
}

func (r *menusRepo) GetMenuByID(ctx context.Context, id string) (domain.Menu, error) {
	m, err := scanMenu(r.q.QueryRowContext(ctx,
		`SELECT `+menuColumns+` FROM menus WHERE id = ?`, id))
	return m, mapNotFound(err)
}

func (r *menusRepo) ListMenus(ctx context.Context) ([]domain.Menu, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+menuColumns+` FROM menus ORDER BY depth, sort_order, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Menu
	for rows.Next() {
		m, err := scanMenu(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *menusRepo) CreateMenu(ctx context.Context, m domain.Menu) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO menus (id, name, slug, url, parent_id, depth, sort_order,
			visible_authenticated, visible_anonymous,
			created_at, updated_at, created_by, updated_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Name, m.Slug, m.URL, mapOptionalString(m.ParentID), m.Depth, m.SortOrder,
		m.VisibleAuthenticated, m.VisibleAnonymous,
		m.CreatedAt, m.UpdatedAt, m.CreatedBy, m.UpdatedBy,
	)
	return mapConstraint(err)
}

func (r *menusRepo) UpdateMenu(ctx context.Context, m domain.Menu) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE menus
		SET name = ?, slug = ?, url = ?, parent_id = ?, depth = ?, sort_order = ?,
			visible_authenticated = ?, visible_anonymous = ?, updated_at = ?, updated_by = ?
		WHERE id = ?`,
		m.Name, m.Slug, m.URL, mapOptionalString(m.ParentID), m.Depth, m.SortOrder,
		m.VisibleAuthenticated, m.VisibleAnonymous, time.Now().UTC(), m.UpdatedBy, m.ID,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRow(res)
}

func (r *menusRepo) DeleteMenu(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM menus WHERE id = ?`, id)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRow(res)
}

func (r *menusRepo) CountChildren(ctx context.Context, id string) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM menus WHERE parent_id = ?`, id).Scan(&n)
	return n, err
}
