package sqlite

import (
	"context"
	"time"

	"github.com/cobaltgrid/foundation/internal/foundation/domain"
)

type menuActionsRepo struct {
	q queryer
}

const menuActionColumns = `id, code, css_class, created_at, updated_at, created_by, updated_by`

func scanMenuAction(row interface{ Scan(...any) error }) (domain.MenuAction, error) {
	var a domain.MenuAction
	err := row.Scan(&a.ID, &a.Code, &a.CSSClass,
		&a.CreatedAt, &a.UpdatedAt, &a.CreatedBy, &a.UpdatedBy)
	return a, err
}

func (r *menuActionsRepo) GetMenuActionByID(ctx context.Context, id string) (domain.MenuAction, error) {
	a, err := scanMenuAction(r.q.QueryRowContext(ctx,
		`SELECT `+menuActionColumns+` FROM menu_actions WHERE id = ?`, id))
	return a, mapNotFound(err)
}

func (r *menuActionsRepo) ListMenuActions(ctx context.Context) ([]domain.MenuAction, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+menuActionColumns+` FROM menu_actions ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.MenuAction
	for rows.Next() {
		a, err := scanMenuAction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *menuActionsRepo) CreateMenuAction(ctx context.Context, a domain.MenuAction) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO menu_actions (id, code, css_class, created_at, updated_at, created_by, updated_by)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Code, a.CSSClass, a.CreatedAt, a.UpdatedAt, a.CreatedBy, a.UpdatedBy,
	)
	return mapConstraint(err)
}

func (r *menuActionsRepo) UpdateMenuAction(ctx context.Context, a domain.MenuAction) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE menu_actions SET code = ?, css_class = ?, updated_at = ?, updated_by = ?
		WHERE id = ?`,
		a.Code, a.CSSClass, time.Now().UTC(), a.UpdatedBy, a.ID,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRow(res)
}

func (r *menuActionsRepo) DeleteMenuAction(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM menu_actions WHERE id = ?`, id)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRow(res)
}
