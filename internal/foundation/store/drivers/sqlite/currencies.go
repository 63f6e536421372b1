package sqlite

import (
	"context"
	"time"

	"github.com/cobaltgrid/foundation/internal/foundation/domain"
)

type currenciesRepo struct {
	q queryer
}

const currencyColumns = `id, name, code, symbol, is_default, created_at, updated_at, created_by, updated_by`

func scanCurrency(row interface{ Scan(...any) error }) (domain.Currency, error) {
	var c domain.Currency
	err := row.Scan(&c.ID, &c.Name, &c.Code, &c.Symbol, &c.IsDefault,
		&c.CreatedAt, &c.UpdatedAt, &c.CreatedBy, &c.UpdatedBy)
	return c, err
}

func (r *currenciesRepo) GetCurrencyByID(ctx context.Context, id string) (domain.Currency, error) {
	c, err := scanCurrency(r.q.QueryRowContext(ctx,
		`SELECT `+currencyColumns+` FROM currencies WHERE id = ?`, id))
	return c, mapNotFound(err)
}

func (r *currenciesRepo) GetCurrencyByCode(ctx context.Context, code string) (domain.Currency, error) {
	c, err := scanCurrency(r.q.QueryRowContext(ctx,
		`SELECT `+currencyColumns+` FROM currencies WHERE code = ?`, code))
	return c, mapNotFound(err)
}

func (r *currenciesRepo) ListCurrencies(ctx context.Context) ([]domain.Currency, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+currencyColumns+` FROM currencies ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Currency
	for rows.Next() {
		c, err := scanCurrency(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *currenciesRepo) CreateCurrency(ctx context.Context, c domain.Currency) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO currencies (id, name, code, symbol, is_default, created_at, updated_at, created_by, updated_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Code, c.Symbol, c.IsDefault,
		c.CreatedAt, c.UpdatedAt, c.CreatedBy, c.UpdatedBy,
	)
	return mapConstraint(err)
}

func (r *currenciesRepo) UpdateCurrency(ctx context.Context, c domain.Currency) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE currencies SET name = ?, code = ?, symbol = ?, is_default = ?,
			updated_at = ?, updated_by = ?
		WHERE id = ?`,
		c.Name, c.Code, c.Symbol, c.IsDefault, time.Now().UTC(), c.UpdatedBy, c.ID,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRow(res)
}

func (r *currenciesRepo) DeleteCurrency(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM currencies WHERE id = ?`, id)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRow(res)
}

// ClearDefault unsets every default flag so a new default can claim it
// within the same transaction.
func (r *currenciesRepo) ClearDefault(ctx context.Context, updatedBy string) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE currencies SET is_default = 0, updated_at = ?, updated_by = ?
		WHERE is_default = 1`,
		time.Now().UTC(), updatedBy,
	)
	return err
}
