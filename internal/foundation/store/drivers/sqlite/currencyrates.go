package sqlite

import (
	"context"
	"time"

	"github.com/cobaltgrid/foundation/internal/foundation/domain"
	"github.com/shopspring/decimal"
)

type currencyRatesRepo struct {
	q queryer
}

const rateColumns = `id, from_id, to_id, buy_rate, sell_rate, effective_at,
	created_at, updated_at, created_by, updated_by`

func scanRate(row interface{ Scan(...any) error }) (domain.CurrencyRate, error) {
	var (
		r        domain.CurrencyRate
		buy, sel string
	)
	err := row.Scan(&r.ID, &r.FromID, &r.ToID, &buy, &sel, &r.EffectiveAt,
		&r.CreatedAt, &r.UpdatedAt, &r.CreatedBy, &r.UpdatedBy)
	if err != nil {
		return domain.CurrencyRate{}, err
	}
	if r.BuyRate, err = decimal.NewFromString(buy); err != nil {
		return domain.CurrencyRate{}, err
	}
	if r.SellRate, err = decimal.NewFromString(sel); err != nil {
		return domain.CurrencyRate{}, err
	}
	return r, nil
}

func (r *currencyRatesRepo) GetRateByID(ctx context.Context, id string) (domain.CurrencyRate, error) {
	rate, err := scanRate(r.q.QueryRowContext(ctx,
		`SELECT `+rateColumns+` FROM currency_rates WHERE id = ?`, id))
	return rate, mapNotFound(err)
}

func (r *currencyRatesRepo) ListRates(ctx context.Context) ([]domain.CurrencyRate, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+rateColumns+` FROM currency_rates ORDER BY effective_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CurrencyRate
	for rows.Next() {
		rate, err := scanRate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rate)
	}
	return out, rows.Err()
}

func (r *currencyRatesRepo) CreateRate(ctx context.Context, rate domain.CurrencyRate) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO currency_rates (id, from_id, to_id, buy_rate, sell_rate, effective_at,
			created_at, updated_at, created_by, updated_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rate.ID, rate.FromID, rate.ToID, rate.BuyRate.String(), rate.SellRate.String(),
		rate.EffectiveAt, rate.CreatedAt, rate.UpdatedAt, rate.CreatedBy, rate.UpdatedBy,
	)
	return mapConstraint(err)
}

func (r *currencyRatesRepo) DeleteRate(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM currency_rates WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// LatestRate picks the row with the greatest effective_at not after asOf.
// Ties break on highest id; ids are ULIDs so that is insertion order.
func (r *currencyRatesRepo) LatestRate(ctx context.Context, fromID, toID string, asOf time.Time) (domain.CurrencyRate, error) {
	rate, err := scanRate(r.q.QueryRowContext(ctx, `
		SELECT `+rateColumns+` FROM currency_rates
		WHERE from_id = ? AND to_id = ? AND effective_at <= ?
		ORDER BY effective_at DESC, id DESC
		LIMIT 1`, fromID, toID, asOf))
	return rate, mapNotFound(err)
}

func (r *currencyRatesRepo) CountByCurrency(ctx context.Context, currencyID string) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM currency_rates WHERE from_id = ? OR to_id = ?`,
		currencyID, currencyID).Scan(&n)
	return n, err
}
