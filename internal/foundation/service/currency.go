package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cobaltgrid/foundation/internal/foundation/domain"
	"github.com/cobaltgrid/foundation/internal/foundation/store"
	"github.com/cobaltgrid/foundation/pkg/idx"
	"github.com/shopspring/decimal"
)

// CurrencyService manages currencies and rates and resolves conversions.
type CurrencyService struct {
	Store store.Store
}

// Convert resolves amount from one currency into another as of a point in
// time:
//   - same currency returns the amount unchanged,
//   - the latest direct rate multiplies by buy_rate,
//   - with no direct rate, the latest reverse rate divides by buy_rate,
//   - with no rate either way the amount passes through unchanged; callers
//     needing authoritative conversion must check rate existence themselves.
//
// The reverse fallback triggers only when the direct lookup finds nothing;
// other storage errors propagate.
func (s *CurrencyService) Convert(ctx context.Context, amount decimal.Decimal, fromID, toID string, asOf time.Time) (decimal.Decimal, error) {
	if fromID == toID {
		return amount, nil
	}

	direct, err := s.Store.CurrencyRates().LatestRate(ctx, fromID, toID, asOf)
	if err == nil {
		return amount.Mul(direct.BuyRate), nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return decimal.Decimal{}, err
	}

	reverse, err := s.Store.CurrencyRates().LatestRate(ctx, toID, fromID, asOf)
	if err == nil {
		if reverse.BuyRate.IsZero() {
			return decimal.Decimal{}, ErrZeroRate
		}
		return amount.Div(reverse.BuyRate), nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return decimal.Decimal{}, err
	}

	// No rate in either direction.
	return amount, nil
}

func (s *CurrencyService) GetCurrency(ctx context.Context, id string) (domain.Currency, error) {
	return s.Store.Currencies().GetCurrencyByID(ctx, id)
}

func (s *CurrencyService) ListCurrencies(ctx context.Context) ([]domain.Currency, error) {
	return s.Store.Currencies().ListCurrencies(ctx)
}

// CreateCurrency enforces the single-default invariant inside the creating
// transaction.
func (s *CurrencyService) CreateCurrency(ctx context.Context, actingID string, c domain.Currency) (domain.Currency, error) {
	if strings.TrimSpace(c.Code) == "" {
		return domain.Currency{}, fmt.Errorf("%w: code", ErrRequiredField)
	}

	now := time.Now().UTC()
	c.ID = idx.New().String()
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	c.CreatedAt = now
	c.UpdatedAt = now
	c.CreatedBy = actingID
	c.UpdatedBy = actingID

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if c.IsDefault {
			if err := tx.Currencies().ClearDefault(ctx, actingID); err != nil {
				return err
			}
		}
		return tx.Currencies().CreateCurrency(ctx, c)
	})
	if err != nil {
		return domain.Currency{}, err
	}
	return c, nil
}

func (s *CurrencyService) UpdateCurrency(ctx context.Context, actingID string, c domain.Currency) error {
	if strings.TrimSpace(c.Code) == "" {
		return fmt.Errorf("%w: code", ErrRequiredField)
	}
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	c.UpdatedBy = actingID

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if c.IsDefault {
			if err := tx.Currencies().ClearDefault(ctx, actingID); err != nil {
				return err
			}
		}
		return tx.Currencies().UpdateCurrency(ctx, c)
	})
}

// DeleteCurrency refuses while any rate references the currency.
func (s *CurrencyService) DeleteCurrency(ctx context.Context, id string) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Currencies().GetCurrencyByID(ctx, id); err != nil {
			return err
		}
		refs, err := tx.CurrencyRates().CountByCurrency(ctx, id)
		if err != nil {
			return err
		}
		if refs > 0 {
			return store.ErrReferenced
		}
		return tx.Currencies().DeleteCurrency(ctx, id)
	})
}

func (s *CurrencyService) ListRates(ctx context.Context) ([]domain.CurrencyRate, error) {
	return s.Store.CurrencyRates().ListRates(ctx)
}

func (s *CurrencyService) CreateRate(ctx context.Context, actingID string, r domain.CurrencyRate) (domain.CurrencyRate, error) {
	if r.FromID == "" || r.ToID == "" {
		return domain.CurrencyRate{}, fmt.Errorf("%w: from/to currency", ErrRequiredField)
	}
	if r.FromID == r.ToID {
		return domain.CurrencyRate{}, fmt.Errorf("%w: identical currencies", ErrRequiredField)
	}

	now := time.Now().UTC()
	r.ID = idx.New().String()
	if r.EffectiveAt.IsZero() {
		r.EffectiveAt = now
	}
	r.CreatedAt = now
	r.UpdatedAt = now
	r.CreatedBy = actingID
	r.UpdatedBy = actingID

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Currencies().GetCurrencyByID(ctx, r.FromID); err != nil {
			return err
		}
		if _, err := tx.Currencies().GetCurrencyByID(ctx, r.ToID); err != nil {
			return err
		}
		return tx.CurrencyRates().CreateRate(ctx, r)
	})
	if err != nil {
		return domain.CurrencyRate{}, err
	}
	return r, nil
}

func (s *CurrencyService) DeleteRate(ctx context.Context, id string) error {
	return s.Store.CurrencyRates().DeleteRate(ctx, id)
}
