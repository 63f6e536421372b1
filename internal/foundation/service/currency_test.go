package service

import (
	"context"
	"testing"
	"time"

	"github.com/cobaltgrid/foundation/internal/foundation/domain"
	"github.com/cobaltgrid/foundation/internal/foundation/store"
	"github.com/cobaltgrid/foundation/internal/foundation/store/drivers/sqlite"
	"github.com/cobaltgrid/foundation/pkg/idx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func seedCurrency(t *testing.T, s *sqlite.Store, code string, isDefault bool) domain.Currency {
	t.Helper()

	now := time.Now().UTC()
	c := domain.Currency{
		ID:        idx.New().String(),
		Name:      code,
		Code:      code,
		Symbol:    "$",
		IsDefault: isDefault,
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: "seed",
		UpdatedBy: "seed",
	}
	require.NoError(t, s.Currencies().CreateCurrency(context.Background(), c))
	return c
}

func seedRate(t *testing.T, s *sqlite.Store, fromID, toID, buy string, effectiveAt time.Time) domain.CurrencyRate {
	t.Helper()

	r := domain.CurrencyRate{
		ID:          idx.New().String(),
		FromID:      fromID,
		ToID:        toID,
		BuyRate:     decimal.RequireFromString(buy),
		SellRate:    decimal.RequireFromString(buy),
		EffectiveAt: effectiveAt,
		CreatedAt:   effectiveAt,
		UpdatedAt:   effectiveAt,
		CreatedBy:   "seed",
		UpdatedBy:   "seed",
	}
	require.NoError(t, s.CurrencyRates().CreateRate(context.Background(), r))
	return r
}

func TestConvert(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &CurrencyService{Store: st}

	usd := seedCurrency(t, st, "USD", true)
	eur := seedCurrency(t, st, "EUR", false)
	gbp := seedCurrency(t, st, "GBP", false)
	jpy := seedCurrency(t, st, "JPY", false)

	now := time.Now().UTC()
	amount := decimal.RequireFromString("100")

	t.Run("same currency returns amount unchanged", func(t *testing.T) {
		got, err := svc.Convert(ctx, amount, usd.ID, usd.ID, now)
		require.NoError(t, err)
		require.True(t, got.Equal(amount))
	})

	t.Run("direct rate multiplies by buy rate", func(t *testing.T) {
		seedRate(t, st, usd.ID, eur.ID, "0.9", now.Add(-time.Hour))

		got, err := svc.Convert(ctx, amount, usd.ID, eur.ID, now)
		require.NoError(t, err)
		require.True(t, got.Equal(decimal.RequireFromString("90")), "got %s", got)
	})

	t.Run("latest effective rate wins", func(t *testing.T) {
		seedRate(t, st, usd.ID, eur.ID, "0.8", now.Add(-30*time.Minute))

		got, err := svc.Convert(ctx, amount, usd.ID, eur.ID, now)
		require.NoError(t, err)
		require.True(t, got.Equal(decimal.RequireFromString("80")), "got %s", got)
	})

	t.Run("rates effective after asOf are ignored", func(t *testing.T) {
		seedRate(t, st, usd.ID, eur.ID, "0.5", now.Add(time.Hour))

		got, err := svc.Convert(ctx, amount, usd.ID, eur.ID, now)
		require.NoError(t, err)
		require.True(t, got.Equal(decimal.RequireFromString("80")), "got %s", got)
	})

	t.Run("equal effective times resolve to the newest row", func(t *testing.T) {
		at := now.Add(-10 * time.Minute)
		seedRate(t, st, usd.ID, gbp.ID, "0.70", at)
		seedRate(t, st, usd.ID, gbp.ID, "0.75", at)

		got, err := svc.Convert(ctx, amount, usd.ID, gbp.ID, now)
		require.NoError(t, err)
		require.True(t, got.Equal(decimal.RequireFromString("75")), "got %s", got)
	})

	t.Run("reverse rate divides when no direct rate exists", func(t *testing.T) {
		seedRate(t, st, eur.ID, gbp.ID, "0.8", now.Add(-time.Hour))

		got, err := svc.Convert(ctx, amount, gbp.ID, eur.ID, now)
		require.NoError(t, err)
		require.True(t, got.Equal(decimal.RequireFromString("125")), "got %s", got)
	})

	t.Run("zero reverse rate is an error", func(t *testing.T) {
		seedRate(t, st, eur.ID, jpy.ID, "0", now.Add(-time.Hour))

		_, err := svc.Convert(ctx, amount, jpy.ID, eur.ID, now)
		require.ErrorIs(t, err, ErrZeroRate)
	})

	t.Run("no rate either way passes the amount through", func(t *testing.T) {
		got, err := svc.Convert(ctx, amount, gbp.ID, jpy.ID, now)
		require.NoError(t, err)
		require.True(t, got.Equal(amount))
	})
}

func TestCurrencyDefaultInvariant(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &CurrencyService{Store: st}

	first, err := svc.CreateCurrency(ctx, "admin", domain.Currency{Code: "usd", Name: "US Dollar", IsDefault: true})
	require.NoError(t, err)
	require.Equal(t, "USD", first.Code)

	second, err := svc.CreateCurrency(ctx, "admin", domain.Currency{Code: "EUR", Name: "Euro", IsDefault: true})
	require.NoError(t, err)

	all, err := svc.ListCurrencies(ctx)
	require.NoError(t, err)

	var defaults []string
	for _, c := range all {
		if c.IsDefault {
			defaults = append(defaults, c.ID)
		}
	}
	require.Equal(t, []string{second.ID}, defaults)
}

func TestDeleteCurrencyBlockedByRates(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &CurrencyService{Store: st}

	usd := seedCurrency(t, st, "USD", true)
	eur := seedCurrency(t, st, "EUR", false)
	rate := seedRate(t, st, usd.ID, eur.ID, "0.9", time.Now().UTC())

	t.Run("referenced on either side refuses", func(t *testing.T) {
		require.ErrorIs(t, svc.DeleteCurrency(ctx, usd.ID), store.ErrReferenced)
		require.ErrorIs(t, svc.DeleteCurrency(ctx, eur.ID), store.ErrReferenced)
	})

	t.Run("deletable once rates are gone", func(t *testing.T) {
		require.NoError(t, svc.DeleteRate(ctx, rate.ID))
		require.NoError(t, svc.DeleteCurrency(ctx, eur.ID))

		_, err := svc.GetCurrency(ctx, eur.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestCreateRateValidatesCurrencies(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &CurrencyService{Store: st}

	usd := seedCurrency(t, st, "USD", true)

	_, err := svc.CreateRate(ctx, "admin", domain.CurrencyRate{
		FromID:  usd.ID,
		ToID:    "missing",
		BuyRate: decimal.RequireFromString("1.1"),
	})
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.CreateRate(ctx, "admin", domain.CurrencyRate{
		FromID: usd.ID,
		ToID:   usd.ID,
	})
	require.ErrorIs(t, err, ErrRequiredField)
}
