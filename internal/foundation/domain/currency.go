package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency is reference data describing one tradable currency. At most one
// row carries IsDefault.
type Currency struct {
	ID        string
	Name      string
	Code      string // ISO 4217, unique
	Symbol    string
	IsDefault bool
	CreatedAt time.Time
	UpdatedAt time.Time
	CreatedBy string
	UpdatedBy string
}

// CurrencyRate is one buy/sell quote between two currencies, effective from
// EffectiveAt until superseded by a later row.
type CurrencyRate struct {
	ID          string
	FromID      string
	ToID        string
	BuyRate     decimal.Decimal
	SellRate    decimal.Decimal
	EffectiveAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CreatedBy   string
	UpdatedBy   string
}
