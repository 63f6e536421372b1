package http

import (
	"net/http"
	"time"

	"github.com/cobaltgrid/foundation/internal/foundation/domain"
	"github.com/cobaltgrid/foundation/internal/foundation/service"
	"github.com/cobaltgrid/foundation/pkg/apix"
	"github.com/cobaltgrid/foundation/pkg/httpx"
	"github.com/shopspring/decimal"
)

type CurrenciesHandler struct {
	CurrencyService *service.CurrencyService
}

// CurrencyResponse is the public shape of a currency.
type CurrencyResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Code      string `json:"code"`
	Symbol    string `json:"symbol,omitempty"`
	IsDefault bool   `json:"is_default"`
}

func toCurrencyResponse(c domain.Currency) CurrencyResponse {
	return CurrencyResponse{ID: c.ID, Name: c.Name, Code: c.Code, Symbol: c.Symbol, IsDefault: c.IsDefault}
}

type currencyRequest struct {
	Name      string `json:"name"`
	Code      string `json:"code"`
	Symbol    string `json:"symbol"`
	IsDefault bool   `json:"is_default"`
}

func (h *CurrenciesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	currencies, err := h.CurrencyService.ListCurrencies(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]CurrencyResponse, len(currencies))
	for i, c := range currencies {
		out[i] = toCurrencyResponse(c)
	}
	httpx.WriteJSON(ctx, w, http.StatusOK, map[string]any{"currencies": out})
}

func (h *CurrenciesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	currency, err := h.CurrencyService.GetCurrency(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(ctx, w, http.StatusOK, toCurrencyResponse(currency))
}

func (h *CurrenciesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req currencyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apix.BadRequest("Malformed JSON body.").Write(w)
		return
	}

	currency, err := h.CurrencyService.CreateCurrency(ctx, httpx.UserID(ctx), domain.Currency{
		Name:      req.Name,
		Code:      req.Code,
		Symbol:    req.Symbol,
		IsDefault: req.IsDefault,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(ctx, w, http.StatusCreated, toCurrencyResponse(currency))
}

func (h *CurrenciesHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req currencyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apix.BadRequest("Malformed JSON body.").Write(w)
		return
	}

	err := h.CurrencyService.UpdateCurrency(ctx, httpx.UserID(ctx), domain.Currency{
		ID:        r.PathValue("id"),
		Name:      req.Name,
		Code:      req.Code,
		Symbol:    req.Symbol,
		IsDefault: req.IsDefault,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete answers 409 referential-conflict while rates reference the
// currency.
func (h *CurrenciesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.CurrencyService.DeleteCurrency(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleConvert resolves an amount between two currencies as of an optional
// point in time, defaulting to now.
func (h *CurrenciesHandler) HandleConvert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Amount string `json:"amount"`
		FromID string `json:"from_id"`
		ToID   string `json:"to_id"`
		AsOf   string `json:"as_of"` // RFC 3339, optional
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apix.BadRequest("Malformed JSON body.").Write(w)
		return
	}
	if req.FromID == "" {
		apix.RequiredField("from_id").Write(w)
		return
	}
	if req.ToID == "" {
		apix.RequiredField("to_id").Write(w)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		apix.BadRequest("The amount field must be a decimal number.").Write(w)
		return
	}

	asOf := time.Now().UTC()
	if req.AsOf != "" {
		asOf, err = time.Parse(time.RFC3339, req.AsOf)
		if err != nil {
			apix.BadRequest("The as_of field must be RFC 3339.").Write(w)
			return
		}
	}

	converted, err := h.CurrencyService.Convert(ctx, amount, req.FromID, req.ToID, asOf)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(ctx, w, http.StatusOK, map[string]any{
		"amount":  amount.String(),
		"result":  converted.String(),
		"from_id": req.FromID,
		"to_id":   req.ToID,
		"as_of":   asOf.Format(time.RFC3339),
	})
}

type CurrencyRatesHandler struct {
	CurrencyService *service.CurrencyService
}

// CurrencyRateResponse is the public shape of one exchange rate quote.
type CurrencyRateResponse struct {
	ID          string    `json:"id"`
	FromID      string    `json:"from_id"`
	ToID        string    `json:"to_id"`
	BuyRate     string    `json:"buy_rate"`
	SellRate    string    `json:"sell_rate"`
	EffectiveAt time.Time `json:"effective_at"`
}

func toCurrencyRateResponse(r domain.CurrencyRate) CurrencyRateResponse {
	return CurrencyRateResponse{
		ID:          r.ID,
		FromID:      r.FromID,
		ToID:        r.ToID,
		BuyRate:     r.BuyRate.String(),
		SellRate:    r.SellRate.String(),
		EffectiveAt: r.EffectiveAt,
	}
}

func (h *CurrencyRatesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rates, err := h.CurrencyService.ListRates(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]CurrencyRateResponse, len(rates))
	for i, rate := range rates {
		out[i] = toCurrencyRateResponse(rate)
	}
	httpx.WriteJSON(ctx, w, http.StatusOK, map[string]any{"rates": out})
}

func (h *CurrencyRatesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		FromID      string `json:"from_id"`
		ToID        string `json:"to_id"`
		BuyRate     string `json:"buy_rate"`
		SellRate    string `json:"sell_rate"`
		EffectiveAt string `json:"effective_at"` // RFC 3339, optional
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apix.BadRequest("Malformed JSON body.").Write(w)
		return
	}

	buy, err := decimal.NewFromString(req.BuyRate)
	if err != nil {
		apix.BadRequest("The buy_rate field must be a decimal number.").Write(w)
		return
	}
	sell, err := decimal.NewFromString(req.SellRate)
	if err != nil {
		apix.BadRequest("The sell_rate field must be a decimal number.").Write(w)
		return
	}

	var effectiveAt time.Time
	if req.EffectiveAt != "" {
		effectiveAt, err = time.Parse(time.RFC3339, req.EffectiveAt)
		if err != nil {
			apix.BadRequest("The effective_at field must be RFC 3339.").Write(w)
			return
		}
	}

	rate, err := h.CurrencyService.CreateRate(ctx, httpx.UserID(ctx), domain.CurrencyRate{
		FromID:      req.FromID,
		ToID:        req.ToID,
		BuyRate:     buy,
		SellRate:    sell,
		EffectiveAt: effectiveAt,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(ctx, w, http.StatusCreated, toCurrencyRateResponse(rate))
}

func (h *CurrencyRatesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.CurrencyService.DeleteRate(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
