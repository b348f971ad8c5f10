package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"skinwatch/internal/engine"
	"skinwatch/internal/history"
	"skinwatch/internal/price"
	"skinwatch/internal/provider"
)

// service is the engine surface the handlers call.
type service interface {
	SearchItems(ctx context.Context, query string) ([]*provider.Item, error)
	GetHistory(ctx context.Context, req history.Request) provider.History
	GetCurrentPrice(ctx context.Context, name string) decimal.NullDecimal
	ItemDetails(ctx context.Context, id string) (json.RawMessage, error)
	Rate() price.Rate
}

type api struct {
	svc     service
	log     *slog.Logger
	timeout time.Duration
}

type errorResponse struct {
	Error string `json:"error"`
}

type currentPriceResponse struct {
	Name     string            `json:"name"`
	Source   provider.Tag      `json:"source"`
	Currency price.Currency    `json:"currency"`
	Price    *engine.PriceView `json:"price"`
}

type rateResponse struct {
	Base        price.Currency  `json:"base"`
	Quote       price.Currency  `json:"quote"`
	Value       decimal.Decimal `json:"value"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

func (a *api) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("GET /api/skins/search", a.handleSearch)
	mux.HandleFunc("GET /api/skins/history/{id}", a.handleHistory)
	mux.HandleFunc("GET /api/skins/price/steam", a.handleSteamPrice)
	mux.HandleFunc("GET /api/skins/details/{id}", a.handleDetails)
	mux.HandleFunc("GET /api/rate", a.handleRate)
	return mux
}

func (a *api) context(r *http.Request) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), a.timeout)
}

func (a *api) handleSearch(w http.ResponseWriter, r *http.Request) {
	cur, ok := engine.ParseCurrency(r.URL.Query().Get("currency"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unsupported currency")
		return
	}
	ctx, cancel := a.context(r)
	defer cancel()

	items, err := a.svc.SearchItems(ctx, r.URL.Query().Get("q"))
	if err != nil {
		requestLogger(r.Context(), a.log).Warn("search failed", "err", err)
		writeError(w, http.StatusBadGateway, "search provider unavailable")
		return
	}
	writeJSON(w, http.StatusOK, engine.Present(items, cur, a.svc.Rate()))
}

func (a *api) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cur, ok := engine.ParseCurrency(q.Get("currency"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unsupported currency")
		return
	}
	preferred, err := provider.ParseTag(q.Get("source"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	forced, err := provider.ParseTag(q.Get("force"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := history.Request{
		ItemID:    strings.TrimSpace(r.PathValue("id")),
		ItemName:  strings.TrimSpace(q.Get("name")),
		Preferred: preferred,
		Forced:    forced,
		IDs: map[provider.Tag]string{
			provider.Bitskins: q.Get("bitskins_id"),
			provider.CSFloat:  q.Get("csfloat_id"),
		},
	}
	ctx, cancel := a.context(r)
	defer cancel()

	h := a.svc.GetHistory(ctx, req)
	writeJSON(w, http.StatusOK, engine.PresentHistory(h, cur, a.svc.Rate()))
}

func (a *api) handleSteamPrice(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := strings.TrimSpace(q.Get("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing name query param")
		return
	}
	cur, ok := engine.ParseCurrency(q.Get("currency"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unsupported currency")
		return
	}
	ctx, cancel := a.context(r)
	defer cancel()

	resp := currentPriceResponse{Name: name, Source: provider.Steam, Currency: cur}
	if p := a.svc.GetCurrentPrice(ctx, name); p.Valid {
		v := engine.NewPriceView(p.Decimal, cur, a.svc.Rate())
		resp.Price = &v
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *api) handleDetails(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.context(r)
	defer cancel()

	raw, err := a.svc.ItemDetails(ctx, strings.TrimSpace(r.PathValue("id")))
	switch {
	case errors.Is(err, engine.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		requestLogger(r.Context(), a.log).Warn("details failed", "err", err)
		writeError(w, http.StatusBadGateway, "details provider unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func (a *api) handleRate(w http.ResponseWriter, r *http.Request) {
	rate := a.svc.Rate()
	writeJSON(w, http.StatusOK, rateResponse{
		Base:        price.USD,
		Quote:       price.BRL,
		Value:       rate.Value,
		LastUpdated: rate.LastUpdated,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
