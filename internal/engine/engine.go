// Package engine is the surface callers use: search, history, current
// price, item details and the exchange rate.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"skinwatch/internal/aggregate"
	"skinwatch/internal/history"
	"skinwatch/internal/logger"
	"skinwatch/internal/price"
	"skinwatch/internal/provider"
	"skinwatch/internal/provider/bitskins"
)

// ErrInvalidInput marks caller input the engine cannot act on.
var ErrInvalidInput = errors.New("invalid input")

// Searcher runs a merged marketplace search.
type Searcher interface {
	Search(ctx context.Context, query string) ([]*provider.Item, error)
}

// HistoryResolver resolves one item's price series.
type HistoryResolver interface {
	Resolve(ctx context.Context, req history.Request) provider.History
}

// DetailsFetcher reads the raw primary marketplace record of a listing.
type DetailsFetcher interface {
	GetItem(ctx context.Context, id string, token string) (json.RawMessage, error)
}

// Coder produces one-time codes.
type Coder interface {
	Code(shift int) (string, error)
}

// RateSource returns the current exchange rate.
type RateSource interface {
	Get() price.Rate
}

// Engine composes the components. Fields are set by Build or by tests.
type Engine struct {
	Searcher Searcher
	History  HistoryResolver
	Details  DetailsFetcher
	Codes    Coder
	Rates    RateSource
	// Shifts are the one-time code windows tried for detail lookups.
	Shifts []int
	Log    *slog.Logger
}

// SearchItems returns ranked items for a free-text query. A primary
// marketplace failure returns an error wrapping
// provider.ErrProviderUnavailable.
func (e *Engine) SearchItems(ctx context.Context, query string) ([]*provider.Item, error) {
	items, err := e.Searcher.Search(ctx, query)
	if err != nil {
		if !errors.Is(err, provider.ErrProviderUnavailable) {
			err = fmt.Errorf("%w: %v", provider.ErrProviderUnavailable, err)
		}
		return []*provider.Item{}, err
	}
	return items, nil
}

// GetHistory resolves a price series in the primary currency.
func (e *Engine) GetHistory(ctx context.Context, req history.Request) provider.History {
	return e.History.Resolve(ctx, req)
}

// GetCurrentPrice returns the most recent consumer marketplace price of an
// item in the primary currency, or a null value when none is known.
func (e *Engine) GetCurrentPrice(ctx context.Context, name string) decimal.NullDecimal {
	if name == "" {
		return decimal.NullDecimal{}
	}
	h := e.History.Resolve(ctx, history.Request{ItemName: name, Forced: provider.Steam})
	last, ok := h.Last()
	if !ok {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(last.Price)
}

// ItemDetails returns the raw primary marketplace record of a listing,
// retrying clock-skew rejections through the configured shifts.
func (e *Engine) ItemDetails(ctx context.Context, id string) (json.RawMessage, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty item id", ErrInvalidInput)
	}
	if e.Details == nil || e.Codes == nil {
		return nil, provider.ErrProviderUnavailable
	}
	shifts := e.Shifts
	if len(shifts) == 0 {
		shifts = history.DefaultShifts
	}

	var lastErr error
	for _, shift := range shifts {
		token, err := e.Codes.Code(shift)
		if err != nil {
			return nil, fmt.Errorf("%w: one-time code: %v", provider.ErrProviderUnavailable, err)
		}
		raw, err := e.Details.GetItem(ctx, id, token)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if !bitskins.IsClockSkew(err) {
			break
		}
		e.logger().Debug("one-time code rejected, shifting window", "shift", shift)
	}
	return nil, fmt.Errorf("%w: %v", provider.ErrProviderUnavailable, lastErr)
}

// Rate returns the current exchange rate.
func (e *Engine) Rate() price.Rate { return e.Rates.Get() }

func (e *Engine) logger() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return logger.Discard()
}

var _ Searcher = (*aggregate.Aggregator)(nil)
var _ HistoryResolver = (*history.Resolver)(nil)
