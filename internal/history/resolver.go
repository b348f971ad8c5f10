// Package history resolves the price series of one item, picking a
// marketplace by an explicit policy and falling back when the preferred
// one has no data.
package history

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"skinwatch/internal/logger"
	"skinwatch/internal/price"
	"skinwatch/internal/provider"
	"skinwatch/internal/provider/bitskins"
	"skinwatch/internal/provider/steam"
)

const (
	DefaultLimit     = 20
	DefaultMaxPoints = 90
)

// DefaultShifts are the one-time code windows tried against the primary
// marketplace: current, one step back, one step forward.
var DefaultShifts = []int{0, -1, 1}

// SalesLister reads recent sales from the primary marketplace.
type SalesLister interface {
	PricingList(ctx context.Context, skinID int, limit int, token string) ([]bitskins.Sale, error)
}

// Coder produces one-time codes for a window shift.
type Coder interface {
	Code(shift int) (string, error)
}

// SteamHistory reads the consumer marketplace history.
type SteamHistory interface {
	PriceHistory(ctx context.Context, name string) (steam.Series, error)
}

// GraphSource reads the secondary marketplace daily averages.
type GraphSource interface {
	HistoryGraph(ctx context.Context, name string) ([]provider.PricePoint, error)
}

// RateSource returns the current exchange rate.
type RateSource interface {
	Get() price.Rate
}

// Request identifies the item to resolve. ItemID belongs to Preferred
// (bitskins when empty); IDs may carry identifiers for other marketplaces.
type Request struct {
	ItemID    string
	ItemName  string
	Preferred provider.Tag
	// Forced restricts resolution to one marketplace. Empty means automatic.
	Forced provider.Tag
	IDs    map[provider.Tag]string
}

// ID returns the identifier the request carries for tag.
func (r Request) ID(tag provider.Tag) string {
	if id := strings.TrimSpace(r.IDs[tag]); id != "" {
		return id
	}
	pref := r.Preferred
	if pref == "" {
		pref = provider.Bitskins
	}
	if pref == tag {
		return strings.TrimSpace(r.ItemID)
	}
	return ""
}

// Resolver runs the selection policy. Any marketplace client may be nil,
// which makes that source yield nothing.
type Resolver struct {
	Bitskins SalesLister
	Codes    Coder
	Steam    SteamHistory
	CSFloat  GraphSource
	Rates    RateSource

	Shifts    []int
	Limit     int
	MaxPoints int
	Now       func() time.Time
	Log       *slog.Logger
}

// Resolve returns a series in ascending date order tagged with the
// marketplace that produced it, or provider.Empty when none did. It never
// fails; marketplace errors are logged and trigger the fallback.
func (r *Resolver) Resolve(ctx context.Context, req Request) provider.History {
	log := r.logger().With("item_id", req.ItemID, "item", req.ItemName)

	if req.Forced != "" {
		return r.forced(ctx, log, req)
	}

	pref := req.Preferred
	if pref == "" {
		pref = provider.Bitskins
	}
	if pref == provider.Bitskins {
		if id, ok := numericID(req.ID(provider.Bitskins)); ok {
			if series := r.fromBitskins(ctx, log, id); len(series) > 0 {
				return provider.History{Source: provider.Bitskins, Series: series}
			}
		}
	}
	if req.ItemName != "" {
		if series := r.fromSteam(ctx, log, req.ItemName); len(series) > 0 {
			return provider.History{Source: provider.Steam, Series: series}
		}
	}
	log.Debug("no history source produced data")
	return provider.Empty()
}

func (r *Resolver) forced(ctx context.Context, log *slog.Logger, req Request) provider.History {
	var (
		series []provider.PricePoint
		tag    = req.Forced
	)
	switch tag {
	case provider.Bitskins:
		id, ok := numericID(req.ID(provider.Bitskins))
		if !ok {
			log.Debug("forced source rejected", "source", tag, "err", provider.ErrNoIdentifier)
			return provider.Empty()
		}
		series = r.fromBitskins(ctx, log, id)
	case provider.CSFloat:
		if req.ID(provider.CSFloat) == "" || req.ItemName == "" {
			log.Debug("forced source rejected", "source", tag, "err", provider.ErrNoIdentifier)
			return provider.Empty()
		}
		series = r.fromCSFloat(ctx, log, req.ItemName)
	case provider.Steam:
		if req.ItemName == "" {
			log.Debug("forced source rejected", "source", tag, "err", provider.ErrNoIdentifier)
			return provider.Empty()
		}
		series = r.fromSteam(ctx, log, req.ItemName)
	}
	if len(series) == 0 {
		return provider.Empty()
	}
	return provider.History{Source: tag, Series: series}
}

// fromBitskins fetches recent sales, retrying only clock-skew rejections
// through the configured shifts. The result is ascending by date.
func (r *Resolver) fromBitskins(ctx context.Context, log *slog.Logger, skinID int) []provider.PricePoint {
	if r.Bitskins == nil || r.Codes == nil {
		return nil
	}
	for _, shift := range r.shifts() {
		token, err := r.Codes.Code(shift)
		if err != nil {
			log.Warn("one-time code failed", "source", provider.Bitskins, "err", err)
			return nil
		}
		sales, err := r.Bitskins.PricingList(ctx, skinID, r.limit(), token)
		if err == nil {
			return r.salesSeries(sales)
		}
		if !bitskins.IsClockSkew(err) {
			log.Warn("history fetch failed", "source", provider.Bitskins, "err", err)
			return nil
		}
		log.Debug("one-time code rejected, shifting window", "source", provider.Bitskins, "shift", shift)
	}
	log.Warn("one-time code rejected for every window", "source", provider.Bitskins, "shifts", r.shifts())
	return nil
}

// salesSeries normalizes newest-first sales into an ascending series.
// Sales without a date are stamped today.
func (r *Resolver) salesSeries(sales []bitskins.Sale) []provider.PricePoint {
	series := make([]provider.PricePoint, 0, len(sales))
	for i := len(sales) - 1; i >= 0; i-- {
		s := sales[i]
		p := price.NormalizeFloat(s.RawPrice)
		if p.IsNegative() {
			continue
		}
		at := s.CreatedAt
		if at.IsZero() {
			at = r.now()
		}
		series = append(series, provider.PricePoint{Date: provider.Day(at), Price: p})
	}
	return series
}

// fromSteam fetches the consumer marketplace history in the primary
// currency, keeping at most MaxPoints recent points.
func (r *Resolver) fromSteam(ctx context.Context, log *slog.Logger, name string) []provider.PricePoint {
	if r.Steam == nil {
		return nil
	}
	raw, err := r.Steam.PriceHistory(ctx, name)
	if err != nil {
		if errors.Is(err, provider.ErrNoCredential) {
			log.Debug("history source disabled", "source", provider.Steam, "err", err)
		} else {
			log.Warn("history fetch failed", "source", provider.Steam, "err", err)
		}
		return nil
	}

	points := raw.Points
	if n := r.maxPoints(); len(points) > n {
		points = points[len(points)-n:]
	}
	series := make([]provider.PricePoint, len(points))
	var rate price.Rate
	if raw.Secondary && r.Rates != nil {
		rate = r.Rates.Get()
	}
	for i, p := range points {
		if raw.Secondary {
			p.Price = price.ToPrimary(p.Price, rate)
		}
		series[i] = p
	}
	return series
}

func (r *Resolver) fromCSFloat(ctx context.Context, log *slog.Logger, name string) []provider.PricePoint {
	if r.CSFloat == nil {
		return nil
	}
	series, err := r.CSFloat.HistoryGraph(ctx, name)
	if err != nil {
		log.Warn("history fetch failed", "source", provider.CSFloat, "err", err)
		return nil
	}
	if n := r.maxPoints(); len(series) > n {
		series = series[len(series)-n:]
	}
	return series
}

func numericID(s string) (int, bool) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (r *Resolver) shifts() []int {
	if len(r.Shifts) > 0 {
		return r.Shifts
	}
	return DefaultShifts
}

func (r *Resolver) limit() int {
	if r.Limit > 0 {
		return r.Limit
	}
	return DefaultLimit
}

func (r *Resolver) maxPoints() int {
	if r.MaxPoints > 0 {
		return r.MaxPoints
	}
	return DefaultMaxPoints
}

func (r *Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Resolver) logger() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return logger.Discard()
}
