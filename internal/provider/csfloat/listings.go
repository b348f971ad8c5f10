package csfloat

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"skinwatch/internal/envelope"
	"skinwatch/internal/price"
	"skinwatch/internal/provider"
)

// listingShapes are the known layouts of a listings answer.
var listingShapes = []envelope.Shape{
	{Name: "array", Path: "$"},
	{Name: "data", Path: "$.data"},
}

// Listing is the cheapest buy-now offer for an item.
type Listing struct {
	ID    string
	Price decimal.Decimal
}

// CheapestListing returns the lowest priced buy-now listing for an exact
// market name. It returns provider.ErrNotFound when nothing is listed.
func (c *Client) CheapestListing(ctx context.Context, name string) (Listing, error) {
	q := url.Values{}
	q.Set("market_hash_name", name)
	q.Set("sort_by", "lowest_price")
	q.Set("limit", "1")
	q.Set("type", "buy_now")

	var doc any
	if err := c.get(ctx, "/listings", q, &doc); err != nil {
		return Listing{}, err
	}

	list, _ := envelope.Extract(doc, listingShapes)
	for _, raw := range list {
		rec, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		cents, ok := envelope.Number(rec, "price")
		if !ok || cents <= 0 {
			continue
		}
		return Listing{ID: envelope.String(rec, "id"), Price: price.FromCents(int64(cents))}, nil
	}
	return Listing{}, fmt.Errorf("csfloat listing %q: %w", name, provider.ErrNotFound)
}

// graphPoint is one day of the sales graph.
type graphPoint struct {
	Count    int     `json:"count"`
	Day      string  `json:"day"`
	AvgPrice float64 `json:"avg_price"`
}

// HistoryGraph returns the daily average sale price of an item in ascending
// date order. Prices are in the primary currency.
func (c *Client) HistoryGraph(ctx context.Context, name string) ([]provider.PricePoint, error) {
	var points []graphPoint
	if err := c.get(ctx, "/history/"+url.PathEscape(name)+"/graph", nil, &points); err != nil {
		return nil, err
	}

	series := make([]provider.PricePoint, 0, len(points))
	for _, p := range points {
		if p.AvgPrice <= 0 {
			continue
		}
		day, err := time.Parse(time.RFC3339, p.Day)
		if err != nil {
			if day, err = time.Parse("2006-01-02", p.Day); err != nil {
				continue
			}
		}
		series = append(series, provider.PricePoint{
			Date:  provider.Day(day),
			Price: decimal.NewFromFloat(p.AvgPrice).Shift(-2),
		})
	}
	sort.SliceStable(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	return series, nil
}
