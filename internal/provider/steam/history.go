package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"skinwatch/internal/provider"
)

// secondaryPrefix marks answers priced in the secondary currency.
const secondaryPrefix = "R$"

// historyDateLayout parses the leading "Nov 27 2013" of a point label
// such as "Nov 27 2013 01: +0".
const historyDateLayout = "Jan 02 2006"

// Series is a raw price history in the wallet currency of the session.
type Series struct {
	Points []provider.PricePoint
	// Secondary is true when prices are in the secondary currency.
	Secondary bool
}

type historyResponse struct {
	Success     bool              `json:"success"`
	PricePrefix string            `json:"price_prefix"`
	PriceSuffix string            `json:"price_suffix"`
	Prices      []json.RawMessage `json:"prices"`
}

// PriceHistory returns the daily median sale prices of an item in ascending
// date order.
func (c *Client) PriceHistory(ctx context.Context, name string) (Series, error) {
	if c.session == "" {
		return Series{}, provider.ErrNoCredential
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Series{}, err
		}
	}

	q := url.Values{}
	q.Set("country", c.country)
	q.Set("currency", strconv.Itoa(c.currency))
	q.Set("appid", strconv.Itoa(c.appID))
	q.Set("market_hash_name", name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/pricehistory/?"+q.Encode(), nil)
	if err != nil {
		return Series{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: c.session})

	res, err := c.httpClient.Do(req)
	if err != nil {
		return Series{}, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusBadRequest, http.StatusNotFound:
		return Series{}, fmt.Errorf("steam history %q: %w", name, provider.ErrNotFound)
	case http.StatusUnauthorized, http.StatusForbidden:
		return Series{}, fmt.Errorf("unauthorized: %d", res.StatusCode)
	case http.StatusTooManyRequests:
		return Series{}, fmt.Errorf("rate limited: %d", res.StatusCode)
	default:
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return Series{}, fmt.Errorf("unexpected status code %d: %s", res.StatusCode, msg)
	}

	var body historyResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return Series{}, fmt.Errorf("decoding history response: %w", err)
	}
	if !body.Success {
		return Series{}, fmt.Errorf("steam history %q: %w", name, provider.ErrNotFound)
	}

	return Series{
		Points:    parsePoints(body.Prices),
		Secondary: strings.Contains(body.PricePrefix, secondaryPrefix) || strings.Contains(body.PriceSuffix, secondaryPrefix),
	}, nil
}

// parsePoints decodes ["Nov 27 2013 01: +0", 3.44, "12"] tuples. Points the
// marketplace reports hourly collapse to their calendar day, last one wins.
func parsePoints(raw []json.RawMessage) []provider.PricePoint {
	points := make([]provider.PricePoint, 0, len(raw))
	for _, r := range raw {
		var tuple []any
		if err := json.Unmarshal(r, &tuple); err != nil || len(tuple) < 2 {
			continue
		}
		label, ok := tuple[0].(string)
		if !ok || len(label) < len(historyDateLayout) {
			continue
		}
		day, err := time.Parse(historyDateLayout, label[:len(historyDateLayout)])
		if err != nil {
			continue
		}
		v, ok := tuple[1].(float64)
		if !ok || v < 0 {
			continue
		}
		p := provider.PricePoint{Date: day, Price: decimal.NewFromFloat(v)}
		if n := len(points); n > 0 && points[n-1].Date.Equal(day) {
			points[n-1] = p
			continue
		}
		points = append(points, p)
	}
	return points
}
