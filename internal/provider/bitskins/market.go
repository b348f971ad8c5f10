package bitskins

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"skinwatch/internal/envelope"
)

// searchShapes are the known layouts of a search answer.
var searchShapes = []envelope.Shape{
	{Name: "array", Path: "$"},
	{Name: "data.items", Path: "$.data.items"},
	{Name: "items", Path: "$.items"},
}

// salesShapes are the known layouts of a pricing list answer.
var salesShapes = []envelope.Shape{
	{Name: "array", Path: "$"},
	{Name: "list", Path: "$.list"},
	{Name: "sales", Path: "$.sales"},
	{Name: "prices", Path: "$.prices"},
}

// Skin is one search hit. RawPrice is in the marketplace encoding.
type Skin struct {
	ID       string
	Name     string
	RawPrice float64
}

// Sale is one recorded sale. CreatedAt is zero when the record carries no
// date. RawPrice is in the marketplace encoding.
type Sale struct {
	CreatedAt time.Time
	RawPrice  float64
}

// SearchSkinName finds skins whose name matches a wildcard pattern
// ("%ak%redline%").
func (c *Client) SearchSkinName(ctx context.Context, pattern string, limit int, token string) ([]Skin, error) {
	body := map[string]any{
		"where": map[string]any{"app_id": c.appID, "skin_name": pattern},
		"limit": limit,
	}
	var doc any
	if err := c.post(ctx, "/market/search/skin_name", body, token, &doc); err != nil {
		return nil, err
	}

	list, _ := envelope.Extract(doc, searchShapes)
	skins := make([]Skin, 0, len(list))
	for _, raw := range list {
		rec, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name := envelope.String(rec, "name", "market_hash_name", "skin_name")
		if name == "" {
			continue
		}
		p, _ := envelope.Number(rec, "suggested_price", "price")
		skins = append(skins, Skin{ID: envelope.String(rec, "id", "skin_id"), Name: name, RawPrice: p})
	}
	return skins, nil
}

// PricingList returns recent sales of a skin, newest first.
func (c *Client) PricingList(ctx context.Context, skinID int, limit int, token string) ([]Sale, error) {
	body := map[string]any{"app_id": c.appID, "skin_id": skinID, "limit": limit}
	var doc any
	if err := c.post(ctx, "/market/pricing/list", body, token, &doc); err != nil {
		return nil, err
	}

	list, _ := envelope.Extract(doc, salesShapes)
	sales := make([]Sale, 0, len(list))
	for _, raw := range list {
		rec, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		var at time.Time
		if s := envelope.String(rec, "created_at", "date"); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				continue
			}
			at = t
		}
		p, _ := envelope.Number(rec, "price")
		sales = append(sales, Sale{CreatedAt: at, RawPrice: p})
	}
	return sales, nil
}

// GetItem returns the raw marketplace record of one listed item.
func (c *Client) GetItem(ctx context.Context, id string, token string) (json.RawMessage, error) {
	body := map[string]any{"app_id": c.appID, "id": id}
	var raw json.RawMessage
	if err := c.post(ctx, "/market/search/get", body, token, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) post(ctx context.Context, path string, body any, token string, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("x-auth-token", token)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return newAPIError(res.StatusCode, msg)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
