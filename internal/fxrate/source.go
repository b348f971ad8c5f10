package fxrate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"
)

// DefaultURL serves the latest USD to BRL quote.
const DefaultURL = "https://economia.awesomeapi.com.br/last/USD-BRL"

// HTTPClient describes an HTTP client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// QuoteSource reads the bid of a currency pair from a JSON quote endpoint,
// e.g. {"USDBRL":{"bid":"5.4321"}} with Path "$.USDBRL.bid".
type QuoteSource struct {
	URL    string
	Path   string
	Client HTTPClient
}

// NewQuoteSource returns a source for the USD to BRL endpoint.
func NewQuoteSource(url string, client HTTPClient) *QuoteSource {
	if url == "" {
		url = DefaultURL
	}
	return &QuoteSource{URL: url, Path: "$.USDBRL.bid", Client: client}
}

func (s *QuoteSource) Fetch(ctx context.Context) (decimal.Decimal, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, http.NoBody)
	if err != nil {
		return decimal.Zero, fmt.Errorf("creating request: %w", err)
	}
	res, err := client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}

	var doc any
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return decimal.Zero, fmt.Errorf("decoding quote: %w", err)
	}
	v, err := jsonpath.Get(s.Path, doc)
	if err != nil {
		return decimal.Zero, fmt.Errorf("reading %s: %w", s.Path, err)
	}
	switch x := v.(type) {
	case string:
		return decimal.NewFromString(x)
	case float64:
		return decimal.NewFromFloat(x), nil
	}
	return decimal.Zero, fmt.Errorf("reading %s: unexpected type %T", s.Path, v)
}
