// Package steam reads the price history of the consumer marketplace. The
// marketplace has no official API; history requires a logged-in session
// cookie.
package steam

import (
	"net/http"

	"skinwatch/internal/provider/ratelimit"
)

const (
	baseURL = "https://steamcommunity.com/market"
	// DefaultAppID is the Steam app id of Counter-Strike 2.
	DefaultAppID = 730
	// DefaultCurrency is the wallet currency code for BRL.
	DefaultCurrency = 7
	// DefaultCountry matches DefaultCurrency.
	DefaultCountry = "BR"
	// sessionCookie carries the logged-in session.
	sessionCookie = "steamLoginSecure"
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=steam_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client reads the consumer marketplace.
type Client struct {
	baseURL    string
	httpClient HTTPClient
	header     http.Header
	session    string
	appID      int
	currency   int
	country    string
	limiter    ratelimit.Limiter
}

// Option is a configuration option for the client.
type Option func(*Client)

// WithBaseURL sets the base URL of the market pages.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader adds headers to be sent with each request.
func WithHeader(header http.Header) Option {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// WithWallet sets the wallet currency code and country of the answers.
func WithWallet(currency int, country string) Option {
	return func(c *Client) {
		if currency > 0 {
			c.currency = currency
		}
		if country != "" {
			c.country = country
		}
	}
}

// WithLimiter gates every call through l.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// NewClient creates a client authenticated by the session cookie value. An
// empty session is allowed; history calls then fail with
// provider.ErrNoCredential without touching the network.
func NewClient(session string, options ...Option) (*Client, error) {
	var client = &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		session:    session,
		appID:      DefaultAppID,
		currency:   DefaultCurrency,
		country:    DefaultCountry,
	}
	for _, option := range options {
		option(client)
	}
	return client, nil
}

// HasSession reports whether a session credential is configured.
func (c *Client) HasSession() bool { return c.session != "" }
