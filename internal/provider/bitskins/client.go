// Package bitskins is a client for the commission-trading marketplace API.
// Every call is authenticated by an API key and a time-based one-time code.
package bitskins

import (
	"net/http"
)

const (
	baseURL = "https://api.bitskins.com"
	// DefaultAppID is the Steam app id of Counter-Strike 2.
	DefaultAppID = 730
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=bitskins_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a client for the BitSkins API.
type Client struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient performs the requests.
	httpClient HTTPClient
	// header is sent with each request.
	header http.Header
	// appID scopes every query to one game.
	appID int
}

// Option is a configuration option for the client.
type Option func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
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

// WithAppID sets the game scope.
func WithAppID(appID int) Option {
	return func(c *Client) {
		if appID > 0 {
			c.appID = appID
		}
	}
}

// NewClient creates a new BitSkins API client.
func NewClient(key string, options ...Option) (*Client, error) {
	var client = &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		appID:      DefaultAppID,
	}
	if key != "" {
		client.header.Set("x-apikey", key)
	}
	for _, option := range options {
		option(client)
	}
	return client, nil
}
