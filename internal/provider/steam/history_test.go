package steam_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"skinwatch/internal/provider"
	"skinwatch/internal/provider/steam"
)

func jsonResponse(t *testing.T, status int, v any) *http.Response {
	t.Helper()
	buffer := &bytes.Buffer{}
	require.NoError(t, json.NewEncoder(buffer).Encode(v))
	return &http.Response{StatusCode: status, Body: io.NopCloser(buffer)}
}

func TestPriceHistory(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock controller
	ctrl := gomock.NewController(t)

	// Arrange: create a mock HTTP client
	httpClient := NewMockHTTPClient(ctrl)

	// Assert: stub the Do method
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "/market/pricehistory/", req.URL.Path)
			q := req.URL.Query()
			require.Equal(t, "BR", q.Get("country"))
			require.Equal(t, "7", q.Get("currency"))
			require.Equal(t, "730", q.Get("appid"))
			require.Equal(t, "AK-47 | Redline (Field-Tested)", q.Get("market_hash_name"))

			cookie, err := req.Cookie("steamLoginSecure")
			require.NoError(t, err)
			require.Equal(t, "session-value", cookie.Value)

			return jsonResponse(t, http.StatusOK, map[string]any{
				"success":      true,
				"price_prefix": "R$",
				"prices": []any{
					[]any{"Nov 27 2013 01: +0", 3.44, "12"},
					[]any{"Nov 28 2013 01: +0", 3.5, "4"},
					[]any{"Nov 28 2013 02: +0", 3.6, "2"},
					[]any{"bad", 1, "1"},
					[]any{"Nov 29 2013 01: +0", "x", "1"},
				},
			}), nil
		}).
		Times(1)

	// Arrange: setup a new client
	client, err := steam.NewClient("session-value", steam.WithHTTPClient(httpClient))
	require.NoError(t, err)

	// Act: call PriceHistory
	series, err := client.PriceHistory(t.Context(), "AK-47 | Redline (Field-Tested)")
	require.NoError(t, err)

	// Assert: hourly points collapse per day, malformed tuples are skipped
	require.True(t, series.Secondary)
	require.Len(t, series.Points, 2)
	require.Equal(t, time.Date(2013, 11, 27, 0, 0, 0, 0, time.UTC), series.Points[0].Date)
	require.True(t, decimal.RequireFromString("3.44").Equal(series.Points[0].Price))
	require.Equal(t, time.Date(2013, 11, 28, 0, 0, 0, 0, time.UTC), series.Points[1].Date)
	require.True(t, decimal.RequireFromString("3.6").Equal(series.Points[1].Price))
}

func TestPriceHistory_PrimaryCurrency(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "1", req.URL.Query().Get("currency"))
			require.Equal(t, "US", req.URL.Query().Get("country"))
			return jsonResponse(t, http.StatusOK, map[string]any{
				"success":      true,
				"price_prefix": "$",
				"prices":       []any{[]any{"Jan 02 2024 01: +0", 10, "1"}},
			}), nil
		}).
		Times(1)

	client, err := steam.NewClient("s", steam.WithHTTPClient(httpClient), steam.WithWallet(1, "US"))
	require.NoError(t, err)

	series, err := client.PriceHistory(t.Context(), "AWP | Asiimov (Field-Tested)")
	require.NoError(t, err)
	require.False(t, series.Secondary)
	require.Len(t, series.Points, 1)
}

func TestPriceHistory_NoSession(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().Do(gomock.Any()).Times(0)

	client, err := steam.NewClient("", steam.WithHTTPClient(httpClient))
	require.NoError(t, err)
	require.False(t, client.HasSession())

	_, err = client.PriceHistory(t.Context(), "AWP | Asiimov (Field-Tested)")
	require.ErrorIs(t, err, provider.ErrNoCredential)
}

func TestPriceHistory_Failures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		res      func(t *testing.T) *http.Response
		notFound bool
	}{
		{"unsuccessful", func(t *testing.T) *http.Response {
			return jsonResponse(t, http.StatusOK, map[string]any{"success": false})
		}, true},
		{"bad request", func(t *testing.T) *http.Response {
			return jsonResponse(t, http.StatusBadRequest, []any{})
		}, true},
		{"rate limited", func(t *testing.T) *http.Response {
			return &http.Response{StatusCode: http.StatusTooManyRequests, Body: io.NopCloser(strings.NewReader(""))}
		}, false},
		{"invalid json", func(t *testing.T) *http.Response {
			return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("<html>"))}
		}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			httpClient := NewMockHTTPClient(ctrl)
			httpClient.EXPECT().
				Do(gomock.Any()).
				DoAndReturn(func(req *http.Request) (*http.Response, error) {
					return tc.res(t), nil
				}).
				Times(1)

			client, err := steam.NewClient("s", steam.WithHTTPClient(httpClient))
			require.NoError(t, err)

			_, err = client.PriceHistory(t.Context(), "x")
			require.Error(t, err)
			if tc.notFound {
				require.ErrorIs(t, err, provider.ErrNotFound)
			} else {
				require.NotErrorIs(t, err, provider.ErrNotFound)
			}
		})
	}
}
