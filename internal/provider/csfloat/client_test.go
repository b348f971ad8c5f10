package csfloat_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"skinwatch/internal/provider"
	"skinwatch/internal/provider/csfloat"
)

func jsonResponse(t *testing.T, status int, v any) *http.Response {
	t.Helper()
	buffer := &bytes.Buffer{}
	require.NoError(t, json.NewEncoder(buffer).Encode(v))
	return &http.Response{StatusCode: status, Body: io.NopCloser(buffer)}
}

func TestCheapestListing(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock controller
	ctrl := gomock.NewController(t)

	// Arrange: create a mock HTTP client
	httpClient := NewMockHTTPClient(ctrl)

	// Assert: stub the Do method
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, http.MethodGet, req.Method)
			require.Equal(t, "/api/v1/listings", req.URL.Path)
			require.Equal(t, "secret-key", req.Header.Get("Authorization"))

			q := req.URL.Query()
			require.Equal(t, "AK-47 | Redline (Field-Tested)", q.Get("market_hash_name"))
			require.Equal(t, "lowest_price", q.Get("sort_by"))
			require.Equal(t, "1", q.Get("limit"))
			require.Equal(t, "buy_now", q.Get("type"))

			return jsonResponse(t, http.StatusOK, map[string]any{
				"data": []any{map[string]any{"id": "824", "price": 8734}},
			}), nil
		}).
		Times(1)

	// Arrange: setup a new client
	client, err := csfloat.NewClient("secret-key", csfloat.WithHTTPClient(httpClient))
	require.NoError(t, err)

	// Act: call CheapestListing
	listing, err := client.CheapestListing(t.Context(), "AK-47 | Redline (Field-Tested)")
	require.NoError(t, err)

	// Assert: price is converted from cents
	require.Equal(t, "824", listing.ID)
	require.True(t, decimal.RequireFromString("87.34").Equal(listing.Price))
}

func TestCheapestListing_BareArray(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Empty(t, req.Header.Get("Authorization"))
			return jsonResponse(t, http.StatusOK, []any{
				map[string]any{"id": 11, "price": 0},
				map[string]any{"id": 12, "price": 150},
			}), nil
		}).
		Times(1)

	client, err := csfloat.NewClient("", csfloat.WithHTTPClient(httpClient))
	require.NoError(t, err)

	listing, err := client.CheapestListing(t.Context(), "Glock-18 | Fade (Factory New)")
	require.NoError(t, err)
	require.Equal(t, "12", listing.ID)
	require.True(t, decimal.RequireFromString("1.5").Equal(listing.Price))
}

func TestCheapestListing_NotFound(t *testing.T) {
	t.Parallel()

	bodies := map[int]any{
		http.StatusOK:       map[string]any{"data": []any{}},
		http.StatusNotFound: map[string]any{},
	}
	for status, body := range bodies {
		ctrl := gomock.NewController(t)
		httpClient := NewMockHTTPClient(ctrl)
		httpClient.EXPECT().
			Do(gomock.Any()).
			DoAndReturn(func(req *http.Request) (*http.Response, error) {
				return jsonResponse(t, status, body), nil
			}).
			Times(1)

		client, err := csfloat.NewClient("k", csfloat.WithHTTPClient(httpClient))
		require.NoError(t, err)

		_, err = client.CheapestListing(t.Context(), "Nothing")
		require.ErrorIs(t, err, provider.ErrNotFound)
	}
}

func TestCheapestListing_ErrStatus(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusUnauthorized, http.StatusTooManyRequests, http.StatusInternalServerError} {
		ctrl := gomock.NewController(t)
		httpClient := NewMockHTTPClient(ctrl)
		httpClient.EXPECT().
			Do(gomock.Any()).
			DoAndReturn(func(req *http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader("nope"))}, nil
			}).
			Times(1)

		client, err := csfloat.NewClient("k", csfloat.WithHTTPClient(httpClient))
		require.NoError(t, err)

		_, err = client.CheapestListing(t.Context(), "AWP | Asiimov (Field-Tested)")
		require.Error(t, err)
		require.NotErrorIs(t, err, provider.ErrNotFound)
	}
}

func TestCheapestListing_ErrPerformingRequest(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return nil, fmt.Errorf("connection reset")
		}).
		Times(1)

	client, err := csfloat.NewClient("k", csfloat.WithHTTPClient(httpClient))
	require.NoError(t, err)

	_, err = client.CheapestListing(t.Context(), "AWP | Asiimov (Field-Tested)")
	require.Error(t, err)
}

type blockingLimiter struct{ err error }

func (l blockingLimiter) Wait(context.Context) error { return l.err }

func TestCheapestListing_LimiterRejects(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().Do(gomock.Any()).Times(0)

	limitErr := errors.New("limiter closed")
	client, err := csfloat.NewClient("k",
		csfloat.WithHTTPClient(httpClient),
		csfloat.WithLimiter(blockingLimiter{err: limitErr}),
	)
	require.NoError(t, err)

	_, err = client.CheapestListing(t.Context(), "AWP | Asiimov (Field-Tested)")
	require.ErrorIs(t, err, limitErr)
}

func TestHistoryGraph(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "/api/v1/history/AK-47 | Redline (Field-Tested)/graph", req.URL.Path)
			return jsonResponse(t, http.StatusOK, []any{
				map[string]any{"count": 3, "day": "2025-11-28T00:00:00Z", "avg_price": 8800},
				map[string]any{"count": 1, "day": "2025-11-26", "avg_price": 8650.5},
				map[string]any{"count": 2, "day": "garbage", "avg_price": 1},
				map[string]any{"count": 0, "day": "2025-11-27", "avg_price": 0},
			}), nil
		}).
		Times(1)

	client, err := csfloat.NewClient("k", csfloat.WithHTTPClient(httpClient))
	require.NoError(t, err)

	series, err := client.HistoryGraph(t.Context(), "AK-47 | Redline (Field-Tested)")
	require.NoError(t, err)
	require.Len(t, series, 2)

	require.Equal(t, time.Date(2025, 11, 26, 0, 0, 0, 0, time.UTC), series[0].Date)
	require.True(t, decimal.RequireFromString("86.505").Equal(series[0].Price))
	require.Equal(t, time.Date(2025, 11, 28, 0, 0, 0, 0, time.UTC), series[1].Date)
	require.True(t, decimal.RequireFromString("88").Equal(series[1].Price))
}
