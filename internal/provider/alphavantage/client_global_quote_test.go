package alphavantage_test

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	alphavantage "portfoliotracker/internal/provider/alphavantage"
)

const globalQuoteBody = `{
  "Global Quote": {
    "01. symbol": "IBM",
    "02. open": "190.0000",
    "03. high": "192.1000",
    "04. low": "189.5000",
    "05. price": "191.4200",
    "06. volume": "3296837",
    "07. latest trading day": "2025-01-14",
    "08. previous close": "190.0000",
    "09. change": "1.4200",
    "10. change percent": "0.7474%"
  }
}`

func newClient(t *testing.T, fn func(req *http.Request) (*http.Response, error)) *alphavantage.Client {
	t.Helper()

	// Arrange: create a mock controller and http client
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().Do(gomock.Any()).DoAndReturn(fn).Times(1)

	client, err := alphavantage.New("test-key", alphavantage.WithHTTPClient(httpClient))
	require.NoError(t, err)
	return client
}

func TestGetGlobalQuote(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(req *http.Request) (*http.Response, error) {
		require.Equal(t, http.MethodGet, req.Method)
		require.Equal(t, "/query", req.URL.Path)
		require.Equal(t, "test-key", req.URL.Query().Get("apikey"))
		require.Equal(t, "GLOBAL_QUOTE", req.URL.Query().Get("function"))
		require.Equal(t, "IBM", req.URL.Query().Get("symbol"))
		return okResponse(globalQuoteBody), nil
	})

	// Act: call GetGlobalQuote
	q, err := client.GetGlobalQuote(t.Context(), "IBM")
	require.NoError(t, err)

	// Assert: fields are decoded from their numbered keys
	require.Equal(t, "IBM", q.Symbol)
	require.Equal(t, "191.42", q.Price.String())
	require.Equal(t, "1.42", q.Change.String())
	require.Equal(t, "0.7474", q.ChangePercent.String())
	require.Equal(t, int64(3296837), q.Volume)
	require.Equal(t, time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC), q.LatestTradingDay)
}

func TestGetGlobalQuote_ErrPerformingRequest(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	_, err := client.GetGlobalQuote(t.Context(), "IBM")
	require.ErrorContains(t, err, "performing request")
}

func TestGetGlobalQuote_ErrUnexpectedStatusCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status int
		check  func(t *testing.T, err error)
	}{
		{http.StatusTooManyRequests, func(t *testing.T, err error) { require.ErrorIs(t, err, alphavantage.ErrRateLimited) }},
		{http.StatusForbidden, func(t *testing.T, err error) { require.ErrorIs(t, err, alphavantage.ErrUnauthorized) }},
		{http.StatusBadGateway, func(t *testing.T, err error) { require.ErrorContains(t, err, "unexpected status code: 502") }},
	}
	for _, tc := range cases {
		client := newClient(t, func(req *http.Request) (*http.Response, error) {
			return &http.Response{StatusCode: tc.status, Body: io.NopCloser(strings.NewReader(""))}, nil
		})
		_, err := client.GetGlobalQuote(t.Context(), "IBM")
		tc.check(t, err)
	}
}

func TestGetGlobalQuote_SoftErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		body string
		want error
	}{
		"note":        {`{"Note":"Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute"}`, alphavantage.ErrRateLimited},
		"information": {`{"Information":"daily limit reached"}`, alphavantage.ErrRateLimited},
		"empty quote": {`{"Global Quote":{}}`, alphavantage.ErrNotFound},
		"error":       {`{"Error Message":"Invalid API call"}`, alphavantage.ErrNotFound},
		"no payload":  {`{"Meta Data":{}}`, alphavantage.ErrNotFound},
		"note wins":   {`{"Note":"slow down","Global Quote":{"05. price":"1"}}`, alphavantage.ErrRateLimited},
	}
	for name, tc := range cases {
		client := newClient(t, func(req *http.Request) (*http.Response, error) {
			return okResponse(tc.body), nil
		})
		_, err := client.GetGlobalQuote(t.Context(), "IBM")
		require.ErrorIsf(t, err, tc.want, "case %s", name)
	}
}

func TestGetGlobalQuote_ErrDecodingResponse(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(req *http.Request) (*http.Response, error) {
		return okResponse(`{"Global Quote":{"05. price":"abc"}}`), nil
	})
	_, err := client.GetGlobalQuote(t.Context(), "IBM")
	require.ErrorContains(t, err, "decoding 05. price")

	client = newClient(t, func(req *http.Request) (*http.Response, error) {
		return okResponse(`<html>`), nil
	})
	_, err = client.GetGlobalQuote(t.Context(), "IBM")
	require.ErrorContains(t, err, "decoding GLOBAL_QUOTE response")
}
