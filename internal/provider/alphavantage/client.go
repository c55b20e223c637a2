// Package alphavantage is a client for the Alpha Vantage query API.
//
// Every call is GET /query?function=<FUNCTION>&apikey=<key>. Throttling and
// bad requests usually arrive as 200 responses whose body carries "Note",
// "Information" or "Error Message" instead of the function's payload.
package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const defaultBaseURL = "https://www.alphavantage.co"

// Functions served by the query endpoint.
const (
	FunctionGlobalQuote = "GLOBAL_QUOTE"
)

var (
	// ErrMissingAPIKey is returned when no usable key is configured.
	ErrMissingAPIKey = errors.New("alphavantage: missing api key")
	// ErrRateLimited is returned for HTTP 429 and for "Note"/"Information" bodies.
	ErrRateLimited = errors.New("alphavantage: rate limited")
	// ErrNotFound is returned for "Error Message" bodies and empty payloads.
	ErrNotFound = errors.New("alphavantage: symbol not found")
	// ErrUnauthorized is returned for HTTP 401 and 403.
	ErrUnauthorized = errors.New("alphavantage: unauthorized")
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=alphavantage_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	baseURL   string
	apiKey    string
	http      HTTPClient
	userAgent string
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc HTTPClient) Option {
	return func(c *Client) { c.http = hc }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New builds a client. The public "demo" key only serves a few sample
// symbols and is rejected like an empty key.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" || apiKey == "demo" {
		return nil, ErrMissingAPIKey
	}
	c := &Client{baseURL: defaultBaseURL, apiKey: apiKey, http: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// envelope holds the top-level keys of a query response. Payload keys
// differ per function ("Global Quote", "bestMatches", ...).
type envelope map[string]json.RawMessage

func (e envelope) text(key string) string {
	var s string
	_ = json.Unmarshal(e[key], &s)
	return s
}

// err maps the in-band error keys to sentinels.
func (e envelope) err() error {
	if s := e.text("Note") + e.text("Information"); s != "" {
		return fmt.Errorf("%w: %s", ErrRateLimited, s)
	}
	if s := e.text("Error Message"); s != "" {
		return fmt.Errorf("%w: %s", ErrNotFound, s)
	}
	return nil
}

// payload decodes the function's result stored under key.
func (e envelope) payload(key string, out any) (bool, error) {
	raw, ok := e[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, out)
}

// query calls one function and returns the response envelope with in-band
// errors already mapped.
func (c *Client) query(ctx context.Context, function string, params url.Values) (envelope, error) {
	q := url.Values{}
	for k, vs := range params {
		q[k] = append([]string(nil), vs...)
	}
	q.Set("function", function)
	q.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/query?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	default:
		return nil, fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", function, err)
	}
	if err := env.err(); err != nil {
		return nil, err
	}
	return env, nil
}
