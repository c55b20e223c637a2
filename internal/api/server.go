// Package api serves quotes, exchange rates and portfolio valuations over HTTP.
package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"portfoliotracker/internal/app"
	"portfoliotracker/internal/asset"
	"portfoliotracker/internal/fx"
	"portfoliotracker/internal/logging"
	"portfoliotracker/internal/portfolio"
	"portfoliotracker/internal/provider"
	"portfoliotracker/internal/store"
)

const (
	maxSymbols = 100
	maxPairs   = 50

	refreshLimitMessage = "Rate limit exceeded. Please wait before refreshing again."
)

type Server struct {
	app *app.App
	log *logging.Logger
	mux *http.ServeMux
}

func New(a *app.App) *Server {
	s := &Server{app: a, log: logging.OrSilent(a.Log), mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	s.mux.HandleFunc("GET /quotes", s.handleGetQuotes)
	s.mux.HandleFunc("POST /quotes/batch", s.handleQuotesBatch)
	s.mux.HandleFunc("GET /quotes/search", s.handleSearch)
	s.mux.HandleFunc("GET /quotes/latest", s.handleLatest)
	s.mux.HandleFunc("GET /exchange-rates", s.handleRate)
	s.mux.HandleFunc("POST /exchange-rates/batch", s.handleRatesBatch)
	s.mux.HandleFunc("GET /portfolio", s.handlePortfolio)
	s.mux.HandleFunc("POST /portfolio/refresh", s.handleRefresh)
	s.mux.HandleFunc("GET /transactions", s.handleListTransactions)
	s.mux.HandleFunc("POST /transactions", s.handleAddTransaction)
	s.mux.HandleFunc("DELETE /transactions/{id}", s.handleDeleteTransaction)
	s.mux.HandleFunc("GET /sources", s.handleSources)
}

// Handler wraps the routes with the middleware stack.
func (s *Server) Handler() http.Handler {
	return withRequestID(withAccessLog(s.log, withJSONHeaders(withGzip(recoverPanic(s.log, limitBody(s.mux))))))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func since(start time.Time) int64 { return time.Since(start).Milliseconds() }

type batchMetadata struct {
	Requested  int   `json:"requested"`
	Successful int   `json:"successful"`
	DurationMs int64 `json:"duration_ms"`
}

type quotesResponse struct {
	Quotes   []provider.Quote `json:"quotes"`
	Metadata batchMetadata    `json:"metadata"`
}

func (s *Server) writeQuotes(w http.ResponseWriter, r *http.Request, symbols []string) {
	if len(symbols) > maxSymbols {
		writeError(w, http.StatusBadRequest, "too many symbols (max "+strconv.Itoa(maxSymbols)+")")
		return
	}
	start := time.Now()
	qs := s.app.FetchQuotes(r.Context(), symbols)
	if qs == nil {
		qs = []provider.Quote{}
	}
	writeJSON(w, http.StatusOK, quotesResponse{
		Quotes:   qs,
		Metadata: batchMetadata{Requested: len(symbols), Successful: len(qs), DurationMs: since(start)},
	})
}

func (s *Server) handleGetQuotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("symbols")
	if strings.TrimSpace(q) == "" {
		writeError(w, http.StatusBadRequest, "missing symbols query param")
		return
	}
	s.writeQuotes(w, r, splitCSV(q))
}

func (s *Server) handleQuotesBatch(w http.ResponseWriter, r *http.Request) {
	var b struct {
		Symbols []string `json:"symbols"`
	}
	if err := decodeBody(r, &b); err != nil || b.Symbols == nil {
		writeError(w, http.StatusBadRequest, "Invalid symbols array")
		return
	}
	s.writeQuotes(w, r, b.Symbols)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "Query parameter is required")
		return
	}
	results := asset.Search(q)
	if results == nil {
		results = []asset.Info{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	symbols := splitCSV(r.URL.Query().Get("symbols"))
	bySource := r.URL.Query().Get("by") == "source"
	writeJSON(w, http.StatusOK, map[string]any{"latest": s.app.Book.Latest(symbols, bySource)})
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	from := fx.Normalize(r.URL.Query().Get("from"))
	to := fx.Normalize(r.URL.Query().Get("to"))
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, "Missing 'from' or 'to' currency parameters")
		return
	}
	if !fx.ValidCurrency(from) || !fx.ValidCurrency(to) {
		writeError(w, http.StatusBadRequest, "invalid currency code")
		return
	}
	start := time.Now()
	rate := s.app.FX.GetRate(r.Context(), from, to)
	writeJSON(w, http.StatusOK, map[string]any{
		"exchangeRate": rate,
		"metadata": map[string]any{
			"duration_ms": since(start),
			"cached":      rate.Cached,
			"source":      rate.Source,
		},
	})
}

func (s *Server) handleRatesBatch(w http.ResponseWriter, r *http.Request) {
	var b struct {
		Pairs []fx.Pair `json:"pairs"`
	}
	if err := decodeBody(r, &b); err != nil || b.Pairs == nil {
		writeError(w, http.StatusBadRequest, "Invalid pairs array")
		return
	}
	if len(b.Pairs) > maxPairs {
		writeError(w, http.StatusBadRequest, "too many pairs (max "+strconv.Itoa(maxPairs)+")")
		return
	}
	for i, p := range b.Pairs {
		p.From, p.To = fx.Normalize(p.From), fx.Normalize(p.To)
		if !fx.ValidCurrency(p.From) || !fx.ValidCurrency(p.To) {
			writeError(w, http.StatusBadRequest, "invalid currency pair at index "+strconv.Itoa(i))
			return
		}
		b.Pairs[i] = p
	}
	start := time.Now()
	rates := s.app.FX.GetManyRates(r.Context(), b.Pairs)
	writeJSON(w, http.StatusOK, map[string]any{
		"exchangeRates": rates,
		"metadata":      batchMetadata{Requested: len(b.Pairs), Successful: len(rates), DurationMs: since(start)},
	})
}

// displayCurrency returns the requested currency or the configured default.
func (s *Server) displayCurrency(raw string) (string, bool) {
	c := fx.Normalize(raw)
	if c == "" {
		return s.app.Config.DisplayCurrency, true
	}
	return c, fx.ValidCurrency(c)
}

func (s *Server) writeValuation(w http.ResponseWriter, r *http.Request, v app.Valuation) {
	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(portfolio.Markdown(v.View)))
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) valuationError(w http.ResponseWriter, err error) {
	var le *app.LimitError
	switch {
	case errors.Is(err, app.ErrNoStore):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &le):
		secs := int(math.Ceil(le.RetryAfter.Seconds()))
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		writeError(w, http.StatusTooManyRequests, refreshLimitMessage)
	default:
		s.log.Error().Err(err).Msg("valuation failed")
		writeError(w, http.StatusInternalServerError, "failed to value portfolio")
	}
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		writeError(w, http.StatusBadRequest, "Missing 'user' parameter")
		return
	}
	cur, ok := s.displayCurrency(r.URL.Query().Get("currency"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid currency code")
		return
	}
	v, err := s.app.Portfolio(r.Context(), user, cur)
	if err != nil {
		s.valuationError(w, err)
		return
	}
	s.writeValuation(w, r, v)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var b struct {
		User     string `json:"user"`
		Currency string `json:"currency"`
	}
	if err := decodeBody(r, &b); err != nil || b.User == "" {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	cur, ok := s.displayCurrency(b.Currency)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid currency code")
		return
	}
	v, err := s.app.RefreshPortfolio(r.Context(), b.User, cur)
	if err != nil {
		s.valuationError(w, err)
		return
	}
	s.writeValuation(w, r, v)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	if s.app.Store == nil {
		writeError(w, http.StatusServiceUnavailable, app.ErrNoStore.Error())
		return
	}
	txs, err := s.app.Store.Transactions(r.Context(), r.URL.Query().Get("user"))
	if err != nil {
		s.log.Error().Err(err).Msg("list transactions")
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

type transactionRequest struct {
	UserID        string  `json:"userId"`
	Symbol        string  `json:"symbol"`
	CompanyName   string  `json:"companyName"`
	Type          string  `json:"transactionType"`
	Shares        float64 `json:"shares"`
	PricePerShare float64 `json:"pricePerShare"`
	Date          string  `json:"transactionDate"`
	Notes         string  `json:"notes"`
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	if s.app.Store == nil {
		writeError(w, http.StatusServiceUnavailable, app.ErrNoStore.Error())
		return
	}
	var b transactionRequest
	if err := decodeBody(r, &b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	date, err := parseDate(b.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transactionDate")
		return
	}
	tx, err := s.app.Store.AddTransaction(r.Context(), portfolio.Transaction{
		UserID:        b.UserID,
		Symbol:        b.Symbol,
		CompanyName:   b.CompanyName,
		Type:          portfolio.TxType(b.Type),
		Shares:        b.Shares,
		PricePerShare: b.PricePerShare,
		Date:          date,
		Notes:         b.Notes,
	})
	switch {
	case errors.Is(err, store.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		s.log.Error().Err(err).Msg("add transaction")
		writeError(w, http.StatusInternalServerError, "failed to add transaction")
	default:
		writeJSON(w, http.StatusCreated, map[string]any{"transaction": tx})
	}
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if s.app.Store == nil {
		writeError(w, http.StatusServiceUnavailable, app.ErrNoStore.Error())
		return
	}
	err := s.app.Store.DeleteTransaction(r.Context(), r.URL.Query().Get("user"), r.PathValue("id"))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		writeError(w, http.StatusNotFound, "transaction not found")
	case err != nil:
		s.log.Error().Err(err).Msg("delete transaction")
		writeError(w, http.StatusInternalServerError, "failed to delete transaction")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"sources":       s.app.Sources(),
		"quoteChains":   s.app.Quotes.Providers(),
		"rateProviders": s.app.FX.Providers(),
	})
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
