// Package app assembles the quote, exchange-rate and valuation pipeline from
// configuration. It is shared by the HTTP server and the CLI.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"portfoliotracker/internal/aggregate"
	"portfoliotracker/internal/asset"
	"portfoliotracker/internal/config"
	"portfoliotracker/internal/fx"
	"portfoliotracker/internal/httpx"
	"portfoliotracker/internal/logging"
	"portfoliotracker/internal/portfolio"
	"portfoliotracker/internal/provider"
	"portfoliotracker/internal/provider/alphavantage"
	"portfoliotracker/internal/provider/alphavantageadapter"
	"portfoliotracker/internal/provider/cache"
	"portfoliotracker/internal/provider/coingecko"
	"portfoliotracker/internal/provider/fallback"
	"portfoliotracker/internal/provider/fxsource"
	"portfoliotracker/internal/provider/ratelimit"
	"portfoliotracker/internal/provider/yahoo"
	"portfoliotracker/internal/quotes"
	"portfoliotracker/internal/store"
	"portfoliotracker/internal/validate"
)

const userAgent = "portfolio-tracker/1.0"

// ErrNoStore is returned by ledger operations when no database is configured.
var ErrNoStore = errors.New("no holdings store configured")

type App struct {
	Config    config.Config
	Log       *logging.Logger
	Quotes    *quotes.Service
	FX        *fx.Service
	Validator *validate.Validator
	Monitor   *validate.Monitor
	Book      *aggregate.Book
	// Refresh bounds manual portfolio refreshes per user.
	Refresh *ratelimit.FixedWindow
	// Store is nil when storage.sqlite_path is empty.
	Store *store.SQLiteStore

	QuoteCache *cache.Cache[provider.Quote]
	RateCache  *cache.Cache[provider.ExchangeRate]

	sources []provider.SourceInfo
	db      *sql.DB
}

// Options overrides pieces of the pipeline, mainly for tests.
type Options struct {
	HTTPClient *httpx.Client
	// Providers replaces the configured quote adapters per asset type.
	Providers map[asset.Type][]provider.Provider
	// Rates replaces the configured rate adapters.
	Rates []provider.RateProvider
}

func New(cfg config.Config, log *logging.Logger) (*App, error) {
	return NewWithOptions(cfg, log, Options{})
}

func NewWithOptions(cfg config.Config, log *logging.Logger, opts Options) (*App, error) {
	log = logging.OrSilent(log)
	policy, err := quotes.ParsePolicy(cfg.Quotes.OnAllProvidersFail)
	if err != nil {
		return nil, err
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = httpx.New(cfg.RequestTimeout())
		hc.UserAgent = userAgent
	}

	a := &App{
		Config:     cfg,
		Log:        log,
		Validator:  validate.New(nil),
		Monitor:    validate.NewMonitor(nil),
		Book:       aggregate.NewBook(cfg.Cache.MaxItems),
		Refresh:    ratelimit.NewFixedWindow(),
		QuoteCache: cache.New[provider.Quote](cfg.Cache.QuoteTTL(), cache.WithMaxItems(cfg.Cache.MaxItems)),
		RateCache:  cache.New[provider.ExchangeRate](cfg.Cache.RateTTL(), cache.WithMaxItems(cfg.Cache.MaxItems)),
	}

	sim := fallback.NewSimulator(uint64(cfg.Quotes.SimulationSeed))
	a.Quotes = quotes.New(quotes.Config{
		Policy:      policy,
		Delay:       cfg.BatchDelay(),
		Concurrency: cfg.Quotes.Concurrency,
	}, sim, log)
	a.Quotes.SetValidator(a.Validator)

	budgets := ratelimit.NewFixedWindow()
	if opts.Providers != nil {
		for _, t := range asset.Types() {
			a.Quotes.Register(t, opts.Providers[t]...)
		}
	} else {
		a.registerQuoteProviders(hc, budgets)
	}
	a.sources = append(a.sources, fallback.Infos...)

	rates := opts.Rates
	if rates == nil {
		rates = a.rateProviders(hc, budgets)
	}
	a.FX = fx.New(fx.Config{FallbackTTL: cfg.Cache.FallbackRateTTL()}, a.RateCache, log, rates...)
	a.sources = append(a.sources, fx.FallbackInfo)

	if path := cfg.Storage.SQLitePath; path != "" {
		db, err := store.Open(path)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.Store = store.NewSQLiteStore(db)
	}

	log.Info().
		Interface("quote_providers", a.Quotes.Providers()).
		Strs("rate_providers", a.FX.Providers()).
		Str("policy", string(policy)).
		Bool("store", a.Store != nil).
		Msg("pipeline ready")
	return a, nil
}

// wrap decorates an adapter, outermost first: cache, call budget, pacing.
func (a *App) wrap(p provider.Provider, pc config.Provider, budgets *ratelimit.FixedWindow) provider.Provider {
	p = ratelimit.NewPaced(p, pc.MinInterval())
	p = &ratelimit.Limited{P: p, Limiter: budgets, Budget: ratelimit.Window{Limit: pc.Limit, Window: pc.Window()}}
	return &cache.Provider{P: p, Cache: a.QuoteCache, Timeout: a.Config.RequestTimeout()}
}

func (a *App) registerQuoteProviders(hc *httpx.Client, budgets *ratelimit.FixedWindow) {
	pcs := a.Config.Providers

	var stocks []provider.Provider
	if pcs.Yahoo.Enabled {
		ycfg := yahoo.Config{}
		if base := strings.TrimRight(pcs.Yahoo.BaseURL, "/"); base != "" {
			ycfg.QuoteURLs = []string{base + "/v7/finance/quote"}
			ycfg.ChartURL = base + "/v8/finance/chart"
		}
		y := a.wrap(yahoo.New(ycfg, hc), pcs.Yahoo, budgets)
		stocks = append(stocks, y)
		a.Quotes.Register(asset.ThaiStock, y)
		a.sources = append(a.sources, yahoo.Info)
	}
	if pcs.AlphaVantage.Enabled {
		opts := []alphavantage.Option{
			alphavantage.WithHTTPClient(hc.HTTP),
			alphavantage.WithUserAgent(userAgent),
		}
		if pcs.AlphaVantage.BaseURL != "" {
			opts = append(opts, alphavantage.WithBaseURL(pcs.AlphaVantage.BaseURL))
		}
		client, err := alphavantage.New(pcs.AlphaVantage.APIKey, opts...)
		switch {
		case errors.Is(err, alphavantage.ErrMissingAPIKey):
			a.Log.Info().Msg("ALPHA_VANTAGE_API_KEY not set; skipping alphavantage")
		case err != nil:
			a.Log.Warn().Err(err).Msg("alphavantage client error; skipping")
		default:
			stocks = append(stocks, a.wrap(alphavantageadapter.New(alphavantageadapter.Config{}, client), pcs.AlphaVantage, budgets))
			a.sources = append(a.sources, alphavantageadapter.Info)
		}
	}
	a.Quotes.Register(asset.Stock, stocks...)

	if pcs.CoinGecko.Enabled {
		cg := coingecko.New(coingecko.Config{BaseURL: pcs.CoinGecko.BaseURL, APIKey: pcs.CoinGecko.APIKey}, hc)
		a.Quotes.Register(asset.Crypto, a.wrap(cg, pcs.CoinGecko, budgets))
		a.sources = append(a.sources, coingecko.Info)
	}
}

func (a *App) rateProviders(hc *httpx.Client, budgets *ratelimit.FixedWindow) []provider.RateProvider {
	pcs := a.Config.Providers
	limited := func(p provider.RateProvider, pc config.Provider) provider.RateProvider {
		return &ratelimit.LimitedRates{P: p, Limiter: budgets, Budget: ratelimit.Window{Limit: pc.Limit, Window: pc.Window()}}
	}

	var out []provider.RateProvider
	if pcs.ExchangeRateAPI.Enabled {
		out = append(out, limited(fxsource.NewExchangeRateAPI(pcs.ExchangeRateAPI.BaseURL, hc), pcs.ExchangeRateAPI))
	}
	if pcs.BOT.Enabled {
		out = append(out, limited(fxsource.NewBOT(pcs.BOT.BaseURL, pcs.BOT.ClientID, hc), pcs.BOT))
	}
	if pcs.Fixer.Enabled {
		fixer, err := fxsource.NewFixer(pcs.Fixer.BaseURL, pcs.Fixer.APIKey, hc)
		if err != nil {
			a.Log.Info().Err(err).Msg("skipping fixer")
		} else {
			out = append(out, limited(fixer, pcs.Fixer))
		}
	}
	for _, p := range out {
		label := labelOf(p.Name())
		for _, info := range fxsource.Infos {
			if info.Label == label {
				a.sources = append(a.sources, info)
			}
		}
	}
	return out
}

func labelOf(name string) string {
	switch name {
	case "EXCHANGERATE_API":
		return fxsource.ExchangeRateAPILabel
	case "BOT":
		return fxsource.BOTLabel
	case "FIXER":
		return fxsource.FixerLabel
	}
	return name
}

// Sources lists the data sources in use, fallbacks included.
func (a *App) Sources() []provider.SourceInfo { return a.sources }

// StartSweepers prunes expired cache entries until ctx is done.
func (a *App) StartSweepers(ctx context.Context) {
	interval := a.Config.Cache.SweepInterval()
	if interval <= 0 {
		return
	}
	go a.QuoteCache.Run(ctx, interval)
	go a.RateCache.Run(ctx, interval)
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// FetchQuotes resolves symbols and records the results for latest-quote queries.
func (a *App) FetchQuotes(ctx context.Context, symbols []string) []provider.Quote {
	qs := a.Quotes.FetchMany(ctx, symbols)
	a.Book.Record(qs...)
	return qs
}

// Valuation is a portfolio view with the data it was computed from.
type Valuation struct {
	portfolio.View
	Accuracy    validate.Report         `json:"accuracy"`
	Rates       []provider.ExchangeRate `json:"rates"`
	GeneratedAt time.Time               `json:"generatedAt"`
}

// Value values holdings in display currency: quotes are fetched for every
// symbol, rates for every holding currency, and totals converted before summing.
func (a *App) Value(ctx context.Context, holdings []portfolio.Holding, display string) Valuation {
	display = fx.Normalize(display)
	if display == "" {
		display = a.Config.DisplayCurrency
	}
	qs := a.FetchQuotes(ctx, portfolio.Symbols(holdings))
	enriched := portfolio.Enrich(holdings, qs)
	table, rates := a.FX.Table(ctx, display, portfolio.Currencies(enriched))
	return Valuation{
		View:        portfolio.Aggregate(enriched, display, table),
		Accuracy:    a.Monitor.Report(qs),
		Rates:       rates,
		GeneratedAt: time.Now().UTC(),
	}
}

// Portfolio loads a user's holdings from the store and values them.
func (a *App) Portfolio(ctx context.Context, userID, display string) (Valuation, error) {
	if a.Store == nil {
		return Valuation{}, ErrNoStore
	}
	holdings, err := a.Store.Holdings(ctx, userID)
	if err != nil {
		return Valuation{}, fmt.Errorf("load holdings: %w", err)
	}
	return a.Value(ctx, holdings, display), nil
}

// InvalidateQuotes drops cached quotes of symbols from every source.
func (a *App) InvalidateQuotes(symbols []string) int {
	want := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		want[asset.Canonical(s)] = true
	}
	return a.QuoteCache.DeleteFunc(func(key string) bool {
		i := strings.LastIndexByte(key, ':')
		return i >= 0 && want[key[i+1:]]
	})
}

// LimitError reports a spent refresh budget.
type LimitError struct {
	RetryAfter time.Duration
	err        error
}

func (e *LimitError) Error() string { return e.err.Error() }
func (e *LimitError) Unwrap() error { return e.err }

// RefreshPortfolio revalues a user's portfolio bypassing cached quotes. Each
// user gets refresh.limit refreshes per refresh.window_sec.
func (a *App) RefreshPortfolio(ctx context.Context, userID, display string) (Valuation, error) {
	if a.Store == nil {
		return Valuation{}, ErrNoStore
	}
	key := "refresh:" + userID
	budget := ratelimit.Window{Limit: a.Config.Refresh.Limit, Window: a.Config.Refresh.Window()}
	if err := a.Refresh.Check(key, budget); err != nil {
		a.Log.Debug().Str("user", userID).Err(err).Msg("refresh rejected")
		return Valuation{}, &LimitError{RetryAfter: a.Refresh.RetryAfter(key), err: err}
	}
	holdings, err := a.Store.Holdings(ctx, userID)
	if err != nil {
		return Valuation{}, fmt.Errorf("load holdings: %w", err)
	}
	n := a.InvalidateQuotes(portfolio.Symbols(holdings))
	a.Log.Info().Str("user", userID).Int("invalidated", n).Msg("refreshing portfolio")
	return a.Value(ctx, holdings, display), nil
}
