// Package quotes resolves market quotes through per-asset-type provider chains.
package quotes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"portfoliotracker/internal/asset"
	"portfoliotracker/internal/logging"
	"portfoliotracker/internal/provider"
	"portfoliotracker/internal/provider/chain"
	"portfoliotracker/internal/provider/fallback"
	"portfoliotracker/internal/validate"
)

// Policy decides what happens to a stock symbol when every provider failed.
type Policy string

const (
	// PolicyOmit drops the symbol; batch results get shorter.
	PolicyOmit Policy = "omit"
	// PolicyFallback substitutes a labelled reference quote when one exists.
	PolicyFallback Policy = "fallback"
)

// ParsePolicy accepts "omit" and "fallback"; anything else is an error.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyOmit, PolicyFallback:
		return Policy(s), nil
	case "":
		return PolicyOmit, nil
	}
	return "", fmt.Errorf("unknown failure policy %q", s)
}

var ErrEmptySymbol = errors.New("empty symbol")

type Config struct {
	// Policy applies to STOCK and THAI_STOCK. Crypto always ends in the
	// fallback table and Thai gold is always simulated.
	Policy Policy
	// Delay separates sequential upstream fetches in FetchMany.
	Delay time.Duration
	// Concurrency > 1 lets FetchMany run that many symbols at once.
	Concurrency int
}

// Validator is the price check applied to every resolved quote.
type Validator interface {
	Validate(symbol string, price float64, t asset.Type) validate.Result
}

// Service is the multi-source quote fetcher.
type Service struct {
	cfg       Config
	chains    map[asset.Type][]provider.Provider
	sim       *fallback.Simulator
	validator Validator
	log       *logging.Logger
}

func New(cfg Config, sim *fallback.Simulator, log *logging.Logger) *Service {
	if cfg.Policy == "" {
		cfg.Policy = PolicyOmit
	}
	if sim == nil {
		sim = fallback.NewSimulator(0)
	}
	return &Service{
		cfg:    cfg,
		chains: make(map[asset.Type][]provider.Provider),
		sim:    sim,
		log:    logging.OrSilent(log),
	}
}

// Register appends providers to the chain of asset type t, in priority order.
func (s *Service) Register(t asset.Type, ps ...provider.Provider) {
	for _, p := range ps {
		if p != nil {
			s.chains[t] = append(s.chains[t], p)
		}
	}
}

// SetValidator enables advisory price checks.
func (s *Service) SetValidator(v Validator) { s.validator = v }

// Providers lists the provider names of each chain.
func (s *Service) Providers() map[asset.Type][]string {
	out := make(map[asset.Type][]string, len(s.chains))
	for t, ps := range s.chains {
		for _, p := range ps {
			out[t] = append(out[t], p.Name())
		}
	}
	return out
}

func (s *Service) fallbackFor(t asset.Type, symbol string) func() (provider.Quote, bool) {
	switch t {
	case asset.Crypto:
		return func() (provider.Quote, bool) { return s.sim.Crypto(symbol), true }
	case asset.ThaiGold:
		return func() (provider.Quote, bool) { return s.sim.ThaiGold(symbol), true }
	default:
		if s.cfg.Policy != PolicyFallback {
			return nil
		}
		return func() (provider.Quote, bool) { return s.sim.Stock(symbol) }
	}
}

// FetchQuote resolves symbol through its asset type's chain. Crypto and
// Thai gold always produce a quote; stocks fail with chain.ErrExhausted under
// PolicyOmit or when no reference price exists. A canceled ctx yields its
// error instead of a simulated quote.
func (s *Service) FetchQuote(ctx context.Context, symbol string) (provider.Quote, error) {
	sym := asset.Canonical(symbol)
	if sym == "" {
		return provider.Quote{}, ErrEmptySymbol
	}
	t := asset.Classify(sym)

	ps := s.chains[t]
	steps := make([]chain.Step[provider.Quote], 0, len(ps))
	for _, p := range ps {
		steps = append(steps, chain.Step[provider.Quote]{
			Name:  p.Name(),
			Fetch: func(ctx context.Context) (provider.Quote, error) { return p.Fetch(ctx, sym) },
		})
	}
	c := chain.Chain[provider.Quote]{
		Steps:    steps,
		Fallback: s.fallbackFor(t, sym),
		OnError: func(step string, err error) {
			ev := s.log.Warn()
			if errors.Is(err, provider.ErrRateLimited) || errors.Is(err, provider.ErrNotSupported) {
				ev = s.log.Debug()
			}
			ev.Str("provider", step).Str("symbol", sym).Err(err).Msg("quote provider failed")
		},
	}

	res, err := c.Run(ctx)
	if err != nil {
		s.log.Warn().Str("symbol", sym).Str("asset_type", string(t)).Err(err).Msg("no quote available")
		return provider.Quote{}, err
	}

	q := res.Value
	q.Symbol = sym
	if q.AssetType == "" {
		q.AssetType = t
	}
	if res.Step == chain.FallbackStep {
		s.log.Info().Str("symbol", sym).Str("source", q.Source).Msg("using simulated quote")
	}
	s.check(&q)
	return q, nil
}

func (s *Service) check(q *provider.Quote) {
	if s.validator == nil {
		return
	}
	r := s.validator.Validate(q.Symbol, q.Price, q.AssetType)
	if r.Valid && r.Warning == "" {
		return
	}
	q.Warning = r.Warning
	s.log.Warn().
		Str("symbol", q.Symbol).
		Str("source", q.Source).
		Float64("price", q.Price).
		Bool("valid", r.Valid).
		Str("warning", r.Warning).
		Float64("suggestion", r.Suggestion).
		Msg("price validation")
}

// FetchMany resolves symbols in input order, skipping duplicates and empty
// symbols. Symbols without a quote are left out, so callers must match
// results by symbol rather than by index.
func (s *Service) FetchMany(ctx context.Context, symbols []string) []provider.Quote {
	uniq := make([]string, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		sym = asset.Canonical(sym)
		if sym == "" {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		uniq = append(uniq, sym)
	}

	start := time.Now()
	var out []provider.Quote
	if s.cfg.Concurrency > 1 {
		out = s.fetchParallel(ctx, uniq)
	} else {
		out = s.fetchSequential(ctx, uniq)
	}
	s.log.Info().
		Int("requested", len(uniq)).
		Int("successful", len(out)).
		Dur("duration", time.Since(start)).
		Msg("batch quotes fetched")
	return out
}

func (s *Service) fetchSequential(ctx context.Context, symbols []string) []provider.Quote {
	out := make([]provider.Quote, 0, len(symbols))
	for i, sym := range symbols {
		if i > 0 && s.cfg.Delay > 0 {
			if err := sleep(ctx, s.cfg.Delay); err != nil {
				break
			}
		}
		q, err := s.FetchQuote(ctx, sym)
		if err != nil {
			continue
		}
		out = append(out, q)
	}
	return out
}

func (s *Service) fetchParallel(ctx context.Context, symbols []string) []provider.Quote {
	results := make([]*provider.Quote, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, sym := range symbols {
		g.Go(func() error {
			q, err := s.FetchQuote(gctx, sym)
			if err == nil {
				results[i] = &q
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]provider.Quote, 0, len(symbols))
	for _, q := range results {
		if q != nil {
			out = append(out, *q)
		}
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
