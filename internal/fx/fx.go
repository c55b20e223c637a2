// Package fx resolves currency exchange rates and converts amounts.
package fx

import (
	"context"
	"errors"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"portfoliotracker/internal/logging"
	"portfoliotracker/internal/provider"
	"portfoliotracker/internal/provider/cache"
	"portfoliotracker/internal/provider/chain"
)

const SameCurrencySource = "Same Currency"

// Pair is a currency pair request.
type Pair struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// CommonPairs are warmed by Preload.
var CommonPairs = []Pair{
	{"USD", "THB"},
	{"THB", "USD"},
	{"EUR", "USD"},
	{"GBP", "USD"},
	{"JPY", "USD"},
}

type Config struct {
	// FallbackTTL bounds how long a static fallback rate is served from cache.
	FallbackTTL time.Duration
}

// Service resolves rates through cache, provider chain, then static fallback.
type Service struct {
	cfg       Config
	providers []provider.RateProvider
	cache     *cache.Cache[provider.ExchangeRate]
	log       *logging.Logger
	now       func() time.Time
}

func New(cfg Config, c *cache.Cache[provider.ExchangeRate], log *logging.Logger, providers ...provider.RateProvider) *Service {
	if c == nil {
		c = cache.New[provider.ExchangeRate](30 * time.Minute)
	}
	if cfg.FallbackTTL <= 0 {
		cfg.FallbackTTL = 5 * time.Minute
	}
	return &Service{cfg: cfg, providers: providers, cache: c, log: logging.OrSilent(log), now: time.Now}
}

// Providers lists provider names in chain order.
func (s *Service) Providers() []string {
	out := make([]string, 0, len(s.providers))
	for _, p := range s.providers {
		out = append(out, p.Name())
	}
	return out
}

// GetRate never fails: when no provider answers it returns the dated
// fallback rate, cached for FallbackTTL. If ctx ends first the fallback is
// returned without being cached.
func (s *Service) GetRate(ctx context.Context, from, to string) provider.ExchangeRate {
	from, to = Normalize(from), Normalize(to)
	if from == to {
		return provider.ExchangeRate{From: from, To: to, Rate: 1, Source: SameCurrencySource, Timestamp: s.now().UTC()}
	}
	if r, ok := s.cache.Get(key(from, to)); ok {
		r.Cached = true
		return r
	}

	steps := make([]chain.Step[provider.ExchangeRate], 0, len(s.providers))
	for _, p := range s.providers {
		steps = append(steps, chain.Step[provider.ExchangeRate]{
			Name:  p.Name(),
			Fetch: func(ctx context.Context) (provider.ExchangeRate, error) { return p.Rate(ctx, from, to) },
		})
	}
	c := chain.Chain[provider.ExchangeRate]{
		Steps:    steps,
		Fallback: func() (provider.ExchangeRate, bool) { return Fallback(from, to, s.now()), true },
		OnError: func(step string, err error) {
			ev := s.log.Warn()
			if errors.Is(err, provider.ErrNotSupported) || errors.Is(err, provider.ErrRateLimited) {
				ev = s.log.Debug()
			}
			ev.Str("provider", step).Str("pair", from+"/"+to).Err(err).Msg("rate provider failed")
		},
	}
	res, err := c.Run(ctx)
	if err != nil {
		// caller gone: answer, but leave the shared cache untouched
		s.log.Debug().Str("pair", from+"/"+to).Err(err).Msg("rate lookup abandoned")
		return Fallback(from, to, s.now())
	}
	r := res.Value

	ttl := s.cache.TTL()
	if res.Step == chain.FallbackStep {
		ttl = s.cfg.FallbackTTL
		s.log.Warn().Str("pair", from+"/"+to).Float64("rate", r.Rate).Msg("all rate providers failed, using fallback")
	}
	s.store(r, ttl)
	return r
}

// store caches r and its reciprocal together.
func (s *Service) store(r provider.ExchangeRate, ttl time.Duration) {
	if r.Rate <= 0 || math.IsInf(r.Rate, 0) || math.IsNaN(r.Rate) {
		return
	}
	s.cache.SetWithTTL(key(r.From, r.To), r, ttl)
	s.cache.SetWithTTL(key(r.To, r.From), r.Inverse(), ttl)
}

// GetManyRates resolves pairs concurrently; results keep the input order.
func (s *Service) GetManyRates(ctx context.Context, pairs []Pair) []provider.ExchangeRate {
	out := make([]provider.ExchangeRate, len(pairs))
	var g errgroup.Group
	for i, p := range pairs {
		g.Go(func() error {
			out[i] = s.GetRate(ctx, p.From, p.To)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Preload warms the cache with CommonPairs.
func (s *Service) Preload(ctx context.Context) {
	rates := s.GetManyRates(ctx, CommonPairs)
	s.log.Info().Int("pairs", len(rates)).Msg("preloaded exchange rates")
}

// Table resolves every currency against display and returns the snapshot
// used for conversion.
func (s *Service) Table(ctx context.Context, display string, currencies []string) (Table, []provider.ExchangeRate) {
	display = Normalize(display)
	seen := map[string]bool{display: true}
	var pairs []Pair
	for _, c := range currencies {
		c = Normalize(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		pairs = append(pairs, Pair{From: c, To: display})
	}
	rates := s.GetManyRates(ctx, pairs)
	return NewTable(rates...), rates
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
