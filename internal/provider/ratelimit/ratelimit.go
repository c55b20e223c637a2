package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"portfoliotracker/internal/provider"
)

// Window is a call budget: at most Limit calls per Window.
type Window struct {
	Limit  int
	Window time.Duration
}

type tracker struct {
	count   int
	resetAt time.Time
}

// FixedWindow counts calls per source. When a window has passed, the counter
// restarts at zero and the next window ends one full period from now.
type FixedWindow struct {
	now func() time.Time

	mu       sync.Mutex
	trackers map[string]*tracker
}

// Option configures a FixedWindow.
type Option func(*FixedWindow)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(f *FixedWindow) { f.now = now }
}

func NewFixedWindow(opts ...Option) *FixedWindow {
	f := &FixedWindow{now: time.Now, trackers: make(map[string]*tracker)}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Allow records one call for source and reports whether it fits the budget.
// A non-positive limit never blocks.
func (f *FixedWindow) Allow(source string, limit int, window time.Duration) bool {
	if limit <= 0 {
		return true
	}
	now := f.now()
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.trackers[source]
	if !ok || now.After(t.resetAt) {
		t = &tracker{resetAt: now.Add(window)}
		f.trackers[source] = t
	}
	if t.count >= limit {
		return false
	}
	t.count++
	return true
}

// Check is Allow expressed as an error wrapping provider.ErrRateLimited.
func (f *FixedWindow) Check(source string, w Window) error {
	if f.Allow(source, w.Limit, w.Window) {
		return nil
	}
	return fmt.Errorf("%s: %w (%d per %s)", source, provider.ErrRateLimited, w.Limit, w.Window)
}

// RetryAfter is the time left until source's window resets.
func (f *FixedWindow) RetryAfter(source string) time.Duration {
	now := f.now()
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.trackers[source]
	if !ok || now.After(t.resetAt) {
		return 0
	}
	return t.resetAt.Sub(now)
}

// Reset forgets all counters.
func (f *FixedWindow) Reset() {
	f.mu.Lock()
	f.trackers = make(map[string]*tracker)
	f.mu.Unlock()
}

// Limited rejects calls once the provider's budget is spent.
type Limited struct {
	P       provider.Provider
	Limiter *FixedWindow
	Budget  Window
}

func (l *Limited) Name() string { return l.P.Name() }

func (l *Limited) Fetch(ctx context.Context, symbol string) (provider.Quote, error) {
	if err := l.Limiter.Check(l.P.Name(), l.Budget); err != nil {
		return provider.Quote{}, err
	}
	return l.P.Fetch(ctx, symbol)
}

// LimitedRates is Limited for exchange-rate providers.
type LimitedRates struct {
	P       provider.RateProvider
	Limiter *FixedWindow
	Budget  Window
}

func (l *LimitedRates) Name() string { return l.P.Name() }

func (l *LimitedRates) Rate(ctx context.Context, from, to string) (provider.ExchangeRate, error) {
	if err := l.Limiter.Check(l.P.Name(), l.Budget); err != nil {
		return provider.ExchangeRate{}, err
	}
	return l.P.Rate(ctx, from, to)
}

// Paced wraps a provider and enforces a minimum time between calls.
// Waiting callers return early when their context is canceled.
type Paced struct {
	P       provider.Provider
	limiter *rate.Limiter
}

func NewPaced(p provider.Provider, interval time.Duration) provider.Provider {
	if interval <= 0 {
		return p
	}
	return &Paced{P: p, limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

func (m *Paced) Name() string { return m.P.Name() }

func (m *Paced) Fetch(ctx context.Context, symbol string) (provider.Quote, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return provider.Quote{}, err
	}
	return m.P.Fetch(ctx, symbol)
}
