/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package keylimit

import (
	"context"
	"fmt"

	"github.com/vasayxtx/go-glob"

	"github.com/acronis/go-keysem/keysem"
	"github.com/acronis/go-keysem/log"
)

// LimiterOpts represents options for Limiter.
type LimiterOpts struct {
	// Logger is passed to the underlying keysem.Registry.
	Logger log.FieldLogger

	// MetricsCollector is passed to the underlying keysem.Registry.
	MetricsCollector keysem.MetricsCollector
}

// Limiter limits the number of concurrent holders per string key.
// The limit of a key is resolved from the Config rules when the key's semaphore is created.
type Limiter struct {
	registry     *keysem.Registry[string]
	defaultLimit uint
	rules        []compiledRule
}

type compiledRule struct {
	matchers []func(string) bool
	limit    uint
}

// NewLimiter creates a new Limiter.
func NewLimiter(cfg *Config) (*Limiter, error) {
	return NewLimiterWithOpts(cfg, LimiterOpts{})
}

// NewLimiterWithOpts creates a new Limiter with the provided options.
func NewLimiterWithOpts(cfg *Config, opts LimiterOpts) (*Limiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid key limit config: %w", err)
	}
	rules := make([]compiledRule, 0, len(cfg.Rules))
	for _, rule := range cfg.Rules {
		matchers := make([]func(string) bool, 0, len(rule.Keys))
		for _, pattern := range rule.Keys {
			matchers = append(matchers, glob.Compile(pattern))
		}
		rules = append(rules, compiledRule{matchers: matchers, limit: rule.Limit})
	}
	return &Limiter{
		registry:     keysem.NewWithOpts[string](keysem.Opts{Logger: opts.Logger, MetricsCollector: opts.MetricsCollector}),
		defaultLimit: cfg.DefaultLimit,
		rules:        rules,
	}, nil
}

// MustNewLimiter is a version of NewLimiter that panics on error.
func MustNewLimiter(cfg *Config) *Limiter {
	l, err := NewLimiter(cfg)
	if err != nil {
		panic(err)
	}
	return l
}

// LimitFor returns the limit for the key: the limit of the first matching rule, or the default one.
func (l *Limiter) LimitFor(key string) uint {
	for i := range l.rules {
		for _, match := range l.rules[i].matchers {
			if match(key) {
				return l.rules[i].limit
			}
		}
	}
	return l.defaultLimit
}

// Semaphore returns the semaphore for the key, creating it with the key's limit if needed.
func (l *Limiter) Semaphore(key string) *keysem.Semaphore {
	return l.registry.GetOrCreate(key, l.LimitFor(key))
}

// Acquire blocks until a permit for the key is available or ctx is done.
func (l *Limiter) Acquire(ctx context.Context, key string) (*keysem.Permit, error) {
	return l.Semaphore(key).Acquire(ctx)
}

// TryAcquire acquires a permit for the key without blocking.
func (l *Limiter) TryAcquire(key string) (*keysem.Permit, bool) {
	return l.Semaphore(key).TryAcquire()
}

// Do calls fn while holding a permit for the key.
func (l *Limiter) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return l.Semaphore(key).Do(ctx, fn)
}

// Forget removes the key's semaphore. Permits that are already held stay valid.
// It returns false if the key is unknown.
func (l *Limiter) Forget(key string) bool {
	_, removed := l.registry.RemoveIfExists(key)
	return removed
}

// Registry returns the underlying registry.
func (l *Limiter) Registry() *keysem.Registry[string] {
	return l.registry
}
