package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Limiter bounds the number of in-flight calls to one provider.
type Limiter struct {
	name     string
	max      int64
	sem      *semaphore.Weighted
	inFlight atomic.Int64
}

// NewLimiter creates a limiter allowing at most maxConcurrent holders.
// Values below 1 are treated as 1.
func NewLimiter(name string, maxConcurrent int) *Limiter {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Limiter{
		name: name,
		max:  int64(maxConcurrent),
		sem:  semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// Acquire blocks until a slot is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire %s slot: %w", l.name, err)
	}
	l.inFlight.Add(1)
	return nil
}

// Release frees a slot obtained with Acquire.
func (l *Limiter) Release() {
	l.inFlight.Add(-1)
	l.sem.Release(1)
}

// Max returns the configured bound.
func (l *Limiter) Max() int { return int(l.max) }

// InFlight returns the number of slots currently held.
func (l *Limiter) InFlight() int { return int(l.inFlight.Load()) }

// Name returns the provider family this limiter guards.
func (l *Limiter) Name() string { return l.name }

// Pool hands out one shared Limiter per provider family so every model routed
// to the same provider competes for the same slots.
type Pool struct {
	mu        sync.Mutex
	limiters  map[string]*Limiter
	def       int
	overrides map[string]int
}

// NewPool creates a pool using def as the bound for providers without an override.
func NewPool(def int, overrides map[string]int) *Pool {
	return &Pool{
		limiters:  make(map[string]*Limiter),
		def:       def,
		overrides: overrides,
	}
}

// LimitFor returns the bound that applies to provider.
func (p *Pool) LimitFor(provider string) int {
	if n, ok := p.overrides[provider]; ok && n > 0 {
		return n
	}
	return p.def
}

// ForProvider returns the shared limiter for provider, creating it on first use.
func (p *Pool) ForProvider(provider string) *Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	if l, ok := p.limiters[provider]; ok {
		return l
	}
	l := NewLimiter(provider, p.LimitFor(provider))
	p.limiters[provider] = l
	return l
}
