package crm

import (
	"strings"
	"sync"
	"time"

	"finitefield.org/travel-admin/internal/admin/collection"
)

const defaultIdleTimeout = 30 * time.Minute

// Pool keeps one Registry per signed-in principal so cached records never cross staff sessions.
type Pool struct {
	client  *collection.Client
	opts    []RegistryOption
	idle    time.Duration
	now     func() time.Time
	defs    []Definition
	mu      sync.Mutex
	entries map[string]*poolEntry
}

type poolEntry struct {
	registry *Registry
	lastUsed time.Time
}

// PoolOption customises NewPool.
type PoolOption func(*Pool)

// WithRegistryOptions passes options to every registry the pool builds.
func WithRegistryOptions(opts ...RegistryOption) PoolOption {
	return func(p *Pool) {
		p.opts = append(p.opts, opts...)
	}
}

// WithIdleTimeout evicts a principal's registry after d without use.
func WithIdleTimeout(d time.Duration) PoolOption {
	return func(p *Pool) {
		if d > 0 {
			p.idle = d
		}
	}
}

// WithPoolClock overrides the clock used for idle eviction.
func WithPoolClock(now func() time.Time) PoolOption {
	return func(p *Pool) {
		if now != nil {
			p.now = now
		}
	}
}

// NewPool validates the registry options once and returns an empty pool.
func NewPool(client *collection.Client, opts ...PoolOption) (*Pool, error) {
	p := &Pool{
		client:  client,
		idle:    defaultIdleTimeout,
		now:     time.Now,
		entries: make(map[string]*poolEntry),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	template, err := NewRegistry(client, p.opts...)
	if err != nil {
		return nil, err
	}
	for _, m := range template.Modules() {
		p.defs = append(p.defs, m.Definition())
	}
	return p, nil
}

// Definitions returns the module definitions in navigation order. They are the same for every principal.
func (p *Pool) Definitions() []Definition {
	return append([]Definition(nil), p.defs...)
}

// PrincipalKey identifies a staff member in the pool by UID, falling back to the email address.
func PrincipalKey(uid, email string) string {
	if uid = strings.TrimSpace(uid); uid != "" {
		return "uid:" + uid
	}
	if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
		return "email:" + email
	}
	return ""
}

// For returns the registry of principal, building it on first use.
func (p *Pool) For(principal string) (*Registry, error) {
	key := strings.TrimSpace(principal)
	now := p.now()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.sweep(now)
	if e, ok := p.entries[key]; ok {
		e.lastUsed = now
		return e.registry, nil
	}
	reg, err := NewRegistry(p.client, p.opts...)
	if err != nil {
		return nil, err
	}
	p.entries[key] = &poolEntry{registry: reg, lastUsed: now}
	return reg, nil
}

// Forget drops the registry of principal, for example on sign-out.
func (p *Pool) Forget(principal string) {
	p.mu.Lock()
	delete(p.entries, strings.TrimSpace(principal))
	p.mu.Unlock()
}

// Len reports how many principals hold a registry.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

func (p *Pool) sweep(now time.Time) {
	for key, e := range p.entries {
		if now.Sub(e.lastUsed) > p.idle {
			delete(p.entries, key)
		}
	}
}
