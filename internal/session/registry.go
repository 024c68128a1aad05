// Package session keeps one cart provider and one checkout flow per browsing session.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sareesanskriti/storefront/internal/cart"
	"github.com/sareesanskriti/storefront/internal/checkout"
	"github.com/sareesanskriti/storefront/internal/kv"
)

// Scope is everything that belongs to one browsing session.
type Scope struct {
	ID       string
	Cart     *cart.Provider
	Checkout *checkout.Flow

	lastSeen time.Time
	mount    sync.Once
}

// Registry creates scopes lazily and mounts their carts from the slot backend.
type Registry struct {
	slot     kv.Slot
	checkout *checkout.Service
	logger   *slog.Logger
	diag     cart.DiagnosticFunc
	now      func() time.Time

	mu     sync.Mutex
	scopes map[string]*Scope
}

func NewRegistry(slot kv.Slot, checkoutSvc *checkout.Service, logger *slog.Logger, diag cart.DiagnosticFunc) *Registry {
	return &Registry{
		slot:     slot,
		checkout: checkoutSvc,
		logger:   logger,
		diag:     diag,
		now:      time.Now,
		scopes:   make(map[string]*Scope),
	}
}

// Get returns the scope of id, creating and mounting it on first use.
// The registry lock only guards the map; the cart is loaded from the slot outside
// it, once per scope, so a slow backend stalls only the session being mounted.
func (r *Registry) Get(ctx context.Context, id string) *Scope {
	s := r.scope(id)
	s.mount.Do(func() {
		s.Cart.Mount(context.WithoutCancel(ctx))
	})
	return s
}

func (r *Registry) scope(id string) *Scope {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.scopes[id]; ok {
		s.lastSeen = r.now()
		return s
	}

	opts := []cart.StoreOption{cart.WithLogger(r.logger)}
	if r.diag != nil {
		opts = append(opts, cart.WithDiagnostics(r.diag))
	}
	provider := cart.NewProvider(cart.NewEngine(cart.NewStore(r.slot, cart.SessionKey(id), opts...)))
	s := &Scope{
		ID:       id,
		Cart:     provider,
		Checkout: r.checkout.NewFlow(provider),
		lastSeen: r.now(),
	}
	r.scopes[id] = s
	return s
}

// Len is the number of live scopes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.scopes)
}

// Sweep forgets scopes idle for longer than idle. Their carts stay persisted and
// are mounted again on the next request of the session.
func (r *Registry) Sweep(idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-idle)
	n := 0
	for id, s := range r.scopes {
		if s.lastSeen.Before(cutoff) && s.Checkout.State() != checkout.StateSubmitting {
			delete(r.scopes, id)
			n++
		}
	}
	return n
}

// Run sweeps idle scopes every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval, idle time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := r.Sweep(idle); n > 0 {
				r.logger.DebugContext(ctx, "swept idle sessions", "count", n)
			}
		}
	}
}
