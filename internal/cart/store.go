package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sareesanskriti/storefront/internal/kv"
)

// DefaultKey is the slot holding the cart when there is a single shopper.
const DefaultKey = "saree_cart"

// SessionKey is the slot holding the cart of one browsing session.
func SessionKey(sessionID string) string {
	return DefaultKey + ":" + sessionID
}

// DiagnosticFunc observes persistence failures that the store absorbs.
// op is one of "load", "decode", "sanitize", "save", "clear".
type DiagnosticFunc func(op string, err error)

// Persister is what the Engine needs from a store.
type Persister interface {
	Load(ctx context.Context) Cart
	Save(ctx context.Context, c Cart)
	Clear(ctx context.Context)
}

// Store reads and writes the serialized cart in one kv slot. It never returns errors:
// unreadable state loads as an empty cart, and a failed write keeps the unsaved cart
// in memory so that Load keeps returning it until a write succeeds.
type Store struct {
	slot   kv.Slot
	key    string
	logger *slog.Logger
	diag   DiagnosticFunc

	mu       sync.Mutex
	fallback Cart
	degraded bool
}

type StoreOption func(*Store)

// WithDiagnostics registers a hook called on every absorbed failure.
func WithDiagnostics(fn DiagnosticFunc) StoreOption {
	return func(s *Store) {
		s.diag = fn
	}
}

func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

func NewStore(slot kv.Slot, key string, opts ...StoreOption) *Store {
	s := &Store{
		slot:   slot,
		key:    key,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "cart_store", "key", key)
	return s
}

func (s *Store) Key() string {
	return s.key
}

// Load returns the last persisted cart.
func (s *Store) Load(ctx context.Context) Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.degraded {
		return s.fallback.Clone()
	}

	raw, err := s.slot.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.report(ctx, "load", err)
		}
		return Cart{}
	}

	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		s.report(ctx, "decode", err)
		return Cart{}
	}

	c := make(Cart, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	dropped := 0
	for _, entry := range entries {
		var it LineItem
		if err := json.Unmarshal(entry, &it); err != nil || it.ProductID == "" || it.Quantity < 1 {
			dropped++
			continue
		}
		if _, dup := seen[it.ProductID]; dup {
			dropped++
			continue
		}
		seen[it.ProductID] = struct{}{}
		c = append(c, it)
	}
	if dropped > 0 {
		s.report(ctx, "sanitize", fmt.Errorf("dropped %d invalid cart entries", dropped))
	}
	return c
}

// Save replaces the persisted cart with c.
func (s *Store) Save(ctx context.Context, c Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c = c.Clone()
	data, err := json.Marshal(c)
	if err == nil {
		err = s.slot.Set(ctx, s.key, string(data))
	}
	if err != nil {
		s.report(ctx, "save", err)
		s.fallback = c
		s.degraded = true
		return
	}
	s.fallback = nil
	s.degraded = false
}

// Clear erases the slot. Clearing an absent cart is fine.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.slot.Delete(ctx, s.key); err != nil {
		s.report(ctx, "clear", err)
		s.fallback = Cart{}
		s.degraded = true
		return
	}
	s.fallback = nil
	s.degraded = false
}

func (s *Store) report(ctx context.Context, op string, err error) {
	s.logger.WarnContext(ctx, "cart persistence degraded", "op", op, "error", err)
	if s.diag != nil {
		s.diag(op, err)
	}
}

var _ Persister = (*Store)(nil)
