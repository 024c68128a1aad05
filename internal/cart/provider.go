package cart

import (
	"context"
	"sync"
)

// Snapshot is the published view of a cart.
type Snapshot struct {
	Items     Cart    `json:"items"`
	ItemCount int     `json:"itemCount"`
	Total     float64 `json:"total"`
}

func newSnapshot(c Cart) Snapshot {
	c = c.Clone()
	return Snapshot{
		Items:     c,
		ItemCount: c.ItemCount(),
		Total:     c.Total().InexactFloat64(),
	}
}

type subscriber struct {
	id int
	fn func(Snapshot)
}

// Provider holds the current cart snapshot of one cart scope and is the only path
// through which views read or mutate it. Mutations are serialized; subscribers are
// notified in registration order, in mutation order, outside the state lock.
// Subscribers must not mutate the cart synchronously from the callback.
type Provider struct {
	engine *Engine

	mu      sync.Mutex
	current Cart
	mounted bool

	// publishing is held from the end of a mutation until its subscribers ran.
	publishing sync.Mutex
	subsMu     sync.Mutex
	subs       []subscriber
	nextID     int
}

func NewProvider(engine *Engine) *Provider {
	return &Provider{engine: engine, current: Cart{}}
}

// Mount loads the persisted cart and publishes it as the starting snapshot.
func (p *Provider) Mount(ctx context.Context) Snapshot {
	return p.apply(func() Cart {
		p.mounted = true
		return p.engine.Load(ctx)
	})
}

// Mounted reports whether Mount has run.
func (p *Provider) Mounted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mounted
}

func (p *Provider) Items() Cart {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current.Clone()
}

func (p *Provider) ItemCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current.ItemCount()
}

func (p *Provider) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return newSnapshot(p.current)
}

func (p *Provider) AddItem(ctx context.Context, candidate Candidate, quantity int) Snapshot {
	return p.apply(func() Cart {
		return p.engine.AddItem(ctx, candidate, quantity)
	})
}

func (p *Provider) UpdateQuantity(ctx context.Context, productID string, quantity int) Snapshot {
	return p.apply(func() Cart {
		return p.engine.UpdateQuantity(ctx, productID, quantity)
	})
}

func (p *Provider) RemoveItem(ctx context.Context, productID string) Snapshot {
	return p.apply(func() Cart {
		return p.engine.RemoveItem(ctx, productID)
	})
}

// RemoveOrdered removes a checked-out order from the cart, see Engine.RemoveOrdered.
func (p *Provider) RemoveOrdered(ctx context.Context, ordered Cart) Snapshot {
	return p.apply(func() Cart {
		return p.engine.RemoveOrdered(ctx, ordered)
	})
}

func (p *Provider) ClearCart(ctx context.Context) Snapshot {
	return p.apply(func() Cart {
		return p.engine.Clear(ctx)
	})
}

// Subscribe registers fn for every future snapshot. The returned func unregisters it.
func (p *Provider) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	p.subsMu.Lock()
	defer p.subsMu.Unlock()
	p.nextID++
	id := p.nextID
	p.subs = append(p.subs, subscriber{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			p.subsMu.Lock()
			defer p.subsMu.Unlock()
			for i, s := range p.subs {
				if s.id == id {
					p.subs = append(p.subs[:i:i], p.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (p *Provider) apply(mutate func() Cart) Snapshot {
	p.mu.Lock()
	p.current = mutate().Clone()
	snap := newSnapshot(p.current)
	p.publishing.Lock()
	p.mu.Unlock()
	defer p.publishing.Unlock()

	p.subsMu.Lock()
	subs := make([]subscriber, len(p.subs))
	copy(subs, p.subs)
	p.subsMu.Unlock()

	for _, s := range subs {
		s.fn(newSnapshot(snap.Items))
	}
	return snap
}
