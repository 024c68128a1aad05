package cart

import (
	"context"
	"sync"
	"testing"

	"github.com/sareesanskriti/storefront/internal/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, slot kv.Slot) *Provider {
	t.Helper()
	p := NewProvider(NewEngine(NewStore(slot, DefaultKey)))
	p.Mount(t.Context())
	return p
}

func TestProvider_MountLoadsPersistedCart(t *testing.T) {
	// given
	slot := kv.NewMemorySlot()
	NewStore(slot, DefaultKey).Save(t.Context(), Cart{{ProductID: "p1", Price: 100, Quantity: 2}})
	p := NewProvider(NewEngine(NewStore(slot, DefaultKey)))
	assert.False(t, p.Mounted())

	// when
	snap := p.Mount(t.Context())

	// then
	assert.True(t, p.Mounted())
	assert.Equal(t, 2, snap.ItemCount)
	assert.Equal(t, 200.0, snap.Total)
	assert.Equal(t, 2, p.ItemCount())
}

func TestProvider_PublishesEveryMutationInOrder(t *testing.T) {
	// given
	p := newTestProvider(t, kv.NewMemorySlot())
	var first, second []int
	p.Subscribe(func(s Snapshot) { first = append(first, s.ItemCount) })
	p.Subscribe(func(s Snapshot) { second = append(second, s.ItemCount) })

	// when
	p.AddItem(t.Context(), redBanarasi, 1)
	p.AddItem(t.Context(), redBanarasi, 2)
	p.UpdateQuantity(t.Context(), "saree-1", 1)
	p.RemoveItem(t.Context(), "saree-1")
	p.ClearCart(t.Context())

	// then
	assert.Equal(t, []int{1, 3, 1, 0, 0}, first)
	assert.Equal(t, first, second)
}

func TestProvider_PersistsBeforePublishing(t *testing.T) {
	slot := kv.NewMemorySlot()
	p := newTestProvider(t, slot)
	observer := NewStore(slot, DefaultKey)
	var persisted []int
	p.Subscribe(func(Snapshot) { persisted = append(persisted, observer.Load(context.Background()).ItemCount()) })

	p.AddItem(t.Context(), redBanarasi, 4)

	assert.Equal(t, []int{4}, persisted)
}

func TestProvider_Unsubscribe(t *testing.T) {
	p := newTestProvider(t, kv.NewMemorySlot())
	calls := 0
	unsubscribe := p.Subscribe(func(Snapshot) { calls++ })

	p.AddItem(t.Context(), redBanarasi, 1)
	unsubscribe()
	unsubscribe()
	p.AddItem(t.Context(), redBanarasi, 1)

	assert.Equal(t, 1, calls)
}

func TestProvider_SnapshotsAreCopies(t *testing.T) {
	p := newTestProvider(t, kv.NewMemorySlot())
	p.AddItem(t.Context(), redBanarasi, 1)

	items := p.Items()
	items[0].Quantity = 99

	assert.Equal(t, 1, p.Items()[0].Quantity)
}

func TestProvider_ConcurrentMutationsAreSerialized(t *testing.T) {
	p := newTestProvider(t, kv.NewMemorySlot())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.AddItem(context.Background(), redBanarasi, 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, p.ItemCount())
	require.Len(t, p.Items(), 1)
}

func TestProviderFrom(t *testing.T) {
	p := newTestProvider(t, kv.NewMemorySlot())
	ctx := WithProvider(t.Context(), p)

	assert.Same(t, p, ProviderFrom(ctx))
	assert.PanicsWithValue(t, ErrNoProvider, func() {
		ProviderFrom(t.Context())
	})
}
