package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/sareesanskriti/storefront/internal/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakySlot wraps a MemorySlot and fails the operations switched on.
type flakySlot struct {
	*kv.MemorySlot
	failGet, failSet, failDelete bool
}

var errStorage = errors.New("quota exceeded")

func (f *flakySlot) Get(ctx context.Context, key string) (string, error) {
	if f.failGet {
		return "", errStorage
	}
	return f.MemorySlot.Get(ctx, key)
}

func (f *flakySlot) Set(ctx context.Context, key, value string) error {
	if f.failSet {
		return errStorage
	}
	return f.MemorySlot.Set(ctx, key, value)
}

func (f *flakySlot) Delete(ctx context.Context, key string) error {
	if f.failDelete {
		return errStorage
	}
	return f.MemorySlot.Delete(ctx, key)
}

type diagnostics struct {
	ops []string
}

func (d *diagnostics) record(op string, _ error) {
	d.ops = append(d.ops, op)
}

func sampleCart() Cart {
	return Cart{
		{ProductID: "saree-1", Name: "Red Banarasi", Price: 4500, ImageURL: "https://img/1.jpg", Quantity: 2},
		{ProductID: "saree-2", Name: "Kanjivaram Silk", Price: 12999.5, ImageURL: "", Quantity: 1},
	}
}

func TestStore_LoadEmptyWhenNothingStored(t *testing.T) {
	store := NewStore(kv.NewMemorySlot(), DefaultKey)

	got := store.Load(t.Context())

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestStore_RoundTrip(t *testing.T) {
	// given
	store := NewStore(kv.NewMemorySlot(), DefaultKey)
	want := sampleCart()

	// when
	store.Save(t.Context(), want)
	got := store.Load(t.Context())

	// then
	assert.Equal(t, want, got)
}

func TestStore_SaveWritesJSONArray(t *testing.T) {
	slot := kv.NewMemorySlot()
	store := NewStore(slot, DefaultKey)

	store.Save(t.Context(), Cart{{ProductID: "p1", Name: "A", Price: 10, ImageURL: "u", Quantity: 1}})
	store.Save(t.Context(), nil)

	raw, err := slot.Get(t.Context(), DefaultKey)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, raw)
}

func TestStore_LoadMalformed(t *testing.T) {
	testCases := []struct {
		name   string
		stored string
		want   Cart
		diag   []string
	}{
		{name: "not json", stored: `{{{`, want: Cart{}, diag: []string{"decode"}},
		{name: "json object", stored: `{"productId":"p1"}`, want: Cart{}, diag: []string{"decode"}},
		{name: "json string", stored: `"hello"`, want: Cart{}, diag: []string{"decode"}},
		{name: "json null", stored: `null`, want: Cart{}},
		{
			name:   "invalid entries dropped",
			stored: `[{"productId":"p1","name":"A","price":1,"imageUrl":"","quantity":2},{"productId":"","quantity":1},{"productId":"p2","quantity":0},"junk"]`,
			want:   Cart{{ProductID: "p1", Name: "A", Price: 1, Quantity: 2}},
			diag:   []string{"sanitize"},
		},
		{
			name:   "duplicate keeps first",
			stored: `[{"productId":"p1","name":"First","price":1,"quantity":1},{"productId":"p1","name":"Second","price":2,"quantity":5}]`,
			want:   Cart{{ProductID: "p1", Name: "First", Price: 1, Quantity: 1}},
			diag:   []string{"sanitize"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			slot := kv.NewMemorySlot()
			require.NoError(t, slot.Set(t.Context(), DefaultKey, tc.stored))
			d := &diagnostics{}
			store := NewStore(slot, DefaultKey, WithDiagnostics(d.record))

			// when
			got := store.Load(t.Context())

			// then
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.diag, d.ops)
		})
	}
}

func TestStore_ClearIsIdempotent(t *testing.T) {
	store := NewStore(kv.NewMemorySlot(), DefaultKey)
	store.Save(t.Context(), sampleCart())

	store.Clear(t.Context())
	assert.Empty(t, store.Load(t.Context()))
	store.Clear(t.Context())
	assert.Empty(t, store.Load(t.Context()))
}

func TestStore_SaveFailureKeepsInMemoryCart(t *testing.T) {
	// given
	slot := &flakySlot{MemorySlot: kv.NewMemorySlot(), failSet: true}
	d := &diagnostics{}
	store := NewStore(slot, DefaultKey, WithDiagnostics(d.record))
	want := sampleCart()

	// when
	store.Save(t.Context(), want)

	// then
	assert.Equal(t, want, store.Load(t.Context()), "unsaved cart stays the source of truth")
	assert.Equal(t, []string{"save"}, d.ops)

	// and a later successful save resumes reading from the slot
	slot.failSet = false
	store.Save(t.Context(), want[:1])
	require.NoError(t, slot.Set(t.Context(), DefaultKey, `[]`))
	assert.Empty(t, store.Load(t.Context()))
}

func TestStore_ClearFailureLoadsEmpty(t *testing.T) {
	slot := &flakySlot{MemorySlot: kv.NewMemorySlot()}
	d := &diagnostics{}
	store := NewStore(slot, DefaultKey, WithDiagnostics(d.record))
	store.Save(t.Context(), sampleCart())

	slot.failDelete = true
	store.Clear(t.Context())

	assert.Empty(t, store.Load(t.Context()))
	assert.Equal(t, []string{"clear"}, d.ops)
}

func TestStore_LoadFailureDegradesToEmpty(t *testing.T) {
	slot := &flakySlot{MemorySlot: kv.NewMemorySlot(), failGet: true}
	d := &diagnostics{}
	store := NewStore(slot, DefaultKey, WithDiagnostics(d.record))

	assert.Empty(t, store.Load(t.Context()))
	assert.Equal(t, []string{"load"}, d.ops)
}

func TestSessionKey(t *testing.T) {
	assert.Equal(t, "saree_cart:abc", SessionKey("abc"))
}
