package session

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sareesanskriti/storefront/internal/cart"
	"github.com/sareesanskriti/storefront/internal/checkout"
	"github.com/sareesanskriti/storefront/internal/kv"
	"github.com/sareesanskriti/storefront/pkg/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newRegistry(t *testing.T, slot kv.Slot) *Registry {
	t.Helper()
	svc, err := checkout.NewService(checkout.Config{Logger: discard})
	require.NoError(t, err)
	return NewRegistry(slot, svc, discard, nil)
}

func TestRegistry_OneScopePerSession(t *testing.T) {
	reg := newRegistry(t, kv.NewMemorySlot())

	a1 := reg.Get(t.Context(), "a")
	a2 := reg.Get(t.Context(), "a")
	b := reg.Get(t.Context(), "b")

	assert.Same(t, a1, a2)
	assert.NotSame(t, a1.Cart, b.Cart)
	assert.True(t, a1.Cart.Mounted())
	assert.Equal(t, 2, reg.Len())
}

func TestRegistry_MountsPersistedCart(t *testing.T) {
	slot := kv.NewMemorySlot()
	cart.NewStore(slot, cart.SessionKey("a")).Save(t.Context(), cart.Cart{{ProductID: "p1", Quantity: 4}})
	reg := newRegistry(t, slot)

	assert.Equal(t, 4, reg.Get(t.Context(), "a").Cart.ItemCount())
	assert.Equal(t, 0, reg.Get(t.Context(), "b").Cart.ItemCount())
}

func TestRegistry_Sweep(t *testing.T) {
	// given
	slot := kv.NewMemorySlot()
	reg := newRegistry(t, slot)
	now := time.Now()
	reg.now = func() time.Time { return now }
	reg.Get(t.Context(), "old").Cart.AddItem(t.Context(), cart.Candidate{ProductID: "p1"}, 2)

	// when
	now = now.Add(time.Hour)
	reg.Get(t.Context(), "fresh")
	swept := reg.Sweep(30 * time.Minute)

	// then
	assert.Equal(t, 1, swept)
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, 2, reg.Get(t.Context(), "old").Cart.ItemCount(), "cart survives in the slot")
}

// slowSlot delays reads of one key until released.
type slowSlot struct {
	kv.Slot
	key     string
	release chan struct{}
}

func (s *slowSlot) Get(ctx context.Context, key string) (string, error) {
	if key == s.key {
		<-s.release
	}
	return s.Slot.Get(ctx, key)
}

func TestRegistry_SlowMountDoesNotBlockOtherSessions(t *testing.T) {
	// given
	slot := &slowSlot{Slot: kv.NewMemorySlot(), key: cart.SessionKey("slow"), release: make(chan struct{})}
	reg := newRegistry(t, slot)
	reg.Get(t.Context(), "warm").Cart.AddItem(t.Context(), cart.Candidate{ProductID: "p1"}, 1)

	mounted := make(chan *Scope)
	go func() { mounted <- reg.Get(context.Background(), "slow") }()
	require.Eventually(t, func() bool { return reg.Len() == 2 }, time.Second, 5*time.Millisecond)

	// when
	start := time.Now()
	warm := reg.Get(t.Context(), "warm")
	fresh := reg.Get(t.Context(), "fresh")
	elapsed := time.Since(start)

	// then
	assert.Less(t, elapsed, 500*time.Millisecond)
	assert.Equal(t, 1, warm.Cart.ItemCount())
	assert.True(t, fresh.Cart.Mounted())

	close(slot.release)
	select {
	case s := <-mounted:
		assert.True(t, s.Cart.Mounted())
	case <-time.After(time.Second):
		t.Fatal("slow session never mounted")
	}
}

func TestRegistry_ConcurrentGetMountsOnce(t *testing.T) {
	// given
	slot := kv.NewMemorySlot()
	cart.NewStore(slot, cart.SessionKey("a")).Save(t.Context(), cart.Cart{{ProductID: "p1", Quantity: 2}})
	reg := newRegistry(t, slot)

	// when
	scopes := make(chan *Scope, 8)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scopes <- reg.Get(t.Context(), "a")
		}()
	}
	wg.Wait()
	close(scopes)

	// then
	first := <-scopes
	for s := range scopes {
		assert.Same(t, first, s)
		assert.Equal(t, 2, s.Cart.ItemCount())
	}
}

func TestMiddleware(t *testing.T) {
	reg := newRegistry(t, kv.NewMemorySlot())
	var seenID string
	var seenProvider *cart.Provider
	h := Middleware(reg, "sid", time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID, _ = web.GetSessionID(r.Context())
		seenProvider = cart.ProviderFrom(r.Context())
		assert.NotNil(t, FlowFrom(r.Context()))
	}))

	t.Run("issues a session when absent", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		_, err := uuid.Parse(seenID)
		require.NoError(t, err)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "sid", cookies[0].Name)
		assert.Equal(t, seenID, cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
		assert.Equal(t, seenID, rec.Header().Get(HeaderName))
	})

	t.Run("reuses cookie", func(t *testing.T) {
		id := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "sid", Value: id})
		h.ServeHTTP(httptest.NewRecorder(), req)
		first := seenProvider

		req = httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderName, id)
		h.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, id, seenID)
		assert.Same(t, first, seenProvider)
	})

	t.Run("rejects malformed ids", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderName, "../../etc")
		h.ServeHTTP(httptest.NewRecorder(), req)

		assert.NotEqual(t, "../../etc", seenID)
		_, err := uuid.Parse(seenID)
		assert.NoError(t, err)
	})
}

func TestFromContext_PanicsWithoutScope(t *testing.T) {
	assert.PanicsWithValue(t, ErrNoScope, func() {
		FromContext(t.Context())
	})
}
