package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sareesanskriti/storefront/internal/cart"
	serr "github.com/sareesanskriti/storefront/internal/errors"
	"github.com/sareesanskriti/storefront/internal/events"
	"github.com/sareesanskriti/storefront/internal/kv"
	"github.com/sareesanskriti/storefront/pkg/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSubmitter struct {
	mock.Mock
}

func (m *mockSubmitter) Submit(ctx context.Context, order OrderRequest) (json.RawMessage, error) {
	args := m.Called(ctx, order)
	ack, _ := args.Get(0).(json.RawMessage)
	return ack, args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, event messaging.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func newProvider(t *testing.T) (*cart.Provider, *cart.Store) {
	t.Helper()
	store := cart.NewStore(kv.NewMemorySlot(), cart.DefaultKey)
	p := cart.NewProvider(cart.NewEngine(store))
	p.Mount(t.Context())
	return p, store
}

func newService(t *testing.T, sub Submitter, pub messaging.Publisher, timeout time.Duration) *Service {
	t.Helper()
	svc, err := NewService(Config{
		Submitter:     sub,
		Publisher:     pub,
		WhatsAppPhone: "919599819939",
		Timeout:       timeout,
		Logger:        discard,
	})
	require.NoError(t, err)
	return svc
}

var banarasi = cart.Candidate{ProductID: "saree-1", Name: "Red Banarasi", Price: 4500, ImageURL: "https://img/red.jpg"}

func TestFlow_SubmitSuccessClearsCart(t *testing.T) {
	// given
	provider, store := newProvider(t)
	provider.AddItem(t.Context(), banarasi, 2)
	sub := &mockSubmitter{}
	sub.On("Submit", mock.Anything, mock.MatchedBy(func(o OrderRequest) bool {
		return len(o.Items) == 1 && o.Items[0].Qty == 2 && o.Items[0].Price == 4500
	})).Return(json.RawMessage(`{"ok":true}`), nil).Once()
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(e messaging.Event) bool {
		evt, ok := e.(events.OrderPlacedEvent)
		return ok && evt.Total == 9000 && evt.Subject() == messaging.OrdersPlacedSubject
	})).Return(nil).Once()
	flow := newService(t, sub, pub, time.Second).NewFlow(provider)

	// when
	result, err := flow.Submit(t.Context(), validForm())

	// then
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, flow.State())
	assert.JSONEq(t, `{"ok":true}`, string(result.Acknowledgment))
	assert.Equal(t, 9000.0, result.Total)
	assert.Contains(t, result.Summary, "Red Banarasi x2 - ₹9,000")
	assert.Contains(t, result.WhatsAppURL, "https://wa.me/919599819939?text=")
	assert.Equal(t, 0, provider.ItemCount())
	assert.Empty(t, store.Load(t.Context()))
	sub.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestFlow_ValidationKeepsIdle(t *testing.T) {
	provider, _ := newProvider(t)
	provider.AddItem(t.Context(), banarasi, 1)
	sub := &mockSubmitter{}
	flow := newService(t, sub, nil, 0).NewFlow(provider)

	form := validForm()
	form.Phone = "123"
	_, err := flow.Submit(t.Context(), form)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "phone")
	assert.Equal(t, StateIdle, flow.State())
	sub.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestFlow_EmptyCart(t *testing.T) {
	provider, _ := newProvider(t)
	sub := &mockSubmitter{}
	flow := newService(t, sub, nil, 0).NewFlow(provider)

	_, err := flow.Submit(t.Context(), validForm())

	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, StateIdle, flow.State())
	sub.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestFlow_FailureKeepsCart(t *testing.T) {
	// given
	provider, _ := newProvider(t)
	provider.AddItem(t.Context(), banarasi, 2)
	sub := &mockSubmitter{}
	sub.On("Submit", mock.Anything, mock.Anything).Return(nil, errors.Join(serr.ErrOrderUnavailable, errors.New("502"))).Once()
	pub := &mockPublisher{}
	flow := newService(t, sub, pub, time.Second).NewFlow(provider)

	// when
	_, err := flow.Submit(t.Context(), validForm())

	// then
	assert.ErrorIs(t, err, serr.ErrOrderUnavailable)
	assert.Equal(t, StateFailed, flow.State())
	assert.NotEmpty(t, flow.Status().Error)
	assert.Equal(t, 2, provider.ItemCount())
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)

	// when
	sub.On("Submit", mock.Anything, mock.Anything).Return(json.RawMessage(nil), nil).Once()
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()
	_, err = flow.Submit(t.Context(), validForm())

	// then
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, flow.State())
	assert.Empty(t, flow.Status().Error)
	assert.Equal(t, 0, provider.ItemCount())
	sub.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestFlow_SuccessKeepsItemsAddedDuringSubmission(t *testing.T) {
	// given
	provider, store := newProvider(t)
	provider.AddItem(t.Context(), banarasi, 1)
	client, release, calls := blockingAPI(t)
	flow := newService(t, client, nil, 5*time.Second).NewFlow(provider)
	kanjivaram := cart.Candidate{ProductID: "saree-2", Name: "Green Kanjivaram", Price: 7200}

	done := make(chan error, 1)
	go func() {
		result, err := flow.Submit(context.Background(), validForm())
		if err == nil && len(result.Items) != 1 {
			err = errors.New("unexpected ordered lines")
		}
		done <- err
	}()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	// when
	provider.AddItem(t.Context(), kanjivaram, 1)
	provider.AddItem(t.Context(), banarasi, 1)
	close(release)

	// then
	require.NoError(t, <-done)
	assert.Equal(t, StateSuccess, flow.State())
	want := cart.Cart{
		{ProductID: "saree-1", Name: "Red Banarasi", Price: 4500, ImageURL: "https://img/red.jpg", Quantity: 1},
		{ProductID: "saree-2", Name: "Green Kanjivaram", Price: 7200, Quantity: 1},
	}
	assert.Equal(t, want, provider.Items())
	assert.Equal(t, want, store.Load(t.Context()))
}

func TestFlow_PublishFailureDoesNotRollBack(t *testing.T) {
	provider, _ := newProvider(t)
	provider.AddItem(t.Context(), banarasi, 1)
	sub := &mockSubmitter{}
	sub.On("Submit", mock.Anything, mock.Anything).Return(json.RawMessage(nil), nil)
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("nats down"))
	flow := newService(t, sub, pub, 0).NewFlow(provider)

	_, err := flow.Submit(t.Context(), validForm())

	require.NoError(t, err)
	assert.Equal(t, StateSuccess, flow.State())
	assert.Equal(t, 0, provider.ItemCount())
}

// blockingAPI answers only after release is closed.
func blockingAPI(t *testing.T) (*OrderClient, chan struct{}, *atomic.Int32) {
	t.Helper()
	release := make(chan struct{})
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-release:
			w.WriteHeader(http.StatusCreated)
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		select {
		case <-release:
		default:
			close(release)
		}
		srv.Close()
	})
	return NewOrderClient(srv.URL, srv.Client(), discard), release, &calls
}

func TestFlow_TimeoutFails(t *testing.T) {
	provider, _ := newProvider(t)
	provider.AddItem(t.Context(), banarasi, 1)
	client, _, _ := blockingAPI(t)
	flow := newService(t, client, nil, 50*time.Millisecond).NewFlow(provider)

	_, err := flow.Submit(t.Context(), validForm())

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateFailed, flow.State())
	assert.Equal(t, 1, provider.ItemCount())
}

func TestFlow_CancelReturnsToIdle(t *testing.T) {
	provider, _ := newProvider(t)
	provider.AddItem(t.Context(), banarasi, 1)
	client, _, calls := blockingAPI(t)
	flow := newService(t, client, nil, 0).NewFlow(provider)
	ctx, cancel := context.WithCancel(t.Context())

	go func() {
		assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
		cancel()
	}()
	_, err := flow.Submit(ctx, validForm())

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateIdle, flow.State())
	assert.Equal(t, 1, provider.ItemCount())
}

func TestFlow_SecondSubmitWhileInFlight(t *testing.T) {
	provider, _ := newProvider(t)
	provider.AddItem(t.Context(), banarasi, 1)
	client, release, calls := blockingAPI(t)
	flow := newService(t, client, nil, 0).NewFlow(provider)

	done := make(chan error, 1)
	go func() {
		_, err := flow.Submit(context.Background(), validForm())
		done <- err
	}()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	_, err := flow.Submit(t.Context(), validForm())
	assert.ErrorIs(t, err, ErrSubmissionInProgress)
	assert.Equal(t, StateSubmitting, flow.State())

	flow.Reset()
	assert.Equal(t, StateSubmitting, flow.State(), "reset is ignored while submitting")

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateSuccess, flow.State())
	flow.Reset()
	assert.Equal(t, StateIdle, flow.State())
}

func TestFlow_BuyNowLeavesCartAlone(t *testing.T) {
	// given
	provider, _ := newProvider(t)
	provider.AddItem(t.Context(), cart.Candidate{ProductID: "other", Price: 10}, 3)
	sub := &mockSubmitter{}
	sub.On("Submit", mock.Anything, mock.MatchedBy(func(o OrderRequest) bool {
		return len(o.Items) == 1 && o.Items[0].ID == "saree-1" && o.Items[0].Qty == 1
	})).Return(json.RawMessage(nil), nil).Once()
	flow := newService(t, sub, nil, 0).NewFlow(provider)

	// when
	result, err := flow.BuyNow(t.Context(), banarasi, validForm())

	// then
	require.NoError(t, err)
	assert.Equal(t, 4500.0, result.Total)
	assert.Equal(t, 3, provider.ItemCount())
	sub.AssertExpectations(t)
}

// TestCartCheckoutScenario walks a shopper from an empty cart to a placed order.
func TestCartCheckoutScenario(t *testing.T) {
	var orders atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		orders.Add(1)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"message":"Order placed"}`))
	}))
	defer srv.Close()

	provider, store := newProvider(t)
	flow := newService(t, NewOrderClient(srv.URL, srv.Client(), discard), nil, time.Second).NewFlow(provider)

	provider.AddItem(t.Context(), banarasi, 1)
	assert.Equal(t, 1, provider.ItemCount())

	repriced := banarasi
	repriced.Price = 5200
	provider.AddItem(t.Context(), repriced, 2)
	assert.Equal(t, 3, provider.ItemCount())
	require.Len(t, provider.Items(), 1)
	assert.Equal(t, 3, provider.Items()[0].Quantity)
	assert.Equal(t, 4500.0, provider.Items()[0].Price)

	provider.UpdateQuantity(t.Context(), "saree-1", 1)
	assert.Equal(t, 1, provider.ItemCount())

	_, err := flow.Submit(t.Context(), validForm())
	require.NoError(t, err)
	assert.Equal(t, int32(1), orders.Load())
	assert.Equal(t, 0, provider.ItemCount())
	assert.Empty(t, store.Load(t.Context()))
}
