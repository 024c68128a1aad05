package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sareesanskriti/storefront/internal/cart"
	"github.com/sareesanskriti/storefront/internal/events"
	"github.com/sareesanskriti/storefront/pkg/messaging"
	"github.com/sareesanskriti/storefront/pkg/web"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrSubmissionInProgress = errors.New("checkout already in progress")
	ErrEmptyCart            = errors.New("cart is empty")
)

type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateSuccess    State = "success"
	StateFailed     State = "failed"
)

// CartView is the part of the cart provider checkout needs.
type CartView interface {
	Items() cart.Cart
	RemoveOrdered(ctx context.Context, ordered cart.Cart) cart.Snapshot
}

// Result is what the customer sees after a successful order.
type Result struct {
	Acknowledgment json.RawMessage `json:"acknowledgment,omitempty"`
	Items          cart.Cart       `json:"items"`
	Total          float64         `json:"total"`
	Summary        string          `json:"summary"`
	WhatsAppURL    string          `json:"whatsappUrl,omitempty"`
}

// Status is the observable state of a Flow.
type Status struct {
	State  State   `json:"state"`
	Error  string  `json:"error,omitempty"`
	Result *Result `json:"result,omitempty"`
}

// Config holds the collaborators shared by every Flow.
type Config struct {
	Submitter     Submitter
	Publisher     messaging.Publisher
	Validator     *validator.Validate
	WhatsAppPhone string
	// Timeout bounds one submission. Zero means only the caller's context applies.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Service creates flows that share one configuration.
type Service struct {
	cfg       Config
	submitted metric.Int64Counter
}

func NewService(cfg Config) (*Service, error) {
	if cfg.Publisher == nil {
		cfg.Publisher = messaging.NopPublisher{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	cfg.Logger = cfg.Logger.With("component", "checkout")
	if cfg.Validator == nil {
		cfg.Validator = web.NewValidator()
	}
	if err := RegisterValidations(cfg.Validator); err != nil {
		return nil, err
	}
	counter, err := otel.Meter("github.com/sareesanskriti/storefront/internal/checkout").Int64Counter(
		"checkouts_submitted",
		metric.WithDescription("Orders submitted to the order API, by outcome"),
	)
	if err != nil {
		return nil, err
	}
	return &Service{cfg: cfg, submitted: counter}, nil
}

// NewFlow returns an idle flow that checks out the given cart.
func (s *Service) NewFlow(c CartView) *Flow {
	return &Flow{svc: s, cart: c, state: StateIdle}
}

// Flow is the checkout state machine of one cart: Idle -> Submitting -> Success | Failed.
type Flow struct {
	svc  *Service
	cart CartView

	mu     sync.Mutex
	state  State
	err    error
	result *Result
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := Status{State: f.state, Result: f.result}
	if f.err != nil {
		st.Error = f.err.Error()
	}
	return st
}

// Reset returns a finished flow to Idle. It does nothing while a submission runs.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateSubmitting {
		return
	}
	f.state, f.err, f.result = StateIdle, nil, nil
}

// Submit validates the form and orders the whole cart. On success the ordered lines
// leave the cart, while anything added during the submission stays; on any failure
// the cart is left untouched.
func (f *Flow) Submit(ctx context.Context, form Form) (*Result, error) {
	form = form.Normalize()
	if err := form.Validate(f.svc.cfg.Validator); err != nil {
		return nil, err
	}
	if err := f.begin(); err != nil {
		return nil, err
	}
	items := f.cart.Items()
	if len(items) == 0 {
		f.finish(ctx, StateIdle, nil, nil)
		return nil, ErrEmptyCart
	}
	return f.run(ctx, form, items, true)
}

// BuyNow orders a single unit of one product without touching the cart.
func (f *Flow) BuyNow(ctx context.Context, item cart.Candidate, form Form) (*Result, error) {
	form = form.Normalize()
	if err := form.Validate(f.svc.cfg.Validator); err != nil {
		return nil, err
	}
	if err := f.begin(); err != nil {
		return nil, err
	}
	items := cart.Cart{{
		ProductID: item.ProductID,
		Name:      item.Name,
		Price:     item.Price,
		ImageURL:  item.ImageURL,
		Quantity:  1,
	}}
	return f.run(ctx, form, items, false)
}

func (f *Flow) begin() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateSubmitting {
		return ErrSubmissionInProgress
	}
	f.state, f.err, f.result = StateSubmitting, nil, nil
	return nil
}

func (f *Flow) run(ctx context.Context, form Form, items cart.Cart, fromCart bool) (*Result, error) {
	cfg := f.svc.cfg
	submitCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		submitCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	ack, err := cfg.Submitter.Submit(submitCtx, NewOrderRequest(form, items))
	if err != nil {
		// A caller that walked away leaves nothing to report; a timeout is a failure.
		if errors.Is(ctx.Err(), context.Canceled) {
			f.finish(ctx, StateIdle, nil, nil)
			f.count(ctx, "canceled")
			return nil, err
		}
		f.finish(ctx, StateFailed, err, nil)
		f.count(ctx, "failed")
		cfg.Logger.WarnContext(ctx, "checkout failed", "error", err, "items", len(items))
		return nil, err
	}

	summary := Summary(form, items)
	result := &Result{
		Acknowledgment: ack,
		Items:          items,
		Total:          items.Total().InexactFloat64(),
		Summary:        summary,
		WhatsAppURL:    WhatsAppLink(cfg.WhatsAppPhone, summary),
	}

	// The order is accepted; nothing below may undo it.
	detached := context.WithoutCancel(ctx)
	if fromCart {
		f.cart.RemoveOrdered(detached, items)
	}
	f.finish(ctx, StateSuccess, nil, result)
	f.count(ctx, "success")
	f.announce(detached, form, result)
	cfg.Logger.InfoContext(ctx, "checkout succeeded", "items", len(items), "total", result.Total)
	return result, nil
}

func (f *Flow) finish(_ context.Context, state State, err error, result *Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state, f.err, f.result = state, err, result
}

func (f *Flow) count(ctx context.Context, outcome string) {
	f.svc.submitted.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// announce publishes the order event. Failures are logged and otherwise ignored.
func (f *Flow) announce(ctx context.Context, form Form, result *Result) {
	lines := make([]events.OrderLine, 0, len(result.Items))
	for _, it := range result.Items {
		lines = append(lines, events.OrderLine{ProductID: it.ProductID, Name: it.Name, Price: it.Price, Quantity: it.Quantity})
	}
	evt := events.OrderPlacedEvent{
		EventID:      uuid.New(),
		CustomerName: form.CustomerName,
		Email:        form.Email,
		Phone:        form.Phone,
		Address:      form.Address,
		Items:        lines,
		Total:        result.Total,
		Summary:      result.Summary,
		WhatsAppURL:  result.WhatsAppURL,
		PlacedAt:     time.Now().UTC(),
	}
	if sid, ok := web.GetSessionID(ctx); ok {
		evt.SessionID = sid
	}
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := f.svc.cfg.Publisher.Publish(pubCtx, evt); err != nil {
		f.svc.cfg.Logger.WarnContext(ctx, "failed to publish order event", "error", err)
	}
}
