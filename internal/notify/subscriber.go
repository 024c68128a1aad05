// Package notify consumes order events and hands them to the order desk.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sareesanskriti/storefront/internal/events"
	"github.com/sareesanskriti/storefront/pkg/config"
	"golang.org/x/sync/errgroup"
)

// Notifier delivers a placed order to whoever fulfils it.
type Notifier interface {
	Notify(ctx context.Context, event events.OrderPlacedEvent) error
}

// LogNotifier writes the order summary and the chat link to the log.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("component", "notify")}
}

func (n *LogNotifier) Notify(ctx context.Context, event events.OrderPlacedEvent) error {
	n.logger.InfoContext(ctx, "order placed",
		slog.String("event_id", event.EventID.String()),
		slog.String("customer", event.CustomerName),
		slog.String("phone", event.Phone),
		slog.Int("lines", len(event.Items)),
		slog.Float64("total", event.Total),
		slog.String("whatsapp_url", event.WhatsAppURL),
		slog.String("placed_at", event.PlacedAt.Format(time.RFC3339)))
	n.logger.DebugContext(ctx, "order summary", slog.String("summary", event.Summary))
	return nil
}

// message is the part of jetstream.Msg the handler needs.
type message interface {
	Data() []byte
	Subject() string
	Ack() error
	Nak() error
	Term() error
}

// Start creates the durable consumer and runs the configured number of workers until ctx ends.
func Start(ctx context.Context, js jetstream.JetStream, subscriberCfg config.SubscriberConfig, notifier Notifier, logger *slog.Logger) error {
	cfg := jetstream.ConsumerConfig{
		FilterSubject: subscriberCfg.Subject,
		Durable:       subscriberCfg.Consumer,
		AckPolicy:     jetstream.AckExplicitPolicy,
	}
	consumer, err := js.CreateOrUpdateConsumer(ctx, subscriberCfg.Stream, cfg)
	if err != nil {
		return err
	}
	g, gCtx := errgroup.WithContext(ctx)
	for range subscriberCfg.Workers {
		g.Go(func() error {
			return runWorker(gCtx, consumer, subscriberCfg.Timeout, subscriberCfg.Interval, notifier, logger)
		})
	}
	return g.Wait()
}

func runWorker(ctx context.Context, consumer jetstream.Consumer, timeout, interval time.Duration, notifier Notifier, logger *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			batch, err := consumer.Fetch(1, jetstream.FetchMaxWait(timeout))
			if err != nil {
				if errors.Is(err, nats.ErrTimeout) {
					continue
				}
				logger.ErrorContext(ctx, "failed to fetch messages", "error", err)
				time.Sleep(interval)
				continue
			}
			for msg := range batch.Messages() {
				handleMessage(ctx, msg, notifier, logger)
			}
		}
	}
}

// handleMessage acks delivered events. Undecodable payloads are terminated so they
// are not redelivered; delivery failures are naked for a retry.
func handleMessage(ctx context.Context, msg message, notifier Notifier, logger *slog.Logger) {
	if msg == nil {
		logger.ErrorContext(ctx, "received nil message")
		return
	}
	var event events.OrderPlacedEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		logger.ErrorContext(ctx, "failed to unmarshal message", "error", err, "subject", msg.Subject())
		if err := msg.Term(); err != nil {
			logger.ErrorContext(ctx, "failed to terminate message", "error", err)
		}
		return
	}
	if err := notifier.Notify(ctx, event); err != nil {
		logger.ErrorContext(ctx, "failed to notify order", "error", err, "event_id", event.EventID.String())
		nak(ctx, msg, logger)
		return
	}
	if err := msg.Ack(); err != nil {
		logger.ErrorContext(ctx, "failed to ack message", "error", err)
	}
}

func nak(ctx context.Context, msg message, logger *slog.Logger) {
	if err := msg.Nak(); err != nil {
		logger.ErrorContext(ctx, "failed to nack message", "error", err)
	}
}
