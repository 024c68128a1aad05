// Package app wires the storefront BFF together.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sareesanskriti/storefront/internal/admin"
	"github.com/sareesanskriti/storefront/internal/catalog"
	"github.com/sareesanskriti/storefront/internal/checkout"
	"github.com/sareesanskriti/storefront/internal/config"
	"github.com/sareesanskriti/storefront/internal/kv"
	"github.com/sareesanskriti/storefront/internal/session"
	"github.com/sareesanskriti/storefront/internal/transport/rest"
	"github.com/sareesanskriti/storefront/pkg/bootstrap"
	"github.com/sareesanskriti/storefront/pkg/httpclient"
	"github.com/sareesanskriti/storefront/pkg/messaging"
	pnats "github.com/sareesanskriti/storefront/pkg/nats"
	"github.com/sareesanskriti/storefront/pkg/server"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
)

// pingTimeout bounds the startup connectivity checks.
const pingTimeout = 5 * time.Second

// Infrastructure holds the connections the storefront keeps for its lifetime.
type Infrastructure struct {
	Slot      kv.Slot
	Publisher messaging.Publisher
	// JetStream is nil when NATS is disabled.
	JetStream jetstream.JetStream
	Probes    []rest.Probe

	closers []func()
}

// SetupInfrastructure connects the configured storage backend and, when enabled, NATS.
// On error everything opened so far is closed again.
func SetupInfrastructure(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *Infrastructure, err error) {
	infra := &Infrastructure{Publisher: messaging.NopPublisher{}}
	defer func() {
		if err != nil {
			infra.Close()
		}
	}()

	switch cfg.Storage.Driver {
	case config.StorageRedis:
		rdb, err := bootstrap.NewRedisClient(ctx, cfg.Storage.Redis, pingTimeout)
		if err != nil {
			return nil, err
		}
		infra.closers = append(infra.closers, func() { _ = rdb.Close() })
		infra.Slot = kv.NewRedisSlot(rdb, cfg.Session.TTL)
		infra.Probes = append(infra.Probes, rest.Probe{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
		logger.Info("Carts are stored in Redis", slog.String("addr", cfg.Storage.Redis.Addr))
	case config.StoragePostgres:
		if err := kv.Migrate(cfg.Storage.Database.URL); err != nil {
			return nil, err
		}
		dbPool, err := bootstrap.NewDbPool(ctx, cfg.Storage.Database.URL, cfg.Storage.Database.Timeout)
		if err != nil {
			return nil, err
		}
		infra.closers = append(infra.closers, dbPool.Close)
		infra.Slot = kv.NewPgSlot(dbPool)
		infra.Probes = append(infra.Probes, rest.Probe{Name: "postgres", Check: dbPool.Ping})
		logger.Info("Carts are stored in PostgreSQL")
	default:
		infra.Slot = kv.NewMemorySlot()
		logger.Warn("Carts are kept in memory and will not survive a restart")
	}

	if cfg.Nats.Enabled {
		nc, err := pnats.NewClient(cfg.Nats.Url, cfg.Nats.Timeout)
		if err != nil {
			return nil, err
		}
		infra.closers = append(infra.closers, func() { _ = nc.Drain() })
		js, err := pnats.NewJetStreamContext(nc)
		if err != nil {
			return nil, err
		}
		streamCtx, cancel := context.WithTimeout(ctx, cfg.Nats.Timeout)
		defer cancel()
		if _, err := pnats.EnsureStream(streamCtx, js, cfg.Messaging.Stream, messaging.OrdersPlacedSubject); err != nil {
			return nil, err
		}
		infra.JetStream = js
		infra.Publisher = pnats.NewNatsPublisher(js)
		infra.Probes = append(infra.Probes, rest.Probe{Name: "nats", Check: func(context.Context) error {
			if status := nc.Status(); status != nats.CONNECTED {
				return fmt.Errorf("nats connection is %s", status)
			}
			return nil
		}})
		logger.Info("Order events are published to NATS", slog.String("stream", cfg.Messaging.Stream))
	}
	return infra, nil
}

// Close releases the connections in reverse order of opening.
func (i *Infrastructure) Close() {
	for k := len(i.closers) - 1; k >= 0; k-- {
		i.closers[k]()
	}
	i.closers = nil
}

type Dependencies struct {
	Catalog  *catalog.Client
	Admin    *admin.Service
	Checkout *checkout.Service
	Registry *session.Registry
	Probes   []rest.Probe
	// Metrics serves the Prometheus scrape endpoint; nil disables it.
	Metrics http.Handler
	Config  *config.Config
	Logger  *slog.Logger
}

func SetupDependencies(infra *Infrastructure, cfg *config.Config, metrics http.Handler, logger *slog.Logger) (*Dependencies, error) {
	apiClient := httpclient.New(httpclient.Options{
		Name:       "storefront-api",
		Timeout:    cfg.API.Timeout,
		Resilience: cfg.Resilience,
	})
	// The checkout flow owns its own deadline; the client must not cut it shorter.
	orderClient := httpclient.New(httpclient.Options{
		Name:       "order-api",
		Resilience: cfg.Resilience,
	})

	checkoutSvc, err := checkout.NewService(checkout.Config{
		Submitter:     checkout.NewOrderClient(cfg.API.BaseURL, orderClient, logger),
		Publisher:     infra.Publisher,
		WhatsAppPhone: cfg.Messaging.WhatsAppPhone,
		Timeout:       cfg.API.CheckoutTimeout,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout service: %w", err)
	}
	diag, err := storageDiagnostics()
	if err != nil {
		return nil, err
	}

	adminSvc := admin.NewService(
		admin.NewClient(cfg.API.BaseURL, apiClient, logger),
		admin.NewSessionStore(infra.Slot, logger),
	)
	return &Dependencies{
		Catalog:  catalog.NewClient(cfg.API.BaseURL, apiClient, logger),
		Admin:    adminSvc,
		Checkout: checkoutSvc,
		Registry: session.NewRegistry(infra.Slot, checkoutSvc, logger, diag),
		Probes:   infra.Probes,
		Metrics:  metrics,
		Config:   cfg,
		Logger:   logger,
	}, nil
}

// storageDiagnostics counts swallowed cart storage failures by operation.
func storageDiagnostics() (func(op string, err error), error) {
	counter, err := otel.Meter("github.com/sareesanskriti/storefront/internal/app").Int64Counter(
		"cart_storage_errors",
		metric.WithDescription("Cart storage failures that were degraded to the in-memory cart"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage error counter: %w", err)
	}
	return func(op string, _ error) {
		counter.Add(context.Background(), 1, metric.WithAttributes(attribute.String("op", op)))
	}, nil
}

// SetupHttpHandler builds the router with every route. Used by tests as well.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return mux
}

func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	sessions := session.Middleware(deps.Registry, deps.Config.Session.CookieName, deps.Config.Session.TTL)
	rest.NewHandler(deps.Catalog, deps.Admin, deps.Logger).RegisterRoutes(mux, sessions)
	rest.RegisterHealthRoutes(mux, deps.Logger, deps.Probes...)
	if deps.Metrics != nil {
		mux.Method(http.MethodGet, deps.Config.Telemetry.Metrics.Path, deps.Metrics)
	}
}

func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	return server.NewHTTPServer(cfg.HTTPServer, "storefront", SetupHttpHandler(deps))
}

// SetupGrpcServer serves the standard gRPC health protocol for orchestrators.
func SetupGrpcServer(reflectionEnabled bool) (*grpc.Server, *health.Server) {
	hs := health.NewServer()
	return server.NewGRPCServer(reflectionEnabled, server.WithHealth(hs)), hs
}
