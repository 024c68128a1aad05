// Package main runs the storefront backend-for-frontend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sareesanskriti/storefront/internal/app"
	"github.com/sareesanskriti/storefront/internal/config"
	"github.com/sareesanskriti/storefront/internal/notify"
	"github.com/sareesanskriti/storefront/pkg/bootstrap"
	"github.com/sareesanskriti/storefront/pkg/config/configloader"
	"github.com/sareesanskriti/storefront/pkg/telemetry"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/health/grpc_health_v1"
)

const serviceName = "storefront"

func main() {
	configFile := flag.String("config", "", "path to config.yaml")
	envFile := flag.String("env", "", "path to .env")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configFile, *envFile); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run loads the configuration, connects storage and messaging, and serves HTTP, gRPC health
// and pprof until ctx is cancelled.
func run(ctx context.Context, configFile, envFile string) error {
	cfg, cfgErr := configloader.Load[*config.Config](serviceName,
		configloader.WithConfigFile(configFile),
		configloader.WithEnvFile(envFile),
		configloader.WithDefaults(config.Defaults()))
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger, logCloser := bootstrap.NewLoggerFromConfig(cfg.Log)
	defer func() { _ = logCloser.Close() }()
	slog.SetDefault(logger)

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Telemetry.Traces.Enabled {
		tracerProvider, err := telemetry.NewTracerProvider(ctx, serviceName, cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("failed to create tracer provider: %w", err)
		}
		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down tracer provider")
			shutdownCtx, cancel := cfg.Shutdown.Context()
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("failed to shutdown tracer provider: %w", err)
			}
			return nil
		})
	}

	var metricsHandler http.Handler
	if cfg.Telemetry.Metrics.Enabled {
		meterProvider, handler, err := telemetry.NewMeterProvider(serviceName)
		if err != nil {
			return err
		}
		metricsHandler = handler
		defer func() {
			shutdownCtx, cancel := cfg.Shutdown.Context()
			defer cancel()
			_ = meterProvider.Shutdown(shutdownCtx)
		}()
	}

	infra, err := app.SetupInfrastructure(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to set up infrastructure: %w", err)
	}
	defer infra.Close()

	deps, err := app.SetupDependencies(infra, cfg, metricsHandler, logger)
	if err != nil {
		return err
	}
	httpServer := app.SetupHttpServer(deps, cfg)

	// Start the HTTP server
	g.Go(func() error {
		logger.Info("HTTP server listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	// gracefully shutdown HTTP server on context cancellation
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := cfg.Shutdown.Context()
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	// Idle browsing sessions are dropped from memory; their carts stay in the slot.
	g.Go(func() error {
		return deps.Registry.Run(gCtx, cfg.Session.SweepInterval, cfg.Session.Idle)
	})

	if cfg.GRPC.Enabled {
		grpcServer, grpcHealth := app.SetupGrpcServer(cfg.GRPC.ReflectionEnabled)
		grpcHealth.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
		g.Go(func() error {
			grpcAddr := ":" + cfg.GRPC.Port
			lis, err := net.Listen("tcp", grpcAddr)
			if err != nil {
				return fmt.Errorf("failed to listen on gRPC port: %w", err)
			}
			logger.Info("gRPC health server listening", slog.String("addr", grpcAddr))
			return grpcServer.Serve(lis)
		})
		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down gRPC server...")
			grpcHealth.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
			stopped := make(chan struct{})
			go func() {
				grpcServer.GracefulStop()
				grpcHealth.Shutdown()
				close(stopped)
			}()
			select {
			case <-stopped:
				logger.Info("gRPC server stopped gracefully.")
				return nil
			case <-time.After(cfg.Shutdown.Timeout):
				logger.Warn("gRPC server graceful stop timed out. Forcing stop.")
				grpcServer.Stop()
				return fmt.Errorf("grpc server graceful stop timed out")
			}
		})
	}

	if cfg.Subscriber.Enabled && infra.JetStream != nil {
		notifier := notify.NewLogNotifier(logger)
		g.Go(func() error {
			logger.Info("Order desk subscriber started", slog.String("subject", cfg.Subscriber.Subject))
			return notify.Start(gCtx, infra.JetStream, cfg.Subscriber, notifier, logger)
		})
	}

	// Start the pprof server if enabled
	if cfg.PProf.Enabled {
		pprofServer := cfg.PProf.NewServer()
		g.Go(func() error {
			logger.Info("Pprof server listening", slog.String("addr", pprofServer.Addr))
			if err := pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("pprof server failed: %w", err)
			}
			return nil
		})
		// gracefully shutdown pprof server on context cancellation
		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down pprof server...")
			shutdownCtx, cancel := cfg.Shutdown.Context()
			defer cancel()
			return pprofServer.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}
