// Package main runs the product tagging service: REST API, HTML UI, gRPC health and event publishing.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abgdnv/producttags/internal/app"
	"github.com/abgdnv/producttags/internal/config"
	"github.com/abgdnv/producttags/internal/store"
	"github.com/abgdnv/producttags/pkg/bootstrap"
	"github.com/abgdnv/producttags/pkg/config/configloader"
	plog "github.com/abgdnv/producttags/pkg/logger"
	"github.com/abgdnv/producttags/pkg/messaging"
	pnats "github.com/abgdnv/producttags/pkg/nats"
	"github.com/abgdnv/producttags/pkg/probes"
	"github.com/abgdnv/producttags/pkg/server"
	"github.com/abgdnv/producttags/pkg/telemetry"
	"golang.org/x/sync/errgroup"
)

const serviceName = "product"

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run loads the configuration, connects to MongoDB and NATS, and serves HTTP, gRPC and pprof until ctx is done.
func run(ctx context.Context) error {
	cfg, cfgErr := configloader.Load[*config.Config](serviceName)
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := plog.New(cfg.Log, serviceName, os.Stdout)
	slog.SetDefault(logger)

	if cfg.Telemetry.Enabled {
		tp, err := telemetry.NewTracerProvider(ctx, serviceName, cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("failed to create tracer provider: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Error("failed to shutdown tracer provider", "error", err)
			}
		}()
	}
	if cfg.Metrics.Enabled {
		mp, err := telemetry.NewMeterProvider(serviceName)
		if err != nil {
			return fmt.Errorf("failed to create meter provider: %w", err)
		}
		defer func() {
			if err := mp.Shutdown(context.Background()); err != nil {
				logger.Error("failed to shutdown meter provider", "error", err)
			}
		}()
	}

	mongoClient, err := bootstrap.NewMongoClient(ctx, cfg.Mongo, cfg.Resilience.Retry, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to mongo: %w", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		if err := mongoClient.Disconnect(disconnectCtx); err != nil {
			logger.Error("failed to disconnect from mongo", "error", err)
		}
	}()
	logger.Info("Successfully connected to MongoDB!", "database", cfg.Mongo.Database)

	productStore := store.NewMongoStore(mongoClient.Database(cfg.Mongo.Database))
	if err := productStore.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	publisher, closePublisher, err := newPublisher(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	deps := app.SetupDependencies(productStore, publisher, cfg, logger)
	httpServer := app.SetupHttpServer(deps, cfg)
	grpcServer := app.SetupGrpcServer(deps, cfg.GRPC.ReflectionEnabled)

	serveCtx, stopServing := probes.Drain(ctx, cfg.Probes, cfg.Shutdown.ReadinessGrace, logger)
	defer stopServing()
	g, gCtx := errgroup.WithContext(serveCtx)

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
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	// Start the gRPC server
	g.Go(func() error {
		grpcAddr := ":" + cfg.GRPC.Port
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on gRPC port: %w", err)
		}
		logger.Info("gRPC server listening", slog.String("addr", grpcAddr))
		return grpcServer.Serve(lis)
	})
	// gracefully shutdown gRPC server on context cancellation
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down gRPC server...")
		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
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

	// Poll the store for the gRPC health service
	g.Go(func() error {
		deps.Health.Run(gCtx, cfg.GRPC.HealthInterval)
		return nil
	})

	// Keep the liveness file fresh while the store answers
	g.Go(func() error {
		probes.RunLiveness(gCtx, cfg.Probes, productStore.Ping, logger)
		return nil
	})

	// Evict idle UI sessions
	if deps.Sessions != nil {
		g.Go(func() error {
			deps.Sessions.Run(gCtx, cfg.UI.SessionTTL/2)
			return nil
		})
	}

	// Start the pprof server if enabled
	if cfg.PProf.Enabled {
		pprofServer := server.NewPprofServer(cfg.PProf)
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
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			return pprofServer.Shutdown(shutdownCtx)
		})
	}

	if err := probes.MarkReady(cfg.Probes); err != nil {
		logger.Warn("failed to create readiness file", "error", err)
	}
	defer func() {
		if err := probes.ClearReady(cfg.Probes); err != nil {
			logger.Warn("failed to remove readiness file", "error", err)
		}
	}()

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}

// newPublisher connects to NATS, makes sure the products stream exists and wraps the
// publisher in a circuit breaker. With NATS disabled events are dropped.
func newPublisher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (messaging.Publisher, func(), error) {
	if !cfg.Nats.Enabled {
		logger.Info("NATS is disabled, product events will not be published")
		return messaging.NoopPublisher{}, func() {}, nil
	}
	natsConn, err := pnats.NewClient(cfg.Nats.Url, cfg.Nats.Timeout, serviceName+"-service", logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create NATS connection: %w", err)
	}
	js, err := pnats.NewJetStreamContext(natsConn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}
	if _, err := pnats.EnsureStream(ctx, js, cfg.Nats.Stream.Name, []string{messaging.ProductsSubjects}, cfg.Nats.Stream.MaxAge); err != nil {
		natsConn.Close()
		return nil, nil, err
	}
	logger.Info("Connected to NATS", "stream", cfg.Nats.Stream.Name)
	publisher := pnats.NewBreakerPublisher(pnats.NewNatsPublisher(js), cfg.Resilience.CircuitBreaker)
	return publisher, func() {
		if err := natsConn.Drain(); err != nil {
			logger.Error("failed to drain NATS connection", "error", err)
		}
	}, nil
}
