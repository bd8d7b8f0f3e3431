// Package main runs the audit service, which logs every product event published on JetStream.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/abgdnv/producttags/internal/config"
	"github.com/abgdnv/producttags/internal/subscriber"
	"github.com/abgdnv/producttags/pkg/config/configloader"
	plog "github.com/abgdnv/producttags/pkg/logger"
	"github.com/abgdnv/producttags/pkg/messaging"
	"github.com/abgdnv/producttags/pkg/nats"
	"github.com/abgdnv/producttags/pkg/probes"
	"github.com/abgdnv/producttags/pkg/server"
	"github.com/abgdnv/producttags/pkg/telemetry"
	natsgo "github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"
)

const serviceName = "audit"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run initializes the application, starts the NATS subscriber, and optionally starts the pprof server if enabled.
func run(ctx context.Context) error {
	cfg, cfgErr := configloader.Load[*config.AuditConfig](serviceName)
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

	natsConn, err := nats.NewClient(cfg.Nats.Url, cfg.Nats.Timeout, serviceName+"-service", logger)
	if err != nil {
		return fmt.Errorf("failed to create NATS connection: %w", err)
	}
	defer natsConn.Close()
	js, err := nats.NewJetStreamContext(natsConn)
	if err != nil {
		return fmt.Errorf("failed to get JetStream context: %w", err)
	}
	if _, err := nats.EnsureStream(ctx, js, cfg.Nats.Stream.Name, []string{messaging.ProductsSubjects}, cfg.Nats.Stream.MaxAge); err != nil {
		return err
	}

	serveCtx, stopServing := probes.Drain(ctx, cfg.Probes, cfg.Shutdown.ReadinessGrace, logger)
	defer stopServing()
	g, gCtx := errgroup.WithContext(serveCtx)

	g.Go(func() error {
		logger.Info("NATS subscriber started", "stream", cfg.Subscriber.Stream, "consumer", cfg.Subscriber.Consumer)
		err := subscriber.Start(gCtx, js, cfg.Subscriber, logger)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("subscriber failed", "error", err)
			return err
		}
		logger.Info("subscriber stopped gracefully.")
		return nil
	})

	g.Go(func() error {
		probes.RunLiveness(gCtx, cfg.Probes, func(context.Context) error {
			if status := natsConn.Status(); status != natsgo.CONNECTED {
				return fmt.Errorf("nats connection is %s", status)
			}
			return nil
		}, logger)
		return nil
	})

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
			logger.Info("Shutting down pprof server")
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

	if err := g.Wait(); err != nil {
		if !errors.Is(err, context.Canceled) {
			return fmt.Errorf("errgroup encountered an error: %w", err)
		}
	}

	return nil
}
