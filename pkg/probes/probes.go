// Package probes maintains the files checked by exec-based readiness and liveness probes.
package probes

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/abgdnv/producttags/pkg/config"
)

// Check reports whether the process is healthy.
type Check func(ctx context.Context) error

// MarkReady creates the readiness file.
func MarkReady(cfg config.ProbesConfig) error {
	return touch(cfg.ReadinessFileName)
}

// ClearReady removes the readiness file. A missing file is not an error.
func ClearReady(cfg config.ProbesConfig) error {
	return remove(cfg.ReadinessFileName)
}

// Drain returns a context that outlives ctx by grace. Once ctx is done the
// readiness file is removed, and the returned context is canceled after grace
// has passed. Servers bound to it keep answering in-flight traffic meanwhile.
func Drain(ctx context.Context, cfg config.ProbesConfig, grace time.Duration, logger *slog.Logger) (context.Context, context.CancelFunc) {
	drainCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	go func() {
		select {
		case <-ctx.Done():
		case <-drainCtx.Done():
			return
		}
		if err := ClearReady(cfg); err != nil {
			logger.Warn("failed to remove readiness file", "error", err)
		}
		if grace > 0 {
			logger.Info("Draining before shutdown", "grace", grace)
			t := time.NewTimer(grace)
			defer t.Stop()
			select {
			case <-t.C:
			case <-drainCtx.Done():
			}
		}
		cancel()
	}()
	return drainCtx, cancel
}

// RunLiveness touches the liveness file every interval while check passes.
// The file is removed when ctx is done.
func RunLiveness(ctx context.Context, cfg config.ProbesConfig, check Check, logger *slog.Logger) {
	ticker := time.NewTicker(cfg.LivenessInterval)
	defer ticker.Stop()
	defer func() {
		if err := remove(cfg.LivenessFileName); err != nil {
			logger.Warn("failed to remove liveness file", "error", err)
		}
	}()

	beat := func() {
		if err := check(ctx); err != nil {
			logger.Warn("liveness check failed", "error", err)
			return
		}
		if err := touch(cfg.LivenessFileName); err != nil {
			logger.Error("failed to update liveness file", "error", err)
		}
	}
	beat()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			beat()
		}
	}
}

func touch(name string) error {
	now := time.Now()
	if err := os.Chtimes(name, now, now); err == nil {
		return nil
	}
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	return f.Close()
}

func remove(name string) error {
	if err := os.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
