package web

import (
	"context"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"
)

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

// Live answers liveness probes.
func Live(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Ready answers readiness probes: 200 when every check passes, 503 otherwise.
func Ready(logger *slog.Logger, checks ...Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eg, ctx := errgroup.WithContext(r.Context())
		for _, check := range checks {
			eg.Go(func() error {
				return check(ctx)
			})
		}
		if err := eg.Wait(); err != nil {
			logger.ErrorContext(r.Context(), "Readiness probe failed", "error", err)
			http.Error(w, "Service Unavailable: dependency is not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
