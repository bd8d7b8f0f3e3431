package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// maxRequestIDLen bounds request IDs accepted from clients.
const maxRequestIDLen = 64

// RequestIDInjector makes sure every request carries an ID in chi's context key
// and echoes it in the X-Request-Id response header. An ID set by chi's RequestID
// middleware wins, then a client-supplied header, otherwise a UUID is generated.
func RequestIDInjector(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		reqID := middleware.GetReqID(ctx)
		if reqID == "" {
			reqID = strings.TrimSpace(r.Header.Get(middleware.RequestIDHeader))
			if reqID == "" || len(reqID) > maxRequestIDLen {
				reqID = uuid.NewString()
			}
			ctx = context.WithValue(ctx, middleware.RequestIDKey, reqID)
		}
		w.Header().Set(middleware.RequestIDHeader, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// StructuredLogger logs one record per request once the handler returns.
// Server errors are logged at error level and client errors at warn level.
// Successful requests to quietPaths, such as probes and metrics scrapes, drop
// to debug level.
func StructuredLogger(logger *slog.Logger, quietPaths ...string) func(next http.Handler) http.Handler {
	quiet := make(map[string]struct{}, len(quietPaths))
	for _, p := range quietPaths {
		quiet[p] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				level := slog.LevelInfo
				switch {
				case status >= http.StatusInternalServerError:
					level = slog.LevelError
				case status >= http.StatusBadRequest:
					level = slog.LevelWarn
				default:
					if _, ok := quiet[r.URL.Path]; ok {
						level = slog.LevelDebug
					}
				}
				logger.Log(r.Context(), level, "Request completed",
					"method", r.Method,
					"path", r.URL.Path,
					"query", r.URL.RawQuery,
					"status", status,
					"bytes_written", ww.BytesWritten(),
					"duration_ms", float64(time.Since(start).Nanoseconds())/1e6,
					"remote_addr", r.RemoteAddr,
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// Recoverer turns a handler panic into a 500 error envelope and logs the
// panic value with its stack. http.ErrAbortHandler is re-panicked.
func Recoverer(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				logger.ErrorContext(r.Context(), "Panic recovered",
					"panic", fmt.Sprint(rvr),
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				RespondError(w, logger, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
