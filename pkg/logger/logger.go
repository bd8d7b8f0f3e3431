// Package logger builds the JSON slog loggers used by the services.
package logger

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/abgdnv/producttags/pkg/config"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"
)

// New returns a logger writing to w in the configured format and level. Every
// record carries the service name plus the trace and request IDs found in its
// context. Source locations are added at debug level.
func New(cfg config.LogConfig, service string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{
		AddSource: lvl == slog.LevelDebug,
		Level:     lvl,
	}
	var h slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(NewContextHandler(h)).With(slog.String("service", service))
}

// ParseLevel maps debug, warn and error to their slog levels. Anything else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ContextHandler decorates records with identifiers carried by the context.
type ContextHandler struct {
	slog.Handler
}

func NewContextHandler(handler slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: handler}
}

// Handle adds trace_id and span_id for a sampled or remote span, and request_id
// when the chi middleware has set one.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		r.AddAttrs(slog.String("request_id", reqID))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(group string) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithGroup(group)}
}
