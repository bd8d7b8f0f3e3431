package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/producttags/pkg/config"
	"github.com/abgdnv/producttags/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewHTTPServer binds handler to the configured port with the configured limits.
func NewHTTPServer(cfg config.HTTPConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.Timeout.Read,
		WriteTimeout:      cfg.Timeout.Write,
		IdleTimeout:       cfg.Timeout.Idle,
		ReadHeaderTimeout: cfg.Timeout.ReadHeader,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
}

// NewChiRouter returns a router that normalizes paths, assigns request IDs,
// logs every request and turns panics into 500 responses. Successful requests
// to quietPaths are logged at debug level.
func NewChiRouter(logger *slog.Logger, quietPaths ...string) *chi.Mux {
	mux := chi.NewRouter()
	mux.Use(middleware.CleanPath)
	mux.Use(middleware.StripSlashes)
	mux.Use(web.RequestIDInjector)
	mux.Use(web.StructuredLogger(logger, quietPaths...))
	mux.Use(web.Recoverer(logger))
	return mux
}
