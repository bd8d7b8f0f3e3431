// Package app wires the product service together.
package app

import (
	"log/slog"
	"net/http"

	"github.com/abgdnv/producttags/internal/config"
	"github.com/abgdnv/producttags/internal/service"
	"github.com/abgdnv/producttags/internal/store"
	grpcImpl "github.com/abgdnv/producttags/internal/transport/grpc"
	"github.com/abgdnv/producttags/internal/transport/rest"
	"github.com/abgdnv/producttags/internal/transport/ui"
	"github.com/abgdnv/producttags/pkg/messaging"
	"github.com/abgdnv/producttags/pkg/server"
	"github.com/abgdnv/producttags/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type Dependencies struct {
	ProductService service.ProductService
	Store          store.ProductStore
	Sessions       *ui.Sessions
	Health         *grpcImpl.HealthServer
	Logger         *slog.Logger
	CookieName     string
	MetricsPath    string
}

// SetupDependencies builds the service graph on top of productStore.
// A nil publisher disables event publication.
func SetupDependencies(productStore store.ProductStore, publisher messaging.Publisher, cfg *config.Config, logger *slog.Logger) *Dependencies {
	pService := service.NewService(productStore, publisher)
	deps := &Dependencies{
		ProductService: pService,
		Store:          productStore,
		Health:         grpcImpl.NewHealthServer(productStore, cfg.Mongo.OperationTimeout, logger),
		Logger:         logger,
		CookieName:     cfg.UI.CookieName,
	}
	if cfg.UI.Enabled {
		deps.Sessions = ui.NewSessions(pService, cfg.UI.SessionTTL)
	}
	if cfg.Metrics.Enabled {
		deps.MetricsPath = cfg.Metrics.Path
	}
	return deps
}

// SetupHttpHandler initializes the HTTP routes and middleware of the product service.
// Used by E2E tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	quiet := []string{"/livez", "/readyz", "/healthz"}
	if deps.MetricsPath != "" {
		quiet = append(quiet, deps.MetricsPath)
	}
	mux := server.NewChiRouter(deps.Logger, quiet...)
	wireRoutes(mux, deps)
	return otelhttp.NewHandler(mux, "product-service")
}

// wireRoutes sets up the HTTP routes for the product service.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	productHandler := rest.NewHandler(deps.ProductService, deps.Logger)
	productHandler.RegisterRoutes(mux)

	mux.Get("/livez", web.Live)
	mux.Get("/readyz", web.Ready(deps.Logger, deps.Store.Ping))

	if deps.Sessions != nil {
		uiHandler := ui.NewHandler(deps.ProductService, deps.Sessions, deps.CookieName, deps.Logger)
		uiHandler.RegisterRoutes(mux)
	}
	if deps.MetricsPath != "" {
		mux.Handle(deps.MetricsPath, promhttp.Handler())
	}
}

// SetupHttpServer creates and configures an HTTP server for the product service.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	handler := SetupHttpHandler(deps)

	return server.NewHTTPServer(cfg.HTTPServer, handler)
}

// SetupGrpcServer initializes the gRPC server exposing the health service.
func SetupGrpcServer(deps *Dependencies, reflectionEnabled bool) *grpc.Server {
	healthRegisterFunc := func(s *grpc.Server) {
		healthpb.RegisterHealthServer(s, deps.Health)
	}
	return server.NewGRPCServer(deps.Logger, reflectionEnabled, healthRegisterFunc)
}
