// Package rest provides HTTP handlers for product-related operations.
package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	perrors "github.com/abgdnv/producttags/internal/errors"
	"github.com/abgdnv/producttags/internal/filter"
	"github.com/abgdnv/producttags/internal/service"
	"github.com/abgdnv/producttags/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service  service.ProductService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new instance of Handler with the provided service.
func NewHandler(service service.ProductService, logger *slog.Logger) *Handler {
	validate := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their JSON names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &Handler{
		service:  service,
		validate: validate,
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for the product API.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.FindAll)
			r.Post("/", h.Create)
			r.Post("/bulk-update", h.BulkUpdate)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.FindByID)
				r.Put("/", h.UpdateTag)
				r.Delete("/", h.DeleteByID)
			})
		})
		r.Get("/debug", h.Stats)
	})

	r.Get("/healthz", h.HealthCheck)
}

// FindByID retrieves a product by its ID.
func (h *Handler) FindByID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to find product by ID", "ID", id)
	found, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, fmt.Sprintf("Failed to retrieve product with ID %s", id))
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved product", "ID", found.ID, "Name", found.Name)
	web.RespondData(w, mLogger, http.StatusOK, found, "")
}

// FindAll retrieves the product list, optionally narrowed by the tag and search query parameters.
func (h *Handler) FindAll(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	query := r.URL.Query()
	criteria, err := filter.ParseCriteria(query.Get("tag"), query.Get("search"))
	if err != nil {
		mLogger.WarnContext(r.Context(), "Invalid filter", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, err.Error())
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to find all products", "tag", criteria.Tag, "search", criteria.Search)
	list, err := h.service.FindAll(r.Context())
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "Failed to fetch products")
		return
	}
	if !criteria.IsZero() {
		list = filter.Apply(list, criteria)
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved product list", "count", len(list))
	web.RespondData(w, mLogger, http.StatusOK, list, "")
}

// Create handles the creation of a new product.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var productCreateDto service.ProductCreateDto
	if !h.decodeAndValidate(w, r, mLogger, &productCreateDto) {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to create product", "product", productCreateDto)

	newProduct, err := h.service.Create(r.Context(), productCreateDto)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "Failed to create product")
		return
	}
	mLogger.InfoContext(r.Context(), "Product created successfully", "ID", newProduct.ID, "ExternalID", newProduct.ExternalID)
	web.RespondData(w, mLogger, http.StatusCreated, newProduct, "")
}

// UpdateTag changes the tag of one product.
func (h *Handler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	var tagUpdateDto service.TagUpdateDto
	if !h.decodeAndValidate(w, r, mLogger, &tagUpdateDto) {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to update product tag", "ID", id, "tag", *tagUpdateDto.Tag)

	updated, err := h.service.UpdateTag(r.Context(), id, *tagUpdateDto.Tag)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, fmt.Sprintf("Failed to update product with ID %s", id))
		return
	}
	mLogger.InfoContext(r.Context(), "Product tag updated successfully", "ID", updated.ID, "tag", updated.Tag)
	web.RespondData(w, mLogger, http.StatusOK, updated, "")
}

// BulkUpdate changes the tag of every product listed by external ID.
func (h *Handler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var bulkDto service.BulkUpdateDto
	if !h.decodeAndValidate(w, r, mLogger, &bulkDto) {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to bulk update tags", "externalIds", bulkDto.ExternalIDs, "tag", *bulkDto.Tag)

	result, err := h.service.UpdateTagsBulk(r.Context(), bulkDto.ExternalIDs, *bulkDto.Tag)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "Failed to update products")
		return
	}
	mLogger.InfoContext(r.Context(), "Product tags updated", "matched", result.MatchedCount, "modified", result.ModifiedCount)
	web.RespondData(w, mLogger, http.StatusOK, result, fmt.Sprintf("Updated %d products", result.ModifiedCount))
}

// DeleteByID deletes a product by its ID.
func (h *Handler) DeleteByID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to delete product", "ID", id)
	if err := h.service.DeleteByID(r.Context(), id); err != nil {
		h.respondServiceError(w, r, mLogger, err, fmt.Sprintf("Failed to delete product with ID %s", id))
		return
	}
	mLogger.InfoContext(r.Context(), "Product deleted successfully", "ID", id)
	web.RespondMessage(w, mLogger, http.StatusOK, "Product deleted")
}

// Stats reports store diagnostics.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "Failed to collect statistics")
		return
	}
	web.RespondData(w, mLogger, http.StatusOK, stats, "")
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// decodeAndValidate reads the JSON body into dst and runs struct validation.
// It writes the error response itself and returns false on failure.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		mLogger.WarnContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		if fields, ok := web.ValidationErrorMap(err); ok {
			mLogger.WarnContext(r.Context(), "Validation errors occurred", "errors", fields)
			web.RespondValidationErrors(w, mLogger, fields)
			return false
		}
		mLogger.ErrorContext(r.Context(), "Error validating request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// respondServiceError maps service errors to HTTP statuses.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, perrors.ErrProductNotFound):
		mLogger.WarnContext(r.Context(), "Product not found", "error", err)
		web.RespondError(w, mLogger, http.StatusNotFound, "Product not found")
	case errors.Is(err, perrors.ErrDuplicateExternalID):
		mLogger.WarnContext(r.Context(), "Duplicate external ID", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "A product with this externalId already exists")
	case errors.Is(err, perrors.ErrInvalidProduct),
		errors.Is(err, perrors.ErrInvalidTag),
		errors.Is(err, perrors.ErrEmptySelection):
		mLogger.WarnContext(r.Context(), "Invalid request", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, err.Error())
	default:
		mLogger.ErrorContext(r.Context(), fallback, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, fallback)
	}
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
