// Package ui serves the server-rendered tagging page and its form actions.
package ui

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	perrors "github.com/abgdnv/producttags/internal/errors"
	"github.com/abgdnv/producttags/internal/filter"
	"github.com/abgdnv/producttags/internal/model"
	"github.com/abgdnv/producttags/internal/service"
	"github.com/abgdnv/producttags/internal/tagging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"pending": func(r tagging.Row) bool { return r.State == tagging.Pending },
	"failure": func(n tagging.Notification) bool { return n.Kind == tagging.Failure },
}).ParseFS(templateFS, "templates/index.html"))

type Handler struct {
	service    service.ProductService
	sessions   *Sessions
	cookieName string
	logger     *slog.Logger
}

func NewHandler(service service.ProductService, sessions *Sessions, cookieName string, logger *slog.Logger) *Handler {
	return &Handler{
		service:    service,
		sessions:   sessions,
		cookieName: cookieName,
		logger:     logger.With("component", "ui"),
	}
}

// RegisterRoutes registers the page and its form actions.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Index)
	r.Route("/ui", func(r chi.Router) {
		r.Post("/products", h.Create)
		r.Post("/bulk", h.BulkUpdate)
		r.Route("/rows/{id}", func(r chi.Router) {
			r.Post("/select", h.Select)
			r.Post("/confirm", h.Confirm)
			r.Post("/cancel", h.Cancel)
		})
	})
}

type filterOption struct {
	Value    string
	Label    string
	Selected bool
}

type pageData struct {
	Rows          []tagging.Row
	Shown         int
	Total         int
	Pending       int
	Search        string
	Filtered      bool
	FilterOptions []filterOption
	Tags          []model.Tag
	Notices       []tagging.Notification
	Query         string
}

// Index renders the product table for the current filter.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	board := h.board(w, r)

	query := r.URL.Query()
	criteria, err := filter.ParseCriteria(query.Get("tag"), query.Get("search"))
	if err != nil {
		board.Notify(tagging.Failure, err.Error())
		criteria = filter.Criteria{Tag: filter.AllTags, Search: strings.TrimSpace(query.Get("search"))}
	}

	status := http.StatusOK
	products, err := h.service.FindAll(r.Context())
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Failed to fetch products", "error", err)
		board.Notify(tagging.Failure, "Failed to load products")
		status = http.StatusInternalServerError
		products = nil
	} else {
		board.Load(products)
	}

	shown := filter.Apply(products, criteria)
	data := pageData{
		Rows:          board.Rows(shown),
		Shown:         len(shown),
		Total:         len(products),
		Pending:       board.PendingCount(),
		Search:        criteria.Search,
		Filtered:      !criteria.IsZero(),
		FilterOptions: filterOptions(criteria.Tag),
		Tags:          model.Tags,
		Notices:       board.Drain(),
		Query:         filterQuery(criteria),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, data); err != nil {
		mLogger.ErrorContext(r.Context(), "Failed to render page", "error", err)
	}
}

// Select records a pending tag for one row.
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	board := h.board(w, r)
	id := r.PathValue("id")
	tag, err := parseTag(r.PostFormValue("tag"))
	if err == nil {
		h.ensureRow(r.Context(), board, id)
		err = board.Select(id, tag)
	}
	if err != nil {
		h.loggerWithReqID(r).WarnContext(r.Context(), "Failed to select tag", "ID", id, "error", err)
		board.Notify(tagging.Failure, rowError(err))
	}
	h.redirect(w, r)
}

// Confirm persists the pending tag of one row.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	board := h.board(w, r)
	id := r.PathValue("id")
	h.ensureRow(r.Context(), board, id)
	if err := board.Confirm(r.Context(), id); err != nil {
		mLogger.WarnContext(r.Context(), "Failed to confirm tag", "ID", id, "error", err)
		if errors.Is(err, tagging.ErrUnknownRow) {
			board.Notify(tagging.Failure, rowError(err))
		}
	}
	h.redirect(w, r)
}

// Cancel drops the pending tag of one row.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	board := h.board(w, r)
	board.Cancel(r.PathValue("id"))
	h.redirect(w, r)
}

// Create adds a product from the create form.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	board := h.board(w, r)

	dto, err := parseCreateForm(r)
	if err == nil {
		var created *service.ProductDto
		created, err = h.service.Create(r.Context(), dto)
		if err == nil {
			mLogger.InfoContext(r.Context(), "Product created", "ID", created.ID, "ExternalID", created.ExternalID)
			board.Notify(tagging.Success, fmt.Sprintf("Product %d created", created.ExternalID))
		}
	}
	if err != nil {
		mLogger.WarnContext(r.Context(), "Failed to create product", "error", err)
		if errors.Is(err, perrors.ErrDuplicateExternalID) {
			board.Notify(tagging.Failure, "A product with this external ID already exists")
		} else {
			board.Notify(tagging.Failure, fmt.Sprintf("Failed to create product: %v", err))
		}
	}
	h.redirect(w, r)
}

// BulkUpdate applies one tag to the products listed in the bulk form.
func (h *Handler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	board := h.board(w, r)

	ids, err := parseExternalIDs(r.PostFormValue("externalIds"))
	var tag model.Tag
	if err == nil {
		tag, err = parseTag(r.PostFormValue("tag"))
	}
	if err != nil {
		board.Notify(tagging.Failure, err.Error())
		h.redirect(w, r)
		return
	}

	result, err := h.service.UpdateTagsBulk(r.Context(), ids, tag)
	switch {
	case errors.Is(err, perrors.ErrProductNotFound):
		board.Notify(tagging.Failure, "No products matched the given external IDs")
	case err != nil:
		mLogger.ErrorContext(r.Context(), "Bulk update failed", "error", err)
		board.Notify(tagging.Failure, fmt.Sprintf("Bulk update failed: %v", err))
	default:
		mLogger.InfoContext(r.Context(), "Bulk update applied", "matched", result.MatchedCount, "modified", result.ModifiedCount)
		board.Notify(tagging.Success, fmt.Sprintf("Updated %d products (%d matched)", result.ModifiedCount, result.MatchedCount))
	}
	h.redirect(w, r)
}

// board returns the caller's board, issuing a session cookie when needed.
func (h *Handler) board(w http.ResponseWriter, r *http.Request) *tagging.Board {
	var current string
	if c, err := r.Cookie(h.cookieName); err == nil {
		current = c.Value
	}
	sid, board, created := h.sessions.Acquire(current)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     h.cookieName,
			Value:    sid,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return board
}

// ensureRow loads the product list when id is not on the board yet, e.g. after the session expired.
func (h *Handler) ensureRow(ctx context.Context, board *tagging.Board, id string) {
	if _, ok := board.Row(id); ok {
		return
	}
	products, err := h.service.FindAll(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to reload products", "error", err)
		return
	}
	board.Load(products)
}

// redirect sends the browser back to the page, keeping the filter query.
func (h *Handler) redirect(w http.ResponseWriter, r *http.Request) {
	target := "/"
	q := r.URL.Query()
	kept := url.Values{}
	for _, key := range []string{"tag", "search"} {
		if v := q.Get(key); v != "" {
			kept.Set(key, v)
		}
	}
	if len(kept) > 0 {
		target += "?" + kept.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}

func filterOptions(selected filter.TagFilter) []filterOption {
	opts := []filterOption{{Value: filter.AllTags.String(), Label: "All", Selected: selected == filter.AllTags}}
	for _, t := range model.Tags {
		f := filter.Only(t)
		opts = append(opts, filterOption{Value: f.String(), Label: t.String(), Selected: selected == f})
	}
	return opts
}

// filterQuery is appended to form actions so the redirect can restore the filter.
func filterQuery(c filter.Criteria) string {
	if c.IsZero() {
		return ""
	}
	v := url.Values{}
	v.Set("tag", c.Tag.String())
	if c.Search != "" {
		v.Set("search", c.Search)
	}
	return "?" + v.Encode()
}

func parseTag(raw string) (model.Tag, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || !model.Tag(n).Valid() {
		return 0, fmt.Errorf("%w: %q", perrors.ErrInvalidTag, raw)
	}
	return model.Tag(n), nil
}

func parseCreateForm(r *http.Request) (service.ProductCreateDto, error) {
	raw := strings.TrimSpace(r.PostFormValue("externalId"))
	externalID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return service.ProductCreateDto{}, fmt.Errorf("%w: external ID %q is not a number", perrors.ErrInvalidProduct, raw)
	}
	dto := service.ProductCreateDto{ExternalID: externalID, Name: r.PostFormValue("name")}
	if rawTag := r.PostFormValue("tag"); rawTag != "" {
		tag, err := parseTag(rawTag)
		if err != nil {
			return service.ProductCreateDto{}, err
		}
		dto.Tag = &tag
	}
	return dto, nil
}

// parseExternalIDs accepts IDs separated by commas and/or whitespace.
func parseExternalIDs(raw string) ([]int64, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(fields) == 0 {
		return nil, perrors.ErrEmptySelection
	}
	ids := make([]int64, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid external ID %q", f)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func rowError(err error) string {
	if errors.Is(err, tagging.ErrUnknownRow) {
		return "Product not found"
	}
	return err.Error()
}
