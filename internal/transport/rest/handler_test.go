package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	perrors "github.com/abgdnv/producttags/internal/errors"
	"github.com/abgdnv/producttags/internal/model"
	"github.com/abgdnv/producttags/internal/service"
	"github.com/abgdnv/producttags/internal/store"
	"github.com/abgdnv/producttags/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockProductService is a mock implementation of the ProductService interface
type mockProductService struct {
	product  *service.ProductDto
	products []service.ProductDto
	bulk     *service.BulkUpdateResult
	stats    *service.StatsDto
	error    error

	gotTag model.Tag
	gotIDs []int64
}

func (m *mockProductService) FindByID(_ context.Context, _ string) (*service.ProductDto, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.product, nil
}

func (m *mockProductService) FindAll(_ context.Context) ([]service.ProductDto, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.products, nil
}

func (m *mockProductService) Create(_ context.Context, _ service.ProductCreateDto) (*service.ProductDto, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.product, nil
}

func (m *mockProductService) UpdateTag(_ context.Context, _ string, tag model.Tag) (*service.ProductDto, error) {
	m.gotTag = tag
	if m.error != nil {
		return nil, m.error
	}
	return m.product, nil
}

func (m *mockProductService) UpdateTagsBulk(_ context.Context, ids []int64, tag model.Tag) (*service.BulkUpdateResult, error) {
	m.gotIDs = ids
	m.gotTag = tag
	if m.error != nil {
		return nil, m.error
	}
	return m.bulk, nil
}

func (m *mockProductService) DeleteByID(_ context.Context, _ string) error {
	return m.error
}

func (m *mockProductService) Stats(_ context.Context) (*service.StatsDto, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.stats, nil
}

const mockID = "65f1c2a9e4b0a1b2c3d4e5f6"

var createdAt = time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)

func sampleProduct() *service.ProductDto {
	return &service.ProductDto{ID: mockID, ExternalID: 1001, Name: "Blue Widget", Tag: model.TagUnclassified, CreatedAt: createdAt, UpdatedAt: createdAt}
}

// toJSON is a helper function to convert a struct to JSON string
func toJSON(t *testing.T, v any) string {
	t.Helper()
	bytes, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal to JSON: %v", err)
	}
	return string(bytes)
}

func errorBody(t *testing.T, message string) string {
	return toJSON(t, web.Envelope{Success: false, Error: message})
}

func newTestRouter(svc service.ProductService) http.Handler {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	r := chi.NewRouter()
	NewHandler(svc, logger).RegisterRoutes(r)
	return r
}

func Test_ProductAPI_FindByID(t *testing.T) {
	testCases := []struct {
		name         string
		mockService  mockProductService
		productID    string
		expectedCode int
		expectedBody string
	}{
		{
			name:         "Success - product found",
			mockService:  mockProductService{product: sampleProduct()},
			productID:    mockID,
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, web.Envelope{Success: true, Data: sampleProduct()}),
		},
		{
			name:         "Error - invalid id",
			productID:    "123-invalid-id",
			expectedCode: http.StatusBadRequest,
			expectedBody: errorBody(t, "Invalid ID: 123-invalid-id"),
		},
		{
			name:         "Error - product not found",
			mockService:  mockProductService{error: perrors.ErrProductNotFound},
			productID:    mockID,
			expectedCode: http.StatusNotFound,
			expectedBody: errorBody(t, "Product not found"),
		},
		{
			name:         "Error - store unavailable",
			mockService:  mockProductService{error: fmt.Errorf("ping: %w", perrors.ErrStoreUnavailable)},
			productID:    mockID,
			expectedCode: http.StatusInternalServerError,
			expectedBody: errorBody(t, "Failed to retrieve product with ID "+mockID),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
			api := NewHandler(&tc.mockService, logger)
			req := httptest.NewRequest(http.MethodGet, "/api/products/"+tc.productID, nil)
			req.SetPathValue("id", tc.productID)
			rr := httptest.NewRecorder()

			// when
			api.FindByID(rr, req)

			// then
			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
		})
	}
}

func Test_ProductAPI_FindAll(t *testing.T) {
	list := []service.ProductDto{
		{ID: "a", ExternalID: 101, Name: "Red Box", Tag: model.TagFolded, CreatedAt: createdAt, UpdatedAt: createdAt},
		{ID: "b", ExternalID: 202, Name: "Blue Box", Tag: model.TagStandard, CreatedAt: createdAt, UpdatedAt: createdAt},
		{ID: "c", ExternalID: 1010, Name: "Green Bag", Tag: model.TagUnclassified, CreatedAt: createdAt, UpdatedAt: createdAt},
	}
	testCases := []struct {
		name         string
		mockService  mockProductService
		query        string
		expectedCode int
		expectedBody string
	}{
		{
			name:         "Success - all products",
			mockService:  mockProductService{products: list},
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, web.Envelope{Success: true, Data: list}),
		},
		{
			name:         "Success - empty list",
			mockService:  mockProductService{products: []service.ProductDto{}},
			expectedCode: http.StatusOK,
			expectedBody: `{"success":true,"data":[]}`,
		},
		{
			name:         "Success - filtered by tag and search",
			mockService:  mockProductService{products: list},
			query:        "?tag=1&search=box",
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, web.Envelope{Success: true, Data: list[:1]}),
		},
		{
			name:         "Success - all tags with external id search",
			mockService:  mockProductService{products: list},
			query:        "?tag=-2&search=10",
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, web.Envelope{Success: true, Data: []service.ProductDto{list[0], list[2]}}),
		},
		{
			name:         "Error - bad tag filter",
			mockService:  mockProductService{products: list},
			query:        "?tag=9",
			expectedCode: http.StatusBadRequest,
			expectedBody: errorBody(t, "invalid tag filter: 9"),
		},
		{
			name:         "Error - service error",
			mockService:  mockProductService{error: errors.New("boom")},
			expectedCode: http.StatusInternalServerError,
			expectedBody: errorBody(t, "Failed to fetch products"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
			api := NewHandler(&tc.mockService, logger)
			req := httptest.NewRequest(http.MethodGet, "/api/products"+tc.query, nil)
			rr := httptest.NewRecorder()

			// when
			api.FindAll(rr, req)

			// then
			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
		})
	}
}

func Test_ProductAPI_Create(t *testing.T) {
	testCases := []struct {
		name         string
		mockService  mockProductService
		body         string
		expectedCode int
		expectedBody string
	}{
		{
			name:         "Success - product created",
			mockService:  mockProductService{product: sampleProduct()},
			body:         `{"externalId":1001,"name":"Blue Widget"}`,
			expectedCode: http.StatusCreated,
			expectedBody: toJSON(t, web.Envelope{Success: true, Data: sampleProduct()}),
		},
		{
			name:         "Error - malformed body",
			body:         `{"externalId":`,
			expectedCode: http.StatusBadRequest,
			expectedBody: errorBody(t, "Invalid request body"),
		},
		{
			name:         "Error - validation",
			body:         `{"externalId":0,"name":"","tag":4}`,
			expectedCode: http.StatusBadRequest,
			expectedBody: toJSON(t, web.Envelope{
				Success: false,
				Error:   "Validation failed",
				ValidationErrors: map[string]string{
					"externalId": "failed on rule: required",
					"name":       "failed on rule: required",
					"tag":        "failed on rule: oneof",
				},
			}),
		},
		{
			name:         "Error - name too long rejected by service",
			mockService:  mockProductService{error: fmt.Errorf("%w: name must be at most 200 characters", perrors.ErrInvalidProduct)},
			body:         `{"externalId":1,"name":"` + strings.Repeat("x", 201) + `"}`,
			expectedCode: http.StatusBadRequest,
			expectedBody: errorBody(t, "invalid product data: name must be at most 200 characters"),
		},
		{
			name:         "Error - duplicate external id",
			mockService:  mockProductService{error: fmt.Errorf("failed to create product: %w", perrors.ErrDuplicateExternalID)},
			body:         `{"externalId":1001,"name":"Blue Widget"}`,
			expectedCode: http.StatusBadRequest,
			expectedBody: errorBody(t, "A product with this externalId already exists"),
		},
		{
			name:         "Error - blank name rejected by service",
			mockService:  mockProductService{error: fmt.Errorf("%w: name must not be empty", perrors.ErrInvalidProduct)},
			body:         `{"externalId":1001,"name":"   "}`,
			expectedCode: http.StatusBadRequest,
			expectedBody: errorBody(t, "invalid product data: name must not be empty"),
		},
		{
			name:         "Error - service error",
			mockService:  mockProductService{error: errors.New("boom")},
			body:         `{"externalId":1001,"name":"Blue Widget"}`,
			expectedCode: http.StatusInternalServerError,
			expectedBody: errorBody(t, "Failed to create product"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
			api := NewHandler(&tc.mockService, logger)
			req := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()

			// when
			api.Create(rr, req)

			// then
			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
		})
	}
}

func Test_ProductAPI_CreateNameLengthAfterTrim(t *testing.T) {
	testCases := []struct {
		name         string
		productName  string
		expectedCode int
		expectedName string
		expectedErr  string
	}{
		{
			name:         "padded 200 characters accepted",
			productName:  "  " + strings.Repeat("a", 200) + "  ",
			expectedCode: http.StatusCreated,
			expectedName: strings.Repeat("a", 200),
		},
		{
			name:         "200 multi-byte runes accepted",
			productName:  strings.Repeat("é", 200),
			expectedCode: http.StatusCreated,
			expectedName: strings.Repeat("é", 200),
		},
		{
			name:         "201 characters rejected",
			productName:  strings.Repeat("a", 201),
			expectedCode: http.StatusBadRequest,
			expectedErr:  "invalid product data: name must be at most 200 characters",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
			api := NewHandler(service.NewService(store.NewMemoryStore(), nil), logger)
			body := toJSON(t, map[string]any{"externalId": 9, "name": tc.productName})
			req := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(body))
			rr := httptest.NewRecorder()

			// when
			api.Create(rr, req)

			// then
			require.Equal(t, tc.expectedCode, rr.Code, rr.Body.String())
			var got struct {
				Data  service.ProductDto `json:"data"`
				Error string             `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
			if tc.expectedErr != "" {
				assert.Equal(t, tc.expectedErr, got.Error)
				return
			}
			assert.Equal(t, tc.expectedName, got.Data.Name)
			assert.Equal(t, int64(9), got.Data.ExternalID)
		})
	}
}

func Test_ProductAPI_UpdateTag(t *testing.T) {
	updated := sampleProduct()
	updated.Tag = model.TagFolded

	testCases := []struct {
		name         string
		mockService  mockProductService
		productID    string
		body         string
		expectedCode int
		expectedBody string
		expectedTag  model.Tag
	}{
		{
			name:         "Success - tag updated",
			mockService:  mockProductService{product: updated},
			productID:    mockID,
			body:         `{"tag":1}`,
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, web.Envelope{Success: true, Data: updated}),
			expectedTag:  model.TagFolded,
		},
		{
			name:         "Success - tag zero is a value, not missing",
			mockService:  mockProductService{product: sampleProduct()},
			productID:    mockID,
			body:         `{"tag":0}`,
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, web.Envelope{Success: true, Data: sampleProduct()}),
			expectedTag:  model.TagStandard,
		},
		{
			name:         "Error - missing tag",
			productID:    mockID,
			body:         `{}`,
			expectedCode: http.StatusBadRequest,
			expectedBody: toJSON(t, web.Envelope{
				Success:          false,
				Error:            "Validation failed",
				ValidationErrors: map[string]string{"tag": "failed on rule: required"},
			}),
		},
		{
			name:         "Error - invalid tag",
			productID:    mockID,
			body:         `{"tag":3}`,
			expectedCode: http.StatusBadRequest,
			expectedBody: toJSON(t, web.Envelope{
				Success:          false,
				Error:            "Validation failed",
				ValidationErrors: map[string]string{"tag": "failed on rule: oneof"},
			}),
		},
		{
			name:         "Error - invalid id",
			productID:    "nope",
			body:         `{"tag":1}`,
			expectedCode: http.StatusBadRequest,
			expectedBody: errorBody(t, "Invalid ID: nope"),
		},
		{
			name:         "Error - not found",
			mockService:  mockProductService{error: perrors.ErrProductNotFound},
			productID:    mockID,
			body:         `{"tag":1}`,
			expectedCode: http.StatusNotFound,
			expectedBody: errorBody(t, "Product not found"),
			expectedTag:  model.TagFolded,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
			api := NewHandler(&tc.mockService, logger)
			req := httptest.NewRequest(http.MethodPut, "/api/products/"+tc.productID, strings.NewReader(tc.body))
			req.SetPathValue("id", tc.productID)
			rr := httptest.NewRecorder()

			// when
			api.UpdateTag(rr, req)

			// then
			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
			assert.Equal(t, tc.expectedTag, tc.mockService.gotTag)
		})
	}
}

func Test_ProductAPI_BulkUpdate(t *testing.T) {
	result := &service.BulkUpdateResult{
		MatchedCount:  2,
		ModifiedCount: 1,
		Products:      []service.ProductDto{*sampleProduct()},
	}
	testCases := []struct {
		name         string
		mockService  mockProductService
		body         string
		expectedCode int
		expectedBody string
	}{
		{
			name:         "Success - partial match",
			mockService:  mockProductService{bulk: result},
			body:         `{"externalIds":[1,2,99],"tag":1}`,
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, web.Envelope{Success: true, Data: result, Message: "Updated 1 products"}),
		},
		{
			name:         "Error - empty list",
			body:         `{"externalIds":[],"tag":1}`,
			expectedCode: http.StatusBadRequest,
			expectedBody: toJSON(t, web.Envelope{
				Success:          false,
				Error:            "Validation failed",
				ValidationErrors: map[string]string{"externalIds": "failed on rule: min"},
			}),
		},
		{
			name:         "Error - missing fields",
			body:         `{}`,
			expectedCode: http.StatusBadRequest,
			expectedBody: toJSON(t, web.Envelope{
				Success: false,
				Error:   "Validation failed",
				ValidationErrors: map[string]string{
					"externalIds": "failed on rule: required",
					"tag":         "failed on rule: required",
				},
			}),
		},
		{
			name:         "Error - no product matched",
			mockService:  mockProductService{error: fmt.Errorf("no match: %w", perrors.ErrProductNotFound)},
			body:         `{"externalIds":[42],"tag":0}`,
			expectedCode: http.StatusNotFound,
			expectedBody: errorBody(t, "Product not found"),
		},
		{
			name:         "Error - service error",
			mockService:  mockProductService{error: errors.New("boom")},
			body:         `{"externalIds":[1],"tag":0}`,
			expectedCode: http.StatusInternalServerError,
			expectedBody: errorBody(t, "Failed to update products"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
			api := NewHandler(&tc.mockService, logger)
			req := httptest.NewRequest(http.MethodPost, "/api/products/bulk-update", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()

			// when
			api.BulkUpdate(rr, req)

			// then
			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
		})
	}
}

func Test_ProductAPI_DeleteByID(t *testing.T) {
	testCases := []struct {
		name         string
		mockService  mockProductService
		productID    string
		expectedCode int
		expectedBody string
	}{
		{
			name:         "Success - deleted",
			productID:    mockID,
			expectedCode: http.StatusOK,
			expectedBody: `{"success":true,"message":"Product deleted"}`,
		},
		{
			name:         "Error - not found",
			mockService:  mockProductService{error: perrors.ErrProductNotFound},
			productID:    mockID,
			expectedCode: http.StatusNotFound,
			expectedBody: errorBody(t, "Product not found"),
		},
		{
			name:         "Error - invalid id",
			productID:    "xyz",
			expectedCode: http.StatusBadRequest,
			expectedBody: errorBody(t, "Invalid ID: xyz"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
			api := NewHandler(&tc.mockService, logger)
			req := httptest.NewRequest(http.MethodDelete, "/api/products/"+tc.productID, nil)
			req.SetPathValue("id", tc.productID)
			rr := httptest.NewRecorder()

			// when
			api.DeleteByID(rr, req)

			// then
			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
		})
	}
}

func Test_ProductAPI_Stats(t *testing.T) {
	// given
	stats := &service.StatsDto{Collections: []string{"products"}, ProductCount: 1, SampleProduct: sampleProduct()}
	router := newTestRouter(&mockProductService{stats: stats})
	req := httptest.NewRequest(http.MethodGet, "/api/debug", nil)
	rr := httptest.NewRecorder()

	// when
	router.ServeHTTP(rr, req)

	// then
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, toJSON(t, web.Envelope{Success: true, Data: stats}), rr.Body.String())
}

func Test_ProductAPI_Routes(t *testing.T) {
	svc := &mockProductService{
		product:  sampleProduct(),
		products: []service.ProductDto{},
		bulk:     &service.BulkUpdateResult{Products: []service.ProductDto{}},
	}
	router := newTestRouter(svc)

	testCases := []struct {
		method       string
		path         string
		body         string
		expectedCode int
	}{
		{http.MethodGet, "/api/products", "", http.StatusOK},
		{http.MethodPost, "/api/products", `{"externalId":1,"name":"x"}`, http.StatusCreated},
		{http.MethodPost, "/api/products/bulk-update", `{"externalIds":[1],"tag":1}`, http.StatusOK},
		{http.MethodGet, "/api/products/" + mockID, "", http.StatusOK},
		{http.MethodPut, "/api/products/" + mockID, `{"tag":1}`, http.StatusOK},
		{http.MethodDelete, "/api/products/" + mockID, "", http.StatusOK},
		{http.MethodGet, "/healthz", "", http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			assert.Equal(t, tc.expectedCode, rr.Code)
		})
	}
}
