// Package rest provides HTTP handlers for product-related operations.
package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	perrors "github.com/jarvis/product_service/internal/errors"
	"github.com/jarvis/product_service/internal/service"
	"github.com/jarvis/product_service/pkg/web"
)

// deleteConfirmation is the literal body returned by a successful delete.
const deleteConfirmation = "Delete Data"

type Handler struct {
	service  service.ProductService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new instance of the product API with the provided service.
func NewHandler(service service.ProductService, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for the product service.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/products", func(r chi.Router) {
		r.Post("/addproduct", h.Create)
		r.Get("/findproduct/{id}", h.FindByID)
		r.Get("/findpage", h.FindPage)
		r.Get("/findall", h.FindAll)
		r.Put("/putproduct/{id}", h.Update)
		r.Patch("/patchproduct/{id}", h.Patch)
		r.Delete("/deleteproduct/{id}", h.Delete)
	})

	r.Get("/healthz", h.HealthCheck)
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
		if errors.Is(err, perrors.ErrDuplicateName) {
			mLogger.WarnContext(r.Context(), "Duplicate product name", "Name", productCreateDto.Name)
			web.RespondError(w, mLogger, http.StatusConflict, fmt.Sprintf("Product already exists with name: %s", productCreateDto.Name))
			return
		}
		h.respondServerError(w, r, mLogger, err, "Error creating product", "Failed to create product")
		return
	}
	mLogger.InfoContext(r.Context(), "Product created successfully", "ID", newProduct.ID, "Name", newProduct.Name)
	web.RespondJSON(w, mLogger, http.StatusCreated, newProduct)
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
		if errors.Is(err, perrors.ErrProductNotFound) {
			mLogger.WarnContext(r.Context(), "Product not found", "ID", id)
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product with ID %d not found", id))
			return
		}
		h.respondServerError(w, r, mLogger, err, "Error retrieving product", fmt.Sprintf("Failed to retrieve product with ID %d", id))
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved product", "ID", found.ID, "Name", found.Name)
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// FindPage retrieves one page of products with optional filtering and sorting.
func (h *Handler) FindPage(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	query, ok := h.parsePageQuery(w, r, mLogger)
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to find product page",
		"page", query.Page, "size", query.Size, "sortBy", query.SortBy, "sortDir", query.SortDir)
	page, err := h.service.FindPage(r.Context(), *query)
	if err != nil {
		if errors.Is(err, perrors.ErrInvalidSortField) {
			mLogger.WarnContext(r.Context(), "Invalid sort field", "sortBy", query.SortBy)
			web.RespondError(w, mLogger, http.StatusBadRequest, fmt.Sprintf("Unsupported sort field: %s", query.SortBy))
			return
		}
		h.respondServerError(w, r, mLogger, err, "Error retrieving product page", "Failed to fetch products")
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved product page", "count", len(page.Content), "total", page.TotalElements)
	web.RespondJSON(w, mLogger, http.StatusOK, page)
}

// FindAll retrieves a list of all stored products, deleted ones included.
func (h *Handler) FindAll(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	mLogger.DebugContext(r.Context(), "Received request to find all products")
	list, err := h.service.FindAll(r.Context())
	if err != nil {
		h.respondServerError(w, r, mLogger, err, "Error retrieving product list", "Failed to fetch products")
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved product list", "count", len(list))
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// Update handles a full product update.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	var productDto service.ProductCreateDto
	if !h.decodeAndValidate(w, r, mLogger, &productDto) {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to update product", "ID", id)

	updated, err := h.service.Update(r.Context(), id, productDto)
	if err != nil {
		switch {
		case errors.Is(err, perrors.ErrProductNotFound):
			mLogger.WarnContext(r.Context(), "Product not found for update", "ID", id)
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product with ID %d not found", id))
		case errors.Is(err, perrors.ErrDuplicateName):
			mLogger.WarnContext(r.Context(), "Duplicate product name on update", "ID", id, "Name", productDto.Name)
			web.RespondError(w, mLogger, http.StatusConflict, fmt.Sprintf("Product already exists with name: %s", productDto.Name))
		default:
			h.respondServerError(w, r, mLogger, err, "Error updating product", fmt.Sprintf("Failed to update product with ID %d", id))
		}
		return
	}
	mLogger.InfoContext(r.Context(), "Product updated successfully", "ID", updated.ID, "Name", updated.Name)
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

// Patch handles a partial product update.
func (h *Handler) Patch(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	var patchDto service.ProductPatchDto
	if !h.decodeAndValidate(w, r, mLogger, &patchDto) {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to patch product", "ID", id)

	updated, err := h.service.Patch(r.Context(), id, patchDto)
	if err != nil {
		if errors.Is(err, perrors.ErrProductNotFound) {
			mLogger.WarnContext(r.Context(), "Product not found for patch", "ID", id)
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product with ID %d not found", id))
			return
		}
		h.respondServerError(w, r, mLogger, err, "Error patching product", fmt.Sprintf("Failed to patch product with ID %d", id))
		return
	}
	mLogger.InfoContext(r.Context(), "Product patched successfully", "ID", updated.ID)
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

// Delete soft-deletes a product by its ID.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to delete product", "ID", id)
	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, perrors.ErrProductNotFound) {
			mLogger.WarnContext(r.Context(), "Product not found for deletion", "ID", id)
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product with ID %d not found", id))
			return
		}
		h.respondServerError(w, r, mLogger, err, "Error deleting product", fmt.Sprintf("Failed to delete product with ID %d", id))
		return
	}
	mLogger.InfoContext(r.Context(), "Product deleted successfully", "ID", id)
	web.RespondText(w, http.StatusOK, deleteConfirmation)
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// decodeAndValidate decodes the request body into dto and validates it,
// responding with a field-level error map on validation failure.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, dto any) bool {
	if err := json.NewDecoder(r.Body).Decode(dto); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := h.validate.Struct(dto); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			errorResponse := make(map[string]string)
			for _, fieldErr := range validationErrors {
				// fieldErr.Tag() returns "required", "max", etc.
				errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
			}
			mLogger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
			web.RespondJSON(w, mLogger, http.StatusBadRequest, map[string]any{"validation_errors": errorResponse})
			return false
		}
		mLogger.ErrorContext(r.Context(), "Error validating request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// parsePageQuery extracts pagination, sorting and filter parameters.
// Defaults mirror the original API: page 0, size 5, sorted by id ascending.
func (h *Handler) parsePageQuery(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger) (*service.PageQueryDto, bool) {
	page, ok := web.ParseGteDefault(r, w, mLogger, "page", 0, 0)
	if !ok {
		return nil, false
	}
	size, ok := web.ParseGtDefault(r, w, mLogger, "size", 0, 5)
	if !ok {
		return nil, false
	}
	minPrice, ok := web.ParseOptionalInt(r, w, mLogger, "minPrice")
	if !ok {
		return nil, false
	}
	maxPrice, ok := web.ParseOptionalInt(r, w, mLogger, "maxPrice")
	if !ok {
		return nil, false
	}
	minQty, ok := web.ParseOptionalInt(r, w, mLogger, "minQty")
	if !ok {
		return nil, false
	}
	maxQty, ok := web.ParseOptionalInt(r, w, mLogger, "maxQty")
	if !ok {
		return nil, false
	}

	query := service.PageQueryDto{
		Page:     int32(page),
		Size:     int32(size),
		SortBy:   "id",
		SortDir:  "asc",
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		MinQty:   toInt32Ptr(minQty),
		MaxQty:   toInt32Ptr(maxQty),
	}
	if sortBy := r.URL.Query().Get("sortBy"); sortBy != "" {
		query.SortBy = sortBy
	}
	if sortDir := r.URL.Query().Get("sortDir"); sortDir != "" {
		query.SortDir = sortDir
	}
	if category := r.URL.Query().Get("category"); category != "" {
		query.Category = &category
	}
	return &query, true
}

// respondServerError distinguishes a down store (503) from any other
// internal failure (500).
func (h *Handler) respondServerError(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, err error, logMsg, clientMsg string) {
	if errors.Is(err, perrors.ErrStoreUnavailable) {
		mLogger.ErrorContext(r.Context(), "Store unavailable", "error", err)
		web.RespondError(w, mLogger, http.StatusServiceUnavailable, "Service is temporarily unavailable")
		return
	}
	mLogger.ErrorContext(r.Context(), logMsg, "error", err)
	web.RespondError(w, mLogger, http.StatusInternalServerError, clientMsg)
}

func toInt32Ptr(v *int64) *int32 {
	if v == nil {
		return nil
	}
	value := int32(*v)
	return &value
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	return h.logger.With("request_id", web.GetRequestID(r.Context()))
}
