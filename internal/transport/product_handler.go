package transport

import (
	"errors"
	"net/http"
	"strconv"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductRequest represents the create/update product payload
type ProductRequest struct {
	Name            string              `json:"name" validate:"required,max=255"`
	Price           *decimal.Decimal    `json:"price" validate:"required"`
	OriginalPrice   decimal.NullDecimal `json:"original_price"`
	Image           string              `json:"image" validate:"required,max=500"`
	Category        string              `json:"category" validate:"required"`
	Description     *string             `json:"description"`
	IsNew           *bool               `json:"is_new"`
	DiscountPercent *int                `json:"discount_percent"`
}

// ProductListResponse wraps a catalog listing
type ProductListResponse struct {
	Products []*domain.Product `json:"products"`
}

// ProductResponse wraps a single product
type ProductResponse struct {
	Product *domain.Product `json:"product"`
}

// CreateProductResponse reports the id of a new product
type CreateProductResponse struct {
	ID      int64 `json:"id"`
	Success bool  `json:"success"`
}

// CategoryListResponse wraps the category distribution
type CategoryListResponse struct {
	Categories []domain.CategorySummary `json:"categories"`
}

// SuccessResponse is the body of writes that return nothing else
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ProductHandler handles HTTP requests for the product catalog
type ProductHandler struct {
	catalogService service.CatalogService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(catalogService service.CatalogService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		catalogService: catalogService,
		logger:         logger,
	}
}

// RegisterRoutes registers all catalog routes. Writes go through limiter.
func (h *ProductHandler) RegisterRoutes(r chi.Router, limiter func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/{id}", h.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(limiter)
			r.Post("/", h.CreateProduct)
			r.Put("/{id}", h.UpdateProduct)
			r.Delete("/{id}", h.DeleteProduct)
		})
	})

	r.Get("/api/categories", h.ListCategories)
}

// ListProducts handles GET /api/products?category=&limit=
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter := domain.ProductFilter{
		Category: domain.Category(r.URL.Query().Get("category")),
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			middleware.RespondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}

	products, err := h.catalogService.ListProducts(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list products", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ProductListResponse{Products: products})
}

// GetProduct handles GET /api/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	product, err := h.catalogService.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Failed to get product", zap.Int64("product_id", id), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ProductResponse{Product: product})
}

// CreateProduct handles POST /api/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Create product validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	product, err := h.catalogService.CreateProduct(r.Context(), req.toInput())
	if err != nil {
		h.respondWriteError(w, "create", 0, err)
		return
	}

	h.logger.Info("Product created", zap.Int64("product_id", product.ID), zap.String("category", string(product.Category)))
	middleware.RespondWithJSON(w, http.StatusCreated, CreateProductResponse{ID: product.ID, Success: true})
}

// UpdateProduct handles PUT /api/products/{id}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req ProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Update product validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	if err := h.catalogService.UpdateProduct(r.Context(), id, req.toInput()); err != nil {
		h.respondWriteError(w, "update", id, err)
		return
	}

	h.logger.Info("Product updated", zap.Int64("product_id", id))
	middleware.RespondWithJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// DeleteProduct handles DELETE /api/products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.catalogService.DeleteProduct(r.Context(), id); err != nil {
		h.respondWriteError(w, "delete", id, err)
		return
	}

	h.logger.Info("Product deleted", zap.Int64("product_id", id))
	middleware.RespondWithJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// ListCategories handles GET /api/categories
func (h *ProductHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalogService.ListCategories(r.Context())
	if err != nil {
		h.logger.Error("Failed to list categories", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, CategoryListResponse{Categories: categories})
}

func (h *ProductHandler) respondWriteError(w http.ResponseWriter, op string, id int64, err error) {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, domain.ErrInvalidCategory), errors.Is(err, service.ErrInvalidProductInput):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("Product write failed", zap.String("op", op), zap.Int64("product_id", id), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to "+op+" product")
	}
}

func (req ProductRequest) toInput() service.ProductInput {
	isNew := true
	if req.IsNew != nil {
		isNew = *req.IsNew
	}

	return service.ProductInput{
		Name:            req.Name,
		Price:           *req.Price,
		OriginalPrice:   req.OriginalPrice,
		Image:           req.Image,
		Category:        req.Category,
		Description:     req.Description,
		IsNew:           isNew,
		DiscountPercent: req.DiscountPercent,
	}
}

// parseID reads the {id} path parameter, answering 400 when it is not a
// positive integer
func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
