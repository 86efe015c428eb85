package transport

import (
	"errors"
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// cartItemMissing is shared by update and delete so a foreign session cannot
// tell a missing item from someone else's
const cartItemMissing = "cart item not found or not owned by this session"

// AddToCartRequest represents the add-to-cart payload. Price is a pointer so
// an absent field is rejected rather than stored as zero.
type AddToCartRequest struct {
	ProductID    int64            `json:"product_id" validate:"required,gt=0"`
	ProductName  string           `json:"product_name" validate:"required,max=255"`
	ProductPrice *decimal.Decimal `json:"product_price" validate:"required"`
	ProductImage string           `json:"product_image" validate:"max=500"`
	Quantity     int              `json:"quantity" validate:"gte=0,lte=10000"`
	SessionID    string           `json:"session_id" validate:"required,max=128"`
}

// UpdateCartItemRequest represents the set-quantity payload. Quantity is a
// pointer so an absent field is rejected rather than read as zero.
type UpdateCartItemRequest struct {
	Quantity  *int   `json:"quantity" validate:"required,lte=10000"`
	SessionID string `json:"session_id" validate:"required,max=128"`
}

// RemoveCartItemRequest represents the remove payload
type RemoveCartItemRequest struct {
	SessionID string `json:"session_id" validate:"required,max=128"`
}

// CartResponse lists a session's items
type CartResponse struct {
	Items []*domain.CartItem `json:"items"`
}

// AddToCartResponse reports which line an add landed on
type AddToCartResponse struct {
	Success bool              `json:"success"`
	ID      int64             `json:"id"`
	Action  domain.CartAction `json:"action"`
}

// ClearCartResponse reports how many lines were removed
type ClearCartResponse struct {
	Success bool  `json:"success"`
	Deleted int64 `json:"deleted"`
}

// CartHandler handles HTTP requests for session carts
type CartHandler struct {
	cartService service.CartService
	logger      *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		logger:      logger,
	}
}

// RegisterRoutes registers all cart routes behind limiter
func (h *CartHandler) RegisterRoutes(r chi.Router, limiter func(http.Handler) http.Handler) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(limiter)
		r.Post("/", h.AddItem)
		// Registered before /{id} so "clear" is never parsed as an item id
		r.Delete("/clear/{sessionId}", h.ClearCart)
		r.Get("/{sessionId}", h.GetCart)
		r.Put("/{id}", h.SetQuantity)
		r.Delete("/{id}", h.RemoveItem)
	})
}

// GetCart handles GET /api/cart/{sessionId}
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	items, err := h.cartService.GetCart(r.Context(), sessionID)
	if err != nil {
		h.respondCartError(w, "get cart", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, CartResponse{Items: items})
}

// AddItem handles POST /api/cart
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddToCartRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Add to cart validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	result, err := h.cartService.AddItem(r.Context(), service.AddItemInput{
		SessionID:    req.SessionID,
		ProductID:    req.ProductID,
		ProductName:  req.ProductName,
		ProductPrice: *req.ProductPrice,
		ProductImage: req.ProductImage,
		Quantity:     req.Quantity,
	})
	if err != nil {
		h.respondCartError(w, "add to cart", err)
		return
	}

	h.logger.Debug("Cart item saved",
		zap.Int64("item_id", result.ID),
		zap.Int64("product_id", req.ProductID),
		zap.String("action", string(result.Action)),
		zap.Int("quantity", result.Quantity),
	)
	middleware.RespondWithJSON(w, http.StatusOK, AddToCartResponse{
		Success: true,
		ID:      result.ID,
		Action:  result.Action,
	})
}

// SetQuantity handles PUT /api/cart/{id}. A quantity below 1 removes the item.
func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req UpdateCartItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Update cart item validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	if err := h.cartService.SetQuantity(r.Context(), req.SessionID, id, *req.Quantity); err != nil {
		h.respondCartError(w, "update cart item", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// RemoveItem handles DELETE /api/cart/{id} with the session in the body
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req RemoveCartItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Remove cart item validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	if err := h.cartService.RemoveItem(r.Context(), req.SessionID, id); err != nil {
		h.respondCartError(w, "remove cart item", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// ClearCart handles DELETE /api/cart/clear/{sessionId}
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	deleted, err := h.cartService.ClearCart(r.Context(), sessionID)
	if err != nil {
		h.respondCartError(w, "clear cart", err)
		return
	}

	h.logger.Debug("Cart cleared", zap.Int64("deleted", deleted))
	middleware.RespondWithJSON(w, http.StatusOK, ClearCartResponse{Success: true, Deleted: deleted})
}

func (h *CartHandler) respondCartError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, repository.ErrCartItemNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, cartItemMissing)
	case errors.Is(err, service.ErrInvalidCartInput):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("Cart operation failed", zap.String("op", op), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to "+op)
	}
}
