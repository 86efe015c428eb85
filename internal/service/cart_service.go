package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/shopspring/decimal"
)

const (
	// MaxSessionIDLength matches the width of cart_items.session_id
	MaxSessionIDLength = 128
	// MaxQuantity bounds the quantity of a single add or set
	MaxQuantity = 10000
)

var (
	ErrInvalidCartInput = errors.New("invalid cart input")
)

// AddItemInput describes one add-to-cart call. Name, price and image are
// trusted as sent and copied onto the line item.
type AddItemInput struct {
	SessionID    string
	ProductID    int64
	ProductName  string
	ProductPrice decimal.Decimal
	ProductImage string
	// Quantity defaults to 1 when zero
	Quantity int
}

// AddItemResult reports the line the add landed on
type AddItemResult struct {
	ID       int64
	Action   domain.CartAction
	Quantity int
}

// CartService defines the interface for session-scoped cart logic.
// The session id is an opaque, unauthenticated partition key.
type CartService interface {
	GetCart(ctx context.Context, sessionID string) ([]*domain.CartItem, error)
	AddItem(ctx context.Context, input AddItemInput) (*AddItemResult, error)
	SetQuantity(ctx context.Context, sessionID string, itemID int64, quantity int) error
	RemoveItem(ctx context.Context, sessionID string, itemID int64) error
	ClearCart(ctx context.Context, sessionID string) (int64, error)
}

type cartService struct {
	cartRepo repository.CartRepository
}

// NewCartService creates a new instance of CartService
func NewCartService(cartRepo repository.CartRepository) CartService {
	return &cartService{cartRepo: cartRepo}
}

// GetCart returns the session's items. A session that never added anything
// has an empty cart.
func (s *cartService) GetCart(ctx context.Context, sessionID string) ([]*domain.CartItem, error) {
	if err := validateSessionID(sessionID); err != nil {
		return nil, err
	}

	items, err := s.cartRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return items, nil
}

// AddItem inserts a line for the product or increments the existing one
func (s *cartService) AddItem(ctx context.Context, input AddItemInput) (*AddItemResult, error) {
	if err := validateSessionID(input.SessionID); err != nil {
		return nil, err
	}
	if input.ProductID <= 0 {
		return nil, fmt.Errorf("%w: product_id must be positive", ErrInvalidCartInput)
	}
	if strings.TrimSpace(input.ProductName) == "" {
		return nil, fmt.Errorf("%w: product_name is required", ErrInvalidCartInput)
	}
	if input.Quantity < 0 {
		return nil, fmt.Errorf("%w: quantity must not be negative", ErrInvalidCartInput)
	}
	if input.Quantity > MaxQuantity {
		return nil, fmt.Errorf("%w: quantity must not exceed %d", ErrInvalidCartInput, MaxQuantity)
	}

	quantity := input.Quantity
	if quantity == 0 {
		quantity = 1
	}

	item := &domain.CartItem{
		ProductID:    input.ProductID,
		ProductName:  input.ProductName,
		ProductPrice: input.ProductPrice,
		ProductImage: input.ProductImage,
		Quantity:     quantity,
		SessionID:    input.SessionID,
	}

	action, err := s.cartRepo.Upsert(ctx, item)
	if err != nil {
		if errors.Is(err, repository.ErrQuantityOutOfRange) {
			return nil, fmt.Errorf("%w: cart line quantity would overflow", ErrInvalidCartInput)
		}
		return nil, fmt.Errorf("failed to add item: %w", err)
	}

	return &AddItemResult{
		ID:       item.ID,
		Action:   action,
		Quantity: item.Quantity,
	}, nil
}

// SetQuantity replaces the quantity of one of the session's items. A quantity
// below 1 removes the item instead.
func (s *cartService) SetQuantity(ctx context.Context, sessionID string, itemID int64, quantity int) error {
	if quantity < 1 {
		return s.RemoveItem(ctx, sessionID, itemID)
	}
	if err := validateSessionID(sessionID); err != nil {
		return err
	}
	if quantity > MaxQuantity {
		return fmt.Errorf("%w: quantity must not exceed %d", ErrInvalidCartInput, MaxQuantity)
	}

	if err := s.cartRepo.UpdateQuantity(ctx, sessionID, itemID, quantity); err != nil {
		if errors.Is(err, repository.ErrCartItemNotFound) {
			return err
		}
		if errors.Is(err, repository.ErrQuantityOutOfRange) {
			return fmt.Errorf("%w: quantity out of range", ErrInvalidCartInput)
		}
		return fmt.Errorf("failed to set quantity: %w", err)
	}
	return nil
}

// RemoveItem deletes one of the session's items. A missing id and an id
// owned by another session both yield repository.ErrCartItemNotFound.
func (s *cartService) RemoveItem(ctx context.Context, sessionID string, itemID int64) error {
	if err := validateSessionID(sessionID); err != nil {
		return err
	}

	if err := s.cartRepo.Delete(ctx, sessionID, itemID); err != nil {
		if errors.Is(err, repository.ErrCartItemNotFound) {
			return err
		}
		return fmt.Errorf("failed to remove item: %w", err)
	}
	return nil
}

// ClearCart deletes every item of the session and returns how many went
func (s *cartService) ClearCart(ctx context.Context, sessionID string) (int64, error) {
	if err := validateSessionID(sessionID); err != nil {
		return 0, err
	}

	deleted, err := s.cartRepo.DeleteBySession(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cart: %w", err)
	}
	return deleted, nil
}

func validateSessionID(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("%w: session_id is required", ErrInvalidCartInput)
	}
	if len(sessionID) > MaxSessionIDLength {
		return fmt.Errorf("%w: session_id is too long", ErrInvalidCartInput)
	}
	return nil
}
