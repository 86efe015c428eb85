package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrCartItemNotFound covers both a missing id and an id owned by another
	// session; callers cannot tell them apart.
	ErrCartItemNotFound = errors.New("cart item not found")
	// ErrQuantityOutOfRange is returned when a quantity does not fit the column
	ErrQuantityOutOfRange = errors.New("cart item quantity out of range")
)

// numeric_value_out_of_range
const pgNumericOutOfRange = "22003"

func quantityError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgNumericOutOfRange {
		return fmt.Errorf("failed to %s: %w", op, ErrQuantityOutOfRange)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// CartRepository defines the interface for cart item data access. Every
// method is scoped by session id.
type CartRepository interface {
	ListBySession(ctx context.Context, sessionID string) ([]*domain.CartItem, error)
	Upsert(ctx context.Context, item *domain.CartItem) (domain.CartAction, error)
	UpdateQuantity(ctx context.Context, sessionID string, id int64, quantity int) error
	Delete(ctx context.Context, sessionID string, id int64) error
	DeleteBySession(ctx context.Context, sessionID string) (int64, error)
}

type cartRepository struct {
	db DBTX
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(db DBTX) CartRepository {
	return &cartRepository{db: db}
}

// ListBySession returns the session's items in insertion order
func (r *cartRepository) ListBySession(ctx context.Context, sessionID string) ([]*domain.CartItem, error) {
	query := `
		SELECT id, product_id, product_name, product_price, product_image, quantity, session_id, created_at
		FROM cart_items
		WHERE session_id = $1
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	defer rows.Close()

	items := []*domain.CartItem{}
	for rows.Next() {
		item := &domain.CartItem{}
		err := rows.Scan(
			&item.ID,
			&item.ProductID,
			&item.ProductName,
			&item.ProductPrice,
			&item.ProductImage,
			&item.Quantity,
			&item.SessionID,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return items, nil
}

// Upsert inserts item, or adds item.Quantity to the existing line for the same
// (product_id, session_id). It runs as one statement against the unique
// constraint, so concurrent adds cannot create duplicate lines. On return item
// carries the stored id, quantity and created_at. The denormalized fields of an
// existing line are kept as first captured.
func (r *cartRepository) Upsert(ctx context.Context, item *domain.CartItem) (domain.CartAction, error) {
	query := `
		INSERT INTO cart_items (product_id, product_name, product_price, product_image, quantity, session_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (product_id, session_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING id, quantity, created_at, (xmax = 0) AS inserted
	`

	var inserted bool
	err := r.db.QueryRowContext(
		ctx,
		query,
		item.ProductID,
		item.ProductName,
		item.ProductPrice,
		item.ProductImage,
		item.Quantity,
		item.SessionID,
	).Scan(&item.ID, &item.Quantity, &item.CreatedAt, &inserted)

	if err != nil {
		return "", quantityError("upsert cart item", err)
	}

	if inserted {
		return domain.ActionAdded, nil
	}
	return domain.ActionUpdated, nil
}

// UpdateQuantity replaces the quantity of one of the session's items
func (r *cartRepository) UpdateQuantity(ctx context.Context, sessionID string, id int64, quantity int) error {
	query := `UPDATE cart_items SET quantity = $1 WHERE id = $2 AND session_id = $3`

	result, err := r.db.ExecContext(ctx, query, quantity, id, sessionID)
	if err != nil {
		return quantityError("update cart item", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrCartItemNotFound
	}

	return nil
}

// Delete removes one of the session's items
func (r *cartRepository) Delete(ctx context.Context, sessionID string, id int64) error {
	query := `DELETE FROM cart_items WHERE id = $1 AND session_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrCartItemNotFound
	}

	return nil
}

// DeleteBySession empties the session's cart. An empty cart is not an error.
func (r *cartRepository) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cart: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
