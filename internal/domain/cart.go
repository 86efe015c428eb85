package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartAction tells whether an add created a line item or grew an existing one
type CartAction string

const (
	ActionAdded   CartAction = "added"
	ActionUpdated CartAction = "updated"
)

// CartItem is one product line in a session's cart. Name, price and image are
// copied from the product when the line is first added.
type CartItem struct {
	ID           int64           `json:"id" db:"id"`
	ProductID    int64           `json:"product_id" db:"product_id"`
	ProductName  string          `json:"product_name" db:"product_name"`
	ProductPrice decimal.Decimal `json:"product_price" db:"product_price"`
	ProductImage string          `json:"product_image" db:"product_image"`
	Quantity     int             `json:"quantity" db:"quantity"`
	SessionID    string          `json:"session_id" db:"session_id"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// Subtotal is price times quantity
func (i CartItem) Subtotal() decimal.Decimal {
	return i.ProductPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CartTotals is a view derived from a fresh cart read
type CartTotals struct {
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// Totals sums quantities and subtotals of items
func Totals(items []*CartItem) CartTotals {
	totals := CartTotals{TotalPrice: decimal.Zero}
	for _, item := range items {
		totals.TotalItems += item.Quantity
		totals.TotalPrice = totals.TotalPrice.Add(item.Subtotal())
	}
	return totals
}
