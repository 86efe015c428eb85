package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Browser clients do arithmetic on prices, so keep them as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Product represents a product in the catalog
type Product struct {
	ID              int64               `json:"id" db:"id"`
	Name            string              `json:"name" db:"name"`
	Price           decimal.Decimal     `json:"price" db:"price"`
	OriginalPrice   decimal.NullDecimal `json:"original_price" db:"original_price"`
	Image           string              `json:"image" db:"image"`
	Category        Category            `json:"category" db:"category"`
	Description     *string             `json:"description" db:"description"`
	IsNew           bool                `json:"is_new" db:"is_new"`
	DiscountPercent *int                `json:"discount_percent" db:"discount_percent"`
	CreatedAt       time.Time           `json:"created_at" db:"created_at"`
}

// ProductFilter narrows a catalog listing. Zero values mean "no filter".
type ProductFilter struct {
	Category Category
	Limit    int
}
