// Package seed loads the starter catalog into an empty (or reset) store.
package seed

import (
	"bytes"
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//go:embed catalog.json
var catalogJSON []byte

// Entry is one product of the starter catalog
type Entry struct {
	Name            string              `json:"name"`
	Price           decimal.Decimal     `json:"price"`
	OriginalPrice   decimal.NullDecimal `json:"original_price"`
	Image           string              `json:"image"`
	Category        string              `json:"category"`
	Description     string              `json:"description"`
	IsNew           bool                `json:"is_new"`
	DiscountPercent int                 `json:"discount_percent"`
}

// Catalog decodes the embedded starter catalog. Every entry must carry a
// known category.
func Catalog() ([]Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(catalogJSON))
	dec.DisallowUnknownFields()

	var entries []Entry
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode seed catalog: %w", err)
	}

	for i, e := range entries {
		if _, err := domain.ParseCategory(e.Category); err != nil {
			return nil, fmt.Errorf("seed entry %d (%s): %w", i, e.Name, err)
		}
	}
	return entries, nil
}

// Input converts an entry into the catalog write shape. A missing original
// price and a zero discount are stored as NULL.
func (e Entry) Input() service.ProductInput {
	in := service.ProductInput{
		Name:          e.Name,
		Price:         e.Price,
		OriginalPrice: e.OriginalPrice,
		Image:         e.Image,
		Category:      e.Category,
		IsNew:         e.IsNew,
	}
	if e.Description != "" {
		description := e.Description
		in.Description = &description
	}
	if e.DiscountPercent != 0 {
		discount := e.DiscountPercent
		in.DiscountPercent = &discount
	}
	return in
}

// Options controls a seeding run
type Options struct {
	// Reset deletes every existing product first
	Reset bool
}

// Result summarises a seeding run
type Result struct {
	Deleted      int64
	Inserted     int
	Distribution []domain.CategorySummary
}

// Run inserts the starter catalog inside one transaction, so a failed run
// leaves the catalog as it was. Cart items are never touched.
func Run(ctx context.Context, db *sql.DB, entries []Entry, opts Options, logger *zap.Logger) (*Result, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	productRepo := repository.NewProductRepository(tx)
	catalog := service.NewCatalogService(productRepo, repository.NewCategoryRepository(tx))

	result := &Result{}
	if opts.Reset {
		if result.Deleted, err = productRepo.DeleteAll(ctx); err != nil {
			return nil, err
		}
		logger.Info("Existing products removed", zap.Int64("deleted", result.Deleted))
	}

	for _, entry := range entries {
		product, err := catalog.CreateProduct(ctx, entry.Input())
		if err != nil {
			return nil, fmt.Errorf("failed to seed %q: %w", entry.Name, err)
		}
		logger.Debug("Product seeded", zap.Int64("product_id", product.ID), zap.String("name", product.Name))
		result.Inserted++
	}

	if result.Distribution, err = catalog.ListCategories(ctx); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit seed transaction: %w", err)
	}

	return result, nil
}
