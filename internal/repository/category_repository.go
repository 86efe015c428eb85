package repository

import (
	"context"
	"fmt"

	"storefront/internal/domain"
)

// CategoryRepository reads the category distribution of the catalog
type CategoryRepository interface {
	CountProducts(ctx context.Context) (map[domain.Category]int, error)
}

type categoryRepository struct {
	db DBTX
}

// NewCategoryRepository creates a new instance of CategoryRepository
func NewCategoryRepository(db DBTX) CategoryRepository {
	return &categoryRepository{db: db}
}

// CountProducts returns the number of products per category present in the
// table. Categories without products are absent from the map.
func (r *categoryRepository) CountProducts(ctx context.Context) (map[domain.Category]int, error) {
	query := `
		SELECT category, COUNT(*)
		FROM products
		GROUP BY category
		ORDER BY category ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count products by category: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Category]int)
	for rows.Next() {
		var (
			category domain.Category
			count    int
		)
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		counts[category] = count
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category counts: %w", err)
	}

	return counts, nil
}
