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

var (
	ErrInvalidProductInput = errors.New("invalid product input")
)

// ProductInput carries the writable fields of a product. Numeric ranges are
// not checked: negative prices and discounts above 100 are stored as given.
type ProductInput struct {
	Name            string
	Price           decimal.Decimal
	OriginalPrice   decimal.NullDecimal
	Image           string
	Category        string
	Description     *string
	IsNew           bool
	DiscountPercent *int
}

// CatalogService defines the interface for product catalog business logic
type CatalogService interface {
	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, input ProductInput) error
	DeleteProduct(ctx context.Context, id int64) error
	ListCategories(ctx context.Context) ([]domain.CategorySummary, error)
}

type catalogService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
) CatalogService {
	return &catalogService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
	}
}

// ListProducts returns every product, or those whose category equals
// filter.Category exactly. An unmatched filter yields an empty slice.
func (s *catalogService) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	if filter.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", ErrInvalidProductInput)
	}

	products, err := s.productRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// GetProduct returns the product with id or repository.ErrProductNotFound
func (s *catalogService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

// CreateProduct validates the input and stores a new product
func (s *catalogService) CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error) {
	product, err := input.toProduct()
	if err != nil {
		return nil, err
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return product, nil
}

// UpdateProduct replaces the writable fields of product id. Existing cart
// items keep the name, price and image they were added with.
func (s *catalogService) UpdateProduct(ctx context.Context, id int64, input ProductInput) error {
	product, err := input.toProduct()
	if err != nil {
		return err
	}
	product.ID = id

	if err := s.productRepo.Update(ctx, product); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return err
		}
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

// DeleteProduct removes product id
func (s *catalogService) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

// ListCategories reports every known category with its product count,
// including categories that currently have no products
func (s *catalogService) ListCategories(ctx context.Context) ([]domain.CategorySummary, error) {
	counts, err := s.categoryRepo.CountProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	categories := domain.Categories()
	summaries := make([]domain.CategorySummary, 0, len(categories))
	for _, category := range categories {
		summaries = append(summaries, domain.CategorySummary{
			Category: category,
			Count:    counts[category],
		})
	}
	return summaries, nil
}

func (in ProductInput) toProduct() (*domain.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidProductInput)
	}
	if strings.TrimSpace(in.Image) == "" {
		return nil, fmt.Errorf("%w: image is required", ErrInvalidProductInput)
	}

	category, err := domain.ParseCategory(in.Category)
	if err != nil {
		return nil, err
	}

	return &domain.Product{
		Name:            name,
		Price:           in.Price,
		OriginalPrice:   in.OriginalPrice,
		Image:           in.Image,
		Category:        category,
		Description:     in.Description,
		IsNew:           in.IsNew,
		DiscountPercent: in.DiscountPercent,
	}, nil
}
