package domain

import (
	"errors"
	"fmt"
)

var ErrInvalidCategory = errors.New("invalid category")

// Category is one of a closed set of catalog tags
type Category string

const (
	CategoryWomenHandbag    Category = "women-handbag"
	CategoryFashionBackpack Category = "fashion-backpack"
	CategoryTravelBackpack  Category = "travel-backpack"
	CategoryOther           Category = "other"
)

// Categories lists every valid category in display order
func Categories() []Category {
	return []Category{
		CategoryWomenHandbag,
		CategoryFashionBackpack,
		CategoryTravelBackpack,
		CategoryOther,
	}
}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory converts a raw tag into a Category
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

// CategorySummary is the number of products carrying a category
type CategorySummary struct {
	Category Category `json:"category"`
	Count    int      `json:"count"`
}
