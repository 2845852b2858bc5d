package domain

import "strings"

// ValidateEntry checks the constraints an edited entry must satisfy before it is saved.
func ValidateEntry(e CatalogEntry) error {
	if strings.TrimSpace(e.Title) == "" {
		return &ValidationError{Field: "title", Reason: "title is required"}
	}
	if e.Price <= 0 {
		return &ValidationError{Field: "price", Reason: "price must be greater than 0"}
	}
	if e.DiscountPercentage < 0 || e.DiscountPercentage > 100 {
		return &ValidationError{Field: "discountPercentage", Reason: "discount must be between 0 and 100"}
	}
	if e.Rating < 0 || e.Rating > 5 {
		return &ValidationError{Field: "rating", Reason: "rating must be between 0 and 5"}
	}
	if e.Stock < 0 {
		return &ValidationError{Field: "stock", Reason: "stock cannot be negative"}
	}
	return nil
}

// ValidateDraft checks a new product before it is posted. A draft also needs
// a description and a category.
func ValidateDraft(e CatalogEntry) error {
	if strings.TrimSpace(e.Title) == "" {
		return &ValidationError{Field: "title", Reason: "title is required"}
	}
	if strings.TrimSpace(e.Description) == "" {
		return &ValidationError{Field: "description", Reason: "description is required"}
	}
	if strings.TrimSpace(e.Category) == "" {
		return &ValidationError{Field: "category", Reason: "category is required"}
	}
	return ValidateEntry(e)
}
