package editbuf

import (
	"math"
	"strconv"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// Fields lists the names Update accepts.
var Fields = []string{
	"title", "description", "category", "brand", "thumbnail", "images", "tags",
	"availabilityStatus", "warrantyInformation", "shippingInformation", "returnPolicy",
	"price", "discountPercentage", "rating", "weight",
	"stock", "minimumOrderQuantity",
}

func setField(e *domain.CatalogEntry, field, value string) error {
	switch field {
	case "title":
		e.Title = value
	case "description":
		e.Description = value
	case "category":
		e.Category = value
	case "brand":
		e.Brand = value
	case "thumbnail":
		e.Thumbnail = value
	case "images":
		e.Images = splitList(value)
	case "tags":
		e.Tags = splitList(value)
	case "availabilityStatus":
		e.AvailabilityStatus = value
	case "warrantyInformation":
		e.WarrantyInformation = value
	case "shippingInformation":
		e.ShippingInformation = value
	case "returnPolicy":
		e.ReturnPolicy = value
	case "price":
		e.Price = parseFloat(value)
	case "discountPercentage":
		e.DiscountPercentage = parseFloat(value)
	case "rating":
		e.Rating = parseFloat(value)
	case "weight":
		e.Weight = parseFloat(value)
	case "stock":
		e.Stock = parseInt(value)
	case "minimumOrderQuantity":
		e.MinimumOrderQuantity = parseInt(value)
	default:
		return &domain.ValidationError{Field: field, Reason: "unknown field"}
	}
	return nil
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// parseInt truncates fractional input.
func parseInt(s string) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	f := parseFloat(s)
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0
	}
	return int(math.Trunc(f))
}

// splitList parses a comma separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
