package extraction

import (
	"context"
	"errors"
)

// Category is a spending category key from the closed set the extraction
// schema enumerates. CategoryOther is the catch-all.
type Category string

const (
	CategoryFoodDining     Category = "food_dining"
	CategoryGroceries      Category = "groceries"
	CategoryShopping       Category = "shopping"
	CategoryTransportation Category = "transportation"
	CategoryHealth         Category = "health"
	CategoryEntertainment  Category = "entertainment"
	CategoryUtilities      Category = "utilities"
	CategoryHome           Category = "home"
	CategoryOther          Category = "other"
)

// Categories returns the closed category set in schema order.
func Categories() []Category {
	return []Category{
		CategoryFoodDining,
		CategoryGroceries,
		CategoryShopping,
		CategoryTransportation,
		CategoryHealth,
		CategoryEntertainment,
		CategoryUtilities,
		CategoryHome,
		CategoryOther,
	}
}

// ValidCategory reports whether c belongs to the closed set.
func ValidCategory(c Category) bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

func categoryStrings() []string {
	cats := Categories()
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = string(c)
	}
	return out
}

// LineItem is a single purchased item as read off the receipt.
type LineItem struct {
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

// ReceiptData contains the structured record extracted from a receipt image.
// It carries no ID and no insight; both are assigned downstream.
type ReceiptData struct {
	StoreName string     `json:"storeName"`
	Date      string     `json:"date"` // YYYY-MM-DD
	Items     []LineItem `json:"items"`
	Subtotal  float64    `json:"subtotal"`
	Tax       float64    `json:"tax"`
	Total     float64    `json:"total"`
	Category  Category   `json:"category"`
	Currency  string     `json:"currency"`
}

// ErrInvalidResponse marks an extraction response that could not be parsed
// into the expected record shape, or that is missing required fields.
var ErrInvalidResponse = errors.New("invalid extraction response")

// Extractor defines the interface for turning a receipt image into a
// structured record. Implementations do not retry; retry policy belongs to
// the caller.
type Extractor interface {
	// ExtractReceipt analyzes a receipt image/PDF and extracts a record
	ExtractReceipt(ctx context.Context, imageData []byte, contentType string) (*ReceiptData, error)
	// Close closes the extractor and releases resources
	Close() error
}
