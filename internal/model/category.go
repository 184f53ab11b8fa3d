// Package model defines the core domain models used throughout the application.
package model

import "fmt"

// Category is one of the four Kakebo budgeting buckets.
type Category string

// Kakebo category constants.
const (
	CategorySurvival Category = "survival"
	CategoryOptional Category = "optional"
	CategoryCulture  Category = "culture"
	CategoryExtra    Category = "extra"
)

// Categories returns all valid categories in canonical order.
func Categories() []Category {
	return []Category{CategorySurvival, CategoryOptional, CategoryCulture, CategoryExtra}
}

// Valid reports whether c is one of the four Kakebo categories.
func (c Category) Valid() bool {
	switch c {
	case CategorySurvival, CategoryOptional, CategoryCulture, CategoryExtra:
		return true
	}
	return false
}

// The store keeps Spanish category tokens. The mapping lives here and in
// CategoryFromStorage only; everything else uses the canonical enum.
var storageTokens = map[Category]string{
	CategorySurvival: "supervivencia",
	CategoryOptional: "opcional",
	CategoryCulture:  "cultura",
	CategoryExtra:    "extra",
}

// Storage returns the storage-side token for the category.
func (c Category) Storage() string {
	if tok, ok := storageTokens[c]; ok {
		return tok
	}
	return string(c)
}

// CategoryFromStorage converts a storage-side token back to the canonical enum.
// It accepts canonical names too, so freshly migrated rows round-trip.
func CategoryFromStorage(token string) (Category, error) {
	for cat, tok := range storageTokens {
		if token == tok || token == string(cat) {
			return cat, nil
		}
	}
	return "", fmt.Errorf("unknown category token %q", token)
}
