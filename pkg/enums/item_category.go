package enums

import (
	"fmt"
	"strings"
)

// ItemCategory groups catalog items on the menu.
type ItemCategory string

const (
	ItemCategorySweet  ItemCategory = "sweet"
	ItemCategorySavory ItemCategory = "savory"
)

var validItemCategories = []ItemCategory{
	ItemCategorySweet,
	ItemCategorySavory,
}

// String implements fmt.Stringer.
func (c ItemCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ItemCategory.
func (c ItemCategory) IsValid() bool {
	for _, candidate := range validItemCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseItemCategory converts raw input into an ItemCategory. Matching is case-insensitive.
func ParseItemCategory(value string) (ItemCategory, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validItemCategories {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item category %q", value)
}
