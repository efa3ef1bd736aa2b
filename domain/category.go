package domain

import (
	"sort"
	"strings"
)

type Category string

const (
	CategoryDining         Category = "dining"
	CategoryGroceries      Category = "groceries"
	CategoryGas            Category = "gas"
	CategoryTravel         Category = "travel"
	CategoryShopping       Category = "shopping"
	CategoryEntertainment  Category = "entertainment"
	CategoryTransportation Category = "transportation"
	CategoryHealthcare     Category = "healthcare"
	CategoryUtilities      Category = "utilities"
	CategoryHousing        Category = "housing"
	CategoryInsurance      Category = "insurance"
	CategoryEducation      Category = "education"
	CategoryPersonalCare   Category = "personal_care"
	CategorySubscriptions  Category = "subscriptions"
	CategoryOther          Category = "other"
)

var categories = map[Category]struct{}{
	CategoryDining:         {},
	CategoryGroceries:      {},
	CategoryGas:            {},
	CategoryTravel:         {},
	CategoryShopping:       {},
	CategoryEntertainment:  {},
	CategoryTransportation: {},
	CategoryHealthcare:     {},
	CategoryUtilities:      {},
	CategoryHousing:        {},
	CategoryInsurance:      {},
	CategoryEducation:      {},
	CategoryPersonalCare:   {},
	CategorySubscriptions:  {},
	CategoryOther:          {},
}

// Valid reports whether c belongs to the closed category set.
func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}

// Categories lists the closed set in lexical order.
func Categories() []Category {
	out := make([]Category, 0, len(categories))
	for c := range categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseCategory normalizes free-form labels such as "Dining & Restaurants" or
// "Personal Care" onto the closed set.
func ParseCategory(s string) (Category, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexAny(norm, "&(/"); i > 0 {
		norm = strings.TrimSpace(norm[:i])
	}
	norm = strings.ReplaceAll(norm, " ", "_")
	norm = strings.ReplaceAll(norm, "-", "_")

	c := Category(norm)
	if c.Valid() {
		return c, true
	}
	switch norm {
	case "restaurants", "restaurant", "food":
		return CategoryDining, true
	case "grocery", "supermarket":
		return CategoryGroceries, true
	case "fuel", "gasoline":
		return CategoryGas, true
	case "subscription", "streaming":
		return CategorySubscriptions, true
	case "uncategorized", "unknown":
		return CategoryOther, true
	}
	return "", false
}

// CategoryPtr is a convenience for optional category fields.
func CategoryPtr(c Category) *Category {
	return &c
}
