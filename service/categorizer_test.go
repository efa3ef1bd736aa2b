package service

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"reward-advisor/domain"
)

const testRules = `
categories:
  - name: groceries
    merchants: ["Whole  Foods", "Corner Market"]
    keywords: ["grocery"]
  - name: gas
    keywords: ["gas station", "station"]
  - name: transportation
    keywords: ["train station"]
`

func TestParseRuleSet(t *testing.T) {
	rules, err := ParseRuleSet([]byte(testRules))
	if err != nil {
		t.Fatalf("ParseRuleSet() error = %v", err)
	}

	tests := []struct {
		merchant   string
		want       domain.Category
		confidence int
		source     domain.CategorizationSource
	}{
		{"whole foods", domain.CategoryGroceries, merchantMatchConfidence, domain.SourceRule},
		{"  WHOLE FOODS ", domain.CategoryGroceries, merchantMatchConfidence, domain.SourceRule},
		{"Joe's Grocery Outlet", domain.CategoryGroceries, keywordMatchConfidence, domain.SourceRule},
		{"Penn Train Station", domain.CategoryTransportation, keywordMatchConfidence, domain.SourceRule},
		{"Main St Gas Station", domain.CategoryGas, keywordMatchConfidence, domain.SourceRule},
		{"Space Station Gifts", domain.CategoryGas, keywordMatchConfidence, domain.SourceRule},
		{"grocery-outlet #12", domain.CategoryGroceries, keywordMatchConfidence, domain.SourceRule},
		{"Groceryland", domain.CategoryOther, 0, domain.SourceDefault},
		{"Gasstation Supply", domain.CategoryOther, 0, domain.SourceDefault},
		{"Unknown LLC", domain.CategoryOther, 0, domain.SourceDefault},
		{"", domain.CategoryOther, 0, domain.SourceDefault},
	}

	for _, tt := range tests {
		t.Run(tt.merchant, func(t *testing.T) {
			got := rules.Match(tt.merchant)
			if got.Category != tt.want || got.Confidence != tt.confidence || got.Source != tt.source {
				t.Errorf("Match(%q) = %+v, want %s/%d/%s", tt.merchant, got, tt.want, tt.confidence, tt.source)
			}
		})
	}
}

func TestParseRuleSet_UnknownCategory(t *testing.T) {
	_, err := ParseRuleSet([]byte("categories:\n  - name: crypto\n    keywords: [coin]\n"))
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestParseRuleSet_BadYAML(t *testing.T) {
	if _, err := ParseRuleSet([]byte("categories: [")); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestLoadRuleSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(testRules), 0o600); err != nil {
		t.Fatal(err)
	}

	rules, err := LoadRuleSet(path)
	if err != nil {
		t.Fatalf("LoadRuleSet() error = %v", err)
	}
	if got := rules.Match("corner market").Category; got != domain.CategoryGroceries {
		t.Errorf("got %s, want groceries", got)
	}

	if _, err := LoadRuleSet(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefaultRuleSet_KeywordsMatchWholeWords(t *testing.T) {
	rules := DefaultRuleSet()

	for _, merchant := range []string{"Dinner Club", "Barnes & Noble", "Parent Portal", "Winning Sports", "Spatula Works"} {
		got := rules.Match(merchant)
		if got.Category != domain.CategoryOther || got.Confidence != 0 {
			t.Errorf("Match(%q) = %+v, want other/0", merchant, got)
		}
	}

	tests := map[string]domain.Category{
		"Hampton Inn":        domain.CategoryTravel,
		"The Corner Bar":     domain.CategoryDining,
		"Rent-A-Space":       domain.CategoryHousing,
		"Sal's Barber Shop":  domain.CategoryPersonalCare,
		"Joes Pizza & Grill": domain.CategoryDining,
	}
	for merchant, want := range tests {
		if got := rules.Match(merchant).Category; got != want {
			t.Errorf("Match(%q) = %s, want %s", merchant, got, want)
		}
	}
}

func TestDefaultRuleSet(t *testing.T) {
	rules := DefaultRuleSet()

	tests := map[string]domain.Category{
		"Shell":                domain.CategoryGas,
		"Joe's Pizza":          domain.CategoryDining,
		"Uber":                 domain.CategoryTransportation,
		"City Water Dept":      domain.CategoryUtilities,
		"State Farm Insurance": domain.CategoryInsurance,
	}
	for merchant, want := range tests {
		if got := rules.Match(merchant).Category; got != want {
			t.Errorf("Match(%q) = %s, want %s", merchant, got, want)
		}
	}
}
