package service

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"reward-advisor/domain"
)

const (
	merchantMatchConfidence = 95
	keywordMatchConfidence  = 80
	MaxOracleConfidence     = 90
)

// CategoryRule maps merchant names onto a category. Merchants must match the
// whole normalized name; keywords match whole words anywhere in it.
type CategoryRule struct {
	Category  domain.Category `yaml:"name"`
	Merchants []string        `yaml:"merchants"`
	Keywords  []string        `yaml:"keywords"`
}

type rulesFile struct {
	Categories []CategoryRule `yaml:"categories"`
}

// RuleSet is an immutable keyword lookup table.
type RuleSet struct {
	keywords  []keywordRule
	merchants map[string]domain.Category
}

type keywordRule struct {
	category domain.Category
	words    []string
	length   int
}

func NewRuleSet(rules []CategoryRule) (*RuleSet, error) {
	rs := &RuleSet{merchants: make(map[string]domain.Category)}
	for _, r := range rules {
		if !r.Category.Valid() {
			return nil, fmt.Errorf("%w: unknown category %q in rules", domain.ErrValidation, r.Category)
		}
		for _, m := range r.Merchants {
			if n := normalizeMerchant(m); n != "" {
				if _, dup := rs.merchants[n]; !dup {
					rs.merchants[n] = r.Category
				}
			}
		}
		for _, k := range r.Keywords {
			if words := merchantWords(k); len(words) > 0 {
				rs.keywords = append(rs.keywords, keywordRule{
					category: r.Category,
					words:    words,
					length:   len(strings.Join(words, " ")),
				})
			}
		}
	}
	return rs, nil
}

// ParseRuleSet reads the YAML rules format:
//
//	categories:
//	  - name: groceries
//	    merchants: ["whole foods"]
//	    keywords: ["grocery", "market"]
func ParseRuleSet(data []byte) (*RuleSet, error) {
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing category rules: %w", err)
	}
	return NewRuleSet(f.Categories)
}

func LoadRuleSet(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading category rules: %w", err)
	}
	return ParseRuleSet(data)
}

// Match categorizes a merchant name. No match yields other with confidence 0.
func (rs *RuleSet) Match(merchant string) domain.Categorization {
	name := normalizeMerchant(merchant)
	if name == "" {
		return defaultCategorization()
	}
	if c, ok := rs.merchants[name]; ok {
		return domain.Categorization{Category: c, Confidence: merchantMatchConfidence, Source: domain.SourceRule}
	}

	// Longest keyword wins so "gas station" beats "station"; rule order breaks ties.
	words := merchantWords(name)
	best, bestLen := domain.Category(""), 0
	for _, k := range rs.keywords {
		if k.length > bestLen && containsWords(words, k.words) {
			best, bestLen = k.category, k.length
		}
	}
	if bestLen == 0 {
		return defaultCategorization()
	}
	return domain.Categorization{Category: best, Confidence: keywordMatchConfidence, Source: domain.SourceRule}
}

func defaultCategorization() domain.Categorization {
	return domain.Categorization{Category: domain.CategoryOther, Confidence: 0, Source: domain.SourceDefault}
}

func normalizeMerchant(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// merchantWords splits a name into lower-case words. Apostrophes are dropped
// so "Joe's" and "joes" agree; any other punctuation separates words.
func merchantWords(s string) []string {
	s = strings.NewReplacer("'", "", "’", "").Replace(strings.ToLower(s))
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// containsWords reports whether phrase appears as a run of whole words.
func containsWords(words, phrase []string) bool {
	for i := 0; i+len(phrase) <= len(words); i++ {
		match := true
		for j, p := range phrase {
			if words[i+j] != p {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// DefaultRuleSet is the built-in table used when no rules file is configured.
func DefaultRuleSet() *RuleSet {
	rs, err := NewRuleSet(defaultRules)
	if err != nil {
		panic(err)
	}
	return rs
}

var defaultRules = []CategoryRule{
	{
		Category:  domain.CategoryGroceries,
		Merchants: []string{"whole foods", "trader joe's", "safeway", "kroger", "aldi", "costco"},
		Keywords:  []string{"grocery", "market", "supermarket", "foods"},
	},
	{
		Category:  domain.CategoryDining,
		Merchants: []string{"starbucks", "chipotle", "mcdonald's", "doordash", "grubhub"},
		Keywords:  []string{"restaurant", "cafe", "coffee", "pizza", "grill", "bar", "bistro", "diner"},
	},
	{
		Category:  domain.CategoryGas,
		Merchants: []string{"shell", "chevron", "exxon", "bp", "mobil"},
		Keywords:  []string{"gas station", "fuel", "petrol"},
	},
	{
		Category:  domain.CategoryTravel,
		Merchants: []string{"airbnb", "expedia", "delta", "united airlines", "marriott"},
		Keywords:  []string{"airline", "airways", "hotel", "inn", "resort", "travel"},
	},
	{
		Category:  domain.CategoryTransportation,
		Merchants: []string{"uber", "lyft"},
		Keywords:  []string{"transit", "parking", "metro", "taxi", "toll"},
	},
	{
		Category:  domain.CategoryShopping,
		Merchants: []string{"amazon", "target", "walmart", "best buy", "ikea"},
		Keywords:  []string{"store", "shop", "outlet", "mall"},
	},
	{
		Category:  domain.CategorySubscriptions,
		Merchants: []string{"netflix", "spotify", "hulu", "disney+", "youtube premium"},
		Keywords:  []string{"subscription", "membership"},
	},
	{
		Category: domain.CategoryEntertainment,
		Keywords: []string{"cinema", "theater", "theatre", "concert", "tickets", "games"},
	},
	{
		Category:  domain.CategoryHealthcare,
		Merchants: []string{"cvs", "walgreens"},
		Keywords:  []string{"pharmacy", "clinic", "dental", "medical", "hospital", "fitness", "gym"},
	},
	{
		Category: domain.CategoryUtilities,
		Keywords: []string{"electric", "water", "internet", "wireless", "utility", "energy"},
	},
	{
		Category: domain.CategoryHousing,
		Keywords: []string{"rent", "mortgage", "property", "hoa"},
	},
	{
		Category: domain.CategoryInsurance,
		Keywords: []string{"insurance", "assurance"},
	},
	{
		Category: domain.CategoryEducation,
		Keywords: []string{"university", "college", "tuition", "school", "course"},
	},
	{
		Category: domain.CategoryPersonalCare,
		Keywords: []string{"salon", "barber", "spa", "cosmetics"},
	},
}
