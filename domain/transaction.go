package domain

import "time"

type Transaction struct {
	ID               string
	Merchant         string
	Amount           float64 // negative = spend
	Category         *Category `json:",omitempty"`
	Date             time.Time
	ResolvedCategory *Category `json:",omitempty"`
	CardID           string    `json:",omitempty"` // card used, when known
}

// IsSpend reports whether the transaction is an outflow.
func (t Transaction) IsSpend() bool {
	return t.Amount < 0
}

// Spend is the positive magnitude of an outflow, zero for income.
func (t Transaction) Spend() float64 {
	if t.Amount < 0 {
		return -t.Amount
	}
	return 0
}

// EffectiveCategory prefers the recorded category over the back-filled one.
func (t Transaction) EffectiveCategory() (Category, bool) {
	if t.Category != nil {
		return *t.Category, true
	}
	if t.ResolvedCategory != nil {
		return *t.ResolvedCategory, true
	}
	return "", false
}

// WithResolved returns a copy carrying the resolved category.
func (t Transaction) WithResolved(c Category) Transaction {
	t.ResolvedCategory = CategoryPtr(c)
	return t
}

type RewardCalculation struct {
	TransactionID      string
	CardID             string
	CardName           string
	Category           Category
	EffectiveRate      float64
	EligibleSpend      float64 // spend that earned the category bonus
	GrossReward        float64
	CapApplied         bool
	AnnualFee          float64
	AnnualFeeAmortized float64
	NetValue           float64
}
