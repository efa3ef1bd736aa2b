package domain

import (
	"fmt"
	"math"
)

type CreditCard struct {
	ID            string
	Name          string
	Issuer        string
	Network       string
	BaseRate      float64
	CategoryRates map[Category]float64 `json:",omitempty"`
	AnnualFee     float64
	RewardsCap    map[Category]float64 `json:",omitempty"`
	IsActive      bool
}

// RateFor returns the reward rate applied to spend in category c and
// whether it came from a category bonus.
func (c CreditCard) RateFor(cat Category) (float64, bool) {
	if r, ok := c.CategoryRates[cat]; ok {
		return r, true
	}
	return c.BaseRate, false
}

func (c CreditCard) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: card id is empty", ErrValidation)
	}
	if !finiteNonNegative(c.BaseRate) {
		return fmt.Errorf("%w: card %s base rate %v", ErrValidation, c.ID, c.BaseRate)
	}
	for cat, r := range c.CategoryRates {
		if !finiteNonNegative(r) {
			return fmt.Errorf("%w: card %s rate for %s is %v", ErrValidation, c.ID, cat, r)
		}
	}
	for cat, limit := range c.RewardsCap {
		if math.IsNaN(limit) || math.IsInf(limit, 0) || limit <= 0 {
			return fmt.Errorf("%w: card %s cap for %s must be positive", ErrValidation, c.ID, cat)
		}
	}
	if !finiteNonNegative(c.AnnualFee) {
		return fmt.Errorf("%w: card %s annual fee %v", ErrValidation, c.ID, c.AnnualFee)
	}
	return nil
}

func finiteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
