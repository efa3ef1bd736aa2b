package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reward-advisor/domain"
)

func groceryPurchase(amount float64) domain.Transaction {
	return domain.Transaction{
		ID:       "txn-1",
		Merchant: "Whole Foods",
		Amount:   -amount,
		Category: domain.CategoryPtr(domain.CategoryGroceries),
		Date:     time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func groceryCards(premiumFee float64) []domain.CreditCard {
	return []domain.CreditCard{
		{
			ID:            "flat",
			Name:          "Flat Cash",
			BaseRate:      0.01,
			CategoryRates: map[domain.Category]float64{domain.CategoryGroceries: 0.02},
			IsActive:      true,
		},
		{
			ID:            "premium",
			Name:          "Grocery Premium",
			BaseRate:      0.01,
			CategoryRates: map[domain.Category]float64{domain.CategoryGroceries: 0.06},
			AnnualFee:     premiumFee,
			IsActive:      true,
		},
	}
}

func TestEvaluate_BonusCategoryWinsAfterFee(t *testing.T) {
	engine := NewRewardsEngine(300)

	calcs, err := engine.Evaluate(groceryPurchase(100), groceryCards(95), EvaluateOptions{})
	require.NoError(t, err)
	require.Len(t, calcs, 2)

	best := calcs[0]
	assert.Equal(t, "premium", best.CardID)
	assert.Equal(t, 6.00, best.GrossReward)
	assert.Equal(t, 0.32, best.AnnualFeeAmortized)
	assert.Equal(t, 5.68, best.NetValue)
	assert.Equal(t, 100.0, best.EligibleSpend)

	assert.Equal(t, "flat", calcs[1].CardID)
	assert.Equal(t, 2.00, calcs[1].NetValue)
}

func TestEvaluate_FeeCanOutweighHigherRate(t *testing.T) {
	engine := NewRewardsEngine(300)

	// 1500/300 = 5.00 per purchase leaves the 6% card netting 1.00.
	calcs, err := engine.Evaluate(groceryPurchase(100), groceryCards(1500), EvaluateOptions{})
	require.NoError(t, err)

	assert.Equal(t, "flat", calcs[0].CardID)
	assert.Equal(t, 1.00, calcs[1].NetValue)
	assert.Greater(t, calcs[1].GrossReward, calcs[0].GrossReward)
}

func TestEvaluate_EstimatedTransactionsOverride(t *testing.T) {
	engine := NewRewardsEngine(300)

	calcs, err := engine.Evaluate(groceryPurchase(100), groceryCards(95), EvaluateOptions{EstimatedAnnualTransactions: 10})
	require.NoError(t, err)

	premium, ok := findCalculation(calcs, "premium")
	require.True(t, ok)
	assert.Equal(t, 9.50, premium.AnnualFeeAmortized)
	assert.Equal(t, -3.50, premium.NetValue)
	assert.Equal(t, "flat", calcs[0].CardID)
}

func TestEvaluate_CapOverflowEarnsBaseRate(t *testing.T) {
	engine := NewRewardsEngine(300)
	cards := groceryCards(0)
	cards[1].RewardsCap = map[domain.Category]float64{domain.CategoryGroceries: 6000}

	calcs, err := engine.Evaluate(groceryPurchase(100), cards, EvaluateOptions{
		PriorCategorySpend: map[string]float64{"premium": 5950},
	})
	require.NoError(t, err)

	premium, ok := findCalculation(calcs, "premium")
	require.True(t, ok)
	assert.True(t, premium.CapApplied)
	assert.Equal(t, 50.0, premium.EligibleSpend)
	assert.Equal(t, 3.50, premium.GrossReward)
}

func TestEvaluate_CapExhausted(t *testing.T) {
	engine := NewRewardsEngine(300)
	cards := groceryCards(0)
	cards[1].RewardsCap = map[domain.Category]float64{domain.CategoryGroceries: 6000}

	calcs, err := engine.Evaluate(groceryPurchase(100), cards, EvaluateOptions{
		PriorCategorySpend: map[string]float64{"premium": 7000},
	})
	require.NoError(t, err)

	premium, _ := findCalculation(calcs, "premium")
	assert.True(t, premium.CapApplied)
	assert.Equal(t, 0.0, premium.EligibleSpend)
	assert.Equal(t, 1.00, premium.GrossReward)
	assert.Equal(t, "flat", calcs[0].CardID)
}

func TestEvaluate_TiesBreakOnFeeThenID(t *testing.T) {
	engine := NewRewardsEngine(300)
	cards := []domain.CreditCard{
		{ID: "c", Name: "C", BaseRate: 0.02, IsActive: true},
		{ID: "b", Name: "B", BaseRate: 0.02, IsActive: true},
		{ID: "a", Name: "A", BaseRate: 0.02, IsActive: true},
	}

	calcs, err := engine.Evaluate(groceryPurchase(100), cards, EvaluateOptions{})
	require.NoError(t, err)

	var ids []string
	for _, c := range calcs {
		ids = append(ids, c.CardID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestEvaluate_Deterministic(t *testing.T) {
	engine := NewRewardsEngine(300)
	first, err := engine.Evaluate(groceryPurchase(83.17), groceryCards(95), EvaluateOptions{})
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		again, err := engine.Evaluate(groceryPurchase(83.17), groceryCards(95), EvaluateOptions{})
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestEvaluate_SkipsInactiveCards(t *testing.T) {
	engine := NewRewardsEngine(300)
	cards := groceryCards(95)
	cards[1].IsActive = false

	calcs, err := engine.Evaluate(groceryPurchase(100), cards, EvaluateOptions{})
	require.NoError(t, err)
	require.Len(t, calcs, 1)
	assert.Equal(t, "flat", calcs[0].CardID)
}

func TestEvaluate_Errors(t *testing.T) {
	engine := NewRewardsEngine(300)

	uncategorized := groceryPurchase(100)
	uncategorized.Category = nil

	refund := groceryPurchase(100)
	refund.Amount = 100

	inactive := groceryCards(0)
	for i := range inactive {
		inactive[i].IsActive = false
	}

	dup := groceryCards(0)
	dup[1].ID = dup[0].ID

	negativeRate := groceryCards(0)
	negativeRate[0].BaseRate = -0.01

	tests := []struct {
		name  string
		txn   domain.Transaction
		cards []domain.CreditCard
		want  error
	}{
		{"missing category", uncategorized, groceryCards(0), domain.ErrCategoryRequired},
		{"not a purchase", refund, groceryCards(0), domain.ErrValidation},
		{"no active cards", groceryPurchase(100), inactive, domain.ErrNoEligibleCards},
		{"no cards", groceryPurchase(100), nil, domain.ErrNoEligibleCards},
		{"duplicate id", groceryPurchase(100), dup, domain.ErrValidation},
		{"negative rate", groceryPurchase(100), negativeRate, domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Evaluate(tt.txn, tt.cards, EvaluateOptions{})
			if !errors.Is(err, tt.want) {
				t.Errorf("got error %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEvaluate_ResolvedCategoryUsedWhenMissing(t *testing.T) {
	engine := NewRewardsEngine(300)
	txn := groceryPurchase(100)
	txn.Category = nil
	txn = txn.WithResolved(domain.CategoryGroceries)

	calcs, err := engine.Evaluate(txn, groceryCards(0), EvaluateOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryGroceries, calcs[0].Category)
}

func TestSavingsVersus(t *testing.T) {
	engine := NewRewardsEngine(300)
	calcs, err := engine.Evaluate(groceryPurchase(100), groceryCards(95), EvaluateOptions{})
	require.NoError(t, err)

	saved, ok := SavingsVersus(calcs, "flat")
	require.True(t, ok)
	assert.Equal(t, 3.68, saved)

	_, ok = SavingsVersus(calcs, "unknown")
	assert.False(t, ok)
	_, ok = SavingsVersus(calcs, "")
	assert.False(t, ok)
}
