package service

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reward-advisor/domain"
)

var aggregatorNow = time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)

func testAggregator(maxCount int) *RecommendationAggregator {
	n := 0
	return NewRecommendationAggregator(AggregatorConfig{
		MaxCount: maxCount,
		TTL:      24 * time.Hour,
		Now:      func() time.Time { return aggregatorNow },
		NewID: func() string {
			n++
			return fmt.Sprintf("rec-%d", n)
		},
	})
}

func groceryOutcomes(t *testing.T, count int, usedCard string) []RewardOutcome {
	t.Helper()
	engine := NewRewardsEngine(300)
	var out []RewardOutcome
	for i := 0; i < count; i++ {
		txn := groceryPurchase(100)
		txn.ID = fmt.Sprintf("txn-%d", i)
		calcs, err := engine.Evaluate(txn, groceryCards(95), EvaluateOptions{})
		require.NoError(t, err)
		out = append(out, RewardOutcome{Transaction: txn, Calculations: calcs, UsedCardID: usedCard, Confidence: 100})
	}
	return out
}

func TestAggregate_CardAndSavings(t *testing.T) {
	agg := testAggregator(5)

	recs := agg.Aggregate(AggregateInput{
		UserID:     "user-1",
		Rewards:    groceryOutcomes(t, 2, "flat"),
		Cards:      groceryCards(95),
		WindowDays: 90,
	}, 0)

	require.Len(t, recs, 2)

	// 2 purchases * 6.00 earned on the premium card, annualized from 90 days.
	savings := recs[0]
	assert.Equal(t, domain.RecommendationSavings, savings.Type)
	assert.Equal(t, "Reconsider the annual fee on Grocery Premium", savings.Title)
	assert.Equal(t, 46.33, savings.ExpectedBenefit)
	assert.Equal(t, domain.PriorityLow, savings.Priority)

	// 2 * (5.68 - 2.00) uplift, annualized.
	card := recs[1]
	assert.Equal(t, domain.RecommendationCard, card.Type)
	assert.Equal(t, "Use Grocery Premium for groceries purchases", card.Title)
	assert.Equal(t, 29.85, card.ExpectedBenefit)
	assert.Equal(t, 100, card.Confidence)
	assert.Equal(t, "rewards", card.Source)

	for i, r := range recs {
		assert.Equal(t, fmt.Sprintf("rec-%d", i+1), r.ID)
		assert.Equal(t, "user-1", r.UserID)
		assert.Equal(t, aggregatorNow, r.CreatedAt)
		require.NotNil(t, r.ExpiresAt)
		assert.Equal(t, aggregatorNow.Add(24*time.Hour), *r.ExpiresAt)
	}
}

func TestAggregate_NoCardAdviceWhenBestCardUsed(t *testing.T) {
	agg := testAggregator(5)

	recs := agg.Aggregate(AggregateInput{
		Rewards:    groceryOutcomes(t, 3, "premium"),
		WindowDays: 90,
	}, 0)
	for _, r := range recs {
		assert.NotEqual(t, domain.RecommendationCard, r.Type)
	}

	recs = agg.Aggregate(AggregateInput{
		Rewards:    groceryOutcomes(t, 3, ""),
		WindowDays: 90,
	}, 0)
	assert.Empty(t, recs)
}

func TestAggregate_DebtPlan(t *testing.T) {
	agg := testAggregator(5)
	debts := threeDebts()
	plan, err := NewDebtPayoffPlanner(DefaultPlannerConfig()).Plan(debts, 100, domain.StrategyAvalanche)
	require.NoError(t, err)

	recs := agg.Aggregate(AggregateInput{Plan: &plan, Debts: debts}, 0)

	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, domain.RecommendationDebt, rec.Type)
	assert.Equal(t, "Follow the avalanche payoff plan", rec.Title)
	assert.Equal(t, "debt_planner", rec.Source)
	assert.Equal(t, 100, rec.Confidence)

	years := math.Max(12, float64(plan.TotalMonths)) / 12
	assert.Equal(t, roundTo2Decimals(plan.TotalInterestSaved/years), rec.ExpectedBenefit)
	require.NotEmpty(t, rec.ActionItems)
	assert.Contains(t, rec.ActionItems[0], "Visa")
}

func TestAggregate_HighAnomalyIsUrgent(t *testing.T) {
	agg := testAggregator(5)
	window := domain.TrailingWindow(aggregatorNow, 90)
	spike := domain.Transaction{ID: "spike", Merchant: "Costco", Amount: -250, Date: aggregatorNow.AddDate(0, 0, -3)}

	analysis := domain.SpendingAnalysis{
		Window:     window,
		Confidence: 95,
		Anomalies: []domain.SpendingAnomaly{
			{Transaction: spike, Category: domain.CategoryGroceries, Severity: domain.SeverityHigh, Mean: 68.18, StdDev: 57.5},
			{Transaction: domain.Transaction{ID: "low", Amount: -80}, Category: domain.CategoryTravel, Severity: domain.SeverityLow, Mean: 80},
		},
		Trends: []domain.CategoryTrend{
			{Category: domain.CategoryPersonalCare, Trend: domain.TrendIncreasing, FirstHalf: 45, SecondHalf: 90},
			{Category: domain.CategoryGas, Trend: domain.TrendStable, FirstHalf: 100, SecondHalf: 100},
		},
	}

	recs := agg.Aggregate(AggregateInput{Spending: &analysis}, 0)
	require.Len(t, recs, 2)

	assert.Equal(t, domain.PriorityUrgent, recs[0].Priority)
	assert.Equal(t, "Review the $250.00 groceries charge at Costco", recs[0].Title)
	assert.Equal(t, 181.82, recs[0].ExpectedBenefit)
	assert.Equal(t, 95, recs[0].Confidence)

	// (90 - 45) over a 45 day half window, annualized.
	assert.Equal(t, "Personal care spending is rising", recs[1].Title)
	assert.Equal(t, 365.0, recs[1].ExpectedBenefit)
	assert.Equal(t, domain.PriorityHigh, recs[1].Priority)
}

func TestAggregate_TruncatesAfterRanking(t *testing.T) {
	agg := testAggregator(2)
	debts := threeDebts()
	plan, err := NewDebtPayoffPlanner(DefaultPlannerConfig()).Plan(debts, 100, domain.StrategyAvalanche)
	require.NoError(t, err)

	all := agg.Aggregate(AggregateInput{
		Rewards:    groceryOutcomes(t, 2, "flat"),
		Cards:      groceryCards(95),
		Plan:       &plan,
		Debts:      debts,
		WindowDays: 90,
	}, 10)
	require.Len(t, all, 3)

	top := agg.Aggregate(AggregateInput{
		Rewards:    groceryOutcomes(t, 2, "flat"),
		Cards:      groceryCards(95),
		Plan:       &plan,
		Debts:      debts,
		WindowDays: 90,
	}, 0)
	require.Len(t, top, 2)
	assert.Equal(t, all[0].Title, top[0].Title)
	assert.Equal(t, all[1].Title, top[1].Title)

	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		if prev.Priority.Rank() == cur.Priority.Rank() {
			assert.GreaterOrEqual(t, prev.ExpectedBenefit, cur.ExpectedBenefit)
		} else {
			assert.Greater(t, prev.Priority.Rank(), cur.Priority.Rank())
		}
	}
}

func TestPriority(t *testing.T) {
	agg := testAggregator(5)

	tests := []struct {
		benefit    float64
		confidence int
		high       bool
		want       domain.Priority
	}{
		{1000, 0, false, domain.PriorityUrgent},
		{10, 0, true, domain.PriorityUrgent},
		{300, 100, false, domain.PriorityHigh},
		{300, 50, false, domain.PriorityMedium},
		{50, 100, false, domain.PriorityMedium},
		{49.99, 100, false, domain.PriorityLow},
		{999, 0, false, domain.PriorityLow},
	}
	for _, tt := range tests {
		if got := agg.priority(tt.benefit, tt.confidence, tt.high); got != tt.want {
			t.Errorf("priority(%v, %d, %v) = %s, want %s", tt.benefit, tt.confidence, tt.high, got, tt.want)
		}
	}
}

func TestFilterCurrent(t *testing.T) {
	past := aggregatorNow.Add(-time.Minute)
	future := aggregatorNow.Add(time.Minute)
	recs := []domain.Recommendation{
		{ID: "expired", ExpiresAt: &past},
		{ID: "edge", ExpiresAt: &aggregatorNow},
		{ID: "current", ExpiresAt: &future},
		{ID: "forever"},
	}

	got := FilterCurrent(recs, aggregatorNow)
	var ids []string
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"current", "forever"}, ids)
}
