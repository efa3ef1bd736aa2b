package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"reward-advisor/domain"
	"reward-advisor/repository"
)

// scriptedOracle answers every prompt with reply, or blocks until ctx ends
// when block is set.
type scriptedOracle struct {
	mu      sync.Mutex
	reply   func(prompt string) string
	block   bool
	prompts []string
}

func (o *scriptedOracle) Name() string { return "scripted" }

func (o *scriptedOracle) Explain(ctx context.Context, prompt string) (string, error) {
	o.mu.Lock()
	o.prompts = append(o.prompts, prompt)
	o.mu.Unlock()
	if o.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return o.reply(prompt), nil
}

func (o *scriptedOracle) calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.prompts)
}

func newTestAdvisor(oracle ExplanationSource, timeout time.Duration) *AdvisorService {
	return NewAdvisorService(AdvisorDeps{
		Oracle:     oracle,
		Aggregator: testAggregator(5),
		Now:        func() time.Time { return aggregatorNow },
	}, AdvisorConfig{OracleTimeout: timeout, PlanCacheTTL: time.Hour})
}

func TestOptimizeCard_OracleDisabled(t *testing.T) {
	defer goleak.VerifyNone(t)
	advisor := newTestAdvisor(nil, time.Second)

	advice, err := advisor.OptimizeCard(context.Background(), CardRequest{
		Transaction:   groceryPurchase(100),
		Cards:         groceryCards(95),
		CurrentCardID: "flat",
	})
	require.NoError(t, err)

	assert.Equal(t, "premium", advice.Best.CardID)
	assert.Equal(t, domain.SourceProvided, advice.Categorization.Source)
	require.NotNil(t, advice.SavingsVsCurrentCard)
	assert.Equal(t, 3.68, *advice.SavingsVsCurrentCard)
	assert.NotEmpty(t, advice.Explanation)
	assert.Equal(t, "disabled", advice.Oracle.Source)
	assert.Empty(t, advice.Oracle.Outcome)
}

func TestOptimizeCard_SlowOracleFallsBack(t *testing.T) {
	defer goleak.VerifyNone(t)
	oracle := &scriptedOracle{block: true}
	advisor := newTestAdvisor(oracle, 30*time.Millisecond)

	start := time.Now()
	advice, err := advisor.OptimizeCard(context.Background(), CardRequest{
		Transaction: groceryPurchase(100),
		Cards:       groceryCards(95),
	})
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, "premium", advice.Best.CardID)
	assert.Equal(t, fallbackCardExplanation(advice.Calculations), advice.Explanation)
	assert.Equal(t, domain.OutcomeRejected, advice.Oracle.Outcome)
	assert.Contains(t, advice.Oracle.Error, context.DeadlineExceeded.Error())
}

func TestOptimizeCard_InflatedOracleClaimRepaired(t *testing.T) {
	oracle := &scriptedOracle{reply: func(string) string {
		return `The premium card is best. {"optimalCardId": "premium", "rewardsAmount": 9, "reasoning": "Six percent on groceries."}`
	}}
	advisor := newTestAdvisor(oracle, time.Second)

	advice, err := advisor.OptimizeCard(context.Background(), CardRequest{
		Transaction: groceryPurchase(100),
		Cards:       groceryCards(95),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeRepaired, advice.Oracle.Outcome)
	assert.Equal(t, "Six percent on groceries.", advice.Explanation)
	assert.Equal(t, 6.00, advice.Best.GrossReward)
	_, ok := annotationFor(advice.Oracle.Annotations, domain.AnnotationOracleMismatch, "$.rewardsAmount")
	assert.True(t, ok)
}

func TestOptimizeCard_OracleCategorizesUnknownMerchant(t *testing.T) {
	oracle := &scriptedOracle{reply: func(prompt string) string {
		if strings.Contains(prompt, "Zyxw") && !strings.Contains(prompt, "rewardsAmount") {
			return `{"category": "groceries", "confidence": 88}`
		}
		return "no json here"
	}}
	advisor := newTestAdvisor(oracle, time.Second)

	txn := groceryPurchase(100)
	txn.Category = nil
	txn.Merchant = "Zyxw Provisions"

	advice, err := advisor.OptimizeCard(context.Background(), CardRequest{Transaction: txn, Cards: groceryCards(95)})
	require.NoError(t, err)

	assert.Equal(t, domain.SourceOracle, advice.Categorization.Source)
	assert.Equal(t, domain.CategoryGroceries, advice.Best.Category)
	assert.Equal(t, domain.OutcomeRejected, advice.Oracle.Outcome)
	assert.Contains(t, advice.Explanation, "Use Grocery Premium")
}

func TestOptimizeCard_Errors(t *testing.T) {
	advisor := newTestAdvisor(nil, time.Second)

	_, err := advisor.OptimizeCard(context.Background(), CardRequest{Transaction: groceryPurchase(100)})
	assert.ErrorIs(t, err, domain.ErrNoEligibleCards)

	refund := groceryPurchase(100)
	refund.Amount = 20
	_, err = advisor.OptimizeCard(context.Background(), CardRequest{Transaction: refund, Cards: groceryCards(0)})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestPlanDebts_CachesPlan(t *testing.T) {
	defer goleak.VerifyNone(t)
	cache := repository.NewMemoryCache()
	advisor := NewAdvisorService(AdvisorDeps{Cache: cache}, DefaultAdvisorConfig())
	req := DebtRequest{Debts: threeDebts(), ExtraMonthlyPayment: 100, Strategy: domain.StrategyAvalanche}

	first, err := advisor.PlanDebts(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 1, cache.Len())
	assert.NotEmpty(t, first.Plan.Explanation)

	// Same debts in another order hit the same entry.
	reordered := req
	reordered.Debts = []domain.Debt{req.Debts[2], req.Debts[0], req.Debts[1]}
	second, err := advisor.PlanDebts(context.Background(), reordered)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Plan.PayoffOrder, second.Plan.PayoffOrder)
	assert.Equal(t, first.Plan.TotalInterestPaid, second.Plan.TotalInterestPaid)
	assert.Equal(t, first.Plan.MonthlyPlan, second.Plan.MonthlyPlan)
}

func TestPlanDebts_CacheKeyFollowsPlannerConfig(t *testing.T) {
	cache := repository.NewMemoryCache()
	req := DebtRequest{Debts: threeDebts(), ExtraMonthlyPayment: 100}

	first := NewAdvisorService(AdvisorDeps{Cache: cache}, DefaultAdvisorConfig())
	_, err := first.PlanDebts(context.Background(), req)
	require.NoError(t, err)

	stricter := DefaultPlannerConfig()
	stricter.HybridMonthThreshold = 0
	second := NewAdvisorService(AdvisorDeps{Cache: cache, Planner: NewDebtPayoffPlanner(stricter)}, DefaultAdvisorConfig())
	advice, err := second.PlanDebts(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, advice.Cached)
	assert.Equal(t, 2, cache.Len())
}

func TestPlanDebts_CancelledContext(t *testing.T) {
	advisor := newTestAdvisor(nil, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := advisor.PlanDebts(ctx, DebtRequest{Debts: threeDebts(), ExtraMonthlyPayment: 100})
	if err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("expected nil or context.Canceled, got %v", err)
	}
}

func TestPlanDebts_OracleReasoningUsed(t *testing.T) {
	oracle := &scriptedOracle{reply: func(string) string {
		return `{"strategy": "avalanche", "reasoning": "Kill the 24% card first.", "payoffOrder": ["Visa", "Store Card", "Family Loan"]}`
	}}
	advisor := newTestAdvisor(oracle, time.Second)

	advice, err := advisor.PlanDebts(context.Background(), DebtRequest{
		Debts: threeDebts(), ExtraMonthlyPayment: 100, Strategy: domain.StrategyAvalanche,
	})
	require.NoError(t, err)
	assert.Equal(t, "Kill the 24% card first.", advice.Plan.Explanation)
	assert.Equal(t, domain.OutcomeVerified, advice.Oracle.Outcome)
}

func snapshot() RecommendationRequest {
	var txns []domain.Transaction
	for i := 0; i < 6; i++ {
		txn := purchase("g"+string(rune('a'+i)), "Safeway", domain.CategoryGroceries, 100, 80-i*12)
		txn.CardID = "flat"
		txns = append(txns, txn)
	}
	return RecommendationRequest{
		UserID:              "user-1",
		Cards:               groceryCards(95),
		Transactions:        txns,
		Debts:               threeDebts(),
		ExtraMonthlyPayment: 100,
		Strategy:            domain.StrategyAvalanche,
		WindowEnd:           windowEnd,
		WindowDays:          90,
	}
}

func TestGenerateRecommendations(t *testing.T) {
	defer goleak.VerifyNone(t)
	oracle := &scriptedOracle{reply: func(string) string {
		return `{"summary": "Switch cards and pay the Visa.", "explanations": [{"id": "rec-1", "text": "Because it pays."}]}`
	}}
	advisor := newTestAdvisor(oracle, time.Second)

	result, err := advisor.GenerateRecommendations(context.Background(), snapshot())
	require.NoError(t, err)

	require.NotEmpty(t, result.Recommendations)
	assert.Equal(t, "Switch cards and pay the Visa.", result.Summary)
	assert.Equal(t, domain.OutcomeVerified, result.Oracle.Outcome)
	assert.Empty(t, result.Warnings)

	types := map[domain.RecommendationType]bool{}
	for _, r := range result.Recommendations {
		types[r.Type] = true
		assert.Equal(t, "user-1", r.UserID)
		if r.ID == "rec-1" {
			assert.Equal(t, "Because it pays.", r.Rationale)
		}
	}
	assert.True(t, types[domain.RecommendationCard])
	assert.True(t, types[domain.RecommendationDebt])

	stored, err := advisor.CurrentRecommendations(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, stored, len(result.Recommendations))
}

func TestGenerateRecommendations_RecomputeSupersedes(t *testing.T) {
	advisor := newTestAdvisor(nil, time.Second)
	req := snapshot()
	req.Cards, req.Transactions = nil, nil

	var last RecommendationResult
	for i := 0; i < 3; i++ {
		result, err := advisor.GenerateRecommendations(context.Background(), req)
		require.NoError(t, err)
		require.Len(t, result.Recommendations, 1)
		last = result
	}

	stored, err := advisor.CurrentRecommendations(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, last.Recommendations[0].ID, stored[0].ID)
}

func TestGenerateRecommendations_NonFatalConditions(t *testing.T) {
	advisor := newTestAdvisor(nil, time.Second)
	req := snapshot()
	for i := range req.Cards {
		req.Cards[i].IsActive = false
	}
	req.Debts = []domain.Debt{{Name: "Loan", Balance: 100000, InterestRate: 0.3, MinimumPayment: 10}}
	req.ExtraMonthlyPayment = 0

	result, err := advisor.GenerateRecommendations(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, result.Warnings, 2)
	assert.Equal(t, "No recommendations right now.", result.Summary)
	assert.Empty(t, result.Oracle.Outcome)
}

func TestGenerateRecommendations_Validation(t *testing.T) {
	advisor := newTestAdvisor(nil, time.Second)

	req := snapshot()
	req.UserID = ""
	_, err := advisor.GenerateRecommendations(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrValidation)

	req = snapshot()
	req.ExtraMonthlyPayment = -1
	_, err = advisor.GenerateRecommendations(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = advisor.CurrentRecommendations(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSetRulesAppliesToLaterRequests(t *testing.T) {
	advisor := newTestAdvisor(nil, time.Second)
	rules, err := ParseRuleSet([]byte("categories:\n  - name: groceries\n    merchants: [zyxw provisions]\n"))
	require.NoError(t, err)
	advisor.SetRules(rules)

	txn := groceryPurchase(100)
	txn.Category = nil
	txn.Merchant = "Zyxw Provisions"
	advice, err := advisor.OptimizeCard(context.Background(), CardRequest{Transaction: txn, Cards: groceryCards(95)})
	require.NoError(t, err)
	assert.Equal(t, domain.SourceRule, advice.Categorization.Source)
	assert.Equal(t, "premium", advice.Best.CardID)
}
