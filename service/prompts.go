package service

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"reward-advisor/domain"
)

const systemPrompt = `You are a personal finance assistant. Every figure you are given was computed by a deterministic engine; repeat those figures, never invent new ones. Reply in exactly the format each request asks for; when it asks for JSON, send no prose outside it. Never guarantee investment returns.`

func cardAdvicePrompt(txn domain.Transaction, cards []domain.CreditCard, calcs []domain.RewardCalculation) string {
	category, _ := txn.EffectiveCategory()

	var b strings.Builder
	for _, c := range calcs {
		fmt.Fprintf(&b, "- %s (%s): rate %.2f%%, rewards $%.2f, fee share $%.2f, net $%.2f\n",
			c.CardName, c.CardID, c.EffectiveRate*100, c.GrossReward, c.AnnualFeeAmortized, c.NetValue)
	}

	return fmt.Sprintf(`Explain which credit card to use for this purchase.

PURCHASE:
- Merchant: %s
- Amount: $%.2f
- Category: %s

CARDS AVAILABLE: %d
COMPUTED REWARDS (best first):
%s
Respond with ONLY valid JSON in this exact format:
{
  "category": "%s",
  "optimalCardId": "card id from the list",
  "rewardsAmount": 0.00,
  "reasoning": "two sentences",
  "alternatives": [{"cardId": "id", "rewardsAmount": 0.00, "reason": "short"}]
}`,
		txn.Merchant, txn.Spend(), category, len(cards), b.String(), category)
}

func debtAdvicePrompt(debts []domain.Debt, extra float64, plan domain.PayoffPlan) string {
	comparisonText := ""
	if plan.Comparison != nil {
		comparisonText = fmt.Sprintf(`
STRATEGY COMPARISON:
- Snowball: $%.2f interest, %d months
- Avalanche: $%.2f interest, %d months`,
			plan.Comparison.Snowball.TotalInterestPaid, plan.Comparison.Snowball.MonthsToPayoff,
			plan.Comparison.Avalanche.TotalInterestPaid, plan.Comparison.Avalanche.MonthsToPayoff)
	}

	return fmt.Sprintf(`Explain this debt payoff plan in a clear, motivating way.

STRATEGY: %s (ordering: %s)
EXTRA MONTHLY PAYMENT: $%.2f

SUMMARY:
- Total debt: $%.2f
- Interest paid: $%.2f
- Interest saved versus minimum payments: $%.2f
- Months to payoff: %d (%.1f years)
- Payoff order: %s

DEBTS:
%s%s

Respond with ONLY valid JSON:
{
  "strategy": "%s",
  "reasoning": "4-5 sentences",
  "payoffOrder": ["debt names in order"],
  "timeline": %d,
  "totalInterestSaved": %.2f
}`,
		plan.Strategy, plan.Basis, extra,
		plan.TotalDebt, plan.TotalInterestPaid, plan.TotalInterestSaved,
		plan.TotalMonths, float64(plan.TotalMonths)/12.0,
		strings.Join(plan.PayoffOrder, ", "),
		formatDebts(debts), comparisonText,
		plan.Strategy, plan.TotalMonths, plan.TotalInterestSaved)
}

func formatDebts(debts []domain.Debt) string {
	if len(debts) == 0 {
		return ""
	}
	var result strings.Builder
	for _, debt := range debts {
		result.WriteString(fmt.Sprintf("- %s: $%.2f at %.2f%% APR, minimum $%.2f\n",
			debt.Name, debt.Balance, debt.InterestRate*100, debt.MinimumPayment))
	}
	return result.String()
}

type promptRecommendation struct {
	ID              string   `json:"id"`
	Type            string   `json:"type"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	ExpectedBenefit float64  `json:"expectedBenefit"`
	Priority        string   `json:"priority"`
	ActionItems     []string `json:"actionItems"`
}

func explanationsPrompt(recs []domain.Recommendation) string {
	items := make([]promptRecommendation, 0, len(recs))
	for _, r := range recs {
		items = append(items, promptRecommendation{
			ID:              r.ID,
			Type:            string(r.Type),
			Title:           r.Title,
			Description:     r.Description,
			ExpectedBenefit: r.ExpectedBenefit,
			Priority:        string(r.Priority),
			ActionItems:     r.ActionItems,
		})
	}
	data, _ := json.MarshalIndent(items, "", "  ")

	return fmt.Sprintf(`Write a short, friendly rationale for each of these financial recommendations. Keep each id, expectedBenefit and priority exactly as given.

RECOMMENDATIONS:
%s

Respond with ONLY valid JSON:
{
  "summary": "one sentence overview",
  "explanations": [{"id": "recommendation id", "text": "2-3 sentences", "expectedBenefit": 0.00, "priority": "low|medium|high|urgent"}]
}`, string(data))
}

func categorizationPrompt(txn domain.Transaction) string {
	labels := make([]string, 0, 16)
	for _, c := range domain.Categories() {
		labels = append(labels, "- "+string(c))
	}
	sort.Strings(labels)

	return fmt.Sprintf(`Categorize this transaction.

Merchant: %s
Amount: $%.2f

Choose from these categories:
%s

Respond with ONLY valid JSON:
{
  "category": "exact category name from list above",
  "subcategory": "optional more specific category",
  "confidence": 0
}`, txn.Merchant, txn.Spend(), strings.Join(labels, "\n"))
}

func questionPrompt(question string, fc FinancialContext) string {
	data, _ := json.MarshalIndent(fc, "", "  ")

	return fmt.Sprintf(`You are a careful personal finance advisor. Answer the user's question in plain prose, at most a few short paragraphs.

Rules:
- Use only the figures in the context below; do not invent balances, rates or returns
- Never guarantee investment returns and mention the main risk of any suggestion
- Do not recommend specific stocks or crypto assets
- Suggest a licensed professional for tax or legal matters

USER'S FINANCIAL CONTEXT (computed, authoritative):
%s

QUESTION:
%s`, string(data), question)
}

// Fallbacks are used whenever the oracle is disabled, slow or rejected.

func fallbackCardExplanation(calcs []domain.RewardCalculation) string {
	if len(calcs) == 0 {
		return ""
	}
	best := calcs[0]
	text := fmt.Sprintf("Use %s for this %s purchase: it earns $%.2f at %.2f%%, worth $%.2f after its share of the annual fee.",
		best.CardName, best.Category, best.GrossReward, best.EffectiveRate*100, best.NetValue)
	if best.CapApplied {
		text += " The category bonus cap was reached, so part of the purchase earns the base rate."
	}
	if len(calcs) > 1 {
		next := calcs[1]
		text += fmt.Sprintf(" The next best option, %s, is worth $%.2f.", next.CardName, next.NetValue)
	}
	return text
}

func fallbackDebtExplanation(plan domain.PayoffPlan) string {
	strategyName := "Snowball"
	if plan.Basis == domain.StrategyAvalanche {
		strategyName = "Avalanche"
	}
	if plan.Strategy == domain.StrategyHybrid {
		strategyName = "Hybrid (" + strategyName + " ordering)"
	}
	return fmt.Sprintf("With the %s strategy you will pay $%.2f in interest and be debt-free in %d months (%.1f years), saving $%.2f compared with minimum payments only. %s",
		strategyName, plan.TotalInterestPaid, plan.TotalMonths, float64(plan.TotalMonths)/12.0,
		plan.TotalInterestSaved, strategyTip(plan.Basis))
}

func strategyTip(strategy domain.Strategy) string {
	if strategy == domain.StrategySnowball {
		return "Clearing the smallest balances first frees up their minimum payments early and keeps motivation high."
	}
	return "Paying the highest interest rate first minimizes the total cost of your debt."
}
