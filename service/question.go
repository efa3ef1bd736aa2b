package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"reward-advisor/domain"
)

const (
	MaxQuestionRunes = 1000
	MaxAnswerRunes   = 4000
)

// AdvisorDisclaimer accompanies every answer, whether written by the oracle
// or assembled locally.
const AdvisorDisclaimer = "This is general information based on the figures you supplied, not professional financial advice. " +
	"Investment returns are never guaranteed. Consult a licensed professional for tax or legal questions."

// QuestionRequest is a free-form question plus the snapshot it is asked about.
// Every snapshot field is optional.
type QuestionRequest struct {
	Question            string
	Cards               []domain.CreditCard
	Transactions        []domain.Transaction
	Debts               []domain.Debt
	ExtraMonthlyPayment float64
	WindowEnd           time.Time // zero means now
	WindowDays          int
}

// FinancialContext is the engine-computed profile the oracle answers from.
type FinancialContext struct {
	WindowDays       int                         `json:"windowDays"`
	TotalSpend       float64                     `json:"totalSpend"`
	SpendByCategory  map[domain.Category]float64 `json:"spendByCategory,omitempty"`
	RisingCategories []domain.Category           `json:"risingCategories,omitempty"`
	Anomalies        int                         `json:"anomalies"`
	ActiveCards      []string                    `json:"activeCards,omitempty"`
	TotalDebt        float64                     `json:"totalDebt"`
	MonthlyMinimums  float64                     `json:"monthlyMinimums"`
	PayoffStrategy   domain.Strategy             `json:"payoffStrategy,omitempty"`
	PayoffOrder      []string                    `json:"payoffOrder,omitempty"`
	PayoffMonths     int                         `json:"payoffMonths,omitempty"`
	InterestSaved    float64                     `json:"interestSaved,omitempty"`
	PlanConverges    bool                        `json:"planConverges"`
}

type Answer struct {
	Answer     string
	Disclaimer string
	Context    FinancialContext
	Oracle     OracleReport
}

// Ask answers a free-form question. The oracle only writes prose around the
// computed context; without it the answer is a summary of that context.
func (s *AdvisorService) Ask(ctx context.Context, req QuestionRequest) (Answer, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return Answer{}, fmt.Errorf("%w: question is required", domain.ErrValidation)
	}
	if utf8.RuneCountInString(question) > MaxQuestionRunes {
		return Answer{}, fmt.Errorf("%w: question is longer than %d characters", domain.ErrValidation, MaxQuestionRunes)
	}

	fc, err := s.financialContext(ctx, req)
	if err != nil {
		return Answer{}, err
	}

	answer := Answer{
		Answer:     fallbackAnswer(fc),
		Disclaimer: AdvisorDisclaimer,
		Context:    fc,
	}

	raw, err := s.ask(ctx, "question", questionPrompt(question, fc))
	if err != nil {
		answer.Oracle = failedReport(s.oracle.Name(), err)
		return answer, nil
	}

	text := strings.TrimSpace(raw)
	if text == "" {
		answer.Oracle = failedReport(s.oracle.Name(), ErrOracleEmpty)
		return answer, nil
	}
	answer.Answer, answer.Oracle = text, OracleReport{Source: s.oracle.Name(), Outcome: domain.OutcomeVerified}
	if clipped, cut := clipRunes(text, MaxAnswerRunes); cut {
		answer.Answer = clipped
		answer.Oracle.Outcome = domain.OutcomeRepaired
	}
	s.logger.Debug("question answered",
		zap.String("source", s.oracle.Name()),
		zap.Int("runes", utf8.RuneCountInString(answer.Answer)))
	return answer, nil
}

// financialContext runs the engines the snapshot has data for.
func (s *AdvisorService) financialContext(ctx context.Context, req QuestionRequest) (FinancialContext, error) {
	window := s.window(req.WindowEnd, req.WindowDays)
	fc := FinancialContext{WindowDays: window.Days()}

	for _, c := range req.Cards {
		if c.IsActive {
			fc.ActiveCards = append(fc.ActiveCards, c.Name)
		}
	}

	debt, minimums := decimal.Zero, decimal.Zero
	for _, d := range req.Debts {
		debt = debt.Add(money(d.Balance))
		minimums = minimums.Add(money(d.MinimumPayment))
	}
	fc.TotalDebt, fc.MonthlyMinimums = toMoney(debt), toMoney(minimums)

	var (
		analysis domain.SpendingAnalysis
		plan     domain.PayoffPlan
		planned  bool
	)
	eg, egCtx := errgroup.WithContext(ctx)
	if len(req.Transactions) > 0 {
		eg.Go(func() error {
			var err error
			analysis, err = s.spending.Analyze(req.Transactions, window)
			return err
		})
	}
	if len(req.Debts) > 0 {
		eg.Go(func() error {
			p, _, err := s.plan(egCtx, req.Debts, req.ExtraMonthlyPayment, domain.StrategyHybrid)
			if errors.Is(err, domain.ErrPlanDoesNotConverge) {
				return nil
			}
			if err != nil {
				return err
			}
			plan, planned = p, true
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return FinancialContext{}, err
	}

	if len(req.Transactions) > 0 {
		fc.TotalSpend = analysis.TotalSpend
		fc.SpendByCategory = analysis.Breakdown
		fc.Anomalies = len(analysis.Anomalies)
		for _, t := range analysis.Trends {
			if t.Trend == domain.TrendIncreasing {
				fc.RisingCategories = append(fc.RisingCategories, t.Category)
			}
		}
	}
	if planned {
		fc.PlanConverges = true
		fc.PayoffStrategy = plan.Basis
		fc.PayoffOrder = plan.PayoffOrder
		fc.PayoffMonths = plan.TotalMonths
		fc.InterestSaved = plan.TotalInterestSaved
	}
	return fc, nil
}

func fallbackAnswer(fc FinancialContext) string {
	parts := []string{"The advisor cannot answer free-form questions right now. Here is what your numbers show."}

	if fc.TotalSpend > 0 {
		line := fmt.Sprintf("You spent $%.2f over the last %d days", fc.TotalSpend, fc.WindowDays)
		if cat, amount, ok := topCategory(fc.SpendByCategory); ok {
			line += fmt.Sprintf(", most of it on %s ($%.2f)", categoryLabel(cat), amount)
		}
		parts = append(parts, line+".")
	}
	if len(fc.RisingCategories) > 0 {
		labels := make([]string, 0, len(fc.RisingCategories))
		for _, c := range fc.RisingCategories {
			labels = append(labels, categoryLabel(c))
		}
		parts = append(parts, fmt.Sprintf("Spending is rising in %s.", strings.Join(labels, ", ")))
	}
	if fc.Anomalies > 0 {
		parts = append(parts, fmt.Sprintf("%d charges look unusual for their category.", fc.Anomalies))
	}
	switch {
	case fc.TotalDebt > 0 && fc.PlanConverges:
		parts = append(parts, fmt.Sprintf("You owe $%.2f. Following the %s ordering clears it in %d months and saves $%.2f in interest.",
			fc.TotalDebt, fc.PayoffStrategy, fc.PayoffMonths, fc.InterestSaved))
	case fc.TotalDebt > 0:
		parts = append(parts, fmt.Sprintf("You owe $%.2f and the current payments do not clear it. Raising the monthly payment above $%.2f is the first step.",
			fc.TotalDebt, fc.MonthlyMinimums))
	}
	if len(parts) == 1 {
		parts = append(parts, "Share your cards, transactions or debts for a personalised summary.")
	}
	return strings.Join(parts, " ")
}

func categoryLabel(c domain.Category) string {
	return strings.ReplaceAll(string(c), "_", " ")
}

func topCategory(breakdown map[domain.Category]float64) (domain.Category, float64, bool) {
	cats := make([]domain.Category, 0, len(breakdown))
	for c := range breakdown {
		cats = append(cats, c)
	}
	if len(cats) == 0 {
		return "", 0, false
	}
	sort.Slice(cats, func(i, j int) bool {
		if breakdown[cats[i]] != breakdown[cats[j]] {
			return breakdown[cats[i]] > breakdown[cats[j]]
		}
		return cats[i] < cats[j]
	})
	return cats[0], breakdown[cats[0]], true
}

// clipRunes cuts s to at most max runes, preferring the last sentence or word
// boundary.
func clipRunes(s string, max int) (string, bool) {
	if utf8.RuneCountInString(s) <= max {
		return s, false
	}
	runes := []rune(s)
	cut := string(runes[:max])
	if i := strings.LastIndexAny(cut, ".!?"); i > len(cut)/2 {
		return cut[:i+1], true
	}
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		return strings.TrimSpace(cut[:i]) + "...", true
	}
	return cut, true
}
