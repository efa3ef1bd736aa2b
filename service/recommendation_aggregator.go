package service

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"reward-advisor/domain"
)

// RewardOutcome is one evaluated purchase: the calculations for every active
// card plus the card the user actually paid with.
type RewardOutcome struct {
	Transaction  domain.Transaction
	Calculations []domain.RewardCalculation // best first
	UsedCardID   string
	// Confidence of the category the calculations used; 100 when it was provided.
	Confidence int
}

type AggregateInput struct {
	UserID     string
	Rewards    []RewardOutcome
	Cards      []domain.CreditCard
	Plan       *domain.PayoffPlan
	Debts      []domain.Debt // inputs of Plan
	Spending   *domain.SpendingAnalysis
	WindowDays int // span the reward outcomes cover, used to annualize
}

type AggregatorConfig struct {
	HighImpactThreshold float64
	MaxCount            int
	TTL                 time.Duration
	Now                 func() time.Time
	NewID               func() string
}

func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		HighImpactThreshold: DefaultHighImpactBenefit,
		MaxCount:            DefaultMaxRecommendations,
		TTL:                 DefaultRecommendationTTL,
	}
}

// RecommendationAggregator packages engine results into ranked recommendations.
// Every ExpectedBenefit it emits is derived from engine output.
type RecommendationAggregator struct {
	cfg AggregatorConfig
}

func NewRecommendationAggregator(cfg AggregatorConfig) *RecommendationAggregator {
	if cfg.HighImpactThreshold <= 0 {
		cfg.HighImpactThreshold = DefaultHighImpactBenefit
	}
	if cfg.MaxCount <= 0 {
		cfg.MaxCount = DefaultMaxRecommendations
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultRecommendationTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	return &RecommendationAggregator{cfg: cfg}
}

type candidate struct {
	rec         domain.Recommendation
	highAnomaly bool
}

// Aggregate returns at most maxCount recommendations ordered by priority rank,
// then expected benefit, then title. maxCount <= 0 uses the configured limit.
func (a *RecommendationAggregator) Aggregate(in AggregateInput, maxCount int) []domain.Recommendation {
	if maxCount <= 0 {
		maxCount = a.cfg.MaxCount
	}
	windowDays := in.WindowDays
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	annualize := 365.0 / float64(windowDays)

	var candidates []candidate
	candidates = append(candidates, cardCandidates(in.Rewards, annualize)...)
	candidates = append(candidates, savingsCandidates(in.Rewards, in.Cards, annualize)...)
	if in.Plan != nil {
		if c, ok := debtCandidate(*in.Plan, in.Debts); ok {
			candidates = append(candidates, c)
		}
	}
	if in.Spending != nil {
		candidates = append(candidates, spendingCandidates(*in.Spending)...)
	}

	recs := make([]domain.Recommendation, 0, len(candidates))
	for _, c := range candidates {
		c.rec.ExpectedBenefit = roundTo2Decimals(c.rec.ExpectedBenefit)
		c.rec.Priority = a.priority(c.rec.ExpectedBenefit, c.rec.Confidence, c.highAnomaly)
		recs = append(recs, c.rec)
	}

	sort.SliceStable(recs, func(i, j int) bool {
		ri, rj := recs[i].Priority.Rank(), recs[j].Priority.Rank()
		if ri != rj {
			return ri > rj
		}
		if recs[i].ExpectedBenefit != recs[j].ExpectedBenefit {
			return recs[i].ExpectedBenefit > recs[j].ExpectedBenefit
		}
		return recs[i].Title < recs[j].Title
	})
	if len(recs) > maxCount {
		recs = recs[:maxCount]
	}

	now := a.cfg.Now()
	expires := now.Add(a.cfg.TTL)
	for i := range recs {
		recs[i].ID = a.cfg.NewID()
		recs[i].UserID = in.UserID
		recs[i].CreatedAt = now
		exp := expires
		recs[i].ExpiresAt = &exp
	}
	return recs
}

func (a *RecommendationAggregator) priority(benefit float64, confidence int, highAnomaly bool) domain.Priority {
	if highAnomaly || benefit >= a.cfg.HighImpactThreshold {
		return domain.PriorityUrgent
	}
	score := benefit * float64(confidence) / 100
	switch {
	case score >= HighPriorityScore:
		return domain.PriorityHigh
	case score >= MediumPriorityScore:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

// FilterCurrent drops recommendations that expired at or before now.
func FilterCurrent(recs []domain.Recommendation, now time.Time) []domain.Recommendation {
	out := make([]domain.Recommendation, 0, len(recs))
	for _, r := range recs {
		if r.IsCurrent(now) {
			out = append(out, r)
		}
	}
	return out
}

type cardUplift struct {
	category   domain.Category
	cardID     string
	cardName   string
	uplift     float64
	count      int
	confidence int
}

// cardCandidates recommends, per category, the card that would have earned the
// most over what was actually used.
func cardCandidates(outcomes []RewardOutcome, annualize float64) []candidate {
	byKey := make(map[string]*cardUplift)
	for _, o := range outcomes {
		if len(o.Calculations) == 0 || o.UsedCardID == "" {
			continue
		}
		best := o.Calculations[0]
		if best.CardID == o.UsedCardID {
			continue
		}
		used, ok := findCalculation(o.Calculations, o.UsedCardID)
		if !ok {
			continue
		}
		key := string(best.Category) + "\x00" + best.CardID
		u, ok := byKey[key]
		if !ok {
			u = &cardUplift{category: best.Category, cardID: best.CardID, cardName: best.CardName, confidence: 100}
			byKey[key] = u
		}
		u.uplift += best.NetValue - used.NetValue
		u.count++
		u.confidence = min(u.confidence, clampConfidence(o.Confidence))
	}

	// One recommendation per category: the card with the largest uplift.
	perCategory := make(map[domain.Category]*cardUplift)
	for _, u := range byKey {
		cur, ok := perCategory[u.category]
		if !ok || u.uplift > cur.uplift || (u.uplift == cur.uplift && u.cardID < cur.cardID) {
			perCategory[u.category] = u
		}
	}

	var out []candidate
	for _, u := range perCategory {
		annual := u.uplift * annualize
		if annual < MinorUnit {
			continue
		}
		out = append(out, candidate{rec: domain.Recommendation{
			Type:  domain.RecommendationCard,
			Title: fmt.Sprintf("Use %s for %s purchases", u.cardName, u.category),
			Description: fmt.Sprintf("%d recent %s purchases would have earned $%.2f more on %s.",
				u.count, u.category, u.uplift, u.cardName),
			ActionItems: []string{
				fmt.Sprintf("Make %s your default card for %s", u.cardName, u.category),
				fmt.Sprintf("Expect about $%.2f more in rewards per year", annual),
			},
			ExpectedBenefit: annual,
			Confidence:      u.confidence,
			Source:          "rewards",
		}})
	}
	return out
}

// savingsCandidates flags cards whose annual fee exceeds what they would earn
// as the best card for the observed purchases.
func savingsCandidates(outcomes []RewardOutcome, cards []domain.CreditCard, annualize float64) []candidate {
	if len(outcomes) == 0 {
		return nil
	}
	earned := make(map[string]float64)
	evaluated := make(map[string]bool)
	confidence := 100
	for _, o := range outcomes {
		if len(o.Calculations) == 0 {
			continue
		}
		confidence = min(confidence, clampConfidence(o.Confidence))
		for _, c := range o.Calculations {
			evaluated[c.CardID] = true
		}
		best := o.Calculations[0]
		earned[best.CardID] += best.GrossReward
	}

	var out []candidate
	for _, card := range cards {
		if !card.IsActive || card.AnnualFee <= 0 || !evaluated[card.ID] {
			continue
		}
		rewards := earned[card.ID] * annualize
		gap := card.AnnualFee - rewards
		if gap < MinorUnit {
			continue
		}
		out = append(out, candidate{rec: domain.Recommendation{
			Type:  domain.RecommendationSavings,
			Title: fmt.Sprintf("Reconsider the annual fee on %s", card.Name),
			Description: fmt.Sprintf("%s costs $%.2f a year but is on track to earn only $%.2f in rewards.",
				card.Name, card.AnnualFee, rewards),
			ActionItems: []string{
				fmt.Sprintf("Ask %s for a no-fee product change", issuerOrName(card)),
				"Move spending to a no-fee card with similar category rates",
			},
			ExpectedBenefit: gap,
			Confidence:      confidence,
			Source:          "rewards",
		}})
	}
	return out
}

func issuerOrName(card domain.CreditCard) string {
	if card.Issuer != "" {
		return card.Issuer
	}
	return card.Name
}

// debtCandidate spreads interest saved over the plan's length, at least a year.
func debtCandidate(plan domain.PayoffPlan, debts []domain.Debt) (candidate, bool) {
	if plan.TotalInterestSaved < MinorUnit || plan.TotalMonths <= 0 {
		return candidate{}, false
	}
	years := math.Max(12, float64(plan.TotalMonths)) / 12
	benefit := plan.TotalInterestSaved / years

	rates := make(map[string]float64, len(debts))
	for _, d := range debts {
		rates[d.Name] = d.InterestRate
	}

	items := make([]string, 0, len(plan.Debts)+1)
	if len(plan.PayoffOrder) > 0 {
		items = append(items, fmt.Sprintf("Pay every minimum and put the extra payment toward %s first", plan.PayoffOrder[0]))
	}
	for _, d := range plan.Debts {
		rate, known := rates[d.Name]
		if d.PayoffMonth > 12 && known {
			// Fixed payment that would clear this debt within a year on its own.
			if pmt, err := PaymentToClear(d.StartingBalance, rate, 12); err == nil {
				items = append(items, fmt.Sprintf("Paying $%.2f a month would clear %s in 12 months instead of %d", pmt, d.Name, d.PayoffMonth))
			}
			continue
		}
		items = append(items, fmt.Sprintf("%s is paid off in month %d", d.Name, d.PayoffMonth))
	}

	strategy := string(plan.Strategy)
	if plan.Basis != "" && plan.Basis != plan.Strategy {
		strategy = fmt.Sprintf("%s (%s ordering)", plan.Strategy, plan.Basis)
	}
	return candidate{rec: domain.Recommendation{
		Type:  domain.RecommendationDebt,
		Title: fmt.Sprintf("Follow the %s payoff plan", plan.Basis),
		Description: fmt.Sprintf("The %s plan clears $%.2f of debt in %d months and saves $%.2f in interest versus minimum payments.",
			strategy, plan.TotalDebt, plan.TotalMonths, plan.TotalInterestSaved),
		ActionItems:     items,
		ExpectedBenefit: benefit,
		Confidence:      100,
		Source:          "debt_planner",
	}}, true
}

func spendingCandidates(a domain.SpendingAnalysis) []candidate {
	confidence := clampConfidence(a.Confidence)
	halfDays := float64(a.Window.Days()) / 2

	var out []candidate
	for _, an := range a.Anomalies {
		if an.Severity == domain.SeverityLow {
			continue
		}
		spend := an.Transaction.Spend()
		excess := spend - an.Mean
		if excess < MinorUnit {
			continue
		}
		merchant := an.Transaction.Merchant
		if merchant == "" {
			merchant = an.Transaction.ID
		}
		out = append(out, candidate{
			rec: domain.Recommendation{
				Type:  domain.RecommendationSpending,
				Title: fmt.Sprintf("Review the $%.2f %s charge at %s", spend, an.Category, merchant),
				Description: fmt.Sprintf("This charge is $%.2f above your typical %s purchase of $%.2f.",
					excess, an.Category, an.Mean),
				ActionItems: []string{
					"Confirm the charge is legitimate",
					fmt.Sprintf("Set a %s budget alert near $%.2f", an.Category, an.Mean+an.StdDev),
				},
				ExpectedBenefit: excess,
				Confidence:      confidence,
				Source:          "spending",
			},
			highAnomaly: an.Severity == domain.SeverityHigh,
		})
	}

	for _, t := range a.Trends {
		if t.Trend != domain.TrendIncreasing || halfDays <= 0 {
			continue
		}
		// Annual cost of the second half's pace over the first half's.
		annual := (t.SecondHalf - t.FirstHalf) * 365 / halfDays
		if annual < MinorUnit {
			continue
		}
		out = append(out, candidate{rec: domain.Recommendation{
			Type:  domain.RecommendationSpending,
			Title: fmt.Sprintf("%s spending is rising", capitalize(string(t.Category))),
			Description: fmt.Sprintf("You spent $%.2f on %s in the second half of the period, up from $%.2f.",
				t.SecondHalf, t.Category, t.FirstHalf),
			ActionItems: []string{
				fmt.Sprintf("Review recent %s purchases", t.Category),
				fmt.Sprintf("Hold %s near $%.2f per period to save about $%.2f a year", t.Category, t.FirstHalf, annual),
			},
			ExpectedBenefit: annual,
			Confidence:      confidence,
			Source:          "spending",
		}})
	}
	return out
}

func clampConfidence(c int) int {
	return max(0, min(100, c))
}

func capitalize(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
