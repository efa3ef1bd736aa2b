package service

import (
	"fmt"
	"math"
	"strconv"

	"go.uber.org/zap"

	"reward-advisor/domain"
)

// OracleResultValidator is the only path by which oracle output reaches the
// rest of the system. Numbers it cannot verify are kept as claims; numbers it
// can verify are replaced when they drift.
type OracleResultValidator struct {
	logger *zap.Logger
}

func NewOracleResultValidator(logger *zap.Logger) *OracleResultValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OracleResultValidator{logger: logger}
}

// CardAdviceCheck is the deterministic ground truth for a card payload.
type CardAdviceCheck struct {
	Known         domain.KnownEntities
	Calculations  []domain.RewardCalculation // best-first, may be empty
	CurrentCardID string
}

type annotations []domain.Annotation

func (a *annotations) dangling(field, id string) {
	*a = append(*a, domain.Annotation{
		Code:    domain.AnnotationDanglingReference,
		Field:   field,
		Message: fmt.Sprintf("unknown reference %q dropped", id),
		Claimed: id,
	})
}

func (a *annotations) mismatch(field, claimed, verified string) {
	*a = append(*a, domain.Annotation{
		Code:     domain.AnnotationOracleMismatch,
		Field:    field,
		Message:  "claimed value replaced with verified computation",
		Claimed:  claimed,
		Verified: verified,
	})
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func finish[T any](v *OracleResultValidator, kind string, value T, notes annotations) domain.Validated[T] {
	out := domain.Validated[T]{Outcome: domain.OutcomeVerified, Value: value}
	if len(notes) > 0 {
		out.Outcome = domain.OutcomeRepaired
		out.Annotations = notes
		for _, n := range notes {
			v.logger.Debug("oracle payload repaired",
				zap.String("kind", kind),
				zap.String("code", string(n.Code)),
				zap.String("field", n.Field),
				zap.String("claimed", n.Claimed),
				zap.String("verified", n.Verified))
		}
	}
	return out
}

func reject[T any](v *OracleResultValidator, kind string, err error) domain.Validated[T] {
	v.logger.Warn("oracle payload rejected", zap.String("kind", kind), zap.Error(err))
	return domain.Validated[T]{Outcome: domain.OutcomeRejected, Err: err}
}

func (v *OracleResultValidator) extractObject(raw string) (object, error) {
	payload, err := ExtractPayload(raw)
	if err != nil {
		return nil, err
	}
	decoded, err := decodeLiteral(payload)
	if err != nil {
		return nil, err
	}
	return asObject(decoded, "$")
}

// ValidateCardAdvice checks a card-optimizer payload such as
// {"category": "groceries", "optimalCardId": "c1", "rewardsAmount": 6.0,
// "reasoning": "...", "alternatives": [{"cardId": "c2", "rewardsAmount": 2.0}]}.
func (v *OracleResultValidator) ValidateCardAdvice(raw string, check CardAdviceCheck) domain.Validated[domain.CardAdvicePayload] {
	const kind = "card_advice"
	obj, err := v.extractObject(raw)
	if err != nil {
		return reject[domain.CardAdvicePayload](v, kind, err)
	}

	var out domain.CardAdvicePayload
	var notes annotations

	if label := obj.str("category"); label != "" {
		c, ok := domain.ParseCategory(label)
		if !ok {
			return reject[domain.CardAdvicePayload](v, kind, schemaErr("$.category", fmt.Sprintf("%q is not a known category", label)))
		}
		out.Category = c
	}

	out.OptimalCardID = obj.str("optimalCardId", "cardId")
	if out.OptimalCardID == "" {
		return reject[domain.CardAdvicePayload](v, kind, schemaErr("$.optimalCardId", "missing"))
	}
	amount, ok, err := obj.number("$", "rewardsAmount", "rewards")
	if err != nil {
		return reject[domain.CardAdvicePayload](v, kind, err)
	}
	if !ok {
		return reject[domain.CardAdvicePayload](v, kind, schemaErr("$.rewardsAmount", "missing"))
	}
	out.RewardsAmount = amount
	out.Reasoning = obj.str("reasoning", "explanation")

	if savings, ok, err := obj.number("$", "savingsVsCurrentCard"); err != nil {
		return reject[domain.CardAdvicePayload](v, kind, err)
	} else if ok {
		out.SavingsVsCurrentCard = &savings
	}

	alts, err := obj.array("$", "alternatives")
	if err != nil {
		return reject[domain.CardAdvicePayload](v, kind, err)
	}
	for i, item := range alts {
		path := fmt.Sprintf("$.alternatives[%d]", i)
		alt, err := asObject(item, path)
		if err != nil {
			return reject[domain.CardAdvicePayload](v, kind, err)
		}
		claim := domain.AlternativeClaim{
			CardID: alt.str("cardId", "id"),
			Reason: alt.str("reason", "reasoning"),
		}
		amt, _, err := alt.number(path, "rewardsAmount", "rewards")
		if err != nil {
			return reject[domain.CardAdvicePayload](v, kind, err)
		}
		claim.RewardsAmount = amt
		if _, known := check.Known.CardIDs[claim.CardID]; !known {
			notes.dangling(path+".cardId", claim.CardID)
			continue
		}
		out.Alternatives = append(out.Alternatives, claim)
	}

	if _, known := check.Known.CardIDs[out.OptimalCardID]; !known {
		notes.dangling("$.optimalCardId", out.OptimalCardID)
		out.OptimalCardID = ""
	}

	if len(check.Calculations) > 0 {
		best := check.Calculations[0]
		if out.Category != "" && out.Category != best.Category {
			notes.mismatch("$.category", string(out.Category), string(best.Category))
		}
		out.Category = best.Category

		if out.OptimalCardID != best.CardID {
			notes.mismatch("$.optimalCardId", out.OptimalCardID, best.CardID)
			out.OptimalCardID = best.CardID
			out.RewardsAmount = best.GrossReward
		} else if !withinTolerance(out.RewardsAmount, best.GrossReward) {
			notes.mismatch("$.rewardsAmount", formatMoney(out.RewardsAmount), formatMoney(best.GrossReward))
			out.RewardsAmount = best.GrossReward
		}

		for i := range out.Alternatives {
			alt := &out.Alternatives[i]
			calc, ok := findCalculation(check.Calculations, alt.CardID)
			if !ok {
				continue
			}
			if !withinTolerance(alt.RewardsAmount, calc.GrossReward) {
				notes.mismatch(fmt.Sprintf("$.alternatives[%s].rewardsAmount", alt.CardID),
					formatMoney(alt.RewardsAmount), formatMoney(calc.GrossReward))
				alt.RewardsAmount = calc.GrossReward
			}
		}

		if verified, ok := SavingsVersus(check.Calculations, check.CurrentCardID); ok {
			if out.SavingsVsCurrentCard != nil && !withinTolerance(*out.SavingsVsCurrentCard, verified) {
				notes.mismatch("$.savingsVsCurrentCard", formatMoney(*out.SavingsVsCurrentCard), formatMoney(verified))
			}
			out.SavingsVsCurrentCard = &verified
		}
	}

	return finish(v, kind, out, notes)
}

// ValidateDebtAdvice checks {"strategy", "reasoning", "payoffOrder",
// "timeline", "totalInterestSaved"} against the computed plan.
func (v *OracleResultValidator) ValidateDebtAdvice(raw string, known domain.KnownEntities, plan domain.PayoffPlan) domain.Validated[domain.DebtAdvicePayload] {
	const kind = "debt_advice"
	obj, err := v.extractObject(raw)
	if err != nil {
		return reject[domain.DebtAdvicePayload](v, kind, err)
	}

	var out domain.DebtAdvicePayload
	var notes annotations

	strategy := domain.Strategy(obj.str("strategy"))
	if !strategy.Valid() {
		return reject[domain.DebtAdvicePayload](v, kind, schemaErr("$.strategy", fmt.Sprintf("%q is not a known strategy", strategy)))
	}
	out.Strategy = strategy
	out.Reasoning = obj.str("reasoning", "explanation")

	order, err := obj.stringList("$", "payoffOrder")
	if err != nil {
		return reject[domain.DebtAdvicePayload](v, kind, err)
	}
	for i, name := range order {
		if _, ok := known.DebtNames[name]; !ok {
			notes.dangling(fmt.Sprintf("$.payoffOrder[%d]", i), name)
			continue
		}
		out.PayoffOrder = append(out.PayoffOrder, name)
	}

	timeline, hasTimeline, err := obj.number("$", "timeline", "months")
	if err != nil {
		return reject[domain.DebtAdvicePayload](v, kind, err)
	}
	if timeline < 0 || timeline > math.MaxInt32 {
		return reject[domain.DebtAdvicePayload](v, kind, schemaErr("$.timeline", "out of range"))
	}
	out.Timeline = int(math.Round(timeline))

	saved, hasSaved, err := obj.number("$", "totalInterestSaved")
	if err != nil {
		return reject[domain.DebtAdvicePayload](v, kind, err)
	}
	out.TotalInterestSaved = saved

	if plan.TotalMonths > 0 || len(plan.PayoffOrder) > 0 {
		if out.Strategy != plan.Strategy && out.Strategy != plan.Basis {
			notes.mismatch("$.strategy", string(out.Strategy), string(plan.Strategy))
			out.Strategy = plan.Strategy
		}
		if !sameOrder(out.PayoffOrder, plan.PayoffOrder) {
			if len(out.PayoffOrder) > 0 {
				notes.mismatch("$.payoffOrder", fmt.Sprint(out.PayoffOrder), fmt.Sprint(plan.PayoffOrder))
			}
			out.PayoffOrder = append([]string(nil), plan.PayoffOrder...)
		}
		if hasTimeline && out.Timeline != plan.TotalMonths {
			notes.mismatch("$.timeline", strconv.Itoa(out.Timeline), strconv.Itoa(plan.TotalMonths))
		}
		out.Timeline = plan.TotalMonths
		if hasSaved && !withinTolerance(out.TotalInterestSaved, plan.TotalInterestSaved) {
			notes.mismatch("$.totalInterestSaved", formatMoney(out.TotalInterestSaved), formatMoney(plan.TotalInterestSaved))
		}
		out.TotalInterestSaved = plan.TotalInterestSaved
	}

	return finish(v, kind, out, notes)
}

func sameOrder(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ValidateCategorization checks {"category", "subcategory", "confidence"}.
func (v *OracleResultValidator) ValidateCategorization(raw string) domain.Validated[domain.CategorizationPayload] {
	const kind = "categorization"
	obj, err := v.extractObject(raw)
	if err != nil {
		return reject[domain.CategorizationPayload](v, kind, err)
	}

	label := obj.str("category")
	c, ok := domain.ParseCategory(label)
	if !ok {
		return reject[domain.CategorizationPayload](v, kind, schemaErr("$.category", fmt.Sprintf("%q is not a known category", label)))
	}
	confidence, _, err := obj.number("$", "confidence")
	if err != nil {
		return reject[domain.CategorizationPayload](v, kind, err)
	}
	if confidence < 0 || confidence > 100 {
		return reject[domain.CategorizationPayload](v, kind, schemaErr("$.confidence", "must be between 0 and 100"))
	}

	return finish(v, kind, domain.CategorizationPayload{
		Category:    c,
		Subcategory: obj.str("subcategory"),
		Confidence:  int(math.Round(confidence)),
	}, nil)
}

// ValidateExplanations checks rationale text for already computed
// recommendations. Accepts {"summary": "...", "explanations": [...]} or a bare
// array of {"id", "text", "expectedBenefit", "priority"} entries.
func (v *OracleResultValidator) ValidateExplanations(raw string, recs []domain.Recommendation) domain.Validated[domain.ExplanationPayload] {
	const kind = "explanations"
	payload, err := ExtractPayload(raw)
	if err != nil {
		return reject[domain.ExplanationPayload](v, kind, err)
	}
	decoded, err := decodeLiteral(payload)
	if err != nil {
		return reject[domain.ExplanationPayload](v, kind, err)
	}

	var out domain.ExplanationPayload
	var items []any
	switch t := decoded.(type) {
	case []any:
		items = t
	default:
		obj, err := asObject(decoded, "$")
		if err != nil {
			return reject[domain.ExplanationPayload](v, kind, err)
		}
		out.Summary = obj.str("summary")
		if items, err = obj.array("$", "explanations", "recommendations"); err != nil {
			return reject[domain.ExplanationPayload](v, kind, err)
		}
	}

	byID := make(map[string]domain.Recommendation, len(recs))
	for _, r := range recs {
		byID[r.ID] = r
	}

	var notes annotations
	for i, item := range items {
		path := fmt.Sprintf("$.explanations[%d]", i)
		obj, err := asObject(item, path)
		if err != nil {
			return reject[domain.ExplanationPayload](v, kind, err)
		}
		exp := domain.RecommendationExplanation{
			RecommendationID: obj.str("recommendationId", "id"),
			Text:             obj.str("text", "reasoning", "rationale"),
		}
		if p := obj.str("priority"); p != "" {
			exp.Priority = domain.Priority(p)
			if !exp.Priority.Valid() {
				return reject[domain.ExplanationPayload](v, kind, schemaErr(path+".priority", fmt.Sprintf("%q is not a known priority", p)))
			}
		}
		if t := obj.str("type"); t != "" && !domain.RecommendationType(t).Valid() {
			return reject[domain.ExplanationPayload](v, kind, schemaErr(path+".type", fmt.Sprintf("%q is not a known type", t)))
		}
		benefit, hasBenefit, err := obj.number(path, "expectedBenefit")
		if err != nil {
			return reject[domain.ExplanationPayload](v, kind, err)
		}

		rec, known := byID[exp.RecommendationID]
		if !known {
			notes.dangling(path+".id", exp.RecommendationID)
			continue
		}
		if exp.Priority != "" && exp.Priority != rec.Priority {
			notes.mismatch(path+".priority", string(exp.Priority), string(rec.Priority))
		}
		exp.Priority = rec.Priority
		if hasBenefit && !withinTolerance(benefit, rec.ExpectedBenefit) {
			notes.mismatch(path+".expectedBenefit", formatMoney(benefit), formatMoney(rec.ExpectedBenefit))
		}
		verified := rec.ExpectedBenefit
		exp.ExpectedBenefit = &verified

		out.Explanations = append(out.Explanations, exp)
	}

	return finish(v, kind, out, notes)
}
