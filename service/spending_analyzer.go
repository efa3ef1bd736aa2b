package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync/atomic"

	"reward-advisor/domain"
)

// Classifier is an external text-classification collaborator. Its raw output
// is only trusted after it passes the oracle validator.
type Classifier interface {
	Classify(ctx context.Context, txn domain.Transaction) (string, error)
}

type SpendingAnalyzer struct {
	rules     atomic.Pointer[RuleSet]
	minSample int
}

func NewSpendingAnalyzer(rules *RuleSet, minSampleSize int) *SpendingAnalyzer {
	if rules == nil {
		rules = DefaultRuleSet()
	}
	if minSampleSize <= 0 {
		minSampleSize = DefaultMinSampleSize
	}
	a := &SpendingAnalyzer{minSample: minSampleSize}
	a.rules.Store(rules)
	return a
}

// SetRules swaps the categorization table. In-flight analyses keep the table
// they started with.
func (a *SpendingAnalyzer) SetRules(rules *RuleSet) {
	if rules != nil {
		a.rules.Store(rules)
	}
}

// Categorize resolves a transaction's category without any oracle.
func (a *SpendingAnalyzer) Categorize(txn domain.Transaction) domain.Categorization {
	return categorize(a.rules.Load(), txn)
}

func categorize(rules *RuleSet, txn domain.Transaction) domain.Categorization {
	if txn.Category != nil && txn.Category.Valid() {
		return domain.Categorization{Category: *txn.Category, Confidence: 100, Source: domain.SourceProvided}
	}
	return rules.Match(txn.Merchant)
}

// CategorizeWithOracle consults classifier only when the rules have nothing to
// say. Any classifier failure or invalid payload falls back to the rule result.
func (a *SpendingAnalyzer) CategorizeWithOracle(
	ctx context.Context,
	txn domain.Transaction,
	classifier Classifier,
	validator *OracleResultValidator,
) domain.Categorization {

	base := a.Categorize(txn)
	if base.Confidence > 0 || classifier == nil || validator == nil {
		return base
	}

	raw, err := classifier.Classify(ctx, txn)
	if err != nil {
		return base
	}
	res := validator.ValidateCategorization(raw)
	if !res.Usable() {
		return base
	}

	confidence := res.Value.Confidence
	if confidence > MaxOracleConfidence {
		confidence = MaxOracleConfidence
	}
	return domain.Categorization{
		Category:   res.Value.Category,
		Confidence: confidence,
		Source:     domain.SourceOracle,
	}
}

// anomalyEpsilon absorbs float noise so identical amounts never flag each other.
const anomalyEpsilon = 1e-9

type categorizedTxn struct {
	txn   domain.Transaction
	cat   domain.Category
	spend float64
}

// Analyze computes breakdown, anomalies and trends for spend inside window.
// Transactions before the window are used only as history for category
// novelty; transactions after it are ignored.
func (a *SpendingAnalyzer) Analyze(txns []domain.Transaction, window domain.Window) (domain.SpendingAnalysis, error) {
	if window.Start.IsZero() || !window.End.After(window.Start) {
		return domain.SpendingAnalysis{}, fmt.Errorf("%w: window end must be after start", domain.ErrValidation)
	}

	rules := a.rules.Load()
	analysis := domain.SpendingAnalysis{
		Window:     window,
		Breakdown:  make(map[domain.Category]float64),
		Counts:     make(map[domain.Category]int),
		Confidence: 100,
	}

	history := make(map[domain.Category]bool)
	hasHistory := false
	byCategory := make(map[domain.Category][]categorizedTxn)

	for _, txn := range txns {
		if !finite(txn.Amount) {
			return domain.SpendingAnalysis{}, fmt.Errorf("%w: transaction %q amount is not finite", domain.ErrValidation, txn.ID)
		}
		if !txn.IsSpend() {
			continue
		}
		c := categorize(rules, txn)
		switch {
		case txn.Date.Before(window.Start):
			hasHistory = true
			history[c.Category] = true
		case window.Contains(txn.Date):
			if c.Confidence < analysis.Confidence {
				analysis.Confidence = c.Confidence
			}
			byCategory[c.Category] = append(byCategory[c.Category], categorizedTxn{
				txn:   txn.WithResolved(c.Category),
				cat:   c.Category,
				spend: txn.Spend(),
			})
		}
	}

	cats := make([]domain.Category, 0, len(byCategory))
	for c := range byCategory {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })

	total := 0.0
	midpoint := window.Midpoint()
	for _, c := range cats {
		entries := byCategory[c]
		sort.SliceStable(entries, func(i, j int) bool {
			if !entries[i].txn.Date.Equal(entries[j].txn.Date) {
				return entries[i].txn.Date.Before(entries[j].txn.Date)
			}
			return entries[i].txn.ID < entries[j].txn.ID
		})

		sum, first, second := 0.0, 0.0, 0.0
		for _, e := range entries {
			sum += e.spend
			if e.txn.Date.Before(midpoint) {
				first += e.spend
			} else {
				second += e.spend
			}
		}
		analysis.Breakdown[c] = roundTo2Decimals(sum)
		analysis.Counts[c] = len(entries)
		total += sum

		analysis.Trends = append(analysis.Trends, domain.CategoryTrend{
			Category:   c,
			Trend:      classifyTrend(first, second),
			FirstHalf:  roundTo2Decimals(first),
			SecondHalf: roundTo2Decimals(second),
		})

		if len(entries) < a.minSample {
			analysis.Skipped = append(analysis.Skipped, c)
			continue
		}
		analysis.Anomalies = append(analysis.Anomalies, detectAnomalies(entries, hasHistory && !history[c])...)
	}
	analysis.TotalSpend = roundTo2Decimals(total)

	sort.SliceStable(analysis.Anomalies, func(i, j int) bool {
		ri, rj := severityRank(analysis.Anomalies[i].Severity), severityRank(analysis.Anomalies[j].Severity)
		if ri != rj {
			return ri > rj
		}
		return analysis.Anomalies[i].Transaction.Date.Before(analysis.Anomalies[j].Transaction.Date)
	})

	return analysis, nil
}

// detectAnomalies scores each entry against the mean and σ of the other
// entries in its category, so a single spike does not inflate its own
// baseline. Above mean+σ is medium, above mean+2σ high. novel marks the
// category's first entry low when nothing stronger applies.
func detectAnomalies(entries []categorizedTxn, novel bool) []domain.SpendingAnomaly {
	if len(entries) < 2 {
		return nil
	}
	stats := newLeaveOneOut(entries)

	var out []domain.SpendingAnomaly
	for i, e := range entries {
		mean, stddev := stats.without(e.spend)
		anomaly := domain.SpendingAnomaly{
			Transaction: e.txn,
			Category:    e.cat,
			Mean:        roundTo2Decimals(mean),
			StdDev:      roundTo2Decimals(stddev),
		}
		switch {
		case e.spend > mean+2*stddev+anomalyEpsilon:
			anomaly.Severity, anomaly.Reason = domain.SeverityHigh, domain.ReasonExceedsTwoSigma
		case e.spend > mean+stddev+anomalyEpsilon:
			anomaly.Severity, anomaly.Reason = domain.SeverityMedium, domain.ReasonExceedsOneSigma
		case novel && i == 0:
			anomaly.Severity, anomaly.Reason = domain.SeverityLow, domain.ReasonNewCategory
		default:
			continue
		}
		out = append(out, anomaly)
	}
	return out
}

// leaveOneOut holds deviations from the category mean so the statistics of
// every n-1 subset come out of one pass.
type leaveOneOut struct {
	n     float64
	mean  float64
	sumSq float64
}

func newLeaveOneOut(entries []categorizedTxn) leaveOneOut {
	n := float64(len(entries))
	sum := 0.0
	for _, e := range entries {
		sum += e.spend
	}
	mean := sum / n

	sumSq := 0.0
	for _, e := range entries {
		d := e.spend - mean
		sumSq += d * d
	}
	return leaveOneOut{n: n, mean: mean, sumSq: sumSq}
}

// without returns the population mean and σ of the category minus one entry
// of the given spend.
func (l leaveOneOut) without(spend float64) (float64, float64) {
	rest := l.n - 1
	d := spend - l.mean
	shift := d / rest
	variance := (l.sumSq-d*d)/rest - shift*shift
	if variance < 0 {
		variance = 0
	}
	return l.mean - shift, math.Sqrt(variance)
}

func classifyTrend(first, second float64) domain.Trend {
	switch {
	case second > first*TrendIncreaseFactor:
		return domain.TrendIncreasing
	case second < first*TrendDecreaseFactor:
		return domain.TrendDecreasing
	default:
		return domain.TrendStable
	}
}

func severityRank(s domain.Severity) int {
	switch s {
	case domain.SeverityHigh:
		return 3
	case domain.SeverityMedium:
		return 2
	case domain.SeverityLow:
		return 1
	}
	return 0
}
