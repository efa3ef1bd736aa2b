package domain

import "time"

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type AnomalyReason string

const (
	ReasonExceedsTwoSigma AnomalyReason = "exceeds_two_sigma"
	ReasonExceedsOneSigma AnomalyReason = "exceeds_one_sigma"
	ReasonNewCategory     AnomalyReason = "new_category"
)

type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

type CategorizationSource string

const (
	SourceProvided CategorizationSource = "provided"
	SourceRule     CategorizationSource = "rule"
	SourceOracle   CategorizationSource = "oracle"
	SourceDefault  CategorizationSource = "default"
)

type Categorization struct {
	Category   Category
	Confidence int
	Source     CategorizationSource
}

// Window is the half-open interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// TrailingWindow returns the window of the given number of days ending at end.
func TrailingWindow(end time.Time, days int) Window {
	return Window{Start: end.AddDate(0, 0, -days), End: end}
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

func (w Window) Midpoint() time.Time {
	return w.Start.Add(w.End.Sub(w.Start) / 2)
}

// Days is the window length in whole days, at least 1.
func (w Window) Days() int {
	d := int(w.End.Sub(w.Start).Hours() / 24)
	if d < 1 {
		return 1
	}
	return d
}

type SpendingAnomaly struct {
	Transaction Transaction
	Category    Category
	Severity    Severity
	Reason      AnomalyReason
	Mean        float64
	StdDev      float64
}

type CategoryTrend struct {
	Category   Category
	Trend      Trend
	FirstHalf  float64
	SecondHalf float64
}

type SpendingAnalysis struct {
	Window     Window
	Anomalies  []SpendingAnomaly
	Trends     []CategoryTrend
	Breakdown  map[Category]float64
	Counts     map[Category]int
	TotalSpend float64
	// Confidence is the lowest categorization confidence among analyzed spend.
	Confidence int
	// Skipped lists categories below the minimum sample size.
	Skipped []Category
}
