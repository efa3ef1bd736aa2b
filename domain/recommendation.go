package domain

import "time"

type RecommendationType string

const (
	RecommendationCard       RecommendationType = "card"
	RecommendationSavings    RecommendationType = "savings"
	RecommendationInvestment RecommendationType = "investment"
	RecommendationDebt       RecommendationType = "debt"
	RecommendationSpending   RecommendationType = "spending"
)

func (t RecommendationType) Valid() bool {
	switch t {
	case RecommendationCard, RecommendationSavings, RecommendationInvestment,
		RecommendationDebt, RecommendationSpending:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Rank orders priorities urgent=4 down to low=1; unknown values rank 0.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

func (p Priority) Valid() bool {
	return p.Rank() > 0
}

type Recommendation struct {
	ID              string
	UserID          string `json:",omitempty"`
	Type            RecommendationType
	Title           string
	Description     string
	Rationale       string `json:",omitempty"`
	ActionItems     []string
	ExpectedBenefit float64 // currency units per year
	Confidence      int
	Priority        Priority
	Source          string // engine that produced the benefit figure
	CreatedAt       time.Time
	ExpiresAt       *time.Time `json:",omitempty"`
}

// IsCurrent reports whether the recommendation may still be served at now.
func (r Recommendation) IsCurrent(now time.Time) bool {
	return r.ExpiresAt == nil || now.Before(*r.ExpiresAt)
}
