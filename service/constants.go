package service

import "time"

const (
	MaxDebtsPerRequest  = 50
	MaxDebtAmount       = 100_000_000.0
	MaxDebtPayoffMonths = 600 // 50 years
	MaxCardsPerRequest  = 100

	DefaultAnnualTransactionCount = 300
	MinorUnit                     = 0.01 // one cent
	OracleRelativeTolerance       = 0.01 // 1%

	DefaultHybridMonthThreshold = 2
	DefaultHybridQuickWinMonths = 3

	DefaultMinSampleSize = 5
	DefaultWindowDays    = 90
	TrendIncreaseFactor  = 1.15
	TrendDecreaseFactor  = 0.85

	DefaultHighImpactBenefit  = 1000.0
	HighPriorityScore         = 250.0
	MediumPriorityScore       = 50.0
	DefaultMaxRecommendations = 5
	DefaultRecommendationTTL  = 30 * 24 * time.Hour

	DefaultOracleTimeout    = 8 * time.Second
	MaxOracleResponseBytes  = 64 << 10
	MaxOracleResponseTokens = 600
)
