package service

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"reward-advisor/domain"
)

// RewardsEngine scores each active card for a single purchase. It holds only
// defaults and is safe for concurrent use.
type RewardsEngine struct {
	annualTransactions int
}

type EvaluateOptions struct {
	// EstimatedAnnualTransactions spreads each card's annual fee; zero uses the engine default.
	EstimatedAnnualTransactions int
	// PriorCategorySpend is spend already counted toward each card's cap for the
	// transaction's category this period, keyed by card id.
	PriorCategorySpend map[string]float64
}

func NewRewardsEngine(annualTransactions int) *RewardsEngine {
	if annualTransactions <= 0 {
		annualTransactions = DefaultAnnualTransactionCount
	}
	return &RewardsEngine{annualTransactions: annualTransactions}
}

// Evaluate returns one RewardCalculation per active card, best net value first.
func (e *RewardsEngine) Evaluate(
	txn domain.Transaction,
	cards []domain.CreditCard,
	opts EvaluateOptions,
) ([]domain.RewardCalculation, error) {

	if math.IsNaN(txn.Amount) || math.IsInf(txn.Amount, 0) {
		return nil, fmt.Errorf("%w: transaction amount is not finite", domain.ErrValidation)
	}
	if !txn.IsSpend() {
		return nil, fmt.Errorf("%w: transaction %q is not a purchase (amount %.2f)", domain.ErrValidation, txn.ID, txn.Amount)
	}

	category, ok := txn.EffectiveCategory()
	if !ok {
		return nil, domain.ErrCategoryRequired
	}
	if !category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", domain.ErrValidation, category)
	}

	if len(cards) > MaxCardsPerRequest {
		return nil, fmt.Errorf("%w: %d cards exceeds the maximum of %d", domain.ErrValidation, len(cards), MaxCardsPerRequest)
	}

	annualTxns := opts.EstimatedAnnualTransactions
	if annualTxns <= 0 {
		annualTxns = e.annualTransactions
	}

	seen := make(map[string]bool, len(cards))
	results := make([]domain.RewardCalculation, 0, len(cards))
	for _, card := range cards {
		if err := card.Validate(); err != nil {
			return nil, err
		}
		if seen[card.ID] {
			return nil, fmt.Errorf("%w: duplicate card id %s", domain.ErrValidation, card.ID)
		}
		seen[card.ID] = true

		if !card.IsActive {
			continue
		}
		calc, err := scoreCard(txn, card, category, opts.PriorCategorySpend[card.ID], annualTxns)
		if err != nil {
			return nil, err
		}
		results = append(results, calc)
	}

	if len(results) == 0 {
		return nil, domain.ErrNoEligibleCards
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.NetValue != b.NetValue {
			return a.NetValue > b.NetValue
		}
		if a.AnnualFee != b.AnnualFee {
			return a.AnnualFee < b.AnnualFee
		}
		return a.CardID < b.CardID
	})

	return results, nil
}

func scoreCard(
	txn domain.Transaction,
	card domain.CreditCard,
	category domain.Category,
	priorSpend float64,
	annualTxns int,
) (domain.RewardCalculation, error) {

	if math.IsNaN(priorSpend) || math.IsInf(priorSpend, 0) || priorSpend < 0 {
		return domain.RewardCalculation{}, fmt.Errorf("%w: prior category spend for card %s is %v", domain.ErrValidation, card.ID, priorSpend)
	}

	spend := money(txn.Spend())
	rate, bonus := card.RateFor(category)
	eligible := spend
	capApplied := false

	gross := spend.Mul(decimal.NewFromFloat(rate))
	if limit, hasCap := card.RewardsCap[category]; bonus && hasCap {
		remaining := money(limit).Sub(money(priorSpend))
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		if spend.GreaterThan(remaining) {
			// Overflow past the cap earns the base rate.
			eligible = remaining
			capApplied = true
			overflow := spend.Sub(remaining)
			gross = remaining.Mul(decimal.NewFromFloat(rate)).
				Add(overflow.Mul(decimal.NewFromFloat(card.BaseRate)))
		}
	}

	gross = gross.Round(2)
	feeShare := money(card.AnnualFee).Div(decimal.NewFromInt(int64(annualTxns))).Round(2)

	return domain.RewardCalculation{
		TransactionID:      txn.ID,
		CardID:             card.ID,
		CardName:           card.Name,
		Category:           category,
		EffectiveRate:      rate,
		EligibleSpend:      toMoney(eligible),
		GrossReward:        gross.InexactFloat64(),
		CapApplied:         capApplied,
		AnnualFee:          card.AnnualFee,
		AnnualFeeAmortized: feeShare.InexactFloat64(),
		NetValue:           gross.Sub(feeShare).InexactFloat64(),
	}, nil
}

// SavingsVersus returns how much more the best card nets than currentCardID.
func SavingsVersus(calcs []domain.RewardCalculation, currentCardID string) (float64, bool) {
	if len(calcs) == 0 || currentCardID == "" {
		return 0, false
	}
	for _, c := range calcs {
		if c.CardID == currentCardID {
			return roundTo2Decimals(calcs[0].NetValue - c.NetValue), true
		}
	}
	return 0, false
}

// findCalculation looks up the calculation for a card id.
func findCalculation(calcs []domain.RewardCalculation, cardID string) (domain.RewardCalculation, bool) {
	for _, c := range calcs {
		if c.CardID == cardID {
			return c, true
		}
	}
	return domain.RewardCalculation{}, false
}
