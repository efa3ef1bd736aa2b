package service

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"reward-advisor/domain"
)

type PlannerConfig struct {
	MaxMonths int
	// Hybrid keeps avalanche unless it runs more than HybridMonthThreshold months
	// longer than snowball and snowball clears its first debt within
	// HybridQuickWinMonths.
	HybridMonthThreshold int
	HybridQuickWinMonths int
}

func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		MaxMonths:            MaxDebtPayoffMonths,
		HybridMonthThreshold: DefaultHybridMonthThreshold,
		HybridQuickWinMonths: DefaultHybridQuickWinMonths,
	}
}

type DebtPayoffPlanner struct {
	cfg PlannerConfig
}

func NewDebtPayoffPlanner(cfg PlannerConfig) *DebtPayoffPlanner {
	if cfg.MaxMonths <= 0 {
		cfg.MaxMonths = MaxDebtPayoffMonths
	}
	if cfg.HybridMonthThreshold < 0 {
		cfg.HybridMonthThreshold = DefaultHybridMonthThreshold
	}
	if cfg.HybridQuickWinMonths <= 0 {
		cfg.HybridQuickWinMonths = DefaultHybridQuickWinMonths
	}
	return &DebtPayoffPlanner{cfg: cfg}
}

// Config returns the settings after defaults were applied.
func (p *DebtPayoffPlanner) Config() PlannerConfig {
	return p.cfg
}

// Plan simulates repayment of debts with extraMonthlyPayment on top of the
// minimums. An empty strategy selects hybrid.
func (p *DebtPayoffPlanner) Plan(
	debts []domain.Debt,
	extraMonthlyPayment float64,
	strategy domain.Strategy,
) (domain.PayoffPlan, error) {

	if strategy == "" {
		strategy = domain.StrategyHybrid
	}
	if !strategy.Valid() {
		return domain.PayoffPlan{}, fmt.Errorf("%w: unknown strategy %q", domain.ErrValidation, strategy)
	}
	if err := validateDebts(debts, extraMonthlyPayment); err != nil {
		return domain.PayoffPlan{}, err
	}

	baseline := p.simulate(debts, extraMonthlyPayment, false)

	var (
		chosen     simulation
		basis      domain.Strategy
		comparison *domain.Comparison
	)
	switch strategy {
	case domain.StrategyAvalanche, domain.StrategySnowball:
		chosen = p.simulate(order(debts, strategy), extraMonthlyPayment, true)
		basis = strategy
	case domain.StrategyHybrid:
		avalanche := p.simulate(order(debts, domain.StrategyAvalanche), extraMonthlyPayment, true)
		snowball := p.simulate(order(debts, domain.StrategySnowball), extraMonthlyPayment, true)
		basis = p.selectHybrid(avalanche, snowball)
		chosen = avalanche
		if basis == domain.StrategySnowball {
			chosen = snowball
		}
		comparison = compare(avalanche, snowball)
	}

	if !chosen.converged {
		return domain.PayoffPlan{}, fmt.Errorf("%w: balances remain after %d months", domain.ErrPlanDoesNotConverge, p.cfg.MaxMonths)
	}

	plan := domain.PayoffPlan{
		Strategy:             strategy,
		Basis:                basis,
		PayoffOrder:          chosen.names(),
		MonthlyPlan:          chosen.table,
		TotalMonths:          chosen.months,
		TotalDebt:            toMoney(chosen.totalDebt()),
		TotalInterestPaid:    toMoney(chosen.totalInterest()),
		BaselineInterestPaid: toMoney(baseline.totalInterest()),
		BaselineMonths:       baseline.months,
		BaselineConverged:    baseline.converged,
		Debts:                chosen.summaries(),
		Comparison:           comparison,
	}
	plan.TotalInterestSaved = toMoney(baseline.totalInterest().Sub(chosen.totalInterest()))
	return plan, nil
}

// selectHybrid favors the early win of snowball only when its schedule is
// materially shorter and its first debt clears quickly.
func (p *DebtPayoffPlanner) selectHybrid(avalanche, snowball simulation) domain.Strategy {
	if !avalanche.converged && snowball.converged {
		return domain.StrategySnowball
	}
	if !snowball.converged {
		return domain.StrategyAvalanche
	}
	first := snowball.firstTargetPayoffMonth()
	if avalanche.months-snowball.months > p.cfg.HybridMonthThreshold &&
		first > 0 && first <= p.cfg.HybridQuickWinMonths {
		return domain.StrategySnowball
	}
	return domain.StrategyAvalanche
}

func validateDebts(debts []domain.Debt, extra float64) error {
	if len(debts) == 0 {
		return fmt.Errorf("%w: no debts provided", domain.ErrValidation)
	}
	if len(debts) > MaxDebtsPerRequest {
		return fmt.Errorf("%w: number of debts exceeds the maximum of %d", domain.ErrValidation, MaxDebtsPerRequest)
	}
	if !finite(extra) || extra < 0 {
		return fmt.Errorf("%w: extra monthly payment must be a non-negative number", domain.ErrValidation)
	}

	names := make(map[string]bool, len(debts))
	for _, debt := range debts {
		if debt.Name == "" {
			return fmt.Errorf("%w: debt name cannot be empty", domain.ErrValidation)
		}
		if names[debt.Name] {
			return fmt.Errorf("%w: duplicate debt name %s", domain.ErrValidation, debt.Name)
		}
		names[debt.Name] = true

		if !finite(debt.Balance) || debt.Balance < 0 {
			return fmt.Errorf("%w: debt %s has invalid balance", domain.ErrValidation, debt.Name)
		}
		if debt.Balance > MaxDebtAmount {
			return fmt.Errorf("%w: debt %s exceeds the maximum of $%.2f", domain.ErrValidation, debt.Name, MaxDebtAmount)
		}
		if !finite(debt.InterestRate) || debt.InterestRate < 0 {
			return fmt.Errorf("%w: debt %s has invalid interest rate", domain.ErrValidation, debt.Name)
		}
		if !finite(debt.MinimumPayment) || debt.MinimumPayment < 0 {
			return fmt.Errorf("%w: debt %s has invalid minimum payment", domain.ErrValidation, debt.Name)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// order returns a sorted copy of debts for the given strategy.
func order(debts []domain.Debt, strategy domain.Strategy) []domain.Debt {
	sorted := make([]domain.Debt, len(debts))
	copy(sorted, debts)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if strategy == domain.StrategySnowball {
			if a.Balance != b.Balance {
				return a.Balance < b.Balance
			}
			if a.InterestRate != b.InterestRate {
				return a.InterestRate > b.InterestRate
			}
		} else {
			if a.InterestRate != b.InterestRate {
				return a.InterestRate > b.InterestRate
			}
			if a.Balance != b.Balance {
				return a.Balance > b.Balance
			}
		}
		return a.Name < b.Name
	})
	return sorted
}

type simDebt struct {
	debt        domain.Debt
	start       decimal.Decimal
	balance     decimal.Decimal
	monthlyRate decimal.Decimal
	minimum     decimal.Decimal
	interest    decimal.Decimal
	paid        decimal.Decimal
	payoffMonth int
}

type simulation struct {
	debts     []*simDebt
	table     []domain.MonthlyPlan
	months    int
	converged bool
}

// simulate runs the month loop. With rollover the whole budget (extra plus
// every minimum, including those of cleared debts) is spent in slice order;
// without it each debt only ever receives its own minimum.
func (p *DebtPayoffPlanner) simulate(debts []domain.Debt, extra float64, rollover bool) simulation {
	sim := simulation{debts: make([]*simDebt, len(debts))}

	twelve := decimal.NewFromInt(12)
	budget := money(extra).Round(2)
	for i, debt := range debts {
		start := money(debt.Balance).Round(2)
		minimum := money(debt.MinimumPayment).Round(2)
		sim.debts[i] = &simDebt{
			debt:        debt,
			start:       start,
			balance:     start,
			monthlyRate: decimal.NewFromFloat(debt.InterestRate).Div(twelve),
			minimum:     minimum,
		}
		budget = budget.Add(minimum)
	}

	for month := 1; ; month++ {
		if sim.allPaid() {
			sim.converged = true
			return sim
		}
		if month > p.cfg.MaxMonths {
			return sim
		}
		sim.months = month

		interest := make([]decimal.Decimal, len(sim.debts))
		for i, d := range sim.debts {
			if !d.balance.IsPositive() {
				continue
			}
			interest[i] = d.balance.Mul(d.monthlyRate).Round(2)
			d.balance = d.balance.Add(interest[i])
			d.interest = d.interest.Add(interest[i])
		}

		payments := make([]decimal.Decimal, len(sim.debts))
		remaining := budget
		for i, d := range sim.debts {
			if !d.balance.IsPositive() {
				continue
			}
			payments[i] = decimal.Min(d.minimum, d.balance)
			remaining = remaining.Sub(payments[i])
		}
		if rollover {
			for i, d := range sim.debts {
				if !remaining.IsPositive() {
					break
				}
				owed := d.balance.Sub(payments[i])
				if !owed.IsPositive() {
					continue
				}
				extraPay := decimal.Min(remaining, owed)
				payments[i] = payments[i].Add(extraPay)
				remaining = remaining.Sub(extraPay)
			}
		}

		total := decimal.Zero
		row := domain.MonthlyPlan{Month: month, Payments: make([]domain.MonthlyPayment, len(sim.debts))}
		for i, d := range sim.debts {
			d.balance = d.balance.Sub(payments[i])
			d.paid = d.paid.Add(payments[i])
			total = total.Add(payments[i])
			if d.payoffMonth == 0 && !d.balance.IsPositive() && d.start.IsPositive() {
				d.payoffMonth = month
			}
			row.Payments[i] = domain.MonthlyPayment{
				DebtName:         d.debt.Name,
				Payment:          payments[i].InexactFloat64(),
				Interest:         interest[i].InexactFloat64(),
				RemainingBalance: d.balance.InexactFloat64(),
			}
		}
		row.TotalPaid = total.InexactFloat64()
		if rollover {
			sim.table = append(sim.table, row)
		}
	}
}

func (s simulation) allPaid() bool {
	for _, d := range s.debts {
		if d.balance.IsPositive() {
			return false
		}
	}
	return true
}

func (s simulation) totalInterest() decimal.Decimal {
	total := decimal.Zero
	for _, d := range s.debts {
		total = total.Add(d.interest)
	}
	return total
}

func (s simulation) totalDebt() decimal.Decimal {
	total := decimal.Zero
	for _, d := range s.debts {
		total = total.Add(d.start)
	}
	return total
}

func (s simulation) names() []string {
	out := make([]string, 0, len(s.debts))
	for _, d := range s.debts {
		out = append(out, d.debt.Name)
	}
	return out
}

// firstTargetPayoffMonth is the month the first debt in payoff order clears.
func (s simulation) firstTargetPayoffMonth() int {
	for _, d := range s.debts {
		if d.start.IsPositive() {
			return d.payoffMonth
		}
	}
	return 0
}

func (s simulation) summaries() []domain.DebtPayoff {
	out := make([]domain.DebtPayoff, 0, len(s.debts))
	for _, d := range s.debts {
		out = append(out, domain.DebtPayoff{
			Name:            d.debt.Name,
			StartingBalance: d.start.InexactFloat64(),
			InterestPaid:    d.interest.InexactFloat64(),
			TotalPaid:       d.paid.InexactFloat64(),
			PayoffMonth:     d.payoffMonth,
		})
	}
	return out
}

func (s simulation) result() domain.StrategyResult {
	return domain.StrategyResult{
		TotalInterestPaid: toMoney(s.totalInterest()),
		MonthsToPayoff:    s.months,
		FirstPayoffMonth:  s.firstTargetPayoffMonth(),
		PayoffOrder:       s.names(),
	}
}

func compare(avalanche, snowball simulation) *domain.Comparison {
	c := &domain.Comparison{
		Avalanche: avalanche.result(),
		Snowball:  snowball.result(),
	}
	c.Savings.InterestSaved = toMoney(snowball.totalInterest().Sub(avalanche.totalInterest()))
	c.Savings.MonthsSaved = snowball.months - avalanche.months
	return c
}
