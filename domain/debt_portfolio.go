package domain

type Debt struct {
	Name           string
	Balance        float64
	InterestRate   float64 // annual, as a fraction
	MinimumPayment float64
}

type Strategy string

const (
	StrategyAvalanche Strategy = "avalanche"
	StrategySnowball  Strategy = "snowball"
	StrategyHybrid    Strategy = "hybrid"
)

func (s Strategy) Valid() bool {
	switch s {
	case StrategyAvalanche, StrategySnowball, StrategyHybrid:
		return true
	}
	return false
}

type MonthlyPayment struct {
	DebtName         string
	Payment          float64
	Interest         float64
	RemainingBalance float64
}

type MonthlyPlan struct {
	Month     int
	Payments  []MonthlyPayment
	TotalPaid float64
}

// PaymentsByDebt maps debt name to the payment made that month.
func (m MonthlyPlan) PaymentsByDebt() map[string]float64 {
	out := make(map[string]float64, len(m.Payments))
	for _, p := range m.Payments {
		out[p.DebtName] = p.Payment
	}
	return out
}

type StrategyResult struct {
	TotalInterestPaid float64
	MonthsToPayoff    int
	FirstPayoffMonth  int
	PayoffOrder       []string
}

type Comparison struct {
	Snowball  StrategyResult
	Avalanche StrategyResult
	Savings   struct {
		InterestSaved float64 // snowball interest minus avalanche interest
		MonthsSaved   int
	}
}

type DebtPayoff struct {
	Name            string
	StartingBalance float64
	InterestPaid    float64
	TotalPaid       float64
	PayoffMonth     int
}

type PayoffPlan struct {
	Strategy             Strategy
	Basis                Strategy // ordering actually simulated; differs from Strategy only for hybrid
	PayoffOrder          []string
	MonthlyPlan          []MonthlyPlan
	TotalMonths          int
	TotalDebt            float64
	TotalInterestPaid    float64
	BaselineInterestPaid float64
	BaselineMonths       int
	BaselineConverged    bool
	TotalInterestSaved   float64
	Debts                []DebtPayoff
	Comparison           *Comparison `json:",omitempty"`
	Explanation          string      `json:",omitempty"`
}
