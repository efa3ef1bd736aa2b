package service

import (
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"

	"reward-advisor/domain"
)

// planCacheKey identifies a payoff plan by its normalized inputs and the
// planner settings that shape it. Debt order does not affect the key.
func planCacheKey(cfg PlannerConfig, debts []domain.Debt, extra float64, strategy domain.Strategy) string {
	sorted := append([]domain.Debt(nil), debts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	h := xxhash.New()
	fmt.Fprintf(h, "%d|%d|%d\n", cfg.MaxMonths, cfg.HybridMonthThreshold, cfg.HybridQuickWinMonths)
	fmt.Fprintf(h, "%s|%.2f\n", strategy, extra)
	for _, d := range sorted {
		fmt.Fprintf(h, "%s|%.2f|%.6f|%.2f\n", d.Name, d.Balance, d.InterestRate, d.MinimumPayment)
	}
	return fmt.Sprintf("plan:v2:%016x", h.Sum64())
}
