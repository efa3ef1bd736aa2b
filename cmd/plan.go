package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"reward-advisor/cli"
	"reward-advisor/service"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Simulate a debt payoff plan",
	Long: `Reads {"debts": [...], "extraMonthlyPayment": 100, "strategy": "avalanche|snowball|hybrid"}
and prints the month each debt is cleared and the interest saved versus minimum payments.`,
	RunE: runPlan,
}

func init() {
	addInputFlags(planCmd)
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, _ []string) error {
	var req service.DebtRequest
	if err := readInput(&req); err != nil {
		return err
	}

	advisor, cleanup, err := buildAdvisor(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer cleanup()

	advice, err := advisor.PlanDebts(cmd.Context(), req)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(advice)
	}

	plan := advice.Plan
	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("Debt-free in %d months", plan.TotalMonths)))
	fmt.Println()
	fmt.Print(cli.PlanTable(plan))
	fmt.Printf("\n  Interest paid:  %s\n", cli.Money(plan.TotalInterestPaid))
	fmt.Printf("  Interest saved: %s\n", cli.Highlight(cli.Money(plan.TotalInterestSaved)))
	if plan.Comparison != nil {
		fmt.Printf("  %s\n", cli.Muted(fmt.Sprintf("avalanche %s over %d months, snowball %s over %d months",
			cli.Money(plan.Comparison.Avalanche.TotalInterestPaid), plan.Comparison.Avalanche.MonthsToPayoff,
			cli.Money(plan.Comparison.Snowball.TotalInterestPaid), plan.Comparison.Snowball.MonthsToPayoff)))
	}
	fmt.Printf("\n  %s\n\n", plan.Explanation)
	return nil
}
