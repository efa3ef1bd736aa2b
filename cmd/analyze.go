package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"reward-advisor/cli"
	"reward-advisor/service"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Break down spending and flag anomalies",
	Long: `Reads {"transactions": [...], "windowEnd": "2024-06-30T00:00:00Z", "windowDays": 90}
and prints spend per category, trends and unusual charges.`,
	RunE: runAnalyze,
}

func init() {
	addInputFlags(analyzeCmd)
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	var req service.SpendingRequest
	if err := readInput(&req); err != nil {
		return err
	}

	advisor, cleanup, err := buildAdvisor(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer cleanup()

	analysis, err := advisor.AnalyzeSpending(cmd.Context(), req)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(analysis)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("Spent %s in %d days", cli.Money(analysis.TotalSpend), analysis.Window.Days())))
	fmt.Println()
	fmt.Print(cli.SpendingTable(analysis))
	if table := cli.AnomalyTable(analysis.Anomalies); table != "" {
		fmt.Println()
		fmt.Print(table)
	}
	if len(analysis.Skipped) > 0 {
		fmt.Printf("\n  %s\n", cli.Muted(fmt.Sprintf("too few purchases for anomaly checks: %v", analysis.Skipped)))
	}
	fmt.Println()
	return nil
}
