package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"reward-advisor/cli"
	"reward-advisor/service"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Rank cards for a single purchase",
	Long: `Reads {"transaction": {...}, "cards": [...], "currentCardId": "..."} and
prints every active card ranked by net value after fee amortization.`,
	RunE: runOptimize,
}

func init() {
	addInputFlags(optimizeCmd)
	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, _ []string) error {
	var req service.CardRequest
	if err := readInput(&req); err != nil {
		return err
	}

	advisor, cleanup, err := buildAdvisor(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer cleanup()

	advice, err := advisor.OptimizeCard(cmd.Context(), req)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(advice)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("Best card: %s", advice.Best.CardName)))
	fmt.Println()
	fmt.Print(cli.CardTable(advice.Calculations))
	if advice.SavingsVsCurrentCard != nil {
		fmt.Printf("\n  Versus current card: %s\n", cli.Highlight(cli.Money(*advice.SavingsVsCurrentCard)))
	}
	fmt.Printf("\n  %s\n", advice.Explanation)
	fmt.Printf("  %s\n\n", cli.Muted(fmt.Sprintf("category %s (%s, confidence %d)",
		advice.Categorization.Category, advice.Categorization.Source, advice.Categorization.Confidence)))
	return nil
}
