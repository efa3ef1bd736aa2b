package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"reward-advisor/cli"
	"reward-advisor/service"
)

var flagUser string

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Generate and store ranked recommendations",
	Long: `Reads a financial snapshot {"cards", "transactions", "debts", "extraMonthlyPayment"}
and prints the highest priority recommendations. Results are saved to the
configured store; use --list to show the ones still current.`,
	RunE: runRecommend,
}

var flagList bool

func init() {
	addInputFlags(recommendCmd)
	recommendCmd.Flags().StringVarP(&flagUser, "user", "u", "local", "User id the recommendations belong to")
	recommendCmd.Flags().BoolVar(&flagList, "list", false, "List current stored recommendations instead of generating")
	rootCmd.AddCommand(recommendCmd)
}

func runRecommend(cmd *cobra.Command, _ []string) error {
	advisor, cleanup, err := buildAdvisor(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer cleanup()

	if flagList {
		recs, err := advisor.CurrentRecommendations(cmd.Context(), flagUser)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(recs)
		}
		fmt.Println()
		fmt.Print(cli.RecommendationTable(recs))
		fmt.Println()
		return nil
	}

	var req service.RecommendationRequest
	if err := readInput(&req); err != nil {
		return err
	}
	req.UserID = flagUser

	result, err := advisor.GenerateRecommendations(cmd.Context(), req)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(result)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("RECOMMENDATIONS"))
	fmt.Println()
	fmt.Print(cli.RecommendationTable(result.Recommendations))
	fmt.Printf("\n  %s\n", result.Summary)
	for _, r := range result.Recommendations {
		fmt.Printf("\n  %s %s\n", cli.PriorityLabel(r.Priority), r.Title)
		if r.Rationale != "" {
			fmt.Printf("    %s\n", r.Rationale)
		}
		for i, item := range r.ActionItems {
			fmt.Printf("    %d. %s\n", i+1, item)
		}
	}
	for _, w := range result.Warnings {
		fmt.Printf("\n  %s\n", cli.Muted("note: "+w))
	}
	fmt.Println()
	return nil
}
