package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reward-advisor/cli"
	"reward-advisor/service"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a free-form question about your finances",
	Long: `Answers a question in prose. With --file, the answer draws on a snapshot
{"cards", "transactions", "debts", "extraMonthlyPayment"} that the engines
summarize first. Without a configured oracle a summary of the snapshot is
printed instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var flagSnapshot string

func init() {
	askCmd.Flags().StringVarP(&flagSnapshot, "file", "f", "", "JSON financial snapshot, - for stdin")
	askCmd.Flags().BoolVar(&flagJSON, "json", false, "Print JSON instead of text")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	var req service.QuestionRequest
	if flagSnapshot != "" {
		if err := decodeInput(flagSnapshot, &req); err != nil {
			return err
		}
	}
	req.Question = strings.Join(args, " ")

	advisor, cleanup, err := buildAdvisor(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer cleanup()

	answer, err := advisor.Ask(cmd.Context(), req)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(answer)
	}

	fmt.Println()
	fmt.Println(answer.Answer)
	fmt.Printf("\n  %s\n\n", cli.Muted(answer.Disclaimer))
	return nil
}
