package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hermetic-ci/hermetic/pkg/analytics"
	"github.com/hermetic-ci/hermetic/pkg/domain"
	"github.com/hermetic-ci/hermetic/pkg/report"
)

var (
	mergeOutput      string
	validateStrict   bool
	suggestionOutput bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Work with run reports",
}

var reportMergeCmd = &cobra.Command{
	Use:   "merge [report.json ...]",
	Short: "Merge per-worker reports into one",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		merged, err := report.Merge(cmd.Context(), args)
		if err != nil {
			return err
		}
		if err := report.WriteJSON(merged, mergeOutput); err != nil {
			return err
		}
		fmt.Printf("Merged %d reports into %s (%d tests)\n", len(args), mergeOutput, merged.Summary.TotalTests)
		return nil
	},
}

var reportValidateCmd = &cobra.Command{
	Use:   "validate [report.json]",
	Short: "Validate a report's size distribution against targets",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := report.ReadJSON(args[0])
		if err != nil {
			return err
		}

		counts := analytics.Counts{
			Small:  r.Summary.Distribution["small"].Count,
			Medium: r.Summary.Distribution["medium"].Count,
			Large:  r.Summary.Distribution["large"].Count,
			XLarge: r.Summary.Distribution["xlarge"].Count,
		}

		mode := domain.ModeWarn
		if validateStrict {
			mode = domain.ModeStrict
		}
		svc := analytics.NewValidationService(mode)
		if err := svc.Validate(counts, stderrSink{}); err != nil {
			return err
		}

		if suggestionOutput {
			report.WriteSuggestionSummary(r.Suggestions, &report.PlainWriter{W: os.Stdout})
		}
		fmt.Println("Distribution OK")
		return nil
	},
}

type stderrSink struct{}

func (stderrSink) Warn(message string) {
	fmt.Fprintln(os.Stderr, message)
}

func init() {
	reportMergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", "report.json", "merged report path")
	reportValidateCmd.Flags().BoolVar(&validateStrict, "strict", false, "fail on distribution violations")
	reportValidateCmd.Flags().BoolVar(&suggestionOutput, "suggestions", false, "print the suggestion summary")
	reportCmd.AddCommand(reportMergeCmd)
	reportCmd.AddCommand(reportValidateCmd)
	rootCmd.AddCommand(reportCmd)
}
