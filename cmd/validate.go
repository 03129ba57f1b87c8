// =============================================================================
// Depot View - Validate Command
// =============================================================================
//
// COMMAND USAGE:
//   depotview validate          - Check the main and source configurations
//   depotview validate FILE     - Also validate the rows of a job export
//
// Nothing is written or archived.
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/depotview/internal/converter"
	"github.com/ginjaninja78/depotview/internal/validation"
)

var validateCmd = &cobra.Command{
	Use:   "validate [FILE]",
	Short: "Validate configuration files and optionally a job export",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		// The main configuration was validated while loading.
		fmt.Fprintln(out, "Main configuration: OK")

		sources, err := loadSources("")
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Source configurations: %d\n", len(sources))
		for _, s := range sources {
			fmt.Fprintf(out, "  - %s (%s): %v\n", s.SourceCode, s.SourceName, s.FileMatchingPatterns)
		}

		if len(args) == 0 {
			return nil
		}

		source, err := converter.MatchSource(args[0], sources)
		if err != nil {
			return err
		}

		agg, err := converter.New(args[0], source, mainConfig).Aggregate(cmd.Context())
		if agg != nil && agg.Validation != nil {
			fmt.Fprintf(out, "\n%s: %d row(s) checked\n", args[0], agg.Validation.RowsValidated)
			fmt.Fprintln(out, validation.FormatErrors(agg.Validation.Errors))
		}
		if err != nil && !errors.Is(err, converter.ErrValidation) {
			return err
		}
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		fmt.Fprintf(out, "%d job(s) in %d supplier group(s)\n", agg.Stats.JobsAggregated, agg.Stats.Suppliers)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
