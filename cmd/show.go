// =============================================================================
// Depot View - Show Command
// =============================================================================
//
// COMMAND USAGE:
//   depotview show FILE [--jobs] [--source CODE] [--sort-by F --direction D]
//
// Aggregates one job export and prints the tree. Nothing is written.
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/depotview/internal/converter"
	"github.com/ginjaninja78/depotview/internal/preview"
	"github.com/ginjaninja78/depotview/internal/validation"
)

var showJobs bool

// showCmd aggregates one file and prints the tree without writing anything.
var showCmd = &cobra.Command{
	Use:   "show FILE",
	Short: "Preview the depot view of a job export in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := converterOptions(cmd)
		if err != nil {
			return err
		}

		sources, err := loadSources(sourceCode)
		if err != nil {
			return err
		}
		source, err := converter.MatchSource(args[0], sources)
		if sourceCode != "" {
			source, err = sources[0], nil
		}
		if err != nil {
			return err
		}

		agg, err := converter.New(args[0], source, mainConfig, opts...).Aggregate(cmd.Context())
		if err != nil {
			if errors.Is(err, converter.ErrValidation) && agg != nil {
				fmt.Fprintln(cmd.OutOrStdout(), validation.FormatErrors(agg.Validation.Errors))
			}
			return err
		}

		fmt.Fprint(cmd.OutOrStdout(), preview.Render(agg.Groups, preview.Options{
			DateFormat: mainConfig.DateFormat,
			ShowJobs:   showJobs,
		}))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().StringVar(&sourceCode, "source", "",
		"Use the source configuration with this code instead of matching the file name")
	showCmd.Flags().BoolVar(&showJobs, "jobs", false, "List the source rows of every EWC code group")
	addSortFlags(showCmd)
}
