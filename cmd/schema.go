// =============================================================================
// Depot View - Schema Command
// =============================================================================
//
// COMMAND USAGE:
//   depotview schema              - Print the XSD of the XML report
//   depotview schema -o FILE      - Write it to FILE
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/depotview/internal/xmlwriter"
)

var schemaOutput string

// schemaCmd prints the XSD of the XML report.
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the XSD schema of the XML report",
	RunE: func(cmd *cobra.Command, args []string) error {
		xsd := xmlwriter.GenerateXSD(xmlwriter.DefaultGenerateOptions())

		if schemaOutput == "" {
			_, err := cmd.OutOrStdout().Write(xsd)
			return err
		}
		if err := os.WriteFile(schemaOutput, xsd, 0644); err != nil {
			return fmt.Errorf("failed to write schema: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", schemaOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.Flags().StringVarP(&schemaOutput, "output", "o", "", "Write the schema to this file")
}
