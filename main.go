// =============================================================================
// Depot View - Main Entry Point
// =============================================================================
//
// This is the main entry point for the Depot View CLI application. It
// delegates command execution to the cmd package.
//
// USAGE:
//   depotview aggregate     - Aggregate all job exports in the input directory
//   depotview show FILE     - Preview the depot view of one job export
//   depotview validate      - Validate configuration files without processing
//   depotview schema        - Print the XSD of the XML report
//   depotview version       - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Aggregation core, ingest, renderers, configuration
//   - pkg/           : Shared file utilities
//   - configs/       : One YAML configuration per job export source
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/depotview/cmd"
)

func main() {
	cmd.Execute()
}
