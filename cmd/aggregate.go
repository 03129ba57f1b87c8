// =============================================================================
// Depot View - Aggregate Command
// =============================================================================
//
// This file defines the 'aggregate' command, the main command of the tool.
//
// COMMAND USAGE:
//   depotview aggregate [flags]
//   depotview process [flags]
//
// FLAGS:
//   --dry-run    : Aggregate and report counts without writing or archiving
//   --file       : Aggregate a single file instead of scanning the input dir
//   --source     : Only use the source configuration with this code
//   --sort-by    : Sort field override (e.g. deliveryDate, supplierName)
//   --direction  : Sort direction override: asc or desc
//   --format     : Report formats override: xml, xlsx
//
// PROCESSING PIPELINE:
//   1. Load the source configurations
//   2. Take the run lock
//   3. Discover job exports in the input directory
//   4. For each file (concurrently, at most max_concurrency at a time):
//      a. Match the file to a source configuration
//      b. Parse, transform, validate and aggregate the jobs
//      c. Write the reports
//      d. Archive the processed files
//   5. Write the summary report
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/depotview/internal/config"
	"github.com/ginjaninja78/depotview/internal/converter"
	"github.com/ginjaninja78/depotview/internal/logging"
	"github.com/ginjaninja78/depotview/internal/types"
	"github.com/ginjaninja78/depotview/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	dryRun     bool
	filePath   string
	sourceCode string
	sortBy     string
	direction  string
	formats    []string
)

// =============================================================================
// AGGREGATE COMMAND DEFINITION
// =============================================================================

var aggregateCmd = &cobra.Command{
	Use:     "aggregate",
	Aliases: []string{"process"},
	Short:   "Aggregate job exports into depot view reports",
	Long: `The aggregate command scans the input directory for job exports, matches
each one to a source configuration and writes a depot view report per file.

Files are processed concurrently. Unless continue_on_error is false, a failing
file does not stop the others.

On successful processing:
  - The reports are placed in the output directory
  - The job export is moved to the input archive
  - A summary report is generated

On error:
  - A validation log is written next to the reports
  - The job export remains in the input directory`,

	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := converterOptions(cmd)
		if err != nil {
			return err
		}
		return runAggregate(cmd.Context(), cmd, opts)
	},
}

func init() {
	rootCmd.AddCommand(aggregateCmd)

	aggregateCmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"Aggregate without writing reports or archiving files")
	aggregateCmd.Flags().StringVar(&filePath, "file", "",
		"Aggregate a single file instead of scanning the input directory")
	aggregateCmd.Flags().StringVar(&sourceCode, "source", "",
		"Only use the source configuration with this code")
	addSortFlags(aggregateCmd)
	aggregateCmd.Flags().StringSliceVar(&formats, "format", nil,
		"Report formats to write (xml, xlsx); default from configuration")
}

// addSortFlags registers the sort override flags on cmd.
func addSortFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&sortBy, "sort-by", "",
		"Field to sort jobs by before grouping (e.g. collectionDate, deliveryDate)")
	cmd.Flags().StringVar(&direction, "direction", types.DirectionDesc,
		"Sort direction: asc or desc")
}

// converterOptions turns the command line overrides into converter options.
func converterOptions(cmd *cobra.Command) ([]converter.Option, error) {
	var opts []converter.Option

	sortChanged := cmd.Flags().Changed("sort-by")
	dirChanged := cmd.Flags().Changed("direction")
	if sortChanged || dirChanged {
		if direction != types.DirectionAsc && direction != types.DirectionDesc {
			return nil, fmt.Errorf("--direction must be %q or %q, got %q", types.DirectionAsc, types.DirectionDesc, direction)
		}
		spec := mainConfig.Sort
		if sortChanged {
			spec.Field = sortBy
		}
		if dirChanged {
			spec.Direction = direction
		}
		opts = append(opts, converter.WithSort(spec))
	}

	if f := cmd.Flags().Lookup("format"); f != nil && f.Changed {
		for _, format := range formats {
			switch strings.ToLower(format) {
			case config.FormatXML, config.FormatXLSX:
			default:
				return nil, fmt.Errorf("unsupported --format %q", format)
			}
		}
		opts = append(opts, converter.WithFormats(formats...))
	}

	return opts, nil
}

// loadSources loads the source configurations, keeping only code when set.
func loadSources(code string) ([]*config.SourceConfig, error) {
	sources, err := config.LoadSourceConfigs(mainConfig.ConfigsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load source configs: %w", err)
	}
	if code == "" {
		return sources, nil
	}
	for _, s := range sources {
		if strings.EqualFold(s.SourceCode, code) {
			return []*config.SourceConfig{s}, nil
		}
	}
	return nil, fmt.Errorf("no source configuration with code %q", code)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runAggregate(ctx context.Context, cmd *cobra.Command, opts []converter.Option) error {
	startTime := time.Now()
	runID := uuid.New().String()
	ctx = logging.WithFields(ctx, "run_id", runID)
	logger := logging.FromContext(ctx)
	out := cmd.OutOrStdout()

	cfg := mainConfig

	// =========================================================================
	// STEP 1: LOAD SOURCE CONFIGURATIONS
	// =========================================================================

	sources, err := loadSources(sourceCode)
	if err != nil {
		return err
	}
	logger.Info("loaded source configurations", "sources", len(sources))

	if cfg.Hierarchy.RollupServiceRange {
		logger.Warn("rollup_service_range is enabled; supplier, depot and waste type groups carry service dates")
	}

	fm := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.OutputArchiveDir)
	fm.UseTimestampSubdirs = cfg.ArchiveTimestampSubdirs
	fm.ArchiveOnSuccess = cfg.ArchiveOnSuccess

	// =========================================================================
	// STEP 2: TAKE THE RUN LOCK
	// =========================================================================

	if !dryRun {
		if err := fm.EnsureDirectories(); err != nil {
			return err
		}
		unlock, err := fm.Lock(cfg.LockFile)
		if err != nil {
			return err
		}
		defer func() {
			if err := unlock(); err != nil {
				logger.Warn("failed to release lock", "error", err)
			}
		}()
	}

	// =========================================================================
	// STEP 3: DISCOVER INPUT FILES
	// =========================================================================

	var inputFiles []string
	if filePath != "" {
		inputFiles = []string{filePath}
	} else {
		inputFiles, err = fm.DiscoverInputFiles()
		if err != nil {
			return fmt.Errorf("failed to discover input files: %w", err)
		}
	}

	if len(inputFiles) == 0 {
		fmt.Fprintln(out, "No job exports found in the input directory.")
		return nil
	}

	logger.Info("discovered input files", "files", len(inputFiles), "dry_run", dryRun)

	// =========================================================================
	// STEP 4: PROCESS FILES CONCURRENTLY
	// =========================================================================

	results := make([]converter.Result, len(inputFiles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.MaxConcurrency)

	for i, path := range inputFiles {
		g.Go(func() error {
			results[i] = processFile(gctx, path, sources, fm, opts)
			if results[i].Error != nil && !cfg.ContinueOnError {
				return fmt.Errorf("%s: %w", filepath.Base(path), results[i].Error)
			}
			return nil
		})
	}

	waitErr := g.Wait()

	// =========================================================================
	// STEP 5: COLLECT RESULTS AND WRITE SUMMARY
	// =========================================================================

	summary := utils.ProcessingSummary{
		RunID:      runID,
		StartTime:  startTime,
		TotalFiles: len(inputFiles),
	}

	for _, result := range results {
		name := filepath.Base(result.FilePath)
		summary.TotalRows += result.Stats.RowsProcessed
		summary.ValidationWarnings += result.Stats.ValidationWarnings
		summary.ValidationErrors += result.Stats.ValidationErrors

		if result.Success {
			summary.SuccessfulFiles++
			summary.TotalJobs += result.Stats.JobsAggregated
			summary.TotalSuppliers += result.Stats.Suppliers
			summary.TotalLeafGroups += result.Stats.LeafGroups
			summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
				InputFile:   result.FilePath,
				Source:      result.Source,
				OutputFiles: result.OutputFiles,
				ArchivePath: result.ArchivePath,
				Rows:        result.Stats.RowsProcessed,
				Jobs:        result.Stats.JobsAggregated,
				Suppliers:   result.Stats.Suppliers,
				LeafGroups:  result.Stats.LeafGroups,
				ProcessTime: result.Stats.ProcessingTime,
			})

			target := strings.Join(result.OutputFiles, ", ")
			if target == "" {
				target = "no jobs found"
			}
			fmt.Fprintf(out, "  ✓ %s -> %s (%d jobs, %d suppliers)\n", name, target,
				result.Stats.JobsAggregated, result.Stats.Suppliers)
			continue
		}

		summary.FailedFiles++
		errMsg := "not processed"
		if result.Error != nil {
			errMsg = result.Error.Error()
		}
		summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
			InputFile:    result.FilePath,
			ErrorMessage: errMsg,
		})
		fmt.Fprintf(out, "  ✗ %s: %s\n", name, errMsg)
	}

	summary.EndTime = time.Now()

	fmt.Fprintln(out, "\n=== Aggregation Complete ===")
	fmt.Fprintf(out, "Total files:     %d\n", summary.TotalFiles)
	fmt.Fprintf(out, "Successful:      %d\n", summary.SuccessfulFiles)
	fmt.Fprintf(out, "Errors:          %d\n", summary.FailedFiles)
	fmt.Fprintf(out, "Jobs:            %d\n", summary.TotalJobs)
	fmt.Fprintf(out, "Time elapsed:    %s\n", summary.EndTime.Sub(startTime))

	if !dryRun {
		summaryPath, err := utils.WriteSummaryLog(summary, cfg.OutputDir)
		if err != nil {
			logger.Warn("failed to write summary", "error", err)
		} else {
			fmt.Fprintf(out, "Summary:         %s\n", summaryPath)
		}
	}

	if waitErr != nil {
		return waitErr
	}
	if summary.FailedFiles > 0 {
		return fmt.Errorf("%d of %d file(s) failed", summary.FailedFiles, summary.TotalFiles)
	}
	return nil
}

// processFile aggregates one file. In a dry run nothing is written.
func processFile(ctx context.Context, path string, sources []*config.SourceConfig, fm *utils.FileManager, opts []converter.Option) converter.Result {
	if err := ctx.Err(); err != nil {
		return converter.Result{FilePath: path, Error: fmt.Errorf("skipped: %w", err)}
	}

	source, err := converter.MatchSource(path, sources)
	if err != nil {
		return converter.Result{FilePath: path, Error: err}
	}

	opts = append(opts[:len(opts):len(opts)], converter.WithFileManager(fm))
	conv := converter.New(path, source, mainConfig, opts...)

	if !dryRun {
		return conv.Run(ctx)
	}

	ctx = logging.WithFields(ctx, "file", filepath.Base(path), "source", source.SourceCode)
	agg, err := conv.Aggregate(ctx)
	result := converter.Result{FilePath: path, Source: source.SourceCode}
	if agg != nil {
		result.Stats = agg.Stats
	}
	if err != nil {
		if errors.Is(err, converter.ErrValidation) {
			logging.FromContext(ctx).Warn("file failed validation", "error", err)
		}
		result.Error = err
		return result
	}
	result.Success = true
	return result
}
