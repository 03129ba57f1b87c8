// =============================================================================
// Depot View - Converter Module
// =============================================================================
//
// This module orchestrates the aggregation pipeline for a single job export,
// from parsing to report generation.
//
// AGGREGATION PIPELINE:
//   1. Parse the input file (CSV/TXT or XLSX) into a table
//   2. Apply the source's transformation rules to each row
//   3. Validate the transformed rows
//   4. Map rows onto job records
//   5. Sort, group and flatten the jobs into the supplier tree
//   6. Write the configured reports (XML, XLSX)
//   7. Archive the processed files
//
// CONCURRENCY:
//   A Converter handles one file and shares no state with other converters,
//   so the caller can run one per file in its own goroutine.
//
// =============================================================================

package converter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ginjaninja78/depotview/internal/config"
	"github.com/ginjaninja78/depotview/internal/csvparser"
	"github.com/ginjaninja78/depotview/internal/hierarchy"
	"github.com/ginjaninja78/depotview/internal/jobsort"
	"github.com/ginjaninja78/depotview/internal/logging"
	"github.com/ginjaninja78/depotview/internal/types"
	"github.com/ginjaninja78/depotview/internal/validation"
	"github.com/ginjaninja78/depotview/internal/xlsxparser"
	"github.com/ginjaninja78/depotview/internal/xlsxwriter"
	"github.com/ginjaninja78/depotview/internal/xmlwriter"
	"github.com/ginjaninja78/depotview/pkg/utils"
)

// ErrNoSource is returned when no source configuration matches an input file.
var ErrNoSource = errors.New("no source configuration matches file")

// ErrValidation is returned when a file fails validation.
var ErrValidation = errors.New("validation failed")

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single file.
type Result struct {
	// FilePath is the path to the input file that was processed.
	FilePath string

	// Source is the code of the source configuration that handled the file.
	Source string

	// OutputFiles are the paths of the generated reports.
	// Empty if processing failed or no jobs were found.
	OutputFiles []string

	// ErrorLog is the path of the validation log, if one was written.
	ErrorLog string

	// ArchivePath is where the input file was archived, if it was.
	ArchivePath string

	// Success indicates whether the processing was successful.
	Success bool

	// Error contains the error if processing failed.
	Error error

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// RowsProcessed is the number of data rows read from the file.
	RowsProcessed int

	// JobsAggregated is the number of jobs in the tree.
	JobsAggregated int

	// Suppliers is the number of supplier groups.
	Suppliers int

	// LeafGroups is the number of EWC code groups.
	LeafGroups int

	// ValidationWarnings is the number of validation warnings.
	ValidationWarnings int

	// ValidationErrors is the number of fatal validation errors.
	ValidationErrors int

	// ProcessingTime is the time taken to process the file.
	ProcessingTime time.Duration
}

// Aggregation is the supplier tree of one file together with what was
// learned while building it.
type Aggregation struct {
	Groups     []hierarchy.SupplierGroup
	Validation *validation.ValidationResult
	Stats      ProcessingStats
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter aggregates a single job export.
type Converter struct {
	path    string
	source  *config.SourceConfig
	main    *config.MainConfig
	sort    *types.SortSpec
	now     func() time.Time
	files   *utils.FileManager
	formats []string
}

// Option configures a Converter.
type Option func(*Converter)

// WithSort overrides the sort of both the main and the source configuration.
func WithSort(spec types.SortSpec) Option {
	return func(c *Converter) {
		c.sort = &spec
	}
}

// WithClock sets the clock used as the reference time for licence expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Converter) {
		c.now = now
	}
}

// WithFileManager sets the file manager used for archival. Without one, Run
// does not archive.
func WithFileManager(fm *utils.FileManager) Option {
	return func(c *Converter) {
		c.files = fm
	}
}

// WithFormats overrides the configured output formats.
func WithFormats(formats ...string) Option {
	return func(c *Converter) {
		c.formats = formats
	}
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// New creates a new Converter instance.
//
// PARAMETERS:
//   - path: The path to the input file.
//   - source: The source configuration matching the file.
//   - main: The main application configuration.
//   - opts: Optional overrides.
func New(path string, source *config.SourceConfig, main *config.MainConfig, opts ...Option) *Converter {
	c := &Converter{
		path:    path,
		source:  source,
		main:    main,
		now:     time.Now,
		formats: main.OutputFormats,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MatchSource returns the first source whose file patterns match path.
func MatchSource(path string, sources []*config.SourceConfig) (*config.SourceConfig, error) {
	for _, source := range sources {
		if source.Matches(path) {
			return source, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoSource, filepath.Base(path))
}

// SortSpec returns the sort the converter applies: an explicit option wins
// over the source configuration, which wins over the main configuration.
func (c *Converter) SortSpec() types.SortSpec {
	switch {
	case c.sort != nil:
		return *c.sort
	case c.source.Sort != nil && c.source.Sort.Field != "":
		return *c.source.Sort
	default:
		return c.main.Sort
	}
}

// =============================================================================
// AGGREGATION
// =============================================================================

// Aggregate runs the pipeline up to the flattened supplier tree. It writes
// nothing.
//
// A file that fails validation returns the aggregation so far together with an
// error wrapping ErrValidation.
func (c *Converter) Aggregate(ctx context.Context) (*Aggregation, error) {
	start := time.Now()
	logger := logging.FromContext(ctx)
	agg := &Aggregation{}

	// =========================================================================
	// STEP 1: PARSE INPUT
	// =========================================================================

	table, err := c.parse()
	if err != nil {
		return nil, err
	}
	agg.Stats.RowsProcessed = len(table.Rows)
	logger.Debug("parsed input", "rows", len(table.Rows), "columns", len(table.Headers))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// =========================================================================
	// STEP 2: APPLY TRANSFORMATION RULES
	// =========================================================================

	transformer, err := NewTransformer(c.source.TransformationRules)
	if err != nil {
		return nil, fmt.Errorf("failed to compile transformation rules: %w", err)
	}
	for i, row := range table.Rows {
		if table.Rows[i], err = transformer.TransformRow(row); err != nil {
			return nil, fmt.Errorf("failed to apply transformations: %w", err)
		}
	}
	if transformer.Len() > 0 {
		logger.Debug("applied transformation rules", "rules", transformer.Len())
	}

	// =========================================================================
	// STEP 3: VALIDATE
	// =========================================================================

	validator := validation.NewValidatorWithOptions(c.source.Columns, c.source.DateLayouts, validation.ValidationOptions{
		TreatWarningsAsErrors: c.main.StrictValidation,
		ReferenceTime:         c.now(),
	})
	result := validator.ValidateTable(table)
	agg.Validation = result
	agg.Stats.ValidationWarnings = result.WarningCount
	agg.Stats.ValidationErrors = result.ErrorCount

	for _, ve := range result.Errors {
		logger.Debug("validation issue", "row", ve.RowNumber, "field", ve.Field, "rule", ve.Rule, "message", ve.Message)
	}
	if !result.IsValid {
		agg.Stats.ProcessingTime = time.Since(start)
		return agg, fmt.Errorf("%w with %d error(s) and %d warning(s)", ErrValidation, result.ErrorCount, result.WarningCount)
	}
	if result.WarningCount > 0 {
		logger.Warn("validation reported warnings", "warnings", result.WarningCount)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// =========================================================================
	// STEP 4-5: MAP, SORT, GROUP, FLATTEN
	// =========================================================================

	opts, err := c.main.HierarchyOptions()
	if err != nil {
		return nil, err
	}

	jobs := MapRecords(table, c.source.Columns, c.source.DateLayouts)
	spec := c.SortSpec()
	if spec.Field != "" && !jobsort.IsKnownField(spec.Field) && !table.HasHeader(spec.Field) {
		logger.Warn("sort field is neither a job field nor a column; jobs keep file order", "sort", spec.Field)
	}

	agg.Groups = hierarchy.Aggregate(jobs, spec, opts)
	agg.Stats.JobsAggregated = hierarchy.CountJobs(agg.Groups)
	agg.Stats.Suppliers = len(agg.Groups)
	agg.Stats.LeafGroups = hierarchy.CountLeaves(agg.Groups)
	agg.Stats.ProcessingTime = time.Since(start)

	logger.Debug("aggregated jobs",
		"jobs", agg.Stats.JobsAggregated,
		"suppliers", agg.Stats.Suppliers,
		"leaf_groups", agg.Stats.LeafGroups,
		"sort", spec.Field,
		"direction", spec.Direction)

	return agg, nil
}

// parse reads the input file with the parser matching its extension.
func (c *Converter) parse() (*types.Table, error) {
	switch ext := strings.ToLower(filepath.Ext(c.path)); ext {
	case ".xlsx", ".xlsm":
		table, err := xlsxparser.Parse(c.path, c.source.XLSXSettings)
		if err != nil {
			return nil, fmt.Errorf("failed to parse XLSX: %w", err)
		}
		return table, nil
	case ".csv", ".txt", "":
		table, err := csvparser.Parse(c.path, c.source.CSVSettings)
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV: %w", err)
		}
		return table, nil
	default:
		return nil, fmt.Errorf("unsupported input file type %q", ext)
	}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run aggregates the file, writes the configured reports and archives the
// processed files.
//
// PROCESSING STEPS:
//  1. Aggregate the file
//  2. Write the validation log when validation reported anything
//  3. Write the reports, unless no jobs were found
//  4. Archive the input file and the reports
func (c *Converter) Run(ctx context.Context) Result {
	start := time.Now()
	ctx = logging.WithFields(ctx, "file", filepath.Base(c.path), "source", c.source.SourceCode)
	logger := logging.FromContext(ctx)

	result := Result{
		FilePath: c.path,
		Source:   c.source.SourceCode,
	}

	logger.Info("processing file")

	agg, err := c.Aggregate(ctx)
	if agg != nil {
		result.Stats = agg.Stats
		if agg.Validation != nil && len(agg.Validation.Errors) > 0 {
			if path, logErr := c.writeErrorLog(agg.Validation.Errors); logErr != nil {
				logger.Warn("failed to write validation log", "error", logErr)
			} else {
				result.ErrorLog = path
			}
		}
	}
	if err != nil {
		result.Error = err
		result.Stats.ProcessingTime = time.Since(start)
		return result
	}

	// =========================================================================
	// WRITE REPORTS
	// =========================================================================

	if len(agg.Groups) == 0 {
		logger.Info("no jobs found; no report written")
	} else {
		outputs, err := c.writeReports(ctx, agg.Groups)
		result.OutputFiles = outputs
		if err != nil {
			result.Error = fmt.Errorf("failed to write output: %w", err)
			result.Stats.ProcessingTime = time.Since(start)
			return result
		}
	}

	// =========================================================================
	// ARCHIVE FILES
	// =========================================================================

	if c.files != nil && c.main.ArchiveOnSuccess {
		archived, err := c.files.ArchiveInputFile(c.path)
		if err != nil {
			// Archival failures don't fail the file.
			logger.Warn("failed to archive input file", "error", err)
		} else {
			result.ArchivePath = archived
		}
		for _, out := range result.OutputFiles {
			if _, err := c.files.ArchiveOutputFile(out); err != nil {
				logger.Warn("failed to archive report", "report", out, "error", err)
			}
		}
	}

	result.Success = true
	result.Stats.ProcessingTime = time.Since(start)

	logger.Info("processed file",
		"jobs", result.Stats.JobsAggregated,
		"suppliers", result.Stats.Suppliers,
		"reports", len(result.OutputFiles),
		"duration", result.Stats.ProcessingTime)

	return result
}

// writeReports writes one report per configured format.
func (c *Converter) writeReports(ctx context.Context, groups []hierarchy.SupplierGroup) ([]string, error) {
	logger := logging.FromContext(ctx)

	if err := os.MkdirAll(c.main.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	params := map[string]string{
		"source": c.source.SourceCode,
		"input":  strings.TrimSuffix(filepath.Base(c.path), filepath.Ext(c.path)),
	}
	baseName := utils.GenerateOutputFileName(c.main.OutputNameFormat, "", params)

	var outputs []string
	for _, format := range c.formats {
		path := filepath.Join(c.main.OutputDir, baseName+"."+strings.ToLower(format))

		switch strings.ToLower(format) {
		case config.FormatXML:
			doc, err := xmlwriter.GenerateWithOptions(groups, xmlwriter.GenerateOptions{
				Indent:                c.main.XML.Indent,
				IncludeXMLDeclaration: true,
				RootAttributes:        map[string]string{"source": c.source.SourceCode},
				IncludeJobs:           c.main.XML.IncludeJobs,
				DateFormat:            c.main.DateFormat,
			})
			if err != nil {
				return outputs, fmt.Errorf("failed to generate XML: %w", err)
			}
			if err := os.WriteFile(path, doc, 0644); err != nil {
				return outputs, fmt.Errorf("failed to write file: %w", err)
			}

		case config.FormatXLSX:
			if err := xlsxwriter.Write(groups, path, xlsxwriter.Options{
				SheetName:   c.main.XLSX.SheetName,
				DateFormat:  c.main.DateFormat,
				LinkBaseURL: c.main.XLSX.LinkBaseURL,
			}); err != nil {
				return outputs, err
			}

		default:
			return outputs, fmt.Errorf("unsupported output format %q", format)
		}

		logger.Info("wrote report", "format", format, "path", path)
		outputs = append(outputs, path)
	}

	return outputs, nil
}

// writeErrorLog writes the validation issues next to the reports.
func (c *Converter) writeErrorLog(errs []*validation.ValidationError) (string, error) {
	if err := os.MkdirAll(c.main.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(c.path), filepath.Ext(c.path)) + ".validation.log"
	path := filepath.Join(c.main.OutputDir, name)
	if err := validation.WriteErrorLog(errs, c.path, path); err != nil {
		return "", err
	}
	return path, nil
}
