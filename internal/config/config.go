// =============================================================================
// Depot View - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing all configuration files.
// It handles both the main application configuration and the per-source
// configurations that describe each job export.
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): Global application settings. Every key can
//      be overridden from the environment with the DEPOTVIEW_ prefix, e.g.
//      DEPOTVIEW_SORT_FIELD=supplierName or DEPOTVIEW_MAX_CONCURRENCY=1.
//   2. Source Configs (configs/*.yaml): One file per job export source
//      (see source.go).
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/ginjaninja78/depotview/internal/hierarchy"
	"github.com/ginjaninja78/depotview/internal/types"
)

// EnvPrefix is the prefix of environment variables that override main config keys.
const EnvPrefix = "DEPOTVIEW"

// Output formats the aggregate command can write.
const (
	FormatXML  = "xml"
	FormatXLSX = "xlsx"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for job exports to aggregate.
	// Default: "./input"
	InputDir string `mapstructure:"input_dir"`

	// OutputDir receives the generated reports.
	// Default: "./output"
	OutputDir string `mapstructure:"output_dir"`

	// InputArchiveDir receives job exports after they were aggregated.
	// Files are only moved here after successful processing.
	// Default: "./input_archive"
	InputArchiveDir string `mapstructure:"input_archive_dir"`

	// OutputArchiveDir receives a copy of every generated report.
	// Default: "./output_archive"
	OutputArchiveDir string `mapstructure:"output_archive_dir"`

	// ConfigsDir holds one YAML file per job export source.
	// Default: "./configs"
	ConfigsDir string `mapstructure:"configs_dir"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `mapstructure:"log_level"`

	// LogFormat selects the log handler: "text" or "json".
	// Default: "text"
	LogFormat string `mapstructure:"log_format"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputNameFormat defines the base name of generated reports.
	// Placeholders:
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {source}    - Source code of the job export
	//   {input}     - Input file name without extension
	// The extension is added per output format.
	// Default: "{source}_{timestamp}_{uuid}"
	OutputNameFormat string `mapstructure:"output_name_format"`

	// OutputFormats lists the report formats to write: "xml", "xlsx".
	// Default: ["xml", "xlsx"]
	OutputFormats []string `mapstructure:"output_formats"`

	// DateFormat is the Go layout used to print dates in reports.
	// Default: "2006-01-02"
	DateFormat string `mapstructure:"date_format"`

	// XML holds settings of the XML report.
	XML XMLConfig `mapstructure:"xml"`

	// XLSX holds settings of the spreadsheet report.
	XLSX XLSXReportConfig `mapstructure:"xlsx"`

	// =========================================================================
	// AGGREGATION SETTINGS
	// =========================================================================

	// Sort is the default order jobs are sorted into before grouping.
	// A source config or a command line flag can override it.
	// Default: collectionDate, desc
	Sort types.SortSpec `mapstructure:"sort"`

	// Hierarchy tunes how the supplier tree is built.
	Hierarchy HierarchyConfig `mapstructure:"hierarchy"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of files to process concurrently.
	// Set to 1 for sequential processing.
	// Default: 4
	MaxConcurrency int `mapstructure:"max_concurrency"`

	// ContinueOnError determines whether to continue processing other files
	// if one file fails.
	// Default: true
	ContinueOnError bool `mapstructure:"continue_on_error"`

	// StrictValidation turns validation warnings (expired licences,
	// unparseable dates) into errors that fail the file.
	// Default: false
	StrictValidation bool `mapstructure:"strict_validation"`

	// ArchiveOnSuccess moves aggregated inputs to InputArchiveDir and copies
	// reports to OutputArchiveDir.
	// Default: true
	ArchiveOnSuccess bool `mapstructure:"archive_on_success"`

	// ArchiveTimestampSubdirs files archives under YYYY/MM/DD
	// subdirectories.
	// Default: true
	ArchiveTimestampSubdirs bool `mapstructure:"archive_timestamp_subdirs"`

	// LockFile guards against two aggregate runs sharing the same directories.
	// Default: "./.depotview.lock"
	LockFile string `mapstructure:"lock_file"`
}

// HierarchyConfig tunes how the supplier tree is built.
type HierarchyConfig struct {
	// KeyOrder is "insertion" (children in first-seen order) or
	// "integer_first" (integer-like keys such as EWC codes first, ascending).
	// Default: "insertion"
	KeyOrder string `mapstructure:"key_order"`

	// RollupServiceRange also reports first/last service dates on supplier,
	// depot and waste type groups. This changes existing reports, which only
	// carry dates on EWC code groups.
	// Default: false
	RollupServiceRange bool `mapstructure:"rollup_service_range"`
}

// XMLConfig holds settings of the XML report.
type XMLConfig struct {
	// IncludeJobs writes one <job> element per job under each EWC code.
	// Default: true
	IncludeJobs bool `mapstructure:"include_jobs"`

	// Indent is the indentation string of the XML report.
	// Default: two spaces
	Indent string `mapstructure:"indent"`
}

// XLSXReportConfig holds settings of the spreadsheet report.
type XLSXReportConfig struct {
	// SheetName is the name of the report sheet.
	// Default: "Depot View"
	SheetName string `mapstructure:"sheet_name"`

	// LinkBaseURL turns supplier and depot cells into hyperlinks when set.
	// Example: "https://portal.example.com"
	LinkBaseURL string `mapstructure:"link_base_url"`
}

// HierarchyOptions converts the hierarchy settings into builder options.
func (c *MainConfig) HierarchyOptions() (hierarchy.Options, error) {
	order, err := hierarchy.ParseKeyOrder(c.Hierarchy.KeyOrder)
	if err != nil {
		return hierarchy.Options{}, err
	}
	return hierarchy.Options{
		KeyOrder:           order,
		RollupServiceRange: c.Hierarchy.RollupServiceRange,
	}, nil
}

// WantsFormat reports whether format is one of the configured output formats.
func (c *MainConfig) WantsFormat(format string) bool {
	for _, f := range c.OutputFormats {
		if strings.EqualFold(f, format) {
			return true
		}
	}
	return false
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// setDefaults registers the default of every main config key. Keys must be
// registered here for environment overrides to reach Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("input_dir", "./input")
	v.SetDefault("output_dir", "./output")
	v.SetDefault("input_archive_dir", "./input_archive")
	v.SetDefault("output_archive_dir", "./output_archive")
	v.SetDefault("configs_dir", "./configs")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	v.SetDefault("output_name_format", "{source}_{timestamp}_{uuid}")
	v.SetDefault("output_formats", []string{FormatXML, FormatXLSX})
	v.SetDefault("date_format", "2006-01-02")
	v.SetDefault("xml.include_jobs", true)
	v.SetDefault("xml.indent", "  ")
	v.SetDefault("xlsx.sheet_name", "Depot View")
	v.SetDefault("xlsx.link_base_url", "")

	v.SetDefault("sort.field", "collectionDate")
	v.SetDefault("sort.direction", types.DirectionDesc)
	v.SetDefault("hierarchy.key_order", hierarchy.InsertionOrder.String())
	v.SetDefault("hierarchy.rollup_service_range", false)

	v.SetDefault("max_concurrency", 4)
	v.SetDefault("continue_on_error", true)
	v.SetDefault("strict_validation", false)
	v.SetDefault("archive_on_success", true)
	v.SetDefault("archive_timestamp_subdirs", true)
	v.SetDefault("lock_file", "./.depotview.lock")
}

// LoadMainConfig loads the main configuration.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file. When empty, only
//     defaults and environment overrides are used.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read or parsed, or the result is invalid.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config MainConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks the main configuration for values no component accepts.
func (c *MainConfig) Validate() error {
	var errs []error

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format %q is not one of text, json", c.LogFormat))
	}

	if len(c.OutputFormats) == 0 {
		errs = append(errs, errors.New("output_formats must list at least one format"))
	}
	for _, f := range c.OutputFormats {
		switch strings.ToLower(f) {
		case FormatXML, FormatXLSX:
		default:
			errs = append(errs, fmt.Errorf("output format %q is not supported", f))
		}
	}

	if strings.TrimSpace(c.OutputNameFormat) == "" {
		errs = append(errs, errors.New("output_name_format must not be empty"))
	}

	if c.MaxConcurrency < 1 {
		errs = append(errs, fmt.Errorf("max_concurrency must be at least 1, got %d", c.MaxConcurrency))
	}

	if _, err := hierarchy.ParseKeyOrder(c.Hierarchy.KeyOrder); err != nil {
		errs = append(errs, fmt.Errorf("hierarchy.key_order: %w", err))
	}

	return errors.Join(errs...)
}
