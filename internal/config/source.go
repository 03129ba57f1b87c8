// =============================================================================
// Depot View - Source Configuration
// =============================================================================
//
// A source is a producer of job exports: a waste portal, a carrier's own
// spreadsheet, a depot's weighbridge system. Each source has its own file
// naming convention, file layout and column headers, described by one YAML
// file in the configs directory:
//
//   source_name: "Waste Portal"
//   source_code: "PORTAL"
//   file_matching_patterns: ["portal_jobs_*.csv", "portal_jobs_*.xlsx"]
//   csv_settings:
//     delimiter: ","
//   columns:
//     supplier_name: "Carrier"
//     ewc_code: "EWC"
//   date_layouts: ["02/01/2006"]
//   sort:
//     field: deliveryDate
//     direction: asc
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/depotview/internal/types"
)

// =============================================================================
// SOURCE CONFIGURATION STRUCTURE
// =============================================================================

// SourceConfig holds the configuration for one job export source.
type SourceConfig struct {
	// SourceName is the human-readable name of the source, used in logs.
	SourceName string `yaml:"source_name"`

	// SourceCode is a short code used in output file names and reports.
	SourceCode string `yaml:"source_code"`

	// FileMatchingPatterns are glob patterns matched against input file
	// names. The first source with a matching pattern handles the file.
	FileMatchingPatterns []string `yaml:"file_matching_patterns"`

	// CSVSettings is used for .csv and .txt inputs.
	CSVSettings CSVSettings `yaml:"csv_settings"`

	// XLSXSettings is used for .xlsx inputs.
	XLSXSettings XLSXSettings `yaml:"xlsx_settings"`

	// Columns maps job fields to the column headers of this source.
	// Unset entries default to the portal's own header names.
	Columns ColumnMapping `yaml:"columns"`

	// DateLayouts are Go time layouts tried in order when parsing dates.
	// Default: types.DefaultDateLayouts
	DateLayouts []string `yaml:"date_layouts"`

	// TransformationRules are applied to raw column values before mapping.
	TransformationRules []TransformationRule `yaml:"transformation_rules"`

	// Sort overrides the main config's sort for this source.
	Sort *types.SortSpec `yaml:"sort,omitempty"`

	// Path is the file the configuration was loaded from.
	Path string `yaml:"-"`
}

// CSVSettings contains settings for parsing CSV files.
type CSVSettings struct {
	// Delimiter separates fields. Aliases "tab", "pipe", "semicolon" and
	// "comma" are accepted.
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// HeaderRows is the number of header rows. Multiple header rows are
	// joined column-wise with a space.
	// Default: 1
	HeaderRows int `yaml:"header_rows"`

	// DataStartRow is the 1-based row where data begins.
	// Default: HeaderRows + 1
	DataStartRow int `yaml:"data_start_row"`

	// Encoding is the character encoding of the file.
	// Supported: "UTF-8", "UTF-16", "ISO-8859-1", "Windows-1252"
	// Default: "UTF-8"
	Encoding string `yaml:"encoding"`

	// LazyQuotes tolerates bare quotes inside unquoted fields.
	LazyQuotes bool `yaml:"lazy_quotes"`
}

// XLSXSettings contains settings for reading XLSX workbooks.
type XLSXSettings struct {
	// SheetName is the sheet holding the jobs. Default: the first sheet.
	SheetName string `yaml:"sheet_name"`

	// HeaderRow is the 1-based row holding the column headers.
	// Data starts on the next row.
	// Default: 1
	HeaderRow int `yaml:"header_row"`
}

// ColumnMapping maps job fields to source column headers.
type ColumnMapping struct {
	SupplierID     string `yaml:"supplier_id"`
	SupplierName   string `yaml:"supplier_name"`
	DepotDisposeID string `yaml:"depot_dispose_id"`
	DepotDispose   string `yaml:"depot_dispose"`
	WasteType      string `yaml:"waste_type"`
	EWCCode        string `yaml:"ewc_code"`
	DeliveryDate   string `yaml:"delivery_date"`
	CollectionDate string `yaml:"collection_date"`
	LicenseNumber  string `yaml:"license_number"`
	LicenseExpiry  string `yaml:"license_expiry"`
}

// DefaultColumns returns the column headers used by the portal export.
func DefaultColumns() ColumnMapping {
	return ColumnMapping{
		SupplierID:     "supplierId",
		SupplierName:   "supplierName",
		DepotDisposeID: "depotDisposeId",
		DepotDispose:   "depotDispose",
		WasteType:      "wasteType",
		EWCCode:        "ewcCode",
		DeliveryDate:   "deliveryDate",
		CollectionDate: "collectionDate",
		LicenseNumber:  "licenseNumber",
		LicenseExpiry:  "licenseExpiry",
	}
}

// withDefaults fills every unset header from DefaultColumns.
func (m ColumnMapping) withDefaults() ColumnMapping {
	d := DefaultColumns()
	set := func(v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			*v = def
		}
	}
	set(&m.SupplierID, d.SupplierID)
	set(&m.SupplierName, d.SupplierName)
	set(&m.DepotDisposeID, d.DepotDisposeID)
	set(&m.DepotDispose, d.DepotDispose)
	set(&m.WasteType, d.WasteType)
	set(&m.EWCCode, d.EWCCode)
	set(&m.DeliveryDate, d.DeliveryDate)
	set(&m.CollectionDate, d.CollectionDate)
	set(&m.LicenseNumber, d.LicenseNumber)
	set(&m.LicenseExpiry, d.LicenseExpiry)
	return m
}

// GroupingColumns returns the headers of the four grouping keys, outermost
// first.
func (m ColumnMapping) GroupingColumns() []string {
	return []string{m.SupplierName, m.DepotDispose, m.WasteType, m.EWCCode}
}

// DateColumns returns the headers of the date columns.
func (m ColumnMapping) DateColumns() []string {
	return []string{m.DeliveryDate, m.CollectionDate, m.LicenseExpiry}
}

// Mapped returns the set of headers that map onto named job fields.
func (m ColumnMapping) Mapped() map[string]bool {
	return map[string]bool{
		m.SupplierID:     true,
		m.SupplierName:   true,
		m.DepotDisposeID: true,
		m.DepotDispose:   true,
		m.WasteType:      true,
		m.EWCCode:        true,
		m.DeliveryDate:   true,
		m.CollectionDate: true,
		m.LicenseNumber:  true,
		m.LicenseExpiry:  true,
	}
}

// =============================================================================
// TRANSFORMATION RULE STRUCTURE
// =============================================================================

// TransformationRule lists the actions applied to one column, in order.
type TransformationRule struct {
	// Field is the column header the actions apply to.
	Field string `yaml:"field"`

	// Actions are applied in order.
	Actions []TransformationAction `yaml:"actions"`
}

// TransformationAction is a single transformation step.
type TransformationAction struct {
	// Type is the action. See TransformationTypes.
	Type string `yaml:"type"`

	// Value is the parameter of the action:
	//   - "prepend_string", "append_string" : the string to add
	//   - "pad_zeros_to_length"             : the target length
	//   - "replace", "regex_replace"        : the replacement
	//   - "lookup_with_default"             : the fallback value
	//   - "if_empty_use_default"            : the default value
	//   - "if_empty_use_field"              : the other column header
	Value string `yaml:"value"`

	// Find is the substring or pattern for "replace" and "regex_replace".
	Find string `yaml:"find,omitempty"`

	// LookupTable maps input values to output values for the lookup actions.
	LookupTable map[string]string `yaml:"lookup_table,omitempty"`
}

// TransformationTypes are the supported transformation action types.
var TransformationTypes = []string{
	"trim",
	"uppercase",
	"lowercase",
	"title_case",
	"normalize_whitespace",
	"extract_digits",
	"remove_spaces",
	"replace",
	"regex_replace",
	"pad_zeros_to_length",
	"prepend_string",
	"append_string",
	"lookup",
	"lookup_with_default",
	"if_empty_use_default",
	"if_empty_use_field",
}

func isTransformationType(t string) bool {
	for _, known := range TransformationTypes {
		if known == t {
			return true
		}
	}
	return false
}

// =============================================================================
// SOURCE CONFIGURATION LOADING
// =============================================================================

// LoadSourceConfigs loads all source configurations from a directory.
//
// PARAMETERS:
//   - configsDir: The directory containing one YAML file per source.
//
// RETURNS:
//   - The source configurations, ordered by file name so that file matching
//     is deterministic.
//   - An error if the directory cannot be read, any file is invalid, or two
//     sources share a source code.
func LoadSourceConfigs(configsDir string) ([]*SourceConfig, error) {
	files, err := filepath.Glob(filepath.Join(configsDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list config files: %w", err)
	}

	ymlFiles, err := filepath.Glob(filepath.Join(configsDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list config files: %w", err)
	}
	files = append(files, ymlFiles...)
	sort.Strings(files)

	configs := make([]*SourceConfig, 0, len(files))
	seen := make(map[string]string)
	for _, file := range files {
		cfg, err := LoadSourceConfig(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}

		if prev, dup := seen[cfg.SourceCode]; dup {
			return nil, fmt.Errorf("source code %q is defined by both %s and %s", cfg.SourceCode, prev, file)
		}
		seen[cfg.SourceCode] = file

		configs = append(configs, cfg)
	}

	return configs, nil
}

// LoadSourceConfig loads and validates a single source configuration file.
func LoadSourceConfig(filePath string) (*SourceConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var cfg SourceConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}
	cfg.Path = filePath

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset source option.
func (c *SourceConfig) applyDefaults() {
	if c.SourceCode == "" && c.Path != "" {
		base := filepath.Base(c.Path)
		c.SourceCode = strings.ToUpper(strings.TrimSuffix(base, filepath.Ext(base)))
	}
	if c.SourceName == "" {
		c.SourceName = c.SourceCode
	}

	if c.CSVSettings.Delimiter == "" {
		c.CSVSettings.Delimiter = ","
	}
	if c.CSVSettings.HeaderRows == 0 {
		c.CSVSettings.HeaderRows = 1
	}
	if c.CSVSettings.DataStartRow == 0 {
		c.CSVSettings.DataStartRow = c.CSVSettings.HeaderRows + 1
	}
	if c.CSVSettings.Encoding == "" {
		c.CSVSettings.Encoding = "UTF-8"
	}

	if c.XLSXSettings.HeaderRow == 0 {
		c.XLSXSettings.HeaderRow = 1
	}

	c.Columns = c.Columns.withDefaults()

	if len(c.DateLayouts) == 0 {
		c.DateLayouts = types.DefaultDateLayouts
	}
}

// Validate checks a source configuration.
func (c *SourceConfig) Validate() error {
	var errs []error

	if c.SourceCode == "" {
		errs = append(errs, errors.New("source_code is required"))
	}

	if len(c.FileMatchingPatterns) == 0 {
		errs = append(errs, errors.New("file_matching_patterns must list at least one pattern"))
	}
	for _, p := range c.FileMatchingPatterns {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, errors.New("file_matching_patterns contains an empty pattern"))
			continue
		}
		if _, err := filepath.Match(p, ""); err != nil {
			errs = append(errs, fmt.Errorf("file matching pattern %q: %w", p, err))
		}
	}

	if c.CSVSettings.HeaderRows < 1 {
		errs = append(errs, fmt.Errorf("csv_settings.header_rows must be at least 1, got %d", c.CSVSettings.HeaderRows))
	}
	if c.CSVSettings.DataStartRow <= c.CSVSettings.HeaderRows {
		errs = append(errs, fmt.Errorf("csv_settings.data_start_row %d must come after the %d header row(s)",
			c.CSVSettings.DataStartRow, c.CSVSettings.HeaderRows))
	}
	if c.XLSXSettings.HeaderRow < 1 {
		errs = append(errs, fmt.Errorf("xlsx_settings.header_row must be at least 1, got %d", c.XLSXSettings.HeaderRow))
	}

	for i, rule := range c.TransformationRules {
		if rule.Field == "" {
			errs = append(errs, fmt.Errorf("transformation rule %d: field is required", i+1))
		}
		for j, action := range rule.Actions {
			if err := validateAction(action); err != nil {
				errs = append(errs, fmt.Errorf("transformation rule %d (%s) action %d: %w", i+1, rule.Field, j+1, err))
			}
		}
	}

	return errors.Join(errs...)
}

// validateAction checks that an action is known and carries its parameters.
func validateAction(a TransformationAction) error {
	if !isTransformationType(a.Type) {
		return fmt.Errorf("unknown transformation type %q", a.Type)
	}

	switch a.Type {
	case "pad_zeros_to_length":
		if n, err := strconv.Atoi(a.Value); err != nil || n < 1 {
			return fmt.Errorf("pad_zeros_to_length needs a positive length, got %q", a.Value)
		}
	case "replace":
		if a.Find == "" {
			return errors.New("replace needs a find string")
		}
	case "regex_replace":
		if a.Find == "" {
			return errors.New("regex_replace needs a find pattern")
		}
		if _, err := regexp.Compile(a.Find); err != nil {
			return fmt.Errorf("invalid regex %q: %w", a.Find, err)
		}
	case "lookup", "lookup_with_default":
		if len(a.LookupTable) == 0 {
			return fmt.Errorf("%s needs a lookup_table", a.Type)
		}
	case "if_empty_use_field":
		if a.Value == "" {
			return errors.New("if_empty_use_field needs a field name")
		}
	}
	return nil
}

// Matches reports whether the base name of filePath matches one of the
// source's file patterns. Matching is case-insensitive.
func (c *SourceConfig) Matches(filePath string) bool {
	name := strings.ToLower(filepath.Base(filePath))
	for _, p := range c.FileMatchingPatterns {
		if ok, _ := filepath.Match(strings.ToLower(p), name); ok {
			return true
		}
	}
	return false
}
