package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/depotview/internal/hierarchy"
	"github.com/ginjaninja78/depotview/internal/types"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMainConfig_Defaults(t *testing.T) {
	cfg, err := LoadMainConfig("")
	require.NoError(t, err)

	assert.Equal(t, "./input", cfg.InputDir)
	assert.Equal(t, "./configs", cfg.ConfigsDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "{source}_{timestamp}_{uuid}", cfg.OutputNameFormat)
	assert.Equal(t, []string{"xml", "xlsx"}, cfg.OutputFormats)
	assert.Equal(t, types.SortSpec{Field: "collectionDate", Direction: "desc"}, cfg.Sort)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.True(t, cfg.ContinueOnError)
	assert.True(t, cfg.XML.IncludeJobs)

	opts, err := cfg.HierarchyOptions()
	require.NoError(t, err)
	assert.Equal(t, hierarchy.Options{KeyOrder: hierarchy.InsertionOrder}, opts)
}

func TestLoadMainConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
input_dir: /data/in
output_formats: [xml]
max_concurrency: 2
sort:
  field: supplierName
  direction: asc
hierarchy:
  key_order: integer_first
  rollup_service_range: true
`)
	t.Setenv("DEPOTVIEW_MAX_CONCURRENCY", "8")
	t.Setenv("DEPOTVIEW_SORT_DIRECTION", "desc")

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/in", cfg.InputDir)
	assert.Equal(t, []string{"xml"}, cfg.OutputFormats)
	assert.Equal(t, 8, cfg.MaxConcurrency)
	assert.Equal(t, types.SortSpec{Field: "supplierName", Direction: "desc"}, cfg.Sort)
	assert.True(t, cfg.WantsFormat("XML"))
	assert.False(t, cfg.WantsFormat("xlsx"))

	opts, err := cfg.HierarchyOptions()
	require.NoError(t, err)
	assert.Equal(t, hierarchy.IntegerKeysFirst, opts.KeyOrder)
	assert.True(t, opts.RollupServiceRange)
}

func TestLoadMainConfig_MissingFile(t *testing.T) {
	_, err := LoadMainConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestMainConfig_Validate(t *testing.T) {
	cfg, err := LoadMainConfig("")
	require.NoError(t, err)

	cfg.OutputFormats = []string{"pdf"}
	cfg.MaxConcurrency = 0
	cfg.Hierarchy.KeyOrder = "random"
	cfg.LogFormat = "xml"

	err = cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, `output format "pdf"`)
	assert.ErrorContains(t, err, "max_concurrency")
	assert.ErrorContains(t, err, "hierarchy.key_order")
	assert.ErrorContains(t, err, "log_format")
}

func TestLoadSourceConfig_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "portal.yaml", `
file_matching_patterns: ["portal_*.csv"]
columns:
  supplier_name: Carrier
`)

	cfg, err := LoadSourceConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "PORTAL", cfg.SourceCode)
	assert.Equal(t, "PORTAL", cfg.SourceName)
	assert.Equal(t, ",", cfg.CSVSettings.Delimiter)
	assert.Equal(t, 2, cfg.CSVSettings.DataStartRow)
	assert.Equal(t, 1, cfg.XLSXSettings.HeaderRow)
	assert.Equal(t, "Carrier", cfg.Columns.SupplierName)
	assert.Equal(t, "ewcCode", cfg.Columns.EWCCode)
	assert.Equal(t, []string{"Carrier", "depotDispose", "wasteType", "ewcCode"}, cfg.Columns.GroupingColumns())
	assert.Equal(t, types.DefaultDateLayouts, cfg.DateLayouts)
	assert.Nil(t, cfg.Sort)
	assert.Equal(t, path, cfg.Path)
}

func TestLoadSourceConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.yaml", `
source_code: BAD
file_matching_patterns: ["[unclosed"]
csv_settings:
  header_rows: 2
  data_start_row: 2
transformation_rules:
  - field: EWC
    actions:
      - type: explode
      - type: regex_replace
        find: "("
      - type: pad_zeros_to_length
        value: "abc"
`)

	_, err := LoadSourceConfig(path)
	require.Error(t, err)
	assert.ErrorContains(t, err, "file matching pattern")
	assert.ErrorContains(t, err, "data_start_row")
	assert.ErrorContains(t, err, `unknown transformation type "explode"`)
	assert.ErrorContains(t, err, "invalid regex")
	assert.ErrorContains(t, err, "pad_zeros_to_length")
}

func TestLoadSourceConfigs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.yml", "source_code: B\nfile_matching_patterns: [\"b_*\"]\n")
	writeFile(t, dir, "a.yaml", "source_code: A\nfile_matching_patterns: [\"a_*\"]\nsort:\n  field: wasteType\n  direction: asc\n")
	writeFile(t, dir, "notes.txt", "ignored")

	configs, err := LoadSourceConfigs(dir)
	require.NoError(t, err)
	require.Len(t, configs, 2)
	assert.Equal(t, "A", configs[0].SourceCode)
	assert.Equal(t, "B", configs[1].SourceCode)
	require.NotNil(t, configs[0].Sort)
	assert.Equal(t, "wasteType", configs[0].Sort.Field)
}

func TestLoadSourceConfigs_DuplicateCode(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.yaml", "source_code: X\nfile_matching_patterns: [\"x_*\"]\n")
	writeFile(t, dir, "two.yaml", "source_code: X\nfile_matching_patterns: [\"y_*\"]\n")

	_, err := LoadSourceConfigs(dir)
	assert.ErrorContains(t, err, `source code "X"`)
}

func TestSourceConfig_Matches(t *testing.T) {
	cfg := &SourceConfig{FileMatchingPatterns: []string{"portal_jobs_*.csv", "*.xlsx"}}
	assert.True(t, cfg.Matches("/in/portal_jobs_2024.csv"))
	assert.True(t, cfg.Matches("PORTAL_JOBS_2024.CSV"))
	assert.True(t, cfg.Matches("carrier.xlsx"))
	assert.False(t, cfg.Matches("portal_jobs_2024.txt"))
}
