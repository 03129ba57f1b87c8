package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJobs = `supplierId,supplierName,depotDisposeId,depotDispose,wasteType,ewcCode,deliveryDate,collectionDate,licenseNumber,licenseExpiry
1,Acme,9,North,Glass,200102,2024-03-05,2024-03-06,L1,2030-01-01
1,Acme,9,North,Glass,200102,2024-01-10,2024-01-11,L1,2030-01-01
2,Binco,8,South,Paper,200101,2024-02-01,2024-02-02,L2,2030-01-01
`

// workspace lays out a config file, a source config and one job export.
func workspace(t *testing.T) (dir, cfgPath string) {
	t.Helper()
	dir = t.TempDir()

	for _, sub := range []string{"input", "configs"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, sub), 0o755))
	}

	cfg := fmt.Sprintf(`input_dir: %[1]s/input
output_dir: %[1]s/output
input_archive_dir: %[1]s/input_archive
output_archive_dir: %[1]s/output_archive
configs_dir: %[1]s/configs
lock_file: %[1]s/run.lock
archive_timestamp_subdirs: false
log_level: error
`, filepath.ToSlash(dir))
	cfgPath = filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "configs", "portal.yaml"), []byte(`source_code: PORTAL
file_matching_patterns: ["portal_*.csv"]
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "input", "portal_may.csv"), []byte(testJobs), 0o644))

	return dir, cfgPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	dryRun, filePath, sourceCode, sortBy, direction, formats, showJobs = false, "", "", "", "desc", nil, false
	schemaOutput = ""
	for _, c := range rootCmd.Commands() {
		c.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version:    "+Version)
}

func TestAggregate_DryRun(t *testing.T) {
	dir, cfg := workspace(t)

	out, err := execute(t, "--config", cfg, "aggregate", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ portal_may.csv")
	assert.Contains(t, out, "(3 jobs, 2 suppliers)")
	assert.FileExists(t, filepath.Join(dir, "input", "portal_may.csv"))
	assert.NoDirExists(t, filepath.Join(dir, "output"))
}

func TestAggregate(t *testing.T) {
	dir, cfg := workspace(t)

	out, err := execute(t, "--config", cfg, "process", "--format", "xml")
	require.NoError(t, err)
	assert.Contains(t, out, "Successful:      1")

	reports, err := filepath.Glob(filepath.Join(dir, "output", "PORTAL_*.xml"))
	require.NoError(t, err)
	assert.Len(t, reports, 1)

	summaries, err := filepath.Glob(filepath.Join(dir, "output", "aggregation_summary_*.txt"))
	require.NoError(t, err)
	assert.Len(t, summaries, 1)

	assert.FileExists(t, filepath.Join(dir, "input_archive", "portal_may.csv"))
	assert.NoFileExists(t, filepath.Join(dir, "input", "portal_may.csv"))
}

func TestAggregate_UnmatchedFile(t *testing.T) {
	dir, cfg := workspace(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "input", "other.csv"), []byte(testJobs), 0o644))

	out, err := execute(t, "--config", cfg, "aggregate", "--dry-run")
	assert.ErrorContains(t, err, "1 of 2 file(s) failed")
	assert.Contains(t, out, "✗ other.csv")
}

func TestAggregate_BadDirection(t *testing.T) {
	_, cfg := workspace(t)

	_, err := execute(t, "--config", cfg, "aggregate", "--direction", "sideways")
	assert.ErrorContains(t, err, "--direction")
}

func TestShow(t *testing.T) {
	dir, cfg := workspace(t)

	out, err := execute(t, "--config", cfg, "show", filepath.Join(dir, "input", "portal_may.csv"), "--sort-by", "supplierName", "--direction", "asc")
	require.NoError(t, err)
	assert.Contains(t, out, "Acme")
	assert.Contains(t, out, "2024-01-10 → 2024-03-05")
	assert.Contains(t, out, "2 supplier(s), 2 EWC group(s), 3 job(s)")
}

func TestValidate(t *testing.T) {
	dir, cfg := workspace(t)

	out, err := execute(t, "--config", cfg, "validate", filepath.Join(dir, "input", "portal_may.csv"))
	require.NoError(t, err)
	assert.Contains(t, out, "PORTAL")
	assert.Contains(t, out, "3 row(s) checked")
	assert.Contains(t, out, "No validation errors.")
}

func TestSchema(t *testing.T) {
	_, cfg := workspace(t)

	out, err := execute(t, "--config", cfg, "schema")
	require.NoError(t, err)
	assert.Contains(t, out, `<xs:element name="depotView">`)
}
