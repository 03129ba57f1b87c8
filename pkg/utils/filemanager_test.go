package utils

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *FileManager {
	t.Helper()
	root := t.TempDir()
	fm := NewFileManager(
		filepath.Join(root, "input"),
		filepath.Join(root, "output"),
		filepath.Join(root, "input_archive"),
		filepath.Join(root, "output_archive"),
	)
	fm.now = func() time.Time { return time.Date(2024, 1, 15, 14, 30, 22, 0, time.UTC) }
	require.NoError(t, fm.EnsureDirectories())
	return fm
}

func touch(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDiscoverInputFiles(t *testing.T) {
	fm := newTestManager(t)
	touch(t, filepath.Join(fm.InputDir, "b.csv"), "")
	touch(t, filepath.Join(fm.InputDir, "a.xlsx"), "")
	touch(t, filepath.Join(fm.InputDir, "notes.md"), "")
	require.NoError(t, os.Mkdir(filepath.Join(fm.InputDir, "dir.csv"), 0o755))

	files, err := fm.DiscoverInputFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(fm.InputDir, "a.xlsx"),
		filepath.Join(fm.InputDir, "b.csv"),
	}, files)

	files, err = fm.DiscoverInputFiles("*.csv", "b.*")
	require.NoError(t, err)
	assert.Len(t, files, 1, "duplicates across patterns are dropped")

	_, err = fm.DiscoverInputFiles("[")
	assert.Error(t, err)
}

func TestArchiveInputFile(t *testing.T) {
	fm := newTestManager(t)
	fm.UseTimestampSubdirs = true

	src := filepath.Join(fm.InputDir, "jobs.csv")
	touch(t, src, "first")

	archived, err := fm.ArchiveInputFile(src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.InputArchiveDir, "2024", "01", "15", "jobs.csv"), archived)
	assert.NoFileExists(t, src)

	touch(t, src, "second")
	again, err := fm.ArchiveInputFile(src)
	require.NoError(t, err)
	assert.NotEqual(t, archived, again, "an existing archive is never overwritten")

	data, err := os.ReadFile(archived)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
}

func TestArchiveOutputFile(t *testing.T) {
	fm := newTestManager(t)
	out := filepath.Join(fm.OutputDir, "report.xml")
	touch(t, out, "<depotView/>")

	archived, err := fm.ArchiveOutputFile(out)
	require.NoError(t, err)
	assert.FileExists(t, out)
	assert.FileExists(t, archived)

	fm.ArchiveOnSuccess = false
	same, err := fm.ArchiveOutputFile(out)
	require.NoError(t, err)
	assert.Equal(t, out, same)
}

func TestLock(t *testing.T) {
	fm := newTestManager(t)
	lockPath := filepath.Join(t.TempDir(), "run", "depotview.lock")

	unlock, err := fm.Lock(lockPath)
	require.NoError(t, err)

	_, err = fm.Lock(lockPath)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, unlock())

	unlock, err = fm.Lock(lockPath)
	require.NoError(t, err)
	require.NoError(t, unlock())
}

func TestGenerateOutputFileName(t *testing.T) {
	name := GenerateOutputFileName("{source}_{input}_{timestamp}_{uuid}", "xlsx", map[string]string{
		"source": "PORTAL",
		"input":  "may/jobs",
	})

	pattern := regexp.MustCompile(`^PORTAL_may_jobs_\d{8}_\d{6}_[0-9a-f-]{36}\.xlsx$`)
	assert.Regexp(t, pattern, name)

	assert.Equal(t, "fixed.xml", GenerateOutputFileName("fixed.xml", ".xml", nil))
}

func TestGenerateOutputFileName_ParamValuesAreNotExpanded(t *testing.T) {
	for i := 0; i < 20; i++ {
		name := GenerateOutputFileName("{source}_{date}", "", map[string]string{
			"source": "{uuid}",
			"label":  "x",
		})
		assert.Regexp(t, `^\{uuid\}_\d{8}$`, name)
	}
}

func TestWriteSummaryLog(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)

	path, err := WriteSummaryLog(ProcessingSummary{
		RunID:           "run-1",
		StartTime:       start,
		EndTime:         start.Add(3 * time.Second),
		TotalFiles:      2,
		SuccessfulFiles: 1,
		FailedFiles:     1,
		TotalJobs:       12,
		ProcessedFiles: []ProcessedFileInfo{{
			InputFile:   "portal.csv",
			Source:      "PORTAL",
			OutputFiles: []string{"a.xml", "a.xlsx"},
			Jobs:        12,
		}},
		FailedFilesList: []FailedFileInfo{{InputFile: "bad.csv", ErrorMessage: "boom"}},
	}, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "aggregation_summary_20240115_143003.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "Run ID:         run-1")
	assert.Contains(t, text, "Total Jobs:          12")
	assert.Equal(t, 2, strings.Count(text, "Output:"))
	assert.Contains(t, text, "Error: boom")
}
