package xlsxparser

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/depotview/internal/config"
)

// newWorkbook builds a workbook whose first sheet is named sheet and holds rows.
func newWorkbook(t *testing.T, sheet string, rows [][]any) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	t.Cleanup(func() { f.Close() })

	require.NoError(t, f.SetSheetName("Sheet1", sheet))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	return f
}

func TestParse_FirstSheet(t *testing.T) {
	f := newWorkbook(t, "Jobs", [][]any{
		{"supplierName", "depotDispose", "", "ewcCode"},
		{"Acme", " North ", "x", "200101"},
		{},
		{"Bolt", "South"},
	})
	path := filepath.Join(t.TempDir(), "jobs.xlsx")
	require.NoError(t, f.SaveAs(path))

	table, err := Parse(path, config.XLSXSettings{HeaderRow: 1})
	require.NoError(t, err)

	assert.Equal(t, path, table.Source)
	assert.Equal(t, []string{"supplierName", "depotDispose", "Column_C", "ewcCode"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, 2, table.Rows[0].Number)
	assert.Equal(t, "North", table.Rows[0].Fields["depotDispose"])
	assert.Equal(t, 4, table.Rows[1].Number)
	assert.Equal(t, "", table.Rows[1].Fields["ewcCode"])
}

func TestParseReader_NamedSheetAndHeaderRow(t *testing.T) {
	f := newWorkbook(t, "_notes", [][]any{{"ignore me"}})
	_, err := f.NewSheet("Export")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Export", "A1", &[]any{"Job export", "May"}))
	require.NoError(t, f.SetSheetRow("Export", "A2", &[]any{"supplierName", "ewcCode"}))
	require.NoError(t, f.SetSheetRow("Export", "A3", &[]any{"Acme", 170101}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	table, err := ParseReader(&buf, "upload.xlsx", config.XLSXSettings{SheetName: "export", HeaderRow: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"supplierName", "ewcCode"}, table.Headers)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "170101", table.Rows[0].Fields["ewcCode"])
	assert.Equal(t, 3, table.Rows[0].Number)
}

func TestParseReader_DefaultSkipsUnderscoreSheets(t *testing.T) {
	f := newWorkbook(t, "_meta", [][]any{{"x"}})
	_, err := f.NewSheet("Jobs")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Jobs", "A1", &[]any{"supplierName"}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	table, err := ParseReader(&buf, "x.xlsx", config.XLSXSettings{HeaderRow: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"supplierName"}, table.Headers)
}

func TestParseReader_Errors(t *testing.T) {
	f := newWorkbook(t, "Jobs", [][]any{{"supplierName"}})
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	data := buf.Bytes()

	_, err := ParseReader(bytes.NewReader(data), "x.xlsx", config.XLSXSettings{SheetName: "Missing", HeaderRow: 1})
	assert.ErrorContains(t, err, "sheet 'Missing' not found")

	_, err = ParseReader(bytes.NewReader(data), "x.xlsx", config.XLSXSettings{HeaderRow: 5})
	assert.ErrorContains(t, err, "no header row 5")

	_, err = ParseReader(bytes.NewReader([]byte("not a workbook")), "x.xlsx", config.XLSXSettings{})
	assert.ErrorContains(t, err, "failed to open workbook")
}
