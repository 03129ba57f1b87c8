// =============================================================================
// Depot View - XLSX Job Sheet Parser
// =============================================================================
//
// This module reads job exports saved as XLSX workbooks. Carriers often send
// their job lists as spreadsheets rather than portal CSV exports; the sheet
// is read into the same types.Table the CSV parser produces, so everything
// downstream is format independent.
//
// SHEET LAYOUT:
//
//   | Row 1 (header_row) | supplierName | depotDispose | wasteType | ewcCode | ...
//   | Row 2              | Acme Skips   | North Depot  | Glass     | 200102  | ...
//
// Cells are read as displayed in Excel. Date cells therefore arrive in the
// cell's number format; add that format to the source's date_layouts
// (e.g. "01-02-06" for Excel's default short date).
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/depotview/internal/config"
	"github.com/ginjaninja78/depotview/internal/types"
)

// Parse reads the job sheet of an XLSX workbook.
//
// PARAMETERS:
//   - filePath: The path to the XLSX file.
//   - settings: The XLSX settings from the source configuration.
//
// RETURNS:
//   - The parsed table.
//   - An error if the workbook cannot be opened or the sheet is missing.
func Parse(filePath string, settings config.XLSXSettings) (*types.Table, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return parseWorkbook(f, filePath, settings)
}

// ParseReader reads the job sheet of an XLSX workbook from r.
func ParseReader(r io.Reader, name string, settings config.XLSXSettings) (*types.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return parseWorkbook(f, name, settings)
}

// parseWorkbook reads the configured sheet of an open workbook.
func parseWorkbook(f *excelize.File, name string, settings config.XLSXSettings) (*types.Table, error) {
	sheetName, err := selectSheet(f, settings.SheetName)
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of sheet '%s': %w", sheetName, err)
	}

	headerRow := settings.HeaderRow
	if headerRow < 1 {
		headerRow = 1
	}
	if len(rows) < headerRow {
		return nil, fmt.Errorf("sheet '%s' has no header row %d", sheetName, headerRow)
	}

	headers := cleanHeaders(rows[headerRow-1])
	table := &types.Table{
		Source:  name,
		Headers: headers,
		Rows:    make([]types.Row, 0, len(rows)-headerRow),
	}

	for i := headerRow; i < len(rows); i++ {
		row := rows[i]

		if len(row) == 0 || isRowEmpty(row) {
			continue
		}

		fields := make(map[string]string, len(headers))
		for col, header := range headers {
			if col < len(row) {
				fields[header] = strings.TrimSpace(row[col])
			} else {
				fields[header] = ""
			}
		}

		table.Rows = append(table.Rows, types.Row{Number: i + 1, Fields: fields})
	}

	return table, nil
}

// selectSheet returns the named sheet, or the first sheet whose name does not
// start with "_" when name is empty.
func selectSheet(f *excelize.File, name string) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}

	if name != "" {
		for _, s := range sheets {
			if strings.EqualFold(s, name) {
				return s, nil
			}
		}
		return "", fmt.Errorf("sheet '%s' not found (available: %s)", name, strings.Join(sheets, ", "))
	}

	for _, s := range sheets {
		if !strings.HasPrefix(s, "_") {
			return s, nil
		}
	}
	return sheets[0], nil
}

// cleanHeaders trims headers and names empty ones after their column letter.
func cleanHeaders(row []string) []string {
	headers := make([]string, len(row))
	seen := make(map[string]bool, len(row))

	for i, h := range row {
		h = strings.TrimSpace(h)
		if h == "" {
			col, err := excelize.ColumnNumberToName(i + 1)
			if err != nil {
				col = fmt.Sprint(i + 1)
			}
			h = "Column_" + col
		}
		if seen[h] {
			h = fmt.Sprintf("%s_%d", h, i+1)
		}
		seen[h] = true
		headers[i] = h
	}

	return headers
}

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
