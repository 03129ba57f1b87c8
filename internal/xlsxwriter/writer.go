// =============================================================================
// Depot View - XLSX Report Writer
// =============================================================================
//
// This module renders an aggregated supplier tree as a spreadsheet table with
// one row per EWC code group.
//
// LAYOUT:
//   | Supplier | Licence | Expiry | Depot | Waste Type | EWC | First | Last | Jobs |
//   |----------|---------|--------|-------|------------|-----|-------|------|------|
//   | A        | L1      | ...    | D1    | W1         | 01  | ...   | ...  | 2    |
//   |  (merged over span 2)      |  (2)  | W2         | 02  |       |      | 1    |
//
// Supplier, licence, depot and waste type cells are merged vertically over the
// Span of their group, so the sheet reads like the nested report.
//
// =============================================================================

package xlsxwriter

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/depotview/internal/hierarchy"
)

// Options contains options for building the report.
type Options struct {
	// SheetName is the name of the report sheet.
	// Default: "Depot View"
	SheetName string

	// DateFormat is the layout dates are written with.
	// Default: "2006-01-02"
	DateFormat string

	// LinkBaseURL, when set, turns supplier and depot cells into hyperlinks
	// to LinkBaseURL + group link.
	LinkBaseURL string
}

// Headers are the column titles of the report, left to right.
var Headers = []string{
	"Supplier",
	"Licence Number",
	"Licence Expiry",
	"Depot",
	"Waste Type",
	"EWC Code",
	"First Service",
	"Last Service",
	"Jobs",
}

// Column letters of the merged columns.
const (
	colSupplier  = "A"
	colLicence   = "B"
	colExpiry    = "C"
	colDepot     = "D"
	colWasteType = "E"
)

func (o Options) withDefaults() Options {
	if o.SheetName == "" {
		o.SheetName = "Depot View"
	}
	if o.DateFormat == "" {
		o.DateFormat = "2006-01-02"
	}
	return o
}

// Build lays the groups out on a new workbook.
//
// RETURNS:
//   - The workbook; the caller closes it.
//   - An error if a cell cannot be written.
func Build(groups []hierarchy.SupplierGroup, opts Options) (*excelize.File, error) {
	opts = opts.withDefaults()

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), opts.SheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := writeSheet(f, opts.SheetName, groups, opts); err != nil {
		f.Close()
		return nil, err
	}

	return f, nil
}

// Write builds the report and saves it to path.
func Write(groups []hierarchy.SupplierGroup, path string, opts Options) error {
	f, err := Build(groups, opts)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save XLSX report: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, groups []hierarchy.SupplierGroup, opts Options) error {
	header := make([]interface{}, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9E1F2"}},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(Headers))
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("failed to style header row: %w", err)
	}

	groupStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	if err != nil {
		return fmt.Errorf("failed to create group style: %w", err)
	}

	// Merges are applied once every value is in place: excelize routes a
	// write inside a merged range to its top-left cell.
	var merges []groupCell
	var links []groupCell

	rows := hierarchy.Rows(groups)
	for i, row := range rows {
		r := i + 2
		values := []interface{}{
			row.Supplier.SupplierName,
			row.Supplier.LicenseNumber,
			formatDate(row.Supplier.LicenseExpiry, opts.DateFormat),
			row.Depot.DepotDispose,
			row.WasteType.WasteType,
			row.EwcCode.EwcCode,
			formatDate(row.EwcCode.FirstService, opts.DateFormat),
			formatDate(row.EwcCode.LastService, opts.DateFormat),
			len(row.EwcCode.Jobs),
		}

		// Cells covered by a merge keep no value of their own.
		if !row.FirstOfSupplier {
			values[0], values[1], values[2] = nil, nil, nil
		}
		if !row.FirstOfDepot {
			values[3] = nil
		}
		if !row.FirstOfWasteType {
			values[4] = nil
		}

		for c, v := range values {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("failed to write %s: %w", cell, err)
			}
		}

		if row.FirstOfSupplier {
			for _, col := range []string{colSupplier, colLicence, colExpiry} {
				merges = append(merges, groupCell{col: col, row: r, rows: row.Supplier.Span})
			}
			links = append(links, groupCell{col: colSupplier, row: r, link: row.Supplier.Link})
		}
		if row.FirstOfDepot {
			merges = append(merges, groupCell{col: colDepot, row: r, rows: row.Depot.Span})
			links = append(links, groupCell{col: colDepot, row: r, link: row.Depot.Link})
		}
		if row.FirstOfWasteType {
			merges = append(merges, groupCell{col: colWasteType, row: r, rows: row.WasteType.Span})
		}
	}

	for _, m := range merges {
		if err := merge(f, sheet, m.col, m.row, m.rows, groupStyle); err != nil {
			return err
		}
	}
	for _, l := range links {
		if err := hyperlink(f, sheet, l.col, l.row, opts.LinkBaseURL, l.link); err != nil {
			return err
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header row: %w", err)
	}

	if err := f.SetColWidth(sheet, colSupplier, colWasteType, 24); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	return nil
}

// groupCell is a group label cell: its column, first row and height.
type groupCell struct {
	col  string
	row  int
	rows int
	link string
}

// merge merges col over span rows starting at row r.
func merge(f *excelize.File, sheet, col string, r, span, style int) error {
	top := fmt.Sprintf("%s%d", col, r)
	bottom := fmt.Sprintf("%s%d", col, r+max(span, 1)-1)

	if err := f.SetCellStyle(sheet, top, bottom, style); err != nil {
		return fmt.Errorf("failed to style %s: %w", top, err)
	}
	if span <= 1 {
		return nil
	}
	if err := f.MergeCell(sheet, top, bottom); err != nil {
		return fmt.Errorf("failed to merge %s:%s: %w", top, bottom, err)
	}
	return nil
}

func hyperlink(f *excelize.File, sheet, col string, r int, base, link string) error {
	if base == "" || link == "" {
		return nil
	}
	cell := fmt.Sprintf("%s%d", col, r)
	if err := f.SetCellHyperLink(sheet, cell, base+link, "External"); err != nil {
		return fmt.Errorf("failed to link %s: %w", cell, err)
	}
	return nil
}

func formatDate(t *time.Time, layout string) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(layout)
}
