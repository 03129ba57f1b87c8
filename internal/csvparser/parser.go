// =============================================================================
// Depot View - CSV Parser Module
// =============================================================================
//
// This module parses delimited job exports into a types.Table. It handles:
//   - Different delimiters (comma, pipe, tab, semicolon)
//   - Multi-line headers
//   - Custom data start rows
//   - Non UTF-8 encodings (UTF-16, ISO-8859-1, Windows-1252, any IANA name)
//   - A leading byte order mark
//
// Row numbers in the returned table are 1-based record numbers in the file,
// so validation messages can point at the offending line of a spreadsheet
// export.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/depotview/internal/config"
	"github.com/ginjaninja78/depotview/internal/types"
)

// ErrEmptyFile is returned when a file has no records at all.
var ErrEmptyFile = errors.New("CSV file is empty")

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV file and returns the parsed table.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: The CSV parsing settings from the source configuration.
//
// RETURNS:
//   - The parsed table.
//   - An error if the file cannot be read or parsed.
func Parse(filePath string, settings config.CSVSettings) (*types.Table, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return ParseReader(file, filePath, settings)
}

// ParseReader parses CSV data from r. name is recorded as the table source.
//
// PARSING PROCESS:
//  1. Decode the configured encoding to UTF-8, dropping any byte order mark
//  2. Configure the CSV reader with the configured delimiter
//  3. Read and merge header rows (for multi-line headers)
//  4. Read data rows starting from the configured data start row
//  5. Convert each non-empty row to a map of header -> value
func ParseReader(r io.Reader, name string, settings config.CSVSettings) (*types.Table, error) {
	decoded, err := decode(bufio.NewReader(r), settings.Encoding)
	if err != nil {
		return nil, err
	}

	csvReader := csv.NewReader(decoded)
	configureReader(csvReader, settings)

	allRows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	if len(allRows) == 0 {
		return nil, ErrEmptyFile
	}

	headers, err := extractHeaders(allRows, settings.HeaderRows)
	if err != nil {
		return nil, fmt.Errorf("failed to extract headers: %w", err)
	}

	return &types.Table{
		Source:  name,
		Headers: headers,
		Rows:    extractDataRows(allRows, headers, settings),
	}, nil
}

// decode wraps r so that it yields UTF-8.
func decode(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(encoding), "_", "-")) {
	case "", "utf-8", "utf8":
		// BOMOverride also switches to UTF-16 when the file starts with a
		// UTF-16 byte order mark.
		return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())), nil
	case "utf-16", "utf16", "utf-16le":
		return transform.NewReader(r, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()), nil
	case "utf-16be":
		return transform.NewReader(r, unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()), nil
	}

	enc, err := ianaindex.IANA.Encoding(encoding)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	reader.Comma = delimiter(settings.Delimiter)

	// Exports frequently have ragged trailing columns.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = settings.LazyQuotes
	reader.TrimLeadingSpace = true
}

// delimiter resolves a configured delimiter, including its aliases.
func delimiter(value string) rune {
	switch value {
	case "\\t", "\t", "tab", "TAB":
		return '\t'
	case "|", "pipe", "PIPE":
		return '|'
	case ";", "semicolon":
		return ';'
	case "", ",", "comma":
		return ','
	default:
		for _, r := range value {
			return r
		}
		return ','
	}
}

// extractHeaders merges the first headerRows records into one header row.
//
// MULTI-LINE HEADER HANDLING:
//
//	Row 1: "Carrier", "",     "Disposal", ""
//	Row 2: "Name",    "Id",   "Depot",    "Date"
//	Result: "Carrier Name", "Id", "Disposal Depot", "Date"
func extractHeaders(allRows [][]string, headerRows int) ([]string, error) {
	if headerRows <= 0 {
		return nil, fmt.Errorf("header_rows must be at least 1")
	}

	if len(allRows) < headerRows {
		return nil, fmt.Errorf("file has fewer rows than header_rows setting")
	}

	if headerRows == 1 {
		return cleanHeaders(allRows[0]), nil
	}

	maxCols := 0
	for i := 0; i < headerRows; i++ {
		maxCols = max(maxCols, len(allRows[i]))
	}

	headers := make([]string, maxCols)
	for col := 0; col < maxCols; col++ {
		var parts []string
		for row := 0; row < headerRows; row++ {
			if col < len(allRows[row]) {
				if value := strings.TrimSpace(allRows[row][col]); value != "" {
					parts = append(parts, value)
				}
			}
		}
		headers[col] = strings.Join(parts, " ")
	}

	return cleanHeaders(headers), nil
}

// cleanHeaders trims headers, names empty ones after their column and makes
// duplicates unique by suffixing their column number.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	seen := make(map[string]bool, len(headers))

	for i, header := range headers {
		header = strings.TrimSpace(header)

		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		if seen[header] {
			header = fmt.Sprintf("%s_%d", header, i+1)
		}
		seen[header] = true

		cleaned[i] = header
	}

	return cleaned
}

// extractDataRows converts the records from the data start row on into
// table rows. Empty records are skipped.
func extractDataRows(allRows [][]string, headers []string, settings config.CSVSettings) []types.Row {
	startIndex := settings.DataStartRow - 1
	if startIndex < settings.HeaderRows {
		startIndex = settings.HeaderRows
	}

	if startIndex >= len(allRows) {
		return []types.Row{}
	}

	dataRows := make([]types.Row, 0, len(allRows)-startIndex)

	for rowIndex := startIndex; rowIndex < len(allRows); rowIndex++ {
		row := allRows[rowIndex]

		if isRowEmpty(row) {
			continue
		}

		fields := make(map[string]string, len(headers))
		for colIndex, header := range headers {
			if colIndex < len(row) {
				fields[header] = strings.TrimSpace(row[colIndex])
			} else {
				fields[header] = ""
			}
		}

		dataRows = append(dataRows, types.Row{Number: rowIndex + 1, Fields: fields})
	}

	return dataRows
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
