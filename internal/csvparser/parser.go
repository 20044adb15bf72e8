// =============================================================================
// Workbook Merger - CSV Source Parser
// =============================================================================
//
// This module turns a CSV file into a single-sheet source workbook so that
// CSV exports can be merged next to regular workbooks.
//
// CONVERSION RULES:
//   - Every record becomes a row, starting at A1 (no header handling).
//   - Fields that parse as numbers become numeric cells, the way a
//     spreadsheet would read them. Fields with leading zeros ("0042") stay
//     text.
//   - TRUE/FALSE (any case) become boolean cells.
//   - Everything else is text.
//
// DELIMITER:
//   Comma by default. When the first line contains no comma but does contain
//   a semicolon, tab or pipe, that character is used instead.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/workbook-merger/internal/types"
)

// SheetName is the source sheet name given to the single sheet of a CSV file.
const SheetName = "Sheet1"

// utf8BOM is stripped from the start of the file when present.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV file into a single-sheet SourceWorkbook.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//
// RETURNS:
//   - A workbook holding exactly one sheet named SheetName.
//   - An error if the file cannot be read or is not valid CSV.
func Parse(filePath string) (*types.SourceWorkbook, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	snapshot, err := ParseReader(file)
	if err != nil {
		return nil, err
	}

	return &types.SourceWorkbook{
		Path: filePath,
		Sheets: []types.SourceSheet{
			{Name: SheetName, Index: 0, Snapshot: snapshot},
		},
	}, nil
}

// ParseReader converts CSV content into a sheet snapshot.
func ParseReader(r io.Reader) (*types.SheetSnapshot, error) {
	reader := bufio.NewReader(r)

	if head, err := reader.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		if _, err := reader.Discard(len(utf8BOM)); err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
	}

	csvReader := csv.NewReader(reader)
	configureReader(csvReader, detectDelimiter(reader))

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	return buildSnapshot(records), nil
}

// configureReader applies the parsing options shared by every CSV source.
func configureReader(reader *csv.Reader, delimiter rune) {
	reader.Comma = delimiter

	// Allow a variable number of fields per row.
	reader.FieldsPerRecord = -1

	// Exports from older tools quote loosely.
	reader.LazyQuotes = true
}

// detectDelimiter peeks at the first line and picks the delimiter.
func detectDelimiter(reader *bufio.Reader) rune {
	// Peek returns what it has along with an error when the input is short.
	head, _ := reader.Peek(4096)
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}

	if bytes.ContainsRune(head, ',') {
		return ','
	}
	for _, candidate := range []rune{';', '\t', '|'} {
		if bytes.ContainsRune(head, candidate) {
			return candidate
		}
	}
	return ','
}

// buildSnapshot lays records out from A1 and types each field.
func buildSnapshot(records [][]string) *types.SheetSnapshot {
	snapshot := &types.SheetSnapshot{
		Styles:    make(map[int]*excelize.Style),
		ColWidths: make(map[int]float64),
	}

	for r, record := range records {
		for c, field := range record {
			if field == "" {
				continue
			}
			kind, value := parseValue(field)
			snapshot.Cells = append(snapshot.Cells, types.Cell{
				Row:   r + 1,
				Col:   c + 1,
				Kind:  kind,
				Value: value,
			})
			if r+1 > snapshot.Rows {
				snapshot.Rows = r + 1
			}
			if c+1 > snapshot.Cols {
				snapshot.Cols = c + 1
			}
		}
	}

	return snapshot
}

// =============================================================================
// VALUE DETECTION
// =============================================================================

// parseValue detects the cell kind of a CSV field.
// Integers are tried first, then floats; booleans are matched by name.
func parseValue(field string) (types.CellKind, string) {
	trimmed := strings.TrimSpace(field)

	switch strings.ToUpper(trimmed) {
	case "TRUE":
		return types.CellBool, "TRUE"
	case "FALSE":
		return types.CellBool, "FALSE"
	}

	if hasLeadingZero(trimmed) {
		return types.CellString, field
	}
	if _, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return types.CellNumber, trimmed
	}
	if _, err := strconv.ParseFloat(trimmed, 64); err == nil && !isSpecialFloat(trimmed) {
		return types.CellNumber, trimmed
	}
	return types.CellString, field
}

// hasLeadingZero reports identifiers such as "0042" that must stay text.
func hasLeadingZero(s string) bool {
	s = strings.TrimPrefix(s, "-")
	return len(s) > 1 && s[0] == '0' && s[1] != '.'
}

// isSpecialFloat rejects spellings ParseFloat accepts but a spreadsheet
// would keep as text: Inf, NaN and hex floats.
func isSpecialFloat(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "inf") || strings.Contains(lower, "nan") || strings.Contains(lower, "0x")
}
