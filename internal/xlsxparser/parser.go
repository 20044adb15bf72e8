// =============================================================================
// Workbook Merger - XLSX Source Parser
// =============================================================================
//
// This module reads a source workbook into memory so that its sheets can be
// written into the merged workbook after the source file has been closed.
//
// WHAT IS COPIED (per sheet):
//   - The used rectangle, from the first to the last cell holding a value,
//     moved so that its top-left cell becomes A1
//   - Raw cell values (numbers unformatted, booleans, strings, the cached
//     result of formula cells)
//   - Cell styles, including number formats, resolved to full definitions
//   - Custom column widths
//
// NOT COPIED: formulas, charts, images, merged ranges, conditional formats.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/workbook-merger/internal/types"
)

// defaultColumnWidth is Excel's standard column width; columns at this width
// are not recorded.
const defaultColumnWidth = 9.140625

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse opens a workbook, snapshots every sheet in workbook order and closes
// the file before returning.
//
// PARAMETERS:
//   - path: the .xlsx/.xlsm file to read.
//
// RETURNS:
//   - The sheets of the workbook.
//   - An error if the file cannot be opened or a sheet cannot be read.
func Parse(path string) (*types.SourceWorkbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return ParseFile(f, path)
}

// ParseFile snapshots every sheet of an already open workbook.
// The caller keeps ownership of f.
func ParseFile(f *excelize.File, path string) (*types.SourceWorkbook, error) {
	names := f.GetSheetList()
	if len(names) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	wb := &types.SourceWorkbook{Path: path, Sheets: make([]types.SourceSheet, 0, len(names))}

	// Style IDs are workbook-wide, so one cache serves every sheet.
	styles := make(map[int]*excelize.Style)

	for i, name := range names {
		snapshot, err := parseSheet(f, name, styles)
		if err != nil {
			return nil, fmt.Errorf("error reading sheet '%s': %w", name, err)
		}
		wb.Sheets = append(wb.Sheets, types.SourceSheet{Name: name, Index: i, Snapshot: snapshot})
	}

	return wb, nil
}

// parseSheet snapshots a single sheet.
func parseSheet(f *excelize.File, sheet string, styles map[int]*excelize.Style) (*types.SheetSnapshot, error) {
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	snapshot := &types.SheetSnapshot{
		Styles:    make(map[int]*excelize.Style),
		ColWidths: make(map[int]float64),
	}

	used := usedRange(rows)
	if used.empty() {
		return snapshot, nil
	}
	snapshot.Rows = used.bottom - used.top + 1
	snapshot.Cols = used.right - used.left + 1

	for r := used.top; r <= used.bottom; r++ {
		row := rows[r-1]

		for c := used.left; c <= used.right; c++ {
			value := ""
			if c-1 < len(row) {
				value = row[c-1]
			}

			cellName, err := excelize.CoordinatesToCellName(c, r)
			if err != nil {
				return nil, err
			}

			styleID, err := f.GetCellStyle(sheet, cellName)
			if err != nil {
				return nil, fmt.Errorf("failed to read style of %s: %w", cellName, err)
			}

			if value == "" && styleID == 0 {
				continue
			}

			kind := types.CellString
			if value != "" {
				cellType, err := f.GetCellType(sheet, cellName)
				if err != nil {
					return nil, fmt.Errorf("failed to read type of %s: %w", cellName, err)
				}
				kind = classify(cellType, value)
			}

			if styleID != 0 {
				if err := resolveStyle(f, styleID, styles); err != nil {
					return nil, err
				}
				snapshot.Styles[styleID] = styles[styleID]
			}

			// The used range is moved so that its top-left cell lands on A1.
			snapshot.Cells = append(snapshot.Cells, types.Cell{
				Row:     r - used.top + 1,
				Col:     c - used.left + 1,
				Kind:    kind,
				Value:   value,
				StyleID: styleID,
			})
		}
	}

	for c := used.left; c <= used.right; c++ {
		colName, err := excelize.ColumnNumberToName(c)
		if err != nil {
			return nil, err
		}
		width, err := f.GetColWidth(sheet, colName)
		if err != nil {
			return nil, fmt.Errorf("failed to read width of column %s: %w", colName, err)
		}
		if width != defaultColumnWidth {
			snapshot.ColWidths[c-used.left+1] = width
		}
	}

	return snapshot, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// bounds is a 1-based, inclusive cell rectangle.
type bounds struct {
	top, left, bottom, right int
}

func (b bounds) empty() bool {
	return b.bottom == 0
}

// usedRange returns the smallest rectangle holding every non-empty cell.
// It is the zero value when every cell is empty.
func usedRange(rows [][]string) bounds {
	var b bounds
	for r, row := range rows {
		for c, cell := range row {
			if cell == "" {
				continue
			}
			if b.empty() {
				b = bounds{top: r + 1, left: c + 1, bottom: r + 1, right: c + 1}
				continue
			}
			b.top = min(b.top, r+1)
			b.left = min(b.left, c+1)
			b.bottom = max(b.bottom, r+1)
			b.right = max(b.right, c+1)
		}
	}
	return b
}

// classify decides how a raw value is written back.
//
// Numeric cells usually carry no explicit type in the file (CellTypeUnset),
// so any unset value that parses as a float is a number. Dates are numbers
// with a date number format and need no special case.
func classify(cellType excelize.CellType, value string) types.CellKind {
	switch cellType {
	case excelize.CellTypeBool:
		return types.CellBool
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if _, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return types.CellNumber
		}
		return types.CellString
	default:
		return types.CellString
	}
}

// resolveStyle loads a style definition into the cache once.
func resolveStyle(f *excelize.File, styleID int, cache map[int]*excelize.Style) error {
	if _, ok := cache[styleID]; ok {
		return nil
	}
	style, err := f.GetStyle(styleID)
	if err != nil {
		return fmt.Errorf("failed to read style %d: %w", styleID, err)
	}
	cache[styleID] = style
	return nil
}

// SheetNames lists the sheets of a workbook without reading their cells.
func SheetNames(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return f.GetSheetList(), nil
}
