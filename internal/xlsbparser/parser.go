// =============================================================================
// Workbook Merger - XLSB Source Parser
// =============================================================================
//
// This module reads a binary workbook (.xlsb) into the same in-memory form
// the XLSX parser produces, so binary sources merge like any other input.
//
// WHAT IS COPIED (per sheet):
//   - The used rectangle, moved so that its top-left cell becomes A1
//   - Raw cell values (numbers, booleans, strings, cached formula results)
//   - Number formats, so dates stay dates in the merged workbook
//   - Custom column widths
//
// Fonts, fills and borders are not stored in a way the reader exposes and
// are dropped.
//
// =============================================================================

package xlsbparser

import (
	"fmt"
	"iter"
	"strconv"

	"github.com/TsubasaBE/go-xlsb/styles"
	"github.com/TsubasaBE/go-xlsb/workbook"
	"github.com/TsubasaBE/go-xlsb/worksheet"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/workbook-merger/internal/types"
)

// firstCustomNumFmt is the first number format ID that is not built in.
const firstCustomNumFmt = 164

// Parse opens a binary workbook, snapshots every sheet in workbook order and
// closes the file before returning.
func Parse(path string) (*types.SourceWorkbook, error) {
	wb, err := workbook.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer wb.Close()

	names := wb.Sheets()
	if len(names) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	result := &types.SourceWorkbook{Path: path, Sheets: make([]types.SourceSheet, 0, len(names))}
	for i, name := range names {
		// Sheet indexes are 1-based.
		ws, err := wb.Sheet(i + 1)
		if err != nil {
			return nil, fmt.Errorf("error reading sheet '%s': %w", name, err)
		}
		result.Sheets = append(result.Sheets, types.SourceSheet{
			Name:     name,
			Index:    i,
			Snapshot: snapshot(ws.Rows(true), ws.Cols, wb.Styles),
		})
	}

	return result, nil
}

// snapshot copies the populated cells of one sheet, moving the used range so
// that its top-left cell becomes A1.
func snapshot(rows iter.Seq[[]worksheet.Cell], cols []worksheet.Col, table styles.StyleTable) *types.SheetSnapshot {
	snap := &types.SheetSnapshot{
		Styles:    make(map[int]*excelize.Style),
		ColWidths: make(map[int]float64),
	}

	top, left := 0, 0
	for row := range rows {
		for _, cell := range row {
			c, ok := convertCell(cell)
			if !ok {
				continue
			}
			if style := numFmtStyle(table, cell.Style); style != nil {
				c.StyleID = cell.Style
				snap.Styles[cell.Style] = style
			}
			if len(snap.Cells) == 0 {
				top, left = c.Row, c.Col
			}
			top, left = min(top, c.Row), min(left, c.Col)
			snap.Rows = max(snap.Rows, c.Row)
			snap.Cols = max(snap.Cols, c.Col)
			snap.Cells = append(snap.Cells, c)
		}
	}
	if len(snap.Cells) == 0 {
		return snap
	}

	for i := range snap.Cells {
		snap.Cells[i].Row -= top - 1
		snap.Cells[i].Col -= left - 1
	}

	for c := left; c <= snap.Cols; c++ {
		if width := colWidth(cols, c); width > 0 {
			snap.ColWidths[c-left+1] = width
		}
	}
	snap.Rows -= top - 1
	snap.Cols -= left - 1

	return snap
}

// convertCell maps a binary-workbook cell to a snapshot cell. Blank cells
// report false.
func convertCell(cell worksheet.Cell) (types.Cell, bool) {
	c := types.Cell{Row: cell.R + 1, Col: cell.C + 1}

	switch v := cell.V.(type) {
	case float64:
		c.Kind = types.CellNumber
		c.Value = strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		c.Kind = types.CellBool
		c.Value = strconv.FormatBool(v)
	case string:
		if v == "" {
			return c, false
		}
		c.Kind = types.CellString
		c.Value = v
	default:
		return c, false
	}
	return c, true
}

// numFmtStyle returns the number format of an XF index as an excelize style,
// or nil when the cell uses the General format.
func numFmtStyle(table styles.StyleTable, xf int) *excelize.Style {
	if xf <= 0 || xf >= len(table) {
		return nil
	}
	s := table[xf]
	switch {
	case s.FormatStr != "":
		format := s.FormatStr
		return &excelize.Style{CustomNumFmt: &format}
	case s.NumFmtID > 0 && s.NumFmtID < firstCustomNumFmt:
		return &excelize.Style{NumFmt: s.NumFmtID}
	default:
		return nil
	}
}

// colWidth finds the width defined for a 1-based column, or 0.
func colWidth(cols []worksheet.Col, c int) float64 {
	for _, col := range cols {
		if c-1 >= col.C1 && c-1 <= col.C2 {
			return col.Width
		}
	}
	return 0
}
