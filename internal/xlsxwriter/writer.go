// =============================================================================
// Workbook Merger - XLSX Writer Module
// =============================================================================
//
// This module builds the merged workbook from the ordered sheet records and
// persists it.
//
// OUTPUT STRUCTURE:
//   - One sheet per record, in the order given (the caller sorts).
//   - The default "Sheet1" of a new workbook is renamed to the first record,
//     so the output never carries a leftover empty sheet.
//   - Values, styles and column widths come from the record snapshots.
//
// PERSISTENCE:
//   The workbook is rendered into memory first and then written with an
//   atomic rename, so a failed write leaves no partial file behind and an
//   existing file with the same name is replaced whole.
//
// =============================================================================

package xlsxwriter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/workbook-merger/internal/filelock"
	"github.com/ginjaninja78/workbook-merger/internal/types"
)

// Extension is the extension of every merged workbook.
const Extension = ".xlsx"

// ErrNoSheets is returned when there is nothing to write.
var ErrNoSheets = errors.New("no sheets to write")

// defaultSheet is the sheet every new excelize workbook starts with.
const defaultSheet = "Sheet1"

// styleKey identifies a source style. Style IDs are only unique per source
// workbook, so the origin path is part of the key.
type styleKey struct {
	origin string
	id     int
}

// =============================================================================
// BUILDER
// =============================================================================

// Builder accumulates sheets into a new workbook.
type Builder struct {
	file   *excelize.File
	styles map[styleKey]int
	sheets int
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		file:   excelize.NewFile(),
		styles: make(map[styleKey]int),
	}
}

// Add appends one record as a new sheet.
func (b *Builder) Add(record types.SheetRecord) error {
	if record.Name == "" {
		return fmt.Errorf("sheet from %s has no name", record.Origin.Path)
	}

	if b.sheets == 0 {
		if err := b.file.SetSheetName(defaultSheet, record.Name); err != nil {
			return fmt.Errorf("failed to create sheet '%s': %w", record.Name, err)
		}
	} else {
		if _, err := b.file.NewSheet(record.Name); err != nil {
			return fmt.Errorf("failed to create sheet '%s': %w", record.Name, err)
		}
	}
	b.sheets++

	if err := b.fill(record); err != nil {
		return fmt.Errorf("failed to copy sheet '%s': %w", record.Name, err)
	}
	return nil
}

// Len returns the number of sheets added.
func (b *Builder) Len() int {
	return b.sheets
}

// Bytes renders the workbook. The first sheet is made active.
func (b *Builder) Bytes() ([]byte, error) {
	if b.sheets == 0 {
		return nil, ErrNoSheets
	}
	b.file.SetActiveSheet(0)

	buf, err := b.file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Close releases the builder's workbook.
func (b *Builder) Close() error {
	return b.file.Close()
}

// fill writes the snapshot of a record into its sheet.
func (b *Builder) fill(record types.SheetRecord) error {
	snap := record.Snapshot
	if snap == nil {
		return nil
	}
	sheet := record.Name

	for _, cell := range snap.Cells {
		name, err := excelize.CoordinatesToCellName(cell.Col, cell.Row)
		if err != nil {
			return err
		}

		if err := setValue(b.file, sheet, name, cell); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}

		if cell.StyleID == 0 {
			continue
		}
		styleID, err := b.style(record, cell.StyleID)
		if err != nil {
			return err
		}
		if err := b.file.SetCellStyle(sheet, name, name, styleID); err != nil {
			return fmt.Errorf("failed to style %s: %w", name, err)
		}
	}

	for col, width := range snap.ColWidths {
		colName, err := excelize.ColumnNumberToName(col)
		if err != nil {
			return err
		}
		if err := b.file.SetColWidth(sheet, colName, colName, width); err != nil {
			return fmt.Errorf("failed to set width of column %s: %w", colName, err)
		}
	}

	return nil
}

// style maps a source style to a style of the merged workbook, creating it
// on first use.
func (b *Builder) style(record types.SheetRecord, sourceID int) (int, error) {
	key := styleKey{origin: record.Origin.Path, id: sourceID}
	if id, ok := b.styles[key]; ok {
		return id, nil
	}

	def, ok := record.Snapshot.Styles[sourceID]
	if !ok || def == nil {
		return 0, nil
	}

	id, err := b.file.NewStyle(def)
	if err != nil {
		return 0, fmt.Errorf("failed to copy style %d: %w", sourceID, err)
	}
	b.styles[key] = id
	return id, nil
}

// setValue writes a cell value according to its kind.
func setValue(f *excelize.File, sheet, cell string, c types.Cell) error {
	if c.Value == "" {
		return nil
	}

	switch c.Kind {
	case types.CellNumber:
		v, err := strconv.ParseFloat(strings.TrimSpace(c.Value), 64)
		if err != nil {
			return f.SetCellStr(sheet, cell, c.Value)
		}
		return f.SetCellFloat(sheet, cell, v, -1, 64)
	case types.CellBool:
		return f.SetCellBool(sheet, cell, parseBool(c.Value))
	default:
		return f.SetCellStr(sheet, cell, c.Value)
	}
}

// parseBool accepts the raw "1"/"0" of workbook cells and TRUE/FALSE text.
func parseBool(value string) bool {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "1", "TRUE":
		return true
	default:
		return false
	}
}

// =============================================================================
// WRITE FUNCTIONS
// =============================================================================

// Render builds a workbook from records, in order, and returns its bytes.
//
// PARAMETERS:
//   - records: the sheets to write, already sorted and uniquely named.
//
// RETURNS:
//   - The .xlsx content.
//   - ErrNoSheets when records is empty, or the first copy error.
func Render(records []types.SheetRecord) ([]byte, error) {
	if len(records) == 0 {
		return nil, ErrNoSheets
	}

	b := NewBuilder()
	defer b.Close()

	for _, record := range records {
		if err := b.Add(record); err != nil {
			return nil, err
		}
	}
	return b.Bytes()
}

// Write renders records and saves them to path, replacing any existing file.
func Write(path string, records []types.SheetRecord) error {
	data, err := Render(records)
	if err != nil {
		return err
	}
	if err := filelock.LockAndWrite(path, data); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
