package xlsxwriter

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/workbook-merger/internal/types"
)

func record(name string, cells ...types.Cell) types.SheetRecord {
	return types.SheetRecord{
		Name:   name,
		Origin: types.InputFile{Path: "/in/" + name + ".xlsx"},
		Snapshot: &types.SheetSnapshot{
			Cells:     cells,
			Styles:    map[int]*excelize.Style{},
			ColWidths: map[int]float64{},
		},
	}
}

func TestWriteSheetsInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Merged.xlsx")

	records := []types.SheetRecord{
		record("Access", types.Cell{Row: 1, Col: 1, Kind: types.CellString, Value: "first"}),
		record("Budget"),
		record("Access_1", types.Cell{Row: 2, Col: 3, Kind: types.CellNumber, Value: "12.5"}),
	}
	require.NoError(t, Write(path, records))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Access", "Budget", "Access_1"}, f.GetSheetList())

	v, err := f.GetCellValue("Access", "A1")
	require.NoError(t, err)
	assert.Equal(t, "first", v)

	v, err = f.GetCellValue("Access_1", "C2")
	require.NoError(t, err)
	assert.Equal(t, "12.5", v)

	cellType, err := f.GetCellType("Access_1", "C2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, cellType)

	assert.NoFileExists(t, path+".lock")
}

func TestWriteBooleans(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bools.xlsx")
	require.NoError(t, Write(path, []types.SheetRecord{
		record("Flags",
			types.Cell{Row: 1, Col: 1, Kind: types.CellBool, Value: "1"},
			types.Cell{Row: 1, Col: 2, Kind: types.CellBool, Value: "FALSE"},
		),
	}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	a1, err := f.GetCellValue("Flags", "A1")
	require.NoError(t, err)
	assert.Equal(t, "TRUE", a1)

	b1, err := f.GetCellValue("Flags", "B1")
	require.NoError(t, err)
	assert.Equal(t, "FALSE", b1)
}

func TestWriteCopiesStylesAndWidths(t *testing.T) {
	rec := record("Styled", types.Cell{Row: 1, Col: 1, Kind: types.CellNumber, Value: "45000", StyleID: 7})
	rec.Snapshot.Styles[7] = &excelize.Style{Font: &excelize.Font{Bold: true}, NumFmt: 14}
	rec.Snapshot.ColWidths[2] = 25

	path := filepath.Join(t.TempDir(), "styled.xlsx")
	require.NoError(t, Write(path, []types.SheetRecord{rec}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	styleID, err := f.GetCellStyle("Styled", "A1")
	require.NoError(t, err)
	require.NotZero(t, styleID)

	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)
	assert.Equal(t, 14, style.NumFmt)

	width, err := f.GetColWidth("Styled", "B")
	require.NoError(t, err)
	assert.InDelta(t, 25.0, width, 0.01)
}

func TestStylesAreSharedPerOrigin(t *testing.T) {
	style := &excelize.Style{Font: &excelize.Font{Italic: true}}

	a := record("A", types.Cell{Row: 1, Col: 1, Value: "x", StyleID: 3})
	a.Snapshot.Styles[3] = style
	b := record("B", types.Cell{Row: 1, Col: 1, Value: "y", StyleID: 3})
	b.Snapshot.Styles[3] = style
	b.Origin = a.Origin

	builder := NewBuilder()
	defer builder.Close()
	require.NoError(t, builder.Add(a))
	require.NoError(t, builder.Add(b))

	assert.Len(t, builder.styles, 1)
	assert.Equal(t, 2, builder.Len())
}

func TestRenderEmpty(t *testing.T) {
	_, err := Render(nil)
	assert.True(t, errors.Is(err, ErrNoSheets))
}

func TestWriteReplacesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Merged.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0644))

	require.NoError(t, Write(path, []types.SheetRecord{record("Only")}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Only"}, f.GetSheetList())
}

func TestWriteToMissingDirectoryFails(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	err := Write(filepath.Join(blocker, "Merged.xlsx"), []types.SheetRecord{record("Only")})
	assert.Error(t, err)
}
