package xlsbparser

import (
	"iter"
	"path/filepath"
	"testing"

	"github.com/TsubasaBE/go-xlsb/styles"
	"github.com/TsubasaBE/go-xlsb/worksheet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/workbook-merger/internal/types"
)

func TestConvertCell(t *testing.T) {
	tests := []struct {
		name  string
		cell  worksheet.Cell
		want  types.Cell
		blank bool
	}{
		{
			name: "number",
			cell: worksheet.Cell{R: 0, C: 2, V: 45000.5},
			want: types.Cell{Row: 1, Col: 3, Kind: types.CellNumber, Value: "45000.5"},
		},
		{
			name: "integer number",
			cell: worksheet.Cell{R: 4, C: 0, V: float64(12)},
			want: types.Cell{Row: 5, Col: 1, Kind: types.CellNumber, Value: "12"},
		},
		{
			name: "bool",
			cell: worksheet.Cell{R: 1, C: 1, V: true},
			want: types.Cell{Row: 2, Col: 2, Kind: types.CellBool, Value: "true"},
		},
		{
			name: "string",
			cell: worksheet.Cell{R: 0, C: 0, V: "Rule"},
			want: types.Cell{Row: 1, Col: 1, Kind: types.CellString, Value: "Rule"},
		},
		{
			name:  "nil",
			cell:  worksheet.Cell{R: 0, C: 0},
			blank: true,
		},
		{
			name:  "empty string",
			cell:  worksheet.Cell{R: 0, C: 0, V: ""},
			blank: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := convertCell(tt.cell)
			if tt.blank {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNumFmtStyle(t *testing.T) {
	table := styles.StyleTable{
		{NumFmtID: 0},
		{NumFmtID: 14},
		{NumFmtID: 165, FormatStr: "yyyy-mm-dd hh:mm"},
		{NumFmtID: 0},
	}

	assert.Nil(t, numFmtStyle(table, 0))
	assert.Nil(t, numFmtStyle(table, 3))
	assert.Nil(t, numFmtStyle(table, 99))
	assert.Nil(t, numFmtStyle(nil, 1))

	builtIn := numFmtStyle(table, 1)
	require.NotNil(t, builtIn)
	assert.Equal(t, 14, builtIn.NumFmt)
	assert.Nil(t, builtIn.CustomNumFmt)

	custom := numFmtStyle(table, 2)
	require.NotNil(t, custom)
	require.NotNil(t, custom.CustomNumFmt)
	assert.Equal(t, "yyyy-mm-dd hh:mm", *custom.CustomNumFmt)
}

func TestColWidth(t *testing.T) {
	cols := []worksheet.Col{
		{C1: 0, C2: 0, Width: 20},
		{C1: 2, C2: 4, Width: 12.5},
	}

	assert.Equal(t, 20.0, colWidth(cols, 1))
	assert.Equal(t, 0.0, colWidth(cols, 2))
	assert.Equal(t, 12.5, colWidth(cols, 3))
	assert.Equal(t, 12.5, colWidth(cols, 5))
	assert.Equal(t, 0.0, colWidth(cols, 6))
}

func TestParseMissingFile(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "missing.xlsb"))
	assert.Error(t, err)
}

func rowsOf(rows ...[]worksheet.Cell) iter.Seq[[]worksheet.Cell] {
	return func(yield func([]worksheet.Cell) bool) {
		for _, r := range rows {
			if !yield(r) {
				return
			}
		}
	}
}

func TestSnapshotMovesUsedRangeToA1(t *testing.T) {
	table := styles.StyleTable{{NumFmtID: 0}, {NumFmtID: 14}}
	rows := rowsOf(
		[]worksheet.Cell{{R: 2, C: 2, V: "x"}, {R: 2, C: 3}},
		[]worksheet.Cell{{R: 3, C: 3, V: 45000.0, Style: 1}},
	)
	cols := []worksheet.Col{{C1: 3, C2: 3, Width: 25}}

	snap := snapshot(rows, cols, table)

	assert.Equal(t, 2, snap.Rows)
	assert.Equal(t, 2, snap.Cols)
	require.Len(t, snap.Cells, 2)
	assert.Equal(t, types.Cell{Row: 1, Col: 1, Kind: types.CellString, Value: "x"}, snap.Cells[0])
	assert.Equal(t, types.Cell{Row: 2, Col: 2, Kind: types.CellNumber, Value: "45000", StyleID: 1}, snap.Cells[1])
	assert.Equal(t, 14, snap.Styles[1].NumFmt)
	assert.Equal(t, map[int]float64{2: 25}, snap.ColWidths)
}

func TestSnapshotEmptySheet(t *testing.T) {
	snap := snapshot(rowsOf([]worksheet.Cell{{R: 0, C: 0}}), nil, nil)

	assert.True(t, snap.IsEmpty())
	assert.Zero(t, snap.Rows)
	assert.Zero(t, snap.Cols)
}
