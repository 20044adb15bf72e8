// =============================================================================
// Workbook Merger - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - naming
//   - xlsxparser / csvparser
//   - xlsxwriter
//   - merger
//   - cleanup
//
// =============================================================================

package types

import (
	"strconv"

	"github.com/xuri/excelize/v2"
)

// =============================================================================
// INPUT FILES
// =============================================================================

// InputFile is a workbook discovered in the input directory.
// It is created once during discovery and never mutated.
type InputFile struct {
	// Path is the full path to the file on disk.
	Path string

	// BaseName is the file name without directory and extension.
	BaseName string

	// Tokens is BaseName split on "_".
	Tokens []string
}

// =============================================================================
// ORDERING KEYS
// =============================================================================

// OrderKey is the value a sheet is sorted by in the merged workbook.
//
// In token mode the raw last filename token is compared as a string.
// In rank mode the index in the desired-order table is compared as an integer.
type OrderKey struct {
	// Token is the last "_"-delimited token of the source file name.
	Token string

	// Rank is the desired-order table index (only meaningful when ByRank).
	Rank int

	// ByRank selects integer comparison on Rank instead of Token.
	ByRank bool
}

// Less reports whether k sorts before other.
// Keys of different modes never meet in one merge; rank keys sort first.
func (k OrderKey) Less(other OrderKey) bool {
	if k.ByRank != other.ByRank {
		return k.ByRank
	}
	if k.ByRank {
		return k.Rank < other.Rank
	}
	return k.Token < other.Token
}

// String renders the key for console output.
func (k OrderKey) String() string {
	if k.ByRank {
		return "rank " + strconv.Itoa(k.Rank)
	}
	return "token " + k.Token
}

// =============================================================================
// SHEET SNAPSHOTS
// =============================================================================

// CellKind is the value type a copied cell is written back as.
type CellKind int

const (
	// CellString is written as an inline/shared string.
	CellString CellKind = iota

	// CellNumber is written as a float. Dates are numbers with a date format.
	CellNumber

	// CellBool is written as TRUE/FALSE.
	CellBool
)

// Cell is one populated (or styled) cell of a source sheet.
type Cell struct {
	// Row and Col are 1-based coordinates relative to A1.
	Row int
	Col int

	// Kind decides how Value is written back.
	Kind CellKind

	// Value is the raw, unformatted cell value.
	Value string

	// StyleID is the style index in the source workbook (0 = default).
	// It is a key into SheetSnapshot.Styles.
	StyleID int
}

// SheetSnapshot is an in-memory copy of a source sheet's used range.
// It outlives the source workbook handle, so styles are resolved eagerly.
type SheetSnapshot struct {
	// Rows and Cols are the size of the used rectangle anchored at A1.
	// Both are zero for an empty sheet.
	Rows int
	Cols int

	// Cells holds every cell with a value or a non-default style.
	Cells []Cell

	// Styles maps source style IDs to their resolved definitions.
	Styles map[int]*excelize.Style

	// ColWidths maps 1-based column numbers to their custom width.
	ColWidths map[int]float64
}

// IsEmpty reports whether the source sheet had no populated cells.
func (s *SheetSnapshot) IsEmpty() bool {
	return s == nil || len(s.Cells) == 0
}

// SourceSheet is one sheet read from an input file.
type SourceSheet struct {
	// Name is the sheet name inside the source file.
	Name string

	// Index is the 0-based sheet position inside the source file.
	Index int

	// Snapshot is the copied used range.
	Snapshot *SheetSnapshot
}

// SourceWorkbook is the fully read content of one input file.
// The file handle is already closed when a SourceWorkbook exists.
type SourceWorkbook struct {
	// Path is the file the sheets were read from.
	Path string

	// Sheets are in workbook order.
	Sheets []SourceSheet
}

// =============================================================================
// SHEET RECORDS
// =============================================================================

// SheetRecord is a sheet pending insertion into the merged workbook.
type SheetRecord struct {
	// Name is the unique sheet name assigned in the merged workbook.
	Name string

	// Key is the ordering key attached when the record was created.
	Key OrderKey

	// Snapshot is the copied cell range.
	Snapshot *SheetSnapshot

	// Origin is the file the sheet came from.
	Origin InputFile

	// OriginSheet is the sheet's name inside Origin.
	OriginSheet string

	// OriginIndex is the 0-based sheet position inside Origin.
	OriginIndex int
}

// =============================================================================
// CLEANUP OUTCOMES
// =============================================================================

// CleanupAction is what was done (or attempted) to an input file after merging.
type CleanupAction string

const (
	ActionTrash  CleanupAction = "trash"
	ActionDelete CleanupAction = "delete"
	ActionKeep   CleanupAction = "keep"
	ActionSkip   CleanupAction = "skip"
)

// CleanupOutcome is the per-file result of the cleanup step.
type CleanupOutcome struct {
	// File is the input file path.
	File string

	// Action is the action that was attempted.
	Action CleanupAction

	// Err is nil when the action succeeded.
	Err error
}

// OK reports whether the cleanup action succeeded.
func (o CleanupOutcome) OK() bool {
	return o.Err == nil
}
