// =============================================================================
// Workbook Merger - Source Cleanup
// =============================================================================
//
// After the merged workbook has been written, the source files are removed
// from the input directory.
//
// MODES:
//   - trash  : move each file to the recycle bin (recoverable)
//   - delete : remove each file permanently
//   - none   : leave every file in place
//
// Every file is handled on its own. A failure is recorded in that file's
// outcome and the remaining files are still processed.
//
// =============================================================================

package cleanup

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ginjaninja78/workbook-merger/internal/trash"
	"github.com/ginjaninja78/workbook-merger/internal/types"
)

// Mode is one of the cleanup modes.
type Mode string

const (
	ModeTrash  Mode = "trash"
	ModeDelete Mode = "delete"
	ModeNone   Mode = "none"
)

// Trasher moves a file to the recycle bin.
type Trasher interface {
	Trash(path string) error
}

// TrasherFunc adapts a function to Trasher.
type TrasherFunc func(path string) error

// Trash calls f(path).
func (f TrasherFunc) Trash(path string) error {
	return f(path)
}

// SystemTrash is the operating system recycle bin.
var SystemTrash Trasher = TrasherFunc(trash.MoveToTrash)

// Cleaner removes merged source files.
type Cleaner struct {
	mode    Mode
	trasher Trasher
	remove  func(string) error
}

// New creates a Cleaner. A nil trasher means SystemTrash.
func New(mode Mode, trasher Trasher) *Cleaner {
	if trasher == nil {
		trasher = SystemTrash
	}
	return &Cleaner{mode: mode, trasher: trasher, remove: os.Remove}
}

// Run cleans up each file in order and returns one outcome per file.
//
// PARAMETERS:
//   - files: the source files that were merged.
//   - keep: a path that must never be touched (the merged output).
func (c *Cleaner) Run(files []string, keep string) []types.CleanupOutcome {
	outcomes := make([]types.CleanupOutcome, 0, len(files))
	for _, file := range files {
		outcomes = append(outcomes, c.one(file, keep))
	}
	return outcomes
}

func (c *Cleaner) one(file, keep string) types.CleanupOutcome {
	if keep != "" && samePath(file, keep) {
		return types.CleanupOutcome{File: file, Action: types.ActionSkip}
	}

	switch c.mode {
	case ModeNone:
		return types.CleanupOutcome{File: file, Action: types.ActionKeep}
	case ModeDelete:
		err := c.remove(file)
		if err != nil {
			err = fmt.Errorf("delete %s: %w", filepath.Base(file), err)
		}
		return types.CleanupOutcome{File: file, Action: types.ActionDelete, Err: err}
	case ModeTrash:
		return types.CleanupOutcome{File: file, Action: types.ActionTrash, Err: c.trasher.Trash(file)}
	default:
		return types.CleanupOutcome{
			File:   file,
			Action: types.ActionKeep,
			Err:    fmt.Errorf("unknown cleanup mode %q", c.mode),
		}
	}
}

// samePath compares two paths after cleaning and making them absolute.
func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// Failed returns the outcomes that did not succeed.
func Failed(outcomes []types.CleanupOutcome) []types.CleanupOutcome {
	var out []types.CleanupOutcome
	for _, o := range outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}
