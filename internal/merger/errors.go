package merger

import (
	"errors"
	"fmt"
)

// ErrNoInput indicates that discovery found no matching workbook.
var ErrNoInput = errors.New("no matching files")

// ErrBusy indicates that another merge of the same input directory is running.
var ErrBusy = errors.New("another merge is running in this folder")

// SourceReadError is returned when an input file cannot be opened or read.
// Nothing has been written and no file has been cleaned up.
type SourceReadError struct {
	Path string
	Err  error
}

func (e *SourceReadError) Error() string {
	return fmt.Sprintf("failed to read %s: %v", e.Path, e.Err)
}

func (e *SourceReadError) Unwrap() error {
	return e.Err
}

// OutputWriteError is returned when the merged workbook cannot be saved.
// No file has been cleaned up.
type OutputWriteError struct {
	Path string
	Err  error
}

func (e *OutputWriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

func (e *OutputWriteError) Unwrap() error {
	return e.Err
}
