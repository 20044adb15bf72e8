// Package trash moves files to the operating system's recycle bin.
//
// Linux and the BSDs follow the freedesktop.org Trash specification, macOS
// uses the user's ~/.Trash folder and Windows goes through the shell so the
// file shows up in the Recycle Bin with "Restore" available.
package trash

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrUnsupported is returned on platforms without a known trash location.
var ErrUnsupported = errors.New("trash is not supported on this platform")

// MoveToTrash sends path to the recycle bin.
func MoveToTrash(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	if _, err := os.Lstat(abs); err != nil {
		return fmt.Errorf("trash %s: %w", path, err)
	}
	if err := platformMoveToTrash(abs); err != nil {
		return fmt.Errorf("trash %s: %w", path, err)
	}
	return nil
}

// uniqueName returns name, or "stem.N.ext" for the first N such that
// taken reports false.
func uniqueName(name string, taken func(string) bool) string {
	if !taken(name) {
		return name
	}
	ext := filepath.Ext(name)
	stem := name[:len(name)-len(ext)]
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s.%d%s", stem, i, ext)
		if !taken(candidate) {
			return candidate
		}
	}
}
