//go:build darwin

package trash

import (
	"fmt"
	"os"
	"path/filepath"
)

func platformMoveToTrash(abs string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("locate home directory: %w", err)
	}
	dir := filepath.Join(home, ".Trash")
	name := uniqueName(filepath.Base(abs), func(candidate string) bool {
		_, err := os.Lstat(filepath.Join(dir, candidate))
		return err == nil
	})
	return os.Rename(abs, filepath.Join(dir, name))
}
