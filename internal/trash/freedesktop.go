package trash

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// FreedesktopTrash is a trash directory laid out per the freedesktop.org
// Trash specification: files/ holds the trashed files and info/ holds one
// .trashinfo file per entry recording the original path and deletion date.
type FreedesktopTrash struct {
	// Root is the trash directory, e.g. ~/.local/share/Trash.
	Root string

	now    func() time.Time
	rename func(oldpath, newpath string) error
}

// HomeTrash returns the user's home trash ($XDG_DATA_HOME/Trash).
func HomeTrash() (*FreedesktopTrash, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locate home directory: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return &FreedesktopTrash{Root: filepath.Join(dataHome, "Trash"), now: time.Now}, nil
}

// Move trashes the file at the absolute path abs and returns the name it
// was stored under.
func (t *FreedesktopTrash) Move(abs string) (string, error) {
	filesDir := filepath.Join(t.Root, "files")
	infoDir := filepath.Join(t.Root, "info")
	for _, dir := range []string{filesDir, infoDir} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return "", fmt.Errorf("create %s: %w", dir, err)
		}
	}

	now := time.Now
	if t.now != nil {
		now = t.now
	}
	info := fmt.Sprintf("[Trash Info]\nPath=%s\nDeletionDate=%s\n",
		(&url.URL{Path: abs}).EscapedPath(),
		now().Format("2006-01-02T15:04:05"))

	// The .trashinfo file is created exclusively first; it reserves the name.
	for {
		name := uniqueName(filepath.Base(abs), func(candidate string) bool {
			return exists(filepath.Join(filesDir, candidate)) ||
				exists(filepath.Join(infoDir, candidate+".trashinfo"))
		})
		infoPath := filepath.Join(infoDir, name+".trashinfo")

		f, err := os.OpenFile(infoPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create trash info: %w", err)
		}
		_, werr := f.WriteString(info)
		cerr := f.Close()
		if werr != nil || cerr != nil {
			os.Remove(infoPath)
			return "", fmt.Errorf("write trash info: %w", errors.Join(werr, cerr))
		}

		if err := t.moveFile(abs, filepath.Join(filesDir, name)); err != nil {
			os.Remove(infoPath)
			return "", err
		}
		return name, nil
	}
}

// moveFile renames src to dst. When the two are on different file systems
// the file is copied and synced first, then the source is removed.
func (t *FreedesktopTrash) moveFile(src, dst string) error {
	rename := os.Rename
	if t.rename != nil {
		rename = t.rename
	}
	err := rename(src, dst)
	if err == nil || !errors.Is(err, syscall.EXDEV) {
		return err
	}

	if err := copyFile(src, dst); err != nil {
		os.Remove(dst)
		return fmt.Errorf("copy to trash: %w", err)
	}
	if err := os.Remove(src); err != nil {
		os.Remove(dst)
		return err
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	stat, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, stat.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
