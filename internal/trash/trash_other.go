//go:build !linux && !freebsd && !openbsd && !netbsd && !dragonfly && !darwin && !windows

package trash

func platformMoveToTrash(string) error {
	return ErrUnsupported
}
