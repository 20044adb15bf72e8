//go:build linux || freebsd || openbsd || netbsd || dragonfly

package trash

func platformMoveToTrash(abs string) error {
	t, err := HomeTrash()
	if err != nil {
		return err
	}
	_, err = t.Move(abs)
	return err
}
