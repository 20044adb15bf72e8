package cleanup

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/workbook-merger/internal/types"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	return path
}

type recordingTrash struct {
	trashed []string
	failOn  string
}

func (r *recordingTrash) Trash(path string) error {
	if filepath.Base(path) == r.failOn {
		return errors.New("permission denied")
	}
	r.trashed = append(r.trashed, path)
	return os.Remove(path)
}

func TestTrashModeIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	x := touch(t, dir, "x.xlsx")
	y := touch(t, dir, "y.xlsx")
	fake := &recordingTrash{failOn: "x.xlsx"}

	outcomes := New(ModeTrash, fake).Run([]string{x, y}, "")

	require.Len(t, outcomes, 2)
	assert.False(t, outcomes[0].OK())
	assert.Equal(t, types.ActionTrash, outcomes[0].Action)
	assert.True(t, outcomes[1].OK())

	assert.FileExists(t, x)
	assert.NoFileExists(t, y)
	assert.Equal(t, []string{y}, fake.trashed)
	assert.Len(t, Failed(outcomes), 1)
}

func TestDeleteMode(t *testing.T) {
	dir := t.TempDir()
	a := touch(t, dir, "a.xlsx")
	missing := filepath.Join(dir, "missing.xlsx")

	outcomes := New(ModeDelete, nil).Run([]string{missing, a}, "")

	require.Len(t, outcomes, 2)
	assert.Error(t, outcomes[0].Err)
	assert.True(t, errors.Is(outcomes[0].Err, os.ErrNotExist))
	assert.True(t, outcomes[1].OK())
	assert.NoFileExists(t, a)
}

func TestNoneModeKeepsFiles(t *testing.T) {
	dir := t.TempDir()
	a := touch(t, dir, "a.xlsx")

	outcomes := New(ModeNone, nil).Run([]string{a}, "")

	require.Len(t, outcomes, 1)
	assert.Equal(t, types.ActionKeep, outcomes[0].Action)
	assert.True(t, outcomes[0].OK())
	assert.FileExists(t, a)
}

func TestOutputFileIsNeverCleaned(t *testing.T) {
	dir := t.TempDir()
	out := touch(t, dir, "Merged.xlsx")

	outcomes := New(ModeDelete, nil).Run([]string{out}, filepath.Join(dir, ".", "Merged.xlsx"))

	require.Len(t, outcomes, 1)
	assert.Equal(t, types.ActionSkip, outcomes[0].Action)
	assert.FileExists(t, out)
}
