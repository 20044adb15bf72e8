package merger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/workbook-merger/internal/cleanup"
	"github.com/ginjaninja78/workbook-merger/internal/filelock"
	"github.com/ginjaninja78/workbook-merger/internal/naming"
	"github.com/ginjaninja78/workbook-merger/internal/types"
)

// =============================================================================
// FIXTURES
// =============================================================================

// makeWorkbook writes an .xlsx into dir whose sheets each hold their own name in A1.
func makeWorkbook(t *testing.T, dir, name string, sheets ...string) string {
	t.Helper()
	f := excelize.NewFile()
	for i, sheet := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", sheet))
		} else {
			_, err := f.NewSheet(sheet)
			require.NoError(t, err)
		}
		require.NoError(t, f.SetCellValue(sheet, "A1", name+"/"+sheet))
	}
	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

// fakeTrash records trashed files and fails for the configured ones.
type fakeTrash struct {
	trashed []string
	fail    map[string]error
}

func (f *fakeTrash) Trash(path string) error {
	if err := f.fail[filepath.Base(path)]; err != nil {
		return err
	}
	f.trashed = append(f.trashed, filepath.Base(path))
	return nil
}

// recordingLogger captures warnings.
type recordingLogger struct {
	warnings []string
}

func (l *recordingLogger) Debug(string, ...interface{}) {}
func (l *recordingLogger) Info(string, ...interface{})  {}
func (l *recordingLogger) Warn(msg string, args ...interface{}) {
	l.warnings = append(l.warnings, msg)
}
func (l *recordingLogger) Error(string, ...interface{}) {}

var fixedNow = time.Date(2025, 6, 30, 14, 5, 9, 0, time.UTC)

func newMerger(opts Options, trash *fakeTrash) *Merger {
	return New(opts, WithTrasher(trash), WithClock(func() time.Time { return fixedNow }))
}

func sheetList(t *testing.T, path string) []string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	return f.GetSheetList()
}

func cellA1(t *testing.T, path, sheet string) string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue(sheet, "A1")
	require.NoError(t, err)
	return v
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestRunDuplicateBaseNames(t *testing.T) {
	dir := t.TempDir()
	makeWorkbook(t, dir, "fw_rule_Access_20250101000000.xlsx", "Sheet1")
	makeWorkbook(t, dir, "fw_rule_Access_20250102000000.xlsx", "Sheet1")
	makeWorkbook(t, dir, "other_NAT_20250101000000.xlsx", "Sheet1")

	trash := &fakeTrash{}
	result, err := newMerger(Options{
		InputDir:   dir,
		Prefix:     "fw_rule_",
		Extensions: []string{".xlsx"},
		Cleanup:    cleanup.ModeTrash,
	}, trash).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "fw_rule.xlsx"), result.OutputPath)
	assert.True(t, result.Written)
	assert.Equal(t, []string{"Access", "Access_1"}, sheetList(t, result.OutputPath))
	assert.Equal(t, "fw_rule_Access_20250101000000.xlsx/Sheet1", cellA1(t, result.OutputPath, "Access"))
	assert.Equal(t, "fw_rule_Access_20250102000000.xlsx/Sheet1", cellA1(t, result.OutputPath, "Access_1"))

	assert.Equal(t, []string{
		"fw_rule_Access_20250101000000.xlsx",
		"fw_rule_Access_20250102000000.xlsx",
	}, trash.trashed)
	assert.Empty(t, result.CleanupFailures())
	assert.NoFileExists(t, filepath.Join(dir, LockFileName))
}

func TestRunNoMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	makeWorkbook(t, dir, "report_Access_01.xlsx", "Sheet1")

	trash := &fakeTrash{}
	result, err := newMerger(Options{InputDir: dir, Prefix: "fw_rule_"}, trash).Run(context.Background())

	assert.True(t, errors.Is(err, ErrNoInput))
	require.NotNil(t, result)
	assert.NotEmpty(t, result.RunID)
	assert.False(t, result.Written)
	assert.Empty(t, trash.trashed)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "nothing may be written")
}

func TestRunMultiSheetFileWithoutSeparators(t *testing.T) {
	dir := t.TempDir()
	makeWorkbook(t, dir, "존.xlsx", "Sheet1", "Sheet2")

	result, err := newMerger(Options{InputDir: dir, Cleanup: cleanup.ModeNone}, &fakeTrash{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, naming.DefaultMergedName+".xlsx"), result.OutputPath)
	assert.Equal(t, []string{"존_Sheet1", "존_Sheet2"}, sheetList(t, result.OutputPath))
	require.Len(t, result.Cleanup, 1)
	assert.Equal(t, types.ActionKeep, result.Cleanup[0].Action)
	assert.FileExists(t, filepath.Join(dir, "존.xlsx"))
}

// =============================================================================
// PROPERTIES
// =============================================================================

func TestRunConservesSheetCount(t *testing.T) {
	dir := t.TempDir()
	makeWorkbook(t, dir, "m_A_1.xlsx", "One")
	makeWorkbook(t, dir, "m_B_2.xlsx", "One", "Two")
	makeWorkbook(t, dir, "m_C_3.xlsx", "One", "Two", "Three")

	result, err := newMerger(Options{InputDir: dir, Cleanup: cleanup.ModeNone}, &fakeTrash{}).Run(context.Background())
	require.NoError(t, err)

	sheets := sheetList(t, result.OutputPath)
	assert.Len(t, sheets, 6)
	assert.Len(t, result.Records, 6)
	assert.Equal(t, []string{"A", "B_One", "B_Two", "C_One", "C_Two", "C_Three"}, sheets)
}

func TestRunTokenOrderOverridesDiscoveryOrder(t *testing.T) {
	dir := t.TempDir()
	makeWorkbook(t, dir, "a_First_9.xlsx", "Sheet1")
	makeWorkbook(t, dir, "b_Second_1.xlsx", "Sheet1")
	makeWorkbook(t, dir, "c_Third_10.xlsx", "Sheet1")

	result, err := newMerger(Options{InputDir: dir, Cleanup: cleanup.ModeNone}, &fakeTrash{}).Run(context.Background())
	require.NoError(t, err)

	// Tokens compare as text: "1" < "10" < "9".
	assert.Equal(t, []string{"Second", "Third", "First"}, sheetList(t, result.OutputPath))
}

func TestRunRankOrder(t *testing.T) {
	dir := t.TempDir()
	makeWorkbook(t, dir, "fw_Zone_01.xlsx", "Sheet1")
	makeWorkbook(t, dir, "fw_Access_02.xlsx", "Sheet1")
	makeWorkbook(t, dir, "fw_NAT_03.xlsx", "Sheet1")
	makeWorkbook(t, dir, "fw_Other_04.xlsx", "Sheet1")

	result, err := newMerger(Options{
		InputDir:     dir,
		OrderBy:      OrderByRank,
		DesiredOrder: []string{"NAT", "Access"},
		Cleanup:      cleanup.ModeNone,
	}, &fakeTrash{}).Run(context.Background())
	require.NoError(t, err)

	// Unranked sheets come last and keep discovery order among themselves.
	assert.Equal(t, []string{"NAT", "Access", "Other", "Zone"}, sheetList(t, result.OutputPath))
	assert.Equal(t, naming.Unranked, result.Records[3].Key.Rank)
}

func TestRunCleanupIsolation(t *testing.T) {
	dir := t.TempDir()
	makeWorkbook(t, dir, "x_A_1.xlsx", "Sheet1")
	makeWorkbook(t, dir, "x_B_2.xlsx", "Sheet1")

	trash := &fakeTrash{fail: map[string]error{"x_A_1.xlsx": errors.New("file in use")}}
	log := &recordingLogger{}
	result, err := New(Options{InputDir: dir}, WithTrasher(trash), WithLogger(log)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"x_B_2.xlsx"}, trash.trashed)
	failures := result.CleanupFailures()
	require.Len(t, failures, 1)
	assert.Equal(t, filepath.Join(dir, "x_A_1.xlsx"), failures[0].File)
	assert.Len(t, log.warnings, 1)
}

func TestRunDeleteMode(t *testing.T) {
	dir := t.TempDir()
	a := makeWorkbook(t, dir, "x_A_1.xlsx", "Sheet1")

	result, err := newMerger(Options{InputDir: dir, Cleanup: cleanup.ModeDelete}, &fakeTrash{}).Run(context.Background())
	require.NoError(t, err)

	assert.NoFileExists(t, a)
	assert.FileExists(t, result.OutputPath)
}

func TestRunNeverCleansUpOutput(t *testing.T) {
	dir := t.TempDir()
	makeWorkbook(t, dir, "Merged.xlsx", "Old")
	makeWorkbook(t, dir, "a.xlsx", "Sheet1")

	trash := &fakeTrash{}
	result, err := newMerger(Options{InputDir: dir}, trash).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "Merged.xlsx"), result.OutputPath)
	assert.Equal(t, []string{"a.xlsx"}, trash.trashed)
	require.Len(t, result.Cleanup, 2)
	assert.Equal(t, types.ActionSkip, result.Cleanup[0].Action)
}

// =============================================================================
// FAILURES
// =============================================================================

func TestRunUnreadableSource(t *testing.T) {
	dir := t.TempDir()
	good := makeWorkbook(t, dir, "x_A_1.xlsx", "Sheet1")
	bad := filepath.Join(dir, "x_B_2.xlsx")
	require.NoError(t, os.WriteFile(bad, []byte("not a workbook"), 0644))

	trash := &fakeTrash{}
	result, err := newMerger(Options{InputDir: dir}, trash).Run(context.Background())

	var readErr *SourceReadError
	require.True(t, errors.As(err, &readErr))
	assert.Equal(t, bad, readErr.Path)
	assert.False(t, result.Written)
	assert.NoFileExists(t, filepath.Join(dir, "x.xlsx"))
	assert.Empty(t, trash.trashed)
	assert.FileExists(t, good)
}

func TestRunCorruptBinaryWorkbook(t *testing.T) {
	dir := t.TempDir()
	makeWorkbook(t, dir, "x_A_1.xlsx", "Sheet1")
	bad := filepath.Join(dir, "x_B_2.xlsb")
	require.NoError(t, os.WriteFile(bad, []byte("not a zip"), 0644))

	trash := &fakeTrash{}
	_, err := newMerger(Options{
		InputDir:   dir,
		Extensions: []string{".xlsx", ".xlsb"},
	}, trash).Run(context.Background())

	var readErr *SourceReadError
	require.True(t, errors.As(err, &readErr))
	assert.Equal(t, bad, readErr.Path)
	assert.Empty(t, trash.trashed)
}

func TestRunOutputWriteFailure(t *testing.T) {
	dir := t.TempDir()
	makeWorkbook(t, dir, "x_A_1.xlsx", "Sheet1")
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	trash := &fakeTrash{}
	_, err := newMerger(Options{InputDir: dir, OutputDir: blocker}, trash).Run(context.Background())

	var writeErr *OutputWriteError
	require.True(t, errors.As(err, &writeErr))
	assert.Empty(t, trash.trashed)
}

func TestRunBusy(t *testing.T) {
	dir := t.TempDir()
	makeWorkbook(t, dir, "x_A_1.xlsx", "Sheet1")

	held, err := filelock.Acquire(filepath.Join(dir, LockFileName))
	require.NoError(t, err)
	defer held.Release()

	_, err = newMerger(Options{InputDir: dir}, &fakeTrash{}).Run(context.Background())
	assert.True(t, errors.Is(err, ErrBusy))
}

func TestRunCanceledContext(t *testing.T) {
	dir := t.TempDir()
	makeWorkbook(t, dir, "x_A_1.xlsx", "Sheet1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newMerger(Options{InputDir: dir}, &fakeTrash{}).Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, result.Written)
}

// =============================================================================
// OPTIONS
// =============================================================================

func TestRunDryRun(t *testing.T) {
	dir := t.TempDir()
	makeWorkbook(t, dir, "x_B_2.xlsx", "Sheet1")
	makeWorkbook(t, dir, "x_A_1.xlsx", "Sheet1")

	trash := &fakeTrash{}
	result, err := newMerger(Options{InputDir: dir, DryRun: true}, trash).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.False(t, result.Written)
	assert.NoFileExists(t, result.OutputPath)
	assert.Empty(t, result.Cleanup)
	assert.Empty(t, trash.trashed)

	require.Len(t, result.Records, 2)
	assert.Equal(t, "A", result.Records[0].Name)
	assert.Equal(t, "B", result.Records[1].Name)
}

func TestRunPolicyB(t *testing.T) {
	dir := t.TempDir()
	makeWorkbook(t, dir, "fw_rule_Access_01.xlsx", "Sheet1")

	result, err := newMerger(Options{InputDir: dir, Policy: naming.PolicyB, DryRun: true}, &fakeTrash{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "rule_20250630140509.xlsx"), result.OutputPath)
}

func TestRunSeparateOutputDir(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "merged")
	makeWorkbook(t, in, "x_A_1.xlsx", "Sheet1")

	result, err := newMerger(Options{InputDir: in, OutputDir: out, Cleanup: cleanup.ModeNone}, &fakeTrash{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "Merged.xlsx"), result.OutputPath)
	assert.FileExists(t, result.OutputPath)
}

func TestRunMixedCSVAndWorkbook(t *testing.T) {
	dir := t.TempDir()
	makeWorkbook(t, dir, "r_Budget_2.xlsx", "Sheet1")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "r_Costs_1.csv"), []byte("item,amount\nrent,1200\n"), 0644))

	result, err := newMerger(Options{
		InputDir:   dir,
		Extensions: []string{".xlsx", ".csv"},
		Cleanup:    cleanup.ModeNone,
	}, &fakeTrash{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Costs", "Budget"}, sheetList(t, result.OutputPath))

	f, err := excelize.OpenFile(result.OutputPath)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue("Costs", "B2")
	require.NoError(t, err)
	assert.Equal(t, "1200", v)
}

func TestRunCopiesValuesFormatsAndPosition(t *testing.T) {
	dir := t.TempDir()
	src := excelize.NewFile()
	dateStyle, err := src.NewStyle(&excelize.Style{NumFmt: 14, Font: &excelize.Font{Bold: true}})
	require.NoError(t, err)
	require.NoError(t, src.SetCellValue("Sheet1", "C3", "Due"))
	require.NoError(t, src.SetCellValue("Sheet1", "D4", 45000))
	require.NoError(t, src.SetCellStyle("Sheet1", "D4", "D4", dateStyle))
	require.NoError(t, src.SetCellValue("Sheet1", "E4", 12.75))
	require.NoError(t, src.SaveAs(filepath.Join(dir, "a_b_Access_1.xlsx")))
	require.NoError(t, src.Close())

	result, err := newMerger(Options{InputDir: dir, Cleanup: cleanup.ModeNone}, &fakeTrash{}).Run(context.Background())
	require.NoError(t, err)

	f, err := excelize.OpenFile(result.OutputPath)
	require.NoError(t, err)
	defer f.Close()

	raw := excelize.Options{RawCellValue: true}
	value := func(cell string) string {
		v, err := f.GetCellValue("Access", cell, raw)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "Due", value("A1"))
	assert.Equal(t, "45000", value("B2"))
	assert.Equal(t, "12.75", value("C2"))
	assert.Empty(t, value("C3"))
	assert.Empty(t, value("D4"))

	styleID, err := f.GetCellStyle("Access", "B2")
	require.NoError(t, err)
	require.NotZero(t, styleID)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	assert.Equal(t, 14, style.NumFmt)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)

	cellType, err := f.GetCellType("Access", "C2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, cellType)
}

func TestRunMissingInputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "typo")

	result, err := newMerger(Options{InputDir: dir}, &fakeTrash{}).Run(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.False(t, errors.Is(err, ErrNoInput))
	require.NotNil(t, result)
	assert.NoDirExists(t, dir)
}

func TestRunInputDirIsAFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	_, err := newMerger(Options{InputDir: path}, &fakeTrash{}).Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}
