// =============================================================================
// Workbook Merger - Merger Module
// =============================================================================
//
// This module contains the core merge logic. It orchestrates the whole
// pipeline for one input directory, from discovery to cleanup.
//
// MERGE PIPELINE:
//   1. Lock the input directory against a concurrent merge
//   2. Discover the input workbooks
//   3. Derive the output file name from the first input
//   4. Read every input and add its sheets to the plan
//   5. Sort the sheets by ordering key
//   6. Write the merged workbook
//   7. Clean up the input files
//
// FAILURES:
//   Steps 2 to 6 abort the run. Nothing is written before step 6, and
//   nothing is cleaned up unless step 6 succeeded. Cleanup failures are
//   reported per file and never fail the run.
//
// =============================================================================

package merger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/workbook-merger/internal/cleanup"
	"github.com/ginjaninja78/workbook-merger/internal/csvparser"
	"github.com/ginjaninja78/workbook-merger/internal/filelock"
	"github.com/ginjaninja78/workbook-merger/internal/naming"
	"github.com/ginjaninja78/workbook-merger/internal/types"
	"github.com/ginjaninja78/workbook-merger/internal/xlsbparser"
	"github.com/ginjaninja78/workbook-merger/internal/xlsxparser"
	"github.com/ginjaninja78/workbook-merger/internal/xlsxwriter"
	"github.com/ginjaninja78/workbook-merger/pkg/utils"
)

// LockFileName is created in the input directory while a merge runs.
// The leading dot keeps it out of discovery.
const LockFileName = ".workbook-merger.lock"

// Ordering modes.
const (
	OrderByToken = "token"
	OrderByRank  = "rank"
)

// =============================================================================
// OPTIONS AND RESULT
// =============================================================================

// Options describes one merge run.
type Options struct {
	// InputDir is scanned for workbooks.
	InputDir string

	// OutputDir receives the merged workbook.
	OutputDir string

	// Prefix filters input file names. Empty keeps all.
	Prefix string

	// Extensions are the accepted input extensions (".xlsx", ".xlsm", ".xlsb", ".csv").
	Extensions []string

	// Policy selects the output file naming rule.
	Policy naming.Policy

	// OrderBy is OrderByToken or OrderByRank.
	OrderBy string

	// DesiredOrder is the rank table used with OrderByRank.
	DesiredOrder []string

	// Cleanup is what happens to the inputs after a successful write.
	Cleanup cleanup.Mode

	// DryRun stops after sorting: nothing is written or cleaned up.
	DryRun bool
}

// Result is the outcome of a run. Run returns it even on failure, filled in
// as far as the run got.
type Result struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	// OutputPath is the merged workbook (planned path on a dry run).
	OutputPath string

	// Inputs are the discovered files in discovery order.
	Inputs []types.InputFile

	// Records are the sheets in output order.
	Records []types.SheetRecord

	// Cleanup has one outcome per input, in discovery order.
	Cleanup []types.CleanupOutcome

	// Written is true once the merged workbook is on disk.
	Written bool

	DryRun bool
}

// CleanupFailures returns the cleanup outcomes that failed.
func (r *Result) CleanupFailures() []types.CleanupOutcome {
	return cleanup.Failed(r.Cleanup)
}

// =============================================================================
// MERGER
// =============================================================================

// Logger is the logging interface the merger writes progress to.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// Merger runs the merge pipeline.
type Merger struct {
	opts    Options
	logger  Logger
	trasher cleanup.Trasher
	now     func() time.Time
}

// Option configures a Merger.
type Option func(*Merger)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l Logger) Option {
	return func(m *Merger) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithTrasher replaces the system recycle bin.
func WithTrasher(t cleanup.Trasher) Option {
	return func(m *Merger) {
		m.trasher = t
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Merger) {
		m.now = now
	}
}

// New creates a Merger.
func New(opts Options, options ...Option) *Merger {
	if opts.OutputDir == "" {
		opts.OutputDir = opts.InputDir
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{xlsxwriter.Extension}
	}
	if opts.Policy == "" {
		opts.Policy = naming.PolicyA
	}
	if opts.Cleanup == "" {
		opts.Cleanup = cleanup.ModeTrash
	}

	m := &Merger{
		opts:   opts,
		logger: nopLogger{},
		now:    time.Now,
	}
	for _, o := range options {
		o(m)
	}
	return m
}

// Run executes the pipeline.
//
// RETURNS:
//   - The run result (never nil).
//   - ErrNoInput, ErrBusy, *SourceReadError, *OutputWriteError or a context
//     error. Cleanup failures are not errors; see Result.Cleanup.
func (m *Merger) Run(ctx context.Context) (*Result, error) {
	result := &Result{
		RunID:     uuid.NewString(),
		StartedAt: m.now(),
		DryRun:    m.opts.DryRun,
	}
	err := m.run(ctx, result)
	result.FinishedAt = m.now()
	return result, err
}

func (m *Merger) run(ctx context.Context, result *Result) error {
	// =========================================================================
	// STEP 1: LOCK THE INPUT DIRECTORY
	// =========================================================================

	// The lock would create a missing folder, so a mistyped path is caught first.
	if err := checkInputDir(m.opts.InputDir); err != nil {
		return err
	}

	lock, err := filelock.Acquire(filepath.Join(m.opts.InputDir, LockFileName))
	if err != nil {
		if errors.Is(err, filelock.ErrLocked) {
			return ErrBusy
		}
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			m.logger.Warn("Failed to release lock: %v", err)
		}
	}()

	// =========================================================================
	// STEP 2: DISCOVER INPUTS
	// =========================================================================

	fm := utils.NewFileManager(m.opts.InputDir, m.opts.OutputDir)
	paths, err := fm.DiscoverWorkbooks(m.opts.Prefix, m.opts.Extensions)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		m.logger.Info("No files matching prefix %q in %s", m.opts.Prefix, m.opts.InputDir)
		return ErrNoInput
	}

	result.Inputs = make([]types.InputFile, len(paths))
	for i, p := range paths {
		base := utils.BaseName(p)
		result.Inputs[i] = types.InputFile{Path: p, BaseName: base, Tokens: naming.Tokens(base)}
	}
	m.logger.Info("Found %d file(s) to merge", len(paths))

	// =========================================================================
	// STEP 3: NAME THE OUTPUT
	// =========================================================================

	mergedName := naming.MergedName(m.opts.Policy, result.Inputs[0].BaseName, result.StartedAt)
	result.OutputPath = fm.OutputPath(mergedName + xlsxwriter.Extension)
	m.logger.Debug("Output file: %s", result.OutputPath)

	// =========================================================================
	// STEP 4: READ INPUTS
	// =========================================================================

	var order *naming.OrderTable
	if m.opts.OrderBy == OrderByRank {
		order = naming.NewOrderTable(m.opts.DesiredOrder)
	}
	plan := NewPlan(order)

	for _, input := range result.Inputs {
		if err := ctx.Err(); err != nil {
			return err
		}

		wb, err := readSource(input.Path)
		if err != nil {
			return &SourceReadError{Path: input.Path, Err: err}
		}

		before := plan.Len()
		plan.Add(input, wb)
		for _, r := range plan.Records[before:] {
			m.logger.Debug("%s [%s] -> %s (%s)", filepath.Base(input.Path), r.OriginSheet, r.Name, r.Key)
		}
	}

	// =========================================================================
	// STEP 5: SORT
	// =========================================================================

	plan.Sort()
	result.Records = plan.Records

	if m.opts.DryRun {
		m.logger.Info("Dry run: %d sheet(s) planned, nothing written", plan.Len())
		return nil
	}

	// =========================================================================
	// STEP 6: WRITE
	// =========================================================================

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fm.EnsureOutputDir(); err != nil {
		return &OutputWriteError{Path: result.OutputPath, Err: err}
	}
	if err := xlsxwriter.Write(result.OutputPath, plan.Records); err != nil {
		return &OutputWriteError{Path: result.OutputPath, Err: err}
	}
	result.Written = true
	m.logger.Info("Wrote %d sheet(s) to %s", plan.Len(), result.OutputPath)

	// =========================================================================
	// STEP 7: CLEAN UP
	// =========================================================================

	cleaner := cleanup.New(m.opts.Cleanup, m.trasher)
	result.Cleanup = cleaner.Run(paths, result.OutputPath)
	for _, o := range result.Cleanup {
		if o.OK() {
			m.logger.Debug("%s: %s", o.Action, filepath.Base(o.File))
		} else {
			m.logger.Warn("Cleanup of %s failed: %v", filepath.Base(o.File), o.Err)
		}
	}

	return nil
}

// checkInputDir verifies that dir is an existing directory.
func checkInputDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("input directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("input directory %s is not a directory", dir)
	}
	return nil
}

// readSource reads an input file with the parser matching its extension.
func readSource(path string) (*types.SourceWorkbook, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return csvparser.Parse(path)
	case ".xlsx", ".xlsm":
		return xlsxparser.Parse(path)
	case ".xlsb":
		return xlsbparser.Parse(path)
	default:
		return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
}

// nopLogger discards everything.
type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
