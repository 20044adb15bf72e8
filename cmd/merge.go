// =============================================================================
// Workbook Merger - Merge Command
// =============================================================================
//
// This file defines the 'merge' command, which runs the whole pipeline on
// the input folder.
//
// COMMAND USAGE:
//   merger merge [flags]
//
// FLAGS (override config.yaml and MERGER_* variables):
//   --input-dir   : Folder to scan (default: ~/Downloads)
//   --output-dir  : Folder for the merged workbook (default: input dir)
//   --prefix      : Only merge files whose name starts with this
//   --cleanup     : trash | delete | none
//   --naming      : A | B
//   --order       : token | rank
//   --dry-run     : Show the planned sheets without writing anything
//   --no-journal  : Do not record this run
//
// EXIT STATUS:
//   0 on success, also when no file matched or a cleanup step failed.
//   1 when the configuration is invalid, an input cannot be read or the
//   merged workbook cannot be written.
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ginjaninja78/workbook-merger/internal/cleanup"
	"github.com/ginjaninja78/workbook-merger/internal/config"
	"github.com/ginjaninja78/workbook-merger/internal/journal"
	"github.com/ginjaninja78/workbook-merger/internal/logger"
	"github.com/ginjaninja78/workbook-merger/internal/merger"
	"github.com/ginjaninja78/workbook-merger/internal/naming"
	"github.com/ginjaninja78/workbook-merger/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	inputDir     string
	outputDir    string
	prefix       string
	cleanupMode  string
	namingPolicy string
	orderBy      string
	dryRun       bool
	noJournal    bool
)

var (
	okMark   = color.New(color.FgGreen).Sprint("✓")
	failMark = color.New(color.FgRed).Sprint("✗")
)

// =============================================================================
// MERGE COMMAND DEFINITION
// =============================================================================

// mergeCmd represents the 'merge' command.
var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge every workbook in the input folder into one workbook",
	Long: `The merge command scans the input folder for workbooks, copies every sheet
into a new workbook and then cleans up the source files.

Sheet names come from the second-to-last "_" token of each file name; files
with several sheets add the original sheet name. Sheets are ordered by the
last token of the file name, or by the desired_order list with --order rank.

The source files are only cleaned up after the merged workbook was written.
A file that cannot be cleaned up is reported and left in place.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runMerge(cmd)
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.AddCommand(mergeCmd)

	flags := mergeCmd.Flags()
	flags.StringVar(&inputDir, "input-dir", "", "Folder to scan for workbooks (default: ~/Downloads)")
	flags.StringVar(&outputDir, "output-dir", "", "Folder for the merged workbook (default: input folder)")
	flags.StringVar(&prefix, "prefix", "", "Only merge files whose name starts with this prefix")
	flags.StringVar(&cleanupMode, "cleanup", "", "What to do with the source files: trash, delete or none")
	flags.StringVar(&namingPolicy, "naming", "", "Output naming policy: A or B")
	flags.StringVar(&orderBy, "order", "", "Sheet ordering: token or rank")
	flags.BoolVar(&dryRun, "dry-run", false, "Show the planned sheets without writing or cleaning up")
	flags.BoolVar(&noJournal, "no-journal", false, "Do not record this run in the journal")
}

// =============================================================================
// MAIN MERGE FUNCTION
// =============================================================================

// runMerge loads the configuration, runs the merger and reports the result.
func runMerge(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	applyMergeFlags(cmd.Flags(), cfg)
	if err := cfg.Finalize(); err != nil {
		return err
	}

	log := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	log.Debug("Input: %s, output: %s, prefix: %q", cfg.InputDir, cfg.OutputDir, cfg.Prefix)

	fmt.Fprintln(out, "=== Workbook Merger ===")

	// =========================================================================
	// STEP 2: RUN THE MERGE
	// =========================================================================

	policy, err := naming.ParsePolicy(cfg.NamingPolicy)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	m := merger.New(mergerOptions(cfg, policy), merger.WithLogger(log))
	result, runErr := m.Run(ctx)

	// =========================================================================
	// STEP 3: RECORD THE RUN
	// =========================================================================

	if !cfg.DisableJournal {
		if err := recordRun(ctx, cfg.JournalPath, cfg.InputDir, result, runErr); err != nil {
			log.Warn("Failed to record run in journal: %v", err)
		}
	}

	if cfg.SummaryDir != "" && len(result.Inputs) > 0 && runErr == nil {
		path, err := utils.WriteSummaryLog(buildSummary(cfg.InputDir, result), cfg.SummaryDir)
		if err != nil {
			log.Warn("Failed to write summary: %v", err)
		} else {
			log.Info("Summary written to %s", path)
		}
	}

	// =========================================================================
	// STEP 4: REPORT
	// =========================================================================

	switch {
	case errors.Is(runErr, merger.ErrNoInput):
		fmt.Fprintf(out, "No matching files found in %s", cfg.InputDir)
		if cfg.Prefix != "" {
			fmt.Fprintf(out, " (prefix %q)", cfg.Prefix)
		}
		fmt.Fprintln(out, ". Nothing to merge.")
		return nil
	case runErr != nil:
		return runErr
	}

	printResult(out, result)
	return nil
}

// applyMergeFlags overrides configuration values with the flags the user set.
func applyMergeFlags(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed("input-dir") {
		cfg.InputDir = inputDir
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = outputDir
	}
	if flags.Changed("prefix") {
		cfg.Prefix = prefix
	}
	if flags.Changed("cleanup") {
		cfg.CleanupMode = cleanupMode
	}
	if flags.Changed("naming") {
		cfg.NamingPolicy = namingPolicy
	}
	if flags.Changed("order") {
		cfg.OrderBy = orderBy
	}
	if flags.Changed("no-journal") && noJournal {
		cfg.DisableJournal = true
	}
}

// mergerOptions maps a finalized configuration to merger options.
func mergerOptions(cfg *config.Config, policy naming.Policy) merger.Options {
	orderMode := merger.OrderByToken
	if cfg.OrderBy == config.OrderByRank {
		orderMode = merger.OrderByRank
	}
	return merger.Options{
		InputDir:     cfg.InputDir,
		OutputDir:    cfg.OutputDir,
		Prefix:       cfg.Prefix,
		Extensions:   cfg.Extensions,
		Policy:       policy,
		OrderBy:      orderMode,
		DesiredOrder: cfg.DesiredOrder,
		Cleanup:      cleanup.Mode(cfg.CleanupMode),
		DryRun:       dryRun,
	}
}

// =============================================================================
// OUTPUT
// =============================================================================

// printResult prints the sheet list and the cleanup outcome of a run.
func printResult(out io.Writer, result *merger.Result) {
	if result.DryRun {
		fmt.Fprintf(out, "Dry run: %d sheet(s) from %d file(s) would be written to %s\n",
			len(result.Records), len(result.Inputs), result.OutputPath)
	} else {
		fmt.Fprintf(out, "Merged %d sheet(s) from %d file(s)\n", len(result.Records), len(result.Inputs))
	}

	for i, r := range result.Records {
		fmt.Fprintf(out, "  %3d. %s  %s [%s]\n",
			i+1, runewidth.FillRight(r.Name, naming.MaxSheetNameLength), filepath.Base(r.Origin.Path), r.OriginSheet)
	}

	if result.DryRun {
		return
	}

	if len(result.Cleanup) > 0 {
		fmt.Fprintln(out, "\nCleanup:")
	}
	for _, o := range result.Cleanup {
		name := filepath.Base(o.File)
		if o.OK() {
			fmt.Fprintf(out, "  %s %s %s\n", okMark, o.Action, name)
		} else {
			fmt.Fprintf(out, "  %s %s %s: %v\n", failMark, o.Action, name, o.Err)
		}
	}

	fmt.Fprintf(out, "\n=== Merge Complete ===\nOutput: %s\n", result.OutputPath)
	if failed := len(result.CleanupFailures()); failed > 0 {
		fmt.Fprintf(out, "%d file(s) could not be cleaned up and were left in place.\n", failed)
	}
}

// =============================================================================
// RECORD KEEPING
// =============================================================================

// recordRun stores the run in the journal.
func recordRun(ctx context.Context, dbPath, inputDir string, result *merger.Result, runErr error) error {
	store, err := journal.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	// Record even when the merge itself was interrupted.
	return store.Record(context.WithoutCancel(ctx), journalRun(inputDir, result, runErr))
}

// journalRun converts a merge result to a journal entry.
func journalRun(inputDir string, result *merger.Result, runErr error) *journal.Run {
	run := &journal.Run{
		ID:         result.RunID,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
		InputDir:   inputDir,
		OutputFile: result.OutputPath,
		SheetCount: len(result.Records),
		FileCount:  len(result.Inputs),
	}

	switch {
	case errors.Is(runErr, merger.ErrNoInput):
		run.Status = journal.StatusNoInput
	case runErr != nil:
		run.Status = journal.StatusFailed
		run.Error = runErr.Error()
	case result.DryRun:
		run.Status = journal.StatusDryRun
	default:
		run.Status = journal.StatusSuccess
	}

	for _, o := range result.Cleanup {
		f := journal.FileOutcome{Path: o.File, Action: string(o.Action)}
		if o.Err != nil {
			f.Error = o.Err.Error()
		}
		run.Files = append(run.Files, f)
	}
	return run
}

// buildSummary converts a merge result to the text summary model.
func buildSummary(inputDir string, result *merger.Result) utils.MergeSummary {
	summary := utils.MergeSummary{
		RunID:      result.RunID,
		StartTime:  result.StartedAt,
		EndTime:    result.FinishedAt,
		InputDir:   inputDir,
		OutputFile: result.OutputPath,
		DryRun:     result.DryRun,
	}
	for _, r := range result.Records {
		summary.Sheets = append(summary.Sheets, utils.SummarySheet{
			Name:        r.Name,
			SourceFile:  r.Origin.Path,
			SourceSheet: r.OriginSheet,
			OrderKey:    r.Key.String(),
		})
	}
	for _, o := range result.Cleanup {
		c := utils.SummaryCleanup{File: o.File, Action: string(o.Action)}
		if o.Err != nil {
			c.Error = o.Err.Error()
		}
		summary.Cleanup = append(summary.Cleanup, c)
	}
	return summary
}

// compile-time check that the console logger satisfies the merger's interface.
var _ merger.Logger = (*logger.ConsoleLogger)(nil)
