// =============================================================================
// Workbook Merger - History Command
// =============================================================================
//
// This file defines the 'history' command, which lists recent merges from
// the run journal.
//
// COMMAND USAGE:
//   merger history [--limit N]
//
// OUTPUT:
//   2025-06-30 14:05:09  success   3 sheets  /home/me/Downloads/fw_rule.xlsx
//       ✓ trash fw_rule_Access_01.xlsx
//       ✗ trash fw_rule_NAT_02.xlsx: file in use
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/workbook-merger/internal/config"
	"github.com/ginjaninja78/workbook-merger/internal/journal"
	"github.com/ginjaninja78/workbook-merger/pkg/utils"
)

// historyLimit is the number of runs to list.
var historyLimit int

// historyCmd represents the 'history' command.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent merges",
	Long:  `List the most recent merges recorded in the run journal, newest first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHistory(cmd)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of runs to show")
}

// runHistory prints the recent runs of the journal.
func runHistory(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	path, err := cfg.JournalFile()
	if err != nil {
		return err
	}
	if !utils.FileExists(path) {
		fmt.Fprintf(out, "No runs recorded yet (%s).\n", path)
		return nil
	}

	store, err := journal.NewStore(path)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer store.Close()

	runs, err := store.Recent(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}

	for _, run := range runs {
		printRun(out, run)
	}
	return nil
}

// printRun prints one journal entry and its file outcomes.
func printRun(out io.Writer, run journal.Run) {
	target := run.OutputFile
	if target == "" {
		target = run.InputDir
	}

	fmt.Fprintf(out, "%s  %s  %3d sheets  %s\n",
		run.StartedAt.Local().Format("2006-01-02 15:04:05"),
		statusColor(run.Status).Sprintf("%-8s", run.Status),
		run.SheetCount,
		target)

	if run.Error != "" {
		fmt.Fprintf(out, "    %s\n", run.Error)
	}
	for _, f := range run.Files {
		if f.Error == "" {
			fmt.Fprintf(out, "    %s %s %s\n", okMark, f.Action, filepath.Base(f.Path))
		} else {
			fmt.Fprintf(out, "    %s %s %s: %s\n", failMark, f.Action, filepath.Base(f.Path), f.Error)
		}
	}
}

// statusColor picks the color of a run status.
func statusColor(status string) *color.Color {
	switch status {
	case journal.StatusSuccess:
		return color.New(color.FgGreen)
	case journal.StatusFailed:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgYellow)
	}
}
