// =============================================================================
// Workbook Merger - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands
// are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (merger)
//   ├── mergeCmd   (merger merge)
//   ├── historyCmd (merger history)
//   └── versionCmd (merger version)
//
// GLOBAL FLAGS:
//   --config   path to the YAML configuration file
//   --verbose  debug logging
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/workbook-merger/internal/config"
	"github.com/ginjaninja78/workbook-merger/internal/logger"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "merger",
	Short: "Workbook Merger - Combine every workbook in a folder into one",
	Long: `Workbook Merger collects the spreadsheet workbooks found in one folder,
copies all of their sheets into a single workbook and then moves the
source files to the recycle bin.

Sheets are named and ordered after the source file names:
  fw_rule_Access_20250101000000.xlsx
          ^^^^^^ ^^^^^^^^^^^^^^
          sheet  ordering token

Example Usage:
  merger merge                           # Merge ~/Downloads using config.yaml
  merger merge --prefix fw_rule_         # Only files starting with fw_rule_
  merger merge --dry-run                 # Show the planned sheet order
  merger merge --cleanup none            # Keep the source files
  merger history                         # List recent merges`,

	// Errors are printed once by Execute.
	SilenceErrors: true,
	SilenceUsage:  true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		config.DefaultConfigFile,
		"Path to the configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// newLogger creates the console logger for a command. --verbose wins over
// the configured level.
func newLogger(w io.Writer, level string) *logger.ConsoleLogger {
	if verbose {
		level = "debug"
	}
	return logger.NewConsoleLogger(w, level)
}
