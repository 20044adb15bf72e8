// =============================================================================
// Workbook Merger - Version Command
// =============================================================================
//
// COMMAND USAGE:
//   merger version
//
// OUTPUT:
//   merger 1.2.0 (commit 3f2a9c1, built 2025-06-30)
//   go1.25.0 linux/amd64
//   sources: .xlsx .xlsm .xlsb .csv
//
// Version, Commit and BuildDate are stamped by the release build:
//   go build -ldflags "-X github.com/ginjaninja78/workbook-merger/cmd.Version=1.2.0"
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// supportedSources are the input types the merge command can read.
var supportedSources = []string{".xlsx", ".xlsm", ".xlsb", ".csv"}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func printVersion(out io.Writer) {
	fmt.Fprintf(out, "merger %s (commit %s, built %s)\n", Version, Commit, BuildDate)
	fmt.Fprintf(out, "%s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(out, "sources: %s\n", strings.Join(supportedSources, " "))
}
