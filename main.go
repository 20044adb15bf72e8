// =============================================================================
// Workbook Merger - Main Entry Point
// =============================================================================
//
// This is the main entry point for the Workbook Merger CLI application.
// It delegates command execution to the cmd package.
//
// USAGE:
//   merger merge      - Merge every workbook in the input folder
//   merger history    - List recent merges
//   merger version    - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Core merge logic (not for external import)
//   - pkg/           : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/workbook-merger/cmd"
)

func main() {
	cmd.Execute()
}
