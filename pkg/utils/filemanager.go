// =============================================================================
// Workbook Merger - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the merger, including:
//   - Workbook discovery in the input directory
//   - Output path construction
//   - Merge summary generation
//
// DISCOVERY RULES:
//   - Only the input directory itself is scanned (no recursion)
//   - Extensions are matched case-insensitively
//   - The prefix is matched literally (case-sensitive)
//   - Office owner files ("~$Book.xlsx") and hidden files are skipped
//   - Results are sorted by file name so runs are repeatable
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ownerFilePrefix marks the lock files Office keeps next to open workbooks.
const ownerFilePrefix = "~$"

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the merger.
type FileManager struct {
	// InputDir is the directory scanned for workbooks.
	InputDir string

	// OutputDir is the directory receiving the merged workbook.
	OutputDir string
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(inputDir, outputDir string) *FileManager {
	return &FileManager{
		InputDir:  inputDir,
		OutputDir: outputDir,
	}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureOutputDir creates the output directory if it doesn't exist.
func (fm *FileManager) EnsureOutputDir() error {
	if err := os.MkdirAll(fm.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", fm.OutputDir, err)
	}
	return nil
}

// OutputPath returns the path of a file named name inside the output directory.
func (fm *FileManager) OutputPath(name string) string {
	return filepath.Join(fm.OutputDir, name)
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverWorkbooks lists the workbooks directly inside the input directory.
//
// PARAMETERS:
//   - prefix: keep only files whose name starts with it. Empty keeps all.
//   - extensions: accepted extensions with the leading dot (".xlsx").
//
// RETURNS:
//   - The matching file paths, sorted by file name.
//   - An error if the directory cannot be read.
func (fm *FileManager) DiscoverWorkbooks(prefix string, extensions []string) ([]string, error) {
	entries, err := os.ReadDir(fm.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	var result []string
	for _, entry := range entries {
		name := entry.Name()
		mode := entry.Type()

		if !mode.IsRegular() && mode&os.ModeSymlink == 0 {
			continue
		}
		if strings.HasPrefix(name, ownerFilePrefix) || strings.HasPrefix(name, ".") {
			continue
		}
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if !hasExtension(name, extensions) {
			continue
		}

		path := filepath.Join(fm.InputDir, name)
		if mode&os.ModeSymlink != 0 {
			// Follow symlinks, but only to regular files.
			info, err := os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
		}

		result = append(result, path)
	}

	sort.Slice(result, func(i, j int) bool {
		return filepath.Base(result[i]) < filepath.Base(result[j])
	})

	return result, nil
}

// hasExtension reports whether name ends with one of extensions, ignoring case.
func hasExtension(name string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// BaseName returns the file name of path without directory and extension.
func BaseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// =============================================================================
// MERGE SUMMARY
// =============================================================================

// MergeSummary contains summary information about a merge run.
type MergeSummary struct {
	RunID      string
	StartTime  time.Time
	EndTime    time.Time
	InputDir   string
	OutputFile string
	DryRun     bool
	Sheets     []SummarySheet
	Cleanup    []SummaryCleanup
}

// SummarySheet describes one sheet of the merged workbook.
type SummarySheet struct {
	Name        string
	SourceFile  string
	SourceSheet string
	OrderKey    string
}

// SummaryCleanup describes what happened to one input file.
type SummaryCleanup struct {
	File   string
	Action string
	Error  string
}

// WriteSummaryLog writes a merge summary to a text file.
//
// PARAMETERS:
//   - summary: The merge summary.
//   - outputDir: The directory to write the summary file.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary MergeSummary, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", outputDir, err)
	}

	timestamp := summary.StartTime.Format("20060102_150405")
	summaryFileName := fmt.Sprintf("merge_summary_%s.txt", timestamp)
	summaryPath := filepath.Join(outputDir, summaryFileName)

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	failed := 0
	for _, c := range summary.Cleanup {
		if c.Error != "" {
			failed++
		}
	}

	output := summary.OutputFile
	if summary.DryRun {
		output += " (dry run, not written)"
	}

	duration := summary.EndTime.Sub(summary.StartTime)
	fmt.Fprintf(writer, "Workbook Merger - Merge Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Run ID:         %s\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n"+
		"  Input Dir:      %s\n"+
		"  Output File:    %s\n\n"+
		"Statistics:\n"+
		"  Sheets:          %d\n"+
		"  Input Files:     %d\n"+
		"  Cleanup Failed:  %d\n\n",
		summary.RunID,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		duration.String(),
		summary.InputDir,
		output,
		len(summary.Sheets),
		len(summary.Cleanup),
		failed)

	if len(summary.Sheets) > 0 {
		writer.WriteString("Sheets (in workbook order):\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for i, s := range summary.Sheets {
			fmt.Fprintf(writer, "  %3d. %-31s  %s [%s]  (%s)\n",
				i+1, s.Name, filepath.Base(s.SourceFile), s.SourceSheet, s.OrderKey)
		}
		writer.WriteString("\n")
	}

	if len(summary.Cleanup) > 0 {
		writer.WriteString("Input Files:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, c := range summary.Cleanup {
			status := "ok"
			if c.Error != "" {
				status = "FAILED: " + c.Error
			}
			fmt.Fprintf(writer, "  %-7s %s  %s\n", c.Action, filepath.Base(c.File), status)
		}
		writer.WriteString("\n")
	}

	writer.WriteString("================================================================================\n" +
		"End of Summary\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}

	return summaryPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
