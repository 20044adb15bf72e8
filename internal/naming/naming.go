// =============================================================================
// Workbook Merger - Naming Rules
// =============================================================================
//
// This package derives every name the merger produces from the input file
// names. The file naming convention consumed is:
//
//   {anything}_{...}_{sheetBaseName}_{orderToken}.xlsx
//
// Example: fw_rule_Access_20250101000000.xlsx
//   tokens      = [fw rule Access 20250101000000]
//   sheet base  = "Access"          (second-to-last token)
//   order token = "20250101000000"  (last token)
//   policy A    = "fw_rule"         (all but the last two tokens)
//
// Fewer tokens than expected never fail: each rule has a documented fallback.
//
// =============================================================================

package naming

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// TokenSeparator splits file base names into tokens.
	TokenSeparator = "_"

	// TimestampLayout is yyyyMMddHHmmss.
	TimestampLayout = "20060102150405"

	// DefaultMergedName is used by policy A when the first file has fewer than 3 tokens.
	DefaultMergedName = "Merged"

	// MaxSheetNameLength is the Excel limit, counted in characters.
	MaxSheetNameLength = 31

	// Unranked is the rank of a sheet base name missing from the order table.
	Unranked = 999
)

// Policy selects how the output workbook name is derived.
type Policy string

const (
	// PolicyA joins all but the last two tokens, no timestamp.
	PolicyA Policy = "A"

	// PolicyB drops the first token and the last two, then appends a timestamp.
	PolicyB Policy = "B"
)

// =============================================================================
// FILE NAME PARSING
// =============================================================================

// Tokens splits a file base name (no extension) on "_".
// An empty base name yields a single empty token, matching strings.Split.
func Tokens(baseName string) []string {
	return strings.Split(baseName, TokenSeparator)
}

// ParseInputName extracts the sheet base name and order token from a file base name.
//
//   - sheetBase is the second-to-last token when there are at least 2 tokens,
//     otherwise the whole base name.
//   - orderToken is the last token (the whole base name when there are no
//     separators).
func ParseInputName(baseName string) (sheetBase, orderToken string) {
	tokens := Tokens(baseName)

	sheetBase = baseName
	if len(tokens) >= 2 {
		sheetBase = tokens[len(tokens)-2]
	}
	if len(tokens) >= 1 {
		orderToken = tokens[len(tokens)-1]
	}
	return sheetBase, orderToken
}

// MergedName derives the output workbook name (without extension) from the
// base name of the first discovered input file.
func MergedName(policy Policy, firstBaseName string, now time.Time) string {
	tokens := Tokens(firstBaseName)
	stamp := now.Format(TimestampLayout)

	switch policy {
	case PolicyB:
		if len(tokens) < 3 {
			return "Merged_" + stamp
		}
		head := strings.Join(tokens[1:len(tokens)-2], TokenSeparator)
		if head == "" {
			return "Merged_" + stamp
		}
		return head + TokenSeparator + stamp
	default:
		if len(tokens) < 3 {
			return DefaultMergedName
		}
		return strings.Join(tokens[:len(tokens)-2], TokenSeparator)
	}
}

// ParsePolicy converts a configuration value to a Policy.
func ParsePolicy(value string) (Policy, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "", "A":
		return PolicyA, nil
	case "B":
		return PolicyB, nil
	default:
		return "", fmt.Errorf("unknown naming policy %q (want A or B)", value)
	}
}

// =============================================================================
// SHEET NAMES
// =============================================================================

// SheetName builds the candidate name for a sheet before collision handling.
// A file with exactly one sheet contributes its base name alone; otherwise the
// original sheet name is appended.
func SheetName(sheetBase, originalSheet string, sheetCount int) string {
	if sheetCount == 1 {
		return sheetBase
	}
	return sheetBase + TokenSeparator + originalSheet
}

// Sanitize makes a candidate sheet name acceptable to Excel: forbidden
// characters become "_", surrounding apostrophes are dropped and the name is
// cut to MaxSheetNameLength characters. An empty result becomes "Sheet".
func Sanitize(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, name)
	name = strings.Trim(name, "'")
	name = truncate(name, MaxSheetNameLength)
	if name == "" {
		return "Sheet"
	}
	return name
}

// truncate cuts s to at most n characters.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// =============================================================================
// NAME REGISTRY
// =============================================================================

// Registry hands out unique sheet names for one merged workbook.
//
// Excel compares sheet names without regard to case, so "Access" and "access"
// are treated as the same name.
type Registry struct {
	taken map[string]struct{}
	names []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{taken: make(map[string]struct{})}
}

// Reserve sanitizes candidate and returns the first unused variant of it:
// the candidate itself, then candidate_1, candidate_2, ... tested in order.
// The returned name is recorded as taken.
func (r *Registry) Reserve(candidate string) string {
	name := Sanitize(candidate)
	if !r.has(name) {
		r.add(name)
		return name
	}

	for i := 1; ; i++ {
		suffix := fmt.Sprintf("%s%d", TokenSeparator, i)
		next := truncate(name, MaxSheetNameLength-utf8.RuneCountInString(suffix)) + suffix
		if !r.has(next) {
			r.add(next)
			return next
		}
	}
}

// Has reports whether name is already taken.
func (r *Registry) Has(name string) bool {
	return r.has(name)
}

// Names returns the reserved names in reservation order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of reserved names.
func (r *Registry) Len() int {
	return len(r.names)
}

func (r *Registry) has(name string) bool {
	_, ok := r.taken[strings.ToLower(name)]
	return ok
}

func (r *Registry) add(name string) {
	r.taken[strings.ToLower(name)] = struct{}{}
	r.names = append(r.names, name)
}

// =============================================================================
// DESIRED ORDER TABLE
// =============================================================================

// OrderTable ranks sheet base names by their position in a configured list.
type OrderTable struct {
	labels []string
	index  map[string]int
}

// NewOrderTable builds a table from an ordered list of labels.
// When a label appears twice its first position wins.
func NewOrderTable(labels []string) *OrderTable {
	t := &OrderTable{
		labels: append([]string(nil), labels...),
		index:  make(map[string]int, len(labels)),
	}
	for i, label := range labels {
		if _, exists := t.index[label]; !exists {
			t.index[label] = i
		}
	}
	return t
}

// Rank returns the index of sheetBase in the table, or Unranked.
// Lookups are exact (case-sensitive).
func (t *OrderTable) Rank(sheetBase string) int {
	if t == nil {
		return Unranked
	}
	if i, ok := t.index[sheetBase]; ok {
		return i
	}
	return Unranked
}

// Labels returns the configured labels in order.
func (t *OrderTable) Labels() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.labels...)
}
