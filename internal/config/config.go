// =============================================================================
// Workbook Merger - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing the merger settings.
//
// SOURCES (later sources win):
//   1. Built-in defaults (input directory = the user's Downloads folder)
//   2. The YAML configuration file (config.yaml)
//   3. Environment variables prefixed with MERGER_
//   4. Command-line flags (applied by the cmd package)
//
// LIFECYCLE:
//   Load()      reads the file and the environment.
//   Finalize()  fills defaults, expands "~" and validates. It must be called
//               after command-line overrides have been applied.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/workbook-merger/internal/validation"
)

// DefaultConfigFile is the configuration file looked up when --config is not given.
// A missing default file is not an error.
const DefaultConfigFile = "config.yaml"

// EnvPrefix is the prefix for environment overrides (MERGER_INPUT_DIR, ...).
const EnvPrefix = "MERGER"

// Cleanup modes.
const (
	CleanupTrash  = "trash"
	CleanupDelete = "delete"
	CleanupNone   = "none"
)

// Ordering modes.
const (
	OrderByToken = "token"
	OrderByRank  = "rank"
)

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config holds every setting of a merge run.
type Config struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned (non-recursively) for workbooks to merge.
	// Default: the user's Downloads folder.
	InputDir string `yaml:"input_dir" validate:"required"`

	// OutputDir receives the merged workbook.
	// Default: InputDir
	OutputDir string `yaml:"output_dir" validate:"required"`

	// =========================================================================
	// DISCOVERY SETTINGS
	// =========================================================================

	// Prefix keeps only files whose name starts with it. Empty keeps all.
	// Example: "merge_"
	Prefix string `yaml:"prefix"`

	// Extensions lists the accepted source extensions, case-insensitive.
	// Supported: .xlsx, .xlsm, .xlsb, .csv. Default: [".xlsx"]
	Extensions []string `yaml:"extensions" validate:"min=1,dive,oneof=.xlsx .xlsm .xlsb .csv"`

	// =========================================================================
	// NAMING AND ORDERING
	// =========================================================================

	// NamingPolicy selects how the output file name is built: "A" or "B".
	// Default: "A"
	NamingPolicy string `yaml:"naming_policy" validate:"oneof=A B"`

	// OrderBy selects the sheet ordering key: "token" (last file name token,
	// compared as text) or "rank" (position in DesiredOrder).
	// Default: "token"
	OrderBy string `yaml:"order_by" validate:"oneof=token rank"`

	// DesiredOrder is the rank table for OrderBy = "rank". Sheet base names
	// missing from it sort last.
	DesiredOrder []string `yaml:"desired_order"`

	// =========================================================================
	// CLEANUP
	// =========================================================================

	// CleanupMode is what happens to the source files after a successful
	// write: "trash", "delete" or "none".
	// Default: "trash"
	CleanupMode string `yaml:"cleanup_mode" validate:"oneof=trash delete none"`

	// =========================================================================
	// LOGGING AND RECORD KEEPING
	// =========================================================================

	// LogLevel controls console verbosity: trace, debug, info, warn, error.
	// Default: "info"
	LogLevel string `yaml:"log_level" validate:"oneof=trace debug info warn error"`

	// JournalPath is the SQLite database recording every run.
	// Default: <user config dir>/workbook-merger/journal.db
	JournalPath string `yaml:"journal_path"`

	// DisableJournal turns the run journal off.
	DisableJournal bool `yaml:"disable_journal"`

	// SummaryDir, when set, receives a text summary of each run.
	SummaryDir string `yaml:"summary_dir"`
}

// envOverrides mirrors the Config fields that can be set from the environment.
// Empty values leave the file setting untouched.
type envOverrides struct {
	InputDir       string   `envconfig:"INPUT_DIR"`
	OutputDir      string   `envconfig:"OUTPUT_DIR"`
	Prefix         string   `envconfig:"PREFIX"`
	Extensions     []string `envconfig:"EXTENSIONS"`
	NamingPolicy   string   `envconfig:"NAMING_POLICY"`
	OrderBy        string   `envconfig:"ORDER_BY"`
	DesiredOrder   []string `envconfig:"DESIRED_ORDER"`
	CleanupMode    string   `envconfig:"CLEANUP_MODE"`
	LogLevel       string   `envconfig:"LOG_LEVEL"`
	JournalPath    string   `envconfig:"JOURNAL_PATH"`
	DisableJournal bool     `envconfig:"DISABLE_JOURNAL"`
	SummaryDir     string   `envconfig:"SUMMARY_DIR"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Load reads the configuration file (if present) and the environment.
//
// PARAMETERS:
//   - configPath: path to the YAML file. When it equals DefaultConfigFile
//     and the file does not exist, defaults are used.
//
// RETURNS:
//   - The loaded, not yet finalized configuration.
//   - An error if the file cannot be read or parsed.
func Load(configPath string) (*Config, error) {
	var config Config

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &config); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
			}
		case errors.Is(err, fs.ErrNotExist) && configPath == DefaultConfigFile:
			// Optional default file.
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}

	return &config, nil
}

// applyEnv overlays MERGER_* environment variables.
func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to load config from env: %w", err)
	}

	setString(&c.InputDir, env.InputDir)
	setString(&c.OutputDir, env.OutputDir)
	setString(&c.Prefix, env.Prefix)
	setString(&c.NamingPolicy, env.NamingPolicy)
	setString(&c.OrderBy, env.OrderBy)
	setString(&c.CleanupMode, env.CleanupMode)
	setString(&c.LogLevel, env.LogLevel)
	setString(&c.JournalPath, env.JournalPath)
	setString(&c.SummaryDir, env.SummaryDir)
	if len(env.Extensions) > 0 {
		c.Extensions = env.Extensions
	}
	if len(env.DesiredOrder) > 0 {
		c.DesiredOrder = env.DesiredOrder
	}
	if env.DisableJournal {
		c.DisableJournal = true
	}
	return nil
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

// Finalize applies defaults, expands paths and validates the configuration.
func (c *Config) Finalize() error {
	if err := c.applyDefaults(); err != nil {
		return err
	}
	if err := c.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() error {
	if c.InputDir == "" {
		dir, err := DefaultInputDir()
		if err != nil {
			return err
		}
		c.InputDir = dir
	}

	var err error
	if c.InputDir, err = expandHome(c.InputDir); err != nil {
		return err
	}
	if c.OutputDir == "" {
		c.OutputDir = c.InputDir
	}
	if c.OutputDir, err = expandHome(c.OutputDir); err != nil {
		return err
	}
	if c.SummaryDir, err = expandHome(c.SummaryDir); err != nil {
		return err
	}

	if len(c.Extensions) == 0 {
		c.Extensions = []string{".xlsx"}
	}
	for i, ext := range c.Extensions {
		c.Extensions[i] = strings.ToLower(strings.TrimSpace(ext))
	}

	c.NamingPolicy = strings.ToUpper(strings.TrimSpace(c.NamingPolicy))
	if c.NamingPolicy == "" {
		c.NamingPolicy = "A"
	}
	c.OrderBy = strings.ToLower(strings.TrimSpace(c.OrderBy))
	if c.OrderBy == "" {
		c.OrderBy = OrderByToken
	}
	c.CleanupMode = strings.ToLower(strings.TrimSpace(c.CleanupMode))
	if c.CleanupMode == "" {
		c.CleanupMode = CleanupTrash
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if !c.DisableJournal {
		path, err := c.JournalFile()
		if err != nil {
			// No per-user config directory: run without a journal.
			c.DisableJournal = true
		}
		c.JournalPath = path
	}

	return nil
}

// validate checks the struct rules and that the input directory exists.
func (c *Config) validate() error {
	return validation.Join(
		validation.Struct(c),
		validation.Directory("input_dir", c.InputDir),
	)
}

// =============================================================================
// PATH HELPERS
// =============================================================================

// DefaultInputDir returns the current user's Downloads folder.
func DefaultInputDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, "Downloads"), nil
}

// DefaultJournalPath returns <user config dir>/workbook-merger/journal.db.
func DefaultJournalPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, "workbook-merger", "journal.db"), nil
}

// JournalFile returns the expanded journal path, falling back to
// DefaultJournalPath. It does not require Finalize.
func (c *Config) JournalFile() (string, error) {
	if c.JournalPath == "" {
		return DefaultJournalPath()
	}
	return expandHome(c.JournalPath)
}

// expandHome replaces a leading "~" with the user's home directory.
func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to expand %s: %w", path, err)
	}
	return filepath.Join(home, path[1:]), nil
}

// HasExtension reports whether ext (with dot, any case) is accepted.
func (c *Config) HasExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range c.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}
