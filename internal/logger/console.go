// Package logger provides the console logger used by the merger.
//
// Every line is prefixed with an [HH:MM:SS] timestamp and the level. Levels
// below the configured one are dropped. When the writer is a terminal the
// level tag is colored.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// ConsoleLogger writes levelled, timestamped lines to a writer.
// It is safe for concurrent use.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
	now         func() time.Time
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive); anything
// else means "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: IsTerminal(writer),
		now:         time.Now,
	}
}

// IsTerminal reports whether w is a terminal that should receive colors.
// NO_COLOR and a non-TTY stdout both disable colors through color.NoColor.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	if color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Level returns the normalized minimum level.
func (cl *ConsoleLogger) Level() string {
	return cl.logLevel
}

// normalizeLogLevel converts a log level string to lowercase and validates it.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	switch normalized {
	case "trace", "debug", "info", "warn", "error":
		return normalized
	}
	return "info"
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// shouldLog checks if a message at the given level passes the filter.
func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// Trace logs a trace-level message.
func (cl *ConsoleLogger) Trace(msg string, args ...interface{}) {
	cl.logWithLevel("TRACE", msg, args...)
}

// Debug logs a debug-level message.
func (cl *ConsoleLogger) Debug(msg string, args ...interface{}) {
	cl.logWithLevel("DEBUG", msg, args...)
}

// Info logs an info-level message.
func (cl *ConsoleLogger) Info(msg string, args ...interface{}) {
	cl.logWithLevel("INFO", msg, args...)
}

// Warn logs a warning.
func (cl *ConsoleLogger) Warn(msg string, args ...interface{}) {
	cl.logWithLevel("WARN", msg, args...)
}

// Error logs an error.
func (cl *ConsoleLogger) Error(msg string, args ...interface{}) {
	cl.logWithLevel("ERROR", msg, args...)
}

// logWithLevel formats and writes one line if the level filter allows it.
func (cl *ConsoleLogger) logWithLevel(level, msg string, args ...interface{}) {
	if cl.writer == nil {
		return
	}
	if !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	message := msg
	if len(args) > 0 {
		message = fmt.Sprintf(msg, args...)
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := cl.now().Format("15:04:05")
	tag := level
	if cl.colorOutput {
		tag = colorForLevel(level).Sprint(level)
	}
	fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", ts, tag, message)
}

// colorForLevel returns the color of a level tag.
func colorForLevel(level string) *color.Color {
	switch level {
	case "TRACE":
		return color.New(color.FgHiBlack)
	case "DEBUG":
		return color.New(color.FgCyan)
	case "WARN":
		return color.New(color.FgYellow)
	case "ERROR":
		return color.New(color.FgRed)
	default:
		return color.New(color.FgBlue)
	}
}

// Nop is a logger that discards everything.
type Nop struct{}

func (Nop) Trace(string, ...interface{}) {}
func (Nop) Debug(string, ...interface{}) {}
func (Nop) Info(string, ...interface{})  {}
func (Nop) Warn(string, ...interface{})  {}
func (Nop) Error(string, ...interface{}) {}
