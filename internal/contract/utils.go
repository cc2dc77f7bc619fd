package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Exit codes returned by the CLI.
const (
	ExitOK        = 0
	ExitViolation = 1
	ExitError     = 2
)

// Status label constants.
const (
	OKValue      = "OK"
	BlockedValue = "BLOCKED"
	WarnValue    = "WARN"
)

// Color variables for console output.
var (
	BlockedColor = color.New(color.FgRed, color.Bold) // hard failure
	WarnColor    = color.New(color.FgYellow)          // caution, not bold
	OKColor      = color.New(color.FgGreen)           // passed
	InfoColor    = color.New(color.FgCyan)            // informational
)

// GetPlainStatus returns the plain status label for a decision.
func GetPlainStatus(allowed bool) string {
	if allowed {
		return OKValue
	}
	return BlockedValue
}

// GetColorStatus returns a colored status label for console output (table).
func GetColorStatus(allowed bool) string {
	text := GetPlainStatus(allowed)
	if allowed {
		return OKColor.Sprint(text)
	}
	return BlockedColor.Sprint(text)
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. It falls back to os.Stdout when the path is empty.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(ExitError)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// LogInfo logs a progress message to stderr when verbose output is enabled.
func LogInfo(cfg *Config, format string, args ...any) {
	if cfg == nil || !cfg.Verbose {
		return
	}
	_, _ = fmt.Fprintf(os.Stderr, "[safeupdate] "+format+"\n", args...)
}

// GetCacheDBFilePath returns the path to the SQLite DB file for owner cache storage.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".safeupdate_cache.db"
	}
	return filepath.Join(homeDir, ".safeupdate_cache.db")
}

// GetHistoryDBFilePath returns the path to the SQLite DB file for run history storage.
func GetHistoryDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".safeupdate_history.db"
	}
	return filepath.Join(homeDir, ".safeupdate_history.db")
}

// GetGlobalConfigPath returns the path of the per-user config file.
func GetGlobalConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ConfigFileName)
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}

// ResolveColor turns a --color value into a decision. "auto" and the empty
// string enable colors only when stdout is a terminal.
func ResolveColor(s string) (bool, error) {
	if s == "" || strings.EqualFold(s, "auto") {
		return IsTerminal(os.Stdout), nil
	}
	return ParseBoolString(s)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
