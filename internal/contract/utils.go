package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/huangsam/actimerge/schema"
)

// Color variables for console output.
var (
	CriticalColor = color.New(color.FgRed, color.Bold) // mostly imputed
	HeavyColor    = color.New(color.FgMagenta, color.Bold)
	LightColor    = color.New(color.FgYellow)
	CleanColor    = color.New(color.FgCyan)
)

// GetColorLabel returns a colored imputation label for console output (table).
// It uses schema.GetPlainLabel to determine the string, and then applies the appropriate color.
func GetColorLabel(share float64) string {
	text := schema.GetPlainLabel(share)

	switch text {
	case schema.CriticalLabel:
		return CriticalColor.Sprint(text)
	case schema.HeavyLabel:
		return HeavyColor.Sprint(text)
	case schema.LightLabel:
		return LightColor.Sprint(text)
	default:
		return CleanColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output.
// An empty path means os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// ExportPath returns the file written for one variant: the prefix, the
// variant suffix and the format extension, e.g. "out/p01_imputed.csv".
func ExportPath(prefix string, variant schema.Variant, format schema.ExportFormat) string {
	return prefix + string(variant) + "." + string(format)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetRunDBFilePath returns the path to the SQLite DB file for the run ledger.
func GetRunDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".actimerge_runs.db"
	}
	return filepath.Join(homeDir, ".actimerge_runs.db")
}

// TruncatePath truncates a file path to a maximum width with ellipsis prefix.
// Requires maxWidth > 3 to ensure there's space for both the "..." prefix and at least one character of content.
func TruncatePath(path string, maxWidth int) string {
	runes := []rune(path)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return path
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
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
