package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
)

// Composite score label constants.
const (
	AlignedValue   = "Aligned"   // Aligned value
	OnTrackValue   = "On track"  // On track value
	DriftingValue  = "Drifting"  // Drifting value
	OffTrackValue  = "Off track" // Off track value
	UndefinedValue = "n/a"       // No scorable metric that day
)

// Color variables for console output.
var (
	AlignedColor  = color.New(color.FgGreen, color.Bold) // alignedColor represents a day that needs no change.
	OnTrackColor  = color.New(color.FgCyan)              // onTrackColor represents minor drift.
	DriftingColor = color.New(color.FgYellow)            // driftingColor represents standard caution, not bold.
	OffTrackColor = color.New(color.FgRed, color.Bold)   // offTrackColor represents standard danger.
)

// GetPlainLabel returns a plain text label for a composite score.
// A nil score has its own label, distinct from a score of zero.
func GetPlainLabel(score *float64) string {
	if score == nil {
		return UndefinedValue
	}
	switch {
	case *score >= 90:
		return AlignedValue
	case *score >= 75:
		return OnTrackValue
	case *score >= 50:
		return DriftingValue
	default:
		return OffTrackValue
	}
}

// GetColorLabel returns a colored text label for console output (table).
func GetColorLabel(score *float64) string {
	text := GetPlainLabel(score)

	switch text {
	case AlignedValue:
		return AlignedColor.Sprint(text)
	case OnTrackValue:
		return OnTrackColor.Sprint(text)
	case DriftingValue:
		return DriftingColor.Sprint(text)
	case OffTrackValue:
		return OffTrackColor.Sprint(text)
	default:
		return text
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. It falls back to os.Stdout when no path is given.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
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

// LogInfo writes a progress line to stderr so stdout stays machine readable.
func LogInfo(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
}

// homePath joins name onto the user's home directory, or the working directory as a fallback.
func homePath(name string) string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(homeDir, name)
}

// GetCacheDBFilePath returns the path to the SQLite DB file for artifact storage.
func GetCacheDBFilePath() string {
	return homePath(".vitals_cache.db")
}

// GetStoreDBFilePath returns the path to the SQLite DB file for client data.
func GetStoreDBFilePath() string {
	return homePath(".vitals_store.db")
}

// GetBadgerDir returns the directory of the Badger artifact store.
func GetBadgerDir() string {
	return homePath(".vitals_badger")
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

// LoadLocation resolves an IANA timezone name. An empty name yields nil,
// which means each timestamp keeps its own offset.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return loc, nil
}
