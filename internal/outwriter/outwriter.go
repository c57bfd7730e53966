// Package outwriter has output and writer logic.
package outwriter

import (
	"os"

	"github.com/huangsam/vitals/internal/contract"
	"golang.org/x/term"
)

// getTerminalWidth returns the configured width, the detected terminal width,
// or a conservative default when neither is available.
func getTerminalWidth(cfg *contract.Config) int {
	if cfg.Width > 0 {
		return cfg.Width
	}
	detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || detectedWidth <= 0 {
		return 80 // Narrow terminals and CI
	}
	return detectedWidth
}

// getMaxTextColumnWidth calculates the width left for a free-text column
// after fixedColumns other columns of roughly columnWidth characters each.
func getMaxTextColumnWidth(cfg *contract.Config, fixedColumns, columnWidth int) int {
	// Table borders, separators and padding
	baseWidth := fixedColumns*columnWidth + 10

	available := getTerminalWidth(cfg) - baseWidth
	if available < 15 {
		return 15
	}
	if available > 60 {
		return 60
	}
	return available
}

// truncateText shortens s to maxWidth runes, marking the cut with "...".
func truncateText(s string, maxWidth int) string {
	runes := []rune(s)
	if len(runes) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return string(runes[:maxWidth])
	}
	return string(runes[:maxWidth-3]) + "..."
}
