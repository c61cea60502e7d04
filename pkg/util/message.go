package util

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

	// Messages go to stderr so simulation data on stdout stays clean.
	Output io.Writer = os.Stderr
)

// Warnf prints a non-fatal diagnostic. location identifies the circuit or
// component emitting it and may be empty.
func Warnf(location, format string, args ...interface{}) {
	printMessage(warnStyle.Render("Warning:"), location, format, args...)
}

// Errorf prints a fatal diagnostic. The caller still returns the error
// through the normal channels; this is only for surfacing context the error
// chain cannot carry (matching the reference tool's console reporting).
func Errorf(location, format string, args ...interface{}) {
	printMessage(errorStyle.Render("Error:"), location, format, args...)
}

func printMessage(label, location, format string, args ...interface{}) {
	if location != "" {
		fmt.Fprintf(Output, "%s in %s: %s\n", label, location, fmt.Sprintf(format, args...))
		return
	}
	fmt.Fprintf(Output, "%s %s\n", label, fmt.Sprintf(format, args...))
}
