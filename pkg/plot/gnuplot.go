// Package plot streams simulation results to an external gnuplot process.
package plot

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// Render plots the (times, values) series with lines. When pdfFile is
// non-empty the plot goes to that file through the pdf terminal; otherwise
// gnuplot's default interactive terminal is used.
func Render(times, values []float64, title, pdfFile string) error {
	if len(times) != len(values) {
		return errors.Errorf("mismatched series lengths (%d times, %d values)", len(times), len(values))
	}
	if len(times) == 0 {
		return errors.New("nothing to plot")
	}

	var script strings.Builder
	if pdfFile != "" {
		script.WriteString("set terminal pdf\n")
		fmt.Fprintf(&script, "set output '%s'\n", pdfFile)
	}
	fmt.Fprintf(&script, "set xrange [%g:%g]\n", times[0], times[len(times)-1])
	script.WriteString("set key left top\n")
	fmt.Fprintf(&script, "plot '-' with lines title '%s'\n", strings.ReplaceAll(title, "'", ""))
	for i := range times {
		fmt.Fprintf(&script, "%g %g\n", times[i], values[i])
	}
	script.WriteString("e\n")

	cmd := exec.Command("gnuplot", "-persist")
	cmd.Stdin = strings.NewReader(script.String())
	if out, err := cmd.CombinedOutput(); err != nil {
		return errors.Wrapf(err, "gnuplot failed: %s", strings.TrimSpace(string(out)))
	}
	return nil
}
