package minifier

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// fileResult is one row of the size report.
type fileResult struct {
	name  string
	stats ProcessStats
}

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	shrunkColor = color.New(color.FgGreen)
)

func kib(n int) string {
	return fmt.Sprintf("%7.2fKiB", float64(n)/1024.0)
}

// printReport writes the right-aligned filename/origin/minify/brotli table.
// A file whose size didn't change prints ---KiB in the minify column.
func printReport(w io.Writer, results []fileResult) {
	nameWidth := len("filename")
	for _, r := range results {
		if len(r.name) > nameWidth {
			nameWidth = len(r.name)
		}
	}

	fmt.Fprintln(w, headerColor.Sprintf("%*s: %10s %10s %10s",
		nameWidth, "filename", "origin", "minify", "brotli"))
	for _, r := range results {
		minified := fmt.Sprintf("%10s", "---KiB")
		if r.stats.MinifiedSize != nil {
			minified = shrunkColor.Sprint(kib(*r.stats.MinifiedSize))
		}
		fmt.Fprintf(w, "%*s: %s %s %s\n",
			nameWidth, r.name,
			kib(r.stats.OriginSize),
			minified,
			kib(r.stats.BrotliedSize),
		)
	}
}
