package report

import (
	"regexp"
	"strings"
)

// DefaultTableMarker selects the lines that carry results table cells
const DefaultTableMarker = "ResultsTable"

// lineSeparator matches the escaped "\r\n" text the scanner writes into the
// script as well as a real CR LF pair.
var lineSeparator = regexp.MustCompile(`\\r\\n|\r\n`)

// SplitLines splits the report script into its logical lines, in order.
func SplitLines(text string) []string {
	return lineSeparator.Split(text, -1)
}

// FilterLines returns the lines containing marker, in order.
func FilterLines(lines []string, marker string) []string {
	var out []string
	for _, line := range lines {
		if strings.Contains(line, marker) {
			out = append(out, line)
		}
	}
	return out
}
