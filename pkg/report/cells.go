package report

import (
	"regexp"
	"strconv"
)

// Cell is one positional assignment of the results table script.
//
// The script writes cells as ResultsTable[ c][ r] = "v": the first index is
// the logical column and the second the logical row. Row 0 holds the column
// headers.
type Cell struct {
	Column int
	Row    int
	Raw    string
}

// cellPattern matches [ c][ r] followed by a quoted value.
var cellPattern = regexp.MustCompile(`\[\s*(\d+)\s*\]\s*\[\s*(\d+)\s*\]\s*=?\s*"([^"]*)"`)

// MatchCells extracts every cell assignment from lines, in order of
// appearance.
func MatchCells(lines []string) ([]Cell, error) {
	var cells []Cell
	for _, line := range lines {
		for _, m := range cellPattern.FindAllStringSubmatch(line, -1) {
			col, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, &MalformedTableError{Reason: "column index out of range: " + m[1]}
			}
			row, err := strconv.Atoi(m[2])
			if err != nil {
				return nil, &MalformedTableError{Reason: "row index out of range: " + m[2]}
			}
			cells = append(cells, Cell{Column: col, Row: row, Raw: m[3]})
		}
	}
	return cells, nil
}
