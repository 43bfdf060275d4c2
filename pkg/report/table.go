package report

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// RegionLabel is the header of the column whose values label the rows
const RegionLabel = "Region"

// blankValue is how the scanner writes an empty table cell
const blankValue = " "

// Missing is the marker stored for blank or absent cells. Test with
// IsMissing, NaN never compares equal to itself.
var Missing = math.NaN()

// IsMissing reports whether v is the missing-value marker
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// rowLabelRenames strips the HTML markup the scanner puts in unit labels
var rowLabelRenames = map[string]string{
	"Area[cm<sup><small>2</small></sup>]":  "Area[(cm^2)]",
	"BMD[g/cm<sup><small>2</small></sup>]": "BMD[(g/cm^2)]",
}

// Table is the reconstructed results table: one column per anatomical
// region header, one row per measurement named in the Region column.
type Table struct {
	columns []string
	rows    []string
	data    *mat.Dense

	colIndex map[string]int
	rowIndex map[string]int
}

// Columns returns the column labels in script order, Region excluded
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Rows returns the row labels in script order
func (t *Table) Rows() []string {
	return append([]string(nil), t.rows...)
}

// Dims returns the number of rows and columns
func (t *Table) Dims() (rows, cols int) {
	return len(t.rows), len(t.columns)
}

// At returns the value at row i, column j
func (t *Table) At(i, j int) float64 {
	return t.data.At(i, j)
}

// Value returns the value for a column and row label. ok is false when
// either label does not exist; a blank cell returns Missing with ok true.
func (t *Table) Value(column, row string) (v float64, ok bool) {
	j, ok := t.colIndex[column]
	if !ok {
		return 0, false
	}
	i, ok := t.rowIndex[row]
	if !ok {
		return 0, false
	}
	return t.data.At(i, j), true
}

// Column returns a copy of the values of the named column in row order
func (t *Table) Column(label string) ([]float64, bool) {
	j, ok := t.colIndex[label]
	if !ok {
		return nil, false
	}
	return mat.Col(nil, j, t.data), true
}

// Matrix exposes the values as a read-only gonum matrix
func (t *Table) Matrix() mat.Matrix {
	return t.data
}

// Reconstruct builds the results table from matched cells.
//
// Cells in row 0 are headers. The Region column supplies the row labels and
// is not kept as a value column. Every data cell must belong to a headed
// column and a labelled row; anything else is reported as malformed rather
// than dropped. A headed column and labelled row with no cell at their
// crossing is not ragged input: the value is simply Missing.
func Reconstruct(cells []Cell) (*Table, error) {
	// Step 1: collect headers and data cells, rejecting conflicting repeats
	headers := make(map[int]string)
	type key struct{ col, row int }
	data := make(map[key]Cell)
	for i := range cells {
		c := cells[i]
		if c.Row == 0 {
			if prev, ok := headers[c.Column]; ok && prev != c.Raw {
				return nil, &MalformedTableError{Reason: fmt.Sprintf("conflicting header, already %q", prev), Cell: &c}
			}
			headers[c.Column] = c.Raw
			continue
		}
		k := key{c.Column, c.Row}
		if prev, ok := data[k]; ok && prev.Raw != c.Raw {
			return nil, &MalformedTableError{Reason: fmt.Sprintf("conflicting value, already %q", prev.Raw), Cell: &c}
		}
		data[k] = c
	}

	// Step 2: find the Region column and order the value columns
	regionCol := -1
	var colIdx []int
	seenLabel := make(map[string]bool)
	for idx, label := range headers {
		if label == RegionLabel {
			if regionCol >= 0 {
				return nil, &MalformedTableError{Reason: "more than one Region column"}
			}
			regionCol = idx
			continue
		}
		colIdx = append(colIdx, idx)
	}
	if regionCol < 0 {
		return nil, &MalformedTableError{Reason: "no Region column"}
	}
	sort.Ints(colIdx)

	columns := make([]string, len(colIdx))
	colPos := make(map[int]int, len(colIdx))
	for j, idx := range colIdx {
		label := headers[idx]
		if seenLabel[label] {
			return nil, &MalformedTableError{Reason: fmt.Sprintf("duplicate column label %q", label)}
		}
		seenLabel[label] = true
		columns[j] = label
		colPos[idx] = j
	}

	// Step 3: row labels come from the Region column
	var rowIdx []int
	for k := range data {
		if k.col == regionCol {
			rowIdx = append(rowIdx, k.row)
		}
	}
	sort.Ints(rowIdx)

	rows := make([]string, len(rowIdx))
	rowPos := make(map[int]int, len(rowIdx))
	rowIndex := make(map[string]int, len(rowIdx))
	for i, idx := range rowIdx {
		label := data[key{regionCol, idx}].Raw
		if renamed, ok := rowLabelRenames[label]; ok {
			label = renamed
		}
		if _, dup := rowIndex[label]; dup {
			return nil, &MalformedTableError{Reason: fmt.Sprintf("duplicate row label %q", label)}
		}
		rows[i] = label
		rowPos[idx] = i
		rowIndex[label] = i
	}

	if len(rows) == 0 || len(columns) == 0 {
		return nil, &MalformedTableError{
			Reason: fmt.Sprintf("empty table (%d rows, %d value columns)", len(rows), len(columns)),
		}
	}

	// Step 4: place and coerce every value cell; absent cells stay missing
	values := make([]float64, len(rows)*len(columns))
	for i := range values {
		values[i] = Missing
	}
	keys := make([]key, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a].col != keys[b].col {
			return keys[a].col < keys[b].col
		}
		return keys[a].row < keys[b].row
	})
	for _, k := range keys {
		if k.col == regionCol {
			continue
		}
		c := data[k]
		j, ok := colPos[k.col]
		if !ok {
			return nil, &MalformedTableError{Reason: "column has no header", Cell: &c}
		}
		i, ok := rowPos[k.row]
		if !ok {
			return nil, &MalformedTableError{Reason: "row has no Region label", Cell: &c}
		}
		v, err := coerce(c.Raw)
		if err != nil {
			return nil, &MalformedTableError{Reason: "value is not numeric", Cell: &c}
		}
		values[i*len(columns)+j] = v
	}

	colIndex := make(map[string]int, len(columns))
	for j, label := range columns {
		colIndex[label] = j
	}

	return &Table{
		columns:  columns,
		rows:     rows,
		data:     mat.NewDense(len(rows), len(columns), values),
		colIndex: colIndex,
		rowIndex: rowIndex,
	}, nil
}

// coerce converts a raw cell to a number. Only a single space means blank.
func coerce(raw string) (float64, error) {
	if raw == blankValue {
		return Missing, nil
	}
	return strconv.ParseFloat(strings.TrimSpace(raw), 64)
}
