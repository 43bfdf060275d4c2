package report

import (
	"strings"

	"dxaextract/internal/models"
)

// DefaultMeasurements are the rows collapsed into the aggregate summary
var DefaultMeasurements = []string{
	"Area[(cm^2)]",
	"BMC[(g)]",
	"BMD[(g/cm^2)]",
	"Fat[(g)]",
	"Lean[(g)]",
	"Total[(g)]",
	"% Fat[(%)]",
}

var summaryKeyReplacer = strings.NewReplacer(
	" ", "_",
	"%", "pct",
	"-", "",
	"+", "and",
)

// SummaryKey builds the flat key for a column and measurement, e.g.
// ("L Arm", "% Fat[(%)]") becomes "l_arm_pct_fat". Keys only contain
// characters that statistics packages accept in identifiers.
func SummaryKey(column, measurement string) string {
	name, _, _ := strings.Cut(measurement, "[")
	return strings.ToLower(summaryKeyReplacer.Replace(column + "_" + name))
}

// Collapse flattens the table into one entry per column and measurement,
// columns outer, measurements inner. An empty measurements list uses
// DefaultMeasurements.
func Collapse(t *Table, measurements []string) (*models.SummaryRecord, error) {
	if len(measurements) == 0 {
		measurements = DefaultMeasurements
	}
	for _, m := range measurements {
		if _, ok := t.rowIndex[m]; !ok {
			return nil, &MissingMeasurementError{Measurement: m}
		}
	}

	out := &models.SummaryRecord{Entries: make([]models.SummaryEntry, 0, len(t.columns)*len(measurements))}
	for _, c := range t.columns {
		for _, m := range measurements {
			v, ok := t.Value(c, m)
			if !ok {
				return nil, &MissingMeasurementError{Column: c, Measurement: m}
			}
			out.Entries = append(out.Entries, models.SummaryEntry{Key: SummaryKey(c, m), Value: v})
		}
	}
	return out, nil
}
