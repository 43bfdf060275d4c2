package models

import (
	"math"
	"strconv"
	"time"
)

// PatientRecord holds the demographics derived from the patient fields of
// an embedded DXA report
type PatientRecord struct {
	// ID is the patient name with every non-alphanumeric character removed
	ID string

	// ScanDate is the calendar date of the scan
	ScanDate time.Time

	// ScanID is the scanner-assigned identifier that follows the scan date
	ScanID string

	// Sex is the patient sex as written by the scanner
	Sex string

	// DateOfBirth is the calendar date of birth
	DateOfBirth time.Time

	// Age is kept verbatim, the scanner writes it as free text
	Age string

	// HeightM is the patient height in meters
	HeightM float64

	// WeightKg is the patient weight in kilograms
	WeightKg float64

	// BMI is WeightKg / HeightM²
	BMI float64

	// Ethnicity is the ethnicity as written by the scanner
	Ethnicity string
}

// Field is a single named value of a flat export record
type Field struct {
	Name  string
	Value string
}

// Fields flattens the record in export order
func (p PatientRecord) Fields() []Field {
	return []Field{
		{Name: "pt_id", Value: p.ID},
		{Name: "scan_date", Value: p.ScanDate.Format(time.DateOnly)},
		{Name: "sex", Value: p.Sex},
		{Name: "dob", Value: p.DateOfBirth.Format(time.DateOnly)},
		{Name: "age", Value: p.Age},
		{Name: "height", Value: formatFloat(p.HeightM)},
		{Name: "weight", Value: formatFloat(p.WeightKg)},
		{Name: "bmi", Value: formatFloat(p.BMI)},
		{Name: "ethnicity", Value: p.Ethnicity},
		{Name: "scan_id", Value: p.ScanID},
	}
}

// SummaryEntry is one collapsed (column, measurement) value
type SummaryEntry struct {
	// Key is the normalized <column>_<measurement> identifier
	Key string

	// Value is the measurement, NaN when the cell was blank
	Value float64
}

// SummaryRecord is the flat, ordered form of a results table used for
// cross-patient aggregation
type SummaryRecord struct {
	Entries []SummaryEntry
}

// Get returns the value stored under key
func (s SummaryRecord) Get(key string) (float64, bool) {
	for _, e := range s.Entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return 0, false
}

// Keys returns the keys in collapse order
func (s SummaryRecord) Keys() []string {
	keys := make([]string, len(s.Entries))
	for i, e := range s.Entries {
		keys[i] = e.Key
	}
	return keys
}

// Map returns the record as a key/value map
func (s SummaryRecord) Map() map[string]float64 {
	m := make(map[string]float64, len(s.Entries))
	for _, e := range s.Entries {
		m[e.Key] = e.Value
	}
	return m
}

// ImageRegion is the rectangle of the report page that holds the scan image,
// in pixel coordinates
type ImageRegion struct {
	X      int
	Y      int
	Width  int
	Height int
}

// formatFloat renders v in the shortest exact form, missing values as ""
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatValue renders a measurement for text exports
func FormatValue(v float64) string {
	return formatFloat(v)
}
