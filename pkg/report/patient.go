package report

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"dxaextract/internal/models"
)

// Names of the patient fields written into the report script
const (
	FieldScan        = "Scan"
	FieldPatientName = "PatientName"
	FieldPatientSex  = "PatientSex"
	FieldEthnicity   = "Ethnicity"
	FieldHeight      = "Height"
	FieldWeight      = "Weight"
	FieldDOB         = "DOB"
	FieldAge         = "Age"
)

// PatientFields lists every field ParsePatient requires, in record order
var PatientFields = []string{
	FieldPatientName,
	FieldScan,
	FieldPatientSex,
	FieldDOB,
	FieldAge,
	FieldHeight,
	FieldWeight,
	FieldEthnicity,
}

const (
	scanDateLayout = "2January2006"
	dobLayout      = "2.1.2006"
)

var (
	fieldPatterns = compileFieldPatterns(PatientFields)
	leadingNumber = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

func compileFieldPatterns(names []string) map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(names))
	for _, name := range names {
		patterns[name] = regexp.MustCompile(`^` + regexp.QuoteMeta(name) + ` = "(.*)";`)
	}
	return patterns
}

// Fields maps a patient field name to its raw text
type Fields map[string]string

// ExtractFields scans the lines for the known name = "value"; assignments.
// The first assignment of a field wins.
func ExtractFields(lines []string) Fields {
	fields := make(Fields, len(PatientFields))
	for _, line := range lines {
		for _, name := range PatientFields {
			if _, done := fields[name]; done {
				continue
			}
			if m := fieldPatterns[name].FindStringSubmatch(line); m != nil {
				fields[name] = m[1]
			}
		}
		if len(fields) == len(PatientFields) {
			break
		}
	}
	return fields
}

// ParsePatient derives the patient record from the raw fields. Every field
// is required; on error no record is returned.
func ParsePatient(fields Fields) (*models.PatientRecord, error) {
	for _, name := range PatientFields {
		if _, ok := fields[name]; !ok {
			return nil, &MissingFieldError{Field: name}
		}
	}

	id := PatientID(fields[FieldPatientName])
	if id == "" {
		return nil, &FieldFormatError{Field: FieldPatientName, Value: fields[FieldPatientName], Err: errors.New("name has no letters or digits")}
	}

	scanDate, scanID, err := ParseScanInfo(fields[FieldScan])
	if err != nil {
		return nil, &FieldFormatError{Field: FieldScan, Value: fields[FieldScan], Err: err}
	}

	dob, err := ParseDOB(fields[FieldDOB])
	if err != nil {
		return nil, &FieldFormatError{Field: FieldDOB, Value: fields[FieldDOB], Err: err}
	}

	heightCm, err := LeadingNumber(fields[FieldHeight])
	if err != nil {
		return nil, &FieldFormatError{Field: FieldHeight, Value: fields[FieldHeight], Err: err}
	}
	weight, err := LeadingNumber(fields[FieldWeight])
	if err != nil {
		return nil, &FieldFormatError{Field: FieldWeight, Value: fields[FieldWeight], Err: err}
	}
	if heightCm <= 0 {
		return nil, &FieldFormatError{Field: FieldHeight, Value: fields[FieldHeight], Err: errors.New("height must be positive")}
	}

	height := heightCm / 100
	return &models.PatientRecord{
		ID:          id,
		ScanDate:    scanDate,
		ScanID:      scanID,
		Sex:         fields[FieldPatientSex],
		DateOfBirth: dob,
		Age:         fields[FieldAge],
		HeightM:     height,
		WeightKg:    weight,
		BMI:         weight / (height * height),
		Ethnicity:   fields[FieldEthnicity],
	}, nil
}

// ParseScanInfo splits "12 March2023 - ST07" into its date and scan id.
func ParseScanInfo(s string) (time.Time, string, error) {
	parts := strings.Split(strings.ReplaceAll(s, " ", ""), "-")
	if len(parts) != 2 {
		return time.Time{}, "", fmt.Errorf("expected <date>-<scan id>, got %d parts", len(parts))
	}
	date, err := time.Parse(scanDateLayout, parts[0])
	if err != nil {
		return time.Time{}, "", err
	}
	return date, parts[1], nil
}

// ParseDOB parses a DD.MM.YYYY date of birth
func ParseDOB(s string) (time.Time, error) {
	return time.Parse(dobLayout, strings.TrimSpace(s))
}

// PatientID keeps only the letters and digits of a patient name
func PatientID(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LeadingNumber returns the first number in a unit-suffixed string such as
// "175.5 cm".
func LeadingNumber(s string) (float64, error) {
	token := leadingNumber.FindString(s)
	if token == "" {
		return 0, errors.New("no numeric value")
	}
	return strconv.ParseFloat(token, 64)
}
