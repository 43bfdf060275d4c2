package report

import (
	"fmt"
	"strings"
)

// fakeContainer is an in-memory Container
type fakeContainer struct {
	manufacturer string
	model        string
	version      string
	entries      []Entry
}

func (f *fakeContainer) Manufacturer() string    { return f.manufacturer }
func (f *fakeContainer) ModelName() string       { return f.model }
func (f *fakeContainer) SoftwareVersion() string { return f.version }
func (f *fakeContainer) Entries() []Entry        { return f.entries }

// joinScript joins lines with the escaped separator the scanner writes
func joinScript(lines ...string) string {
	return strings.Join(lines, `\r\n`)
}

// cellLine renders one table assignment the way the scanner does
func cellLine(col, row int, value string) string {
	return fmt.Sprintf(`ResultsTable[ %d][ %d] = "%s";`, col, row, value)
}

var (
	sampleColumns = []string{"Head", "L Arm", "Trunk", "Total"}
	sampleRows    = []string{
		"Area[cm<sup><small>2</small></sup>]",
		"BMC[(g)]",
		"BMD[g/cm<sup><small>2</small></sup>]",
		"Fat[(g)]",
		"Lean[(g)]",
		"Total[(g)]",
		"% Fat[(%)]",
	}
)

// sampleValue gives every sample cell a distinct, predictable number
func sampleValue(col, row int) float64 {
	return float64(col*100+row) + 0.25
}

// samplePatientLines are the demographics of the sample report
var samplePatientLines = []string{
	`PatientName = "Doe^Jane 01";`,
	`Scan = "12 March2023 - ST07";`,
	`PatientSex = "F";`,
	`DOB = "05.03.1980";`,
	`Age = "43";`,
	`Height = "175.5 cm";`,
	`Weight = "68 kg";`,
	`Ethnicity = "White";`,
	`ImageXPos = 40;`,
	`ImageYPos = 30;`,
	`ImageXSize = 20;`,
	`ImageYSize = 10;`,
}

// sampleScript builds a complete report script. skip names patient
// fields to leave out.
func sampleScript(skip ...string) string {
	lines := []string{`// Hologic report`, `var ResultsTable = new Array();`}
	lines = append(lines, cellLine(0, 0, RegionLabel))
	for c, name := range sampleColumns {
		lines = append(lines, cellLine(c+1, 0, name))
	}
	for r, name := range sampleRows {
		lines = append(lines, cellLine(0, r+1, name))
		for c := range sampleColumns {
			lines = append(lines, cellLine(c+1, r+1, fmt.Sprintf("%.2f", sampleValue(c+1, r+1))))
		}
	}

outer:
	for _, line := range samplePatientLines {
		for _, s := range skip {
			if strings.HasPrefix(line, s+" ") {
				continue outer
			}
		}
		lines = append(lines, line)
	}
	return joinScript(lines...)
}

// sampleContainer returns a Discovery W container whose report sits at
// LegacyReportOrdinal
func sampleContainer(script string) *fakeContainer {
	entries := make([]Entry, LegacyReportOrdinal+3)
	for i := range entries {
		entries[i] = Entry{Tag: Tag{Group: 0x0008, Element: uint16(0x1000 + i)}, Value: fmt.Sprintf("value %d", i)}
	}
	entries[LegacyReportOrdinal] = Entry{Tag: Tag{Group: 0x0029, Element: 0x1010}, Value: script}
	return &fakeContainer{
		manufacturer: SupportedManufacturer,
		model:        "Discovery W (S/N 12345)",
		version:      TestedSoftwareVersion,
		entries:      entries,
	}
}
