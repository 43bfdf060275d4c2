// Package report extracts the results table and patient demographics that
// Hologic DXA scanners embed as a script in their DICOM files.
//
// The script is a single metadata value. Its lines assign table cells
// positionally (ResultsTable[ c][ r] = "v") and patient fields by name
// (PatientName = "v";). Parsing runs in four steps: Locate the blob,
// SplitLines, MatchCells + Reconstruct for the table, and ExtractFields +
// ParsePatient for the demographics.
package report

import (
	"fmt"

	"dxaextract/internal/models"
)

// Parser runs the whole extraction for one container.
type Parser struct {
	// Locator validates the source and finds the report blob
	Locator Locator

	// TableMarker selects the lines scanned for table cells
	TableMarker string

	// Measurements are the rows collapsed into the summary record. Empty
	// means DefaultMeasurements.
	Measurements []string

	// Summarize enables the Collapse step
	Summarize bool

	// WithImageRegion enables extraction of the scan image rectangle
	WithImageRegion bool
}

// NewParser returns a parser for Hologic Discovery W 13.2 reports
func NewParser() *Parser {
	return &Parser{
		Locator:     DefaultLocator(),
		TableMarker: DefaultTableMarker,
	}
}

// Result holds everything derived from one report. It is only returned
// when every requested step succeeded.
type Result struct {
	Table       *Table
	Patient     *models.PatientRecord
	Summary     *models.SummaryRecord
	ImageRegion *models.ImageRegion

	// Warnings are non-fatal findings such as a VersionMismatchWarning
	Warnings []error
}

// Parse extracts the table and patient record from c.
func (p *Parser) Parse(c Container) (*Result, error) {
	blob, err := p.Locator.Locate(c)
	if err != nil {
		return nil, err
	}
	return p.ParseBlob(blob)
}

// ParseBlob runs the extraction on an already located blob.
func (p *Parser) ParseBlob(blob *Blob) (*Result, error) {
	lines := SplitLines(blob.Text)

	marker := p.TableMarker
	if marker == "" {
		marker = DefaultTableMarker
	}
	cells, err := MatchCells(FilterLines(lines, marker))
	if err != nil {
		return nil, err
	}
	table, err := Reconstruct(cells)
	if err != nil {
		return nil, err
	}

	patient, err := ParsePatient(ExtractFields(lines))
	if err != nil {
		return nil, err
	}

	res := &Result{
		Table:    table,
		Patient:  patient,
		Warnings: blob.Warnings,
	}

	if p.Summarize {
		summary, err := Collapse(table, p.Measurements)
		if err != nil {
			return nil, fmt.Errorf("collapse results table: %w", err)
		}
		res.Summary = summary
	}

	if p.WithImageRegion {
		region, err := ExtractImageRegion(lines)
		if err != nil {
			return nil, fmt.Errorf("scan image geometry: %w", err)
		}
		res.ImageRegion = region
	}

	return res, nil
}
