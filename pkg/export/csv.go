// Package export writes extraction results as CSV files and XLSX workbooks.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"dxaextract/internal/models"
	"dxaextract/pkg/report"
)

// File names used inside a patient's full report directory
const (
	TableCSVName   = "results_summary.csv"
	PatientCSVName = "pt_info.csv"
)

// WriteTable writes the results table with a leading Region column.
// Missing cells are left empty.
func WriteTable(w io.Writer, t *report.Table) error {
	cw := csv.NewWriter(w)

	header := append([]string{report.RegionLabel}, t.Columns()...)
	if err := cw.Write(header); err != nil {
		return err
	}

	rows, cols := t.Dims()
	labels := t.Rows()
	for i := 0; i < rows; i++ {
		record := make([]string, 0, cols+1)
		record = append(record, labels[i])
		for j := 0; j < cols; j++ {
			record = append(record, models.FormatValue(t.At(i, j)))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WritePatient writes the patient record as field,value pairs
func WritePatient(w io.Writer, p *models.PatientRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"field", "value"}); err != nil {
		return err
	}
	for _, f := range p.Fields() {
		if err := cw.Write([]string{f.Name, f.Value}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTableCSV writes the results table to path
func WriteTableCSV(path string, t *report.Table) error {
	return writeFile(path, func(w io.Writer) error { return WriteTable(w, t) })
}

// WritePatientCSV writes the patient record to path
func WritePatientCSV(path string, p *models.PatientRecord) error {
	return writeFile(path, func(w io.Writer) error { return WritePatient(w, p) })
}

// writeFile creates path and its directory and runs write on it
func writeFile(path string, write func(io.Writer) error) error {
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := write(file); err != nil {
		file.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}
