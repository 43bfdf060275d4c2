package export

import (
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"dxaextract/internal/models"
	"dxaextract/pkg/report"
)

// Sheet names of the per-patient workbook
const (
	PatientSheet = "pt_info"
	TableSheet   = "dxa_data"
)

// WorkbookName is the workbook file name for a patient
func WorkbookName(patientID string) string {
	return patientID + "_dxa_summary.xlsx"
}

// WriteWorkbook saves the patient record and results table as a two-sheet
// XLSX workbook. Missing cells are left empty.
func WriteWorkbook(path string, p *models.PatientRecord, t *report.Table) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	// The default sheet becomes the patient sheet
	if err := f.SetSheetName(f.GetSheetName(0), PatientSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := setRow(f, PatientSheet, 1, "", "Values"); err != nil {
		return err
	}
	for i, field := range p.Fields() {
		if err := setRow(f, PatientSheet, i+2, field.Name, field.Value); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(TableSheet); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}
	header := []interface{}{report.RegionLabel}
	for _, c := range t.Columns() {
		header = append(header, c)
	}
	if err := setRow(f, TableSheet, 1, header...); err != nil {
		return err
	}

	rows, cols := t.Dims()
	labels := t.Rows()
	for i := 0; i < rows; i++ {
		if err := setCell(f, TableSheet, 1, i+2, labels[i]); err != nil {
			return err
		}
		for j := 0; j < cols; j++ {
			v := t.At(i, j)
			if report.IsMissing(v) {
				continue
			}
			if err := setCell(f, TableSheet, j+2, i+2, v); err != nil {
				return err
			}
		}
	}

	if err := ensureDir(filepath.Dir(path)); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values ...interface{}) error {
	for i, v := range values {
		if err := setCell(f, sheet, i+1, row, v); err != nil {
			return err
		}
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, v interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, cell, v); err != nil {
		return fmt.Errorf("failed to set %s!%s: %w", sheet, cell, err)
	}
	return nil
}
