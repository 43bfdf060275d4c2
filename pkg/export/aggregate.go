package export

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"dxaextract/internal/models"
)

// File names of the batch-level outputs
const (
	AggregateCSVName = "dxa_aggregate_results.csv"
	StatsCSVName     = "dxa_aggregate_stats.csv"
)

type aggregateRow struct {
	patient *models.PatientRecord
	values  map[string]float64
}

// Aggregate collects one row per patient: the patient fields followed by
// the summary keys. Keys are ordered by first appearance.
type Aggregate struct {
	rows    []aggregateRow
	keys    []string
	keySeen map[string]bool
}

// NewAggregate creates an empty aggregate
func NewAggregate() *Aggregate {
	return &Aggregate{keySeen: make(map[string]bool)}
}

// Add appends a patient row
func (a *Aggregate) Add(p *models.PatientRecord, s *models.SummaryRecord) {
	for _, k := range s.Keys() {
		if !a.keySeen[k] {
			a.keySeen[k] = true
			a.keys = append(a.keys, k)
		}
	}
	a.rows = append(a.rows, aggregateRow{patient: p, values: s.Map()})
}

// Len returns the number of patient rows
func (a *Aggregate) Len() int {
	return len(a.rows)
}

// Keys returns the summary keys in column order
func (a *Aggregate) Keys() []string {
	return append([]string(nil), a.keys...)
}

// Write writes the aggregate as CSV. Keys a patient lacks are empty.
func (a *Aggregate) Write(w io.Writer) error {
	cw := csv.NewWriter(w)

	var header []string
	for _, f := range (models.PatientRecord{}).Fields() {
		header = append(header, f.Name)
	}
	header = append(header, a.keys...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, row := range a.rows {
		record := make([]string, 0, len(header))
		for _, f := range row.patient.Fields() {
			record = append(record, f.Value)
		}
		for _, k := range a.keys {
			v, ok := row.values[k]
			if !ok {
				record = append(record, "")
				continue
			}
			record = append(record, models.FormatValue(v))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSV writes the aggregate to path
func (a *Aggregate) WriteCSV(path string) error {
	return writeFile(path, a.Write)
}

// KeyStats are descriptive statistics of one summary key across patients
type KeyStats struct {
	Key    string
	N      int
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// Stats computes statistics per key over the patients that have a value.
// Keys without any value report N = 0 and NaN statistics.
func (a *Aggregate) Stats() []KeyStats {
	out := make([]KeyStats, 0, len(a.keys))
	for _, k := range a.keys {
		var xs []float64
		for _, row := range a.rows {
			if v, ok := row.values[k]; ok && !math.IsNaN(v) {
				xs = append(xs, v)
			}
		}

		s := KeyStats{Key: k, N: len(xs), Mean: math.NaN(), StdDev: math.NaN(), Min: math.NaN(), Max: math.NaN()}
		if len(xs) > 0 {
			s.Mean = stat.Mean(xs, nil)
			s.Min = floats.Min(xs)
			s.Max = floats.Max(xs)
		}
		if len(xs) > 1 {
			s.StdDev = stat.StdDev(xs, nil)
		}
		out = append(out, s)
	}
	return out
}

// WriteStats writes statistics as CSV
func WriteStats(w io.Writer, stats []KeyStats) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"key", "n", "mean", "sd", "min", "max"}); err != nil {
		return err
	}
	for _, s := range stats {
		record := []string{
			s.Key,
			strconv.Itoa(s.N),
			models.FormatValue(s.Mean),
			models.FormatValue(s.StdDev),
			models.FormatValue(s.Min),
			models.FormatValue(s.Max),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteStatsCSV writes the aggregate statistics to path
func (a *Aggregate) WriteStatsCSV(path string) error {
	stats := a.Stats()
	return writeFile(path, func(w io.Writer) error { return WriteStats(w, stats) })
}
