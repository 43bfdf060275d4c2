// Package batch runs the report extraction over many DICOM files and writes
// the per-patient and aggregate outputs.
package batch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"dxaextract/internal/logging"
	"dxaextract/internal/models"
	"dxaextract/pkg/dicomfile"
	"dxaextract/pkg/export"
	"dxaextract/pkg/report"
	"dxaextract/pkg/visualization"
)

// File names inside a patient's full report directory
const (
	ReportImageName = "DXA_Report.png"
	ScanImageName   = "scan_image.bmp"
)

// Options selects which outputs a run produces
type Options struct {
	// OutputDir receives all outputs. Empty writes per-file outputs next
	// to each input and the aggregate into the working directory.
	OutputDir string

	// Spreadsheet writes <id>_dxa_summary.xlsx per patient
	Spreadsheet bool

	// FullReport writes the <id>/ directory with images and CSV files
	FullReport bool

	// Aggregate writes one CSV for the whole run
	Aggregate bool

	// AggregateStats adds descriptive statistics to the aggregate output
	AggregateStats bool

	// Workers is the number of files processed concurrently
	Workers int
}

// Source is an opened input file
type Source interface {
	report.Container
	PixelImage() (image.Image, error)
}

// Opener opens an input file
type Opener func(path string) (Source, error)

// OpenDICOM opens path with the DICOM reader
func OpenDICOM(path string) (Source, error) {
	f, err := dicomfile.Open(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// FileResult holds everything derived from one successfully processed file
type FileResult struct {
	Path string
	// Name is the stem of the per-file outputs, unique within the run
	Name    string
	Patient *models.PatientRecord
	Summary *models.SummaryRecord
	Outputs []string
}

// FileFailure records why a file was skipped
type FileFailure struct {
	Path   string
	Reason string
	Err    error
}

// Summary is the outcome of a run
type Summary struct {
	RunID     string
	Succeeded []FileResult
	Failed    []FileFailure
	// Aggregates lists the batch-level files written
	Aggregates []string
	Duration   time.Duration
}

// Runner processes batches of files
type Runner struct {
	parser *report.Parser
	opts   Options
	open   Opener
	logger zerolog.Logger
}

// NewRunner creates a runner. The parser is copied and adjusted to the
// outputs requested in opts.
func NewRunner(parser *report.Parser, opts Options, logger zerolog.Logger) *Runner {
	p := *parser
	p.Summarize = opts.Aggregate
	p.WithImageRegion = opts.FullReport
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Runner{
		parser: &p,
		opts:   opts,
		open:   OpenDICOM,
		logger: logger,
	}
}

// WithOpener replaces the file opener
func (r *Runner) WithOpener(open Opener) *Runner {
	r.open = open
	return r
}

// Run processes files concurrently. A failing file never stops the batch;
// it is recorded in Summary.Failed and left out of the aggregate. The
// returned error is only set for cancellation or a failed aggregate write.
func (r *Runner) Run(ctx context.Context, files []string) (*Summary, error) {
	start := time.Now()
	summary := &Summary{RunID: uuid.NewString()}
	logger := logging.WithRun(r.logger, summary.RunID)

	logger.Info().Int("files", len(files)).Int("workers", r.opts.Workers).Msg("batch started")

	// Each task owns its slot in outcomes
	outcomes := make([]outcome, len(files))
	loggers := make([]zerolog.Logger, len(files))
	for i, path := range files {
		loggers[i] = logging.WithFile(logger, path)
	}

	// Step 1: derive everything per file, nothing is written yet
	r.forEach(ctx, files, func(ctx context.Context, i int) {
		prep, err := r.prepareFile(ctx, files[i], loggers[i])
		if err != nil {
			outcomes[i].fail(files[i], err)
			return
		}
		outcomes[i].prep = prep
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Step 2: output names in input order, so repeated patients are
	// told apart the same way on every run
	names := newNamer()
	for i := range outcomes {
		if p := outcomes[i].prep; p != nil {
			p.stem = names.claim(p.dir, p.res.Patient)
		}
	}

	// Step 3: write the per-file outputs
	r.forEach(ctx, files, func(ctx context.Context, i int) {
		prep := outcomes[i].prep
		if prep == nil {
			return
		}
		outcomes[i].prep = nil
		res, err := r.writeOutputs(ctx, prep)
		if err != nil {
			outcomes[i].fail(files[i], err)
			return
		}
		outcomes[i].result = res
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Step 4: collect in input order
	for i, o := range outcomes {
		switch {
		case o.result != nil:
			loggers[i].Info().Str("patient", o.result.Patient.ID).Int("outputs", len(o.result.Outputs)).Msg("file processed")
			summary.Succeeded = append(summary.Succeeded, *o.result)
		case o.failure != nil:
			loggers[i].Error().Err(o.failure.Err).Str("reason", o.failure.Reason).Msg("file skipped")
			summary.Failed = append(summary.Failed, *o.failure)
		}
	}

	// Step 5: batch-level outputs from the successful files only
	if r.opts.Aggregate {
		written, err := r.writeAggregate(summary.Succeeded)
		if err != nil {
			return nil, err
		}
		summary.Aggregates = written
		for _, path := range written {
			logger.Info().Str("path", path).Msg("aggregate written")
		}
	}

	summary.Duration = time.Since(start)
	logger.Info().
		Int("processed", len(files)).
		Int("succeeded", len(summary.Succeeded)).
		Int("failed", len(summary.Failed)).
		Float64("duration_seconds", summary.Duration.Seconds()).
		Msg("batch completed")

	return summary, nil
}

type outcome struct {
	prep    *prepared
	result  *FileResult
	failure *FileFailure
}

func (o *outcome) fail(path string, err error) {
	o.prep = nil
	o.failure = &FileFailure{Path: path, Reason: Reason(err), Err: err}
}

// forEach runs task for every file index on the bounded worker pool.
// Scheduling stops once ctx is done.
func (r *Runner) forEach(ctx context.Context, files []string, task func(ctx context.Context, i int)) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i := range files {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			task(gctx, i)
			return nil
		})
	}
	_ = g.Wait()
}

// prepared is a parsed file waiting for its outputs to be written
type prepared struct {
	path   string
	dir    string
	stem   string
	res    *report.Result
	viewer *visualization.Viewer
}

// prepareFile derives every output of one file, including the scan image
// crop, without touching the output directory.
func (r *Runner) prepareFile(ctx context.Context, path string, logger zerolog.Logger) (*prepared, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := r.open(path)
	if err != nil {
		return nil, err
	}

	res, err := r.parser.Parse(src)
	if err != nil {
		return nil, err
	}
	for _, w := range res.Warnings {
		logger.Warn().Err(w).Msg("continuing despite warning")
	}

	var viewer *visualization.Viewer
	if r.opts.FullReport {
		page, err := src.PixelImage()
		if err != nil {
			return nil, err
		}
		viewer = visualization.NewViewer(page)
		if _, err := viewer.ExtractRegion(*res.ImageRegion); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
	}

	dir := r.opts.OutputDir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	return &prepared{path: path, dir: dir, res: res, viewer: viewer}, nil
}

// writeOutputs writes the per-file outputs under the stem assigned to p
func (r *Runner) writeOutputs(ctx context.Context, p *prepared) (*FileResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := p.res
	out := &FileResult{Path: p.path, Name: p.stem, Patient: res.Patient, Summary: res.Summary}

	if r.opts.FullReport {
		patientDir := filepath.Join(p.dir, p.stem)
		steps := []struct {
			name  string
			write func(string) error
		}{
			{ReportImageName, p.viewer.SavePage},
			{ScanImageName, func(path string) error { return p.viewer.SaveRegion(*res.ImageRegion, path) }},
			{export.TableCSVName, func(path string) error { return export.WriteTableCSV(path, res.Table) }},
			{export.PatientCSVName, func(path string) error { return export.WritePatientCSV(path, res.Patient) }},
		}
		for _, step := range steps {
			target := filepath.Join(patientDir, step.name)
			if err := step.write(target); err != nil {
				return nil, &OutputError{Path: target, Err: err}
			}
			out.Outputs = append(out.Outputs, target)
		}
	}

	if r.opts.Spreadsheet {
		target := filepath.Join(p.dir, export.WorkbookName(p.stem))
		if err := export.WriteWorkbook(target, res.Patient, res.Table); err != nil {
			return nil, &OutputError{Path: target, Err: err}
		}
		out.Outputs = append(out.Outputs, target)
	}

	return out, nil
}

func (r *Runner) writeAggregate(results []FileResult) ([]string, error) {
	dir := r.opts.OutputDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve aggregate directory: %w", err)
		}
		dir = wd
	}

	agg := export.NewAggregate()
	for _, res := range results {
		agg.Add(res.Patient, res.Summary)
	}

	written := []string{filepath.Join(dir, export.AggregateCSVName)}
	if err := agg.WriteCSV(written[0]); err != nil {
		return nil, &OutputError{Path: written[0], Err: err}
	}
	if r.opts.AggregateStats {
		statsPath := filepath.Join(dir, export.StatsCSVName)
		if err := agg.WriteStatsCSV(statsPath); err != nil {
			return nil, &OutputError{Path: statsPath, Err: err}
		}
		written = append(written, statsPath)
	}
	return written, nil
}

// OutputError wraps a failure to write an output file
type OutputError struct {
	Path string
	Err  error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("batch: write %s: %v", e.Path, e.Err)
}

func (e *OutputError) Unwrap() error {
	return e.Err
}

// Reason classifies a file failure for logs and summaries
func Reason(err error) string {
	var (
		mismatch    *report.SourceMismatchError
		malformed   *report.MalformedTableError
		missing     *report.MissingFieldError
		format      *report.FieldFormatError
		measurement *report.MissingMeasurementError
		unreadable  *dicomfile.UnreadableFormatError
		output      *OutputError
	)
	switch {
	case errors.As(err, &mismatch):
		return "source_mismatch"
	case errors.As(err, &malformed):
		return "malformed_table"
	case errors.As(err, &missing):
		return "missing_field"
	case errors.As(err, &format):
		return "field_format"
	case errors.As(err, &measurement):
		return "missing_measurement"
	case errors.Is(err, report.ErrReportNotFound):
		return "report_not_found"
	case errors.Is(err, dicomfile.ErrFileNotFound):
		return "file_not_found"
	case errors.As(err, &unreadable):
		return "unreadable_format"
	case errors.As(err, &output):
		return "output"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "unknown"
	}
}
