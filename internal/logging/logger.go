package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New creates the structured logger used by the CLI. Console output is
// human readable, otherwise one JSON object per line is written.
func New(level string, console bool, output io.Writer) (zerolog.Logger, error) {
	if output == nil {
		output = os.Stderr
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339

	if console {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.Kitchen}
	}

	return zerolog.New(output).Level(lvl).With().Timestamp().Logger(), nil
}

// WithRun adds the batch run id to every event
func WithRun(logger zerolog.Logger, runID string) zerolog.Logger {
	return logger.With().Str("run_id", runID).Logger()
}

// WithFile adds the input file path to every event
func WithFile(logger zerolog.Logger, path string) zerolog.Logger {
	return logger.With().Str("file", path).Logger()
}
