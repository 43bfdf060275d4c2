package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dxaextract/internal/logging"
	"dxaextract/pkg/batch"
	"dxaextract/pkg/config"
)

const defaultConfigPath = "dxaextract.yaml"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// options holds the command line flags
type options struct {
	configPath string
	dirs       []string
	outputDir  string
	fullReport bool
	aggregate  bool
	noXLSX     bool
	workers    int
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "dxaextract [files...]",
		Short: "Extract body composition results from Hologic DXA DICOM files",
		Long: "Reads the results table and patient demographics embedded in Hologic\n" +
			"Discovery W DXA DICOM files and writes them as spreadsheets, CSV files\n" +
			"and an optional aggregate across all inputs.",
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, opts)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVar(&opts.configPath, "config", defaultConfigPath, "Path to the YAML configuration file")
	flags.StringArrayVarP(&opts.dirs, "directory", "d", nil, "Directory searched recursively for .dcm files (repeatable)")
	flags.StringVarP(&opts.outputDir, "output-dir", "o", "", "Directory for all outputs (default: next to each input)")
	flags.BoolVarP(&opts.fullReport, "full-report", "F", false, "Write the report page, scan image and CSV files per patient")
	flags.BoolVarP(&opts.aggregate, "aggregate", "A", false, "Write one CSV summarizing every input file")
	flags.BoolVar(&opts.noXLSX, "no-xlsx", false, "Skip the per-patient XLSX workbook")
	flags.IntVar(&opts.workers, "workers", 0, "Number of files processed concurrently (default from config)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(configCmd())
	return rootCmd
}

// apply overrides configuration values with the flags the user set
func (o *options) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("output-dir") {
		cfg.Output.Dir = o.outputDir
	}
	if flags.Changed("full-report") {
		cfg.Output.FullReport = o.fullReport
	}
	if flags.Changed("aggregate") {
		cfg.Output.Aggregate = o.aggregate
	}
	if flags.Changed("no-xlsx") {
		cfg.Output.Spreadsheet = !o.noXLSX
	}
	if flags.Changed("workers") {
		cfg.Processing.Workers = o.workers
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = o.logLevel
	}
}

func run(cmd *cobra.Command, files []string, opts *options) error {
	// Step 1: configuration, flags take precedence over the file
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	opts.apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Console, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	// Step 2: inputs
	if err := batch.ValidateInputs(files, opts.dirs, cfg.Output.Dir); err != nil {
		logger.Error().Err(err).Msg("invalid input")
		return err
	}
	paths, err := batch.Discover(files, opts.dirs)
	if err != nil {
		logger.Error().Err(err).Msg("file discovery failed")
		return err
	}
	if len(paths) == 0 {
		logger.Warn().Strs("directories", opts.dirs).Msg("no DICOM files found")
		return nil
	}

	// Step 3: process
	parser, err := cfg.Parser()
	if err != nil {
		return err
	}
	runner := batch.NewRunner(parser, batch.Options{
		OutputDir:      cfg.Output.Dir,
		Spreadsheet:    cfg.Output.Spreadsheet,
		FullReport:     cfg.Output.FullReport,
		Aggregate:      cfg.Output.Aggregate,
		AggregateStats: cfg.Output.AggregateStats,
		Workers:        cfg.Processing.Workers,
	}, logger)

	summary, err := runner.Run(cmd.Context(), paths)
	if err != nil {
		logger.Error().Err(err).Msg("batch aborted")
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Processed %d files: %d succeeded, %d failed in %.2f seconds\n",
		len(paths), len(summary.Succeeded), len(summary.Failed), summary.Duration.Seconds())
	for _, f := range summary.Failed {
		fmt.Fprintf(cmd.OutOrStdout(), "  skipped %s (%s)\n", f.Path, f.Reason)
	}
	return nil
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration file helpers",
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultConfigPath
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.CreateDefaultConfigFile(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Default configuration written to %s\n", path)
			return nil
		},
	}

	cmd.AddCommand(initCmd)
	return cmd
}
