// Package config provides configuration loading and management for dxaextract.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"dxaextract/pkg/report"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// Workers is how many files are processed concurrently
		Workers int `yaml:"workers"`
	} `yaml:"processing"`

	// Source describes the supported scanner and where its report lives
	Source struct {
		// Manufacturer accepted as a supported source
		Manufacturer string `yaml:"manufacturer"`

		// ModelPrefix accepted as a supported source
		ModelPrefix string `yaml:"modelPrefix"`

		// SoftwareVersion the parser was tested with; others only warn
		SoftwareVersion string `yaml:"softwareVersion"`

		// ReportTag locates the report element by tag, e.g. "(0029,1010)".
		// Empty uses ReportOrdinal only.
		ReportTag string `yaml:"reportTag"`

		// ReportOrdinal is the position of the report element among the
		// data set elements
		ReportOrdinal int `yaml:"reportOrdinal"`

		// TableMarker selects the lines holding results table cells
		TableMarker string `yaml:"tableMarker"`
	} `yaml:"source"`

	// Summary parameters
	Summary struct {
		// Measurements are the table rows collapsed into the aggregate
		Measurements []string `yaml:"measurements"`
	} `yaml:"summary"`

	// Output parameters
	Output struct {
		// Dir receives all outputs. Empty writes next to each input file.
		Dir string `yaml:"dir"`

		// Spreadsheet writes a per-patient XLSX workbook
		Spreadsheet bool `yaml:"spreadsheet"`

		// FullReport writes the per-patient report directory
		FullReport bool `yaml:"fullReport"`

		// Aggregate writes one CSV row per patient for the whole batch
		Aggregate bool `yaml:"aggregate"`

		// AggregateStats writes descriptive statistics next to the aggregate
		AggregateStats bool `yaml:"aggregateStats"`
	} `yaml:"output"`

	// Logging parameters
	Logging struct {
		// Level is a zerolog level name
		Level string `yaml:"level"`

		// Console selects human-readable output instead of JSON
		Console bool `yaml:"console"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default processing parameters
	cfg.Processing.Workers = runtime.NumCPU()

	// Set default source parameters
	cfg.Source.Manufacturer = report.SupportedManufacturer
	cfg.Source.ModelPrefix = report.SupportedModelPrefix
	cfg.Source.SoftwareVersion = report.TestedSoftwareVersion
	cfg.Source.ReportOrdinal = report.LegacyReportOrdinal
	cfg.Source.TableMarker = report.DefaultTableMarker

	// Set default summary parameters
	cfg.Summary.Measurements = append([]string(nil), report.DefaultMeasurements...)

	// Set default output parameters
	cfg.Output.Spreadsheet = true
	cfg.Output.AggregateStats = true

	// Set default logging parameters
	cfg.Logging.Level = zerolog.InfoLevel.String()
	cfg.Logging.Console = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// Validate checks values that cannot be corrected silently
func (c *Config) Validate() error {
	if c.Processing.Workers < 1 {
		return fmt.Errorf("processing.workers must be at least 1, got %d", c.Processing.Workers)
	}
	if c.Source.ReportOrdinal < 0 {
		return fmt.Errorf("source.reportOrdinal must not be negative, got %d", c.Source.ReportOrdinal)
	}
	if c.Source.ReportTag != "" {
		if _, err := report.ParseTag(c.Source.ReportTag); err != nil {
			return fmt.Errorf("source.reportTag: %w", err)
		}
	}
	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// Locator builds the report locator described by the source section
func (c *Config) Locator() (report.Locator, error) {
	loc := report.Locator{
		Manufacturer:    c.Source.Manufacturer,
		ModelPrefix:     c.Source.ModelPrefix,
		SoftwareVersion: c.Source.SoftwareVersion,
		Ordinal:         c.Source.ReportOrdinal,
	}
	if c.Source.ReportTag != "" {
		t, err := report.ParseTag(c.Source.ReportTag)
		if err != nil {
			return report.Locator{}, err
		}
		loc.Tag = &t
	}
	return loc, nil
}

// Parser builds a report parser from the configuration
func (c *Config) Parser() (*report.Parser, error) {
	loc, err := c.Locator()
	if err != nil {
		return nil, err
	}
	return &report.Parser{
		Locator:      loc,
		TableMarker:  c.Source.TableMarker,
		Measurements: c.Summary.Measurements,
	}, nil
}
