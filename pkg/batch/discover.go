package batch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DICOMExtension marks candidate input files. It is matched anywhere in the
// file name, ignoring case.
const DICOMExtension = ".dcm"

// IsDICOMName reports whether name looks like a DICOM file
func IsDICOMName(name string) bool {
	return strings.Contains(strings.ToLower(name), DICOMExtension)
}

// ValidateInputs checks the command line inputs before any work starts
func ValidateInputs(files, dirs []string, outputDir string) error {
	if len(files) == 0 && len(dirs) == 0 {
		return errors.New("no input files or directories given")
	}

	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			return fmt.Errorf("input file %s: %w", f, err)
		}
		if info.IsDir() {
			return fmt.Errorf("input file %s is a directory", f)
		}
		if !IsDICOMName(filepath.Base(f)) {
			return fmt.Errorf("input file %s is not a %s file", f, DICOMExtension)
		}
	}

	for _, d := range dirs {
		if err := requireDir(d); err != nil {
			return fmt.Errorf("input directory: %w", err)
		}
	}

	if outputDir != "" {
		if err := requireDir(outputDir); err != nil {
			return fmt.Errorf("output directory: %w", err)
		}
	}
	return nil
}

func requireDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

// Discover combines explicit files with every DICOM file found below dirs.
// The result holds each path once and is sorted.
func Discover(files, dirs []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(path string) {
		path = filepath.Clean(path)
		if !seen[path] {
			seen[path] = true
			out = append(out, path)
		}
	}

	for _, f := range files {
		add(f)
	}

	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && IsDICOMName(d.Name()) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
		}
	}

	sort.Strings(out)
	return out, nil
}
