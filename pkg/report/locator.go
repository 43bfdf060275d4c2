package report

import (
	"fmt"
	"strconv"
	"strings"
)

// Tag identifies a metadata element by its DICOM group and element numbers.
type Tag struct {
	Group   uint16
	Element uint16
}

// String formats the tag as (gggg,eeee)
func (t Tag) String() string {
	return fmt.Sprintf("(%04x,%04x)", t.Group, t.Element)
}

// ParseTag parses "(gggg,eeee)", "gggg,eeee" or "ggggeeee" in hexadecimal.
func ParseTag(s string) (Tag, error) {
	clean := strings.Trim(strings.TrimSpace(s), "()")
	clean = strings.ReplaceAll(clean, " ", "")
	var group, element string
	if i := strings.IndexByte(clean, ','); i >= 0 {
		group, element = clean[:i], clean[i+1:]
	} else if len(clean) == 8 {
		group, element = clean[:4], clean[4:]
	} else {
		return Tag{}, fmt.Errorf("report: invalid tag %q", s)
	}
	g, err := strconv.ParseUint(group, 16, 16)
	if err != nil {
		return Tag{}, fmt.Errorf("report: invalid tag group in %q: %w", s, err)
	}
	e, err := strconv.ParseUint(element, 16, 16)
	if err != nil {
		return Tag{}, fmt.Errorf("report: invalid tag element in %q: %w", s, err)
	}
	return Tag{Group: uint16(g), Element: uint16(e)}, nil
}

// Entry is one top-level metadata element with its value rendered as text.
type Entry struct {
	Tag   Tag
	Value string
}

// Container is the read-only view of a DICOM file that the parser needs.
// Entries must be the data set elements in file order, without the file
// meta group (0002).
type Container interface {
	Manufacturer() string
	ModelName() string
	SoftwareVersion() string
	Entries() []Entry
}

const (
	// SupportedManufacturer is the manufacturer accepted by DefaultLocator
	SupportedManufacturer = "HOLOGIC"

	// SupportedModelPrefix is the model name prefix accepted by DefaultLocator
	SupportedModelPrefix = "Discovery W"

	// TestedSoftwareVersion is the only software version the parser was
	// validated against
	TestedSoftwareVersion = "13.2"

	// LegacyReportOrdinal is the position of the report element among the
	// data set entries of Discovery W files written by software 13.2. It is
	// a versioned assumption, not derived from any tag or name.
	LegacyReportOrdinal = 28
)

// Locator validates a container and finds the embedded report element.
type Locator struct {
	// Manufacturer and ModelPrefix identify the supported source. A
	// container matching either one is accepted.
	Manufacturer string
	ModelPrefix  string

	// SoftwareVersion is the tested version. Other versions produce a
	// VersionMismatchWarning. Empty disables the check.
	SoftwareVersion string

	// Tag, when set, locates the report by element tag first.
	Tag *Tag

	// Ordinal is the compatibility fallback used when Tag is nil or
	// absent from the container.
	Ordinal int
}

// DefaultLocator returns a locator for Hologic Discovery W files written
// by software 13.2.
func DefaultLocator() Locator {
	return Locator{
		Manufacturer:    SupportedManufacturer,
		ModelPrefix:     SupportedModelPrefix,
		SoftwareVersion: TestedSoftwareVersion,
		Ordinal:         LegacyReportOrdinal,
	}
}

// Blob is the raw report text together with non-fatal findings.
type Blob struct {
	Text     string
	Source   Tag
	Warnings []error
}

// Locate checks the container source and returns the report blob.
func (l Locator) Locate(c Container) (*Blob, error) {
	if c.Manufacturer() != l.Manufacturer && !strings.HasPrefix(c.ModelName(), l.ModelPrefix) {
		return nil, &SourceMismatchError{Manufacturer: c.Manufacturer(), Model: c.ModelName()}
	}

	blob := &Blob{}
	if l.SoftwareVersion != "" && c.SoftwareVersion() != l.SoftwareVersion {
		blob.Warnings = append(blob.Warnings, &VersionMismatchWarning{
			Got:  c.SoftwareVersion(),
			Want: l.SoftwareVersion,
		})
	}

	entries := c.Entries()
	if l.Tag != nil {
		for _, e := range entries {
			if e.Tag == *l.Tag {
				blob.Text = e.Value
				blob.Source = e.Tag
				return blob, nil
			}
		}
	}

	if l.Ordinal < 0 || l.Ordinal >= len(entries) {
		return nil, fmt.Errorf("%w: ordinal %d, container has %d entries", ErrReportNotFound, l.Ordinal, len(entries))
	}
	blob.Text = entries[l.Ordinal].Value
	blob.Source = entries[l.Ordinal].Tag
	return blob, nil
}
