package report

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

// TestLocatorLegacyOrdinal pins the report position for Discovery W 13.2
func TestLocatorLegacyOrdinal(t *testing.T) {
	if LegacyReportOrdinal != 28 {
		t.Fatalf("Report ordinal changed to %d", LegacyReportOrdinal)
	}

	c := sampleContainer("the report")
	blob, err := DefaultLocator().Locate(c)
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if blob.Text != "the report" {
		t.Errorf("Expected entry %d, got %q", LegacyReportOrdinal, blob.Text)
	}
	if len(blob.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", blob.Warnings)
	}
}

// TestLocatorByTag prefers the configured tag over the ordinal
func TestLocatorByTag(t *testing.T) {
	c := sampleContainer("at ordinal")
	c.entries[3] = Entry{Tag: Tag{Group: 0x0019, Element: 0x1000}, Value: "by tag"}

	loc := DefaultLocator()
	tag, err := ParseTag("(0019,1000)")
	if err != nil {
		t.Fatalf("ParseTag failed: %v", err)
	}
	loc.Tag = &tag

	blob, err := loc.Locate(c)
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if blob.Text != "by tag" || blob.Source != tag {
		t.Errorf("Expected tagged entry, got %q from %s", blob.Text, blob.Source)
	}

	// An absent tag falls back to the ordinal
	other := Tag{Group: 0x7777, Element: 0x0001}
	loc.Tag = &other
	blob, err = loc.Locate(c)
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if blob.Text != "at ordinal" {
		t.Errorf("Expected ordinal fallback, got %q", blob.Text)
	}
}

func TestLocatorSourceChecks(t *testing.T) {
	t.Run("manufacturer only", func(t *testing.T) {
		c := sampleContainer("x")
		c.model = "Horizon A"
		if _, err := DefaultLocator().Locate(c); err != nil {
			t.Errorf("HOLOGIC manufacturer should be accepted: %v", err)
		}
	})

	t.Run("model only", func(t *testing.T) {
		c := sampleContainer("x")
		c.manufacturer = "Hologic, Inc."
		if _, err := DefaultLocator().Locate(c); err != nil {
			t.Errorf("Discovery W model should be accepted: %v", err)
		}
	})

	t.Run("neither", func(t *testing.T) {
		c := sampleContainer("x")
		c.manufacturer = "GE"
		c.model = "Lunar iDXA"
		_, err := DefaultLocator().Locate(c)
		var mismatch *SourceMismatchError
		if !errors.As(err, &mismatch) {
			t.Fatalf("Expected SourceMismatchError, got %v", err)
		}
		if mismatch.Manufacturer != "GE" {
			t.Errorf("Unexpected manufacturer %q", mismatch.Manufacturer)
		}
	})

	t.Run("version mismatch warns", func(t *testing.T) {
		c := sampleContainer("x")
		c.version = "13.6"
		blob, err := DefaultLocator().Locate(c)
		if err != nil {
			t.Fatalf("Version mismatch must not fail: %v", err)
		}
		if len(blob.Warnings) != 1 {
			t.Fatalf("Expected one warning, got %v", blob.Warnings)
		}
		var warning *VersionMismatchWarning
		if !errors.As(blob.Warnings[0], &warning) || warning.Got != "13.6" {
			t.Errorf("Expected VersionMismatchWarning, got %v", blob.Warnings[0])
		}
	})

	t.Run("ordinal out of range", func(t *testing.T) {
		c := sampleContainer("x")
		c.entries = c.entries[:5]
		if _, err := DefaultLocator().Locate(c); !errors.Is(err, ErrReportNotFound) {
			t.Errorf("Expected ErrReportNotFound, got %v", err)
		}
	})
}

func TestParseTag(t *testing.T) {
	want := Tag{Group: 0x0029, Element: 0x1010}
	for _, in := range []string{"(0029,1010)", "0029,1010", "00291010", " (0029, 1010) "} {
		got, err := ParseTag(in)
		if err != nil {
			t.Errorf("ParseTag(%q) failed: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseTag(%q) = %s, want %s", in, got, want)
		}
	}
	for _, in := range []string{"", "0029", "zzzz,1010", "(10000,0001)"} {
		if _, err := ParseTag(in); err == nil {
			t.Errorf("ParseTag(%q) should fail", in)
		}
	}
	if s := want.String(); s != "(0029,1010)" {
		t.Errorf("String() = %q", s)
	}
}

// TestCollapseRoundTrip checks a single known cell survives collapsing
func TestCollapseRoundTrip(t *testing.T) {
	table, err := Reconstruct([]Cell{
		{0, 0, "Region"},
		{1, 0, "Head"},
		{0, 1, "BMD[(g/cm^2)]"},
		{1, 1, "1.234"},
	})
	if err != nil {
		t.Fatalf("Reconstruct failed: %v", err)
	}

	summary, err := Collapse(table, []string{"BMD[(g/cm^2)]"})
	if err != nil {
		t.Fatalf("Collapse failed: %v", err)
	}
	if v, ok := summary.Get("head_bmd"); !ok || v != 1.234 {
		t.Errorf("Expected head_bmd = 1.234, got %v (ok=%v)", v, ok)
	}
}

func TestCollapseDefaultMeasurements(t *testing.T) {
	res, err := (&Parser{Locator: DefaultLocator(), Summarize: true}).Parse(sampleContainer(sampleScript()))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	want := len(sampleColumns) * len(DefaultMeasurements)
	if len(res.Summary.Entries) != want {
		t.Fatalf("Expected %d summary entries, got %d", want, len(res.Summary.Entries))
	}
	keys := res.Summary.Keys()
	if keys[0] != "head_area" || keys[len(keys)-1] != "total_pct_fat" {
		t.Errorf("Unexpected key order: first %q, last %q", keys[0], keys[len(keys)-1])
	}
	if v, ok := res.Summary.Map()["l_arm_bmd"]; !ok || v != sampleValue(2, 3) {
		t.Errorf("Expected l_arm_bmd = %v, got %v (ok=%v)", sampleValue(2, 3), v, ok)
	}
}

func TestCollapseMissingMeasurement(t *testing.T) {
	cells, _ := MatchCells(FilterLines(SplitLines(sampleScript()), DefaultTableMarker))
	table, err := Reconstruct(cells)
	if err != nil {
		t.Fatalf("Reconstruct failed: %v", err)
	}
	_, err = Collapse(table, []string{"BMC[(g)]", "T-Score"})
	var missing *MissingMeasurementError
	if !errors.As(err, &missing) || missing.Measurement != "T-Score" {
		t.Errorf("Expected MissingMeasurementError for T-Score, got %v", err)
	}
}

func TestSummaryKey(t *testing.T) {
	tests := []struct{ column, measurement, want string }{
		{"Head", "BMD[(g/cm^2)]", "head_bmd"},
		{"L Arm", "% Fat[(%)]", "l_arm_pct_fat"},
		{"L-Spine", "BMC[(g)]", "lspine_bmc"},
		{"Arms+Legs", "Lean[(g)]", "armsandlegs_lean"},
		{"Total", "Total", "total_total"},
	}
	for _, tt := range tests {
		if got := SummaryKey(tt.column, tt.measurement); got != tt.want {
			t.Errorf("SummaryKey(%q, %q) = %q, want %q", tt.column, tt.measurement, got, tt.want)
		}
	}
}

// TestParseIdempotent parses the same container twice and compares bits
func TestParseIdempotent(t *testing.T) {
	c := sampleContainer(sampleScript())
	p := NewParser()
	p.Summarize = true
	p.WithImageRegion = true

	first, err := p.Parse(c)
	if err != nil {
		t.Fatalf("First parse failed: %v", err)
	}
	second, err := p.Parse(c)
	if err != nil {
		t.Fatalf("Second parse failed: %v", err)
	}

	if !reflect.DeepEqual(first.Table.Columns(), second.Table.Columns()) ||
		!reflect.DeepEqual(first.Table.Rows(), second.Table.Rows()) {
		t.Fatal("Table labels differ between parses")
	}
	rows, cols := first.Table.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			a, b := first.Table.At(i, j), second.Table.At(i, j)
			if math.Float64bits(a) != math.Float64bits(b) {
				t.Errorf("Cell (%d, %d) differs: %v vs %v", i, j, a, b)
			}
		}
	}
	if !reflect.DeepEqual(first.Patient, second.Patient) {
		t.Errorf("Patient records differ: %+v vs %+v", first.Patient, second.Patient)
	}
	if !reflect.DeepEqual(first.ImageRegion, second.ImageRegion) {
		t.Errorf("Image regions differ")
	}
}

// TestParseAtomic returns no partial result when a patient field is absent
func TestParseAtomic(t *testing.T) {
	res, err := NewParser().Parse(sampleContainer(sampleScript(FieldEthnicity)))
	var missing *MissingFieldError
	if !errors.As(err, &missing) || missing.Field != FieldEthnicity {
		t.Fatalf("Expected MissingFieldError for Ethnicity, got %v", err)
	}
	if res != nil {
		t.Errorf("Expected nil result, got %+v", res)
	}
}

func TestParseCarriesWarnings(t *testing.T) {
	c := sampleContainer(sampleScript())
	c.version = "12.7"
	res, err := NewParser().Parse(c)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(res.Warnings) != 1 {
		t.Errorf("Expected the version warning to be carried, got %v", res.Warnings)
	}
}
