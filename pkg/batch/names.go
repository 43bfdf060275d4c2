package batch

import (
	"path/filepath"
	"strconv"
	"strings"

	"dxaextract/internal/models"
	"dxaextract/pkg/report"
)

// namer hands out output stems that are unique per output directory. The
// first scan of a patient is named by the patient id, later scans add the
// scan id and, if that is taken too, a counter.
type namer struct {
	taken map[string]bool
}

func newNamer() *namer {
	return &namer{taken: make(map[string]bool)}
}

func (n *namer) claim(dir string, p *models.PatientRecord) string {
	if n.take(dir, p.ID) {
		return p.ID
	}

	stem := p.ID
	if scan := report.PatientID(p.ScanID); scan != "" {
		stem += "_" + scan
		if n.take(dir, stem) {
			return stem
		}
	}

	for i := 2; ; i++ {
		candidate := stem + "_" + strconv.Itoa(i)
		if n.take(dir, candidate) {
			return candidate
		}
	}
}

// take reserves stem in dir. Keys ignore case so names stay distinct on
// case-insensitive file systems.
func (n *namer) take(dir, stem string) bool {
	key := strings.ToLower(filepath.Join(dir, stem))
	if n.taken[key] {
		return false
	}
	n.taken[key] = true
	return true
}
