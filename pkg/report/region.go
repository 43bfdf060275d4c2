package report

import (
	"regexp"
	"strconv"
	"strings"

	"dxaextract/internal/models"
)

// Names of the scan image geometry fields
const (
	FieldImageXPos  = "ImageXPos"
	FieldImageYPos  = "ImageYPos"
	FieldImageXSize = "ImageXSize"
	FieldImageYSize = "ImageYSize"
)

var firstInteger = regexp.MustCompile(`\d+`)

type regionField struct {
	name string
	dst  *int
}

// ExtractImageRegion finds the rectangle of the scan image on the report
// page. The first integer after the field name on the first line naming
// each field is used.
func ExtractImageRegion(lines []string) (*models.ImageRegion, error) {
	region := &models.ImageRegion{}
	targets := []regionField{
		{FieldImageXPos, &region.X},
		{FieldImageYPos, &region.Y},
		{FieldImageXSize, &region.Width},
		{FieldImageYSize, &region.Height},
	}

	found := make(map[string]bool, len(targets))
	for _, line := range lines {
		for _, t := range targets {
			at := strings.Index(line, t.name)
			if found[t.name] || at < 0 {
				continue
			}
			token := firstInteger.FindString(line[at+len(t.name):])
			if token == "" {
				return nil, &FieldFormatError{Field: t.name, Value: line, Err: strconv.ErrSyntax}
			}
			v, err := strconv.Atoi(token)
			if err != nil {
				return nil, &FieldFormatError{Field: t.name, Value: line, Err: err}
			}
			*t.dst = v
			found[t.name] = true
		}
	}

	for _, t := range targets {
		if !found[t.name] {
			return nil, &MissingFieldError{Field: t.name}
		}
	}
	return region, nil
}
