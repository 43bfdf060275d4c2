package visualization

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/image/bmp"

	"dxaextract/internal/models"
)

// Viewer gives access to the rendered report page stored in the pixel data
// of a DXA DICOM file and to the scan image drawn on it.
type Viewer struct {
	// page holds the full report page
	page image.Image
}

// NewViewer creates a viewer over a decoded report page
func NewViewer(page image.Image) *Viewer {
	return &Viewer{page: page}
}

// Page returns the full report page
func (v *Viewer) Page() image.Image {
	return v.page
}

// ExtractRegion copies the rectangle described by region out of the page.
// The result starts at (0, 0) and shares no pixels with the page.
func (v *Viewer) ExtractRegion(region models.ImageRegion) (image.Image, error) {
	// Validate parameters
	if region.X < 0 || region.Y < 0 {
		return nil, fmt.Errorf("start coordinates must be non-negative")
	}

	if region.Width <= 0 || region.Height <= 0 {
		return nil, fmt.Errorf("size dimensions must be positive")
	}

	bounds := v.page.Bounds()
	rect := image.Rect(region.X, region.Y, region.X+region.Width, region.Y+region.Height).Add(bounds.Min)
	if !rect.In(bounds) {
		return nil, fmt.Errorf("region %v extends beyond page boundaries %v", rect, bounds)
	}

	// Keep the page's pixel format where possible
	var dst draw.Image
	out := image.Rect(0, 0, region.Width, region.Height)
	switch v.page.(type) {
	case *image.Gray16:
		dst = image.NewGray16(out)
	case *image.Gray:
		dst = image.NewGray(out)
	default:
		dst = image.NewRGBA(out)
	}
	draw.Draw(dst, out, v.page, rect.Min, draw.Src)

	return dst, nil
}

// SavePage saves the full report page as a PNG image
func (v *Viewer) SavePage(filename string) error {
	return saveImage(filename, v.page, png.Encode)
}

// SaveRegion extracts region and saves it as a BMP image
func (v *Viewer) SaveRegion(region models.ImageRegion, filename string) error {
	img, err := v.ExtractRegion(region)
	if err != nil {
		return err
	}
	return saveImage(filename, toBMPCompatible(img), bmp.Encode)
}

// toBMPCompatible converts 16-bit grayscale, which BMP cannot store, to
// 8-bit grayscale
func toBMPCompatible(img image.Image) image.Image {
	if _, ok := img.(*image.Gray16); !ok {
		return img
	}
	gray := image.NewGray(img.Bounds())
	draw.Draw(gray, gray.Bounds(), img, img.Bounds().Min, draw.Src)
	return gray
}

func saveImage(filename string, img image.Image, encode func(w io.Writer, m image.Image) error) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}

	if err := encode(file, img); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode %s: %w", filename, err)
	}
	return file.Close()
}
