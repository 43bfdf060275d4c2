package visualization

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"

	"dxaextract/internal/models"
)

// createTestPage creates a grayscale page where each pixel encodes its
// coordinates
func createTestPage(width, height int) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray16(x, y, color.Gray16{Y: uint16(y*width + x)})
		}
	}
	return img
}

// TestExtractRegion verifies the extracted region matches the source pixels
func TestExtractRegion(t *testing.T) {
	page := createTestPage(64, 48)
	viewer := NewViewer(page)

	region := models.ImageRegion{X: 10, Y: 5, Width: 20, Height: 8}
	img, err := viewer.ExtractRegion(region)
	if err != nil {
		t.Fatalf("Failed to extract region: %v", err)
	}

	bounds := img.Bounds()
	if bounds.Min != (image.Point{}) || bounds.Dx() != 20 || bounds.Dy() != 8 {
		t.Fatalf("Expected 20x8 image at origin, got %v", bounds)
	}

	gray, ok := img.(*image.Gray16)
	if !ok {
		t.Fatalf("Expected Gray16 output, got %T", img)
	}
	for y := 0; y < region.Height; y++ {
		for x := 0; x < region.Width; x++ {
			want := page.Gray16At(region.X+x, region.Y+y).Y
			if got := gray.Gray16At(x, y).Y; got != want {
				t.Fatalf("Pixel (%d, %d) = %d, want %d", x, y, got, want)
			}
		}
	}

	// The copy must not alias the page
	gray.SetGray16(0, 0, color.Gray16{Y: 65535})
	if page.Gray16At(10, 5).Y == 65535 {
		t.Error("Extracted region shares pixels with the page")
	}
}

// TestExtractRegionInvalid verifies bounds validation
func TestExtractRegionInvalid(t *testing.T) {
	viewer := NewViewer(createTestPage(32, 32))

	tests := []struct {
		name   string
		region models.ImageRegion
	}{
		{"negative start", models.ImageRegion{X: -1, Y: 0, Width: 4, Height: 4}},
		{"zero size", models.ImageRegion{X: 0, Y: 0, Width: 0, Height: 4}},
		{"beyond width", models.ImageRegion{X: 30, Y: 0, Width: 4, Height: 4}},
		{"beyond height", models.ImageRegion{X: 0, Y: 30, Width: 4, Height: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := viewer.ExtractRegion(tt.region); err == nil {
				t.Errorf("Expected error for region %+v", tt.region)
			}
		})
	}
}

// TestSavePageAndRegion verifies both output images can be read back
func TestSavePageAndRegion(t *testing.T) {
	dir := t.TempDir()
	viewer := NewViewer(createTestPage(40, 30))

	pagePath := filepath.Join(dir, "nested", "DXA_Report.png")
	if err := viewer.SavePage(pagePath); err != nil {
		t.Fatalf("Failed to save page: %v", err)
	}
	f, err := os.Open(pagePath)
	if err != nil {
		t.Fatalf("Failed to open page: %v", err)
	}
	defer f.Close()
	page, err := png.Decode(f)
	if err != nil {
		t.Fatalf("Failed to decode page: %v", err)
	}
	if page.Bounds().Dx() != 40 || page.Bounds().Dy() != 30 {
		t.Errorf("Unexpected page size %v", page.Bounds())
	}

	regionPath := filepath.Join(dir, "scan_image.bmp")
	if err := viewer.SaveRegion(models.ImageRegion{X: 2, Y: 3, Width: 12, Height: 9}, regionPath); err != nil {
		t.Fatalf("Failed to save region: %v", err)
	}
	g, err := os.Open(regionPath)
	if err != nil {
		t.Fatalf("Failed to open region: %v", err)
	}
	defer g.Close()
	scan, err := bmp.Decode(g)
	if err != nil {
		t.Fatalf("Failed to decode region: %v", err)
	}
	if scan.Bounds().Dx() != 12 || scan.Bounds().Dy() != 9 {
		t.Errorf("Unexpected region size %v", scan.Bounds())
	}

	if err := viewer.SaveRegion(models.ImageRegion{X: 39, Y: 0, Width: 5, Height: 5}, filepath.Join(dir, "bad.bmp")); err == nil {
		t.Error("Expected error for a region outside the page")
	}
}
