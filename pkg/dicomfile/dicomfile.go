// Package dicomfile reads DICOM files and exposes them as report.Container.
package dicomfile

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"

	"dxaextract/pkg/report"
)

// metaGroup is the file meta information group, which is not part of the
// data set proper
const metaGroup = 0x0002

// ErrFileNotFound is returned by Open when the path does not exist
var ErrFileNotFound = errors.New("dicomfile: file not found")

// UnreadableFormatError wraps a failure to read or parse a DICOM file
type UnreadableFormatError struct {
	Path string
	Err  error
}

func (e *UnreadableFormatError) Error() string {
	return fmt.Sprintf("dicomfile: unable to load %s: %v", e.Path, e.Err)
}

func (e *UnreadableFormatError) Unwrap() error {
	return e.Err
}

// File is a parsed DICOM file
type File struct {
	Path    string
	dataset dicom.Dataset
	entries []report.Entry
}

// Open parses the DICOM file at path, pixel data included
func Open(path string) (*File, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	if err != nil {
		return nil, &UnreadableFormatError{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &UnreadableFormatError{Path: path, Err: errors.New("is a directory")}
	}

	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		return nil, &UnreadableFormatError{Path: path, Err: err}
	}
	return FromDataset(path, ds), nil
}

// FromDataset wraps an already parsed data set
func FromDataset(path string, ds dicom.Dataset) *File {
	f := &File{Path: path, dataset: ds}
	for _, elem := range ds.Elements {
		if elem.Tag.Group == metaGroup {
			continue
		}
		f.entries = append(f.entries, report.Entry{
			Tag:   report.Tag{Group: elem.Tag.Group, Element: elem.Tag.Element},
			Value: elementText(elem),
		})
	}
	return f
}

// Manufacturer implements report.Container
func (f *File) Manufacturer() string {
	return f.text(tag.Manufacturer)
}

// ModelName implements report.Container
func (f *File) ModelName() string {
	return f.text(tag.ManufacturerModelName)
}

// SoftwareVersion implements report.Container
func (f *File) SoftwareVersion() string {
	return f.text(tag.SoftwareVersions)
}

// Entries implements report.Container
func (f *File) Entries() []report.Entry {
	return f.entries
}

// PixelImage decodes the first frame of the pixel data, which for DXA
// exports is the rendered report page
func (f *File) PixelImage() (image.Image, error) {
	elem, err := f.dataset.FindElementByTag(tag.PixelData)
	if err != nil {
		return nil, fmt.Errorf("dicomfile: no pixel data in %s: %w", f.Path, err)
	}
	if elem.Value == nil || elem.Value.ValueType() != dicom.PixelData {
		return nil, fmt.Errorf("dicomfile: pixel data in %s has unexpected type", f.Path)
	}

	info := dicom.MustGetPixelDataInfo(elem.Value)
	if len(info.Frames) == 0 {
		return nil, fmt.Errorf("dicomfile: pixel data in %s has no frames", f.Path)
	}

	fr := info.Frames[0]
	if fr.IsEncapsulated() {
		img, err := fr.GetImage()
		if err != nil {
			return nil, fmt.Errorf("dicomfile: decode frame of %s: %w", f.Path, err)
		}
		return img, nil
	}

	native, err := fr.GetNativeFrame()
	if err != nil {
		return nil, fmt.Errorf("dicomfile: decode frame of %s: %w", f.Path, err)
	}
	img, err := nativeImage(native)
	if err != nil {
		return nil, fmt.Errorf("dicomfile: decode frame of %s: %w", f.Path, err)
	}
	return img, nil
}

// nativeImage renders uncompressed samples. One sample of up to 8 bits
// gives image.Gray, one wider sample image.Gray16 and three samples
// image.RGBA. Samples wider than 8 bits are scaled down for RGB.
func nativeImage(nf *frame.NativeFrame) (image.Image, error) {
	pixels := nf.Rows * nf.Cols
	if pixels <= 0 {
		return nil, fmt.Errorf("empty frame %dx%d", nf.Cols, nf.Rows)
	}
	if len(nf.Data) < pixels {
		return nil, fmt.Errorf("frame holds %d pixels, want %d", len(nf.Data), pixels)
	}

	rect := image.Rect(0, 0, nf.Cols, nf.Rows)
	samples := len(nf.Data[0])
	switch {
	case samples >= 3:
		img := image.NewRGBA(rect)
		shift := max(nf.BitsPerSample-8, 0)
		for j := 0; j < pixels; j++ {
			px := nf.Data[j]
			if len(px) < 3 {
				return nil, fmt.Errorf("pixel %d has %d samples, want 3", j, len(px))
			}
			img.SetRGBA(j%nf.Cols, j/nf.Cols, color.RGBA{
				R: clamp8(px[0] >> shift),
				G: clamp8(px[1] >> shift),
				B: clamp8(px[2] >> shift),
				A: 0xff,
			})
		}
		return img, nil
	case samples == 1 && nf.BitsPerSample <= 8:
		img := image.NewGray(rect)
		for j := 0; j < pixels; j++ {
			img.SetGray(j%nf.Cols, j/nf.Cols, color.Gray{Y: clamp8(nf.Data[j][0])})
		}
		return img, nil
	case samples == 1:
		img := image.NewGray16(rect)
		for j := 0; j < pixels; j++ {
			v := min(max(nf.Data[j][0], 0), 0xffff)
			img.SetGray16(j%nf.Cols, j/nf.Cols, color.Gray16{Y: uint16(v)})
		}
		return img, nil
	default:
		return nil, fmt.Errorf("unsupported samples per pixel %d", samples)
	}
}

func clamp8(v int) uint8 {
	return uint8(min(max(v, 0), 0xff))
}

func (f *File) text(t tag.Tag) string {
	elem, err := f.dataset.FindElementByTag(t)
	if err != nil {
		return ""
	}
	return elementText(elem)
}

// elementText renders an element value as plain text. Multi-valued
// elements are joined with the DICOM value delimiter.
func elementText(elem *dicom.Element) string {
	if elem.Value == nil {
		return ""
	}
	switch elem.Value.ValueType() {
	case dicom.Strings:
		return trimPadding(strings.Join(dicom.MustGetStrings(elem.Value), `\`))
	case dicom.Bytes:
		return trimPadding(string(dicom.MustGetBytes(elem.Value)))
	case dicom.Ints:
		ints := dicom.MustGetInts(elem.Value)
		parts := make([]string, len(ints))
		for i, v := range ints {
			parts[i] = strconv.Itoa(v)
		}
		return strings.Join(parts, `\`)
	case dicom.Floats:
		floats := dicom.MustGetFloats(elem.Value)
		parts := make([]string, len(floats))
		for i, v := range floats {
			parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		return strings.Join(parts, `\`)
	case dicom.PixelData:
		return ""
	default:
		return elem.Value.String()
	}
}

// trimPadding removes the space or NUL padding of even-length values
func trimPadding(s string) string {
	return strings.TrimRight(s, " \x00")
}
