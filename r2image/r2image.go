// Package r2image is the floating point RGB image produced by the renderer,
// plus encoding to and decoding from the usual file formats.
package r2image

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"r3trace/vmath/rgb"
)

// Image is stored row-major with row 0 at the top.
type Image struct {
	Width  int
	Height int
	Pix    []rgb.T
}

func New(width, height int) *Image {
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]rgb.T, width*height),
	}
}

func (im *Image) Get(row, col int) rgb.T {
	return im.Pix[row*im.Width+col]
}

func (im *Image) Set(row, col int, c rgb.T) {
	im.Pix[row*im.Width+col] = c
}

func to8(v, gamma float64) uint8 {
	v = math.Max(0, math.Min(1, v))
	if gamma > 0 && gamma != 1 {
		v = math.Pow(v, 1/gamma)
	}
	return uint8(math.Round(v * 255))
}

// ToNRGBA clamps to [0, 1] and quantizes to 8 bits.  A gamma other than 0 or 1
// is applied as v^(1/gamma) first.
func (im *Image) ToNRGBA(gamma float64) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, im.Width, im.Height))
	for row := 0; row < im.Height; row++ {
		for col := 0; col < im.Width; col++ {
			c := im.Get(row, col)
			out.SetNRGBA(col, row, color.NRGBA{
				R: to8(c[0], gamma),
				G: to8(c[1], gamma),
				B: to8(c[2], gamma),
				A: 255,
			})
		}
	}
	return out
}

// FromImage converts a decoded image to linear floating point.
func FromImage(src image.Image) *Image {
	b := src.Bounds()
	im := New(b.Dx(), b.Dy())
	for row := 0; row < im.Height; row++ {
		for col := 0; col < im.Width; col++ {
			r, g, bl, _ := src.At(b.Min.X+col, b.Min.Y+row).RGBA()
			im.Set(row, col, rgb.T{float64(r) / 0xffff, float64(g) / 0xffff, float64(bl) / 0xffff})
		}
	}
	return im
}

// FormatFromPath maps a file extension to an encoder name.
func FormatFromPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "png", nil
	case ".jpg", ".jpeg":
		return "jpeg", nil
	case ".bmp":
		return "bmp", nil
	case ".tif", ".tiff":
		return "tiff", nil
	}
	return "", fmt.Errorf("unknown image extension %q", filepath.Ext(path))
}

// ContentType is the MIME type of an encoder name.
func ContentType(format string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "bmp":
		return "image/bmp"
	case "tiff":
		return "image/tiff"
	}
	return "image/png"
}

func EncodeImage(w io.Writer, m image.Image, format string) error {
	switch format {
	case "png":
		return png.Encode(w, m)
	case "jpeg":
		return jpeg.Encode(w, m, &jpeg.Options{Quality: 95})
	case "bmp":
		return bmp.Encode(w, m)
	case "tiff":
		return tiff.Encode(w, m, &tiff.Options{Compression: tiff.Deflate})
	}
	return fmt.Errorf("unknown image format %q", format)
}

// Encode writes im with sRGB-ish gamma 2.2.
func (im *Image) Encode(w io.Writer, format string) error {
	return EncodeImage(w, im.ToNRGBA(2.2), format)
}

func (im *Image) WriteFile(path string) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("while creating %s: %w", path, err)
	}

	if err := im.Encode(f, format); err != nil {
		f.Close()
		return fmt.Errorf("while encoding %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("while closing %s: %w", path, err)
	}
	return nil
}

// Decode reads any of the formats this package writes.
func Decode(r io.Reader) (image.Image, error) {
	m, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("while decoding image: %w", err)
	}
	return m, nil
}

func ReadFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("while opening %s: %w", path, err)
	}
	defer f.Close()

	m, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("while reading %s: %w", path, err)
	}
	return m, nil
}
