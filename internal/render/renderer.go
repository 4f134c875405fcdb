package render

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog/log"

	"github.com/local/docconvert/internal/metrics"
)

// Page rasterizes one page of an in-memory document at the given DPI.
// Page numbers are 1-based. Standalone images come back as page 1 at
// their native resolution regardless of dpi.
func Page(data []byte, page int, dpi float64) (image.Image, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer doc.Close()

	if page < 1 || page > doc.NumPage() {
		return nil, fmt.Errorf("page %d out of range (document has %d pages)", page, doc.NumPage())
	}

	img, err := doc.ImageDPI(page-1, dpi)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", page, err)
	}
	return img, nil
}

// PageGray renders a page and converts it to grayscale, the form the
// OCR engine and graphics detection work on.
func PageGray(data []byte, page int, dpi float64) (*image.Gray, error) {
	img, err := Page(data, page, dpi)
	if err != nil {
		return nil, err
	}
	return toGrayscale(img), nil
}

// AllPagesJPEG renders every page as JPEG, used for the image-fallback
// PDF output. Returns one encoded payload per page.
func AllPagesJPEG(data []byte, dpi float64, quality int) ([][]byte, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer doc.Close()

	total := doc.NumPage()
	if total <= 0 {
		return nil, fmt.Errorf("document has no pages")
	}

	out := make([][]byte, 0, total)
	for i := 0; i < total; i++ {
		img, err := doc.ImageDPI(i, dpi)
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", i+1, err)
		}
		buf, err := EncodeJPEG(img, quality)
		if err != nil {
			return nil, err
		}
		metrics.IncRendered("pdf_fallback")
		out = append(out, buf)
	}

	log.Debug().Int("pages", total).Float64("dpi", dpi).Msg("rendered all pages to JPEG")
	return out, nil
}

// EncodePNG encodes an image as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeJPEG encodes an image as JPEG bytes. CMYK and alpha inputs are
// redrawn onto an RGBA canvas first so encoding never fails on exotic
// color models.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	img = NormalizeRGBA(img)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// NormalizeRGBA redraws an image onto an RGBA canvas with a white
// background, flattening alpha and converting CMYK or paletted inputs.
func NormalizeRGBA(img image.Image) image.Image {
	if _, ok := img.(*image.RGBA); ok {
		return img
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, image.White, image.Point{}, draw.Src)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Over)
	return rgba
}

// Crop returns the sub-image of img bounded by rect, copied.
func Crop(img image.Image, rect image.Rectangle) image.Image {
	rect = rect.Intersect(img.Bounds())
	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(out, out.Bounds(), img, rect.Min, draw.Src)
	return out
}

// toGrayscale converts an image to grayscale.
func toGrayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	return gray
}
