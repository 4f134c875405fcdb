package assemble

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"strings"

	"github.com/local/docconvert/internal/document"
	"github.com/local/docconvert/internal/layout"
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

// zipWriter accumulates OOXML package parts and produces the final
// archive bytes.
type zipWriter struct {
	buf *bytes.Buffer
	zw  *zip.Writer
	err error
}

func newZipWriter() *zipWriter {
	buf := &bytes.Buffer{}
	return &zipWriter{buf: buf, zw: zip.NewWriter(buf)}
}

func (z *zipWriter) add(name string, data []byte) {
	if z.err != nil {
		return
	}
	w, err := z.zw.Create(name)
	if err != nil {
		z.err = fmt.Errorf("create zip entry %s: %w", name, err)
		return
	}
	if _, err := w.Write(data); err != nil {
		z.err = fmt.Errorf("write zip entry %s: %w", name, err)
	}
}

func (z *zipWriter) addXML(name, body string) {
	z.add(name, []byte(xmlHeader+body))
}

func (z *zipWriter) bytes() ([]byte, error) {
	if z.err != nil {
		return nil, z.err
	}
	if err := z.zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize zip: %w", err)
	}
	return z.buf.Bytes(), nil
}

// esc XML-escapes text content.
func esc(s string) string {
	var sb strings.Builder
	if err := xml.EscapeText(&sb, []byte(s)); err != nil {
		return ""
	}
	return sb.String()
}

// emu converts points to English Metric Units.
func emu(pt float64) int64 {
	if pt < 0 {
		pt = 0
	}
	return int64(math.Round(pt * 12700))
}

// twips converts points to twentieths of a point.
func twips(pt float64) int64 {
	if pt < 0 {
		pt = 0
	}
	return int64(math.Round(pt * 20))
}

// halfPoints converts a font size in points to OOXML half-points.
func halfPoints(pt float64) int64 {
	if pt <= 0 {
		pt = 11
	}
	return int64(math.Round(pt * 2))
}

// imageFallback turns an image block whose payload cannot be embedded
// into a visible text note, keeping the block accounted for in the
// output instead of dropping it.
func imageFallback(p layout.Placed) layout.Placed {
	p.Block.Kind = document.BlockText
	p.Block.Text = "[image could not be embedded]"
	p.Block.Image = nil
	p.Block.LowConfidence = true
	if p.FontSize <= 0 {
		p.FontSize = 11
	}
	return p
}

// mediaExt maps an image MIME type to a package file extension.
func mediaExt(mime string) string {
	switch mime {
	case "image/jpeg":
		return "jpeg"
	default:
		return "png"
	}
}
