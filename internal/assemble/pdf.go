package assemble

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/rs/zerolog/log"

	"github.com/local/docconvert/internal/layout"
)

// buildPDF produces the image-fallback PDF: one full-bleed page per
// rasterized source page, matching the source page size. It requires
// PageImages to be populated on the assembled document.
func buildPDF(doc *layout.Document) ([]byte, error) {
	if len(doc.PageImages) == 0 {
		return nil, fmt.Errorf("no page images to build PDF from")
	}

	desc := fmt.Sprintf("dim:%d %d, pos:full", int(doc.PageW), int(doc.PageH))
	imp, err := api.Import(desc, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("image import config: %w", err)
	}

	readers := make([]io.Reader, len(doc.PageImages))
	for i, img := range doc.PageImages {
		readers[i] = bytes.NewReader(img)
	}

	var buf bytes.Buffer
	if err := api.ImportImages(nil, &buf, readers, imp, nil); err != nil {
		return nil, fmt.Errorf("import page images: %w", err)
	}

	log.Debug().Int("pages", len(doc.PageImages)).Int("bytes", buf.Len()).Msg("assembled image-fallback PDF")
	return buf.Bytes(), nil
}

// cannedPDF builds a minimal one-page PDF with the given lines of
// text. It depends on nothing that can fail and backs the last-resort
// output path.
func cannedPDF(lines []string) []byte {
	var content bytes.Buffer
	content.WriteString("BT /F1 12 Tf 72 770 Td 16 TL\n")
	for i, line := range lines {
		if i > 0 {
			content.WriteString("T*\n")
		}
		fmt.Fprintf(&content, "(%s) Tj\n", escapePDFText(line))
	}
	content.WriteString("ET\n")

	objects := []string{
		"<</Type/Catalog/Pages 2 0 R>>",
		"<</Type/Pages/Kids[3 0 R]/Count 1>>",
		"<</Type/Page/Parent 2 0 R/MediaBox[0 0 595 842]/Resources<</Font<</F1 4 0 R>>>>/Contents 5 0 R>>",
		"<</Type/Font/Subtype/Type1/BaseFont/Helvetica>>",
		fmt.Sprintf("<</Length %d>>stream\n%sendstream", content.Len(), content.String()),
	}

	var out bytes.Buffer
	out.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = out.Len()
		fmt.Fprintf(&out, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xrefStart := out.Len()
	fmt.Fprintf(&out, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&out, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&out, "trailer\n<</Size %d/Root 1 0 R>>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xrefStart)
	return out.Bytes()
}

func escapePDFText(s string) string {
	var out bytes.Buffer
	for _, r := range s {
		switch r {
		case '(', ')', '\\':
			out.WriteByte('\\')
			out.WriteRune(r)
		default:
			// The canned document uses a Latin text encoding only.
			if r < 32 || r > 126 {
				out.WriteByte('?')
			} else {
				out.WriteRune(r)
			}
		}
	}
	return out.String()
}
