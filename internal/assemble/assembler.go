package assemble

import (
	"fmt"

	"github.com/local/docconvert/internal/document"
	"github.com/local/docconvert/internal/layout"
)

// Assembler turns a reconstructed layout into output file bytes.
type Assembler struct{}

func New() *Assembler { return &Assembler{} }

// Assemble builds the target format from an assembled document.
func (a *Assembler) Assemble(doc *layout.Document, format document.Format) ([]byte, error) {
	switch format {
	case document.FormatDOCX:
		return buildDOCX(doc)
	case document.FormatPPTX:
		return buildPPTX(doc)
	case document.FormatPDF:
		return buildPDF(doc)
	default:
		return nil, fmt.Errorf("unsupported target format: %s", format)
	}
}

// Canned returns a static minimal document for the given format, used
// only when even placeholder assembly failed. For the OOXML formats it
// assembles a fixed single-paragraph document; for PDF it emits a
// hand-built constant.
func (a *Assembler) Canned(format document.Format, filename string) []byte {
	lines := []string{
		"Document conversion failed.",
		fmt.Sprintf("Source file: %s", filename),
		"Please retry later or convert the document manually.",
	}

	if format == document.FormatPDF {
		return cannedPDF(lines)
	}

	doc := &layout.Document{
		Orientation: document.Portrait,
		PageW:       595.28,
		PageH:       841.89,
		PageCount:   1,
	}
	y := 72.0
	for _, line := range lines {
		doc.Blocks = append(doc.Blocks, layout.Placed{
			Block: document.Block{
				Kind: document.BlockText,
				Page: 1,
				BBox: document.BBox{X: 72, Y: y, W: 451, H: 14},
				Text: line,
			},
			Align:    layout.AlignLeft,
			FontSize: 11,
		})
		y += 20
	}

	out, err := a.Assemble(doc, format)
	if err != nil {
		// Text-only OOXML assembly writes to memory and cannot
		// realistically fail; fall back to the PDF constant anyway.
		return cannedPDF(lines)
	}
	return out
}
