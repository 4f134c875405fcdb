package assemble

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/local/docconvert/internal/document"
	"github.com/local/docconvert/internal/layout"
)

// 1x1 transparent PNG.
var tinyPNG = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4, 0x89, 0x00, 0x00, 0x00,
	0x0A, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9C, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4E, 0x44, 0xAE, 0x42, 0x60, 0x82,
}

func sampleDoc() *layout.Document {
	return &layout.Document{
		Orientation: document.Portrait,
		PageW:       595.28,
		PageH:       841.89,
		PageCount:   2,
		Blocks: []layout.Placed{
			{
				Block: document.Block{
					Kind: document.BlockText, Page: 1,
					BBox: document.BBox{X: 197, Y: 80, W: 200, H: 18},
					Text: "회의 개최 알림",
					Font: document.FontHint{Bold: true},
				},
				Align:    layout.AlignCenter,
				Heading:  true,
				FontSize: 16,
			},
			{
				Block: document.Block{
					Kind: document.BlockText, Page: 1,
					BBox: document.BBox{X: 72, Y: 120, W: 300, H: 13},
					Text: "body text with <markup> & ampersand",
				},
				Align:         layout.AlignLeft,
				FontSize:      11,
				SpaceBeforePt: 12,
			},
			{
				Block: document.Block{
					Kind: document.BlockImage, Page: 2,
					BBox:      document.BBox{X: 72, Y: 100, W: 200, H: 150},
					Image:     tinyPNG,
					ImageMIME: "image/png",
				},
				Align: layout.AlignCenter,
			},
			{
				Block: document.Block{
					Kind:          document.BlockText, Page: 2,
					BBox:          document.BBox{X: 72, Y: 300, W: 300, H: 13},
					Text:          "uncertain OCR line",
					Confidence:    22,
					LowConfidence: true,
				},
				Align:    layout.AlignLeft,
				FontSize: 11,
			},
		},
	}
}

func readZip(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("output is not a readable zip: %v", err)
	}
	parts := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		parts[f.Name] = string(b)
	}
	return parts
}

func TestAssembleDOCX(t *testing.T) {
	out, err := New().Assemble(sampleDoc(), document.FormatDOCX)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parts := readZip(t, out)

	for _, name := range []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"word/document.xml",
		"word/_rels/document.xml.rels",
		"word/media/image1.png",
	} {
		if _, ok := parts[name]; !ok {
			t.Errorf("missing package part %s", name)
		}
	}

	docXML := parts["word/document.xml"]
	for _, want := range []string{
		"회의 개최 알림",
		`<w:jc w:val="center"/>`,
		"<w:b/>",
		`<w:sz w:val="32"/>`, // 16pt heading in half-points
		"body text with &lt;markup&gt; &amp; ampersand",
		`<w:spacing w:before="240"/>`, // 12pt in twips
		`<w:highlight w:val="yellow"/>`,
		`<w:br w:type="page"/>`,
		`<a:blip r:embed="rId100"/>`,
		`<w:pgSz w:w="11906" w:h="16838"/>`,
	} {
		if !strings.Contains(docXML, want) {
			t.Errorf("document.xml missing %q", want)
		}
	}

	if !strings.Contains(parts["word/_rels/document.xml.rels"], `Target="media/image1.png"`) {
		t.Error("image relationship missing")
	}
}

func TestAssembleDOCXLandscape(t *testing.T) {
	doc := sampleDoc()
	doc.Orientation = document.Landscape
	doc.PageW, doc.PageH = 841.89, 595.28

	out, err := New().Assemble(doc, document.FormatDOCX)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(readZip(t, out)["word/document.xml"], `w:orient="landscape"`) {
		t.Error("landscape section properties missing")
	}
}

func TestAssemblePPTX(t *testing.T) {
	out, err := New().Assemble(sampleDoc(), document.FormatPPTX)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parts := readZip(t, out)

	for _, name := range []string{
		"[Content_Types].xml",
		"ppt/presentation.xml",
		"ppt/slideMasters/slideMaster1.xml",
		"ppt/slideLayouts/slideLayout1.xml",
		"ppt/theme/theme1.xml",
		"ppt/slides/slide1.xml",
		"ppt/slides/slide2.xml",
		"ppt/slides/_rels/slide2.xml.rels",
		"ppt/media/image1.png",
	} {
		if _, ok := parts[name]; !ok {
			t.Errorf("missing package part %s", name)
		}
	}

	if !strings.Contains(parts["ppt/presentation.xml"], `<p:sldSz cx="7560056" cy="10692003"/>`) {
		t.Errorf("slide size not derived from page size: %s", parts["ppt/presentation.xml"])
	}
	if !strings.Contains(parts["ppt/slides/slide1.xml"], "회의 개최 알림") {
		t.Error("slide 1 missing heading text")
	}
	if !strings.Contains(parts["ppt/slides/slide2.xml"], "a:blip") {
		t.Error("slide 2 missing picture shape")
	}
	if got := strings.Count(parts["ppt/presentation.xml"], "<p:sldId "); got != 2 {
		t.Errorf("slide id count = %d, want 2", got)
	}
}

func emptyImageDoc() *layout.Document {
	return &layout.Document{
		Orientation: document.Portrait,
		PageW:       595.28,
		PageH:       841.89,
		PageCount:   1,
		Blocks: []layout.Placed{
			{
				Block: document.Block{
					Kind: document.BlockText, Page: 1,
					BBox: document.BBox{X: 72, Y: 80, W: 300, H: 13},
					Text: "before the figure",
				},
				Align: layout.AlignLeft, FontSize: 11,
			},
			{
				Block: document.Block{
					Kind:      document.BlockImage, Page: 1,
					BBox:      document.BBox{X: 72, Y: 120, W: 200, H: 150},
					ImageMIME: "image/png",
				},
				Align: layout.AlignCenter,
			},
			{
				Block: document.Block{
					Kind: document.BlockText, Page: 1,
					BBox: document.BBox{X: 72, Y: 300, W: 300, H: 13},
					Text: "after the figure",
				},
				Align: layout.AlignLeft, FontSize: 11,
			},
		},
	}
}

func TestAssembleDOCXDegradesUnembeddableImage(t *testing.T) {
	out, err := New().Assemble(emptyImageDoc(), document.FormatDOCX)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	docXML := readZip(t, out)["word/document.xml"]

	if !strings.Contains(docXML, "[image could not be embedded]") {
		t.Error("missing note for the unembeddable image block")
	}
	if strings.Contains(docXML, "<w:drawing>") {
		t.Error("no drawing should be emitted for an empty image payload")
	}
	note := strings.Index(docXML, "[image could not be embedded]")
	if before := strings.Index(docXML, "before the figure"); before == -1 || before > note {
		t.Error("note should follow the preceding paragraph")
	}
	if after := strings.Index(docXML, "after the figure"); after == -1 || after < note {
		t.Error("note should precede the following paragraph")
	}
}

func TestAssemblePPTXDegradesUnembeddableImage(t *testing.T) {
	out, err := New().Assemble(emptyImageDoc(), document.FormatPPTX)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parts := readZip(t, out)

	slide := parts["ppt/slides/slide1.xml"]
	if !strings.Contains(slide, "[image could not be embedded]") {
		t.Error("missing note shape for the unembeddable image block")
	}
	if strings.Contains(slide, "a:blip") {
		t.Error("no picture shape should be emitted for an empty image payload")
	}
	for name := range parts {
		if strings.HasPrefix(name, "ppt/media/") {
			t.Errorf("no media part expected, found %s", name)
		}
	}
}

func TestAssembleUnsupportedFormat(t *testing.T) {
	if _, err := New().Assemble(sampleDoc(), document.Format("odt")); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestAssemblePDFRequiresPageImages(t *testing.T) {
	if _, err := New().Assemble(sampleDoc(), document.FormatPDF); err == nil {
		t.Fatal("expected error when no page images are attached")
	}
}

func TestCannedDOCX(t *testing.T) {
	out := New().Canned(document.FormatDOCX, "scan.pdf")
	parts := readZip(t, out)
	if !strings.Contains(parts["word/document.xml"], "Document conversion failed.") {
		t.Error("canned document missing failure notice")
	}
	if !strings.Contains(parts["word/document.xml"], "scan.pdf") {
		t.Error("canned document missing source filename")
	}
}

func TestCannedPDF(t *testing.T) {
	out := New().Canned(document.FormatPDF, "scan.pdf")
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatal("canned PDF missing header")
	}
	if !bytes.Contains(out, []byte("Document conversion failed.")) {
		t.Error("canned PDF missing failure notice")
	}
	if !bytes.HasSuffix(bytes.TrimRight(out, "\n"), []byte("%%EOF")) {
		t.Error("canned PDF missing trailer")
	}
}

func TestEscapePDFText(t *testing.T) {
	if got := escapePDFText(`a(b)c\d`); got != `a\(b\)c\\d` {
		t.Errorf("escaped = %q", got)
	}
	if got := escapePDFText("한글"); got != "??" {
		t.Errorf("non-latin should degrade to placeholders, got %q", got)
	}
}

func TestUnitConversions(t *testing.T) {
	if got := emu(72); got != 914400 {
		t.Errorf("emu(72) = %d, want 914400", got)
	}
	if got := twips(12); got != 240 {
		t.Errorf("twips(12) = %d, want 240", got)
	}
	if got := halfPoints(11); got != 22 {
		t.Errorf("halfPoints(11) = %d, want 22", got)
	}
	if got := halfPoints(0); got != 22 {
		t.Errorf("halfPoints(0) should default to body size, got %d", got)
	}
	if got := emu(-5); got != 0 {
		t.Errorf("emu(-5) = %d, want 0", got)
	}
}
