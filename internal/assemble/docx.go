package assemble

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/local/docconvert/internal/document"
	"github.com/local/docconvert/internal/layout"
)

// buildDOCX renders the assembled document as a WordprocessingML
// package. Blocks flow in reading order; positioning degrades to
// paragraph alignment and vertical spacing.
func buildDOCX(doc *layout.Document) ([]byte, error) {
	z := newZipWriter()

	type media struct {
		relID string
		name  string
		data  []byte
	}
	var images []media

	var body strings.Builder
	prevPage := 0
	for i, p := range doc.Blocks {
		if prevPage != 0 && p.Block.Page != prevPage {
			body.WriteString(`<w:p><w:r><w:br w:type="page"/></w:r></w:p>`)
		}
		prevPage = p.Block.Page

		switch p.Block.Kind {
		case document.BlockImage:
			if len(p.Block.Image) == 0 {
				body.WriteString(textParagraph(imageFallback(p)))
				continue
			}
			relID := fmt.Sprintf("rId%d", 100+len(images))
			name := fmt.Sprintf("media/image%d.%s", len(images)+1, mediaExt(p.Block.ImageMIME))
			images = append(images, media{relID: relID, name: name, data: p.Block.Image})
			body.WriteString(imageParagraph(relID, i+1, p))
		default:
			// Tables degrade to text paragraphs; their cell text
			// already carries line structure.
			body.WriteString(textParagraph(p))
		}
	}

	body.WriteString(sectionProperties(doc))

	docXML := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"` +
		` xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"` +
		` xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"` +
		` xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"` +
		` xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture">` +
		`<w:body>` + body.String() + `</w:body></w:document>`

	z.addXML("[Content_Types].xml", contentTypesDOCX())
	z.addXML("_rels/.rels", rootRels("word/document.xml", "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"))

	var docRels strings.Builder
	docRels.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	for _, img := range images {
		docRels.WriteString(fmt.Sprintf(`<Relationship Id="%s" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="%s"/>`, img.relID, img.name))
	}
	docRels.WriteString(`</Relationships>`)
	z.addXML("word/_rels/document.xml.rels", docRels.String())
	z.addXML("word/document.xml", docXML)

	for _, img := range images {
		z.add("word/"+img.name, img.data)
	}

	out, err := z.bytes()
	if err != nil {
		return nil, err
	}
	log.Debug().Int("blocks", len(doc.Blocks)).Int("images", len(images)).Int("bytes", len(out)).Msg("assembled DOCX")
	return out, nil
}

func textParagraph(p layout.Placed) string {
	var sb strings.Builder
	sb.WriteString(`<w:p><w:pPr>`)
	switch p.Align {
	case layout.AlignCenter:
		sb.WriteString(`<w:jc w:val="center"/>`)
	case layout.AlignRight:
		sb.WriteString(`<w:jc w:val="right"/>`)
	}
	if p.SpaceBeforePt > 0 {
		sb.WriteString(fmt.Sprintf(`<w:spacing w:before="%d"/>`, twips(p.SpaceBeforePt)))
	}
	sb.WriteString(`</w:pPr><w:r><w:rPr>`)
	if p.Block.Font.Bold || p.Heading {
		sb.WriteString(`<w:b/>`)
	}
	sb.WriteString(fmt.Sprintf(`<w:sz w:val="%d"/>`, halfPoints(p.FontSize)))
	if p.Block.LowConfidence {
		sb.WriteString(`<w:highlight w:val="yellow"/>`)
	}
	sb.WriteString(`</w:rPr><w:t xml:space="preserve">`)
	sb.WriteString(esc(p.Block.Text))
	sb.WriteString(`</w:t></w:r></w:p>`)
	return sb.String()
}

func imageParagraph(relID string, id int, p layout.Placed) string {
	cx := emu(p.Block.BBox.W)
	cy := emu(p.Block.BBox.H)
	if cx <= 0 {
		cx = emu(200)
	}
	if cy <= 0 {
		cy = emu(150)
	}

	var sb strings.Builder
	sb.WriteString(`<w:p><w:pPr>`)
	if p.Align == layout.AlignCenter {
		sb.WriteString(`<w:jc w:val="center"/>`)
	} else if p.Align == layout.AlignRight {
		sb.WriteString(`<w:jc w:val="right"/>`)
	}
	sb.WriteString(`</w:pPr><w:r><w:drawing>`)
	sb.WriteString(fmt.Sprintf(`<wp:inline distT="0" distB="0" distL="0" distR="0"><wp:extent cx="%d" cy="%d"/>`, cx, cy))
	sb.WriteString(fmt.Sprintf(`<wp:docPr id="%d" name="Picture %d"/>`, id, id))
	sb.WriteString(`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">`)
	sb.WriteString(`<pic:pic><pic:nvPicPr>`)
	sb.WriteString(fmt.Sprintf(`<pic:cNvPr id="%d" name="Picture %d"/><pic:cNvPicPr/>`, id, id))
	sb.WriteString(`</pic:nvPicPr><pic:blipFill>`)
	sb.WriteString(fmt.Sprintf(`<a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch>`, relID))
	sb.WriteString(`</pic:blipFill><pic:spPr><a:xfrm><a:off x="0" y="0"/>`)
	sb.WriteString(fmt.Sprintf(`<a:ext cx="%d" cy="%d"/>`, cx, cy))
	sb.WriteString(`</a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr></pic:pic>`)
	sb.WriteString(`</a:graphicData></a:graphic></wp:inline></w:drawing></w:r></w:p>`)
	return sb.String()
}

func sectionProperties(doc *layout.Document) string {
	orient := ""
	if doc.Orientation == document.Landscape {
		orient = ` w:orient="landscape"`
	}
	return fmt.Sprintf(
		`<w:sectPr><w:pgSz w:w="%d" w:h="%d"%s/><w:pgMar w:top="1134" w:right="1134" w:bottom="1134" w:left="1134"/></w:sectPr>`,
		twips(doc.PageW), twips(doc.PageH), orient,
	)
}

func contentTypesDOCX() string {
	return `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		`<Default Extension="png" ContentType="image/png"/>` +
		`<Default Extension="jpeg" ContentType="image/jpeg"/>` +
		`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
		`</Types>`
}

func rootRels(target, relType string) string {
	return fmt.Sprintf(
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+
			`<Relationship Id="rId1" Type="%s" Target="%s"/></Relationships>`,
		relType, target,
	)
}
