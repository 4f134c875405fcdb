package assemble

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/local/docconvert/internal/document"
	"github.com/local/docconvert/internal/layout"
)

// buildPPTX renders the assembled document as a PresentationML
// package, one slide per source page. Blocks keep their absolute
// positions: slides are a better fit than flowing text for pages where
// geometry matters.
func buildPPTX(doc *layout.Document) ([]byte, error) {
	z := newZipWriter()

	slideW := emu(doc.PageW)
	slideH := emu(doc.PageH)

	// Group blocks by page.
	pages := make(map[int][]layout.Placed)
	maxPage := doc.PageCount
	for _, p := range doc.Blocks {
		pages[p.Block.Page] = append(pages[p.Block.Page], p)
		if p.Block.Page > maxPage {
			maxPage = p.Block.Page
		}
	}
	if maxPage < 1 {
		maxPage = 1
	}

	// [Content_Types].xml
	var ct strings.Builder
	ct.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	ct.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	ct.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	ct.WriteString(`<Default Extension="png" ContentType="image/png"/>`)
	ct.WriteString(`<Default Extension="jpeg" ContentType="image/jpeg"/>`)
	ct.WriteString(`<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>`)
	ct.WriteString(`<Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"/>`)
	ct.WriteString(`<Override PartName="/ppt/slideLayouts/slideLayout1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"/>`)
	ct.WriteString(`<Override PartName="/ppt/theme/theme1.xml" ContentType="application/vnd.openxmlformats-officedocument.theme+xml"/>`)
	for i := 1; i <= maxPage; i++ {
		ct.WriteString(fmt.Sprintf(`<Override PartName="/ppt/slides/slide%d.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>`, i))
	}
	ct.WriteString(`</Types>`)
	z.addXML("[Content_Types].xml", ct.String())

	z.addXML("_rels/.rels", rootRels("ppt/presentation.xml", "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"))

	// presentation.xml and its rels
	var presRels, sldIDs strings.Builder
	presRels.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	presRels.WriteString(`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster" Target="slideMasters/slideMaster1.xml"/>`)
	for i := 1; i <= maxPage; i++ {
		presRels.WriteString(fmt.Sprintf(`<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide%d.xml"/>`, i+1, i))
		sldIDs.WriteString(fmt.Sprintf(`<p:sldId id="%d" r:id="rId%d"/>`, 255+i, i+1))
	}
	presRels.WriteString(`</Relationships>`)
	z.addXML("ppt/_rels/presentation.xml.rels", presRels.String())

	z.addXML("ppt/presentation.xml",
		`<p:presentation xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`+
			` xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`+
			` xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">`+
			`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>`+
			`<p:sldIdLst>`+sldIDs.String()+`</p:sldIdLst>`+
			fmt.Sprintf(`<p:sldSz cx="%d" cy="%d"/><p:notesSz cx="%d" cy="%d"/>`, slideW, slideH, slideH, slideW)+
			`</p:presentation>`)

	z.addXML("ppt/slideMasters/slideMaster1.xml", slideMasterXML)
	z.addXML("ppt/slideMasters/_rels/slideMaster1.xml.rels",
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+
			`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout" Target="../slideLayouts/slideLayout1.xml"/>`+
			`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme" Target="../theme/theme1.xml"/>`+
			`</Relationships>`)
	z.addXML("ppt/slideLayouts/slideLayout1.xml", slideLayoutXML)
	z.addXML("ppt/slideLayouts/_rels/slideLayout1.xml.rels",
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+
			`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster" Target="../slideMasters/slideMaster1.xml"/>`+
			`</Relationships>`)
	z.addXML("ppt/theme/theme1.xml", themeXML)

	imageCount := 0
	for i := 1; i <= maxPage; i++ {
		var shapes strings.Builder
		var rels strings.Builder
		rels.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
		rels.WriteString(`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout" Target="../slideLayouts/slideLayout1.xml"/>`)

		shapeID := 2
		for _, p := range pages[i] {
			if p.Block.Kind == document.BlockImage {
				if len(p.Block.Image) == 0 {
					shapes.WriteString(slideTextBox(shapeID, imageFallback(p)))
					shapeID++
					continue
				}
				imageCount++
				relID := fmt.Sprintf("rId%d", shapeID+100)
				name := fmt.Sprintf("../media/image%d.%s", imageCount, mediaExt(p.Block.ImageMIME))
				z.add(fmt.Sprintf("ppt/media/image%d.%s", imageCount, mediaExt(p.Block.ImageMIME)), p.Block.Image)
				rels.WriteString(fmt.Sprintf(`<Relationship Id="%s" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="%s"/>`, relID, name))
				shapes.WriteString(slidePicture(shapeID, relID, p))
			} else {
				shapes.WriteString(slideTextBox(shapeID, p))
			}
			shapeID++
		}
		rels.WriteString(`</Relationships>`)

		z.addXML(fmt.Sprintf("ppt/slides/slide%d.xml", i),
			`<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`+
				` xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`+
				` xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">`+
				`<p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>`+
				shapes.String()+
				`</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>`)
		z.addXML(fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", i), rels.String())
	}

	out, err := z.bytes()
	if err != nil {
		return nil, err
	}
	log.Debug().Int("slides", maxPage).Int("images", imageCount).Int("bytes", len(out)).Msg("assembled PPTX")
	return out, nil
}

func slideTextBox(id int, p layout.Placed) string {
	algn := ""
	switch p.Align {
	case layout.AlignCenter:
		algn = ` algn="ctr"`
	case layout.AlignRight:
		algn = ` algn="r"`
	}
	bold := ""
	if p.Block.Font.Bold || p.Heading {
		bold = ` b="1"`
	}
	w := p.Block.BBox.W
	h := p.Block.BBox.H
	if w <= 0 {
		w = 100
	}
	if h <= 0 {
		h = p.FontSize * 1.4
	}

	return fmt.Sprintf(
		`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="TextBox %d"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>`+
			`<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm>`+
			`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr>`+
			`<p:txBody><a:bodyPr wrap="square"/><a:lstStyle/><a:p><a:pPr%s/>`+
			`<a:r><a:rPr lang="ko-KR" sz="%d"%s dirty="0"/><a:t>%s</a:t></a:r></a:p></p:txBody></p:sp>`,
		id, id,
		emu(p.Block.BBox.X), emu(p.Block.BBox.Y), emu(w), emu(h),
		algn,
		int64(p.FontSize*100), bold, esc(p.Block.Text),
	)
}

func slidePicture(id int, relID string, p layout.Placed) string {
	w := p.Block.BBox.W
	h := p.Block.BBox.H
	if w <= 0 {
		w = 200
	}
	if h <= 0 {
		h = 150
	}
	return fmt.Sprintf(
		`<p:pic><p:nvPicPr><p:cNvPr id="%d" name="Picture %d"/><p:cNvPicPr/><p:nvPr/></p:nvPicPr>`+
			`<p:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></p:blipFill>`+
			`<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm>`+
			`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr></p:pic>`,
		id, id, relID,
		emu(p.Block.BBox.X), emu(p.Block.BBox.Y), emu(w), emu(h),
	)
}

const slideMasterXML = `<p:sldMaster xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"><p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/></p:spTree></p:cSld><p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/><p:sldLayoutIdLst><p:sldLayoutId id="2147483649" r:id="rId1"/></p:sldLayoutIdLst></p:sldMaster>`

const slideLayoutXML = `<p:sldLayout xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" type="blank"><p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/></p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sldLayout>`

const themeXML = `<a:theme xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" name="Office"><a:themeElements><a:clrScheme name="Office"><a:dk1><a:sysClr val="windowText" lastClr="000000"/></a:dk1><a:lt1><a:sysClr val="window" lastClr="FFFFFF"/></a:lt1><a:dk2><a:srgbClr val="44546A"/></a:dk2><a:lt2><a:srgbClr val="E7E6E6"/></a:lt2><a:accent1><a:srgbClr val="4472C4"/></a:accent1><a:accent2><a:srgbClr val="ED7D31"/></a:accent2><a:accent3><a:srgbClr val="A5A5A5"/></a:accent3><a:accent4><a:srgbClr val="FFC000"/></a:accent4><a:accent5><a:srgbClr val="5B9BD5"/></a:accent5><a:accent6><a:srgbClr val="70AD47"/></a:accent6><a:hlink><a:srgbClr val="0563C1"/></a:hlink><a:folHlink><a:srgbClr val="954F72"/></a:folHlink></a:clrScheme><a:fontScheme name="Office"><a:majorFont><a:latin typeface="Calibri Light"/><a:ea typeface="Malgun Gothic"/><a:cs typeface=""/></a:majorFont><a:minorFont><a:latin typeface="Calibri"/><a:ea typeface="Malgun Gothic"/><a:cs typeface=""/></a:minorFont></a:fontScheme><a:fmtScheme name="Office"><a:fillStyleLst><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:fillStyleLst><a:lnStyleLst><a:ln><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln><a:ln><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln><a:ln><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln></a:lnStyleLst><a:effectStyleLst><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle></a:effectStyleLst><a:bgFillStyleLst><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:bgFillStyleLst></a:fmtScheme></a:themeElements></a:theme>`
