package layout

import (
	"sort"

	"github.com/local/docconvert/internal/config"
	"github.com/local/docconvert/internal/document"
)

// Alignment of a placed block within the page column.
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

// Placed is a content block with inferred presentation attributes.
type Placed struct {
	Block         document.Block
	Align         Alignment
	Heading       bool
	FontSize      float64
	SpaceBeforePt float64
}

// Document is the assembly-ready view of extracted content: blocks in
// reading order with alignment, sizing and spacing resolved.
type Document struct {
	Orientation document.Orientation
	PageW       float64
	PageH       float64
	PageCount   int
	Blocks      []Placed

	// PageImages carries rasterized source pages for the image
	// fallback PDF output. Filled by the caller, not here.
	PageImages [][]byte
}

// Reconstructor orders blocks, resolves overlaps and infers alignment
// and emphasis. It is a pure transformation over extracted content.
type Reconstructor struct {
	cfg config.LayoutConfig
}

func New(cfg config.LayoutConfig) *Reconstructor {
	return &Reconstructor{cfg: cfg}
}

// Reconstruct builds the assembly-ready document. The input content is
// not mutated.
func (r *Reconstructor) Reconstruct(content *document.Content, analysis document.Analysis) *Document {
	pageW, pageH := analysis.PageSize(1)
	if analysis.PrimaryOrientation == document.Landscape && pageW < pageH {
		pageW, pageH = pageH, pageW
	}

	pageCount := content.PageCount
	if pageCount < 1 {
		pageCount = 1
	}

	doc := &Document{
		Orientation: analysis.PrimaryOrientation,
		PageW:       pageW,
		PageH:       pageH,
		PageCount:   pageCount,
	}
	if len(content.Blocks) == 0 {
		return doc
	}

	blocks := make([]document.Block, len(content.Blocks))
	copy(blocks, content.Blocks)

	// Reading order: page, then top edge, then left edge.
	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].Page != blocks[j].Page {
			return blocks[i].Page < blocks[j].Page
		}
		if blocks[i].BBox.Y != blocks[j].BBox.Y {
			return blocks[i].BBox.Y < blocks[j].BBox.Y
		}
		return blocks[i].BBox.X < blocks[j].BBox.X
	})

	r.resolveOverlaps(blocks)

	doc.Blocks = make([]Placed, 0, len(blocks))
	var prev *document.Block
	for i := range blocks {
		b := blocks[i]
		p := Placed{Block: b}

		p.Align = r.inferAlignment(b, pageW)
		p.FontSize = b.Font.Size
		if p.FontSize <= 0 {
			p.FontSize = 11
		}
		if b.Kind == document.BlockText {
			p.Heading = r.isHeading(b, p.Align)
			if p.Heading && p.FontSize < r.cfg.HeadingMinPt {
				p.FontSize = 16
			}
		}

		if prev != nil && prev.Page == b.Page {
			gap := b.BBox.Y - prev.BBox.Bottom()
			if gap < r.cfg.MinGapPt {
				gap = r.cfg.MinGapPt
			}
			if gap > r.cfg.MaxGapPt {
				gap = r.cfg.MaxGapPt
			}
			p.SpaceBeforePt = gap
		}

		doc.Blocks = append(doc.Blocks, p)
		prev = &blocks[i]
	}

	return doc
}

// resolveOverlaps pushes any block overlapping an earlier one on the
// same page below it. Blocks are already in reading order, so a later
// block never ends up above one it collided with.
func (r *Reconstructor) resolveOverlaps(blocks []document.Block) {
	for i := 1; i < len(blocks); i++ {
		// A pushed block can collide with the next earlier one, so
		// re-scan until the block is clear.
		for pass := 0; pass < len(blocks); pass++ {
			moved := false
			for j := 0; j < i; j++ {
				if blocks[j].Page != blocks[i].Page {
					continue
				}
				if blocks[i].BBox.IoU(blocks[j].BBox) > r.cfg.OverlapIoU {
					blocks[i].BBox.Y = blocks[j].BBox.Bottom() + r.cfg.MinGapPt
					moved = true
				}
			}
			if !moved {
				break
			}
		}
	}
}

// inferAlignment maps margins to an alignment. Symmetric margins with
// a near-page-center midpoint read as centered; a tight right margin
// with a wide left margin reads as right-aligned; everything else is
// left-aligned. Wide images center regardless.
func (r *Reconstructor) inferAlignment(b document.Block, pageW float64) Alignment {
	if pageW <= 0 {
		return AlignLeft
	}

	if b.Kind == document.BlockImage {
		if b.BBox.W > 0.7*pageW {
			return AlignCenter
		}
		mid := b.BBox.X + b.BBox.W/2
		if mid > pageW/2 {
			return AlignRight
		}
		return AlignLeft
	}

	leftMargin := b.BBox.X / pageW
	rightMargin := (pageW - b.BBox.Right()) / pageW
	centerOffset := abs((b.BBox.X+b.BBox.Right())/2-pageW/2) / pageW

	if centerOffset < r.cfg.CenterOffsetTol && abs(leftMargin-rightMargin) < r.cfg.MarginDiffTol {
		return AlignCenter
	}
	if rightMargin < r.cfg.RightMarginMax && leftMargin > r.cfg.LeftMarginMin {
		return AlignRight
	}
	return AlignLeft
}

// isHeading flags short centered lines that carry bold or oversized
// type.
func (r *Reconstructor) isHeading(b document.Block, align Alignment) bool {
	if align != AlignCenter {
		return false
	}
	if len([]rune(b.Text)) > r.cfg.HeadingMaxChars {
		return false
	}
	return b.Font.Bold || b.Font.Size >= r.cfg.HeadingMinPt
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
