package extract

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"github.com/local/docconvert/internal/document"
	"github.com/local/docconvert/internal/render"
)

const (
	// Characters on the same baseline within this tolerance (points)
	// belong to one line.
	lineTolerance = 3.0

	// A horizontal gap wider than this fraction of the font size gets
	// a space inserted between fragments.
	wordSpaceMultiplier = 0.3

	// Analysis DPI for graphics-region detection on mixed pages.
	graphicsDPI = 150.0

	// Minimum graphic size to lift into an image block, about 2 cm.
	minGraphicPt = 56.7
)

// NativeTextStrategy extracts embedded text with positions straight
// from the PDF content streams. For mixed and official documents it
// additionally rasterizes pages and lifts large graphic regions into
// image blocks so stamps and figures survive the conversion.
type NativeTextStrategy struct{}

func NewNativeTextStrategy() *NativeTextStrategy { return &NativeTextStrategy{} }

func (s *NativeTextStrategy) Name() string { return NameNativeText }

func (s *NativeTextStrategy) Extract(ctx context.Context, src *document.Source, analysis document.Analysis) (content *document.Content, err error) {
	if !src.IsPDF() {
		return nil, fmt.Errorf("native extraction requires a PDF, got %s: %w", src.MIME, ErrNoContent)
	}

	// The content stream parser panics on malformed operators.
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Str("filename", src.Filename).Msg("native extraction panicked")
			content = nil
			err = fmt.Errorf("content stream parse failed: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(src.Data), int64(len(src.Data)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	total := reader.NumPage()
	if total <= 0 {
		return nil, fmt.Errorf("document has no pages: %w", ErrNoContent)
	}

	var blocks []document.Block
	for pageNum := 1; pageNum <= total; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		_, pageH := analysis.PageSize(pageNum)
		texts := page.Content().Text
		blocks = append(blocks, groupLines(texts, pageNum, pageH)...)
	}

	textChars := 0
	for _, b := range blocks {
		textChars += len([]rune(b.Text))
	}
	if textChars == 0 {
		return nil, fmt.Errorf("document carries no embedded text: %w", ErrNoContent)
	}

	hiFidelity := analysis.Class == document.ClassMixed || analysis.Class == document.ClassOfficial
	if hiFidelity {
		imgBlocks, err := s.graphicBlocks(ctx, src, analysis)
		if err != nil {
			log.Warn().Err(err).Str("filename", src.Filename).Msg("graphics lift failed, text-only output")
		} else {
			blocks = append(blocks, imgBlocks...)
		}
	}

	log.Debug().
		Str("filename", src.Filename).
		Int("blocks", len(blocks)).
		Int("text_chars", textChars).
		Bool("hi_fidelity", hiFidelity).
		Msg("native extraction complete")

	return &document.Content{Blocks: blocks, PageCount: total}, nil
}

// groupLines sorts raw positioned characters into line blocks with a
// top-left-origin bounding box.
func groupLines(texts []pdf.Text, pageNum int, pageH float64) []document.Block {
	if len(texts) == 0 {
		return nil
	}

	// Baseline first (top of page is high Y in PDF space), then X.
	sorted := make([]pdf.Text, len(texts))
	copy(sorted, texts)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var blocks []document.Block
	var line []pdf.Text
	flush := func() {
		if len(line) == 0 {
			return
		}
		blocks = append(blocks, lineBlock(line, pageNum, pageH))
		line = nil
	}

	for _, t := range sorted {
		if t.S == "" {
			continue
		}
		if len(line) > 0 && abs(line[0].Y-t.Y) > lineTolerance {
			flush()
		}
		line = append(line, t)
	}
	flush()
	return blocks
}

// lineBlock assembles one line's characters into a text block,
// inserting spaces across wide horizontal gaps.
func lineBlock(line []pdf.Text, pageNum int, pageH float64) document.Block {
	sort.SliceStable(line, func(i, j int) bool { return line[i].X < line[j].X })

	var sb strings.Builder
	minX, maxRight := line[0].X, line[0].X+line[0].W
	fontSize := line[0].FontSize
	baseline := line[0].Y

	prevRight := line[0].X
	for i, t := range line {
		if i > 0 {
			gap := t.X - prevRight
			if t.FontSize > 0 && gap > t.FontSize*wordSpaceMultiplier {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(t.S)
		prevRight = t.X + t.W

		if t.X < minX {
			minX = t.X
		}
		if t.X+t.W > maxRight {
			maxRight = t.X + t.W
		}
		if t.FontSize > fontSize {
			fontSize = t.FontSize
		}
		if t.Y > baseline {
			baseline = t.Y
		}
	}

	if fontSize <= 0 {
		fontSize = 11
	}

	return document.Block{
		Kind: document.BlockText,
		Page: pageNum,
		BBox: document.BBox{
			X: minX,
			Y: pageH - baseline - fontSize,
			W: maxRight - minX,
			H: fontSize * 1.2,
		},
		Text: sb.String(),
		Font: document.FontHint{
			Name: line[0].Font,
			Size: fontSize,
			Bold: strings.Contains(line[0].Font, "Bold"),
		},
		Confidence: -1,
	}
}

// graphicBlocks rasterizes pages and lifts large connected graphic
// regions into cropped PNG image blocks.
func (s *NativeTextStrategy) graphicBlocks(ctx context.Context, src *document.Source, analysis document.Analysis) ([]document.Block, error) {
	var blocks []document.Block
	ptPerPixel := 72.0 / graphicsDPI

	for _, info := range analysis.Pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// Text-dense pages keep their graphics in the text flow.
		if info.TextChars > 2000 {
			continue
		}

		gray, err := render.PageGray(src.Data, info.Index, graphicsDPI)
		if err != nil {
			return nil, err
		}
		regions := render.DetectGraphics(gray, graphicsDPI, minGraphicPt)
		if len(regions) == 0 {
			continue
		}

		color, err := render.Page(src.Data, info.Index, graphicsDPI)
		if err != nil {
			return nil, err
		}
		for _, reg := range regions {
			crop := render.Crop(color, reg.Rect)
			payload, err := render.EncodePNG(crop)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, document.Block{
				Kind: document.BlockImage,
				Page: info.Index,
				BBox: document.BBox{
					X: float64(reg.Rect.Min.X) * ptPerPixel,
					Y: float64(reg.Rect.Min.Y) * ptPerPixel,
					W: float64(reg.Rect.Dx()) * ptPerPixel,
					H: float64(reg.Rect.Dy()) * ptPerPixel,
				},
				Image:      payload,
				ImageMIME:  "image/png",
				Confidence: -1,
			})
		}
	}
	return blocks, nil
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
