package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/local/docconvert/internal/document"
)

// PlaceholderStrategy is the terminal fallback. It fabricates a
// single-page diagnostic document naming the source and what is known
// about it. It performs no I/O and cannot fail.
type PlaceholderStrategy struct{}

func NewPlaceholderStrategy() *PlaceholderStrategy { return &PlaceholderStrategy{} }

func (s *PlaceholderStrategy) Name() string { return NamePlaceholder }

func (s *PlaceholderStrategy) Extract(_ context.Context, src *document.Source, analysis document.Analysis) (*document.Content, error) {
	pageW, _ := analysis.PageSize(1)

	lines := []string{
		"Document Conversion Notice",
		"",
		fmt.Sprintf("File: %s", src.Filename),
		fmt.Sprintf("Size: %d bytes", src.SizeBytes()),
		fmt.Sprintf("Type: %s", src.MIME),
		fmt.Sprintf("Detected class: %s", analysis.Class),
		fmt.Sprintf("Generated: %s", time.Now().UTC().Format(time.RFC3339)),
		"",
		"The content of this document could not be extracted.",
		"All configured extraction methods were attempted without success.",
		"The original file is unchanged; please retry later or convert it manually.",
	}

	blocks := make([]document.Block, 0, len(lines))
	y := 72.0
	for i, line := range lines {
		size := 11.0
		bold := false
		if i == 0 {
			size = 16
			bold = true
		}
		if line != "" {
			blocks = append(blocks, document.Block{
				Kind:       document.BlockText,
				Page:       1,
				BBox:       document.BBox{X: 72, Y: y, W: pageW - 144, H: size * 1.2},
				Text:       line,
				Font:       document.FontHint{Size: size, Bold: bold},
				Confidence: -1,
			})
		}
		y += size * 1.8
	}

	return &document.Content{Blocks: blocks, PageCount: 1}, nil
}
