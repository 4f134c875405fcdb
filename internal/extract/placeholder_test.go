package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/local/docconvert/internal/document"
)

func TestPlaceholderNeverFails(t *testing.T) {
	s := NewPlaceholderStrategy()
	src := &document.Source{Filename: "annual_report.pdf", MIME: "application/pdf", Data: []byte("%PDF-1.4")}
	analysis := document.Analysis{Class: document.ClassTextBased}

	content, err := s.Extract(context.Background(), src, analysis)
	if err != nil {
		t.Fatalf("placeholder must not fail: %v", err)
	}
	if content.PageCount != 1 {
		t.Errorf("page count = %d, want 1", content.PageCount)
	}
	if len(content.Blocks) == 0 {
		t.Fatal("placeholder produced no blocks")
	}

	var all strings.Builder
	for _, b := range content.Blocks {
		if b.Kind != document.BlockText {
			t.Errorf("unexpected block kind %s", b.Kind)
		}
		all.WriteString(b.Text)
		all.WriteByte('\n')
	}
	text := all.String()
	for _, want := range []string{"annual_report.pdf", "8 bytes", "application/pdf", "text_based", "could not be extracted"} {
		if !strings.Contains(text, want) {
			t.Errorf("diagnostic text missing %q:\n%s", want, text)
		}
	}

	title := content.Blocks[0]
	if !title.Font.Bold || title.Font.Size != 16 {
		t.Errorf("title should be 16pt bold, got %+v", title.Font)
	}

	// Blocks descend the page in order.
	for i := 1; i < len(content.Blocks); i++ {
		if content.Blocks[i].BBox.Y <= content.Blocks[i-1].BBox.Y {
			t.Fatalf("block %d not below block %d", i, i-1)
		}
	}
}

func TestPlaceholderWorksWithCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewPlaceholderStrategy()
	src := &document.Source{Filename: "x.pdf", MIME: "application/pdf", Data: []byte{0x25}}
	if _, err := s.Extract(ctx, src, document.Analysis{}); err != nil {
		t.Fatalf("placeholder must ignore context state: %v", err)
	}
}
