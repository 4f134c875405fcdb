package extract

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/local/docconvert/internal/config"
	"github.com/local/docconvert/internal/document"
)

func ocrConfig() config.OCRConfig {
	return config.OCRConfig{
		Binary:           "tesseract",
		Languages:        "kor+eng",
		FallbackLanguage: "eng",
		Workers:          2,
		ConfidenceFloor:  40,
		PageTimeout:      30 * time.Second,
		DPIPortrait:      200,
		DPILandscape:     300,
		DPIOfficial:      400,
	}
}

const tsvHeader = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext"

func tsvRow(cols ...string) string { return strings.Join(cols, "\t") }

func TestParseTSVGroupsWordsIntoLines(t *testing.T) {
	out := strings.Join([]string{
		tsvHeader,
		tsvRow("1", "1", "0", "0", "0", "0", "0", "0", "1654", "2339", "-1", ""),
		tsvRow("4", "1", "1", "1", "1", "0", "100", "200", "330", "40", "-1", ""),
		tsvRow("5", "1", "1", "1", "1", "1", "100", "200", "150", "40", "91.5", "Hello"),
		tsvRow("5", "1", "1", "1", "1", "2", "270", "200", "160", "40", "78.5", "world"),
		tsvRow("5", "1", "1", "1", "2", "1", "100", "300", "200", "40", "20.0", "faint"),
		"",
	}, "\n")

	// 200 dpi, so pixel coordinates scale by 72/200.
	blocks := parseTSV(out, 3, 72.0/200.0, 40)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 line blocks, got %d", len(blocks))
	}

	first := blocks[0]
	if first.Text != "Hello world" {
		t.Errorf("text = %q, want %q", first.Text, "Hello world")
	}
	if first.Page != 3 {
		t.Errorf("page = %d, want 3", first.Page)
	}
	if first.Kind != document.BlockText {
		t.Errorf("kind = %s, want text", first.Kind)
	}
	if first.BBox.X != 36 || first.BBox.Y != 72 {
		t.Errorf("origin = (%f, %f), want (36, 72)", first.BBox.X, first.BBox.Y)
	}
	if diff := first.BBox.W - 118.8; diff < -1e-9 || diff > 1e-9 {
		t.Errorf("width = %f, want 118.8", first.BBox.W)
	}
	if first.Confidence != 85 {
		t.Errorf("confidence = %f, want 85", first.Confidence)
	}
	if first.LowConfidence {
		t.Error("average confidence 85 must not be flagged low")
	}

	second := blocks[1]
	if second.Text != "faint" {
		t.Errorf("second text = %q", second.Text)
	}
	if !second.LowConfidence {
		t.Error("confidence 20 should be flagged low")
	}
}

func TestParseTSVSkipsNonWordRows(t *testing.T) {
	out := strings.Join([]string{
		tsvHeader,
		tsvRow("1", "1", "0", "0", "0", "0", "0", "0", "1654", "2339", "-1", ""),
		tsvRow("2", "1", "1", "0", "0", "0", "90", "190", "400", "60", "-1", ""),
		tsvRow("3", "1", "1", "1", "0", "0", "90", "190", "400", "60", "-1", ""),
		tsvRow("5", "1", "1", "1", "1", "1", "100", "200", "80", "40", "95", "ok"),
		tsvRow("5", "1", "1", "1", "1", "2", "200", "200", "80", "40", "95", " "),
	}, "\n")

	blocks := parseTSV(out, 1, 1, 40)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	if blocks[0].Text != "ok" {
		t.Errorf("text = %q, want %q", blocks[0].Text, "ok")
	}
}

func TestParseTSVEmptyOutput(t *testing.T) {
	if blocks := parseTSV(tsvHeader+"\n", 1, 1, 40); len(blocks) != 0 {
		t.Fatalf("expected no blocks, got %d", len(blocks))
	}
	if blocks := parseTSV("", 1, 1, 40); len(blocks) != 0 {
		t.Fatalf("expected no blocks from empty output, got %d", len(blocks))
	}
}

func TestParseTSVSeparateParagraphs(t *testing.T) {
	// Same line number in different paragraphs must not merge.
	out := strings.Join([]string{
		tsvHeader,
		tsvRow("5", "1", "1", "1", "1", "1", "100", "200", "80", "40", "90", "alpha"),
		tsvRow("5", "1", "1", "2", "1", "1", "100", "400", "80", "40", "90", "beta"),
	}, "\n")

	blocks := parseTSV(out, 1, 1, 40)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
}

func TestExtractMissingBinary(t *testing.T) {
	cfg := ocrConfig()
	cfg.Binary = "no-such-ocr-binary-on-this-host"
	s := NewOCRStrategy(cfg)

	src := &document.Source{Filename: "scan.pdf", MIME: "application/pdf", Data: []byte("%PDF-")}
	_, err := s.Extract(context.Background(), src, document.Analysis{})

	var unavail *document.UnavailableError
	if !errors.As(err, &unavail) {
		t.Fatalf("expected UnavailableError, got %v", err)
	}
	if OutcomeFor(err) != document.OutcomeHardFailure {
		t.Error("missing binary should classify as a hard failure")
	}
}

func TestPageDPI(t *testing.T) {
	s := NewOCRStrategy(ocrConfig())

	tests := []struct {
		class       document.Class
		orientation document.Orientation
		want        int
	}{
		{document.ClassScannedImage, document.Portrait, 200},
		{document.ClassScannedImage, document.Landscape, 300},
		{document.ClassOfficial, document.Portrait, 400},
		{document.ClassOfficial, document.Landscape, 400},
		{document.ClassMixed, document.Portrait, 200},
	}

	for _, tt := range tests {
		if got := s.pageDPI(tt.class, tt.orientation); got != tt.want {
			t.Errorf("pageDPI(%s, %s) = %d, want %d", tt.class, tt.orientation, got, tt.want)
		}
	}
}

func TestWorkerLimit(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, 1},
		{-2, 1},
		{1, 1},
		{4, 4},
	}
	for _, tt := range tests {
		if got := workerLimit(tt.in); got != tt.want {
			t.Errorf("workerLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
