package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// Minimal but valid magic bytes, enough for content sniffing.
var (
	pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF")
	pngBytes = append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, make([]byte, 64)...)
)

func TestNewSourcePDF(t *testing.T) {
	src, err := NewSource("letter.pdf", pdfBytes, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.MIME != "application/pdf" {
		t.Errorf("MIME = %s, want application/pdf", src.MIME)
	}
	if !src.IsPDF() {
		t.Error("IsPDF should be true")
	}
	if src.SizeBytes() != len(pdfBytes) {
		t.Errorf("SizeBytes = %d, want %d", src.SizeBytes(), len(pdfBytes))
	}
}

func TestNewSourceImage(t *testing.T) {
	src, err := NewSource("", pngBytes, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.MIME != "image/png" {
		t.Errorf("MIME = %s, want image/png", src.MIME)
	}
	if src.IsPDF() {
		t.Error("IsPDF should be false for an image")
	}
	if !strings.HasSuffix(src.Filename, ".png") {
		t.Errorf("missing filename should get a sniffed extension, got %q", src.Filename)
	}
}

func TestNewSourceRejectsEmpty(t *testing.T) {
	_, err := NewSource("x.pdf", nil, 0)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestNewSourceRejectsOversize(t *testing.T) {
	_, err := NewSource("x.pdf", pdfBytes, 10)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !strings.Contains(ve.Message, "size limit") {
		t.Errorf("unexpected message: %s", ve.Message)
	}
}

func TestNewSourceRejectsUnknownType(t *testing.T) {
	_, err := NewSource("x.bin", bytes.Repeat([]byte{0x00, 0x01}, 50), 0)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestNewSourceIgnoresFilenameExtension(t *testing.T) {
	// A PDF uploaded as .png must still be detected as a PDF.
	src, err := NewSource("image.png", pdfBytes, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.MIME != "application/pdf" {
		t.Errorf("MIME = %s, want application/pdf", src.MIME)
	}
}

func TestBBoxIoU(t *testing.T) {
	tests := []struct {
		name string
		a, b BBox
		want float64
	}{
		{
			name: "identical",
			a:    BBox{X: 0, Y: 0, W: 10, H: 10},
			b:    BBox{X: 0, Y: 0, W: 10, H: 10},
			want: 1,
		},
		{
			name: "disjoint",
			a:    BBox{X: 0, Y: 0, W: 10, H: 10},
			b:    BBox{X: 20, Y: 20, W: 10, H: 10},
			want: 0,
		},
		{
			name: "touching edges",
			a:    BBox{X: 0, Y: 0, W: 10, H: 10},
			b:    BBox{X: 10, Y: 0, W: 10, H: 10},
			want: 0,
		},
		{
			name: "half overlap",
			a:    BBox{X: 0, Y: 0, W: 10, H: 10},
			b:    BBox{X: 5, Y: 0, W: 10, H: 10},
			want: 50.0 / 150.0,
		},
		{
			name: "degenerate",
			a:    BBox{X: 0, Y: 0, W: 0, H: 0},
			b:    BBox{X: 0, Y: 0, W: 10, H: 10},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.a.IoU(tt.b)
			if diff := got - tt.want; diff < -1e-9 || diff > 1e-9 {
				t.Errorf("IoU = %f, want %f", got, tt.want)
			}
			// IoU is symmetric.
			if rev := tt.b.IoU(tt.a); rev != got {
				t.Errorf("IoU not symmetric: %f vs %f", got, rev)
			}
		})
	}
}

func TestContentTextChars(t *testing.T) {
	c := &Content{Blocks: []Block{
		{Kind: BlockText, Text: "hello world"},
		{Kind: BlockText, Text: " \n\t"},
		{Kind: BlockImage, Text: "ignored"},
		{Kind: BlockText, Text: "한글 텍스트"},
	}}
	if got := c.TextChars(); got != 15 {
		t.Errorf("TextChars = %d, want 15", got)
	}
}

func TestValidFormat(t *testing.T) {
	for _, f := range []Format{FormatDOCX, FormatPPTX, FormatPDF} {
		if !ValidFormat(f) {
			t.Errorf("%s should be valid", f)
		}
	}
	if ValidFormat(Format("xlsx")) {
		t.Error("xlsx should not be valid")
	}
}

func TestAttemptDurationSerializesAsMilliseconds(t *testing.T) {
	a := Attempt{Strategy: "ocr", Outcome: OutcomeSuccess, DurationMS: 1500}
	b, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"duration_ms":1500`) {
		t.Errorf("attempt json = %s", b)
	}
}
