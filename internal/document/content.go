package document

// BlockKind distinguishes the element types carried by a content block.
type BlockKind string

const (
	BlockText  BlockKind = "text"
	BlockImage BlockKind = "image"
	BlockTable BlockKind = "table"
)

// BBox is an axis-aligned box in PDF points with a top-left origin.
type BBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

func (b BBox) Right() float64  { return b.X + b.W }
func (b BBox) Bottom() float64 { return b.Y + b.H }
func (b BBox) Area() float64   { return b.W * b.H }

// IoU computes intersection-over-union with another box. Returns 0 for
// disjoint or degenerate boxes.
func (b BBox) IoU(o BBox) float64 {
	ix := max(b.X, o.X)
	iy := max(b.Y, o.Y)
	ix2 := min(b.Right(), o.Right())
	iy2 := min(b.Bottom(), o.Bottom())
	if ix2 <= ix || iy2 <= iy {
		return 0
	}
	inter := (ix2 - ix) * (iy2 - iy)
	union := b.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// FontHint carries whatever styling the extractor could recover.
type FontHint struct {
	Name string  `json:"name,omitempty"`
	Size float64 `json:"size,omitempty"`
	Bold bool    `json:"bold,omitempty"`
}

// Block is one positioned element extracted from a page.
type Block struct {
	Kind BlockKind `json:"kind"`
	Page int       `json:"page"` // 1-based
	BBox BBox      `json:"bbox"`

	Text string   `json:"text,omitempty"`
	Font FontHint `json:"font,omitempty"`

	// Image payload, PNG or JPEG encoded. Set only for BlockImage.
	Image     []byte `json:"-"`
	ImageMIME string `json:"image_mime,omitempty"`

	// OCR confidence in [0,100]. Negative when not applicable.
	Confidence    float64 `json:"confidence,omitempty"`
	LowConfidence bool    `json:"low_confidence,omitempty"`
}

// Content is the normalized output of an extraction strategy.
type Content struct {
	Blocks    []Block `json:"blocks"`
	PageCount int     `json:"page_count"`
}

// TextChars counts the runes of all text blocks, whitespace excluded.
func (c *Content) TextChars() int {
	n := 0
	for _, b := range c.Blocks {
		if b.Kind != BlockText {
			continue
		}
		for _, r := range b.Text {
			if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
				n++
			}
		}
	}
	return n
}
