package document

// Class describes the dominant composition of a document.
type Class string

const (
	ClassTextBased    Class = "text_based"
	ClassScannedImage Class = "scanned_image"
	ClassMixed        Class = "mixed"
	ClassOfficial     Class = "official"
)

// Orientation of a page or document.
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

// Format is a target output format.
type Format string

const (
	FormatDOCX Format = "docx"
	FormatPPTX Format = "pptx"
	FormatPDF  Format = "pdf"
)

// ValidFormat reports whether f is a supported target format.
func ValidFormat(f Format) bool {
	switch f {
	case FormatDOCX, FormatPPTX, FormatPDF:
		return true
	}
	return false
}

// PageInfo holds the measured geometry of a single page, in PDF points.
type PageInfo struct {
	Index       int         `json:"index"`
	Width       float64     `json:"width"`
	Height      float64     `json:"height"`
	Orientation Orientation `json:"orientation"`
	TextChars   int         `json:"text_chars"`
}

// Analysis is the classifier verdict for a source document.
type Analysis struct {
	Class              Class       `json:"class"`
	TextRatio          float64     `json:"text_ratio"`
	OfficialConfidence float64     `json:"official_confidence"`
	PrimaryOrientation Orientation `json:"primary_orientation"`
	Pages              []PageInfo  `json:"pages"`
}

// PageCount returns the number of analyzed pages.
func (a Analysis) PageCount() int { return len(a.Pages) }

// PageSize returns the geometry for a 1-based page number, falling back
// to the first page when the index is out of range.
func (a Analysis) PageSize(page int) (w, h float64) {
	if page >= 1 && page <= len(a.Pages) {
		p := a.Pages[page-1]
		return p.Width, p.Height
	}
	if len(a.Pages) > 0 {
		return a.Pages[0].Width, a.Pages[0].Height
	}
	// A4 portrait in points
	return 595.28, 841.89
}
