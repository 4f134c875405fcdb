package classifier

import (
	"regexp"

	"github.com/rs/zerolog/log"

	"github.com/local/docconvert/internal/config"
	"github.com/local/docconvert/internal/document"
	"github.com/local/docconvert/internal/metrics"
)

// Classifier probes a source document and assigns a class driving the
// extraction chain selection.
type Classifier struct {
	opener Opener
	cfg    config.ClassifyConfig
}

// New builds a Classifier with the given opener and thresholds.
func New(opener Opener, cfg config.ClassifyConfig) *Classifier {
	return &Classifier{opener: opener, cfg: cfg}
}

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Classify analyzes the source and never fails: if the document cannot
// be opened or probed, it returns a conservative scanned_image verdict
// so the chain leads with OCR.
func (c *Classifier) Classify(src *document.Source) document.Analysis {
	analysis := c.classify(src)
	metrics.IncClassified(string(analysis.Class))
	log.Debug().
		Str("filename", src.Filename).
		Str("class", string(analysis.Class)).
		Float64("text_ratio", analysis.TextRatio).
		Float64("official_confidence", analysis.OfficialConfidence).
		Int("pages", analysis.PageCount()).
		Msg("document classified")
	return analysis
}

func (c *Classifier) classify(src *document.Source) document.Analysis {
	doc, err := c.opener.Open(src.Data)
	if err != nil {
		log.Warn().Err(err).Str("filename", src.Filename).Msg("probe open failed, assuming scanned image")
		return fallbackAnalysis()
	}
	defer doc.Close()

	total := doc.NumPage()
	if total <= 0 {
		return fallbackAnalysis()
	}

	pages := make([]document.PageInfo, 0, total)
	textPages := 0
	landscapePages := 0
	firstPageText := ""

	for i := 0; i < total; i++ {
		info := document.PageInfo{Index: i + 1}

		if w, h, err := doc.PageSize(i); err == nil && w > 0 && h > 0 {
			info.Width, info.Height = w, h
		} else {
			info.Width, info.Height = 595.28, 841.89
		}
		info.Orientation = document.Portrait
		if info.Width > info.Height {
			info.Orientation = document.Landscape
			landscapePages++
		}

		text, err := doc.PageText(i)
		if err != nil {
			log.Warn().Err(err).Int("page", i+1).Msg("page text probe failed")
			text = ""
		}
		if i == 0 {
			firstPageText = text
		}

		chars := len([]rune(whitespaceRegex.ReplaceAllString(text, "")))
		info.TextChars = chars
		if chars > c.cfg.TextPageMinChars {
			textPages++
		}

		pages = append(pages, info)
	}

	ratio := float64(textPages) / float64(total)
	official := officialConfidence(firstPageText)

	class := document.ClassMixed
	switch {
	case official > c.cfg.OfficialThreshold:
		class = document.ClassOfficial
	case ratio > c.cfg.TextRatioHigh:
		class = document.ClassTextBased
	case ratio < c.cfg.TextRatioLow:
		class = document.ClassScannedImage
	}

	primary := document.Portrait
	if landscapePages*2 > total {
		primary = document.Landscape
	}

	return document.Analysis{
		Class:              class,
		TextRatio:          ratio,
		OfficialConfidence: official,
		PrimaryOrientation: primary,
		Pages:              pages,
	}
}

// fallbackAnalysis is the verdict for unreadable sources: one assumed
// A4 portrait page, scanned_image class.
func fallbackAnalysis() document.Analysis {
	return document.Analysis{
		Class:              document.ClassScannedImage,
		TextRatio:          0,
		PrimaryOrientation: document.Portrait,
		Pages: []document.PageInfo{
			{Index: 1, Width: 595.28, Height: 841.89, Orientation: document.Portrait},
		},
	}
}
