package classifier

import (
	"regexp"
	"strings"
)

// officialKeywords are field labels common in Korean administrative
// documents (recipient, sender, subject, document number and so on).
var officialKeywords = []string{
	"수신",
	"발신",
	"제목",
	"담당자",
	"문서번호",
	"시행",
	"접수",
	"결재",
	"협조",
	"붙임",
	"끝.",
}

// officialPatterns match structural markers: numbered document
// references, dated headers and labeled fields.
var officialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`제\s*\d+\s*호`),
	regexp.MustCompile(`\d{4}\.\s*\d{1,2}\.\s*\d{1,2}\.?`),
	regexp.MustCompile(`수신\s*[::]`),
	regexp.MustCompile(`발신\s*[::]`),
	regexp.MustCompile(`제목\s*[::]`),
	regexp.MustCompile(`문서번호\s*[::]`),
	regexp.MustCompile(`붙임\s*[::]?\s*\d*`),
	regexp.MustCompile(`\(인\)|\[인\]`),
}

const (
	keywordWeight = 0.3
	patternWeight = 0.7
)

// officialConfidence scores first-page text against the keyword and
// pattern tables. Keywords carry less weight than structural patterns.
// The score is clamped to [0,1].
func officialConfidence(text string) float64 {
	if text == "" {
		return 0
	}

	keywords := 0
	for _, kw := range officialKeywords {
		if strings.Contains(text, kw) {
			keywords++
		}
	}

	patterns := 0
	for _, re := range officialPatterns {
		if re.MatchString(text) {
			patterns++
		}
	}

	score := (float64(keywords)*keywordWeight + float64(patterns)*patternWeight) / 10.0
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}
