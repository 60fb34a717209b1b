package smartfilter

import (
	"regexp"
	"strings"

	"github.com/poiesic/recall/lexical"
)

var (
	cjkOrgPattern     = regexp.MustCompile(`[\x{4e00}-\x{9fff}]+(?:公司|集团|股份|有限|科技|电子|半导体)`)
	englishOrgPattern = regexp.MustCompile(`[A-Z][A-Za-z&]+(?:\s+[A-Z][A-Za-z&]+)*\s+(?:Inc|Corp|Corporation|Ltd|Group|Holdings|Co)\b`)
	numberPattern     = regexp.MustCompile(`\d+(?:\.\d+)?(?:%|万|亿|元)?`)
	abbrevPattern     = regexp.MustCompile(`[A-Z]{2,}`)
	yearPattern       = regexp.MustCompile(`(?:19|20)\d{2}`)
)

var (
	relativeYearWords = []string{"去年", "今年", "明年", "last year", "this year", "next year"}
	comparisonWords   = []string{"比较", "对比", "差异", "compare", "comparison", "versus", " vs", "difference"}
)

// Entities extracts organisation names, numbers and uppercase abbreviations.
func Entities(text string) []string {
	var out []string
	out = append(out, cjkOrgPattern.FindAllString(text, -1)...)
	out = append(out, englishOrgPattern.FindAllString(text, -1)...)
	out = append(out, numberPattern.FindAllString(text, -1)...)
	out = append(out, abbrevPattern.FindAllString(text, -1)...)
	return out
}

// Intent summarises the cues of a piece of text used for intent matching.
type Intent struct {
	Keywords    map[string]struct{}
	Entities    map[string]struct{}
	TimeRelated bool
	Comparison  bool
}

// AnalyzeIntent derives an Intent from text.
func AnalyzeIntent(text string) Intent {
	lower := strings.ToLower(text)
	return Intent{
		Keywords:    lexical.Set(lexical.Keywords(text, lexical.ExtendedStopWords)),
		Entities:    lexical.Set(Entities(text)),
		TimeRelated: yearPattern.MatchString(text) || containsAny(lower, relativeYearWords),
		Comparison:  containsAny(lower, comparisonWords),
	}
}

// MatchIntent averages the cues shared by a and doc, or returns 0.5 when
// no cue applies.
func MatchIntent(a, doc Intent) float64 {
	var score float64
	factors := 0

	if len(a.Keywords) > 0 && len(doc.Keywords) > 0 {
		score += lexical.OverlapRatio(a.Keywords, doc.Keywords)
		factors++
	}
	if len(a.Entities) > 0 && len(doc.Entities) > 0 {
		score += lexical.OverlapRatio(a.Entities, doc.Entities)
		factors++
	}
	if a.TimeRelated && doc.TimeRelated {
		score++
		factors++
	}
	if a.Comparison && doc.Comparison {
		score++
		factors++
	}

	if factors == 0 {
		return 0.5
	}
	return score / float64(factors)
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
