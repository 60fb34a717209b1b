package memory

import (
	"regexp"
	"strconv"

	"github.com/poiesic/recall/lexical"
)

var yearPattern = regexp.MustCompile(`(?:19|20)\d{2}`)

// Relevance scores how relevant a past question is to the current one.
// The first matching rule wins:
//
//	reference marker in current     0.9
//	shared year                     0.8
//	years exactly one apart         0.7
//	shared organisation marker      0.6
//	shared chart or metric term     0.5
//	shared domain term              0.4
//	otherwise                       word Jaccard * 0.2
func (m *Manager) Relevance(past, current string) float64 {
	return relevance(m.cfg.Markers, past, current)
}

func relevance(mk Markers, past, current string) float64 {
	for _, marker := range mk.Reference {
		if lexical.ContainsMarker(current, marker) {
			return 0.9
		}
	}

	if score, ok := yearRelevance(past, current); ok {
		return score
	}

	if sharesMarker(mk.Organization, past, current) {
		return 0.6
	}
	if sharesMarker(mk.Chart, past, current) {
		return 0.5
	}
	if sharesMarker(mk.Domain, past, current) {
		return 0.4
	}

	return lexical.Jaccard(lexical.Set(lexical.Words(past)), lexical.Set(lexical.Words(current))) * 0.2
}

func yearRelevance(past, current string) (float64, bool) {
	a := years(past)
	b := years(current)
	if len(a) == 0 || len(b) == 0 {
		return 0, false
	}
	for y := range a {
		if _, ok := b[y]; ok {
			return 0.8, true
		}
	}
	for y := range a {
		if _, ok := b[y+1]; ok {
			return 0.7, true
		}
		if _, ok := b[y-1]; ok {
			return 0.7, true
		}
	}
	return 0, false
}

func years(text string) map[int]struct{} {
	out := make(map[int]struct{})
	for _, s := range yearPattern.FindAllString(text, -1) {
		y, err := strconv.Atoi(s)
		if err == nil {
			out[y] = struct{}{}
		}
	}
	return out
}

func sharesMarker(markers []string, past, current string) bool {
	for _, marker := range markers {
		if lexical.ContainsMarker(past, marker) && lexical.ContainsMarker(current, marker) {
			return true
		}
	}
	return false
}
