package lexical

import (
	"errors"
	"math"
	"regexp"
	"slices"
	"strings"
)

// ErrEmptyVocabulary is returned when the fitted documents yield no terms.
var ErrEmptyVocabulary = errors.New("empty vocabulary")

// DefaultMaxFeatures caps the vocabulary of a CharVectorizer.
const DefaultMaxFeatures = 1000

var whitespaceRun = regexp.MustCompile(`\s\s+`)

// CharVectorizer turns documents into TF-IDF vectors over character
// unigrams and bigrams.
type CharVectorizer struct {
	MaxFeatures int
}

// NewCharVectorizer returns a vectorizer limited to maxFeatures terms.
// A non-positive value uses DefaultMaxFeatures.
func NewCharVectorizer(maxFeatures int) *CharVectorizer {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}
	return &CharVectorizer{MaxFeatures: maxFeatures}
}

// FitTransform fits the vocabulary and IDF weights on docs and returns one
// L2-normalised vector per document.
func (v *CharVectorizer) FitTransform(docs []string) ([][]float64, error) {
	counts := make([]map[string]int, len(docs))
	totals := make(map[string]int)
	df := make(map[string]int)

	for i, doc := range docs {
		counts[i] = make(map[string]int)
		for _, gram := range charNgrams(doc) {
			counts[i][gram]++
			totals[gram]++
		}
		for gram := range counts[i] {
			df[gram]++
		}
	}

	if len(totals) == 0 {
		return nil, ErrEmptyVocabulary
	}

	vocab := v.limit(totals)
	index := make(map[string]int, len(vocab))
	for i, term := range vocab {
		index[term] = i
	}

	n := float64(len(docs))
	idf := make([]float64, len(vocab))
	for i, term := range vocab {
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	vectors := make([][]float64, len(docs))
	for d, tf := range counts {
		vec := make([]float64, len(vocab))
		var norm float64
		for term, c := range tf {
			j, ok := index[term]
			if !ok {
				continue
			}
			vec[j] = float64(c) * idf[j]
			norm += vec[j] * vec[j]
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for j := range vec {
				vec[j] /= norm
			}
		}
		vectors[d] = vec
	}
	return vectors, nil
}

// limit keeps the most frequent terms and returns them in alphabetical order.
func (v *CharVectorizer) limit(totals map[string]int) []string {
	terms := make([]string, 0, len(totals))
	for term := range totals {
		terms = append(terms, term)
	}
	slices.Sort(terms)

	maxFeatures := v.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}
	if len(terms) <= maxFeatures {
		return terms
	}

	slices.SortStableFunc(terms, func(a, b string) int {
		return totals[b] - totals[a]
	})
	terms = terms[:maxFeatures]
	slices.Sort(terms)
	return terms
}

// charNgrams returns the character 1- and 2-grams of the lowercased,
// whitespace-normalised document.
func charNgrams(doc string) []string {
	runes := []rune(whitespaceRun.ReplaceAllString(strings.ToLower(doc), " "))
	grams := make([]string, 0, 2*len(runes))
	for n := 1; n <= 2; n++ {
		for i := 0; i+n <= len(runes); i++ {
			grams = append(grams, string(runes[i:i+n]))
		}
	}
	return grams
}
