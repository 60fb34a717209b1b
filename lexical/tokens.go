package lexical

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	tokenPattern = regexp.MustCompile(`[\x{4e00}-\x{9fff}]+|[a-z]+`)
	cjkPattern   = regexp.MustCompile(`[\x{4e00}-\x{9fff}]+`)
)

// Tokens returns the CJK runs and ASCII words of text, lowercased.
func Tokens(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// Keywords returns the tokens of text that are not stopwords and are longer
// than one rune. Order and duplicates are preserved.
func Keywords(text string, stop StopSet) []string {
	tokens := Tokens(text)
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if stop.Contains(tok) || utf8.RuneCountInString(tok) <= 1 {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// CJKRuns returns up to n runs of CJK ideographs longer than one rune.
// A negative n returns all of them.
func CJKRuns(text string, n int) []string {
	var out []string
	for _, run := range cjkPattern.FindAllString(text, -1) {
		if utf8.RuneCountInString(run) <= 1 {
			continue
		}
		out = append(out, run)
		if n >= 0 && len(out) == n {
			break
		}
	}
	return out
}

// Dedupe removes repeated words, keeping the first occurrence.
func Dedupe(words []string) []string {
	seen := make(map[string]bool, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// Words splits lowercased text on whitespace.
func Words(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// Frequencies counts occurrences of each word.
func Frequencies(words []string) map[string]int {
	freq := make(map[string]int, len(words))
	for _, w := range words {
		freq[w]++
	}
	return freq
}

// Phrases returns the n-grams of length 2 to 4 over words, joined by spaces.
func Phrases(words []string) []string {
	var out []string
	for i := 0; i < len(words)-1; i++ {
		for j := 2; j <= min(4, len(words)-i); j++ {
			out = append(out, strings.Join(words[i:i+j], " "))
		}
	}
	return out
}

// ContainsWord reports whether word occurs in text as a whole ASCII word.
func ContainsWord(text, word string) bool {
	for _, w := range asciiWords(strings.ToLower(text)) {
		if w == word {
			return true
		}
	}
	return false
}

// ContainsMarker reports whether marker occurs in text. ASCII markers must
// match a whole word, case-insensitively; others match as substrings.
func ContainsMarker(text, marker string) bool {
	if isASCII(marker) {
		return ContainsWord(text, strings.ToLower(marker))
	}
	return strings.Contains(text, marker)
}

func asciiWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
