package ai

import (
	"log/slog"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// tokenEncoding is the BPE used for local token counts.
const tokenEncoding = "cl100k_base"

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

// CountTokens counts the tokens of text with the cl100k_base encoding.
// The encoding may need to be fetched on first use; when it is unavailable
// the count falls back to EstimateTokens.
func CountTokens(text string) int {
	if text == "" {
		return 0
	}
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding(tokenEncoding)
		if err != nil {
			slog.Default().Debug("tiktoken unavailable, estimating tokens", "encoding", tokenEncoding, "err", err)
			return
		}
		enc = e
	})
	if enc == nil {
		return EstimateTokens(text)
	}
	return len(enc.Encode(text, nil, nil))
}

// EstimateTokens approximates a token count at 1.5 CJK characters or
// 4 other characters per token, with a minimum of 1 for non-empty text.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	total := utf8.RuneCountInString(text)
	cjk := 0
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			cjk++
		}
	}
	return max(int(float64(cjk)/1.5+float64(total-cjk)/4), 1)
}
