package pipeline

import (
	"fmt"
	"strings"

	"github.com/poiesic/recall/core"
)

const previewRunes = 100

// FormatSources appends a numbered reference list to answer.
// The answer is returned unchanged when there are no sources.
func FormatSources(answer string, sources []*core.Candidate) string {
	if len(sources) == 0 {
		return answer
	}

	var b strings.Builder
	b.WriteString(answer)
	b.WriteString("\n\nReferences:")
	for i, s := range sources {
		fmt.Fprintf(&b, "\n%d. %s, page %s (%s): %s", i+1, s.DocumentName(), s.PageNumber(), s.ChunkType(), preview(s.Content))
	}
	return b.String()
}

func preview(content string) string {
	runes := []rune(strings.Join(strings.Fields(content), " "))
	if len(runes) <= previewRunes {
		return string(runes)
	}
	return string(runes[:previewRunes]) + "..."
}
