package ingestion

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/poiesic/recall/core"
)

// maxLineSize bounds a single JSON line.
const maxLineSize = 4 * 1024 * 1024

// Passage is one chunk of a parsed document.
type Passage struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// Validate checks that the passage can become a retrieval candidate.
func (p Passage) Validate() error {
	c := &core.Candidate{Content: p.Content, Metadata: p.Metadata}
	if err := core.ValidateCandidate(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPassage, err)
	}
	return nil
}

// ReadPassages decodes JSON lines from r. Blank lines are skipped.
func ReadPassages(r io.Reader) ([]Passage, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var passages []Passage
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var p Passage
		if err := json.Unmarshal([]byte(text), &p); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		passages = append(passages, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return passages, nil
}
