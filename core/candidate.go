package core

import (
	"fmt"
	"math"
)

// SmartFilterScores holds the four relevance factors and their weighted sum.
type SmartFilterScores struct {
	Content  float64 `json:"content_relevance"`
	Semantic float64 `json:"semantic_similarity"`
	Context  float64 `json:"context_relevance"`
	Intent   float64 `json:"intent_match"`
	Final    float64 `json:"final_score"`
}

// Candidate is a retrieved passage moving through the optimization stages.
// Stages annotate clones and never mutate the candidates they receive.
type Candidate struct {
	Id        ID             `json:"id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	BaseScore float64        `json:"score"`

	SemanticScore   *float64           `json:"semantic_score,omitempty"`
	KeywordScore    *float64           `json:"keyword_score,omitempty"`
	RerankScore     *float64           `json:"rerank_score,omitempty"`
	SmartFilter     *SmartFilterScores `json:"smart_filter_scores,omitempty"`
	SourceRelevance *float64           `json:"source_relevance_score,omitempty"`
}

// NewCandidate validates its inputs and returns a Candidate.
func NewCandidate(content string, metadata map[string]any, baseScore float64) (*Candidate, error) {
	c := &Candidate{
		Id:        PassageID(content, metadata),
		Content:   content,
		Metadata:  metadata,
		BaseScore: baseScore,
	}
	if err := ValidateCandidate(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Clone returns a copy whose score fields can be set independently.
// Content and metadata are shared and must be treated as read-only.
func (c *Candidate) Clone() *Candidate {
	n := *c
	n.SemanticScore = clonePtr(c.SemanticScore)
	n.KeywordScore = clonePtr(c.KeywordScore)
	n.RerankScore = clonePtr(c.RerankScore)
	n.SourceRelevance = clonePtr(c.SourceRelevance)
	if c.SmartFilter != nil {
		s := *c.SmartFilter
		n.SmartFilter = &s
	}
	return &n
}

// DocumentName returns the document identifier from metadata.
func (c *Candidate) DocumentName() string {
	return metaString(c.Metadata, MetaDocumentName)
}

// PageNumber returns the page/position from metadata as text.
func (c *Candidate) PageNumber() string {
	return metaString(c.Metadata, MetaPageNumber)
}

// ChunkType returns the content-kind tag from metadata.
func (c *Candidate) ChunkType() string {
	return metaString(c.Metadata, MetaChunkType)
}

// CloneAll clones every candidate in the slice.
func CloneAll(candidates []*Candidate) []*Candidate {
	out := make([]*Candidate, len(candidates))
	for i, c := range candidates {
		out[i] = c.Clone()
	}
	return out
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Value dereferences a score pointer, returning 0 for nil.
func Value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func clonePtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func metaString(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
