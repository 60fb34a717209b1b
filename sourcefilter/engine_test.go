package sourcefilter

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/poiesic/recall/core"
)

const imageID = "0123456789abcdef0123456789abcdef"

func candidate(t require.TestingT, content string, extra map[string]any) *core.Candidate {
	meta := map[string]any{
		core.MetaDocumentName: "report.pdf",
		core.MetaPageNumber:   2,
		core.MetaChunkType:    "image",
	}
	for k, v := range extra {
		meta[k] = v
	}
	c, err := core.NewCandidate(content, meta, 0.5)
	require.NoError(t, err)
	return c
}

func newEngine(t testing.TB, mutate func(*Config)) *Engine {
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := NewEngine(cfg)
	require.NoError(t, err)
	return e
}

func TestFilter_Passthrough(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, nil)

	res := e.Filter(ctx, "answer", nil)
	assert.False(t, res.Degraded)
	assert.Empty(t, res.Candidates)

	in := []*core.Candidate{candidate(t, "unrelated", nil)}
	res = e.Filter(ctx, "  ", in)
	assert.Equal(t, in, res.Candidates)

	off := newEngine(t, func(c *Config) { c.Enabled = false })
	res = off.Filter(ctx, "anything", in)
	assert.Equal(t, in, res.Candidates)
	assert.Nil(t, res.Candidates[0].SourceRelevance)
}

func TestKeywordRelevance(t *testing.T) {
	e := newEngine(t, nil)
	a := e.analyze("revenue profit revenue")

	got := a.keywordRelevance("revenue growth")
	assert.InDelta(t, 0.7/3+0.3/6, got, 1e-9)
	assert.Zero(t, a.keywordRelevance("2024 12"))
	assert.Zero(t, e.analyze("2024").keywordRelevance("revenue"))
}

func TestIdentifierRelevance(t *testing.T) {
	e := newEngine(t, func(c *Config) {
		c.KeywordMatching = false
		c.SimilarityMatching = false
	})
	answer := "See figure " + imageID + " and ffffffffffffffffffffffffffffffff."

	tests := []struct {
		name string
		meta map[string]any
		want float64
	}{
		{name: "list of any", meta: map[string]any{core.MetaImageIDs: []any{imageID}}, want: 0.5},
		{name: "string slice uppercase", meta: map[string]any{core.MetaImageIDs: []string{"0123456789ABCDEF0123456789ABCDEF"}}, want: 0.5},
		{name: "string", meta: map[string]any{core.MetaImageIDs: "ids: " + imageID}, want: 0.5},
		{name: "none attached", meta: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := candidate(t, "a chart", tt.meta)
			assert.InDelta(t, tt.want, e.Relevance(answer, c), 1e-9)
		})
	}

	t.Run("identifier in content", func(t *testing.T) {
		c := candidate(t, "image "+imageID, nil)
		assert.InDelta(t, 0.5, e.Relevance(answer, c), 1e-9)
	})

	t.Run("no identifiers in answer", func(t *testing.T) {
		c := candidate(t, "image "+imageID, nil)
		assert.Zero(t, e.Relevance("plain answer", c))
	})
}

func TestRelevance_NothingEnabled(t *testing.T) {
	e := newEngine(t, func(c *Config) {
		c.KeywordMatching = false
		c.IdentifierMatching = false
		c.SimilarityMatching = false
	})
	assert.InDelta(t, 0.5, e.Relevance("answer", candidate(t, "x", nil)), 1e-9)
}

func TestFilter_ThresholdAndOrder(t *testing.T) {
	e := newEngine(t, func(c *Config) { c.IdentifierMatching = false; c.MinRelevance = 0.5 })
	answer := "中芯国际 营收 增长"
	in := []*core.Candidate{
		candidate(t, "天气晴朗", nil),
		candidate(t, "中芯国际 营收", nil),
		candidate(t, answer, nil),
	}

	res := e.Filter(context.Background(), answer, in)
	require.False(t, res.Degraded)
	require.Len(t, res.Candidates, 2)
	assert.Equal(t, answer, res.Candidates[0].Content)
	assert.InDelta(t, (0.85+1.0)/2, *res.Candidates[0].SourceRelevance, 1e-9)
	assert.Equal(t, "中芯国际 营收", res.Candidates[1].Content)
	assert.Nil(t, in[2].SourceRelevance)
}

func TestFilter_CanceledContextDegrades(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newEngine(t, nil)
	in := []*core.Candidate{candidate(t, "中芯国际", nil)}
	res := e.Filter(ctx, "中芯国际", in)
	assert.True(t, res.Degraded)
	assert.ErrorIs(t, res.Reason, core.ErrScoring)
	assert.Equal(t, in, res.Candidates)
}

func TestFilter_ZeroKeywordAnswer(t *testing.T) {
	digits := rapid.StringMatching(`[0-9 .%]{1,20}`)

	rapid.Check(t, func(rt *rapid.T) {
		answer := digits.Draw(rt, "answer")
		content := digits.Draw(rt, "content")
		if strings.TrimSpace(answer) == "" || content == "" {
			return
		}
		e, err := NewEngine(DefaultConfig())
		if err != nil {
			rt.Fatalf("NewEngine: %v", err)
		}
		a := e.analyze(answer)
		c := candidate(rt, "x "+content, nil)

		if got := a.keywordRelevance(c.Content); got != 0 {
			rt.Fatalf("keyword relevance %f for keyword-free answer", got)
		}
		if got := a.identifierRelevance(c); got != 0 {
			rt.Fatalf("identifier relevance %f without identifiers", got)
		}
		want := similarity(answer, c.Content) / 3
		if got := a.relevance(c); got-want > 1e-9 || want-got > 1e-9 {
			rt.Fatalf("relevance %f, want similarity/3 = %f", got, want)
		}

		res := e.Filter(context.Background(), answer, []*core.Candidate{c})
		if len(res.Candidates) != 0 {
			rt.Fatalf("candidate kept on similarity alone: %f", want)
		}
	})
}
