package mock

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	e := NewMockEmbedder()
	ctx := context.Background()

	a, err := e.EmbedText(ctx, "营收")
	require.NoError(t, err)
	b, err := e.EmbedText(ctx, "营收")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, DefaultDimensions)

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-4)

	e.Dimensions = 8
	batch, err := e.EmbedTexts(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, batch, 2)
	assert.Len(t, batch[0], 8)
	assert.Equal(t, 3, e.CallCount())

	e.Reset()
	assert.Zero(t, e.CallCount())
}

func TestMockGenerator_Default(t *testing.T) {
	g := NewMockGenerator()
	ctx := context.Background()

	gen, err := g.Generate(ctx, ai.GenerationRequest{Question: "q"})
	require.NoError(t, err)
	assert.Equal(t, NoInformation, gen.Text)

	c, err := core.NewCandidate("passage", map[string]any{
		core.MetaDocumentName: "report.pdf",
		core.MetaPageNumber:   1,
		core.MetaChunkType:    "text",
	}, 0.5)
	require.NoError(t, err)
	gen, err = g.Generate(ctx, ai.GenerationRequest{Question: "q", Candidates: []*core.Candidate{c}})
	require.NoError(t, err)
	assert.Equal(t, "passage", gen.Text)
	assert.Equal(t, 2, g.CallCount())
	require.NotNil(t, g.LastRequest())
	assert.Len(t, g.LastRequest().Candidates, 1)
}

func TestMockProvider(t *testing.T) {
	p := NewMockProvider().(*MockProvider)
	assert.Same(t, p.GetMockEmbedder(), p.Embedder())
	assert.Same(t, p.GetMockGenerator(), p.Generator())
	assert.NoError(t, p.Close())
}
