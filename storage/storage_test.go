package storage

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/recall/core"
)

func TestDocumentRoundTrip(t *testing.T) {
	doc := &core.Document{
		Id:      core.IDFromContent("x"),
		Content: "营收增长",
		Metadata: map[string]any{
			core.MetaDocumentName: "report.pdf",
			core.MetaPageNumber:   3,
			core.MetaImageIDs:     []string{"0123456789abcdef0123456789abcdef"},
		},
		Vector:     []float32{0.6, 0.8},
		InsertedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	data, err := MarshalDocument(doc)
	require.NoError(t, err)
	got, err := UnmarshalDocument(data)
	require.NoError(t, err)

	assert.Equal(t, doc.Id, got.Id)
	assert.Equal(t, doc.Content, got.Content)
	assert.Equal(t, doc.Vector, got.Vector)
	assert.True(t, doc.InsertedAt.Equal(got.InsertedAt))
	assert.True(t, got.UpdatedAt.IsZero())
	assert.Equal(t, "report.pdf", got.Metadata[core.MetaDocumentName])
	assert.Equal(t, []any{"0123456789abcdef0123456789abcdef"}, got.Metadata[core.MetaImageIDs])
	assert.True(t, MatchesFilter(got.Metadata, map[string]any{core.MetaPageNumber: 3}))

	t.Run("without vector", func(t *testing.T) {
		data, err := MarshalDocument(&core.Document{Id: 7, Content: "c"})
		require.NoError(t, err)
		got, err := UnmarshalDocument(data)
		require.NoError(t, err)
		assert.Nil(t, got.Vector)
		assert.Nil(t, got.Metadata)
	})
}

func TestID_RoundTrip(t *testing.T) {
	id := core.IDFromContent("passage")
	got, err := UnmarshalID(MarshalID(id))
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestUnmarshal_Invalid(t *testing.T) {
	_, err := UnmarshalDocument(nil)
	assert.ErrorIs(t, err, ErrSerializationFailed)

	_, err = UnmarshalID(nil)
	assert.ErrorIs(t, err, ErrSerializationFailed)

	_, err = UnmarshalMemories([]byte{5})
	assert.ErrorIs(t, err, ErrSerializationFailed)

	record := documentRecord{Id: 1, Content: "c", Metadata: "{"}
	buf := make([]byte, documentRecordMUS.Size(record))
	documentRecordMUS.Marshal(record, buf)
	_, err = UnmarshalDocument(buf)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestMemoriesRoundTrip(t *testing.T) {
	items, err := UnmarshalMemories(mustMarshalMemories(t, nil))
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	now := time.Date(2025, 3, 1, 12, 0, 0, 123456000, time.UTC)
	item, err := core.NewMemoryItem("alice", "营收是多少", "12亿", map[string]any{"cost": 0.01}, now)
	require.NoError(t, err)

	items, err = UnmarshalMemories(mustMarshalMemories(t, []*core.MemoryItem{item}))
	require.NoError(t, err)
	require.Len(t, items, 1)
	got := items[0]
	assert.Equal(t, item.Id, got.Id)
	assert.Equal(t, item.UserId, got.UserId)
	assert.Equal(t, item.Answer, got.Answer)
	assert.Equal(t, item.Timestamp, got.Timestamp)
	assert.True(t, now.Equal(got.CreatedAt))
	assert.Equal(t, map[string]any{"cost": 0.01}, got.Context)
}

func mustMarshalMemories(t *testing.T, items []*core.MemoryItem) []byte {
	t.Helper()
	data, err := MarshalMemories(items)
	require.NoError(t, err)
	return data
}

func TestMatchesFilter(t *testing.T) {
	meta := map[string]any{"document_name": "a.pdf", "page_number": float64(2)}

	assert.True(t, MatchesFilter(meta, nil))
	assert.True(t, MatchesFilter(meta, map[string]any{"document_name": "a.pdf"}))
	assert.True(t, MatchesFilter(meta, map[string]any{"page_number": 2}))
	assert.False(t, MatchesFilter(meta, map[string]any{"document_name": "b.pdf"}))
	assert.False(t, MatchesFilter(meta, map[string]any{"chunk_type": "text"}))
}

func TestNormalizeVector(t *testing.T) {
	v := NormalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	var sum float64
	for _, x := range v {
		sum += float64(x * x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-6)

	assert.Equal(t, []float32{0, 0}, NormalizeVector([]float32{0, 0}))
	assert.InDelta(t, 1.0, DotProduct(v, v), 1e-6)
}
