package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planforge/internal/chunking"
	"planforge/internal/config"
	"planforge/internal/embeddings"
	"planforge/internal/logging"
	"planforge/internal/vectorindex"
	"planforge/pkg/types"
)

func newTestRetriever(t *testing.T) (*Retriever, vectorindex.Index) {
	t.Helper()
	cfg := config.DefaultConfig()
	index := vectorindex.NewMemoryIndex()
	retriever := NewRetriever(
		chunking.NewChunker(&cfg.Chunking),
		embeddings.NewLocalEmbedder(256),
		index,
		&config.RetrievalConfig{TopK: 5, MinScore: 0.0},
		logging.NewNop(),
	)
	return retriever, index
}

func TestRetriever_IndexAndQuery(t *testing.T) {
	retriever, _ := newTestRetriever(t)
	ctx := context.Background()

	doc := strings.Repeat("Bedroom windows must provide natural light equal to ten percent of floor area. ", 6) +
		"\n\n" + strings.Repeat("Parking garages require mechanical ventilation rated for carbon monoxide removal. ", 6)

	count, err := retriever.IndexDocument(ctx, "doc-1", doc, types.ChunkMetadata{})
	require.NoError(t, err)
	require.Greater(t, count, 0)

	hits, err := retriever.Query(ctx, "natural light requirements for bedroom windows", 3, nil)
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	assert.Contains(t, hits[0].Chunk.Content, "natural light")
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestRetriever_ReindexIsIdempotent(t *testing.T) {
	retriever, index := newTestRetriever(t)
	ctx := context.Background()

	doc := strings.Repeat("Stair risers shall not exceed one hundred eighty millimetres in height. ", 10)

	first, err := retriever.IndexDocument(ctx, "doc-1", doc, types.ChunkMetadata{})
	require.NoError(t, err)
	second, err := retriever.IndexDocument(ctx, "doc-1", doc, types.ChunkMetadata{})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	count, err := index.DocumentCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRetriever_EmptyDocumentClearsIndex(t *testing.T) {
	retriever, index := newTestRetriever(t)
	ctx := context.Background()

	doc := strings.Repeat("Roof drainage must handle the fifty year storm intensity for the region. ", 10)
	_, err := retriever.IndexDocument(ctx, "doc-1", doc, types.ChunkMetadata{})
	require.NoError(t, err)

	count, err := retriever.IndexDocument(ctx, "doc-1", "", types.ChunkMetadata{})
	require.NoError(t, err)
	assert.Zero(t, count)

	docs, err := index.DocumentCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, docs)
}

func TestRetriever_RemoveDocument(t *testing.T) {
	retriever, _ := newTestRetriever(t)
	ctx := context.Background()

	doc := strings.Repeat("Thermal insulation of external walls shall meet the regional U-value limits. ", 10)
	_, err := retriever.IndexDocument(ctx, "doc-1", doc, types.ChunkMetadata{})
	require.NoError(t, err)

	require.NoError(t, retriever.RemoveDocument(ctx, "doc-1"))

	hits, err := retriever.Query(ctx, "thermal insulation", 5, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestRetriever_MinScoreFiltersWeakHits(t *testing.T) {
	cfg := config.DefaultConfig()
	index := vectorindex.NewMemoryIndex()
	retriever := NewRetriever(
		chunking.NewChunker(&cfg.Chunking),
		embeddings.NewLocalEmbedder(256),
		index,
		&config.RetrievalConfig{TopK: 5, MinScore: 0.99},
		logging.NewNop(),
	)
	ctx := context.Background()

	doc := strings.Repeat("Elevator shafts require two hour fire rated enclosures in high rise buildings. ", 10)
	_, err := retriever.IndexDocument(ctx, "doc-1", doc, types.ChunkMetadata{})
	require.NoError(t, err)

	hits, err := retriever.Query(ctx, "completely unrelated grocery shopping list", 5, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

// capturingIndex records the vectors handed to Index
type innerIndex = vectorindex.Index

type capturingIndex struct {
	innerIndex
	vectors []types.EmbeddingVector
}

func (c *capturingIndex) Index(ctx context.Context, chunks []types.DocumentChunk, vectors []types.EmbeddingVector) error {
	c.vectors = append(c.vectors, vectors...)
	return c.innerIndex.Index(ctx, chunks, vectors)
}

type downEmbedder struct{}

func (downEmbedder) GenerateEmbedding(context.Context, string) ([]float64, error) {
	return nil, errors.New("backend down")
}
func (downEmbedder) GenerateBatchEmbeddings(context.Context, []string) ([][]float64, error) {
	return nil, errors.New("backend down")
}
func (downEmbedder) GetDimension() int                 { return 256 }
func (downEmbedder) GetModel() string                  { return "remote-large-v3" }
func (downEmbedder) HealthCheck(context.Context) error { return errors.New("down") }

func TestRetriever_DegradedEmbeddingStampsLocalModel(t *testing.T) {
	cfg := config.DefaultConfig()
	local := embeddings.NewLocalEmbedder(256)
	fallback := embeddings.NewFallbackEmbedder(downEmbedder{}, local, logging.NewNop())
	index := &capturingIndex{innerIndex: vectorindex.NewMemoryIndex()}
	retriever := NewRetriever(
		chunking.NewChunker(&cfg.Chunking),
		fallback,
		index,
		&config.RetrievalConfig{TopK: 5, MinScore: 0.0},
		logging.NewNop(),
	)
	ctx := context.Background()

	doc := strings.Repeat("Corridor widths on accessible routes shall be at least twelve hundred millimetres. ", 10)
	count, err := retriever.IndexDocument(ctx, "doc-1", doc, types.ChunkMetadata{})
	require.NoError(t, err)
	require.Greater(t, count, 0)

	require.NotEmpty(t, index.vectors)
	for _, vec := range index.vectors {
		assert.Equal(t, local.GetModel(), vec.ModelID,
			"vectors produced by the local fallback must not carry the remote model id")
	}
}

func TestRetriever_FiltersPropagate(t *testing.T) {
	retriever, _ := newTestRetriever(t)
	ctx := context.Background()

	codeDoc := strings.Repeat("Madde 5 uyarınca yangın merdiveni genişliği en az yüz yirmi santimetre olmalıdır. ", 8)
	noteDoc := strings.Repeat("Client prefers open plan kitchen with an island and large windows facing south. ", 8)

	_, err := retriever.IndexDocument(ctx, "code-1", codeDoc, types.ChunkMetadata{IsBuildingCode: true, Language: "tr"})
	require.NoError(t, err)
	_, err = retriever.IndexDocument(ctx, "note-1", noteDoc, types.ChunkMetadata{Language: "en"})
	require.NoError(t, err)

	isCode := true
	hits, err := retriever.Query(ctx, "yangın merdiveni genişliği", 5, &types.SearchFilters{IsBuildingCode: &isCode})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	for _, hit := range hits {
		assert.Equal(t, "code-1", hit.Chunk.DocID)
		assert.True(t, hit.Chunk.Metadata.IsBuildingCode)
	}
}
