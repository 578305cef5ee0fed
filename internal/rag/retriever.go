// Package rag indexes documents and retrieves ranked passages that
// ground prompt assembly in uploaded project material.
package rag

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"planforge/internal/chunking"
	"planforge/internal/config"
	"planforge/internal/embeddings"
	"planforge/internal/logging"
	"planforge/internal/vectorindex"
	"planforge/pkg/types"
)

// Weights of the final ranking score
const (
	weightCosine  = 0.6
	weightQuality = 0.3
	weightLength  = 0.1
)

// embedBatchSize bounds one embedding API call
const embedBatchSize = 32

// overfetchFactor widens the index query so re-ranking has candidates
// beyond the requested top K
const overfetchFactor = 3

// Retriever wires the chunker, embedder and vector index into the
// document indexing and query pipeline
type Retriever struct {
	chunker   *chunking.Chunker
	embedder  embeddings.Embedder
	index     vectorindex.Index
	retrieval *config.RetrievalConfig
	logger    logging.Logger
}

// NewRetriever creates a retriever
func NewRetriever(chunker *chunking.Chunker, embedder embeddings.Embedder, index vectorindex.Index, retrieval *config.RetrievalConfig, logger logging.Logger) *Retriever {
	return &Retriever{
		chunker:   chunker,
		embedder:  embedder,
		index:     index,
		retrieval: retrieval,
		logger:    logger.WithComponent("rag"),
	}
}

// IndexDocument chunks, embeds and indexes a document. Re-indexing the
// same document replaces its previous entries.
func (r *Retriever) IndexDocument(ctx context.Context, docID, content string, base types.ChunkMetadata) (int, error) {
	start := time.Now()

	chunks, err := r.chunker.ChunkDocument(docID, content, base)
	if err != nil {
		return 0, fmt.Errorf("failed to chunk document %s: %w", docID, err)
	}
	if len(chunks) == 0 {
		// Nothing to index, but stale entries from a previous upload
		// of the same document must not survive
		if err := r.index.DeleteDocument(ctx, docID); err != nil {
			return 0, err
		}
		return 0, nil
	}

	vectors, err := r.embedChunks(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("failed to embed document %s: %w", docID, err)
	}

	if err := r.index.Index(ctx, chunks, vectors); err != nil {
		return 0, fmt.Errorf("failed to index document %s: %w", docID, err)
	}

	r.logger.InfoContext(ctx, "indexed document",
		"doc_id", docID,
		"chunks", len(chunks),
		"took_ms", time.Since(start).Milliseconds(),
	)
	return len(chunks), nil
}

// embedChunks embeds chunk contents in bounded parallel batches. Each
// vector is stamped with the model that actually produced it, which can
// be the local fallback when the remote backend is down.
func (r *Retriever) embedChunks(ctx context.Context, chunks []types.DocumentChunk) ([]types.EmbeddingVector, error) {
	vectors := make([]types.EmbeddingVector, len(chunks))
	now := time.Now().UTC()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		start, end := start, end

		g.Go(func() error {
			texts := make([]string, end-start)
			for i := start; i < end; i++ {
				texts[i-start] = chunks[i].Content
			}
			batch, model, err := embedBatch(gctx, r.embedder, texts)
			if err != nil {
				return err
			}
			for i := start; i < end; i++ {
				vectors[i] = types.EmbeddingVector{
					ChunkID:   chunks[i].ChunkID,
					DocID:     chunks[i].DocID,
					Vector:    batch[i-start],
					ModelID:   model,
					CreatedAt: now,
					Meta:      chunks[i].Metadata,
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// embedBatch returns one embedded batch with the model that produced it
func embedBatch(ctx context.Context, e embeddings.Embedder, texts []string) ([][]float64, string, error) {
	if reporting, ok := e.(embeddings.ModelReporting); ok {
		return reporting.GenerateBatchEmbeddingsWithModel(ctx, texts)
	}
	batch, err := e.GenerateBatchEmbeddings(ctx, texts)
	return batch, e.GetModel(), err
}

// Query embeds the query text and returns re-ranked passages
func (r *Retriever) Query(ctx context.Context, query string, topK int, filters *types.SearchFilters) ([]types.SearchHit, error) {
	if topK <= 0 {
		topK = r.retrieval.TopK
	}

	vector, err := r.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	candidates, err := r.index.Query(ctx, vector, topK*overfetchFactor, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}

	hits := make([]types.SearchHit, 0, len(candidates))
	for _, cand := range candidates {
		features := types.RankingFeatures{
			Cosine:  cand.Cosine,
			Quality: cand.Chunk.Metadata.QualityScore,
			Length:  clamp01(float64(cand.Chunk.Metadata.ContentLength) / 1000.0),
		}
		score := weightCosine*features.Cosine +
			weightQuality*features.Quality +
			weightLength*features.Length

		if score < r.retrieval.MinScore {
			continue
		}
		hits = append(hits, types.SearchHit{
			Chunk:           cand.Chunk,
			Score:           score,
			RankingFeatures: features,
		})
	}

	// Deterministic order: score desc, then quality, then chunk id
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].RankingFeatures.Quality != hits[j].RankingFeatures.Quality {
			return hits[i].RankingFeatures.Quality > hits[j].RankingFeatures.Quality
		}
		return hits[i].Chunk.ChunkID < hits[j].Chunk.ChunkID
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// RemoveDocument removes a document's entries from the index
func (r *Retriever) RemoveDocument(ctx context.Context, docID string) error {
	if err := r.index.DeleteDocument(ctx, docID); err != nil {
		return fmt.Errorf("failed to remove document %s: %w", docID, err)
	}
	return nil
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
