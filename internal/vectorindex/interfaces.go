// Package vectorindex stores chunk embeddings and answers cosine
// similarity queries. Two backends are provided: an in-process index
// and a Qdrant-backed remote index.
package vectorindex

import (
	"context"

	"planforge/pkg/types"
)

// QueryResult is a raw similarity hit before re-ranking
type QueryResult struct {
	Chunk  types.DocumentChunk
	Cosine float64
}

// Index defines the vector index contract
type Index interface {
	// Index stores chunks with their vectors, replacing any previous
	// entries for the same document atomically
	Index(ctx context.Context, chunks []types.DocumentChunk, vectors []types.EmbeddingVector) error

	// Query returns up to limit chunks by cosine similarity to the
	// query vector, most similar first
	Query(ctx context.Context, vector []float64, limit int, filters *types.SearchFilters) ([]QueryResult, error)

	// DeleteDocument removes all entries for a document
	DeleteDocument(ctx context.Context, docID string) error

	// DocumentCount returns the number of distinct indexed documents
	DocumentCount(ctx context.Context) (int, error)

	// HealthCheck verifies the backend is reachable
	HealthCheck(ctx context.Context) error

	// Close releases backend resources
	Close() error
}
