// Package embeddings provides text embedding generation for the RAG
// pipeline, with remote and local backends behind a common interface.
package embeddings

import "context"

// Embedder defines the interface for generating text embeddings
type Embedder interface {
	// GenerateEmbedding creates an embedding for a single text
	GenerateEmbedding(ctx context.Context, text string) ([]float64, error)

	// GenerateBatchEmbeddings creates embeddings for multiple texts
	GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float64, error)

	// GetDimension returns the number of dimensions in embeddings
	GetDimension() int

	// GetModel returns the model identifier recorded on indexed chunks
	GetModel() string

	// HealthCheck verifies the backend is reachable
	HealthCheck(ctx context.Context) error
}

// ModelReporting is implemented by embedders whose producing backend can
// change between calls, such as the fallback wrapper. The returned model
// identifies the backend that actually produced the vectors, so degraded
// batches are stamped with the local model instead of the remote one.
type ModelReporting interface {
	GenerateEmbeddingWithModel(ctx context.Context, text string) ([]float64, string, error)
	GenerateBatchEmbeddingsWithModel(ctx context.Context, texts []string) ([][]float64, string, error)
}
