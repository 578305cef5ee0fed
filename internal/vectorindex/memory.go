package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"planforge/pkg/types"
)

// entry pairs a chunk with its vector
type entry struct {
	chunk  types.DocumentChunk
	vector []float64
	norm   float64
}

// MemoryIndex is an in-process vector index guarded by a RWMutex.
// Document replacement is atomic with respect to concurrent queries:
// a query sees either all of a document's old entries or all new ones.
type MemoryIndex struct {
	mu   sync.RWMutex
	docs map[string][]entry
}

// NewMemoryIndex creates an empty in-memory index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{docs: make(map[string][]entry)}
}

// Index stores chunks with their vectors, replacing the document's
// previous entries in one critical section
func (m *MemoryIndex) Index(_ context.Context, chunks []types.DocumentChunk, vectors []types.EmbeddingVector) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}

	docID := chunks[0].DocID
	entries := make([]entry, len(chunks))
	for i, chunk := range chunks {
		if chunk.DocID != docID {
			return fmt.Errorf("all chunks must belong to one document, got %s and %s", docID, chunk.DocID)
		}
		if vectors[i].ChunkID != chunk.ChunkID {
			return fmt.Errorf("vector %s does not match chunk %s", vectors[i].ChunkID, chunk.ChunkID)
		}
		entries[i] = entry{
			chunk:  chunk,
			vector: vectors[i].Vector,
			norm:   l2norm(vectors[i].Vector),
		}
	}

	m.mu.Lock()
	m.docs[docID] = entries
	m.mu.Unlock()
	return nil
}

// Query returns the most similar chunks by cosine similarity
func (m *MemoryIndex) Query(_ context.Context, vector []float64, limit int, filters *types.SearchFilters) ([]QueryResult, error) {
	if limit <= 0 {
		return []QueryResult{}, nil
	}
	qnorm := l2norm(vector)
	if qnorm == 0 {
		return []QueryResult{}, nil
	}

	m.mu.RLock()
	var results []QueryResult
	for docID, entries := range m.docs {
		if !filters.MatchDoc(docID) {
			continue
		}
		for i := range entries {
			e := &entries[i]
			if !filters.Match(&e.chunk.Metadata) {
				continue
			}
			if e.norm == 0 || len(e.vector) != len(vector) {
				continue
			}
			results = append(results, QueryResult{
				Chunk:  e.chunk,
				Cosine: dot(vector, e.vector) / (qnorm * e.norm),
			})
		}
	}
	m.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		if results[i].Cosine != results[j].Cosine {
			return results[i].Cosine > results[j].Cosine
		}
		return results[i].Chunk.ChunkID < results[j].Chunk.ChunkID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// DeleteDocument removes all entries for a document
func (m *MemoryIndex) DeleteDocument(_ context.Context, docID string) error {
	m.mu.Lock()
	delete(m.docs, docID)
	m.mu.Unlock()
	return nil
}

// DocumentCount returns the number of indexed documents
func (m *MemoryIndex) DocumentCount(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs), nil
}

// HealthCheck always succeeds for the in-memory backend
func (m *MemoryIndex) HealthCheck(_ context.Context) error { return nil }

// Close is a no-op for the in-memory backend
func (m *MemoryIndex) Close() error { return nil }

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func l2norm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
