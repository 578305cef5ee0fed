package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"unicode"
)

// LocalEmbedder produces deterministic embeddings from token hashing.
// It has no network dependencies and is used when the remote backend
// is unavailable or unconfigured. Vectors from different backends are
// never mixed in the same index; the model identifier keeps them apart.
type LocalEmbedder struct {
	dimension int
}

// NewLocalEmbedder creates a local hashing embedder
func NewLocalEmbedder(dimension int) *LocalEmbedder {
	if dimension <= 0 {
		dimension = 256
	}
	return &LocalEmbedder{dimension: dimension}
}

// GenerateEmbedding creates a deterministic embedding for a single text
func (l *LocalEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, errors.New("text cannot be empty")
	}
	return l.vectorize(text), nil
}

// GenerateBatchEmbeddings creates embeddings for multiple texts
func (l *LocalEmbedder) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		v, err := l.GenerateEmbedding(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = v
	}
	return vectors, nil
}

// vectorize hashes tokens into buckets with sublinear term weighting,
// then L2-normalizes so dot product equals cosine similarity
func (l *LocalEmbedder) vectorize(text string) []float64 {
	counts := make(map[string]int)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, tok := range tokens {
		counts[tok]++
	}

	vec := make([]float64, l.dimension)
	for tok, count := range counts {
		sum := sha256.Sum256([]byte(tok))
		bucket := int(binary.BigEndian.Uint32(sum[:4])) % l.dimension
		if bucket < 0 {
			bucket += l.dimension
		}
		// Sign bit decorrelates colliding tokens
		sign := 1.0
		if sum[4]&1 == 1 {
			sign = -1.0
		}
		vec[bucket] += sign * (1.0 + math.Log(float64(count)))
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

// GetDimension returns the embedding dimension
func (l *LocalEmbedder) GetDimension() int { return l.dimension }

// GetModel returns the local model identifier
func (l *LocalEmbedder) GetModel() string { return "local-hash-v1" }

// HealthCheck always succeeds for the local backend
func (l *LocalEmbedder) HealthCheck(_ context.Context) error { return nil }
