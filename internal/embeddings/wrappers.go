package embeddings

import (
	"context"
	"time"

	"planforge/internal/logging"
	"planforge/internal/retry"
)

// RetryEmbedder wraps an Embedder with retry logic for transient failures
type RetryEmbedder struct {
	inner   Embedder
	retrier *retry.Retrier
}

// NewRetryEmbedder creates a retry wrapper around an embedder
func NewRetryEmbedder(inner Embedder) *RetryEmbedder {
	return &RetryEmbedder{
		inner: inner,
		retrier: retry.New(&retry.Config{
			MaxAttempts:  3,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     8 * time.Second,
			Multiplier:   2.0,
			FullJitter:   true,
			RetryIf:      retry.DefaultRetryIf,
		}),
	}
}

func (r *RetryEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float64, error) {
	var vector []float64
	result := r.retrier.Do(ctx, func(ctx context.Context) error {
		var err error
		vector, err = r.inner.GenerateEmbedding(ctx, text)
		return err
	})
	if result.Err != nil {
		return nil, result.Err
	}
	return vector, nil
}

func (r *RetryEmbedder) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float64, error) {
	var vectors [][]float64
	result := r.retrier.Do(ctx, func(ctx context.Context) error {
		var err error
		vectors, err = r.inner.GenerateBatchEmbeddings(ctx, texts)
		return err
	})
	if result.Err != nil {
		return nil, result.Err
	}
	return vectors, nil
}

func (r *RetryEmbedder) GetDimension() int { return r.inner.GetDimension() }
func (r *RetryEmbedder) GetModel() string  { return r.inner.GetModel() }

func (r *RetryEmbedder) HealthCheck(ctx context.Context) error {
	return r.inner.HealthCheck(ctx)
}

// FallbackEmbedder tries the primary embedder and falls back to the
// secondary when the primary fails. The WithModel variants report which
// backend produced the vectors; vectors from different backends are kept
// apart downstream by recording that model on each indexed chunk.
type FallbackEmbedder struct {
	primary   Embedder
	secondary Embedder
	logger    logging.Logger
}

// NewFallbackEmbedder creates a fallback wrapper
func NewFallbackEmbedder(primary, secondary Embedder, logger logging.Logger) *FallbackEmbedder {
	return &FallbackEmbedder{
		primary:   primary,
		secondary: secondary,
		logger:    logger.WithComponent("embeddings.fallback"),
	}
}

func (f *FallbackEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float64, error) {
	vector, _, err := f.GenerateEmbeddingWithModel(ctx, text)
	return vector, err
}

// GenerateEmbeddingWithModel embeds one text and reports the backend
// model that produced the vector
func (f *FallbackEmbedder) GenerateEmbeddingWithModel(ctx context.Context, text string) ([]float64, string, error) {
	vector, err := f.primary.GenerateEmbedding(ctx, text)
	if err == nil {
		return vector, f.primary.GetModel(), nil
	}
	if ctx.Err() != nil {
		return nil, "", err
	}
	f.logger.WarnContext(ctx, "primary embedder failed, using local fallback", "error", err.Error())
	vector, err = f.secondary.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, "", err
	}
	return vector, f.secondary.GetModel(), nil
}

func (f *FallbackEmbedder) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float64, error) {
	vectors, _, err := f.GenerateBatchEmbeddingsWithModel(ctx, texts)
	return vectors, err
}

// GenerateBatchEmbeddingsWithModel embeds a batch and reports the
// backend model that produced it
func (f *FallbackEmbedder) GenerateBatchEmbeddingsWithModel(ctx context.Context, texts []string) ([][]float64, string, error) {
	vectors, err := f.primary.GenerateBatchEmbeddings(ctx, texts)
	if err == nil {
		return vectors, f.primary.GetModel(), nil
	}
	if ctx.Err() != nil {
		return nil, "", err
	}
	f.logger.WarnContext(ctx, "primary embedder failed for batch, using local fallback",
		"error", err.Error(), "batch_size", len(texts))
	vectors, err = f.secondary.GenerateBatchEmbeddings(ctx, texts)
	if err != nil {
		return nil, "", err
	}
	return vectors, f.secondary.GetModel(), nil
}

func (f *FallbackEmbedder) GetDimension() int { return f.primary.GetDimension() }

// GetModel reports the primary model identifier; per-call provenance
// comes from the WithModel variants
func (f *FallbackEmbedder) GetModel() string { return f.primary.GetModel() }

// HealthCheck succeeds if either backend is healthy
func (f *FallbackEmbedder) HealthCheck(ctx context.Context) error {
	if err := f.primary.HealthCheck(ctx); err == nil {
		return nil
	}
	return f.secondary.HealthCheck(ctx)
}
