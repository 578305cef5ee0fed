// Package di wires the application dependency graph in initialization
// order: infrastructure first, then the orchestration core, then the
// workflow layer.
package di

import (
	"context"
	"fmt"
	"os"

	"planforge/internal/cache"
	"planforge/internal/chunking"
	"planforge/internal/config"
	"planforge/internal/documents"
	"planforge/internal/embeddings"
	"planforge/internal/fallbackgen"
	"planforge/internal/logging"
	"planforge/internal/orchestrator"
	"planforge/internal/prompt"
	"planforge/internal/providers"
	"planforge/internal/rag"
	"planforge/internal/ratelimit"
	"planforge/internal/storage"
	"planforge/internal/usage"
	"planforge/internal/validation"
	"planforge/internal/vectorindex"
	"planforge/internal/workflow"
)

// Default data directories, overridable through the environment
const (
	defaultPromptDir = "./configs/prompts"
	defaultRegionDir = "./configs/regions"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger logging.Logger

	Embedder    embeddings.Embedder
	VectorIndex vectorindex.Index
	Chunker     *chunking.Chunker
	Retriever   *rag.Retriever

	Cache      *cache.TieredCache
	Accountant *usage.Accountant
	Limiter    ratelimit.Limiter

	Registry   *providers.Registry
	Dispatcher *providers.Dispatcher

	Library   *prompt.Library
	Regions   *prompt.Regions
	Assembler *prompt.Assembler
	Validator *validation.Validator
	Fallback  *fallbackgen.Generator

	ProjectStore  storage.ProjectStore
	DocumentStore storage.DocumentStore
	Documents     *documents.Service

	Coordinator *orchestrator.Coordinator
	Workflow    *workflow.Engine

	l2 *cache.L2Cache
}

// NewContainer creates the dependency container
func NewContainer(cfg *config.Config) (*Container, error) {
	container := &Container{
		Config: cfg,
		Logger: logging.NewLogger(logging.ParseLevel(cfg.Logging.Level)),
	}

	// Initialize in dependency order
	if err := container.initializeStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if err := container.initializePrompting(); err != nil {
		return nil, fmt.Errorf("failed to initialize prompting: %w", err)
	}
	if err := container.initializeProviders(); err != nil {
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}
	container.initializeOrchestration()
	container.initializeWorkflow()

	return container, nil
}

// initializeStorage sets up the vector index, caches, ledger and stores
func (c *Container) initializeStorage() error {
	baseEmbedder := c.buildEmbedder()
	c.Embedder = baseEmbedder

	if c.Config.Qdrant.Enabled() {
		qdrantIndex := vectorindex.NewQdrantIndex(&c.Config.Qdrant, c.Config.Embedding.Dimension, c.Logger)
		if err := qdrantIndex.Initialize(context.Background()); err != nil {
			return fmt.Errorf("failed to initialize qdrant index: %w", err)
		}
		c.VectorIndex = qdrantIndex
	} else {
		c.VectorIndex = vectorindex.NewMemoryIndex()
	}

	c.Chunker = chunking.NewChunker(&c.Config.Chunking)
	c.Retriever = rag.NewRetriever(c.Chunker, c.Embedder, c.VectorIndex, &c.Config.Retrieval, c.Logger)

	l1 := cache.NewL1Cache(c.Config.Cache.MaxEntries, c.Config.Cache.MaxBytes)
	if c.Config.Redis.Enabled() {
		l2, err := cache.NewL2Cache(c.Config.Redis.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		c.l2 = l2
	}
	c.Cache = cache.NewTieredCache(l1, c.l2, &c.Config.Cache, c.Logger)

	accountant, err := usage.NewAccountant(c.Config.Database.URL, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to open usage ledger: %w", err)
	}
	c.Accountant = accountant

	if c.Config.Redis.Enabled() {
		limiter, err := ratelimit.NewRedisLimiter(c.Config.Redis.URL, &c.Config.RateLimit, c.Logger)
		if err != nil {
			return fmt.Errorf("failed to create redis rate limiter: %w", err)
		}
		c.Limiter = limiter
	} else {
		c.Limiter = ratelimit.NewLocalLimiter(&c.Config.RateLimit)
	}

	c.ProjectStore = storage.NewMemoryProjectStore()
	c.DocumentStore = storage.NewMemoryDocumentStore()
	return nil
}

// buildEmbedder layers retry over the remote embedder with the local
// hash embedder as fallback; local-only without a remote endpoint
func (c *Container) buildEmbedder() embeddings.Embedder {
	local := embeddings.NewLocalEmbedder(c.Config.Embedding.Dimension)
	if c.Config.Embedding.BaseURL == "" {
		return local
	}
	remote := embeddings.NewRemoteEmbedder(&c.Config.Embedding)
	retrying := embeddings.NewRetryEmbedder(remote)
	return embeddings.NewFallbackEmbedder(retrying, local, c.Logger)
}

// initializePrompting loads templates and regional profiles
func (c *Container) initializePrompting() error {
	c.Library = prompt.DefaultLibrary()
	if dir := promptDir(); dirExists(dir) {
		if err := c.Library.LoadDir(dir); err != nil {
			return fmt.Errorf("failed to load prompt templates: %w", err)
		}
	}

	c.Regions = prompt.NewRegions(c.Config.Locale.DefaultRegion)
	if dir := regionDir(); dirExists(dir) {
		if err := c.Regions.LoadDir(dir); err != nil {
			return fmt.Errorf("failed to load region profiles: %w", err)
		}
	}

	c.Assembler = prompt.NewAssembler(c.Library, c.Regions)

	validator, err := validation.NewValidator(c.Config.Providers.ReviewThreshold)
	if err != nil {
		return fmt.Errorf("failed to compile validation schemas: %w", err)
	}
	c.Validator = validator
	c.Fallback = fallbackgen.NewGenerator(c.Regions)
	return nil
}

// initializeProviders registers one provider per model class. Classes
// without credentials fall back to the mock provider so local setups
// stay functional.
func (c *Container) initializeProviders() error {
	c.Registry = providers.NewRegistry()
	cfg := &c.Config.Providers

	if cfg.OpenAIToken != "" {
		premium := providers.NewOpenAICompatProvider(
			"github-models", cfg.OpenAIBaseURL, cfg.OpenAIToken,
			[]string{"gpt-4o", "gpt-4o-mini"},
		)
		c.Registry.Register(premium, providers.ClassPremiumComplex, "gpt-4o")
	} else {
		mock := providers.NewMockProvider("mock-premium", "mock-premium-model")
		c.Registry.Register(mock, providers.ClassPremiumComplex, "mock-premium-model")
	}

	if cfg.VertexProjectID != "" {
		regional := providers.NewVertexProvider(
			"vertex", cfg.VertexBaseURL, cfg.VertexProjectID, cfg.VertexLocation,
			os.Getenv("VERTEX_AI_TOKEN"),
			[]string{"gemini-1.5-flash"},
		)
		c.Registry.Register(regional, providers.ClassRegionalLite, "gemini-1.5-flash")
	} else {
		mock := providers.NewMockProvider("mock-regional", "mock-regional-model")
		c.Registry.Register(mock, providers.ClassRegionalLite, "mock-regional-model")
	}

	c.Dispatcher = providers.NewDispatcher(c.Registry, cfg, c.Logger)
	return nil
}

// initializeOrchestration wires the coordinator and document service
func (c *Container) initializeOrchestration() {
	c.Documents = documents.NewService(c.DocumentStore, c.Retriever, &c.Config.Uploads, c.Logger)

	c.Coordinator = orchestrator.NewCoordinator(
		c.Dispatcher,
		c.Assembler,
		c.Regions,
		c.Retriever,
		c.Validator,
		c.Fallback,
		c.Cache,
		c.Accountant,
		c.Limiter,
		c.Config,
		c.Logger,
	)
}

// initializeWorkflow wires the workflow engine over the coordinator
func (c *Container) initializeWorkflow() {
	c.Workflow = workflow.NewEngine(c.Coordinator, c.Documents, c.ProjectStore, c.Logger)
}

// HealthCheck verifies every dependency with external state
func (c *Container) HealthCheck(ctx context.Context) error {
	if err := c.VectorIndex.HealthCheck(ctx); err != nil {
		return fmt.Errorf("vector index health check failed: %w", err)
	}
	if err := c.Embedder.HealthCheck(ctx); err != nil {
		return fmt.Errorf("embedder health check failed: %w", err)
	}
	if err := c.Cache.HealthCheck(ctx); err != nil {
		return fmt.Errorf("cache health check failed: %w", err)
	}
	if err := c.Accountant.HealthCheck(ctx); err != nil {
		return fmt.Errorf("usage ledger health check failed: %w", err)
	}
	return nil
}

// Shutdown releases resources in reverse initialization order
func (c *Container) Shutdown() error {
	if c.Accountant != nil {
		if err := c.Accountant.Close(); err != nil {
			return fmt.Errorf("failed to close usage ledger: %w", err)
		}
	}
	if c.l2 != nil {
		if err := c.l2.Close(); err != nil {
			return fmt.Errorf("failed to close redis client: %w", err)
		}
	}
	if c.VectorIndex != nil {
		if err := c.VectorIndex.Close(); err != nil {
			return fmt.Errorf("failed to close vector index: %w", err)
		}
	}
	if closer, ok := c.Limiter.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("failed to close rate limiter: %w", err)
		}
	}
	return nil
}

func promptDir() string {
	if dir := os.Getenv("PROMPT_TEMPLATE_DIR"); dir != "" {
		return dir
	}
	return defaultPromptDir
}

func regionDir() string {
	if dir := os.Getenv("REGION_CONFIG_DIR"); dir != "" {
		return dir
	}
	return defaultRegionDir
}

func dirExists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}
