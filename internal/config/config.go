// Package config loads the service configuration from environment
// variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `json:"server"`
	Providers ProvidersConfig `json:"providers"`
	Embedding EmbeddingConfig `json:"embedding"`
	Qdrant    QdrantConfig    `json:"qdrant"`
	Redis     RedisConfig     `json:"redis"`
	Database  DatabaseConfig  `json:"database"`
	Chunking  ChunkingConfig  `json:"chunking"`
	Retrieval RetrievalConfig `json:"retrieval"`
	Cache     CacheConfig     `json:"cache"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Auth      AuthConfig      `json:"auth"`
	Billing   BillingConfig   `json:"billing"`
	Uploads   UploadConfig    `json:"uploads"`
	Locale    LocaleConfig    `json:"locale"`
	Logging   LoggingConfig   `json:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string   `json:"host"`
	Port         int      `json:"port"`
	ReadTimeout  int      `json:"read_timeout_seconds"`
	WriteTimeout int      `json:"write_timeout_seconds"`
	CORSOrigins  []string `json:"cors_origins"`
	SecretKey    string   `json:"-"`
}

// ProvidersConfig holds AI provider credentials and endpoints
type ProvidersConfig struct {
	// OpenAI-compatible endpoint used for the premium-complex family
	OpenAIBaseURL string `json:"openai_base_url"`
	OpenAIToken   string `json:"-"`
	// Vertex-style endpoint used for the regional-lite family
	VertexProjectID string `json:"vertex_project_id"`
	VertexLocation  string `json:"vertex_location"`
	VertexBaseURL   string `json:"vertex_base_url"`

	// Review threshold below which results are flagged for human review
	ReviewThreshold float64 `json:"review_threshold"`

	// Resilience parameters
	TimeoutMediumSeconds int `json:"timeout_medium_seconds"`
	TimeoutHighSeconds   int `json:"timeout_high_seconds"`
	MaxAttempts          int `json:"max_attempts"`
	BackoffBaseMS        int `json:"backoff_base_ms"`
	BackoffCapMS         int `json:"backoff_cap_ms"`
	BreakerThreshold     int `json:"breaker_threshold"`
	BreakerWindowSeconds int `json:"breaker_window_seconds"`
	BreakerCooldownSecs  int `json:"breaker_cooldown_seconds"`
}

// EmbeddingConfig represents embedding service configuration
type EmbeddingConfig struct {
	BaseURL        string `json:"base_url"`
	APIKey         string `json:"-"`
	Model          string `json:"model"`
	Dimension      int    `json:"dimension"`
	RequestTimeout int    `json:"request_timeout_seconds"`
}

// QdrantConfig represents the optional remote vector index
type QdrantConfig struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	APIKey     string `json:"-"`
	UseTLS     bool   `json:"use_tls"`
	Collection string `json:"collection"`
}

// Enabled reports whether the remote index should be used
func (q *QdrantConfig) Enabled() bool { return q.Host != "" }

// RedisConfig represents the shared Redis used by the L2 cache and the
// distributed rate limiter
type RedisConfig struct {
	URL string `json:"url"`
}

// Enabled reports whether Redis-backed tiers should be wired
func (r *RedisConfig) Enabled() bool { return r.URL != "" }

// DatabaseConfig represents the usage ledger database
type DatabaseConfig struct {
	URL string `json:"url"`
}

// ChunkingConfig represents document chunking parameters (characters)
type ChunkingConfig struct {
	ChunkSize         int  `json:"chunk_size"`
	Overlap           int  `json:"overlap"`
	MinChunkSize      int  `json:"min_chunk_size"`
	MaxChunkSize      int  `json:"max_chunk_size"`
	RespectSentences  bool `json:"respect_sentences"`
	RespectParagraphs bool `json:"respect_paragraphs"`
}

// RetrievalConfig tunes RAG queries feeding prompt assembly
type RetrievalConfig struct {
	TopK     int     `json:"top_k"`
	MinScore float64 `json:"min_score"`
}

// CacheConfig represents the two-tier result cache
type CacheConfig struct {
	MaxEntries    int           `json:"max_entries"`
	MaxBytes      int64         `json:"max_bytes"`
	DefaultTTL    time.Duration `json:"default_ttl"`
	L1PopulateTTL time.Duration `json:"l1_populate_ttl"`
}

// RateLimitConfig represents the per-tenant admission limiter
type RateLimitConfig struct {
	// Requests and Window override the tier table when set
	Requests int           `json:"requests"`
	Window   time.Duration `json:"window"`
}

// AuthConfig holds token lifetimes handed to the external identity layer
type AuthConfig struct {
	AccessTokenExpireMinutes int `json:"access_token_expire_minutes"`
	APIKeyExpireDays         int `json:"api_key_expire_days"`
}

// BillingConfig holds credentials passed through to the billing collaborator
type BillingConfig struct {
	StripeSecretKey string `json:"-"`
}

// UploadConfig represents document upload handling
type UploadConfig struct {
	MaxFileSize int64  `json:"max_file_size"`
	Dir         string `json:"dir"`
}

// LocaleConfig represents locale defaults
type LocaleConfig struct {
	DefaultRegion string `json:"default_region"`
	DefaultLocale string `json:"default_locale"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `json:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 120,
			CORSOrigins:  []string{"*"},
		},
		Providers: ProvidersConfig{
			OpenAIBaseURL:        "https://models.inference.ai.azure.com",
			VertexLocation:       "us-central1",
			ReviewThreshold:      0.7,
			TimeoutMediumSeconds: 30,
			TimeoutHighSeconds:   120,
			MaxAttempts:          3,
			BackoffBaseMS:        500,
			BackoffCapMS:         8000,
			BreakerThreshold:     5,
			BreakerWindowSeconds: 60,
			BreakerCooldownSecs:  30,
		},
		Embedding: EmbeddingConfig{
			Model:          "text-embedding-3-small",
			Dimension:      256,
			RequestTimeout: 60,
		},
		Qdrant: QdrantConfig{
			Port:       6334,
			Collection: "planforge_chunks",
		},
		Database: DatabaseConfig{
			URL: "file:planforge.db?_journal_mode=WAL",
		},
		Chunking: ChunkingConfig{
			ChunkSize:         1000,
			Overlap:           200,
			MinChunkSize:      100,
			MaxChunkSize:      2000,
			RespectSentences:  true,
			RespectParagraphs: true,
		},
		Retrieval: RetrievalConfig{
			TopK:     5,
			MinScore: 0.3,
		},
		Cache: CacheConfig{
			MaxEntries:    1000,
			MaxBytes:      100 * 1024 * 1024,
			DefaultTTL:    15 * time.Minute,
			L1PopulateTTL: time.Hour,
		},
		Auth: AuthConfig{
			AccessTokenExpireMinutes: 30,
			APIKeyExpireDays:         365,
		},
		Uploads: UploadConfig{
			MaxFileSize: 50 * 1024 * 1024,
			Dir:         "./uploads",
		},
		Locale: LocaleConfig{
			DefaultRegion: "US",
			DefaultLocale: "en-US",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from environment variables and defaults
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	cfg := DefaultConfig()
	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadFromEnv(cfg *Config) {
	loadServerConfig(cfg)
	loadProviderConfig(cfg)
	loadStorageConfig(cfg)
	loadChunkingConfig(cfg)
	loadRateLimitConfig(cfg)
	loadLocaleConfig(cfg)
}

func loadServerConfig(cfg *Config) {
	if host := os.Getenv("HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if key := os.Getenv("SECRET_KEY"); key != "" {
		cfg.Server.SecretKey = key
	}
	if v := os.Getenv("ACCESS_TOKEN_EXPIRE_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Auth.AccessTokenExpireMinutes = n
		}
	}
	if v := os.Getenv("API_KEY_EXPIRE_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Auth.APIKeyExpireDays = n
		}
	}
	if key := os.Getenv("STRIPE_SECRET_KEY"); key != "" {
		cfg.Billing.StripeSecretKey = key
	}
	if origins := os.Getenv("BACKEND_CORS_ORIGINS"); origins != "" {
		cfg.Server.CORSOrigins = splitCSV(origins)
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}

func loadProviderConfig(cfg *Config) {
	if url := os.Getenv("OPENAI_BASE_URL"); url != "" {
		cfg.Providers.OpenAIBaseURL = url
	}
	if token := os.Getenv("GITHUB_MODELS_TOKEN"); token != "" {
		cfg.Providers.OpenAIToken = token
	}
	if project := os.Getenv("VERTEX_AI_PROJECT_ID"); project != "" {
		cfg.Providers.VertexProjectID = project
	}
	if location := os.Getenv("VERTEX_AI_LOCATION"); location != "" {
		cfg.Providers.VertexLocation = location
	}
	if url := os.Getenv("VERTEX_AI_BASE_URL"); url != "" {
		cfg.Providers.VertexBaseURL = url
	}
	if threshold := os.Getenv("REVIEW_THRESHOLD"); threshold != "" {
		if v, err := strconv.ParseFloat(threshold, 64); err == nil && v > 0 && v <= 1 {
			cfg.Providers.ReviewThreshold = v
		}
	}

	if key := os.Getenv("EMBEDDING_API_KEY"); key != "" {
		cfg.Embedding.APIKey = key
	}
	if url := os.Getenv("EMBEDDING_BASE_URL"); url != "" {
		cfg.Embedding.BaseURL = url
	}
	if model := os.Getenv("EMBEDDING_MODEL"); model != "" {
		cfg.Embedding.Model = model
	}
	if dim := os.Getenv("EMBEDDING_DIMENSION"); dim != "" {
		if d, err := strconv.Atoi(dim); err == nil && d > 0 {
			cfg.Embedding.Dimension = d
		}
	}
}

func loadStorageConfig(cfg *Config) {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		cfg.Redis.URL = url
	}
	if host := os.Getenv("QDRANT_HOST"); host != "" {
		cfg.Qdrant.Host = host
	}
	if port := os.Getenv("QDRANT_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Qdrant.Port = p
		}
	}
	if key := os.Getenv("QDRANT_API_KEY"); key != "" {
		cfg.Qdrant.APIKey = key
	}
	if collection := os.Getenv("QDRANT_COLLECTION"); collection != "" {
		cfg.Qdrant.Collection = collection
	}
	if size := os.Getenv("MAX_FILE_SIZE"); size != "" {
		if s, err := strconv.ParseInt(size, 10, 64); err == nil && s > 0 {
			cfg.Uploads.MaxFileSize = s
		}
	}
	if dir := os.Getenv("UPLOAD_DIR"); dir != "" {
		cfg.Uploads.Dir = dir
	}
}

func loadChunkingConfig(cfg *Config) {
	if v := os.Getenv("CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Chunking.ChunkSize = n
		}
	}
	if v := os.Getenv("CHUNK_OVERLAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Chunking.Overlap = n
		}
	}
	if v := os.Getenv("CHUNK_MIN_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Chunking.MinChunkSize = n
		}
	}
	if v := os.Getenv("CHUNK_MAX_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Chunking.MaxChunkSize = n
		}
	}
}

func loadRateLimitConfig(cfg *Config) {
	if v := os.Getenv("RATE_LIMIT_REQUESTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateLimit.Requests = n
		}
	}
	if v := os.Getenv("RATE_LIMIT_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateLimit.Window = time.Duration(n) * time.Second
		}
	}
}

func loadLocaleConfig(cfg *Config) {
	if region := os.Getenv("DEFAULT_REGION"); region != "" {
		cfg.Locale.DefaultRegion = region
	}
	if locale := os.Getenv("DEFAULT_LOCALE"); locale != "" {
		cfg.Locale.DefaultLocale = locale
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Chunking.MinChunkSize <= 0 {
		return fmt.Errorf("min chunk size must be positive")
	}
	if c.Chunking.MaxChunkSize <= c.Chunking.MinChunkSize {
		return fmt.Errorf("max chunk size must be greater than min chunk size")
	}
	if c.Chunking.Overlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("chunk overlap must be smaller than chunk size")
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive")
	}
	if c.Providers.ReviewThreshold <= 0 || c.Providers.ReviewThreshold > 1 {
		return fmt.Errorf("review threshold must be in (0, 1]")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database URL cannot be empty")
	}
	return nil
}
