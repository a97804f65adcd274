package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string `yaml:"port"`

	// Auth
	APIKey string `yaml:"api_key"`

	// Storage root: raw/, processed/ and index/ live underneath.
	DataDir string `yaml:"data_dir"`

	// Segmentation
	MaxChunkSize int `yaml:"max_chunk_size"`
	Overlap      int `yaml:"overlap"`
	Lookback     int `yaml:"lookback"`

	// Retrieval and routing
	TopK              int     `yaml:"top_k"`
	OffTopicThreshold float64 `yaml:"off_topic_threshold"`
	AnswerThreshold   float64 `yaml:"answer_threshold"`

	// Providers
	EmbeddingProvider  string `yaml:"embedding_provider"`
	EmbeddingModel     string `yaml:"embedding_model"`
	GenerationProvider string `yaml:"generation_provider"`
	GenerationModel    string `yaml:"generation_model"`
	GeminiAPIKey       string `yaml:"gemini_api_key"`
	AnthropicAPIKey    string `yaml:"anthropic_api_key"`

	// Worker pool
	WorkerCount          int `yaml:"worker_count"`
	MaxQueueSize         int `yaml:"max_queue_size"`
	MaxConcurrentExtract int `yaml:"max_concurrent_extract"`
	MaxConcurrentEmbed   int `yaml:"max_concurrent_embed"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Job state
	JobTTL time.Duration `yaml:"job_ttl"`

	// PDF
	PDFFallbackPdftotext bool `yaml:"pdf_fallback_pdftotext"`
}

// Load reads an optional .env file, then the environment, then the YAML file
// named by LEXGEST_CONFIG if set. Keys present in the YAML file win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("LEXGEST_API_KEY"),

		DataDir: envOr("DATA_DIR", "data"),

		MaxChunkSize: envInt("MAX_CHUNK_SIZE", 1200),
		Overlap:      envInt("CHUNK_OVERLAP", 250),
		Lookback:     envInt("LOOKBACK_LINES", 10),

		TopK:              envInt("TOP_K", 5),
		OffTopicThreshold: envFloat("OFF_TOPIC_THRESHOLD", 0.5),
		AnswerThreshold:   envFloat("ANSWER_THRESHOLD", 0.6),

		EmbeddingProvider:  envOr("EMBEDDING_PROVIDER", "gemini"),
		EmbeddingModel:     envOr("EMBEDDING_MODEL", "text-embedding-004"),
		GenerationProvider: envOr("GENERATION_PROVIDER", "gemini"),
		GenerationModel:    os.Getenv("GENERATION_MODEL"),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		AnthropicAPIKey:    os.Getenv("ANTHROPIC_API_KEY"),

		WorkerCount:          envInt("WORKER_COUNT", 2),
		MaxQueueSize:         envInt("MAX_QUEUE_SIZE", 100),
		MaxConcurrentExtract: envInt("MAX_CONCURRENT_EXTRACT", 4),
		MaxConcurrentEmbed:   envInt("MAX_CONCURRENT_EMBED", 4),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if path := os.Getenv("LEXGEST_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

// mergeFile overlays the keys set in a YAML file onto cfg.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.GenerationModel == "" {
		switch c.GenerationProvider {
		case "anthropic":
			c.GenerationModel = "claude-sonnet-4-5-20250929"
		default:
			c.GenerationModel = "gemini-1.5-pro"
		}
	}
	if c.Lookback <= 0 {
		c.Lookback = 10
	}
	if c.TopK <= 0 {
		c.TopK = 5
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = 2
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = 100
	}
	if c.MaxConcurrentExtract <= 0 {
		c.MaxConcurrentExtract = 4
	}
	if c.MaxConcurrentEmbed <= 0 {
		c.MaxConcurrentEmbed = 4
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 52428800
	}
	if c.JobTTL <= 0 {
		c.JobTTL = 1 * time.Hour
	}
}

// Validate checks segmentation and routing settings and the credentials the
// selected providers need.
func (c Config) Validate() error {
	if err := c.ValidateSegmentation(); err != nil {
		return err
	}
	if err := c.ValidateEmbedding(); err != nil {
		return err
	}
	return c.ValidateGeneration()
}

// ValidateSegmentation checks the chunking and routing settings only.
func (c Config) ValidateSegmentation() error {
	if c.MaxChunkSize <= 0 {
		return fmt.Errorf("MAX_CHUNK_SIZE must be positive, got %d", c.MaxChunkSize)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("CHUNK_OVERLAP must not be negative, got %d", c.Overlap)
	}
	if c.OffTopicThreshold < 0 || c.AnswerThreshold > 1 || c.OffTopicThreshold > c.AnswerThreshold {
		return fmt.Errorf("thresholds must satisfy 0 <= off-topic (%.2f) <= answer (%.2f) <= 1", c.OffTopicThreshold, c.AnswerThreshold)
	}
	return nil
}

// ValidateEmbedding checks the embedding provider and its credentials.
func (c Config) ValidateEmbedding() error {
	switch c.EmbeddingProvider {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for gemini embeddings")
		}
	case "hash":
	default:
		return fmt.Errorf("unknown embedding provider %q", c.EmbeddingProvider)
	}
	return nil
}

// ValidateGeneration checks the generation provider and its credentials.
func (c Config) ValidateGeneration() error {
	switch c.GenerationProvider {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for gemini generation")
		}
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for anthropic generation")
		}
	default:
		return fmt.Errorf("unknown generation provider %q", c.GenerationProvider)
	}
	return nil
}

// ValidateServer additionally requires the bearer token the HTTP API checks.
func (c Config) ValidateServer() error {
	if c.APIKey == "" {
		return fmt.Errorf("LEXGEST_API_KEY is required")
	}
	return c.Validate()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
