// Package config builds the service configuration from defaults, an
// optional YAML file named by CONFIG_FILE and the environment, in that
// order of precedence (environment wins).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/lexdoc/internal/chunker"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string

	// Auth
	LexdocAPIKey string

	// Text generation
	AnthropicAPIKey   string
	AnthropicModel    string
	AnthropicBaseURL  string
	LLMTemperature    float64
	LLMMaxTokens      int
	LLMTimeout        time.Duration
	RequestsPerMinute int

	// Embeddings (any OpenAI-compatible endpoint)
	EmbeddingBaseURL string
	EmbeddingAPIKey  string
	EmbeddingModel   string
	EmbeddingTimeout time.Duration
	EmbedBatchSize   int

	// Vector index
	IndexBackend       string
	IndexPath          string
	IndexCollection    string
	RelevanceThreshold float64
	ContextChunks      int

	// Chunking
	ChunkSize    int
	ChunkOverlap int

	// Classification
	ClassifyMinScore int
	ClassifierTable  string

	// Upload limits
	MaxUploadBytes int64

	// PDF
	PDFFallbackPdftotext bool

	LogLevel   string
	ConfigFile string
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port: "8090",

		AnthropicModel:    "claude-sonnet-4-5-20250929",
		AnthropicBaseURL:  "https://api.anthropic.com",
		LLMTemperature:    0.2,
		LLMMaxTokens:      2048,
		LLMTimeout:        60 * time.Second,
		RequestsPerMinute: 60,

		EmbeddingBaseURL: "https://api.openai.com/v1",
		EmbeddingModel:   "text-embedding-3-small",
		EmbeddingTimeout: 30 * time.Second,
		EmbedBatchSize:   128,

		IndexBackend:       "sqlite",
		IndexPath:          "./data/lexdoc.db",
		IndexCollection:    "legal_documents",
		RelevanceThreshold: 0.8,
		ContextChunks:      5,

		ChunkSize:    1000,
		ChunkOverlap: 200,

		ClassifyMinScore: 2,

		MaxUploadBytes: 10485760, // 10MB

		PDFFallbackPdftotext: true,
		LogLevel:             "info",
	}
}

// Load reads CONFIG_FILE (if set) over the defaults, then the environment.
func Load() (Config, error) {
	cfg := Defaults()
	cfg.ConfigFile = os.Getenv("CONFIG_FILE")
	if cfg.ConfigFile != "" {
		if err := cfg.LoadFile(cfg.ConfigFile); err != nil {
			return cfg, err
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.LexdocAPIKey = envOr("LEXDOC_API_KEY", cfg.LexdocAPIKey)

	cfg.AnthropicAPIKey = envOr("ANTHROPIC_API_KEY", cfg.AnthropicAPIKey)
	cfg.AnthropicModel = envOr("ANTHROPIC_MODEL", cfg.AnthropicModel)
	cfg.AnthropicBaseURL = envOr("ANTHROPIC_BASE_URL", cfg.AnthropicBaseURL)
	cfg.LLMTemperature = envFloat("LLM_TEMPERATURE", cfg.LLMTemperature)
	cfg.LLMMaxTokens = envInt("LLM_MAX_TOKENS", cfg.LLMMaxTokens)
	cfg.LLMTimeout = envDuration("LLM_TIMEOUT", cfg.LLMTimeout)
	cfg.RequestsPerMinute = envInt("API_REQUESTS_PER_MINUTE", cfg.RequestsPerMinute)

	cfg.EmbeddingBaseURL = envOr("EMBEDDING_BASE_URL", cfg.EmbeddingBaseURL)
	cfg.EmbeddingAPIKey = envOr("EMBEDDING_API_KEY", cfg.EmbeddingAPIKey)
	cfg.EmbeddingModel = envOr("EMBEDDING_MODEL", cfg.EmbeddingModel)
	cfg.EmbeddingTimeout = envDuration("EMBEDDING_TIMEOUT", cfg.EmbeddingTimeout)
	cfg.EmbedBatchSize = envInt("EMBEDDING_BATCH_SIZE", cfg.EmbedBatchSize)

	cfg.IndexBackend = strings.ToLower(envOr("INDEX_BACKEND", cfg.IndexBackend))
	cfg.IndexPath = envOr("INDEX_PATH", cfg.IndexPath)
	cfg.IndexCollection = envOr("INDEX_COLLECTION", cfg.IndexCollection)
	cfg.RelevanceThreshold = envFloat("RELEVANCE_THRESHOLD", cfg.RelevanceThreshold)
	cfg.ContextChunks = envInt("CONTEXT_CHUNKS", cfg.ContextChunks)

	cfg.ChunkSize = envInt("CHUNK_SIZE", cfg.ChunkSize)
	cfg.ChunkOverlap = envInt("CHUNK_OVERLAP", cfg.ChunkOverlap)

	cfg.ClassifyMinScore = envInt("CLASSIFY_MIN_SCORE", cfg.ClassifyMinScore)
	cfg.ClassifierTable = envOr("CLASSIFIER_TABLE", cfg.ClassifierTable)

	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", cfg.PDFFallbackPdftotext)
	cfg.LogLevel = envOr("LOG_LEVEL", cfg.LogLevel)

	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults restores defaults for values that cannot be meaningful.
// Chunk overlap and the classifier minimum may legitimately be zero.
func (c *Config) applyDefaults() {
	d := Defaults()
	if c.LLMMaxTokens <= 0 {
		c.LLMMaxTokens = d.LLMMaxTokens
	}
	if c.LLMTemperature < 0 {
		c.LLMTemperature = d.LLMTemperature
	}
	if c.LLMTimeout <= 0 {
		c.LLMTimeout = d.LLMTimeout
	}
	if c.RequestsPerMinute < 0 {
		c.RequestsPerMinute = d.RequestsPerMinute
	}
	if c.EmbeddingTimeout <= 0 {
		c.EmbeddingTimeout = d.EmbeddingTimeout
	}
	if c.EmbedBatchSize <= 0 {
		c.EmbedBatchSize = d.EmbedBatchSize
	}
	if c.RelevanceThreshold <= 0 {
		c.RelevanceThreshold = d.RelevanceThreshold
	}
	if c.ContextChunks <= 0 {
		c.ContextChunks = d.ContextChunks
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = d.ChunkSize
	}
	if c.ChunkOverlap < 0 {
		c.ChunkOverlap = d.ChunkOverlap
	}
	if c.ClassifyMinScore < 0 {
		c.ClassifyMinScore = d.ClassifyMinScore
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
}

// fileConfig is the YAML overlay. Only keys present in the file apply.
type fileConfig struct {
	LLM struct {
		Model             *string  `yaml:"model"`
		BaseURL           *string  `yaml:"base_url"`
		Temperature       *float64 `yaml:"temperature"`
		MaxTokens         *int     `yaml:"max_tokens"`
		Timeout           *string  `yaml:"timeout"`
		RequestsPerMinute *int     `yaml:"requests_per_minute"`
	} `yaml:"llm"`
	Embedding struct {
		BaseURL   *string `yaml:"base_url"`
		Model     *string `yaml:"model"`
		Timeout   *string `yaml:"timeout"`
		BatchSize *int    `yaml:"batch_size"`
	} `yaml:"embedding"`
	Index struct {
		Backend            *string  `yaml:"backend"`
		Path               *string  `yaml:"path"`
		Collection         *string  `yaml:"collection"`
		RelevanceThreshold *float64 `yaml:"relevance_threshold"`
		ContextChunks      *int     `yaml:"context_chunks"`
	} `yaml:"index"`
	Chunker struct {
		Size    *int `yaml:"size"`
		Overlap *int `yaml:"overlap"`
	} `yaml:"chunker"`
	Classifier struct {
		MinScore *int    `yaml:"min_score"`
		Table    *string `yaml:"table"`
	} `yaml:"classifier"`
	MaxUploadBytes *int64 `yaml:"max_upload_bytes"`
}

// LoadFile applies a YAML overlay. Secrets are never read from the file.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	set(&c.AnthropicModel, f.LLM.Model)
	set(&c.AnthropicBaseURL, f.LLM.BaseURL)
	set(&c.LLMTemperature, f.LLM.Temperature)
	set(&c.LLMMaxTokens, f.LLM.MaxTokens)
	set(&c.RequestsPerMinute, f.LLM.RequestsPerMinute)
	if err := setDuration(&c.LLMTimeout, f.LLM.Timeout); err != nil {
		return fmt.Errorf("config file llm.timeout: %w", err)
	}

	set(&c.EmbeddingBaseURL, f.Embedding.BaseURL)
	set(&c.EmbeddingModel, f.Embedding.Model)
	set(&c.EmbedBatchSize, f.Embedding.BatchSize)
	if err := setDuration(&c.EmbeddingTimeout, f.Embedding.Timeout); err != nil {
		return fmt.Errorf("config file embedding.timeout: %w", err)
	}

	set(&c.IndexBackend, f.Index.Backend)
	set(&c.IndexPath, f.Index.Path)
	set(&c.IndexCollection, f.Index.Collection)
	set(&c.RelevanceThreshold, f.Index.RelevanceThreshold)
	set(&c.ContextChunks, f.Index.ContextChunks)

	set(&c.ChunkSize, f.Chunker.Size)
	set(&c.ChunkOverlap, f.Chunker.Overlap)

	set(&c.ClassifyMinScore, f.Classifier.MinScore)
	set(&c.ClassifierTable, f.Classifier.Table)

	set(&c.MaxUploadBytes, f.MaxUploadBytes)
	return nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

// Chunk returns the chunker settings.
func (c Config) Chunk() chunker.Config {
	return chunker.Config{ChunkSize: c.ChunkSize, ChunkOverlap: c.ChunkOverlap}
}

// SlogLevel maps LogLevel to a slog level; unknown values mean info.
func (c Config) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Validate checks what every entry point needs.
func (c Config) Validate() error {
	var errs []error
	if c.AnthropicAPIKey == "" {
		errs = append(errs, errors.New("ANTHROPIC_API_KEY is required"))
	}
	if err := c.Chunk().Validate(); err != nil {
		errs = append(errs, err)
	}
	switch c.IndexBackend {
	case "sqlite":
		if c.IndexPath == "" {
			errs = append(errs, errors.New("INDEX_PATH is required for the sqlite backend"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("INDEX_BACKEND must be sqlite or memory, got %q", c.IndexBackend))
	}
	if c.RelevanceThreshold > 2 {
		errs = append(errs, fmt.Errorf("RELEVANCE_THRESHOLD must be at most 2 (cosine distance), got %g", c.RelevanceThreshold))
	}
	return errors.Join(errs...)
}

// ValidateServer additionally requires the API key guarding the HTTP API.
func (c Config) ValidateServer() error {
	err := c.Validate()
	if c.LexdocAPIKey == "" {
		err = errors.Join(err, errors.New("LEXDOC_API_KEY is required"))
	}
	return err
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
