package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Auth. Empty means the API is open.
	APIKey string

	// Inference backend: "ollama" or "openai".
	InferBackend     string
	InferURL         string
	InferModel       string
	InferAPIKey      string
	InferTemperature float64
	InferTimeout     time.Duration

	// Worker pool
	WorkerCount        int
	MaxQueueSize       int
	MaxConcurrentInfer int

	// Upload limits
	MaxUploadBytes int64

	// Chunking defaults
	DefaultChunkSize    int
	DefaultChunkOverlap int

	// Generation defaults
	SummaryTargetTokens int
	CardsPerChunk       int

	// State retention
	JobTTL      time.Duration
	DocumentTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("IDLEARN_API_KEY"),

		InferBackend:     envOr("INFER_BACKEND", "ollama"),
		InferURL:         envOr("INFER_URL", "http://localhost:11434"),
		InferModel:       envOr("INFER_MODEL", "llama3.1:8b"),
		InferAPIKey:      os.Getenv("INFER_API_KEY"),
		InferTemperature: envFloat("INFER_TEMPERATURE", 0.3),
		InferTimeout:     envDuration("INFER_TIMEOUT", 120*time.Second),

		WorkerCount:        envInt("WORKER_COUNT", 2),
		MaxQueueSize:       envInt("MAX_QUEUE_SIZE", 50),
		MaxConcurrentInfer: envInt("MAX_CONCURRENT_INFER", 4),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		DefaultChunkSize:    envInt("DEFAULT_CHUNK_SIZE", 1500),
		DefaultChunkOverlap: envInt("DEFAULT_CHUNK_OVERLAP", 150),

		SummaryTargetTokens: envInt("SUMMARY_TARGET_TOKENS", 400),
		CardsPerChunk:       envInt("CARDS_PER_CHUNK", 5),

		JobTTL:      envDuration("JOB_TTL", 1*time.Hour),
		DocumentTTL: envDuration("DOCUMENT_TTL", 4*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 50
	}
	if cfg.MaxConcurrentInfer <= 0 {
		cfg.MaxConcurrentInfer = 4
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.DefaultChunkSize <= 0 {
		cfg.DefaultChunkSize = 1500
	}
	if cfg.DefaultChunkOverlap < 0 {
		cfg.DefaultChunkOverlap = 150
	}
	if cfg.SummaryTargetTokens <= 0 {
		cfg.SummaryTargetTokens = 400
	}
	if cfg.CardsPerChunk <= 0 {
		cfg.CardsPerChunk = 5
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.DocumentTTL <= 0 {
		cfg.DocumentTTL = 4 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	switch c.InferBackend {
	case "ollama", "openai":
	default:
		return fmt.Errorf("INFER_BACKEND must be \"ollama\" or \"openai\", got %q", c.InferBackend)
	}
	if c.InferURL == "" {
		return fmt.Errorf("INFER_URL is required")
	}
	if c.InferModel == "" {
		return fmt.Errorf("INFER_MODEL is required")
	}
	return nil
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
