package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string
	WorkerEnabled      bool
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Supabase (optional archive for finished tracks — empty = local-only)
	SupabaseURL           string
	SupabaseServiceKey    string
	SupabaseStorageBucket string

	// Synthesis provider
	TTSProvider       string // "azure", "openai", or "gemini"
	AzureSpeechKey    string
	AzureSpeechRegion string
	OpenAIKey         string
	GeminiKey         string

	// Voices
	DefaultVoice     string
	VoiceCatalogPath string // Optional YAML file overriding the built-in catalog

	// Pipeline
	OutputDir          string
	WorkDir            string
	MaxChunkChars      int
	MaxPartDurationSec float64
	InterChunkDelayMs  int

	// Retry
	SynthMaxAttempts       int
	SynthInitialDelayMs    int
	SynthBackoffMultiplier float64

	// Worker
	MaxConcurrentJobs int

	// Metrics
	MetricsEnabled bool
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:            getEnv("API_PORT", "8080"),
		WorkerEnabled:      getEnvBool("WORKER_ENABLED", true),
		BackendAPIKey:      getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),

		SupabaseURL:           getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBucket: getEnv("SUPABASE_STORAGE_BUCKET", "doctalk-audio"),

		TTSProvider:       getEnv("TTS_PROVIDER", "azure"),
		AzureSpeechKey:    getEnv("AZURE_SPEECH_KEY", ""),
		AzureSpeechRegion: getEnv("AZURE_SPEECH_REGION", "eastasia"),
		OpenAIKey:         getEnv("OPENAI_API_KEY", ""),
		GeminiKey:         getEnv("GEMINI_API_KEY", ""),

		DefaultVoice:     getEnv("DEFAULT_VOICE", "xiaoxiao"),
		VoiceCatalogPath: getEnv("VOICE_CATALOG_PATH", ""),

		OutputDir:          getEnv("OUTPUT_DIR", "output"),
		WorkDir:            getEnv("WORK_DIR", "/tmp/doctalk"),
		MaxChunkChars:      getEnvInt("MAX_CHUNK_CHARS", 4900),
		MaxPartDurationSec: getEnvFloat("MAX_PART_DURATION_SEC", 3600),
		InterChunkDelayMs:  getEnvInt("INTER_CHUNK_DELAY_MS", 500),

		SynthMaxAttempts:       getEnvInt("SYNTH_MAX_ATTEMPTS", 3),
		SynthInitialDelayMs:    getEnvInt("SYNTH_INITIAL_DELAY_MS", 1000),
		SynthBackoffMultiplier: getEnvFloat("SYNTH_BACKOFF_MULTIPLIER", 2.0),

		MaxConcurrentJobs: getEnvInt("MAX_CONCURRENT_JOBS", 2),
		MetricsEnabled:    getEnvBool("METRICS_ENABLED", true),
	}

	// The selected provider must have credentials
	switch cfg.TTSProvider {
	case "azure":
		if cfg.AzureSpeechKey == "" {
			return nil, fmt.Errorf("AZURE_SPEECH_KEY is required when TTS_PROVIDER=azure")
		}
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when TTS_PROVIDER=openai")
		}
	case "gemini":
		if cfg.GeminiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required when TTS_PROVIDER=gemini")
		}
	default:
		return nil, fmt.Errorf("unknown TTS_PROVIDER %q (expected azure, openai, or gemini)", cfg.TTSProvider)
	}

	if cfg.MaxChunkChars < 1 {
		return nil, fmt.Errorf("MAX_CHUNK_CHARS must be at least 1")
	}

	if cfg.SynthMaxAttempts < 1 {
		return nil, fmt.Errorf("SYNTH_MAX_ATTEMPTS must be at least 1")
	}

	if cfg.SynthBackoffMultiplier <= 1 {
		return nil, fmt.Errorf("SYNTH_BACKOFF_MULTIPLIER must be greater than 1")
	}

	return cfg, nil
}

// ValidateServer checks the fields the API/worker process needs on top of
// Load. The CLI runs without a database or queue and skips this.
func (c *Config) ValidateServer() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if (c.SupabaseURL == "") != (c.SupabaseServiceKey == "") {
		return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY must be set together")
	}

	return nil
}

// ArchiveEnabled reports whether finished tracks should also be uploaded
// to remote storage.
func (c *Config) ArchiveEnabled() bool {
	return c.SupabaseURL != "" && c.SupabaseServiceKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}
