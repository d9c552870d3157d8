package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the answer audio service
type Config struct {
	// Server configuration
	Port           string `envconfig:"PORT" default:"8080"`
	GRPCHealthPort string `envconfig:"GRPC_HEALTH_PORT" default:"9090"` // Empty disables the gRPC health service

	// Gemini API configuration (recognition and speech synthesis)
	GeminiAPIKey     string `envconfig:"GEMINI_API_KEY" required:"true"`
	GeminiBaseURL    string `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com/"`
	GeminiAPIVersion string `envconfig:"GEMINI_API_VERSION" default:"v1beta"`
	GeminiTTSModel   string `envconfig:"GEMINI_TTS_MODEL" default:"gemini-2.5-flash-preview-tts"`
	GeminiOCRModel   string `envconfig:"GEMINI_OCR_MODEL" default:"gemini-2.5-flash"`
	GeminiTTSTimeout int    `envconfig:"GEMINI_TTS_TIMEOUT" default:"60"` // seconds, per synthesis attempt

	// Default user settings, applied until the user changes them
	DefaultAnswerFormat        string  `envconfig:"DEFAULT_ANSWER_FORMAT" default:"full"` // full, compact, answer_only
	DefaultQuestionsPerSegment int     `envconfig:"DEFAULT_QUESTIONS_PER_SEGMENT" default:"10"`
	DefaultVoice               string  `envconfig:"DEFAULT_VOICE" default:"Kore"`
	DefaultPlaybackSpeed       float64 `envconfig:"DEFAULT_PLAYBACK_SPEED" default:"1"`
	DefaultTTSBackend          string  `envconfig:"DEFAULT_TTS_BACKEND" default:"gemini"` // gemini, browser
	DefaultAutoplay            bool    `envconfig:"DEFAULT_AUTOPLAY" default:"true"`
	DefaultLanguage            string  `envconfig:"DEFAULT_LANGUAGE" default:"en"`        // en, ar
	PlaybackTickInterval       int     `envconfig:"PLAYBACK_TICK_INTERVAL" default:"250"` // milliseconds between position updates
	MaxUploadSize              int64   `envconfig:"MAX_UPLOAD_SIZE" default:"10485760"`   // bytes, answer sheet image

	// Resilience configuration for the speech provider transport
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`             // Maximum retry attempts
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"`        // Initial backoff in milliseconds

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
	TracingEnabled bool   `envconfig:"TRACING_ENABLED" default:"false"`
	OTLPEndpoint   string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:""` // Stdout exporter when empty
	OTLPInsecure   bool   `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFor picks the loader for a deployment environment. Production reads
// only the process environment and never a .env file.
func LoadFor(environment string) (*Config, error) {
	if environment == "production" {
		return LoadFromEnv()
	}
	return Load()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.DefaultQuestionsPerSegment < 1 {
		return fmt.Errorf("DEFAULT_QUESTIONS_PER_SEGMENT must be at least 1, got %d", c.DefaultQuestionsPerSegment)
	}
	if c.DefaultPlaybackSpeed <= 0 {
		return fmt.Errorf("DEFAULT_PLAYBACK_SPEED must be positive, got %v", c.DefaultPlaybackSpeed)
	}
	if c.PlaybackTickInterval <= 0 {
		return fmt.Errorf("PLAYBACK_TICK_INTERVAL must be positive, got %d", c.PlaybackTickInterval)
	}
	return nil
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
