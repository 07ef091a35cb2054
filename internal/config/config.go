package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort       string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"sqlite3"`
	DatabaseURL    string `env:"DATABASE_URL" envDefault:"divination.db"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"INFO"`
	RNGSeed        int64  `env:"RNG_SEED" envDefault:"0"`
	HistoryLimit   int    `env:"HISTORY_LIMIT" envDefault:"50"`

	AI AIConfig
}

// AIConfig controls the model-backed interpretation path. A missing API key
// is not an error; the capability simply reports itself unavailable.
type AIConfig struct {
	Enabled           bool          `env:"AI_ENABLED" envDefault:"true"`
	Provider          string        `env:"AI_PROVIDER" envDefault:"gemini"`
	Model             string        `env:"AI_MODEL"`
	BaseURL           string        `env:"AI_BASE_URL"`
	GeminiAPIKey      string        `env:"GEMINI_API_KEY"`
	OpenAIAPIKey      string        `env:"OPENAI_API_KEY"`
	AnthropicAPIKey   string        `env:"ANTHROPIC_API_KEY"`
	Timeout           time.Duration `env:"AI_TIMEOUT" envDefault:"30s"`
	MinCompleteChars  int           `env:"AI_MIN_COMPLETE_CHARS" envDefault:"200"`
	MinPartialChars   int           `env:"AI_MIN_PARTIAL_CHARS" envDefault:"50"`
	RetryFailedInit   bool          `env:"AI_RETRY_FAILED_INIT" envDefault:"true"`
	InterpretHexagram bool          `env:"AI_ICHING" envDefault:"false"`
}

// APIKey returns the key configured for the selected provider.
func (c AIConfig) APIKey() string {
	switch strings.ToLower(c.Provider) {
	case "openai":
		return c.OpenAIAPIKey
	case "anthropic":
		return c.AnthropicAPIKey
	default:
		return c.GeminiAPIKey
	}
}

// LoadConfig reads an optional .env file and then parses the environment.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, relying on environment variables")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.DatabaseDriver {
	case "sqlite3", "sqlite":
	default:
		return fmt.Errorf("invalid DATABASE_DRIVER %q (want sqlite3 or sqlite)", c.DatabaseDriver)
	}
	switch strings.ToLower(c.AI.Provider) {
	case "gemini", "openai", "anthropic":
	default:
		return fmt.Errorf("invalid AI_PROVIDER %q", c.AI.Provider)
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("HISTORY_LIMIT must be positive, got %d", c.HistoryLimit)
	}
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI_TIMEOUT must be positive, got %s", c.AI.Timeout)
	}
	if c.AI.MinPartialChars > c.AI.MinCompleteChars {
		return fmt.Errorf("AI_MIN_PARTIAL_CHARS (%d) exceeds AI_MIN_COMPLETE_CHARS (%d)", c.AI.MinPartialChars, c.AI.MinCompleteChars)
	}
	_, err := ParseLogLevel(c.LogLevel)
	return err
}

// ParseLogLevel maps LOG_LEVEL values onto slog levels.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO", "":
		return slog.LevelInfo, nil
	case "WARN":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid LOG_LEVEL %q", s)
	}
}
