package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/catwalk/pkg/catwalk"
	"github.com/joho/godotenv"
)

const (
	defaultSystemPrompt = "You are an AI assistant. Provide clear, concise, and helpful responses."
	defaultDataDirName  = ".rewind"
)

type Config struct {
	Provider     string
	Model        string
	APIKey       string
	BaseURL      string
	MaxTokens    int64
	Temperature  *float64
	SystemPrompt string
	Debug        bool
	DataDir      string
}

// Load reads configuration from the environment. A .env file in workingDir
// is loaded first without overriding variables already set in the process.
func Load(workingDir string, debug bool) (*Config, error) {
	if path := filepath.Join(workingDir, ".env"); fileExists(path) {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	cfg := &Config{
		Provider:     envOr("REWIND_PROVIDER", "openai"),
		Model:        os.Getenv("REWIND_MODEL"),
		BaseURL:      os.Getenv("REWIND_BASE_URL"),
		SystemPrompt: envOr("REWIND_SYSTEM_PROMPT", defaultSystemPrompt),
		Debug:        debug || os.Getenv("REWIND_DEBUG") == "1",
		DataDir:      envOr("REWIND_DATA_DIR", filepath.Join(workingDir, defaultDataDirName)),
	}

	if cfg.Model == "" {
		cfg.Model = defaultModelFor(cfg.Provider)
	}

	switch cfg.Provider {
	case "openai":
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
	if key := os.Getenv("REWIND_API_KEY"); key != "" {
		cfg.APIKey = key
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key configured for provider %q", cfg.Provider)
	}

	if raw := os.Getenv("REWIND_MAX_TOKENS"); raw != "" {
		maxTokens, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || maxTokens <= 0 {
			return nil, fmt.Errorf("invalid REWIND_MAX_TOKENS %q", raw)
		}
		cfg.MaxTokens = maxTokens
	}

	if raw := os.Getenv("REWIND_TEMPERATURE"); raw != "" {
		temperature, err := strconv.ParseFloat(raw, 64)
		if err != nil || temperature < 0 || temperature > 2 {
			return nil, fmt.Errorf("invalid REWIND_TEMPERATURE %q", raw)
		}
		cfg.Temperature = &temperature
	}

	return cfg, nil
}

// ProviderType maps the configured provider name to its catwalk type.
func (c *Config) ProviderType() catwalk.Type {
	switch c.Provider {
	case "anthropic":
		return catwalk.TypeAnthropic
	default:
		return catwalk.TypeOpenAI
	}
}

// LogFile is the rotated log destination inside the data directory.
func (c *Config) LogFile() string {
	return filepath.Join(c.DataDir, "logs", "rewind.log")
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
