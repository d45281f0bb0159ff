package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/catwalk/pkg/catwalk"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"REWIND_PROVIDER", "REWIND_MODEL", "REWIND_BASE_URL", "REWIND_SYSTEM_PROMPT",
		"REWIND_DEBUG", "REWIND_DATA_DIR", "REWIND_API_KEY", "REWIND_MAX_TOKENS",
		"REWIND_TEMPERATURE", "OPENAI_API_KEY", "ANTHROPIC_API_KEY",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(t.TempDir(), false)
	require.NoError(t, err)

	require.Equal(t, "openai", cfg.Provider)
	require.Equal(t, "gpt-4o-mini", cfg.Model)
	require.Equal(t, "sk-test", cfg.APIKey)
	require.Equal(t, defaultSystemPrompt, cfg.SystemPrompt)
	require.Nil(t, cfg.Temperature)
	require.Zero(t, cfg.MaxTokens)
	require.Equal(t, catwalk.TypeOpenAI, cfg.ProviderType())
}

func TestLoad_Anthropic(t *testing.T) {
	clearEnv(t)
	t.Setenv("REWIND_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")

	cfg, err := Load(t.TempDir(), false)
	require.NoError(t, err)

	require.Equal(t, "claude-sonnet-4-20250514", cfg.Model)
	require.Equal(t, catwalk.TypeAnthropic, cfg.ProviderType())
}

func TestLoad_MissingAPIKey(t *testing.T) {
	clearEnv(t)

	_, err := Load(t.TempDir(), false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no API key")
}

func TestLoad_UnknownProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("REWIND_PROVIDER", "bedrock")

	_, err := Load(t.TempDir(), false)
	require.Error(t, err)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("REWIND_MODEL", "gpt-4o")
	t.Setenv("REWIND_MAX_TOKENS", "1024")
	t.Setenv("REWIND_TEMPERATURE", "0.7")

	cfg, err := Load(t.TempDir(), false)
	require.NoError(t, err)

	require.Equal(t, "gpt-4o", cfg.Model)
	require.Equal(t, int64(1024), cfg.MaxTokens)
	require.NotNil(t, cfg.Temperature)
	require.Equal(t, 0.7, *cfg.Temperature)
}

func TestLoad_InvalidNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	t.Setenv("REWIND_MAX_TOKENS", "zero")
	_, err := Load(t.TempDir(), false)
	require.Error(t, err)

	t.Setenv("REWIND_MAX_TOKENS", "1024")
	t.Setenv("REWIND_TEMPERATURE", "3.5")
	_, err = Load(t.TempDir(), false)
	require.Error(t, err)
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, ".env"), []byte("OPENAI_API_KEY=sk-from-dotenv\n"), 0o600)
	require.NoError(t, err)

	cfg, err := Load(dir, false)
	require.NoError(t, err)
	require.Equal(t, "sk-from-dotenv", cfg.APIKey)
}

func TestResolveModel(t *testing.T) {
	clearEnv(t)

	known := &Config{Model: "gpt-4o-mini"}
	model := known.ResolveModel()
	require.Equal(t, "gpt-4o-mini", model.ID)
	require.Positive(t, model.CostPer1MIn)

	unknown := &Config{Model: "some-local-model"}
	model = unknown.ResolveModel()
	require.Equal(t, "some-local-model", model.ID)
	require.Zero(t, model.CostPer1MIn)
	require.Positive(t, model.DefaultMaxTokens)
}
