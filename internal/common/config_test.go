package common

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, "development", config.Environment)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, "./data", config.Storage.Badger.Path)

	// The documented threshold set
	assert.Equal(t, 0.3, config.Retrieval.SimilarityThreshold)
	assert.Equal(t, 0.1, config.Retrieval.KeywordFloor)
	assert.Equal(t, 5, config.Retrieval.MaxResults)
	assert.Equal(t, 0.3, config.Composer.ClarificationThreshold)
	assert.Equal(t, 2, config.Composer.MaxSentences)
	assert.Equal(t, 500, config.Composer.ContextChars)
	assert.Equal(t, 5, config.Composer.HistoryMessages)
	assert.Equal(t, 500, config.Chunking.Size)
	assert.Equal(t, 50, config.Chunking.Overlap)
	assert.Equal(t, "24h", config.Sessions.TTL)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(nil, "/nonexistent/respondo.toml")
	assert.Error(t, err)
}

func TestLoadFromFile_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "respondo.toml")

	content := `
environment = "production"

[server]
port = 9090

[retrieval]
similarity_threshold = 0.5
max_results = 3

[sessions]
ttl = "1h"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := LoadFromFile(nil, path)
	require.NoError(t, err)

	assert.Equal(t, "production", config.Environment)
	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, 0.5, config.Retrieval.SimilarityThreshold)
	assert.Equal(t, 3, config.Retrieval.MaxResults)
	assert.Equal(t, "1h", config.Sessions.TTL)

	// Untouched values keep defaults
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 0.1, config.Retrieval.KeywordFloor)
}

func TestLoadFromFiles_LaterFilesWin(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.toml")
	override := filepath.Join(dir, "override.toml")

	require.NoError(t, os.WriteFile(base, []byte("[server]\nport = 9000\nhost = \"base\"\n"), 0644))
	require.NoError(t, os.WriteFile(override, []byte("[server]\nport = 9001\n"), 0644))

	config, err := LoadFromFiles(nil, base, override)
	require.NoError(t, err)

	assert.Equal(t, 9001, config.Server.Port)
	assert.Equal(t, "base", config.Server.Host)
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "respondo.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = 9000\n"), 0644))

	t.Setenv("RESPONDO_SERVER_PORT", "7070")
	t.Setenv("RESPONDO_LOG_LEVEL", "debug")
	t.Setenv("RESPONDO_RETRIEVAL_SIMILARITY_THRESHOLD", "0.45")
	t.Setenv("RESPONDO_SESSIONS_TTL", "2h")
	t.Setenv("RESPONDO_LLM_DEFAULT_PROVIDER", "claude")

	config, err := LoadFromFile(nil, path)
	require.NoError(t, err)

	// Env beats file
	assert.Equal(t, 7070, config.Server.Port)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, 0.45, config.Retrieval.SimilarityThreshold)
	assert.Equal(t, "2h", config.Sessions.TTL)
	assert.Equal(t, LLMProviderClaude, config.LLM.DefaultProvider)
}

func TestEnvOverrides_InvalidValuesIgnored(t *testing.T) {
	t.Setenv("RESPONDO_SERVER_PORT", "not-a-number")
	t.Setenv("RESPONDO_SESSIONS_TTL", "not-a-duration")

	config, err := LoadFromFiles(nil)
	require.NoError(t, err)

	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "24h", config.Sessions.TTL)
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()

	ApplyFlagOverrides(config, 3000, "0.0.0.0")
	assert.Equal(t, 3000, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)

	// Zero values leave config untouched
	ApplyFlagOverrides(config, 0, "")
	assert.Equal(t, 3000, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
}

func TestResolveAPIKey_EnvPriority(t *testing.T) {
	t.Setenv("RESPONDO_GEMINI_API_KEY", "env-key")

	key, err := ResolveAPIKey(context.Background(), nil, "gemini_api_key", "config-key")
	require.NoError(t, err)
	assert.Equal(t, "env-key", key)
}

func TestResolveAPIKey_AnthropicEnvVar(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "anthropic-env-key")

	key, err := ResolveAPIKey(context.Background(), nil, "anthropic_api_key", "")
	require.NoError(t, err)
	assert.Equal(t, "anthropic-env-key", key)
}

func TestResolveAPIKey_ConfigFallback(t *testing.T) {
	key, err := ResolveAPIKey(context.Background(), nil, "gemini_api_key", "config-key")
	require.NoError(t, err)
	assert.Equal(t, "config-key", key)
}

func TestResolveAPIKey_NotFound(t *testing.T) {
	_, err := ResolveAPIKey(context.Background(), nil, "gemini_api_key", "")
	assert.Error(t, err)
}

func TestValidateMaintenanceSchedule(t *testing.T) {
	tests := []struct {
		name     string
		schedule string
		wantErr  bool
	}{
		{"daily at 3am", "0 3 * * *", false},
		{"every 6 hours", "0 */6 * * *", false},
		{"every 5 minutes", "*/5 * * * *", false},
		{"every minute", "* * * * *", true},
		{"every 2 minutes", "*/2 * * * *", true},
		{"too few fields", "0 3 *", true},
		{"garbage", "not a schedule", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMaintenanceSchedule(tt.schedule)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSessionTTL(t *testing.T) {
	config := NewDefaultConfig()
	assert.Equal(t, 24*time.Hour, config.SessionTTL())

	config.Sessions.TTL = "90m"
	assert.Equal(t, 90*time.Minute, config.SessionTTL())

	config.Sessions.TTL = "garbage"
	assert.Equal(t, 24*time.Hour, config.SessionTTL())
}

func TestIsProduction(t *testing.T) {
	config := NewDefaultConfig()
	assert.False(t, config.IsProduction())

	config.Environment = "production"
	assert.True(t, config.IsProduction())

	config.Environment = "  PROD  "
	assert.True(t, config.IsProduction())
}

func TestDeepCloneConfig(t *testing.T) {
	original := NewDefaultConfig()
	clone := DeepCloneConfig(original)

	clone.Server.Port = 1234
	clone.Logging.Output[0] = "mutated"
	clone.WebSocket.ExcludePatterns[0] = "mutated"

	assert.Equal(t, 8080, original.Server.Port)
	assert.Equal(t, "stdout", original.Logging.Output[0])
	assert.NotEqual(t, "mutated", original.WebSocket.ExcludePatterns[0])

	assert.Nil(t, DeepCloneConfig(nil))
}
