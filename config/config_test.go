package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setRequired sets the two mandatory credentials for a test.
func setRequired(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "test-token")
	t.Setenv("DISCORD_CLIENT_ID", "1234")
}

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "test-token", cfg.DiscordToken)
	assert.Equal(t, "1234", cfg.ClientID)
	assert.Equal(t, ExtractorKkdai, cfg.Extractor)
	assert.Equal(t, 10*time.Minute, cfg.TrackCacheTTL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.RedisAddr)
	assert.True(t, cfg.RegistersGlobally())
}

func TestLoad_MissingToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("DISCORD_CLIENT_ID", "1234")

	_, err := Load(missingEnvFile(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DISCORD_TOKEN")
}

func TestLoad_MissingClientID(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "test-token")
	t.Setenv("DISCORD_CLIENT_ID", "")

	_, err := Load(missingEnvFile(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DISCORD_CLIENT_ID")
}

func TestLoad_FromEnvFile(t *testing.T) {
	// Declared empty so t.Setenv restores them after godotenv writes them.
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("DISCORD_CLIENT_ID", "")
	t.Setenv("DISCORD_GUILD_ID", "")
	t.Setenv("REDIS_ADDR", "")
	os.Unsetenv("DISCORD_TOKEN")
	os.Unsetenv("DISCORD_CLIENT_ID")
	os.Unsetenv("DISCORD_GUILD_ID")
	os.Unsetenv("REDIS_ADDR")

	path := filepath.Join(t.TempDir(), ".env")
	content := "DISCORD_TOKEN=file-token\nDISCORD_CLIENT_ID=42\nDISCORD_GUILD_ID=777\nREDIS_ADDR=localhost:6379\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "file-token", cfg.DiscordToken)
	assert.Equal(t, "42", cfg.ClientID)
	assert.Equal(t, "777", cfg.GuildID)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.False(t, cfg.RegistersGlobally())
}

func TestLoad_EnvironmentWinsOverFile(t *testing.T) {
	setRequired(t)

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DISCORD_TOKEN=file-token\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test-token", cfg.DiscordToken)
}

func TestLoad_InvalidExtractor(t *testing.T) {
	setRequired(t)
	t.Setenv("EXTRACTOR", "vlc")

	_, err := Load(missingEnvFile(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EXTRACTOR")
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	setRequired(t)
	t.Setenv("LOG_LEVEL", "chatty")

	_, err := Load(missingEnvFile(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOG_LEVEL")
}

func TestLoad_CacheSettings(t *testing.T) {
	setRequired(t)
	t.Setenv("EXTRACTOR", "ytdlp")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("TRACK_CACHE_TTL", "90s")

	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, ExtractorYtdlp, cfg.Extractor)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 90*time.Second, cfg.TrackCacheTTL)
}
