package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"project_newsbot/internal/config"
)

var envKeys = []string{
	"PORT", "GNEWS_API_KEY", "GNEWS_BASE_URL", "NEWS_MAX_ITEMS", "NEWS_TIMEOUT",
	"SUMMARY_MAX_LENGTH", "TELEGRAM_BOT_TOKEN", "WHATSAPP_ENABLED", "WHATSAPP_STORE_PATH",
	"DATABASE_URL", "JWT_SECRET", "ADMIN_USERNAME", "ADMIN_PASSWORD_HASH", "TOKEN_TTL",
	"TWILIO_AUTH_TOKEN", "TWILIO_WEBHOOK_URL", "RATE_LIMIT_PER_SECOND", "RATE_LIMIT_BURST",
	"LOG_LEVEL", "LOG_DEVELOPMENT",
}

// isolate clears every setting and points ENV_FILE at a file that does not exist
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	t.Setenv("ENV_FILE", filepath.Join(dir, "missing.env"))
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, ":5000", cfg.Addr())
	assert.Equal(t, 5, cfg.News.MaxItems)
	assert.Equal(t, 5*time.Second, cfg.News.Timeout)
	assert.Equal(t, 200, cfg.News.SummaryMaxLength)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "admin", cfg.Auth.AdminUsername)
	assert.False(t, cfg.WhatsApp.Enabled)
	assert.False(t, cfg.AdminEnabled())
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "newsbot.yml")
	yml := "server:\n  port: 8081\nnews:\n  max_items: 3\n  timeout: 2s\n  api_key: from-yaml\nwhatsapp:\n  enabled: true\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	t.Setenv("GNEWS_API_KEY", "from-env")
	t.Setenv("NEWS_TIMEOUT", "7")
	t.Setenv("RATE_LIMIT_PER_SECOND", "0.5")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, 3, cfg.News.MaxItems)
	assert.Equal(t, "from-env", cfg.News.APIKey)
	assert.Equal(t, 7*time.Second, cfg.News.Timeout)
	assert.InDelta(t, 0.5, cfg.Limits.PerSecond, 1e-9)
	assert.True(t, cfg.WhatsApp.Enabled)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := isolate(t)
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("JWT_SECRET=abc\nADMIN_PASSWORD_HASH=hash\n"), 0o600))
	t.Setenv("ENV_FILE", envFile)
	// godotenv never overrides a variable that is already present, even empty;
	// the t.Setenv cleanups from isolate restore the originals
	require.NoError(t, os.Unsetenv("JWT_SECRET"))
	require.NoError(t, os.Unsetenv("ADMIN_PASSWORD_HASH"))

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.True(t, cfg.AdminEnabled())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		field string
	}{
		{"too many items", "NEWS_MAX_ITEMS", "11", "news.max_items"},
		{"negative items", "NEWS_MAX_ITEMS", "-1", "news.max_items"},
		{"negative timeout", "NEWS_TIMEOUT", "-5s", "news.timeout"},
		{"short summary", "SUMMARY_MAX_LENGTH", "10", "news.summary_max_length"},
		{"bad port", "PORT", "70000", "server.port"},
		{"bad level", "LOG_LEVEL", "verbose", "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.key, tt.value)

			_, err := config.Load("")
			var verr *config.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestLoad_UnparseableEnv(t *testing.T) {
	isolate(t)
	t.Setenv("NEWS_MAX_ITEMS", "five")

	_, err := config.Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NEWS_MAX_ITEMS")
}

func TestLoad_MalformedYAML(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))

	_, err := config.Load(path)
	assert.Error(t, err)
}
