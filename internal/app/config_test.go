package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "unit-test-secret")
	t.Setenv("CORS_ORIGINS", "https://a.example.com,https://b.example.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, 60, cfg.RateLimitPerMinute)
	require.Equal(t, 10*time.Minute, cfg.ReportCacheTTL)
	require.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
	require.False(t, cfg.IsProduction())

	dec := cfg.Decisions()
	require.Equal(t, 3, dec.MaxDecisionRetries)
	require.Equal(t, 50*time.Millisecond, dec.RetryBackoff)
	require.Equal(t, time.Hour, cfg.Auth().ResetTokenTTL)
	require.False(t, cfg.Auth().AllowAdminSignup)
	require.Equal(t, 587, cfg.SMTP().Port)
}

func TestLoadConfigRejects(t *testing.T) {
	t.Setenv("JWT_SECRET", "   ")
	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("JWT_SECRET", "short")
	t.Setenv("APP_ENV", "production")
	_, err = LoadConfig()
	require.ErrorContains(t, err, "32 bytes")

	t.Setenv("APP_ENV", "development")
	t.Setenv("DECISION_RETRIES", "-1")
	_, err = LoadConfig()
	require.Error(t, err)
}

func TestTestModeFlag(t *testing.T) {
	t.Cleanup(RefreshTestMode)
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	require.True(t, InTestMode())

	t.Setenv(testModeEnv, "0")
	RefreshTestMode()
	require.False(t, InTestMode())
}

func TestNewLoggerFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &Config{AppEnv: "staging", LogFormat: "json", LogLevel: "warn"})
	logger.Info("hidden")
	logger.Warn("shown", slog.String("asset_id", "a1"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "shown", line["msg"])
	require.Equal(t, "assettrack", line["service"])
	require.Equal(t, "staging", line["env"])
	require.Equal(t, "a1", line["asset_id"])
}
