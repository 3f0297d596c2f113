package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fapiao/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "development", cfg.Server.Environment)

	assert.Equal(t, "qwen-vl-plus", cfg.Qwen.Model)
	assert.Equal(t, 300, cfg.Qwen.TimeoutSecs)
	assert.Equal(t, 300*time.Second, cfg.Qwen.Timeout())
	assert.Equal(t, 8, cfg.Qwen.BatchSize)
	assert.Contains(t, cfg.Qwen.Endpoint, "dashscope")

	assert.Equal(t, int64(20), cfg.Upload.MaxFileSizeMB)
	assert.Equal(t, 2000, cfg.Upload.MaxImageDim)

	assert.Contains(t, cfg.CORS.AllowedOrigins, "http://localhost:3000")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FAPIAO_SERVER_PORT", ":9000")
	t.Setenv("FAPIAO_QWEN_MODEL", "qwen-vl-max")
	t.Setenv("FAPIAO_QWEN_BATCH_SIZE", "4")
	t.Setenv("FAPIAO_UPLOAD_MAX_FILE_SIZE_MB", "5")
	t.Setenv("FAPIAO_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Port)
	assert.Equal(t, "qwen-vl-max", cfg.Qwen.Model)
	assert.Equal(t, 4, cfg.Qwen.BatchSize)
	assert.Equal(t, int64(5), cfg.Upload.MaxFileSizeMB)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_PlatformPortFallback(t *testing.T) {
	t.Setenv("PORT", "7777")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.Server.Port)
}

func TestLoad_ExplicitPortWinsOverPlatformPort(t *testing.T) {
	t.Setenv("PORT", "7777")
	t.Setenv("FAPIAO_SERVER_PORT", ":9000")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Port)
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	t.Setenv("FAPIAO_QWEN_BATCH_SIZE", "0")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch_size")
}
