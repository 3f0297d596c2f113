package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server ServerConfig
	Qwen   QwenConfig
	Upload UploadConfig
	CORS   CORSConfig
	Log    LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// QwenConfig holds settings for the upstream multimodal model endpoint.
type QwenConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	APIKey      string `mapstructure:"api_key"`
	Model       string `mapstructure:"model"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
	BatchSize   int    `mapstructure:"batch_size"`
}

// Timeout returns the per-call upstream timeout as a duration.
func (q *QwenConfig) Timeout() time.Duration {
	return time.Duration(q.TimeoutSecs) * time.Second
}

// UploadConfig holds multipart upload limits.
type UploadConfig struct {
	MaxFileSizeMB int64 `mapstructure:"max_file_size_mb"`
	MaxImageDim   int   `mapstructure:"max_image_dim"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from environment variables with the FAPIAO_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FAPIAO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "600s")
	v.SetDefault("server.environment", "development")

	// Qwen defaults
	v.SetDefault("qwen.endpoint", "https://dashscope.aliyuncs.com/api/v1/services/aigc/multimodal-generation")
	v.SetDefault("qwen.api_key", "")
	v.SetDefault("qwen.model", "qwen-vl-plus")
	v.SetDefault("qwen.timeout_secs", 300)
	v.SetDefault("qwen.batch_size", 8)

	// Upload defaults
	v.SetDefault("upload.max_file_size_mb", 20)
	v.SetDefault("upload.max_image_dim", 2000)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000,http://localhost:5173,http://127.0.0.1:5173")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":             "FAPIAO_SERVER_PORT",
		"server.read_timeout":     "FAPIAO_SERVER_READ_TIMEOUT",
		"server.write_timeout":    "FAPIAO_SERVER_WRITE_TIMEOUT",
		"server.environment":      "FAPIAO_SERVER_ENVIRONMENT",
		"qwen.endpoint":           "FAPIAO_QWEN_ENDPOINT",
		"qwen.api_key":            "FAPIAO_QWEN_API_KEY",
		"qwen.model":              "FAPIAO_QWEN_MODEL",
		"qwen.timeout_secs":       "FAPIAO_QWEN_TIMEOUT_SECS",
		"qwen.batch_size":         "FAPIAO_QWEN_BATCH_SIZE",
		"upload.max_file_size_mb": "FAPIAO_UPLOAD_MAX_FILE_SIZE_MB",
		"upload.max_image_dim":    "FAPIAO_UPLOAD_MAX_IMAGE_DIM",
		"log.level":               "FAPIAO_LOG_LEVEL",
		"log.format":              "FAPIAO_LOG_FORMAT",
		"cors.allowed_origins":    "FAPIAO_CORS_ALLOWED_ORIGINS",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if FAPIAO_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("FAPIAO_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}

	cfg.Qwen = QwenConfig{
		Endpoint:    v.GetString("qwen.endpoint"),
		APIKey:      v.GetString("qwen.api_key"),
		Model:       v.GetString("qwen.model"),
		TimeoutSecs: v.GetInt("qwen.timeout_secs"),
		BatchSize:   v.GetInt("qwen.batch_size"),
	}
	if cfg.Qwen.BatchSize <= 0 {
		return nil, fmt.Errorf("qwen.batch_size must be positive, got %d", cfg.Qwen.BatchSize)
	}

	cfg.Upload = UploadConfig{
		MaxFileSizeMB: v.GetInt64("upload.max_file_size_mb"),
		MaxImageDim:   v.GetInt("upload.max_image_dim"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{AllowedOrigins: corsOrigins}

	return cfg, nil
}
