// Package config provides configuration for the claimcheck service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultHTTPPort          = 8080
	DefaultDatabaseURL       = "file:claimcheck.db?cache=shared&mode=rwc"
	DefaultLLMBaseURL        = "https://api.openai.com"
	DefaultLLMModel          = "gpt-4o"
	DefaultLLMTimeoutMs      = 0
	DefaultAttachmentMaxSize = 20 << 20
	DefaultAnalysisChunkSize = 10
	DefaultHistoryLimit      = 200
)

// Config holds the service configuration.
type Config struct {
	Server      ServerConfig     `toml:"server"`
	Database    DatabaseConfig   `toml:"database"`
	LLM         LLMConfig        `toml:"llm"`
	Log         LogConfig        `toml:"log"`
	Attachments AttachmentConfig `toml:"attachments"`
	Analysis    AnalysisConfig   `toml:"analysis"`
	OTel        OTelConfig       `toml:"otel"`
}

type ServerConfig struct {
	HTTPPort     int `toml:"http_port"`
	HistoryLimit int `toml:"history_limit"`
}

type DatabaseConfig struct {
	URL string `toml:"url"`
}

type LLMConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	Model     string `toml:"model"`
	TimeoutMs int    `toml:"timeout_ms"`
}

// Timeout is the overall request timeout for model calls. Zero means none.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

type LogConfig struct {
	Mode  string `toml:"mode"`
	Level string `toml:"level"`
}

type AttachmentConfig struct {
	MaxBytes   int64  `toml:"max_bytes"`
	PolicyFile string `toml:"policy_file"`
}

type AnalysisConfig struct {
	ChunkSize int `toml:"chunk_size"`
}

type OTelConfig struct {
	Enabled     bool   `toml:"enabled"`
	ServiceName string `toml:"service_name"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server:      ServerConfig{HTTPPort: DefaultHTTPPort, HistoryLimit: DefaultHistoryLimit},
		Database:    DatabaseConfig{URL: DefaultDatabaseURL},
		LLM:         LLMConfig{BaseURL: DefaultLLMBaseURL, Model: DefaultLLMModel, TimeoutMs: DefaultLLMTimeoutMs},
		Log:         LogConfig{Mode: "dev", Level: "info"},
		Attachments: AttachmentConfig{MaxBytes: DefaultAttachmentMaxSize},
		Analysis:    AnalysisConfig{ChunkSize: DefaultAnalysisChunkSize},
		OTel:        OTelConfig{ServiceName: "claimcheck"},
	}
}

// Load reads the optional TOML file at path, then applies environment overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return cfg, fmt.Errorf("decode config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return cfg, err
		}
	}

	cfg.applyEnv()
	return cfg, cfg.validate()
}

func (c *Config) applyEnv() {
	c.Server.HTTPPort = getEnvInt("HTTP_PORT", c.Server.HTTPPort)
	c.Server.HistoryLimit = getEnvInt("HISTORY_LIMIT", c.Server.HistoryLimit)
	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)
	c.LLM.BaseURL = getEnv("LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.APIKey = getEnv("LLM_API_KEY", c.LLM.APIKey)
	c.LLM.Model = getEnv("LLM_MODEL", c.LLM.Model)
	c.LLM.TimeoutMs = getEnvInt("LLM_TIMEOUT_MS", c.LLM.TimeoutMs)
	c.Log.Mode = getEnv("LOG_MODE", c.Log.Mode)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Attachments.MaxBytes = int64(getEnvInt("ATTACHMENT_MAX_BYTES", int(c.Attachments.MaxBytes)))
	c.Attachments.PolicyFile = getEnv("ATTACHMENT_POLICY_FILE", c.Attachments.PolicyFile)
	c.Analysis.ChunkSize = getEnvInt("ANALYSIS_CHUNK_SIZE", c.Analysis.ChunkSize)
	c.OTel.Enabled = getEnvBool("OTEL_ENABLED", c.OTel.Enabled)
}

func (c *Config) validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid http port %d", c.Server.HTTPPort)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database url is required")
	}
	if c.Analysis.ChunkSize <= 0 {
		return fmt.Errorf("analysis chunk size must be positive, got %d", c.Analysis.ChunkSize)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
