package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validLocalConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		StoreBackend:        BackendLocal,
		WorkingDirectory:    t.TempDir(),
		Transport:           "http",
		Port:                8080,
		MaxFileSizeMB:       10,
		MaxConcurrentFiles:  4,
		OperationTimeoutSec: 120,
	}
}

func TestValidateLocalOK(t *testing.T) {
	require.NoError(t, validLocalConfig(t).Validate())
}

func TestValidateLocalMissingDir(t *testing.T) {
	cfg := validLocalConfig(t)
	cfg.WorkingDirectory = ""
	assert.Error(t, cfg.Validate())

	cfg.WorkingDirectory = "/does/not/exist"
	assert.Error(t, cfg.Validate())
}

func TestValidateGitHubRequiresCoordinates(t *testing.T) {
	cfg := validLocalConfig(t)
	cfg.StoreBackend = BackendGitHub
	cfg.WorkingDirectory = ""
	assert.Error(t, cfg.Validate(), "owner/repo missing")

	cfg.GitHubOwner = "octo"
	cfg.GitHubRepo = "demo"
	cfg.GitHubBranch = "main"
	assert.Error(t, cfg.Validate(), "token missing")

	cfg.GitHubToken = "ghp_x"
	assert.NoError(t, cfg.Validate())
}

func TestValidateUnknownBackend(t *testing.T) {
	cfg := validLocalConfig(t)
	cfg.StoreBackend = "s3"
	assert.Error(t, cfg.Validate())
}

func TestValidateTransport(t *testing.T) {
	cfg := validLocalConfig(t)
	cfg.Transport = "grpc"
	assert.Error(t, cfg.Validate())

	cfg.Transport = "stdio"
	cfg.Port = 0 // irrelevant for stdio
	assert.NoError(t, cfg.Validate())
}

func TestValidateRanges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port too low", func(c *Config) { c.Port = 80 }},
		{"file size zero", func(c *Config) { c.MaxFileSizeMB = 0 }},
		{"file size huge", func(c *Config) { c.MaxFileSizeMB = 500 }},
		{"concurrency zero", func(c *Config) { c.MaxConcurrentFiles = 0 }},
		{"timeout too short", func(c *Config) { c.OperationTimeoutSec = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validLocalConfig(t)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateLLMModelRequired(t *testing.T) {
	cfg := validLocalConfig(t)
	cfg.LLMBaseURL = "https://api.deepseek.com"
	assert.Error(t, cfg.Validate())

	cfg.LLMModel = "deepseek-chat"
	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.ChatEnabled())
}

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("dir", t.TempDir())

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, BackendLocal, cfg.StoreBackend)
	assert.Equal(t, "http", cfg.Transport)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 10, cfg.MaxFileSizeMB)
	assert.Equal(t, "main", cfg.GitHubBranch)
	assert.False(t, cfg.ChatEnabled())
}

func TestLoadRejectsInvalid(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("dir", t.TempDir())
	v.Set("port", 99)

	_, err := Load(v)
	assert.Error(t, err)
}
