// Package config holds the server configuration and its validation rules.
// Values come from flags and environment variables via viper; secrets
// (GITHUB_TOKEN, LLM_API_KEY) are only ever read from the environment.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Store backend names.
const (
	BackendLocal  = "local"
	BackendGitHub = "github"
)

// Config holds all configurable values for the server.
type Config struct {
	// StoreBackend selects where files live: "local" or "github".
	StoreBackend string

	// WorkingDirectory is the repository root for the local backend.
	WorkingDirectory string

	// GitHub backend coordinates.
	GitHubOwner  string
	GitHubRepo   string
	GitHubBranch string
	GitHubToken  string

	Transport           string
	Port                int
	MaxFileSizeMB       int
	MaxConcurrentFiles  int
	OperationTimeoutSec int

	// LLM provider settings; chat is disabled when LLMBaseURL is empty.
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string
	PromptPath string
}

// SetDefaults registers the default values on the given viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("store", BackendLocal)
	v.SetDefault("dir", "")
	v.SetDefault("github-owner", "")
	v.SetDefault("github-repo", "")
	v.SetDefault("github-branch", "main")
	v.SetDefault("transport", "http")
	v.SetDefault("port", 8080)
	v.SetDefault("max-file-size", 10)
	v.SetDefault("max-concurrent", 4)
	v.SetDefault("timeout", 120)
	v.SetDefault("llm-base-url", "")
	v.SetDefault("llm-model", "")
	v.SetDefault("prompt-path", "")
}

// Load builds a Config from the viper instance and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		StoreBackend:        v.GetString("store"),
		WorkingDirectory:    v.GetString("dir"),
		GitHubOwner:         v.GetString("github-owner"),
		GitHubRepo:          v.GetString("github-repo"),
		GitHubBranch:        v.GetString("github-branch"),
		GitHubToken:         v.GetString("github-token"),
		Transport:           v.GetString("transport"),
		Port:                v.GetInt("port"),
		MaxFileSizeMB:       v.GetInt("max-file-size"),
		MaxConcurrentFiles:  v.GetInt("max-concurrent"),
		OperationTimeoutSec: v.GetInt("timeout"),
		LLMBaseURL:          v.GetString("llm-base-url"),
		LLMAPIKey:           v.GetString("llm-api-key"),
		LLMModel:            v.GetString("llm-model"),
		PromptPath:          v.GetString("prompt-path"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendLocal:
		if c.WorkingDirectory == "" {
			return fmt.Errorf("working directory is required for the local backend")
		}
		info, err := os.Stat(c.WorkingDirectory)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("working directory does not exist: %s", c.WorkingDirectory)
			}
			return fmt.Errorf("error accessing working directory: %v", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("working directory is not a directory: %s", c.WorkingDirectory)
		}
	case BackendGitHub:
		if c.GitHubOwner == "" || c.GitHubRepo == "" {
			return fmt.Errorf("github owner and repo are required for the github backend")
		}
		if c.GitHubBranch == "" {
			return fmt.Errorf("github branch is required for the github backend")
		}
		if c.GitHubToken == "" {
			return fmt.Errorf("GITHUB_TOKEN is required for the github backend")
		}
	default:
		return fmt.Errorf("store backend must be '%s' or '%s'", BackendLocal, BackendGitHub)
	}

	if c.Transport != "http" && c.Transport != "stdio" {
		return fmt.Errorf("transport must be 'http' or 'stdio'")
	}

	if c.Transport == "http" && (c.Port < 1024 || c.Port > 65535) {
		return fmt.Errorf("port must be between 1024 and 65535")
	}

	if c.MaxFileSizeMB < 1 || c.MaxFileSizeMB > 100 {
		return fmt.Errorf("max file size must be between 1 and 100 MB")
	}

	if c.MaxConcurrentFiles < 1 || c.MaxConcurrentFiles > 100 {
		return fmt.Errorf("max concurrent files must be between 1 and 100")
	}

	if c.OperationTimeoutSec < 5 || c.OperationTimeoutSec > 600 {
		return fmt.Errorf("operation timeout must be between 5 and 600 seconds")
	}

	if c.LLMBaseURL != "" && c.LLMModel == "" {
		return fmt.Errorf("llm model is required when an llm base URL is set")
	}

	return nil
}

// ChatEnabled reports whether a model provider is configured.
func (c *Config) ChatEnabled() bool {
	return c.LLMBaseURL != ""
}
