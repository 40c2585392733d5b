package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"repo-patch-server/internal/config"
	"repo-patch-server/internal/filesystem"
	"repo-patch-server/internal/llm"
	"repo-patch-server/internal/lock"
	"repo-patch-server/internal/service"
	"repo-patch-server/internal/store"
	"repo-patch-server/internal/transport"
)

const shutdownGrace = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	config.SetDefaults(v)

	cmd := &cobra.Command{
		Use:   "repo-patch",
		Short: "Applies model-proposed edit operations to repository files",
		Long: "repo-patch serves a patch pipeline over HTTP or stdio JSON-RPC: it takes\n" +
			"symbolic edit operations (or asks a language model to propose them) and\n" +
			"applies them to files in a local directory or a GitHub repository.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(v)
		},
	}

	flags := cmd.Flags()
	flags.String("store", config.BackendLocal, "content store backend (local or github)")
	flags.String("dir", "", "working directory for the local backend")
	flags.String("github-owner", "", "repository owner for the github backend")
	flags.String("github-repo", "", "repository name for the github backend")
	flags.String("github-branch", "main", "branch for the github backend")
	flags.String("transport", "http", "transport protocol (http or stdio)")
	flags.Int("port", 8080, "port for the HTTP transport")
	flags.Int("max-file-size", 10, "maximum file size in MB")
	flags.Int("max-concurrent", 4, "maximum files patched in parallel")
	flags.Int("timeout", 120, "operation timeout in seconds")
	flags.String("llm-base-url", "", "OpenAI-compatible API base URL (enables /chat)")
	flags.String("llm-model", "", "model name for the chat pipeline")
	flags.String("prompt-path", "", "file overriding the built-in system prompt")
	_ = v.BindPFlags(flags)

	// Secrets come from the environment only: GITHUB_TOKEN, LLM_API_KEY.
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetEnvPrefix("")
	_ = v.BindEnv("github-token", "GITHUB_TOKEN")
	_ = v.BindEnv("llm-api-key", "LLM_API_KEY")

	return cmd
}

func run(v *viper.Viper) error {
	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting repo-patch",
		zap.String("store", cfg.StoreBackend),
		zap.String("transport", cfg.Transport),
		zap.Bool("chat_enabled", cfg.ChatEnabled()))

	contentStore, err := buildStore(cfg, logger)
	if err != nil {
		return err
	}

	var provider llm.Provider
	if cfg.ChatEnabled() {
		client, err := llm.NewOpenAIClient(llm.OpenAIOptions{
			BaseURL: cfg.LLMBaseURL,
			APIKey:  cfg.LLMAPIKey,
			Model:   cfg.LLMModel,
		}, &http.Client{Timeout: time.Duration(cfg.OperationTimeoutSec) * time.Second}, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize llm client: %w", err)
		}
		provider = client
	}

	prompt, err := llm.SystemPrompt(cfg.PromptPath)
	if err != nil {
		return err
	}

	svc, err := service.NewDefaultPatchService(contentStore, provider, service.Options{
		Prompt:             prompt,
		MaxConcurrentFiles: cfg.MaxConcurrentFiles,
		OperationTimeout:   time.Duration(cfg.OperationTimeoutSec) * time.Second,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize patch service: %w", err)
	}

	switch cfg.Transport {
	case "stdio":
		return runStdio(svc, logger)
	default:
		return runHTTP(cfg, svc, logger)
	}
}

func buildStore(cfg *config.Config, logger *zap.Logger) (store.ContentStore, error) {
	switch cfg.StoreBackend {
	case config.BackendGitHub:
		return store.NewGitHubStore(store.GitHubOptions{
			Owner:  cfg.GitHubOwner,
			Repo:   cfg.GitHubRepo,
			Branch: cfg.GitHubBranch,
			Token:  cfg.GitHubToken,
		}, &http.Client{Timeout: 30 * time.Second}, logger)
	default:
		return store.NewLocalStore(store.LocalOptions{
			Root:        cfg.WorkingDirectory,
			MaxFileSize: int64(cfg.MaxFileSizeMB) * 1024 * 1024,
			LockTimeout: time.Duration(cfg.OperationTimeoutSec) * time.Second,
		}, filesystem.NewOSAdapter(), lock.NewFlockManager(), logger)
	}
}

func runStdio(svc service.PatchService, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler := transport.NewStdioHandler(svc, logger)
	return handler.Start(ctx, os.Stdin, os.Stdout)
}

func runHTTP(cfg *config.Config, svc service.PatchService, logger *zap.Logger) error {
	handler := transport.NewHTTPHandler(svc, logger)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- handler.StartServer(cfg.Port, cfg.OperationTimeoutSec, cfg.OperationTimeoutSec)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverDone:
		return err
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := handler.Server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	<-serverDone
	logger.Info("server stopped")
	return nil
}
