package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/bkyoung/diffcritic/internal/app"
	"github.com/bkyoung/diffcritic/internal/cli"
	"github.com/bkyoung/diffcritic/internal/config"
	"github.com/bkyoung/diffcritic/internal/llm/llmhttp"
	"github.com/bkyoung/diffcritic/internal/quota"
	"github.com/bkyoung/diffcritic/internal/version"
)

func main() {
	if err := run(); err != nil {
		log.Println(llmhttp.RedactURLSecrets(err.Error()))
		if errors.Is(err, quota.ErrExhausted) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: defaultConfigPaths(),
		FileName:    "dc",
		EnvPrefix:   "DC",
	})
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := buildLogger(cfg.Logging)

	application := app.New(cfg, logger, os.Stdout, os.Stdin)

	root := cli.NewRootCommand(cli.Dependencies{
		Runner: application,
		Defaults: cli.Defaults{
			BaseRef:      cfg.Git.BaseRef,
			TargetRef:    cfg.Git.TargetRef,
			Threshold:    cfg.Review.Threshold,
			Instructions: cfg.Review.Instructions,
		},
		Version: version.Value(),
	})

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, cli.ErrVersionRequested) {
			return nil
		}
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}

func buildLogger(cfg config.LoggingConfig) llmhttp.Logger {
	level := llmhttp.ParseLogLevel(cfg.Level)
	format := llmhttp.ParseLogFormat(cfg.Format)
	return llmhttp.NewDefaultLogger(level, format, cfg.RedactAPIKeys)
}

func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "dc"))
	}
	return paths
}
