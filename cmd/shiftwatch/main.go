package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pauljones0/shift-code-watcher/internal/config"
	"github.com/pauljones0/shift-code-watcher/internal/notifier"
	"github.com/pauljones0/shift-code-watcher/internal/processor"
	"github.com/pauljones0/shift-code-watcher/internal/scraper"
	"github.com/pauljones0/shift-code-watcher/internal/storage"
)

// Process exit statuses.
const (
	exitOK       = 0
	exitFailure  = 1
	exitNewCodes = 3
)

// exitStatus is set by commands that report more than success or failure.
var exitStatus = exitOK

var rootCmd = &cobra.Command{
	Use:           "shiftwatch",
	Short:         "Watch a Borderlands 4 SHiFT code page and report new codes",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(runCommand(), serveCommand(), previewCommand())
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(exitFailure)
	}
	os.Exit(exitStatus)
}

// loadConfig loads the configuration and installs the logger it describes.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	slog.SetDefault(newLogger(cfg.LogLevel, cfg.LogFormat))
	return cfg, nil
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// buildProcessor wires the store, notifier and scraper selected by cfg.
// The returned store must be closed by the caller.
func buildProcessor(ctx context.Context, cfg *config.Config) (*processor.CodeProcessor, storage.Store, error) {
	store, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open known-code store: %w", err)
	}

	n, err := notifier.New(ctx, cfg)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to create notifier: %w", err)
	}

	s, err := scraper.New(cfg.CodesURL, scraper.NewFetcher(cfg), scraper.LoadConfig(cfg.SelectorsPath))
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to create scraper: %w", err)
	}

	return processor.New(store, n, s, cfg), store, nil
}
