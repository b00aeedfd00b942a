package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/singleflight"

	"github.com/pauljones0/shift-code-watcher/internal/processor"
)

const runTimeout = 4 * time.Minute

type Server struct {
	processor processor.Processor
	group     singleflight.Group
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run an HTTP server that checks the page on request or on a schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			slog.Info("Starting SHiFT code watcher server...")

			p, store, err := buildProcessor(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			srv := &Server{processor: p}

			if cfg.Schedule != "" {
				c := cron.New()
				if _, err := c.AddFunc(cfg.Schedule, func() { srv.runOnce("schedule") }); err != nil {
					return fmt.Errorf("invalid SCHEDULE %q: %w", cfg.Schedule, err)
				}
				c.Start()
				defer c.Stop()
				slog.Info("Scheduled runs enabled", "schedule", cfg.Schedule)
			}

			httpServer := &http.Server{
				Addr:         ":" + cfg.Port,
				Handler:      srv.routes(),
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 30 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			// Graceful shutdown on SIGTERM/SIGINT
			go func() {
				sigCh := make(chan os.Signal, 1)
				signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
				sig := <-sigCh
				slog.Info("Received signal, shutting down gracefully...", "signal", sig)

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				if err := httpServer.Shutdown(shutdownCtx); err != nil {
					slog.Error("HTTP server shutdown error", "error", err)
				}
			}()

			slog.Info("Listening on port", "port", cfg.Port)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("failed to listen and serve: %w", err)
			}
			slog.Info("Server stopped.")
			return nil
		},
	}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/{$}", s.RunHandler)
	mux.HandleFunc("POST /run", s.RunHandler)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, `{"status":"ok"}`)
	})
	return mux
}

// RunHandler starts a run in the background and returns immediately so the
// caller is not held for the length of a page fetch and notification.
func (s *Server) RunHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	go s.runOnce("http")

	w.WriteHeader(http.StatusAccepted)
	fmt.Fprintln(w, "Code check started.")
}

// runOnce runs the processor. Triggers that arrive while a run is in flight
// join that run instead of starting another.
func (s *Server) runOnce(trigger string) {
	_, err, shared := s.group.Do("run", func() (any, error) {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Panic in Run", "panic", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		runID := uuid.NewString()
		slog.Info("Run started", "run_id", runID, "trigger", trigger)
		result, err := s.processor.Run(ctx)
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", runID, err)
		}
		slog.Info("Run complete", "run_id", runID, "new", result.NewCount, "notified", result.Notified)
		return result, nil
	})
	if shared {
		slog.Debug("Trigger joined an in-flight run", "trigger", trigger)
	}
	if err != nil {
		slog.Error("Error checking codes", "trigger", trigger, "error", err)
	}
}
