// Package main implements a mock LLM server for end-to-end testing of
// execoach. It serves OpenAI-compatible /v1/chat/completions responses from
// fixture files, routing by the "model" field in the request, so the coach
// can run against a deterministic, offline model.
//
// Usage:
//
//	mock-llm --fixtures /path/to/fixtures --port 11434
//
// Point execoach at it with provider "openai" or "ollama", endpoint
// http://localhost:11434/v1 and model mock-planner. Route deviation analysis
// to mock-reviewer with the model.analysis override.
//
// Fixture files are named by model: "mock-planner.json" answers model
// "mock-planner". A .txt fixture is returned verbatim, so it may wrap JSON in
// prose or a code fence. Numbered files ("mock-adjuster.1.txt",
// "mock-adjuster.2.json") are served in order before the base file, which
// then repeats. Without --fixtures the built-in set is used.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		fixtureDir string
		port       int
	)

	cmd := &cobra.Command{
		Use:          "mock-llm",
		Short:        "OpenAI-compatible mock model server backed by fixture files",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

			// Allow env var override
			if envDir := os.Getenv("MOCK_LLM_FIXTURES"); envDir != "" && fixtureDir == "" {
				fixtureDir = envDir
			}

			var (
				fixtures map[string][]string
				err      error
			)
			if fixtureDir != "" {
				fixtures, err = loadFixtures(os.DirFS(fixtureDir))
			} else {
				fixtureDir = "(embedded)"
				fixtures, err = embeddedFixtures()
			}
			if err != nil {
				return fmt.Errorf("load fixtures from %s: %w", fixtureDir, err)
			}

			models := make([]string, 0, len(fixtures))
			for model, seq := range fixtures {
				models = append(models, fmt.Sprintf("%s(%d)", model, len(seq)))
			}
			slices.Sort(models)
			logger.Info("Loaded fixtures", "dir", fixtureDir, "models", models)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", port),
				Handler:           newServer(fixtures, logger).routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			logger.Info("Mock LLM server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&fixtureDir, "fixtures", "", "Directory containing fixture files (default: built-in set)")
	cmd.Flags().IntVar(&port, "port", 11434, "Port to listen on")
	return cmd
}
