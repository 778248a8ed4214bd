package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/takak2166/onenote2markdown/internal/auth"
	"github.com/takak2166/onenote2markdown/internal/config"
	"github.com/takak2166/onenote2markdown/internal/export"
	"github.com/takak2166/onenote2markdown/internal/graph"
	"github.com/takak2166/onenote2markdown/internal/logger"
)

func main() {
	var (
		output     string
		maxRetries int
		retryWait  time.Duration
	)

	rootCmd := &cobra.Command{
		Use:           "onenote2markdown",
		Short:         "Export OneNote notebooks to local Markdown files",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("output") {
				cfg.ExportDir = output
			}
			if cmd.Flags().Changed("max-retries") {
				cfg.MaxRetries = maxRetries
			}
			if cmd.Flags().Changed("retry-wait") {
				cfg.RetryWait = retryWait
			}

			if err := logger.Init(cfg.LogLevel); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return run(cmd.Context(), cfg)
		},
	}

	rootCmd.Flags().StringVarP(&output, "output", "o", config.DefaultExportDir, "export root directory")
	rootCmd.Flags().IntVar(&maxRetries, "max-retries", 5, "max attempts per request on server or network errors")
	rootCmd.Flags().DurationVar(&retryWait, "retry-wait", 10*time.Second, "fallback wait when rate limited without a hint")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	tokens, err := auth.New(cfg.ClientID, cfg.Tenant)
	if err != nil {
		return fmt.Errorf("failed to initialize authentication: %w", err)
	}

	logger.Info("Acquiring access token")
	if _, err := tokens.AccessToken(ctx); err != nil {
		return fmt.Errorf("failed to sign in: %w", err)
	}

	client := graph.NewClient(tokens, graph.Config{
		MaxRetries: cfg.MaxRetries,
		RetryWait:  cfg.RetryWait,
	})

	exporter := export.New(client, cfg.ExportDir)
	summary, err := exporter.Run(ctx)

	// Log whatever finished before reporting a fatal error, so an
	// interrupted run still tells the user where it stopped.
	fields := map[string]interface{}{
		"exported": summary.Exported,
		"skipped":  summary.Skipped,
		"failed":   summary.Failed,
	}
	if len(summary.FailedPages) > 0 {
		fields["failed_pages"] = summary.FailedPages
	}
	if err != nil {
		logger.Error("Export aborted", err, fields)
		return err
	}

	logger.Info("Export completed", fields)
	if abs, absErr := filepath.Abs(cfg.ExportDir); absErr == nil {
		logger.Info("Notes saved", map[string]interface{}{
			"path": abs,
		})
	}
	return nil
}
