package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/avilaj/rassist/config"
	"github.com/avilaj/rassist/engine"
	"github.com/avilaj/rassist/history"
	"github.com/avilaj/rassist/logging"
	"github.com/avilaj/rassist/provider"
	antprovider "github.com/avilaj/rassist/provider/anthropic"
	oaiprovider "github.com/avilaj/rassist/provider/openai"
	"github.com/avilaj/rassist/server"
	"github.com/avilaj/rassist/stage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfgPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.New(logging.Config{Level: logLevel(cfg.Log.Level), Format: cfg.Log.Format})

	prov, err := buildProvider(cfg)
	if err != nil {
		return err
	}
	hist, err := buildHistory(ctx, cfg)
	if err != nil {
		return err
	}

	eng := engine.New(func(o *engine.Options) {
		o.Graphs = stage.Graphs(prov)
		o.History = hist
		o.Logger = logger
		o.Timeout = cfg.Timeout()
		o.EventBufferSize = cfg.Pipeline.EventBufferSize
		o.MaxCheckpointSessions = cfg.Pipeline.MaxCheckpointSessions
	})

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.New(eng, func(o *server.Options) { o.Logger = logger }),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("server listening", "addr", cfg.Listen, "provider", prov.Info().Vendor, "history", cfg.History.Backend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func buildProvider(cfg config.Config) (provider.Provider, error) {
	switch strings.ToLower(cfg.Provider.Vendor) {
	case "openai", "deepseek", "":
		return oaiprovider.New(func(o *oaiprovider.Options) {
			o.APIKey = cfg.Provider.APIKey
			o.BaseURL = cfg.Provider.BaseURL
			o.Model = cfg.Provider.Model
		}), nil
	case "anthropic":
		return antprovider.New(func(o *antprovider.Options) {
			o.APIKey = cfg.Provider.APIKey
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider vendor %q", cfg.Provider.Vendor)
	}
}

func buildHistory(ctx context.Context, cfg config.Config) (history.Store, error) {
	switch strings.ToLower(cfg.History.Backend) {
	case "memory", "":
		return history.NewInMemoryStore(), nil
	case "sqlite":
		return history.NewSQLiteStore(cfg.History.SQLitePath)
	case "redis":
		return history.NewRedisStore(ctx, cfg.History.RedisURL, cfg.HistoryTTL())
	default:
		return nil, fmt.Errorf("unknown history backend %q", cfg.History.Backend)
	}
}

func logLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
