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

	"github.com/spf13/cobra"

	"github.com/leca/photex/internal/catalog"
	"github.com/leca/photex/internal/config"
	"github.com/leca/photex/internal/database"
	"github.com/leca/photex/internal/logging"
	"github.com/leca/photex/internal/router"
	"github.com/leca/photex/internal/storage"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, err := cmd.Flags().GetString("config")
		if err != nil {
			return fmt.Errorf("failed to get config: %w", err)
		}
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("config", "c", "", "Path to a YAML config file")
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := logging.New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open object store: %w", err)
	}
	defer store.Close()

	svc := catalog.New(db, store, catalog.Options{
		BaseURL:      cfg.ObjectBaseURL,
		Logger:       logger,
		PurgeObjects: cfg.PurgeObjects,
	})
	srv := router.New(svc, cfg)

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.ListenAddr, "storage", cfg.StorageBackend)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config) (storage.ObjectStore, error) {
	switch cfg.StorageBackend {
	case config.BackendBadger:
		return storage.NewBadger(cfg.StoragePath)
	case config.BackendS3:
		return storage.NewS3(ctx, cfg.S3)
	default:
		return storage.NewFileSystem(cfg.StoragePath), nil
	}
}
