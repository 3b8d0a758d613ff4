package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DukesR8/Camera-Database/internal/api/rest"
	"github.com/DukesR8/Camera-Database/internal/cache"
	"github.com/DukesR8/Camera-Database/internal/config"
	"github.com/DukesR8/Camera-Database/internal/fetch"
	"github.com/DukesR8/Camera-Database/internal/model"
	"github.com/DukesR8/Camera-Database/internal/storage/kv"
	"github.com/DukesR8/Camera-Database/internal/store"
)

var (
	cfgFile  string
	startLat float64
	startLon float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "camdb",
		Short: "Camera Database — local mirror and query API for enforcement camera locations",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the camera dataset and serve the query API",
		RunE:  runServe,
	}

	serveCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "Path to config file (default: configs/config.yaml)")
	serveCmd.Flags().Float64Var(&startLat, "lat", 0, "Initial device latitude")
	serveCmd.Flags().Float64Var(&startLon, "lon", 0, "Initial device longitude")
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer logger.Sync()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}

	kvStore := kv.NewPebbleStore(cfg.Cache.Dir, logger)
	if err := kvStore.Open(); err != nil {
		return fmt.Errorf("cache store open: %w", err)
	}
	defer kvStore.Close()

	camCache := cache.New(kvStore, cfg.Cache, logger)
	fetcher := fetch.New(&http.Client{Timeout: cfg.HTTP.Timeout}, cfg.BaseURL, camCache, logger)
	camStore := store.New(camCache, fetcher, logger)

	// Initial load; failures land in the session state, not the exit code.
	var loc *model.Coordinate
	if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lon") {
		loc = &model.Coordinate{Latitude: startLat, Longitude: startLon}
	}
	camStore.Load(cmd.Context(), loc)
	if snap := camStore.Snapshot(); snap.ErrorMessage != "" {
		logger.Warn("Initial camera load failed", zap.String("error", snap.ErrorMessage))
	} else {
		logger.Info("Initial camera load complete",
			zap.String("region", string(camStore.Snapshot().Region)),
			zap.Int("cameras", len(camStore.Snapshot().Entries)))
	}

	api := rest.New(camStore, cfg, logger)
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: api.Handler()}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("REST API listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
