package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/giygas/medicine-recommender/catalog"
	"github.com/giygas/medicine-recommender/config"
	"github.com/giygas/medicine-recommender/data"
	"github.com/giygas/medicine-recommender/logging"
	"github.com/giygas/medicine-recommender/scheduler"
	"github.com/giygas/medicine-recommender/server"
	"github.com/giygas/medicine-recommender/validation"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine, the environment may already be set
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Failed to read .env file: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	logging.InitLoggerFromConfig(cfg)
	defer logging.Close()

	logging.Info("Configuration loaded",
		"env", cfg.Env.String(),
		"address", cfg.Address,
		"port", cfg.Port,
		"catalog", cfg.CatalogPath,
	)

	if unset := config.UnsetEnvVars(); len(unset) > 0 {
		logging.Debug("Using defaults for unset variables", "variables", unset)
	}

	if err := run(cfg); err != nil {
		logging.Error("Service stopped with an error", "error", err)
		logging.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	dataContainer := data.NewDataContainer()

	loader, err := catalog.NewFileLoader(cfg.CatalogPath)
	if err != nil {
		return err
	}

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 2*time.Minute)
	err = dataContainer.LoadFrom(loadCtx, loader, validation.NewDataValidator())
	cancelLoad()
	if err != nil {
		return fmt.Errorf("initial dataset load failed: %w", err)
	}

	srv := server.NewServer(cfg, dataContainer)

	sched := scheduler.NewScheduler(dataContainer, srv.RateLimiter())
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case sig := <-quit:
		logging.Info("Received shutdown signal", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return srv.Shutdown(ctx)
}
