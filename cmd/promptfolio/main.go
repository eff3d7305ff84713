package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/promptfolio/api/internal/app"
	"github.com/promptfolio/api/internal/config"
	"github.com/promptfolio/api/internal/database"
	"github.com/promptfolio/api/internal/logging"
	"github.com/promptfolio/api/internal/seed"
	"github.com/promptfolio/api/internal/shareid"
	"github.com/promptfolio/api/internal/telemetry"
)

func main() {
	// Check for subcommands before flag parsing
	if len(os.Args) > 1 && os.Args[1] == "seed" {
		runSeed(os.Args[2:])
		return
	}

	cfg := loadConfig(os.Args[1:])

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, cfg)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// run serves until ctx is cancelled. Deferred cleanup, including the
// telemetry flush, has finished by the time it returns.
func run(ctx context.Context, cfg *config.Config) error {
	// Telemetry first so the log bridge can be fanned into the default logger.
	providers, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		logging.Setup(cfg.Log)
		slog.Error("error setting up telemetry", "error", err)
		return err
	}
	if providers.LogHandler != nil {
		logging.Setup(cfg.Log, providers.LogHandler)
	} else {
		logging.Setup(cfg.Log)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			slog.Error("error shutting down telemetry", "error", err)
		}
	}()

	application, err := app.New(cfg)
	if err != nil {
		slog.Error("error creating application", "error", err)
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			slog.Error("error closing application", "error", err)
		}
	}()

	if err := application.Start(ctx); err != nil {
		slog.Error("server error", "error", err)
		return err
	}

	slog.Info("server stopped")
	return nil
}

func loadConfig(args []string) *config.Config {
	flags := config.SetupFlags()
	if err := flags.Parse(args); err != nil {
		slog.Error("error parsing flags", "error", err)
		os.Exit(1)
	}

	configPath, _ := flags.GetString("config")

	cfg, err := config.Load(configPath, flags)
	if err != nil {
		slog.Error("error loading config", "error", err)
		os.Exit(1)
	}
	return cfg
}

func runSeed(args []string) {
	// Parse flags (supports --config, --database.path, etc.)
	cfg := loadConfig(args)
	logging.Setup(cfg.Log)

	codec, err := shareid.New(cfg.Share.Secret)
	if err != nil {
		slog.Error("error creating share id codec", "error", err)
		os.Exit(1)
	}

	// Open database and run migrations (no full app startup)
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		slog.Error("error opening database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		slog.Error("error running migrations", "error", err)
		os.Exit(1)
	}

	if err := seed.Run(context.Background(), db.DB, codec, cfg.Server.PublicURL); err != nil {
		slog.Error("error seeding database", "error", err)
		os.Exit(1)
	}
}
