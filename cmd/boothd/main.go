package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/snapbooth/boothd/internal/alert"
	"github.com/snapbooth/boothd/internal/api"
	"github.com/snapbooth/boothd/internal/api/handlers"
	"github.com/snapbooth/boothd/internal/archive"
	"github.com/snapbooth/boothd/internal/config"
	"github.com/snapbooth/boothd/internal/core"
	"github.com/snapbooth/boothd/internal/db"
	"github.com/snapbooth/boothd/internal/printer"
	"github.com/snapbooth/boothd/internal/share"
	"github.com/snapbooth/boothd/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	isDebug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// .env is for development; deployments set the environment via
	// systemd.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging, *isDebug)
	slog.SetDefault(logger)

	if err := run(cfg, logger, *isDebug); err != nil {
		logger.Error("boothd exited with error", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.LoggingConfig, debug bool) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case debug || cfg.Level == "debug":
		level = slog.LevelDebug
	case cfg.Level == "warn":
		level = slog.LevelWarn
	case cfg.Level == "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.RFC3339,
		})
	}
	return slog.New(handler)
}

func run(cfg *config.Config, logger *slog.Logger, debug bool) error {
	ctx := context.Background()

	if err := db.Init(db.Config{Path: cfg.Database.Path}); err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	store, err := storage.NewStore(cfg.Photos.Dir)
	if err != nil {
		return fmt.Errorf("failed to open photo store: %w", err)
	}

	mirror := db.NewMirror(logger)

	cups := printer.NewCUPS(cfg.Printer, db.NewSettingsReader(logger), logger)
	if err := cups.Reachable(ctx); err != nil {
		logger.Warn("CUPS server not reachable at startup", "error", err)
	}

	var notifier alert.Notifier
	if cfg.Alerts.Enabled && cfg.Alerts.GotifyURL != "" {
		notifier = alert.NewGotify(cfg.Alerts.GotifyURL, cfg.Alerts.GotifyToken, cfg.Alerts.SendTimeout)
	} else {
		notifier = &alert.NopNotifier{Log: logger}
	}
	alerts := alert.NewDispatcher(notifier, cfg.Alerts.Cooldown, logger)

	backends, err := buildBackends(cfg.Share)
	if err != nil {
		return err
	}

	gateway := share.NewSMSGate(cfg.Share.SMS)
	if cfg.Share.SMS.URL != "" {
		if err := gateway.Health(ctx); err != nil {
			logger.Warn("SMS gateway not reachable at startup", "error", err)
		}
	}

	dispatcher := share.NewDispatcher(share.Config{
		CountryPrefix:  cfg.Share.CountryPrefix,
		MinPhoneDigits: cfg.Share.MinPhoneDigits,
		Greeting:       cfg.Share.Greeting,
	}, store, backends, gateway, mirror, logger)

	queue := core.NewPrintQueue(core.QueueConfig{
		Capacity:     cfg.Queue.Capacity,
		WorkerCount:  cfg.Queue.WorkerCount,
		MaxAttempts:  cfg.Queue.MaxAttempts,
		PrintTimeout: cfg.Queue.PrintTimeout,
	}, store, cups, alerts, mirror, logger)
	queue.Start()

	archiver, err := archive.NewArchiver(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to init archiver: %w", err)
	}
	archiver.Start()

	settings := handlers.NewSettingsHandler(cfg, dispatcher, archiver)
	settings.ApplyStored(ctx)

	router := api.NewRouter(api.Deps{
		Queue:    queue,
		Share:    dispatcher,
		Alerts:   alerts,
		Printers: cups,
		Archiver: archiver,
		Settings: settings,
		Logger:   logger,
		Debug:    debug,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("boothd listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Stop taking requests, let the workers finish their current
	// prints, then the archiver, and close the database last.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	queue.Stop()
	archiver.Stop()

	logger.Info("boothd stopped")
	return nil
}

func buildBackends(cfg config.ShareConfig) ([]share.HostingBackend, error) {
	backends := make([]share.HostingBackend, 0, len(cfg.Hosts))
	for _, host := range cfg.Hosts {
		switch host {
		case "zeroxzero":
			backends = append(backends, share.NewZeroXZero(cfg.ZeroXZero))
		case "imgbb":
			backends = append(backends, share.NewImgBB(cfg.ImgBB))
		case "s3":
			backend, err := share.NewS3Backend(cfg.S3)
			if err != nil {
				return nil, fmt.Errorf("failed to build s3 backend: %w", err)
			}
			backends = append(backends, backend)
		default:
			return nil, fmt.Errorf("unknown hosting backend %q", host)
		}
	}
	return backends, nil
}
