package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"OptimaChat/internal/bus"
	"OptimaChat/internal/cache"
	"OptimaChat/internal/chat"
	"OptimaChat/internal/config"
	"OptimaChat/internal/conversation"
	"OptimaChat/internal/notify"
	"OptimaChat/internal/server"
	"OptimaChat/internal/telemetry"
	"OptimaChat/internal/transport"
)

func main() {
	var configPath string
	var addr string
	var debug bool

	flag.StringVar(&configPath, "config", "", "Path to TOML config file")
	flag.StringVar(&addr, "addr", "", "HTTP listen address (overrides config)")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if addr != "" {
		cfg.ListenAddr = addr
	}
	if debug {
		cfg.Debug = true
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	logger, err := telemetry.InitLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx := context.Background()
	tracer, meter, cleanup, err := telemetry.InitTelemetry(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer cleanup()

	db, err := telemetry.InitDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	typeSpeed := time.Duration(cfg.TypeSpeedMs) * time.Millisecond

	commandBus := bus.New()
	remote := transport.NewClient(cfg.APIURL, logger, tracer, meter)
	surface := chat.New(chat.Options{
		Remote:    remote,
		Offline:   transport.NewOffline(),
		Cache:     cache.New(10 * time.Minute),
		UseCache:  true,
		Store:     conversation.NewStore(db, logger),
		Bus:       commandBus,
		Logger:    logger,
		Tracer:    tracer,
		Meter:     meter,
		TypeSpeed: typeSpeed,
	})
	defer surface.Shutdown()

	notifier := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID, cfg.SiteURL, logger)
	srv := server.New(surface, remote, notifier, logger, typeSpeed)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.ListenAddr, "backend", cfg.APIURL)
		if err := srv.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-sigCtx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	return nil
}
