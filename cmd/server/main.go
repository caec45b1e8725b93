// Package main provides the ME-Dictionary API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof" // #nosec G108 - pprof is served on its own port, only when PPROF_PORT is set
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shaitools891-svg/ME-Dictionary/internal/api"
	"github.com/shaitools891-svg/ME-Dictionary/internal/config"
	"github.com/shaitools891-svg/ME-Dictionary/internal/dictionary"
	"github.com/shaitools891-svg/ME-Dictionary/internal/logger"
	"github.com/shaitools891-svg/ME-Dictionary/internal/metrics"
	"github.com/shaitools891-svg/ME-Dictionary/internal/quiet"
	"github.com/shaitools891-svg/ME-Dictionary/internal/scheduler"
	"github.com/shaitools891-svg/ME-Dictionary/internal/settings"
)

// connectWithRetry opens a Redis client and pings it with exponential backoff
func connectWithRetry(redisURL string, maxRetries int, log logger.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	for attempt := 0; attempt < maxRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = client.Ping(ctx).Err()
		cancel()
		if err == nil {
			return client, nil
		}

		// 2^attempt seconds, capped at 30
		delay := time.Duration(1<<uint(attempt)) * time.Second
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}

		log.Warn("Failed to connect to Redis, retrying",
			"attempt", attempt+1,
			"max_attempts", maxRetries,
			"error", err,
			"retry_in", delay)

		time.Sleep(delay)
	}

	_ = client.Close()
	return nil, fmt.Errorf("failed to connect to Redis after %d attempts: %w", maxRetries, err)
}

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("Server failed", "error", err)
		_ = log.Close()
		os.Exit(1)
	}
	if err := log.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close logger: %v\n", err)
	}
}

func run(cfg *config.Config, log *logger.MultiLogger) error {
	serverLog := log.WithComponent(logger.ComponentAPI).WithSource(logger.LogSourceInternal)

	serverLog.Info("ME-Dictionary server starting",
		"http_port", cfg.HTTPPort,
		"redis_enabled", cfg.RedisEnabled,
		"settings_backend", cfg.SettingsBackend,
		"quiet_cadence", cfg.Quiet.Cadence,
		"quiet_timezone", cfg.Quiet.Timezone)

	if cfg.PprofPort != "" {
		go func() {
			serverLog.Info("Starting pprof server", "port", cfg.PprofPort, "url", fmt.Sprintf("http://localhost:%s/debug/pprof/", cfg.PprofPort))
			pprofServer := &http.Server{
				Addr:              ":" + cfg.PprofPort,
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			if err := pprofServer.ListenAndServe(); err != nil {
				serverLog.Error("pprof server failed", "error", err)
			}
		}()
	}

	cadence, err := scheduler.ParseCadence(cfg.Quiet.Cadence)
	if err != nil {
		return err
	}
	loc, err := cfg.Quiet.Location()
	if err != nil {
		return err
	}

	collector := metrics.Default()

	var (
		client    *redis.Client
		publisher *quiet.Publisher
		health    func(ctx context.Context) error
		repo      settings.Repo = settings.NewMemoryRepo()
	)
	if cfg.RedisEnabled {
		redisLog := log.WithComponent(logger.ComponentRedis)
		client, err = connectWithRetry(cfg.RedisURL, 5, redisLog)
		if err != nil {
			return err
		}
		defer client.Close()
		redisLog.Info("Successfully connected to Redis")

		source, _ := os.Hostname()
		publisher = quiet.NewPublisher(client, quiet.PublisherConfig{
			Source:  source,
			LockTTL: cfg.Quiet.LockTTL,
		}, log, collector)
		defer publisher.Close()
		health = func(ctx context.Context) error { return client.Ping(ctx).Err() }

		if cfg.SettingsBackend == config.BackendRedis {
			repo = settings.NewRedisRepo(client, log)
		}
	}

	svc := quiet.NewService(quiet.ServiceConfig{
		Repo:      repo,
		Publisher: publisher,
		WatcherOptions: []scheduler.Option{
			scheduler.WithCadence(cadence),
			scheduler.WithLocation(loc),
		},
		Logger:  log,
		Metrics: collector,
	})
	defer svc.Close()

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 10*time.Second)
	for _, userID := range cfg.Quiet.DefaultUsers {
		status, err := svc.Ensure(bootCtx, userID)
		if err != nil {
			serverLog.Error("Failed to start quiet watcher", "user_id", userID, "error", err)
			continue
		}
		serverLog.Info("Quiet watcher ready", "user_id", userID, "status", status.String())
	}
	cancelBoot()

	apiServer := api.NewServer(api.Config{
		Store:     dictionary.NewMemoryStore(),
		Settings:  repo,
		Quiet:     svc,
		Publisher: publisher,
		Health:    health,
		Logger:    log,
		Metrics:   collector,
	})

	addr := ":" + cfg.HTTPPort
	server := &http.Server{
		Addr:              addr,
		Handler:           apiServer.Handler(),
		ErrorLog:          newStdLogger(serverLog),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		serverLog.Info("API server listening", "address", addr, "routes", len(apiServer.Routes()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

wait:
	for {
		select {
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				// logrotate-style reopen
				if err := log.Rotate(); err != nil {
					serverLog.Error("Log rotation failed", "error", err)
				}
				continue
			}
			serverLog.Info("Received shutdown signal, initiating graceful shutdown", "signal", sig)
			break wait
		case err, ok := <-errCh:
			if ok {
				return fmt.Errorf("API server failed: %w", err)
			}
			break wait
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		serverLog.Error("Graceful shutdown failed", "error", err)
	}

	serverLog.Info("Server stopped", "quiet_watchers", len(svc.Users()))
	return nil
}
