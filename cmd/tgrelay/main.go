package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tgrelay/internal/config"
	"tgrelay/internal/constants"
	"tgrelay/internal/database"
	"tgrelay/internal/models"
	"tgrelay/internal/retry"
	"tgrelay/internal/service"
	"tgrelay/internal/tracing"
	"tgrelay/pkg/telegram"
	tgtypes "tgrelay/pkg/telegram/types"

	"github.com/sirupsen/logrus"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging (includes chat identifiers)")
	configPath = flag.String("config", "config.json", "Path to configuration file")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("tgrelay %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting tgrelay")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
		logger.Info("Verbose logging enabled - chat identifiers will be logged")
	} else if cfg.LogLevel != "" {
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			logger.Warnf("Invalid log level %q, defaulting to info", cfg.LogLevel)
			logger.SetLevel(logrus.InfoLevel)
		} else {
			logger.SetLevel(level)
		}
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	token := os.Getenv("TGRELAY_BOT_TOKEN")
	if token == "" {
		return fmt.Errorf("TGRELAY_BOT_TOKEN environment variable is required")
	}

	// Initialize OpenTelemetry tracing
	tracingManager := tracing.NewTracingManager(tracing.TracingConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: Version,
		Environment:    cfg.Tracing.Environment,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
		Enabled:        cfg.Tracing.Enabled,
		UseStdout:      cfg.Tracing.UseStdout,
	}, logger)

	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	// Initialize database with exponential backoff retry
	var db *database.Database
	backoff := retry.NewBackoff(retry.BackoffConfig{
		InitialDelay: time.Duration(cfg.Retry.InitialBackoffMs) * time.Millisecond,
		MaxDelay:     time.Duration(cfg.Retry.MaxBackoffMs) * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  constants.DefaultDatabaseRetryAttempts,
		Jitter:       true,
	})

	err = backoff.Retry(ctx, func() error {
		var initErr error
		db, initErr = database.New(cfg.Database.Path)
		if initErr != nil {
			logger.Warnf("Failed to initialize database: %v", initErr)
		}
		return initErr
	})
	if err != nil {
		return fmt.Errorf("failed to initialize database after retries: %w", err)
	}
	defer db.Close()

	routeStore, err := service.NewRouteStore(cfg.Routes.Path, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize route store: %w", err)
	}

	tgClient := telegram.NewClient(tgtypes.ClientConfig{
		BaseURL:        cfg.Telegram.APIBaseURL,
		Token:          token,
		Timeout:        time.Duration(cfg.Telegram.HTTPTimeoutSec) * time.Second,
		PollTimeoutSec: cfg.Telegram.PollTimeoutSec,
		UpdatesLimit:   cfg.Telegram.UpdatesLimit,
	})

	forwarder := service.NewForwarder(tgClient, routeStore, db, models.RetryConfig{
		InitialBackoffMs: cfg.Retry.InitialBackoffMs,
		MaxBackoffMs:     cfg.Retry.MaxBackoffMs,
		MaxAttempts:      cfg.Retry.MaxAttempts,
	}, logger)

	commands := service.NewCommandHandler(tgClient, routeStore, cfg.Telegram.OwnerID, logger)

	ctxWithVerbose := context.WithValue(ctx, service.VerboseContextKey, *verbose)

	// The buffer flushes through the dispatcher so completed groups share
	// the same failure handling as direct forwards
	var dispatcher *service.Dispatcher
	buffer := service.NewGroupBuffer(
		ctxWithVerbose,
		time.Duration(cfg.MediaGroupTimeoutSec)*time.Second,
		constants.MaxMediaGroupSize,
		func(flushCtx context.Context, messages []*models.IncomingMessage) {
			dispatcher.ForwardCompletedGroup(flushCtx, messages)
		},
		logger,
	)
	dispatcher = service.NewDispatcher(buffer, forwarder, routeStore, commands, logger)
	defer buffer.Drain()

	scheduler := service.NewScheduler(db, cfg.RetentionDays, cfg.Server.CleanupIntervalHours, logger)
	go scheduler.Start(ctx)

	poller := service.NewUpdatePoller(tgClient, dispatcher, models.RetryConfig{
		InitialBackoffMs: cfg.Retry.InitialBackoffMs,
		MaxBackoffMs:     cfg.Retry.MaxBackoffMs,
		MaxAttempts:      constants.DefaultPollRetryAttempts,
	}, logger)

	if err := poller.Start(ctxWithVerbose); err != nil {
		return fmt.Errorf("failed to start update poller: %w", err)
	}
	defer poller.Stop()

	server := NewServer(cfg, db, logger)
	serverErrCh := make(chan error, constants.ServerErrorChannelSize)
	go func() {
		if err := server.Start(); err != nil {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErrCh:
		logger.Error(err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(constants.DefaultGracefulShutdownSec)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}

	logger.Info("Server shutdown completed")
	return nil
}
