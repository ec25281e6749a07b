package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sbhjt-gr/inferra-sub000/api"
	"github.com/sbhjt-gr/inferra-sub000/internal/app"
	"github.com/sbhjt-gr/inferra-sub000/internal/domain"
	"github.com/sbhjt-gr/inferra-sub000/internal/infrastructure"
	"github.com/sbhjt-gr/inferra-sub000/pkg/logger"
)

var configPath = flag.String("config", "", "Path to config file")

func main() {
	flag.Parse()

	// Load configuration
	config, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting Inferra download service",
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.Duration("poll_interval", config.Poller.Interval),
		zap.String("aria2_rpc", config.Aria2.RPCUrl))

	// Create data directories
	if err := createDirectories(config); err != nil {
		log.Fatal("Failed to create directories", zap.Error(err))
	}

	// Initialize history repository
	history, err := infrastructure.NewSQLiteHistoryRepository(config.History.DatabasePath)
	if err != nil {
		log.Fatal("Failed to initialize history repository", zap.Error(err))
	}
	defer history.Close()

	// Initialize aria2 client and registry
	aria2 := infrastructure.NewAria2Client(&config.Aria2, log)
	registry := app.NewRegistry(aria2, &config.Poller, log)
	defer registry.Close()

	// Initialize notification service
	notifier := infrastructure.NewNotificationService(&config.Notification, log)

	// Persist and announce every retirement
	registry.OnRetired(func(ret domain.Retirement) {
		if err := history.Create(domain.NewDownloadRecord(ret)); err != nil {
			log.Error("Failed to persist download record",
				zap.Int64("id", ret.Info.ID),
				zap.Error(err))
		}
		notifier.NotifyRetirement(ret)
	})

	// Setup HTTP router
	router := api.SetupRouter(registry, aria2, history, config.History.ListLimit, log)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the reconciliation loop before closing the server
	registry.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

func createDirectories(config *domain.Config) error {
	dirs := []string{
		config.Aria2.DownloadDir,
		filepath.Dir(config.History.DatabasePath),
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
