package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mikey/phishgard/internal/adapters/api"
	"github.com/mikey/phishgard/internal/config"
	"github.com/mikey/phishgard/internal/core"
	"github.com/mikey/phishgard/internal/di"
	"github.com/mikey/phishgard/internal/ports"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	cfg *config.Config,
	logger *zap.Logger,
	emailFilter ports.EmailFilter,
	apiServer *api.Server,
	llmClient core.LLMClient,
	analysisCache core.AnalysisCache,
) error {
	defer logger.Sync()

	// Start the filter
	if err := emailFilter.Start(); err != nil {
		logger.Error("Failed to start filter", zap.Error(err))
		return err
	}

	apiEnabled := cfg.GetAPI().Enabled
	if apiEnabled {
		if err := apiServer.Start(); err != nil {
			logger.Error("Failed to start API server", zap.Error(err))
			_ = emailFilter.Stop()
			return err
		}
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	// Stop the filter
	if err := emailFilter.Stop(); err != nil {
		logger.Error("Failed to stop filter", zap.Error(err))
	}

	if apiEnabled {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := apiServer.Stop(ctx); err != nil {
			logger.Error("Failed to stop API server", zap.Error(err))
		}
		cancel()
	}

	// Close any resources that need closing
	if closer, ok := llmClient.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close LLM client", zap.Error(err))
		}
	}

	// Stop the cache if needed
	if stopper, ok := analysisCache.(interface{ Stop() }); ok {
		stopper.Stop()
	}

	logger.Info("Shutdown complete")
	return nil
}
