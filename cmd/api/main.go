package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	appconfig "github.com/wolfman30/quickie-platform/internal/config"
	"github.com/wolfman30/quickie-platform/pkg/logging"
)

func main() {
	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger.Info("starting quickie-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if err := ensureSessionSecret(cfg, logger); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.close()

	// Background loops stop with ctx.
	bgCtx, cancelBG := context.WithCancel(ctx)
	var wg sync.WaitGroup
	for _, t := range a.tasks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runTask(bgCtx, t, logger)
		}()
	}

	// Create HTTP server. WriteTimeout stays zero for the dashboard websocket.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		logger.Info("shutting down server...")
	case err := <-serverErr:
		if err != nil {
			logger.Error("server error", "error", err)
			exitCode = 1
		}
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		exitCode = 1
	}
	cancelBG()
	wg.Wait()

	logger.Info("server stopped")
	if exitCode != 0 {
		a.close()
		os.Exit(exitCode)
	}
}

// ensureSessionSecret requires SESSION_SECRET in production and generates an
// ephemeral one elsewhere.
func ensureSessionSecret(cfg *appconfig.Config, logger *logging.Logger) error {
	if cfg.SessionSecret != "" {
		return nil
	}
	if cfg.IsProduction() {
		return errors.New("SESSION_SECRET is required in production")
	}
	cfg.SessionSecret = uuid.NewString()
	logger.Warn("SESSION_SECRET not set; sessions will not survive a restart")
	return nil
}
