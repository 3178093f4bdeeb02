package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"routing_gateway/internal/config"
	"routing_gateway/internal/httpapi"
	"routing_gateway/internal/logging"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.LogLevel != "" {
		logging.SetDefaultLevel(logging.ParseLevel(cfg.LogLevel))
	}
	logger := logging.NewLogger("gateway")

	// Create router with all dependencies
	handler, deps, err := httpapi.NewRouter(cfg)
	if err != nil {
		log.Fatalf("Failed to build router: %v", err)
	}

	addr := ":" + cfg.HTTPPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Dispatch.Timeout*2 + 10*time.Second, // text and file legs run back to back
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("Routing gateway listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Flush audit records and close stores
	if err := deps.Shutdown(ctx); err != nil {
		logger.Error("Shutdown incomplete", "error", err)
	}

	logger.Info("Server exited")
}
