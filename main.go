package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voxbridge/config"
	"voxbridge/metrics"
	"voxbridge/server"
	"voxbridge/session"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Device ID: %s", cfg.DeviceID)
	log.Printf("Client ID: %s", cfg.ClientID)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	// Create bridge manager
	bridgeManager, err := session.NewManager(cfg, m)
	if err != nil {
		log.Fatalf("Failed to create bridge manager: %v", err)
	}

	// Start cleanup routine
	ctx, cancel := context.WithCancel(context.Background())
	go bridgeManager.StartCleanupRoutine(ctx)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	srv := server.NewServerWebsocket(cfg, bridgeManager, registry)

	go func() {
		<-sigChan
		log.Println("\nReceived shutdown signal...")
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server stopped")
}
