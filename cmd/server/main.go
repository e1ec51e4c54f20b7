// Package main is the entry point for the datalens dashboard server: a
// multi-tenant dashboard builder over public economic, financial and
// demographic data providers.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/yourorg/datalens/internal/api"
	"github.com/yourorg/datalens/internal/config"
	"github.com/yourorg/datalens/internal/dashboard"
	tracing "github.com/yourorg/datalens/internal/otel"
	"github.com/yourorg/datalens/internal/render"
	"github.com/yourorg/datalens/internal/store"
	"golang.org/x/time/rate"
)

// main is the entry point for the application
func main() {
	// Configure logging
	setupLogging()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}

	shutdownTracer := tracing.InitTracer(cfg.OtelEndpoint)
	defer shutdownTracer()

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		logrus.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	var reg *prometheus.Registry
	if cfg.EnableMetrics {
		reg = newMetricsRegistry()
	}

	connectors, err := buildConnectors(cfg, reg)
	if err != nil {
		logrus.Fatalf("Failed to register connectors: %v", err)
	}

	service := dashboard.NewService(db, render.NewFrame(connectors))

	opts := api.Options{
		UserHeader:   cfg.UserHeader,
		FetchTimeout: cfg.FetchTimeout,
		Limiter:      rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		Ping:         db.Ping,
	}
	if reg != nil {
		opts.Registerer = reg
		opts.Gatherer = reg
	}

	// Configure server with timeouts
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.New(service, connectors, opts).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.FetchTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logrus.WithFields(logrus.Fields{
		"port":          cfg.Port,
		"database":      cfg.DatabasePath,
		"fetch_timeout": cfg.FetchTimeout,
		"metrics":       cfg.EnableMetrics,
		"connectors":    len(connectors.All()),
	}).Info("Server initialized")

	// Start the server in a goroutine
	go func() {
		logrus.Infof("Server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Error starting server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server shutdown failed: %v", err)
		return
	}

	logrus.Info("Server stopped")
}
