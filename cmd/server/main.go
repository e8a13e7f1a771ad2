// Package main initializes and starts the CoupleHQ remote store server,
// setting up configuration, logging, the database, the realtime relay,
// handlers and optional TLS.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/CoupleHQ/internal/config"
	"github.com/atinyakov/CoupleHQ/internal/db"
	"github.com/atinyakov/CoupleHQ/internal/logger"
	"github.com/atinyakov/CoupleHQ/internal/metrics"
	"github.com/atinyakov/CoupleHQ/internal/realtime"
	"github.com/atinyakov/CoupleHQ/internal/repository"
	"github.com/atinyakov/CoupleHQ/internal/server/handler/http"
	"github.com/atinyakov/CoupleHQ/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Parse command-line, file and environment configuration.
	options, err := config.ParseServer(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", orDefault(version, "N/A"))
	fmt.Printf("Build date: %s\n", orDefault(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL connection.
	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer postgresDB.Close()

	repo := repository.NewPostgresCoupleRepository(postgresDB)
	coupleService := service.NewCoupleService(repo)

	// Relay committed changes from Postgres to websocket subscribers.
	m := metrics.New()
	hub := realtime.NewHub(zapLogger, realtime.WithObserver(m))
	relay := realtime.NewRelay(hub, repo, zapLogger)
	if err := realtime.Listen(ctx, options.DatabaseDSN, repository.ChangeChannel, relay, zapLogger); err != nil {
		zapLogger.Fatal("cannot listen for changes", zap.Error(err))
	}

	coupleHandler := &http.CoupleHandler{CoupleService: coupleService}
	realtimeHandler := &http.RealtimeHandler{
		Hub:            hub,
		OriginPatterns: options.AllowedOrigins,
		Logger:         zapLogger,
	}

	// Build the router with middleware and routes.
	router := http.NewRouter(coupleHandler, realtimeHandler, m, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("shutdown failed", zap.Error(err))
		}
	}()

	if options.TLSCert != "" && options.TLSKey != "" {
		zapLogger.Info("starting HTTPS server", zap.String("addr", options.Addr))
		err = server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
	} else {
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Addr))
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("server stopped", zap.Error(err))
	}
	zapLogger.Info("server stopped")
}

// orDefault returns s, or def when s is empty (equivalent to cmp.Or, which
// requires Go 1.22).
func orDefault(s, def string) string {
	if s != "" {
		return s
	}
	return def
}
