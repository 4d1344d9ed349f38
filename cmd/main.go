package main

import (
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/search"
	"chat-relay/server"
	"chat-relay/translate"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes
// error reporting, so every defer (database cleanup included) executes before
// the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	charReplacement, err := CharacterRune(config.CharReplacement)
	if err != nil {
		return err
	}
	limitMessages := config.LimitMessages
	if limitMessages == nil {
		limitMessages = lo.ToPtr(defaultLimitMessages)
	}

	// 2. Storage (BadgerDB + bluge index)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	index, err := search.NewIndex(log, config.BlugeFilepath)
	if err != nil {
		return fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing search index...")
		_ = index.Close()
	}()

	// 3. Relay wiring
	monitor := observability.NewMonitor()
	sup := workers.NewSupervisor(log, config.RestartInterval)
	registry := runtime.NewRegistry(config.SystemLabel)
	messageRepository := repositories.NewMessageRepository(db, log, limitMessages)
	provider := translate.NewProvider(log,
		config.TranslateEndpoint, config.TranslateAPIKey,
		config.SourceLang, config.TranslateTimeout)
	resolver := translate.NewResolver(log, provider, messageRepository, monitor)

	relay := runtime.NewRelay(log, sup, registry, messageRepository,
		resolver, index, monitor,
		config.NumberOfWorkers, config.BufferSize, config.SinkTimeout,
		charReplacement, config.SourceLang, config.SystemLabel)

	sup.Add(workers.NewHeartbeatWorker(log, monitor, config.MetricInterval))
	sup.Add(workers.NewTelemetryWorker(log, relay.Telemetry()))

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Start the Engine
	if err = relay.Start(ctx); err != nil {
		return fmt.Errorf("relay failed to start: %w", err)
	}

	// 6. HTTP Server Setup
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	srv := server.NewServer(log, relay, config.ConnectionBufferSize)
	httpServer := &http.Server{
		Addr:    address,
		Handler: srv.Router(),
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if serveErr := httpServer.ListenAndServe(); serveErr != nil &&
			!errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", serveErr)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err = <-errChan:
		return err
	}

	// 8. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	sup.Stop()
	log.Info("Program stopped cleanly")

	return nil
}
