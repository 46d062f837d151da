package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"github.com/a7al3le-dotcom/chat7ob/auth"
	"github.com/a7al3le-dotcom/chat7ob/internal"
	"github.com/a7al3le-dotcom/chat7ob/moderation"
	"github.com/a7al3le-dotcom/chat7ob/ratelimit"
	"github.com/a7al3le-dotcom/chat7ob/repositories"
	"github.com/a7al3le-dotcom/chat7ob/runtime"
	"github.com/a7al3le-dotcom/chat7ob/runtime/workers"
	"github.com/a7al3le-dotcom/chat7ob/search"
	"github.com/a7al3le-dotcom/chat7ob/transport"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for the websocket server and background workers.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB) for the audit trail
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		// Defer ensures the database lock is released and buffers are flushed before the function returns.
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Search index (Bluge) over the live message window
	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		log.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	// 4. Moderation dictionary
	censored, err := runtime.NewCensoredLoader().LoadAll("censored")
	if err != nil {
		return exitRuntime, fmt.Errorf("censored words loading failed: %w", err)
	}
	log.Info("Censored dictionary loaded", "words", len(censored.Words), "languages", censored.Languages)
	moderator, err := moderation.NewModerator(censored.Words, charReplacement, log)
	if err != nil {
		return exitRuntime, err
	}

	// 5. Core state
	registry := runtime.NewRegistry()
	msgLimiter := ratelimit.NewLimiter(log, config.RateWindow, config.MessageRateLimit)
	connLimiter := ratelimit.NewLimiter(log, config.RateWindow, config.ConnectionRateLimit)
	audit := repositories.NewAuditRepository(db, log)
	index := search.NewIndex(blugeWriter, log)
	tokens := auth.NewTokenCodec(config.TokenSecret, config.TokenIssuer)

	coordinator := runtime.NewCoordinator(log, registry, tokens, msgLimiter, &moderator, index, audit, runtime.Options{
		MessageCap:  config.MessageCap,
		TailSize:    config.TailSize,
		GracePeriod: config.GracePeriod,
	})
	defer coordinator.Stop()

	// 6. Context, signals & background workers
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup := workers.NewSupervisor(log)
	sup.Add(
		workers.NewSweeperWorker(log, config.SweepInterval, msgLimiter, connLimiter),
		workers.NewTelemetryWorker(log, coordinator.Stats, config.MetricInterval),
	)
	go sup.Run(ctx)

	// 7. Websocket server
	mux := http.NewServeMux()
	handler := transport.NewHandler(log, coordinator, registry, connLimiter)
	handler.RegisterRoutes(mux)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: mux}

	// Use an error channel to capture ListenAndServe() issues
	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting websocket server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 9. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	sup.Stop()
	log.Info("Program stopped cleanly")

	return exitOK, nil
}
