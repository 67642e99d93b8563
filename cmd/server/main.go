package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-backend/domain/event"
	"chat-backend/internal"
	"chat-backend/moderation"
	"chat-backend/observability"
	"chat-backend/projection"
	"chat-backend/repositories"
	"chat-backend/runtime"
	"chat-backend/runtime/workers"
	"chat-backend/services"
	"chat-backend/sink"
	"chat-backend/transport/httpapi"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
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
// os.Exit never fires before the deferred database cleanup, and the
// initialization logic stays testable outside the entry point.
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

	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx := context.Background()

	// 2. Storage (BadgerDB + Bluge)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		// Defer ensures the database lock is released and buffers are flushed before the function returns.
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	userRepository := repositories.NewUserRepository(db)
	roomRepository, err := repositories.NewRoomRepository(db)
	if err != nil {
		return exitRuntime, fmt.Errorf("room repository init failed: %w", err)
	}
	defer func() {
		_ = roomRepository.Close()
	}()
	messageRepository := repositories.NewMessageRepository(db)
	searchRepository := repositories.NewSearchRepository(blugeWriter, logger)

	// 3. Moderation
	censored, err := moderation.LoadCensoredWords()
	if err != nil {
		return exitRuntime, fmt.Errorf("censored words loading failed: %w", err)
	}
	logger.Info("Censored dictionaries loaded",
		"words", len(censored.Words), "languages", censored.Languages)

	moderator, err := moderation.NewModerator(censored.Words, charReplacement, logger)
	if err != nil {
		return exitRuntime, fmt.Errorf("moderator init failed: %w", err)
	}

	// 4. Real-time core
	monitor := observability.NewMonitor()
	eventChan := make(chan event.DomainEvent, config.BufferSize)
	telemetryChan := make(chan event.Event, config.BufferSize)

	registry := runtime.NewRegistry()
	persistence := services.NewPersistenceService(logger, userRepository, roomRepository, messageRepository)
	gateway := runtime.NewGateway(logger, registry, persistence, &moderator, eventChan, monitor)

	timeline := projection.NewTimeline(config.TimelineCapacity)
	searchSink := sink.NewSearchSink(searchRepository, logger)

	// 5. Supervised workers
	sup := workers.NewSupervisor(logger, config.RestartInterval)
	sup.Add(
		workers.NewEventFanout(logger, eventChan, telemetryChan, timeline, searchSink),
		workers.NewChannelCapacityWorker(logger, []workers.NamedChannel{
			{Name: "events", Channel: eventChan},
			{Name: "telemetry", Channel: telemetryChan},
		}, telemetryChan, config.MetricInterval),
		workers.NewProcessHealthWorker(logger, telemetryChan, config.MetricInterval),
		workers.NewTelemetryWorker(logger, telemetryChan, []event.Handler{
			observability.ChannelCapacityHandler{Monitor: monitor},
			observability.ProcessHealthHandler{Monitor: monitor},
		}),
	)

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	supDone := make(chan struct{})
	go func() {
		defer close(supDone)
		logger.Info("Starting supervised workers...")
		sup.Run(ctx)
	}()

	// 7. HTTP server (REST + WebSocket)
	authService := services.NewAuthService(userRepository, config.AuthTokenDuration)
	chatService := services.NewChatService(roomRepository, messageRepository, searchRepository, userRepository)
	api := httpapi.NewAPI(logger, authService, chatService, gateway, timeline, monitor, httpapi.Options{
		ConnBufferSize: config.ConnectionBufferSize,
		WriteTimeout:   config.WriteTimeout,
		MessageLimit:   config.LimitMessages,
		SearchLimit:    config.SearchLimit,
	})

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{
		Addr:    address,
		Handler: api.Router(),
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 9. Final Cleanup (Graceful Shutdown)
	// Active connections get ShutdownTimeout to finish; workers drain after.
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error while shutting down HTTP server", "err", err)
	}
	sup.Stop()
	<-supDone
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG).
			WithBypassLockGuard(true)
	} else {
		options = options.WithLoggingLevel(badger.INFO)
	}

	return options
}
