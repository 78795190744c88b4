package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/placementmentor/mentor-server/internal/config"
	domain "github.com/placementmentor/mentor-server/internal/domain/conversation"
	"github.com/placementmentor/mentor-server/internal/infrastructure/logger"
	"github.com/placementmentor/mentor-server/internal/infrastructure/observability"
	"github.com/placementmentor/mentor-server/internal/interfaces/httpserver"
)

// @title AI Placement Mentor API
// @version 1.0
// @description Mentor chat and classroom assistants backed by the AI service
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
type Application struct {
	httpServer *httpserver.HttpServer
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		log:        log,
	}
}

func (a *Application) Start(ctx context.Context) error {
	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	store, closeStore, err := provideConversationStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.ConversationStore).Msg("initialize conversation store")
	}
	defer closeStore()

	uploads, err := provideUploadStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.UploadBackend).Msg("initialize upload store")
	}

	publisher, closePublisher, err := provideEventPublisher(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize event publisher")
	}
	defer closePublisher()

	authValidator, err := provideAuthValidator(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize auth validator")
	}

	conversationService := domain.NewService(
		provideRepository(store),
		provideGateway(cfg, log),
		provideExtractor(cfg, log),
		provideAttachmentStore(uploads),
		publisher,
		log,
	)

	httpServer := httpserver.New(cfg, log, conversationService, uploads, authValidator, provideHealthChecks(store, uploads))
	app := NewApplication(httpServer, log)

	log.Info().Interface("config", cfg.Redacted()).Msg("starting mentor server")
	if err := app.Start(ctx); err != nil {
		log.Error().Err(err).Msg("application stopped with error")
		return
	}

	log.Info().Msg("application exited cleanly")
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
