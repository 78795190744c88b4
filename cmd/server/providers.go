package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	gormlogger "gorm.io/gorm/logger"

	"github.com/placementmentor/mentor-server/internal/config"
	domain "github.com/placementmentor/mentor-server/internal/domain/conversation"
	"github.com/placementmentor/mentor-server/internal/infrastructure/aigateway"
	"github.com/placementmentor/mentor-server/internal/infrastructure/auth"
	"github.com/placementmentor/mentor-server/internal/infrastructure/database"
	"github.com/placementmentor/mentor-server/internal/infrastructure/events"
	"github.com/placementmentor/mentor-server/internal/infrastructure/mongodb"
	"github.com/placementmentor/mentor-server/internal/infrastructure/repository/conversationrepo"
	"github.com/placementmentor/mentor-server/internal/infrastructure/textextract"
	"github.com/placementmentor/mentor-server/internal/infrastructure/upload"
	"github.com/placementmentor/mentor-server/internal/interfaces/httpserver"
)

// conversationStore is the selected repository backend and its liveness probe.
type conversationStore struct {
	repo domain.Repository
	ping func(ctx context.Context) error
}

func provideConversationStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*conversationStore, func(), error) {
	switch cfg.ConversationStore {
	case config.StorePostgres:
		db, err := database.Connect(database.Config{
			DSN:             cfg.DatabaseURL,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			MaxOpenConns:    cfg.DBMaxOpenConns,
			ConnMaxLifetime: cfg.DBConnLifetime,
			LogLevel:        gormlogger.Warn,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		if err := database.AutoMigrate(ctx, db, log); err != nil {
			return nil, nil, fmt.Errorf("migrate database: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("database handle: %w", err)
		}
		cleanup := func() {
			if err := sqlDB.Close(); err != nil {
				log.Error().Err(err).Msg("close database")
			}
		}
		return &conversationStore{repo: conversationrepo.NewPostgresRepository(db), ping: sqlDB.PingContext}, cleanup, nil

	case config.StoreMemory:
		log.Warn().Msg("conversations are kept in memory and lost on restart")
		return &conversationStore{
			repo: conversationrepo.NewInMemoryRepository(),
			ping: func(context.Context) error { return nil },
		}, func() {}, nil

	default:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{
			URI:            cfg.MongoURI,
			Database:       cfg.MongoDatabase,
			ConnectTimeout: cfg.MongoTimeout,
			AppName:        cfg.ServiceName,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		repo := conversationrepo.NewMongoRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		cleanup := func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Error().Err(err).Msg("disconnect mongo")
			}
		}
		ping := func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) }
		return &conversationStore{repo: repo, ping: ping}, cleanup, nil
	}
}

func provideRepository(store *conversationStore) domain.Repository {
	return store.repo
}

func provideUploadStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (upload.Store, error) {
	if cfg.IsS3Upload() {
		return upload.NewS3Storage(ctx, cfg, log)
	}
	return upload.NewLocalStorage(cfg.UploadDir, log)
}

func provideAttachmentStore(store upload.Store) domain.AttachmentStore {
	return store
}

func provideEventPublisher(cfg *config.Config, log zerolog.Logger) (domain.EventPublisher, func(), error) {
	if !cfg.EventsEnabled() {
		return events.NoopPublisher{}, func() {}, nil
	}
	publisher, err := events.NewAMQPPublisher(cfg.EventsAMQPURL, cfg.EventsExchange, log)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("close event publisher")
		}
	}
	return publisher, cleanup, nil
}

func provideGateway(cfg *config.Config, log zerolog.Logger) domain.Gateway {
	return aigateway.NewClient(cfg.AIServiceURL, cfg.AIChatTimeout, log)
}

func provideExtractor(cfg *config.Config, log zerolog.Logger) domain.TextExtractor {
	return textextract.New(textextract.Options{
		DocxSupported: cfg.DocxEnabled,
		MaxChars:      cfg.ExtractMaxChars,
	}, log)
}

func provideAuthValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*auth.Validator, error) {
	return auth.NewValidator(ctx, cfg, log)
}

func provideHealthChecks(store *conversationStore, uploads upload.Store) httpserver.HealthChecks {
	return httpserver.HealthChecks{
		{Name: "conversation_store", Check: store.ping},
		{Name: "upload_store", Check: uploads.Health},
	}
}
