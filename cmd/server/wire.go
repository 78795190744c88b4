//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"github.com/placementmentor/mentor-server/internal/config"
	domain "github.com/placementmentor/mentor-server/internal/domain/conversation"
	"github.com/placementmentor/mentor-server/internal/infrastructure/logger"
	"github.com/placementmentor/mentor-server/internal/interfaces/httpserver"
)

var infrastructureSet = wire.NewSet(
	provideConversationStore,
	provideRepository,
	provideUploadStore,
	provideAttachmentStore,
	provideEventPublisher,
	provideGateway,
	provideExtractor,
	provideAuthValidator,
	provideHealthChecks,
)

var conversationSet = wire.NewSet(
	domain.NewService,
)

// BuildApplication assembles the mentor service with Wire.
func BuildApplication(ctx context.Context) (*Application, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		infrastructureSet,
		conversationSet,
		httpserver.New,
		NewApplication,
	)
	return nil, nil, nil
}
