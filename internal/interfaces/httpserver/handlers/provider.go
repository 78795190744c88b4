package handlers

import (
	"github.com/rs/zerolog"

	"github.com/placementmentor/mentor-server/internal/config"
	domain "github.com/placementmentor/mentor-server/internal/domain/conversation"
	"github.com/placementmentor/mentor-server/internal/infrastructure/upload"
)

// Provider wires all HTTP handlers for dependency injection.
type Provider struct {
	Chat      *ChatHandler
	Classroom *ClassroomHandler
}

// NewProvider constructs the handler provider with domain services.
func NewProvider(cfg *config.Config, service domain.Service, uploads upload.Store, log zerolog.Logger) *Provider {
	return &Provider{
		Chat:      NewChatHandler(service, uploads, cfg.UploadMaxBytes, log),
		Classroom: NewClassroomHandler(service, uploads, cfg.UploadMaxBytes, log),
	}
}
