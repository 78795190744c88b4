package database

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/placementmentor/mentor-server/internal/infrastructure/database/entities"
)

// AutoMigrate applies the conversation schema.
func AutoMigrate(ctx context.Context, db *gorm.DB, log zerolog.Logger) error {
	if err := db.WithContext(ctx).AutoMigrate(&entities.Conversation{}, &entities.ConversationTurn{}); err != nil {
		return err
	}

	var count int64
	if err := db.WithContext(ctx).Model(&entities.Conversation{}).Count(&count).Error; err != nil {
		return err
	}
	log.Info().Int64("conversations", count).Msg("conversation schema ready")
	return nil
}
