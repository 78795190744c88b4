package conversationrepo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/placementmentor/mentor-server/internal/domain/conversation"
	"github.com/placementmentor/mentor-server/internal/infrastructure/database/entities"
	"github.com/placementmentor/mentor-server/internal/utils/platformerrors"
)

// PostgresRepository persists conversations via PostgreSQL using GORM.
type PostgresRepository struct {
	db *gorm.DB
}

// NewPostgresRepository creates a repository backed by the provided DB.
func NewPostgresRepository(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindOrCreate(ctx context.Context, key domain.Key) (*domain.Conversation, error) {
	conv, err := r.Find(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.Conversation{UserID: key.UserID, Assistant: key.Assistant, Turns: []domain.Turn{}}, nil
	}
	return conv, err
}

func (r *PostgresRepository) Find(ctx context.Context, key domain.Key) (*domain.Conversation, error) {
	record, err := r.load(r.db.WithContext(ctx), key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "find conversation", err)
	}
	return toDomain(record), nil
}

// AppendTurns upserts the conversation row and inserts every turn in one transaction.
// The upsert takes a row lock, which serializes concurrent appends to the same conversation.
func (r *PostgresRepository) AppendTurns(ctx context.Context, conv *domain.Conversation, turns []domain.Turn, updatedAt time.Time) (*domain.Conversation, error) {
	key := conv.Key()
	var stored entities.Conversation

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		header := entities.Conversation{
			ID:            uuid.NewString(),
			UserID:        key.UserID,
			AssistantType: string(key.Assistant),
			CreatedAt:     updatedAt,
			UpdatedAt:     updatedAt,
		}
		if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "assistant_type"}},
			DoUpdates: clause.Assignments(map[string]any{"updated_at": updatedAt}),
		}).Create(&header).Error; err != nil {
			return err
		}

		if err := tx.Where("user_id = ? AND assistant_type = ?", key.UserID, string(key.Assistant)).
			First(&stored).Error; err != nil {
			return err
		}

		records := make([]entities.ConversationTurn, 0, len(turns))
		for _, turn := range turns {
			records = append(records, turnRecord(stored.ID, turn))
		}
		if len(records) > 0 {
			if err := tx.Create(&records).Error; err != nil {
				return err
			}
		}

		loaded, err := r.load(tx, key)
		if err != nil {
			return err
		}
		stored = *loaded
		return nil
	})
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "append conversation turns", err)
	}
	return toDomain(&stored), nil
}

func (r *PostgresRepository) GetHistory(ctx context.Context, key domain.Key) ([]domain.Turn, error) {
	conv, err := r.Find(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return []domain.Turn{}, nil
	}
	if err != nil {
		return nil, err
	}
	return conv.Turns, nil
}

func (r *PostgresRepository) Clear(ctx context.Context, key domain.Key) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var header entities.Conversation
		err := tx.Where("user_id = ? AND assistant_type = ?", key.UserID, string(key.Assistant)).First(&header).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", header.ID).Delete(&entities.ConversationTurn{}).Error; err != nil {
			return err
		}
		return tx.Delete(&header).Error
	})
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "clear conversation", err)
	}
	return nil
}

func (r *PostgresRepository) load(db *gorm.DB, key domain.Key) (*entities.Conversation, error) {
	var record entities.Conversation
	err := db.Preload("Turns", func(q *gorm.DB) *gorm.DB {
		return q.Order("id ASC")
	}).Where("user_id = ? AND assistant_type = ?", key.UserID, string(key.Assistant)).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func turnRecord(conversationID string, turn domain.Turn) entities.ConversationTurn {
	record := entities.ConversationTurn{
		ConversationID: conversationID,
		Role:           string(turn.Role),
		Content:        turn.Content,
		Timestamp:      turn.Timestamp,
	}
	if turn.Attachment != nil {
		filename := turn.Attachment.Filename
		mimeType := turn.Attachment.MimeType
		size := turn.Attachment.Size
		record.AttachmentFilename = &filename
		record.AttachmentMimeType = &mimeType
		record.AttachmentSize = &size
	}
	return record
}

func toDomain(record *entities.Conversation) *domain.Conversation {
	conv := &domain.Conversation{
		ID:        record.ID,
		UserID:    record.UserID,
		Assistant: domain.Assistant(record.AssistantType),
		Turns:     make([]domain.Turn, 0, len(record.Turns)),
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
	for _, t := range record.Turns {
		turn := domain.Turn{
			Role:      domain.Role(t.Role),
			Content:   t.Content,
			Timestamp: t.Timestamp,
		}
		if t.AttachmentFilename != nil {
			turn.Attachment = &domain.Attachment{Filename: *t.AttachmentFilename}
			if t.AttachmentMimeType != nil {
				turn.Attachment.MimeType = *t.AttachmentMimeType
			}
			if t.AttachmentSize != nil {
				turn.Attachment.Size = *t.AttachmentSize
			}
		}
		conv.Turns = append(conv.Turns, turn)
	}
	return conv
}

var _ domain.Repository = (*PostgresRepository)(nil)
