package conversation

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Find when no conversation exists for a key.
var ErrNotFound = errors.New("conversation not found")

// Repository persists conversations. AppendTurns must apply all turns of one call atomically.
type Repository interface {
	// FindOrCreate returns the stored conversation or a new unsaved one with an empty ID.
	FindOrCreate(ctx context.Context, key Key) (*Conversation, error)
	Find(ctx context.Context, key Key) (*Conversation, error)
	AppendTurns(ctx context.Context, conv *Conversation, turns []Turn, updatedAt time.Time) (*Conversation, error)
	GetHistory(ctx context.Context, key Key) ([]Turn, error)
	Clear(ctx context.Context, key Key) error
}
