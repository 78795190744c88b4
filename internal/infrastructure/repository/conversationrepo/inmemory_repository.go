package conversationrepo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	domain "github.com/placementmentor/mentor-server/internal/domain/conversation"
)

// InMemoryRepository is a thread-safe repository for tests and local development.
type InMemoryRepository struct {
	mu    sync.RWMutex
	items map[domain.Key]*domain.Conversation
}

// NewInMemoryRepository returns an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{items: make(map[domain.Key]*domain.Conversation)}
}

func (r *InMemoryRepository) FindOrCreate(ctx context.Context, key domain.Key) (*domain.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if conv, ok := r.items[key]; ok {
		return cloneConversation(conv), nil
	}
	return &domain.Conversation{UserID: key.UserID, Assistant: key.Assistant, Turns: []domain.Turn{}}, nil
}

func (r *InMemoryRepository) Find(ctx context.Context, key domain.Key) (*domain.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conv, ok := r.items[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneConversation(conv), nil
}

// AppendTurns appends to the stored conversation for conv's key, creating it on first use.
func (r *InMemoryRepository) AppendTurns(ctx context.Context, conv *domain.Conversation, turns []domain.Turn, updatedAt time.Time) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := conv.Key()
	stored, ok := r.items[key]
	if !ok {
		stored = &domain.Conversation{
			ID:        uuid.NewString(),
			UserID:    key.UserID,
			Assistant: key.Assistant,
			Turns:     []domain.Turn{},
			CreatedAt: updatedAt,
		}
		r.items[key] = stored
	}
	for _, turn := range turns {
		stored.Turns = append(stored.Turns, cloneTurn(turn))
	}
	stored.UpdatedAt = updatedAt

	return cloneConversation(stored), nil
}

func (r *InMemoryRepository) GetHistory(ctx context.Context, key domain.Key) ([]domain.Turn, error) {
	conv, err := r.Find(ctx, key)
	if err == domain.ErrNotFound {
		return []domain.Turn{}, nil
	}
	if err != nil {
		return nil, err
	}
	return conv.Turns, nil
}

func (r *InMemoryRepository) Clear(ctx context.Context, key domain.Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, key)
	return nil
}

func cloneConversation(conv *domain.Conversation) *domain.Conversation {
	out := *conv
	out.Turns = make([]domain.Turn, len(conv.Turns))
	for i, turn := range conv.Turns {
		out.Turns[i] = cloneTurn(turn)
	}
	return &out
}

func cloneTurn(turn domain.Turn) domain.Turn {
	if turn.Attachment != nil {
		meta := *turn.Attachment
		turn.Attachment = &meta
	}
	return turn
}

var _ domain.Repository = (*InMemoryRepository)(nil)
