package conversation

import (
	"context"
	"time"
)

// Reply is the AI service answer to one prompt.
type Reply struct {
	Response string
	Role     string
}

// Gateway forwards prompts to the external AI service.
type Gateway interface {
	Chat(ctx context.Context, message string, history []HistoryEntry) (Reply, error)
	ClassroomChat(ctx context.Context, assistant Assistant, message string, history []HistoryEntry) (Reply, error)
}

// TextExtractor turns an uploaded document into plain text. It never fails; unreadable input yields "".
type TextExtractor interface {
	Extract(data []byte, mediaType, filename string) string
}

// StagedAttachment points at an upload held by an AttachmentStore for the duration of one request.
type StagedAttachment struct {
	Key       string
	Filename  string
	MediaType string
	Size      int64
}

// AttachmentStore gives the orchestrator access to staged uploads.
type AttachmentStore interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Remove(ctx context.Context, key string) error
}

// Event announces that a conversation gained turns.
type Event struct {
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	AssistantType  Assistant `json:"assistant_type"`
	TurnCount      int       `json:"turn_count"`
	Timestamp      time.Time `json:"timestamp"`
}

// EventPublisher delivers conversation events. Delivery is best effort.
type EventPublisher interface {
	PublishConversationUpdated(ctx context.Context, event Event) error
}
