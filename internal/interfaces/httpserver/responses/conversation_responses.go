package responses

import (
	domain "github.com/placementmentor/mentor-server/internal/domain/conversation"
)

const (
	MessageSent         = "Message sent successfully"
	ConversationCleared = "Conversation cleared successfully"
)

// SendMessageResponse is returned after a successful exchange.
type SendMessageResponse struct {
	Message        string `json:"message" example:"Message sent successfully"`
	Response       string `json:"response" example:"Start with arrays and hash maps."`
	ConversationID string `json:"conversationId" example:"6650c1f2a7b3c9d1e4f5a6b7"`
}

// HistoryResponse carries a transcript. ConversationID is omitted when none exists yet.
type HistoryResponse struct {
	Messages       []domain.Turn `json:"messages"`
	ConversationID string        `json:"conversationId,omitempty"`
}

// MessageResponse is a bare acknowledgement.
type MessageResponse struct {
	Message string `json:"message" example:"Conversation cleared successfully"`
}

// BuildSendMessageResponse converts the orchestrator result.
func BuildSendMessageResponse(result *domain.SendResult) *SendMessageResponse {
	return &SendMessageResponse{
		Message:        MessageSent,
		Response:       result.Reply,
		ConversationID: result.ConversationID,
	}
}

// BuildHistoryResponse converts a conversation, nil meaning none exists.
func BuildHistoryResponse(conv *domain.Conversation) *HistoryResponse {
	if conv == nil {
		return &HistoryResponse{Messages: []domain.Turn{}}
	}
	messages := conv.Turns
	if messages == nil {
		messages = []domain.Turn{}
	}
	return &HistoryResponse{
		Messages:       messages,
		ConversationID: conv.ID,
	}
}
