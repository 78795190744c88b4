package requests

import (
	"encoding/json"

	domain "github.com/placementmentor/mentor-server/internal/domain/conversation"
)

// SendMessageRequest is the JSON body of the send endpoints. Multipart requests
// carry the same fields as form values.
type SendMessageRequest struct {
	Message             string          `json:"message" form:"message"`
	AssistantType       string          `json:"assistantType" form:"assistantType"`
	ConversationHistory json.RawMessage `json:"conversationHistory" swaggertype:"array,object"`
}

// ToDomain converts the request for the orchestrator.
func (r *SendMessageRequest) ToDomain(mode domain.Mode, userID string) domain.SendInput {
	input := domain.SendInput{
		Mode:    mode,
		UserID:  userID,
		Message: r.Message,
		History: domain.ParseHistory(r.ConversationHistory),
	}
	if mode == domain.ModeClassroom {
		input.AssistantType = r.AssistantType
	}
	return input
}
