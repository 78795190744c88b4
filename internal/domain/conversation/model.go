package conversation

import "time"

// Assistant identifies which conversation a user is talking to.
type Assistant string

const (
	AssistantGeneral   Assistant = "general"
	AssistantTechnical Assistant = "technical"
	AssistantCoding    Assistant = "coding"
	AssistantAptitude  Assistant = "aptitude"
)

// Role tags the author of a turn.
type Role string

const (
	RoleUser               Role = "user"
	RoleMentor             Role = "mentor"
	RoleTechnicalAssistant Role = "technical_assistant"
	RoleCodingAssistant    Role = "coding_assistant"
	RoleAptitudeAssistant  Role = "aptitude_assistant"
)

var replyRoles = map[Assistant]Role{
	AssistantGeneral:   RoleMentor,
	AssistantTechnical: RoleTechnicalAssistant,
	AssistantCoding:    RoleCodingAssistant,
	AssistantAptitude:  RoleAptitudeAssistant,
}

// ClassroomAssistants lists the assistant types reachable through the classroom endpoints.
var ClassroomAssistants = []Assistant{AssistantTechnical, AssistantCoding, AssistantAptitude}

// ParseClassroomAssistant accepts exactly the classroom assistant names.
func ParseClassroomAssistant(raw string) (Assistant, bool) {
	a := Assistant(raw)
	if !a.IsClassroom() {
		return "", false
	}
	return a, true
}

// IsClassroom reports whether a is one of the classroom assistants.
func (a Assistant) IsClassroom() bool {
	switch a {
	case AssistantTechnical, AssistantCoding, AssistantAptitude:
		return true
	}
	return false
}

// ReplyRole returns the role stored on replies produced for a.
func (a Assistant) ReplyRole() Role {
	return replyRoles[a]
}

// AcceptsReplyRole reports whether role may author replies in a's conversation.
// Classroom transcripts accept any classroom assistant label, general chats only the mentor.
func (a Assistant) AcceptsReplyRole(role Role) bool {
	if !a.IsClassroom() {
		return role == RoleMentor
	}
	switch role {
	case RoleTechnicalAssistant, RoleCodingAssistant, RoleAptitudeAssistant:
		return true
	}
	return false
}

// Key addresses a single conversation.
type Key struct {
	UserID    string
	Assistant Assistant
}

// ChatKey is the key of the user's general mentor conversation.
func ChatKey(userID string) Key {
	return Key{UserID: userID, Assistant: AssistantGeneral}
}

// ClassroomKey is the key of the user's conversation with a classroom assistant.
func ClassroomKey(userID string, assistant Assistant) Key {
	return Key{UserID: userID, Assistant: assistant}
}

// Conversation is an append-only transcript owned by one user.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Assistant Assistant `json:"assistantType"`
	Turns     []Turn    `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Key returns the addressing key of c.
func (c *Conversation) Key() Key {
	return Key{UserID: c.UserID, Assistant: c.Assistant}
}

// Turn is one message of a conversation.
type Turn struct {
	Role       Role        `json:"role"`
	Content    string      `json:"content"`
	Attachment *Attachment `json:"attachment,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Attachment keeps the metadata of a file sent with a user turn. The file body is never stored.
type Attachment struct {
	Filename string `json:"filename"`
	MimeType string `json:"mimetype"`
	Size     int64  `json:"size"`
}

// HistoryEntry is a prior turn supplied by the caller as context for the AI service.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
