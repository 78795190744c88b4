package entities

import "time"

// Conversation is the relational header row of a transcript.
type Conversation struct {
	ID            string             `gorm:"type:uuid;primaryKey"`
	UserID        string             `gorm:"type:varchar(64);not null;uniqueIndex:idx_conversation_owner"`
	AssistantType string             `gorm:"type:varchar(32);not null;uniqueIndex:idx_conversation_owner"`
	CreatedAt     time.Time          `gorm:"not null"`
	UpdatedAt     time.Time          `gorm:"not null"`
	Turns         []ConversationTurn `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// ConversationTurn stores one message. The serial ID preserves insertion order.
type ConversationTurn struct {
	ID                 uint64    `gorm:"primaryKey;autoIncrement"`
	ConversationID     string    `gorm:"type:uuid;not null;index"`
	Role               string    `gorm:"type:varchar(32);not null"`
	Content            string    `gorm:"type:text;not null"`
	AttachmentFilename *string   `gorm:"type:text"`
	AttachmentMimeType *string   `gorm:"type:varchar(255)"`
	AttachmentSize     *int64    `gorm:"type:bigint"`
	Timestamp          time.Time `gorm:"not null"`
}

func (ConversationTurn) TableName() string {
	return "conversation_turns"
}
