package models

import "time"

// Message is an authored entry in a conversation's append-only log.
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"not null;index:idx_messages_conversation_created,priority:1" json:"conversation_id"`
	AuthorID       uint      `gorm:"not null" json:"author_id"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time `gorm:"index:idx_messages_conversation_created,priority:2" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Message) TableName() string {
	return "messages"
}
