package model

import "time"

const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
	MessageRoleSystem    = "system"
)

type Message struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ChatHistoryID uint      `gorm:"not null;index" json:"chat_history_id"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	Role          string    `gorm:"size:16;not null" json:"role"`
	Content       string    `gorm:"type:text;not null" json:"content"`
	CreatedAt     time.Time `json:"created_at"`
}
