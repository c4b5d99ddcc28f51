package model

import "time"

const (
	AgentTypeSQL      = "SQL_AGENT"
	AgentTypeDocument = "DOCUMENT_AGENT"
)

type ChatHistory struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	AgentType string    `gorm:"size:32;not null;index" json:"agent_type"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ValidAgentType(t string) bool {
	return t == AgentTypeSQL || t == AgentTypeDocument
}
