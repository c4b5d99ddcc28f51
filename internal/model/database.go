package model

import (
	"encoding/json"
	"time"
)

const DBTypePostgres = "postgresql"

// DatabaseConnection is a user-registered target database for the SQL agent.
// ConnectionString is stored as provided.
type DatabaseConnection struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"not null;index" json:"user_id"`
	Name             string    `gorm:"size:128;not null" json:"name"`
	Description      string    `gorm:"size:255" json:"description"`
	DBType           string    `gorm:"size:32;not null;default:postgresql" json:"db_type"`
	ConnectionString string    `gorm:"type:text;not null" json:"-"`
	IsActive         bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (DatabaseConnection) TableName() string {
	return "database_connections"
}

type QueryHistory struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	ConnectionID uint      `gorm:"not null;index" json:"connection_id"`
	Question     string    `gorm:"type:text;not null" json:"question"`
	SQLQuery     string    `gorm:"type:text" json:"sql_query"`
	Result       string    `gorm:"type:longtext" json:"-"`
	Success      bool      `json:"success"`
	CreatedAt    time.Time `json:"created_at"`
}

func (QueryHistory) TableName() string {
	return "query_history"
}

func (q *QueryHistory) SetResult(v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		q.Result = "{}"
		return
	}
	q.Result = string(b)
}
