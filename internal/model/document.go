package model

import "time"

type Document struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"not null;index" json:"user_id"`
	Filename        string    `gorm:"size:255;not null" json:"filename"`
	FilePath        string    `gorm:"size:512;not null" json:"-"`
	FileType        string    `gorm:"size:128" json:"file_type"`
	FileSize        int64     `json:"file_size"`
	EmbeddingStatus bool      `gorm:"not null;default:false" json:"embedding_status"`
	ChunkCount      int       `gorm:"not null;default:0" json:"chunk_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
