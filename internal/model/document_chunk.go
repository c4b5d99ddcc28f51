package model

import (
	"encoding/json"
	"time"
)

// DocumentChunk stores a text chunk and its embedding for retrieval.
// Embedding and Metadata are JSON text columns.
type DocumentChunk struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DocumentID uint      `gorm:"not null;index" json:"document_id"`
	ChunkIndex int       `gorm:"not null" json:"chunk_index"`
	Text       string    `gorm:"type:text;not null" json:"text"`
	Embedding  string    `gorm:"type:longtext" json:"-"`
	Metadata   string    `gorm:"type:text" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

type ChunkMetadata struct {
	FilePath    string    `json:"file_path"`
	ChunkSize   int       `json:"chunk_size"`
	ProcessedAt time.Time `json:"processed_at"`
}

// EmbeddingVector returns the parsed embedding slice; empty on parse error.
func (c *DocumentChunk) EmbeddingVector() []float32 {
	if c.Embedding == "" {
		return nil
	}
	var v []float32
	_ = json.Unmarshal([]byte(c.Embedding), &v)
	return v
}

func (c *DocumentChunk) SetEmbedding(vec []float32) {
	if len(vec) == 0 {
		c.Embedding = "[]"
		return
	}
	b, _ := json.Marshal(vec)
	c.Embedding = string(b)
}

func (c *DocumentChunk) SetMetadata(meta ChunkMetadata) {
	b, _ := json.Marshal(meta)
	c.Metadata = string(b)
}
