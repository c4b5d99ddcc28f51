package app

import (
	"context"

	"agentic-rag/internal/ai"
	"agentic-rag/internal/model"
	"agentic-rag/internal/sqlagent"
)

// Embedder turns text into vectors. EmbedBatch returns one vector per input, in order.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer returns the assistant reply for a chat transcript.
type Completer interface {
	Complete(ctx context.Context, messages []ai.ChatMessage) (string, error)
}

// Publisher enqueues a JSON-encodable job for a background worker.
type Publisher interface {
	Publish(ctx context.Context, v interface{}) error
}

type TextExtractor interface {
	Extract(path string) (string, error)
}

type HistoryCache interface {
	Load(ctx context.Context, chatHistoryID uint) ([]model.Message, bool, error)
	Store(ctx context.Context, chatHistoryID uint, messages []model.Message) error
	BeginWrite(ctx context.Context, chatHistoryID uint) error
	Invalidate(ctx context.Context, chatHistoryID uint) error
}

type SchemaCache interface {
	Get(ctx context.Context, connectionID uint, table string) (*sqlagent.TableSchema, bool, error)
	Set(ctx context.Context, connectionID uint, schema *sqlagent.TableSchema) error
	InvalidateConnection(ctx context.Context, connectionID uint) error
}

// TargetOpener connects to a registered database. release must be called once
// the target is no longer used.
type TargetOpener interface {
	Open(ctx context.Context, connectionID uint, dsn string) (target sqlagent.Target, release func(), err error)
	Forget(connectionID uint)
}

// IngestJob asks a worker to process an uploaded document.
type IngestJob struct {
	DocumentID uint `json:"document_id"`
}
