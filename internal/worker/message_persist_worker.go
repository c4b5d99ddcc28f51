package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"agentic-rag/internal/model"
	"agentic-rag/internal/repository"
)

// MessageCache is the part of the chat history cache the persist worker updates.
type MessageCache interface {
	EndWrite(ctx context.Context, chatHistoryID uint) error
}

// MessagePersistWorker writes queued chat messages and then lets readers
// cache the history again.
type MessagePersistWorker struct {
	repo  *repository.MessageRepository
	cache MessageCache
}

// NewMessagePersistWorker builds the worker; cache may be nil.
func NewMessagePersistWorker(repo *repository.MessageRepository, cache MessageCache) *MessagePersistWorker {
	return &MessagePersistWorker{repo: repo, cache: cache}
}

func (w *MessagePersistWorker) Handle(ctx context.Context, body []byte) error {
	var msg model.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("decode message failed: %w", err)
	}
	if msg.ChatHistoryID == 0 {
		return fmt.Errorf("message without chat history id")
	}
	msg.ID = 0
	if err := w.repo.Create(ctx, &msg); err != nil {
		return err
	}

	if w.cache != nil {
		if err := w.cache.EndWrite(ctx, msg.ChatHistoryID); err != nil {
			ctxzap.Extract(ctx).Warn("close history write window failed", zap.Uint("chat_history_id", msg.ChatHistoryID), zap.Error(err))
		}
	}
	return nil
}
