package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"agentic-rag/internal/model"
)

// HistoryCache holds a snapshot of each chat history's messages. Writers open
// a write window with BeginWrite; while it is open the snapshot is neither
// served nor stored, so a reader never caches a list missing queued messages.
type HistoryCache struct {
	client    *redisv9.Client
	ttl       time.Duration
	windowTTL time.Duration
}

// NewHistoryCache builds the cache. windowTTL bounds a write window whose
// EndWrite never arrives.
func NewHistoryCache(client *redisv9.Client, ttl, windowTTL time.Duration) *HistoryCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if windowTTL <= 0 {
		windowTTL = 5 * time.Second
	}
	return &HistoryCache{client: client, ttl: ttl, windowTTL: windowTTL}
}

// Load returns the cached messages. An open write window reads as a miss.
func (c *HistoryCache) Load(ctx context.Context, chatHistoryID uint) ([]model.Message, bool, error) {
	var (
		snapshot *redisv9.StringCmd
		window   *redisv9.IntCmd
	)
	_, err := c.client.Pipelined(ctx, func(pipe redisv9.Pipeliner) error {
		window = pipe.Exists(ctx, windowKey(chatHistoryID))
		snapshot = pipe.Get(ctx, snapshotKey(chatHistoryID))
		return nil
	})
	if err != nil && !errors.Is(err, redisv9.Nil) {
		return nil, false, fmt.Errorf("redis load history failed: %w", err)
	}
	if window.Val() > 0 || errors.Is(snapshot.Err(), redisv9.Nil) {
		return nil, false, nil
	}

	var messages []model.Message
	if err := json.Unmarshal([]byte(snapshot.Val()), &messages); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached history failed: %w", err)
	}
	return messages, true, nil
}

// Store saves a snapshot unless a write window is open, checked atomically
// with the write.
func (c *HistoryCache) Store(ctx context.Context, chatHistoryID uint, messages []model.Message) error {
	payload, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("marshal history failed: %w", err)
	}
	wk := windowKey(chatHistoryID)
	err = c.client.Watch(ctx, func(tx *redisv9.Tx) error {
		open, err := tx.Exists(ctx, wk).Result()
		if err != nil || open > 0 {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
			pipe.Set(ctx, snapshotKey(chatHistoryID), payload, c.ttl)
			return nil
		})
		return err
	}, wk)
	if err != nil && !errors.Is(err, redisv9.TxFailedErr) {
		return fmt.Errorf("redis store history failed: %w", err)
	}
	return nil
}

// BeginWrite opens a write window and drops the snapshot.
func (c *HistoryCache) BeginWrite(ctx context.Context, chatHistoryID uint) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
		pipe.Set(ctx, windowKey(chatHistoryID), "1", c.windowTTL)
		pipe.Del(ctx, snapshotKey(chatHistoryID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis begin history write failed: %w", err)
	}
	return nil
}

// EndWrite closes the write window once the queued message is persisted.
func (c *HistoryCache) EndWrite(ctx context.Context, chatHistoryID uint) error {
	return c.Invalidate(ctx, chatHistoryID)
}

// Invalidate drops the snapshot together with any open window.
func (c *HistoryCache) Invalidate(ctx context.Context, chatHistoryID uint) error {
	if err := c.client.Del(ctx, snapshotKey(chatHistoryID), windowKey(chatHistoryID)).Err(); err != nil {
		return fmt.Errorf("redis invalidate history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) Writing(ctx context.Context, chatHistoryID uint) (bool, error) {
	n, err := c.client.Exists(ctx, windowKey(chatHistoryID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis check history window failed: %w", err)
	}
	return n > 0, nil
}

func snapshotKey(id uint) string {
	return fmt.Sprintf("chat:history:%d", id)
}

func windowKey(id uint) string {
	return fmt.Sprintf("chat:history:%d:writing", id)
}
