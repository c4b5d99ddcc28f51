package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"agentic-rag/internal/sqlagent"
)

// SchemaCache stores introspected table schemas per connection.
type SchemaCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewSchemaCache(client *redisv9.Client, ttl time.Duration) *SchemaCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &SchemaCache{client: client, ttl: ttl}
}

func (c *SchemaCache) Get(ctx context.Context, connectionID uint, table string) (*sqlagent.TableSchema, bool, error) {
	raw, err := c.client.Get(ctx, schemaKey(connectionID, table)).Bytes()
	if errors.Is(err, redisv9.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get schema failed: %w", err)
	}
	var schema sqlagent.TableSchema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached schema failed: %w", err)
	}
	return &schema, true, nil
}

func (c *SchemaCache) Set(ctx context.Context, connectionID uint, schema *sqlagent.TableSchema) error {
	payload, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("marshal schema failed: %w", err)
	}
	if err := c.client.Set(ctx, schemaKey(connectionID, schema.TableName), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set schema failed: %w", err)
	}
	return nil
}

// InvalidateConnection drops every cached schema of the connection.
func (c *SchemaCache) InvalidateConnection(ctx context.Context, connectionID uint) error {
	pattern := fmt.Sprintf("sql:schema:%d:*", connectionID)
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan schemas failed: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete schemas failed: %w", err)
	}
	return nil
}

func schemaKey(connectionID uint, table string) string {
	return fmt.Sprintf("sql:schema:%d:%s", connectionID, table)
}
