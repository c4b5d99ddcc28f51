package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisv9 "github.com/redis/go-redis/v9"

	"agentic-rag/internal/model"
	"agentic-rag/internal/sqlagent"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redisv9.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redisv9.NewClient(&redisv9.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestHistoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	c := NewHistoryCache(client, time.Minute, time.Second)

	if _, ok, err := c.Load(ctx, 7); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	msgs := []model.Message{
		{ID: 1, ChatHistoryID: 7, Role: model.MessageRoleUser, Content: "hi"},
		{ID: 2, ChatHistoryID: 7, Role: model.MessageRoleAssistant, Content: "hello"},
	}
	if err := c.Store(ctx, 7, msgs); err != nil {
		t.Fatalf("Store: %v", err)
	}
	got, ok, err := c.Load(ctx, 7)
	if err != nil || !ok || len(got) != 2 || got[1].Content != "hello" {
		t.Fatalf("unexpected cache read: %+v ok=%v err=%v", got, ok, err)
	}

	mr.FastForward(2 * time.Minute)
	if _, ok, _ := c.Load(ctx, 7); ok {
		t.Fatal("entry should expire after ttl")
	}
}

func TestHistoryCacheWriteWindow(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	c := NewHistoryCache(client, time.Minute, 5*time.Second)
	msgs := []model.Message{{ID: 1, ChatHistoryID: 3, Content: "hi"}}

	_ = c.Store(ctx, 3, msgs)
	if err := c.BeginWrite(ctx, 3); err != nil {
		t.Fatalf("BeginWrite: %v", err)
	}
	if writing, _ := c.Writing(ctx, 3); !writing {
		t.Fatal("expected open window after BeginWrite")
	}
	if _, ok, _ := c.Load(ctx, 3); ok {
		t.Fatal("snapshot must not be served while writing")
	}
	if err := c.Store(ctx, 3, msgs); err != nil {
		t.Fatalf("Store during window: %v", err)
	}
	if mr.Exists(snapshotKey(3)) {
		t.Fatal("snapshot must not be stored while writing")
	}

	mr.FastForward(6 * time.Second)
	if writing, _ := c.Writing(ctx, 3); writing {
		t.Fatal("window should expire")
	}

	_ = c.BeginWrite(ctx, 3)
	if err := c.EndWrite(ctx, 3); err != nil {
		t.Fatalf("EndWrite: %v", err)
	}
	if writing, _ := c.Writing(ctx, 3); writing {
		t.Fatal("expected closed window after EndWrite")
	}
	_ = c.Store(ctx, 3, msgs)
	if _, ok, _ := c.Load(ctx, 3); !ok {
		t.Fatal("snapshot should be cached once the window is closed")
	}
}

func TestSchemaCache(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	c := NewSchemaCache(client, time.Minute)

	users := &sqlagent.TableSchema{
		TableName:   "users",
		Columns:     []sqlagent.Column{{Name: "id", Type: "integer", Nullable: false}},
		PrimaryKeys: []string{"id"},
	}
	orders := &sqlagent.TableSchema{TableName: "orders"}
	for _, s := range []*sqlagent.TableSchema{users, orders} {
		if err := c.Set(ctx, 1, s); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	if err := c.Set(ctx, 2, users); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok, err := c.Get(ctx, 1, "users")
	if err != nil || !ok {
		t.Fatalf("expected hit, ok=%v err=%v", ok, err)
	}
	if got.TableName != "users" || len(got.Columns) != 1 || got.PrimaryKeys[0] != "id" {
		t.Fatalf("unexpected schema: %+v", got)
	}

	if err := c.InvalidateConnection(ctx, 1); err != nil {
		t.Fatalf("InvalidateConnection: %v", err)
	}
	if _, ok, _ := c.Get(ctx, 1, "orders"); ok {
		t.Fatal("connection 1 schemas should be gone")
	}
	if _, ok, _ := c.Get(ctx, 2, "users"); !ok {
		t.Fatal("connection 2 schemas should survive")
	}
}
