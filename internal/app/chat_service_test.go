package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisv9 "github.com/redis/go-redis/v9"

	"agentic-rag/internal/cache"
	"agentic-rag/internal/model"
	"agentic-rag/internal/repository"
)

func newChatFixture(t *testing.T, publisher Publisher) (*ChatService, *repository.MessageRepository) {
	t.Helper()
	db := openTestDB(t)
	messages := repository.NewMessageRepository(db)
	return NewChatService(repository.NewChatHistoryRepository(db), messages, publisher, nil), messages
}

func TestChatHistoryLifecycle(t *testing.T) {
	ctx := context.Background()
	chat, _ := newChatFixture(t, nil)

	h, err := chat.CreateHistory(ctx, CreateHistoryInput{UserID: 1, AgentType: model.AgentTypeSQL})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if h.Title != "New Chat" {
		t.Fatalf("default title: %q", h.Title)
	}
	if _, err := chat.CreateHistory(ctx, CreateHistoryInput{UserID: 1, AgentType: "OTHER"}); !errors.Is(err, ErrInvalidAgentType) {
		t.Fatalf("invalid agent type: %v", err)
	}
	if _, err := chat.CreateHistory(ctx, CreateHistoryInput{UserID: 1, AgentType: model.AgentTypeDocument, Title: "Docs"}); err != nil {
		t.Fatalf("create second: %v", err)
	}

	sqlOnly, err := chat.ListHistories(ctx, 1, model.AgentTypeSQL)
	if err != nil || len(sqlOnly) != 1 {
		t.Fatalf("filter by agent type: %+v %v", sqlOnly, err)
	}
	all, err := chat.ListHistories(ctx, 1, "")
	if err != nil || len(all) != 2 {
		t.Fatalf("list all: %+v %v", all, err)
	}

	for _, content := range []string{"first", "second", "third"} {
		if _, err := chat.AppendMessage(ctx, AppendMessageInput{UserID: 1, ChatHistoryID: h.ID, Content: content}); err != nil {
			t.Fatalf("append %s: %v", content, err)
		}
	}
	last, err := chat.GetMessages(ctx, 1, h.ID, 2)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(last) != 2 || last[0].Content != "second" || last[1].Content != "third" {
		t.Fatalf("expected the two newest in order, got %+v", last)
	}

	if _, err := chat.GetMessages(ctx, 2, h.ID, 0); !errors.Is(err, ErrChatHistoryNotFound) {
		t.Fatalf("foreign history: %v", err)
	}
	if err := chat.DeleteHistory(ctx, 2, h.ID); !errors.Is(err, ErrChatHistoryNotFound) {
		t.Fatalf("foreign delete: %v", err)
	}
	if err := chat.DeleteHistory(ctx, 1, h.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := chat.GetMessages(ctx, 1, h.ID, 0); !errors.Is(err, ErrChatHistoryNotFound) {
		t.Fatalf("deleted history: %v", err)
	}
}

func TestAppendMessageValidation(t *testing.T) {
	ctx := context.Background()
	chat, _ := newChatFixture(t, nil)
	h, err := chat.CreateHistory(ctx, CreateHistoryInput{UserID: 1, AgentType: model.AgentTypeSQL})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := chat.AppendMessage(ctx, AppendMessageInput{UserID: 1, ChatHistoryID: h.ID, Content: "  "}); !errors.Is(err, ErrMessageEmpty) {
		t.Fatalf("empty content: %v", err)
	}
	if _, err := chat.AppendMessage(ctx, AppendMessageInput{UserID: 1, ChatHistoryID: h.ID, Role: "tool", Content: "x"}); !errors.Is(err, ErrInvalidMessageRole) {
		t.Fatalf("bad role: %v", err)
	}
	if err := chat.RecordExchange(ctx, 1, h.ID, model.AgentTypeDocument, "q", "a"); !errors.Is(err, ErrChatHistoryAgentType) {
		t.Fatalf("agent mismatch: %v", err)
	}
}

func TestAppendMessagePublishes(t *testing.T) {
	ctx := context.Background()
	pub := &stubPublisher{}
	chat, messages := newChatFixture(t, pub)
	h, err := chat.CreateHistory(ctx, CreateHistoryInput{UserID: 1, AgentType: model.AgentTypeSQL})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := chat.AppendMessage(ctx, AppendMessageInput{UserID: 1, ChatHistoryID: h.ID, Content: "queued"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(pub.jobs) != 1 || pub.jobs[0].(model.Message).Content != "queued" {
		t.Fatalf("unexpected jobs %+v", pub.jobs)
	}
	stored, err := messages.ListByChatHistoryID(ctx, h.ID, 0)
	if err != nil || len(stored) != 0 {
		t.Fatalf("published message must not be written directly: %+v %v", stored, err)
	}

	pub.err = errBoom
	if _, err := chat.AppendMessage(ctx, AppendMessageInput{UserID: 1, ChatHistoryID: h.ID, Content: "direct"}); err != nil {
		t.Fatalf("append with failing publisher: %v", err)
	}
	stored, err = messages.ListByChatHistoryID(ctx, h.ID, 0)
	if err != nil || len(stored) != 1 || stored[0].Content != "direct" {
		t.Fatalf("expected direct write, got %+v %v", stored, err)
	}
}

func TestDirectWriteClosesCacheWindow(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	mr := miniredis.RunT(t)
	client := redisv9.NewClient(&redisv9.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	hc := cache.NewHistoryCache(client, time.Minute, time.Minute)

	for _, tt := range []struct {
		name      string
		publisher Publisher
	}{
		{name: "no publisher"},
		{name: "publish failure", publisher: &stubPublisher{err: errBoom}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			chat := NewChatService(repository.NewChatHistoryRepository(db), repository.NewMessageRepository(db), tt.publisher, hc)
			h, err := chat.CreateHistory(ctx, CreateHistoryInput{UserID: 1, AgentType: model.AgentTypeDocument})
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if _, err := chat.AppendMessage(ctx, AppendMessageInput{UserID: 1, ChatHistoryID: h.ID, Role: model.MessageRoleUser, Content: "hi"}); err != nil {
				t.Fatalf("append: %v", err)
			}
			if writing, _ := hc.Writing(ctx, h.ID); writing {
				t.Fatal("write window must close after a direct write")
			}
			if _, err := chat.GetMessages(ctx, 1, h.ID, 0); err != nil {
				t.Fatalf("get messages: %v", err)
			}
			cached, hit, err := hc.Load(ctx, h.ID)
			if err != nil || !hit || len(cached) != 1 {
				t.Fatalf("expected cached snapshot, hit=%v len=%d err=%v", hit, len(cached), err)
			}
		})
	}
}
