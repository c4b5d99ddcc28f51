package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	amqp "github.com/rabbitmq/amqp091-go"
	redisv9 "github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"agentic-rag/internal/app"
	"agentic-rag/internal/cache"
	"agentic-rag/internal/model"
	"agentic-rag/internal/repository"
)

type recordingProcessor struct {
	ids []uint
	err error
}

func (p *recordingProcessor) Process(_ context.Context, id uint) error {
	p.ids = append(p.ids, id)
	return p.err
}

func TestIngestWorkerHandle(t *testing.T) {
	ctx := context.Background()
	proc := &recordingProcessor{}
	w := NewIngestWorker(proc)

	body, _ := json.Marshal(app.IngestJob{DocumentID: 12})
	if err := w.Handle(ctx, body); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(proc.ids) != 1 || proc.ids[0] != 12 {
		t.Fatalf("processed %v", proc.ids)
	}

	if err := w.Handle(ctx, []byte("{not json")); err == nil {
		t.Fatal("expected decode error")
	}
	if err := w.Handle(ctx, []byte(`{}`)); err == nil {
		t.Fatal("expected missing id error")
	}

	proc.err = errors.New("embedding down")
	if err := w.Handle(ctx, body); !errors.Is(err, proc.err) {
		t.Fatalf("expected processor error, got %v", err)
	}
}

func TestMessagePersistWorkerHandle(t *testing.T) {
	ctx := context.Background()
	db, err := gorm.Open(sqlite.Open("file:worker_persist?mode=memory&cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })

	mr := miniredis.RunT(t)
	client := redisv9.NewClient(&redisv9.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	hc := cache.NewHistoryCache(client, time.Minute, time.Minute)

	if err := hc.Store(ctx, 3, []model.Message{{ID: 99, ChatHistoryID: 3, Content: "stale"}}); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := hc.BeginWrite(ctx, 3); err != nil {
		t.Fatalf("begin write: %v", err)
	}

	messages := repository.NewMessageRepository(db)
	w := NewMessagePersistWorker(messages, hc)
	body, _ := json.Marshal(model.Message{ChatHistoryID: 3, UserID: 1, Role: model.MessageRoleUser, Content: "hi", CreatedAt: time.Now()})
	if err := w.Handle(ctx, body); err != nil {
		t.Fatalf("handle: %v", err)
	}

	stored, err := messages.ListByChatHistoryID(ctx, 3, 0)
	if err != nil || len(stored) != 1 || stored[0].Content != "hi" {
		t.Fatalf("stored: %+v %v", stored, err)
	}
	if writing, _ := hc.Writing(ctx, 3); writing {
		t.Fatal("write window must be closed after persisting")
	}
	if _, hit, _ := hc.Load(ctx, 3); hit {
		t.Fatal("cached history must be invalidated after persisting")
	}

	if err := w.Handle(ctx, []byte(`{"content":"orphan"}`)); err == nil {
		t.Fatal("expected error for message without history")
	}
}

type recordingAcker struct {
	acked    int
	nacked   int
	requeued bool
}

func (a *recordingAcker) Ack(uint64, bool) error {
	a.acked++
	return nil
}

func (a *recordingAcker) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked++
	a.requeued = requeue
	return nil
}

func (a *recordingAcker) Reject(_ uint64, requeue bool) error {
	return a.Nack(0, false, requeue)
}

func TestConsumerDispatch(t *testing.T) {
	failing := errors.New("handler failed")
	tests := []struct {
		name        string
		err         error
		cancelled   bool
		wantAck     int
		wantNack    int
		wantRequeue bool
	}{
		{name: "success acks", wantAck: 1},
		{name: "failure drops", err: failing, wantNack: 1},
		{name: "failure during shutdown requeues", err: failing, cancelled: true, wantNack: 1, wantRequeue: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tt.cancelled {
				cancel()
			}
			c := NewConsumer(nil, "q", func(context.Context, []byte) error { return tt.err })
			acker := &recordingAcker{}
			c.dispatch(ctx, amqp.Delivery{Acknowledger: acker, DeliveryTag: 1})
			if acker.acked != tt.wantAck || acker.nacked != tt.wantNack || acker.requeued != tt.wantRequeue {
				t.Fatalf("acked=%d nacked=%d requeued=%v", acker.acked, acker.nacked, acker.requeued)
			}
		})
	}
}
