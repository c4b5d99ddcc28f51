package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"agentic-rag/internal/ai"
	"agentic-rag/internal/model"
	"agentic-rag/internal/sqlagent"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:app_%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// letterEmbedder maps text to a letter-frequency vector, so texts sharing
// words score close to each other.
type letterEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (e *letterEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	vec := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			vec[r-'a']++
		}
	}
	return vec, nil
}

func (e *letterEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

type stubCompleter struct {
	reply    string
	err      error
	messages []ai.ChatMessage
}

func (c *stubCompleter) Complete(_ context.Context, messages []ai.ChatMessage) (string, error) {
	c.messages = messages
	return c.reply, c.err
}

type stubPublisher struct {
	mu   sync.Mutex
	jobs []interface{}
	err  error
}

func (p *stubPublisher) Publish(_ context.Context, v interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.jobs = append(p.jobs, v)
	return nil
}

type fakeTarget struct {
	tables   map[string]*sqlagent.TableSchema
	result   *sqlagent.Result
	execErr  error
	executed []string
}

func (f *fakeTarget) ListTables(context.Context) ([]string, error) {
	out := make([]string, 0, len(f.tables))
	for name := range f.tables {
		out = append(out, name)
	}
	return out, nil
}

func (f *fakeTarget) DescribeTable(_ context.Context, table string) (*sqlagent.TableSchema, error) {
	s, ok := f.tables[table]
	if !ok {
		return nil, sqlagent.ErrTableNotFound
	}
	return s, nil
}

func (f *fakeTarget) Execute(_ context.Context, sql string) (*sqlagent.Result, error) {
	f.executed = append(f.executed, sql)
	if f.execErr != nil {
		return nil, f.execErr
	}
	return f.result, nil
}

type fakeOpener struct {
	target    *fakeTarget
	err       error
	released  int
	forgotten []uint
}

func (o *fakeOpener) Open(context.Context, uint, string) (sqlagent.Target, func(), error) {
	if o.err != nil {
		return nil, nil, o.err
	}
	return o.target, func() { o.released++ }, nil
}

func (o *fakeOpener) Forget(id uint) {
	o.forgotten = append(o.forgotten, id)
}

var errBoom = errors.New("boom")
