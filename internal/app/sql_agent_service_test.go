package app

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"agentic-rag/internal/model"
	"agentic-rag/internal/pkg/apperr"
	"agentic-rag/internal/repository"
	"agentic-rag/internal/sqlagent"
)

type sqlFixture struct {
	agent     *SQLAgentService
	chat      *ChatService
	opener    *fakeOpener
	completer *stubCompleter
	conn      *model.DatabaseConnection
}

func newSQLFixture(t *testing.T) *sqlFixture {
	t.Helper()
	db := openTestDB(t)
	f := &sqlFixture{
		opener: &fakeOpener{target: &fakeTarget{
			tables: map[string]*sqlagent.TableSchema{
				"users": {
					TableName:   "users",
					Columns:     []sqlagent.Column{{Name: "id", Type: "integer"}, {Name: "name", Type: "text", Nullable: true}},
					PrimaryKeys: []string{"id"},
				},
			},
			result: &sqlagent.Result{
				Columns:  []string{"count"},
				Data:     []map[string]interface{}{{"count": int64(3)}},
				RowCount: 1,
			},
		}},
		completer: &stubCompleter{reply: "```sql\nSELECT count(*) FROM users;\n```"},
	}
	f.chat = NewChatService(repository.NewChatHistoryRepository(db), repository.NewMessageRepository(db), nil, nil)
	f.agent = NewSQLAgentService(
		repository.NewDatabaseConnectionRepository(db),
		repository.NewQueryHistoryRepository(db),
		f.opener, nil, f.completer, sqlagent.NewGuard(true), f.chat,
	)
	conn, err := f.agent.Connect(context.Background(), ConnectInput{UserID: 1, Name: "shop", ConnectionString: "postgresql://u:p@db:5432/shop"})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	f.conn = conn
	return f
}

func TestConnectValidation(t *testing.T) {
	ctx := context.Background()
	f := newSQLFixture(t)
	if f.conn.DBType != model.DBTypePostgres {
		t.Fatalf("default db type: %q", f.conn.DBType)
	}

	cases := []struct {
		in   ConnectInput
		want error
	}{
		{ConnectInput{UserID: 1, Name: "x", DBType: "mysql", ConnectionString: "mysql://db"}, ErrUnsupportedDBType},
		{ConnectInput{UserID: 1, Name: "x", ConnectionString: "mysql://db"}, ErrConnectionString},
	}
	for _, c := range cases {
		if _, err := f.agent.Connect(ctx, c.in); !errors.Is(err, c.want) {
			t.Errorf("Connect(%+v) = %v, want %v", c.in, err, c.want)
		}
	}
	if _, err := f.agent.Connect(ctx, ConnectInput{UserID: 1, ConnectionString: "postgres://db"}); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("missing name: %v", err)
	}
}

func TestSQLQuerySuccess(t *testing.T) {
	ctx := context.Background()
	f := newSQLFixture(t)
	history, err := f.chat.CreateHistory(ctx, CreateHistoryInput{UserID: 1, AgentType: model.AgentTypeSQL})
	if err != nil {
		t.Fatalf("create history: %v", err)
	}

	res, err := f.agent.Query(ctx, SQLQueryInput{UserID: 1, ConnectionID: f.conn.ID, Question: "how many users?", ChatHistoryID: history.ID})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !res.Success || res.SQLQuery != "SELECT count(*) FROM users;" || res.RowCount != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if f.opener.released != 1 {
		t.Fatalf("target released %d times", f.opener.released)
	}
	prompt := f.completer.messages[1].Content
	if !strings.Contains(prompt, `"table_name": "users"`) || !strings.Contains(prompt, "how many users?") {
		t.Fatalf("prompt missing schema or question: %s", prompt)
	}

	entries, err := f.agent.History(ctx, 1)
	if err != nil || len(entries) != 1 || !entries[0].Success {
		t.Fatalf("history: %+v %v", entries, err)
	}
	var stored SQLQueryResult
	if err := json.Unmarshal(entries[0].Result, &stored); err != nil || stored.RowCount != 1 {
		t.Fatalf("stored result: %+v %v", stored, err)
	}

	msgs, err := f.chat.GetMessages(ctx, 1, history.ID, 0)
	if err != nil || len(msgs) != 2 || msgs[1].Content != res.SQLQuery {
		t.Fatalf("exchange not recorded: %+v %v", msgs, err)
	}
}

func TestSQLQueryRejectedByGuard(t *testing.T) {
	ctx := context.Background()
	f := newSQLFixture(t)
	f.completer.reply = "DROP TABLE users;"

	_, err := f.agent.Query(ctx, SQLQueryInput{UserID: 1, ConnectionID: f.conn.ID, Question: "remove users"})
	if !errors.Is(err, ErrUnsafeQuery) || apperr.KindOf(err) != apperr.KindUnprocessable {
		t.Fatalf("expected unsafe query, got %v", err)
	}
	if len(f.opener.target.executed) != 0 {
		t.Fatalf("rejected sql was executed: %v", f.opener.target.executed)
	}
	entries, err := f.agent.History(ctx, 1)
	if err != nil || len(entries) != 1 || entries[0].Success {
		t.Fatalf("rejected query must be recorded as failed: %+v %v", entries, err)
	}
}

func TestSQLQueryExecutionFailure(t *testing.T) {
	ctx := context.Background()
	f := newSQLFixture(t)
	f.opener.target.execErr = errors.New(`relation "userz" does not exist`)

	res, err := f.agent.Query(ctx, SQLQueryInput{UserID: 1, ConnectionID: f.conn.ID, Question: "count", Tables: []string{"users"}})
	if err != nil {
		t.Fatalf("execution errors are reported in the result: %v", err)
	}
	if res.Success || !strings.Contains(res.Error, "does not exist") {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestSQLQueryErrors(t *testing.T) {
	ctx := context.Background()
	f := newSQLFixture(t)

	if _, err := f.agent.Query(ctx, SQLQueryInput{UserID: 1, ConnectionID: f.conn.ID}); !errors.Is(err, ErrQuestionRequired) {
		t.Fatalf("empty question: %v", err)
	}
	if _, err := f.agent.Query(ctx, SQLQueryInput{UserID: 2, ConnectionID: f.conn.ID, Question: "q"}); !errors.Is(err, ErrConnectionNotFound) {
		t.Fatalf("foreign connection: %v", err)
	}
	_, err := f.agent.Query(ctx, SQLQueryInput{UserID: 1, ConnectionID: f.conn.ID, Question: "q", Tables: []string{"nope"}})
	if !errors.Is(err, ErrTableNotFound) || apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("unknown table: %v", err)
	}
	if _, err := f.agent.TableSchema(ctx, 1, f.conn.ID, "nope"); !errors.Is(err, ErrTableNotFound) {
		t.Fatalf("unknown table schema: %v", err)
	}

	f.completer.err = errBoom
	if _, err := f.agent.Query(ctx, SQLQueryInput{UserID: 1, ConnectionID: f.conn.ID, Question: "q"}); !errors.Is(err, ErrCompletionFailed) {
		t.Fatalf("completion failure: %v", err)
	}

	f.opener.err = errBoom
	if _, err := f.agent.ListTables(ctx, 1, f.conn.ID); !errors.Is(err, ErrTargetUnavailable) || apperr.KindOf(err) != apperr.KindUpstream {
		t.Fatalf("unreachable target: %v", err)
	}
}

func TestSQLDeleteConnection(t *testing.T) {
	ctx := context.Background()
	f := newSQLFixture(t)

	if err := f.agent.DeleteConnection(ctx, 2, f.conn.ID); !errors.Is(err, ErrConnectionNotFound) {
		t.Fatalf("foreign delete: %v", err)
	}
	if err := f.agent.DeleteConnection(ctx, 1, f.conn.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(f.opener.forgotten) != 1 {
		t.Fatalf("pool not forgotten: %v", f.opener.forgotten)
	}
	conns, err := f.agent.ListConnections(ctx, 1)
	if err != nil || len(conns) != 0 {
		t.Fatalf("connections left: %+v %v", conns, err)
	}
}
