package app

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"agentic-rag/internal/ai"
	"agentic-rag/internal/model"
	"agentic-rag/internal/pkg/apperr"
	"agentic-rag/internal/pkg/logger"
	"agentic-rag/internal/repository"
	"agentic-rag/internal/sqlagent"
)

const queryHistoryLimit = 50

type SQLAgentService struct {
	connRepo    *repository.DatabaseConnectionRepository
	historyRepo *repository.QueryHistoryRepository
	targets     TargetOpener
	schemaCache SchemaCache
	completer   Completer
	guard       *sqlagent.Guard
	chat        *ChatService
}

// NewSQLAgentService wires the NL-to-SQL agent. schemaCache and chat may be nil.
func NewSQLAgentService(
	connRepo *repository.DatabaseConnectionRepository,
	historyRepo *repository.QueryHistoryRepository,
	targets TargetOpener,
	schemaCache SchemaCache,
	completer Completer,
	guard *sqlagent.Guard,
	chat *ChatService,
) *SQLAgentService {
	return &SQLAgentService{
		connRepo:    connRepo,
		historyRepo: historyRepo,
		targets:     targets,
		schemaCache: schemaCache,
		completer:   completer,
		guard:       guard,
		chat:        chat,
	}
}

type ConnectInput struct {
	UserID           uint
	Name             string
	Description      string
	DBType           string
	ConnectionString string
}

// Connect registers a target database for the user. The connection string is
// stored as given.
func (s *SQLAgentService) Connect(ctx context.Context, input ConnectInput) (*model.DatabaseConnection, error) {
	name := strings.TrimSpace(input.Name)
	dsn := strings.TrimSpace(input.ConnectionString)
	if name == "" || dsn == "" {
		return nil, apperr.Validation("name and connection_string are required")
	}
	dbType := strings.ToLower(strings.TrimSpace(input.DBType))
	switch dbType {
	case "", "postgres", model.DBTypePostgres:
		dbType = model.DBTypePostgres
	default:
		return nil, ErrUnsupportedDBType
	}
	if !strings.HasPrefix(dsn, "postgresql://") && !strings.HasPrefix(dsn, "postgres://") {
		return nil, ErrConnectionString
	}

	conn := &model.DatabaseConnection{
		UserID:           input.UserID,
		Name:             name,
		Description:      strings.TrimSpace(input.Description),
		DBType:           dbType,
		ConnectionString: dsn,
		IsActive:         true,
	}
	if err := s.connRepo.Create(ctx, conn); err != nil {
		return nil, err
	}
	ctxzap.Info(ctx, "database connection registered", zap.Uint("connection_id", conn.ID), zap.Uint("user_id", conn.UserID))
	return conn, nil
}

func (s *SQLAgentService) ListConnections(ctx context.Context, userID uint) ([]model.DatabaseConnection, error) {
	return s.connRepo.ListByUserID(ctx, userID)
}

func (s *SQLAgentService) GetConnection(ctx context.Context, userID, id uint) (*model.DatabaseConnection, error) {
	conn, err := s.connRepo.GetByIDAndUserID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, ErrConnectionNotFound
	}
	return conn, nil
}

func (s *SQLAgentService) DeleteConnection(ctx context.Context, userID, id uint) error {
	deleted, err := s.connRepo.Delete(ctx, id, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrConnectionNotFound
	}
	forgetConnection(ctx, s.targets, s.schemaCache, id)
	return nil
}

func (s *SQLAgentService) ListTables(ctx context.Context, userID, connectionID uint) ([]string, error) {
	target, release, err := s.open(ctx, userID, connectionID)
	if err != nil {
		return nil, err
	}
	defer release()

	tables, err := target.ListTables(ctx)
	if err != nil {
		return nil, ErrTargetUnavailable.WithCause(err)
	}
	if tables == nil {
		tables = []string{}
	}
	return tables, nil
}

func (s *SQLAgentService) TableSchema(ctx context.Context, userID, connectionID uint, table string) (*sqlagent.TableSchema, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		return nil, apperr.Validation("table name is required")
	}
	target, release, err := s.open(ctx, userID, connectionID)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.describe(ctx, target, connectionID, table)
}

type SQLQueryInput struct {
	UserID        uint
	ConnectionID  uint
	Question      string
	Tables        []string
	ChatHistoryID uint
}

// SQLQueryResult is returned for both successful and failed executions; a
// failed execution carries Error and Success=false.
type SQLQueryResult struct {
	SQLQuery string                   `json:"sql_query"`
	Success  bool                     `json:"success"`
	Data     []map[string]interface{} `json:"data,omitempty"`
	Columns  []string                 `json:"columns,omitempty"`
	RowCount int                      `json:"row_count"`
	Error    string                   `json:"error,omitempty"`
}

// Query generates SQL for the question from the schemas of the given tables
// (all public tables when none are given), vets it and runs it.
func (s *SQLAgentService) Query(ctx context.Context, input SQLQueryInput) (*SQLQueryResult, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, ErrQuestionRequired
	}
	ctx = logger.AddFields(logger.WithAction(ctx, "sql_query"),
		zap.Uint("user_id", input.UserID), zap.Uint("connection_id", input.ConnectionID))

	target, release, err := s.open(ctx, input.UserID, input.ConnectionID)
	if err != nil {
		return nil, err
	}
	defer release()

	tables := input.Tables
	if len(tables) == 0 {
		if tables, err = target.ListTables(ctx); err != nil {
			return nil, ErrTargetUnavailable.WithCause(err)
		}
	}
	schemas := make([]sqlagent.TableSchema, 0, len(tables))
	for _, table := range tables {
		schema, err := s.describe(ctx, target, input.ConnectionID, strings.TrimSpace(table))
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, *schema)
	}

	reply, err := s.completer.Complete(ctx, []ai.ChatMessage{
		{Role: model.MessageRoleSystem, Content: sqlagent.SystemPrompt},
		{Role: model.MessageRoleUser, Content: sqlagent.BuildPrompt(question, schemas)},
	})
	if err != nil {
		return nil, ErrCompletionFailed.WithCause(err)
	}
	sql := sqlagent.ExtractSQL(reply)

	if err := s.guard.Check(sql); err != nil {
		s.record(ctx, input, sql, &SQLQueryResult{SQLQuery: sql, Error: err.Error()})
		ctxzap.Extract(ctx).Warn("generated sql rejected", zap.String("sql", sql), zap.Error(err))
		return nil, ErrUnsafeQuery.WithCause(err)
	}

	result := &SQLQueryResult{SQLQuery: sql}
	rows, err := target.Execute(ctx, sql)
	if err != nil {
		result.Error = err.Error()
		ctxzap.Extract(ctx).Info("generated sql failed", zap.String("sql", sql), zap.Error(err))
	} else {
		result.Success = true
		result.Data = rows.Data
		result.Columns = rows.Columns
		result.RowCount = rows.RowCount
		ctxzap.Info(ctx, "generated sql executed", zap.Int("row_count", rows.RowCount))
	}
	s.record(ctx, input, sql, result)

	if s.chat != nil && input.ChatHistoryID != 0 {
		if err := s.chat.RecordExchange(ctx, input.UserID, input.ChatHistoryID, model.AgentTypeSQL, question, sql); err != nil {
			ctxzap.Extract(ctx).Warn("record sql exchange failed", zap.Uint("chat_history_id", input.ChatHistoryID), zap.Error(err))
		}
	}
	return result, nil
}

type QueryHistoryEntry struct {
	model.QueryHistory
	Result json.RawMessage `json:"result"`
}

// History returns the user's most recent queries, newest first.
func (s *SQLAgentService) History(ctx context.Context, userID uint) ([]QueryHistoryEntry, error) {
	list, err := s.historyRepo.ListRecentByUserID(ctx, userID, queryHistoryLimit)
	if err != nil {
		return nil, err
	}
	out := make([]QueryHistoryEntry, len(list))
	for i, h := range list {
		out[i] = QueryHistoryEntry{QueryHistory: h, Result: json.RawMessage("null")}
		if json.Valid([]byte(h.Result)) {
			out[i].Result = json.RawMessage(h.Result)
		}
	}
	return out, nil
}

func (s *SQLAgentService) open(ctx context.Context, userID, connectionID uint) (sqlagent.Target, func(), error) {
	conn, err := s.GetConnection(ctx, userID, connectionID)
	if err != nil {
		return nil, nil, err
	}
	target, release, err := s.targets.Open(ctx, conn.ID, conn.ConnectionString)
	if err != nil {
		return nil, nil, ErrTargetUnavailable.WithCause(err)
	}
	return target, release, nil
}

func (s *SQLAgentService) describe(ctx context.Context, target sqlagent.Introspector, connectionID uint, table string) (*sqlagent.TableSchema, error) {
	if s.schemaCache != nil {
		if schema, hit, err := s.schemaCache.Get(ctx, connectionID, table); err == nil && hit {
			return schema, nil
		}
	}
	schema, err := target.DescribeTable(ctx, table)
	if errors.Is(err, sqlagent.ErrTableNotFound) {
		return nil, ErrTableNotFound.WithCause(err)
	}
	if err != nil {
		return nil, ErrTargetUnavailable.WithCause(err)
	}
	if s.schemaCache != nil {
		if err := s.schemaCache.Set(ctx, connectionID, schema); err != nil {
			ctxzap.Extract(ctx).Debug("schema cache write failed", zap.Error(err))
		}
	}
	return schema, nil
}

func (s *SQLAgentService) record(ctx context.Context, input SQLQueryInput, sql string, result *SQLQueryResult) {
	h := &model.QueryHistory{
		UserID:       input.UserID,
		ConnectionID: input.ConnectionID,
		Question:     strings.TrimSpace(input.Question),
		SQLQuery:     sql,
		Success:      result.Success,
	}
	h.SetResult(result)
	if err := s.historyRepo.Create(ctx, h); err != nil {
		ctxzap.Extract(ctx).Warn("save query history failed", zap.Error(err))
	}
}
