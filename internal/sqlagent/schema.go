// Package sqlagent introspects target databases and turns model output into
// executable, vetted SQL.
package sqlagent

import (
	"context"
	"errors"
)

var ErrTableNotFound = errors.New("table not found")

type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

type ForeignKey struct {
	Column        string `json:"column"`
	ForeignTable  string `json:"foreign_table"`
	ForeignColumn string `json:"foreign_column"`
}

type TableSchema struct {
	TableName   string       `json:"table_name"`
	Columns     []Column     `json:"columns"`
	PrimaryKeys []string     `json:"primary_keys"`
	ForeignKeys []ForeignKey `json:"foreign_keys"`
}

// Result is the outcome of running one statement.
type Result struct {
	Columns  []string                 `json:"columns"`
	Data     []map[string]interface{} `json:"data"`
	RowCount int                      `json:"row_count"`
}

type Introspector interface {
	ListTables(ctx context.Context) ([]string, error)
	DescribeTable(ctx context.Context, table string) (*TableSchema, error)
}

type Executor interface {
	Execute(ctx context.Context, sql string) (*Result, error)
}

// Target is a connected database the agent can inspect and query.
type Target interface {
	Introspector
	Executor
}
