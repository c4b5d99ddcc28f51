package sqlagent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"agentic-rag/internal/metrics"
	"agentic-rag/internal/platform/pgpool"
)

const (
	listTablesSQL = `SELECT table_name FROM information_schema.tables
WHERE table_schema = 'public' ORDER BY table_name`

	columnsSQL = `SELECT column_name, data_type, is_nullable FROM information_schema.columns
WHERE table_schema = 'public' AND table_name = $1 ORDER BY ordinal_position`

	primaryKeysSQL = `SELECT kcu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_schema = 'public' AND tc.table_name = $1
ORDER BY kcu.ordinal_position`

	foreignKeysSQL = `SELECT kcu.column_name, ccu.table_name, ccu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
JOIN information_schema.constraint_column_usage ccu
  ON ccu.constraint_name = tc.constraint_name AND ccu.table_schema = tc.table_schema
WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_schema = 'public' AND tc.table_name = $1
ORDER BY kcu.column_name`
)

type ExecOptions struct {
	ReadOnly bool
	Timeout  time.Duration
	MaxRows  int
}

// PostgresTarget implements Target over a pgx pool.
type PostgresTarget struct {
	pool *pgxpool.Pool
	opts ExecOptions
}

func NewPostgresTarget(pool *pgxpool.Pool, opts ExecOptions) *PostgresTarget {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRows <= 0 {
		opts.MaxRows = 1000
	}
	return &PostgresTarget{pool: pool, opts: opts}
}

func (t *PostgresTarget) ListTables(ctx context.Context) ([]string, error) {
	defer observe(time.Now())
	rows, err := t.pool.Query(ctx, listTablesSQL)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	tables, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return tables, nil
}

func (t *PostgresTarget) DescribeTable(ctx context.Context, table string) (*TableSchema, error) {
	defer observe(time.Now())

	rows, err := t.pool.Query(ctx, columnsSQL, table)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	columns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Column, error) {
		var c Column
		var nullable string
		err := row.Scan(&c.Name, &c.Type, &nullable)
		c.Nullable = nullable == "YES"
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan columns: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}

	rows, err = t.pool.Query(ctx, primaryKeysSQL, table)
	if err != nil {
		return nil, fmt.Errorf("query primary keys: %w", err)
	}
	pks, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan primary keys: %w", err)
	}

	rows, err = t.pool.Query(ctx, foreignKeysSQL, table)
	if err != nil {
		return nil, fmt.Errorf("query foreign keys: %w", err)
	}
	fks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ForeignKey, error) {
		var fk ForeignKey
		err := row.Scan(&fk.Column, &fk.ForeignTable, &fk.ForeignColumn)
		return fk, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan foreign keys: %w", err)
	}

	return &TableSchema{
		TableName:   table,
		Columns:     columns,
		PrimaryKeys: nonNil(pks),
		ForeignKeys: fks,
	}, nil
}

// Execute runs sql in its own transaction, read-only when configured, and
// returns at most MaxRows rows.
func (t *PostgresTarget) Execute(ctx context.Context, sql string) (*Result, error) {
	defer observe(time.Now())
	ctx, cancel := context.WithTimeout(ctx, t.opts.Timeout)
	defer cancel()

	txOpts := pgx.TxOptions{}
	if t.opts.ReadOnly {
		txOpts.AccessMode = pgx.ReadOnly
	}
	tx, err := t.pool.BeginTx(ctx, txOpts)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	rows, err := tx.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	data := make([]map[string]interface{}, 0)
	for rows.Next() {
		if len(data) >= t.opts.MaxRows {
			break
		}
		values, err := rows.Values()
		if err != nil {
			rows.Close()
			return nil, err
		}
		row := make(map[string]interface{}, len(values))
		for i, v := range values {
			row[columns[i]] = normalizeValue(v)
		}
		data = append(data, row)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	count := len(data)
	if len(columns) == 0 {
		count = int(rows.CommandTag().RowsAffected())
	}
	if !t.opts.ReadOnly {
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit: %w", err)
		}
	}
	return &Result{Columns: columns, Data: data, RowCount: count}, nil
}

func normalizeValue(v interface{}) interface{} {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case [16]byte:
		return uuid.UUID(x).String()
	default:
		return v
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func observe(start time.Time) {
	metrics.ObserveDependency("target_db", time.Since(start))
}

// PoolOpener connects to registered databases through a pgpool.Manager.
type PoolOpener struct {
	pools *pgpool.Manager
	opts  ExecOptions
}

func NewPoolOpener(pools *pgpool.Manager, opts ExecOptions) *PoolOpener {
	return &PoolOpener{pools: pools, opts: opts}
}

// Open leases the pool for the connection. The returned release func must be
// called when the caller is done with the target.
func (o *PoolOpener) Open(ctx context.Context, connectionID uint, dsn string) (Target, func(), error) {
	lease, err := o.pools.Acquire(ctx, connectionID, dsn)
	if err != nil {
		return nil, nil, err
	}
	return NewPostgresTarget(lease.Pool(), o.opts), lease.Release, nil
}

// Forget drops the pool held for a deleted connection.
func (o *PoolOpener) Forget(connectionID uint) {
	o.pools.Invalidate(connectionID)
}
