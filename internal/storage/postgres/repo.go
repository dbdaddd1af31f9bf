// Package postgres implements a Postgres storage.Repository using pgx v5.
// Table loads run as per-row INSERTs inside one transaction so a failed row
// rolls the whole table load back.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gustavo84/jira-database-etl/internal/storage"
)

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return NewRepository(ctx, cfg.DSN)
	})
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository opens a pgx pool for the given DSN and pings it so that an
// unreachable server fails the run up front instead of at the first table.
func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Repository{pool: pool}, nil
}

// RecreateTable drops and recreates the table with every column typed TEXT.
// Each statement commits on its own, mirroring the pipeline's drop-and-
// recreate ownership model.
func (r *Repository) RecreateTable(ctx context.Context, table string, columns []string) error {
	if len(columns) == 0 {
		return fmt.Errorf("postgres: recreate %s: no columns", table)
	}

	if _, err := r.pool.Exec(ctx, "DROP TABLE IF EXISTS "+pgFQN(table)); err != nil {
		return fmt.Errorf("postgres: drop %s: %w", table, err)
	}

	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = pgIdent(c) + " TEXT"
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", pgFQN(table), strings.Join(defs, ", "))
	if _, err := r.pool.Exec(ctx, create); err != nil {
		return fmt.Errorf("postgres: create %s: %w", table, pgDetail(err))
	}
	return nil
}

// InsertRows inserts rows one statement at a time inside a transaction.
// The first failing row aborts and rolls back the load.
func (r *Repository) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("postgres: insert %s: no columns", table)
	}

	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	insert := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		pgFQN(table),
		strings.Join(mapIdent(columns), ","),
		strings.Join(placeholders, ","),
	)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var inserted int64
	for i, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("postgres: insert %s: row %d has %d values, want %d", table, i, len(row), len(columns))
		}
		if _, err := tx.Exec(ctx, insert, row...); err != nil {
			return 0, fmt.Errorf("postgres: insert %s row %d: %w", table, i, pgDetail(err))
		}
		inserted++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres: commit %s: %w", table, err)
	}
	return inserted, nil
}

// Close releases the pool.
func (r *Repository) Close() { r.pool.Close() }

// pgDetail surfaces the server-side detail of a pgconn error, which is where
// Postgres puts the interesting part of DDL and constraint failures.
func pgDetail(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%s (%s): %w", pgErr.Detail, pgErr.SQLState(), err)
	}
	return err
}

// pgIdent safely quotes a single identifier segment for Postgres.
func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// pgFQN quotes a possibly schema-qualified name like "public.jira_subtasks"
// to "public"."jira_subtasks". If no dot is present, returns a single quoted
// identifier.
func pgFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pgIdent(p)
	}
	return strings.Join(parts, ".")
}

// mapIdent maps a list of column names to their quoted forms.
func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = pgIdent(c)
	}
	return out
}
