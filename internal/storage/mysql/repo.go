// Package mysql implements a MySQL-backed storage.Repository using
// go-sql-driver/mysql through database/sql.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"github.com/gustavo84/jira-database-etl/internal/storage"
)

func init() {
	storage.Register("mysql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return NewRepository(ctx, cfg.DSN)
	})
}

// Repository is a MySQL-backed implementation of storage.Repository.
type Repository struct {
	db *sql.DB
}

// NewRepository opens a connection for the given DSN, e.g.
//
//	"user:pass@tcp(localhost:3306)/jira?charset=utf8mb4"
//
// and pings it so that an unreachable server fails the run up front.
func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("mysql: DSN must not be empty")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql: ping: %w", err)
	}
	return &Repository{db: db}, nil
}

// RecreateTable drops and recreates the table with every column typed TEXT.
// utf8mb4 keeps arbitrary issue content (emoji included) intact.
func (r *Repository) RecreateTable(ctx context.Context, table string, columns []string) error {
	if len(columns) == 0 {
		return fmt.Errorf("mysql: recreate %s: no columns", table)
	}

	if _, err := r.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+myIdent(table)); err != nil {
		return fmt.Errorf("mysql: drop %s: %w", table, err)
	}

	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = myIdent(c) + " TEXT"
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s) CHARACTER SET utf8mb4",
		myIdent(table), strings.Join(defs, ", "))
	if _, err := r.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("mysql: create %s: %w", table, err)
	}
	return nil
}

// InsertRows inserts rows with a prepared statement inside one transaction.
// The first failing row rolls the whole load back.
func (r *Repository) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("mysql: insert %s: no columns", table)
	}

	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	stmtSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		myIdent(table),
		strings.Join(mapIdent(columns), ", "),
		strings.Join(placeholders, ", "),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mysql: begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("mysql: prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for i, row := range rows {
		if len(row) != len(columns) {
			_ = tx.Rollback()
			return 0, fmt.Errorf("mysql: insert %s: row %d has %d values, want %d", table, i, len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("mysql: insert %s row %d: %w", table, i, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mysql: commit %s: %w", table, err)
	}
	return inserted, nil
}

// Close releases the underlying connection.
func (r *Repository) Close() { _ = r.db.Close() }

// myIdent quotes an identifier with backticks, escaping any backtick in the
// name itself.
func myIdent(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = myIdent(c)
	}
	return out
}
