// Package storage contains the storage-agnostic contracts used by the
// dynamic table pipeline, plus a factory/registry so that callers can stay
// backend-agnostic.
//
// The contract is intentionally small: the pipeline owns its tables outright
// and only needs two operations per table, a destructive recreate and a
// row-by-row insert. Backends (postgres, mysql, sqlite, mssql) register
// themselves with the factory at init time; importing internal/storage/all
// enables all built-in backends.
package storage

import (
	"context"
	"fmt"
	"sync"
)

// Config is the minimal configuration needed to open a Repository.
//
// Kind must match a registered backend kind ("postgres", "mysql", "sqlite",
// "mssql").
// DSN is passed through to the backend factory; validation is backend-specific.
type Config struct {
	Kind string
	DSN  string
}

// Repository is a backend-agnostic handle to the relational store.
//
// Semantics required from implementations:
//
//   - RecreateTable drops the named table if it exists and creates it fresh
//     with one unconstrained-text column per entry in columns, in order.
//     The operation commits on its own; it is not atomic with a following
//     InsertRows. Identifiers originate from untrusted JSON keys and must be
//     quoted for arbitrary UTF-8 content.
//
//   - InsertRows inserts each row (positionally aligned with columns) into
//     the named table. The whole load runs in one transaction: the first
//     failing row aborts and rolls back the load, leaving the freshly
//     recreated table empty rather than partially filled. Returns the number
//     of rows inserted on success.
//
//   - Close releases connections. Call once at process shutdown.
type Repository interface {
	RecreateTable(ctx context.Context, table string, columns []string) error
	InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
	Close()
}

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	factoryMu sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend factory under a kind. It is called from
// backend packages' init() functions. Registering an empty kind, a nil
// factory, or a duplicate kind panics so that a bad build fails fast.
func Register(kind string, f factory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New opens a Repository using the registered factory for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing Kind")
	}

	factoryMu.RLock()
	f := factories[cfg.Kind]
	factoryMu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("storage: unsupported storage.kind=%q", cfg.Kind)
	}
	return f(ctx, cfg)
}
