// Package sqlite is the reference backend: a full Backend implementation
// over database/sql with the pure-Go SQLite driver. It serves both as the
// embedded development database and as the template other backends follow.
package sqlite

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/quarrydb/quarry/internal/qerr"
	"github.com/quarrydb/quarry/pkg/backend"
	"github.com/quarrydb/quarry/pkg/dialect"
	"github.com/quarrydb/quarry/pkg/primitive"
	"github.com/quarrydb/quarry/pkg/schema"
)

// Manager owns the SQLite connection pool and hands out backends scoped to
// a transaction or a pinned connection.
type Manager struct {
	db  *sql.DB
	log *slog.Logger

	mu    sync.Mutex
	rels  map[*schema.Entity]*schema.Relation
	stmts map[string]*sql.Stmt
}

var _ backend.Manager[int64] = (*Manager)(nil)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the structured logger; the default discards nothing and
// logs through slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// Open opens (or creates) the database at the given DSN. Use ":memory:" for
// an in-process throwaway database. Foreign key enforcement is switched on,
// matching the semantics the planner assumes.
func Open(dsn string, opts ...Option) (*Manager, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, qerr.Wrap(qerr.ErrSQLConnection, err, "cannot open sqlite database").
			With("dsn", dsn)
	}
	if strings.Contains(dsn, ":memory:") {
		// Each pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, qerr.Wrap(qerr.ErrSQLConnection, err, "cannot enable foreign keys")
	}

	m := &Manager{
		db:    db,
		log:   slog.Default(),
		rels:  make(map[*schema.Entity]*schema.Relation),
		stmts: make(map[string]*sql.Stmt),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// WithTransaction runs fn inside a transaction: commit on nil, rollback on
// error. The backend passed to fn is bound to the transaction's connection.
func (m *Manager) WithTransaction(ctx context.Context, fn func(ctx context.Context, b backend.Backend[int64]) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return qerr.Wrap(qerr.ErrTransaction, err, "cannot begin transaction")
	}

	b := m.newStore(tx, tx)
	if err := fn(ctx, b); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			m.log.Error("rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return qerr.Wrap(qerr.ErrTransaction, err, "cannot commit transaction")
	}
	return nil
}

// WithoutTransaction runs fn with every operation pinned to one connection
// but without atomicity.
func (m *Manager) WithoutTransaction(ctx context.Context, fn func(ctx context.Context, b backend.Backend[int64]) error) error {
	conn, err := m.db.Conn(ctx)
	if err != nil {
		return qerr.Wrap(qerr.ErrSQLConnection, err, "cannot pin connection")
	}
	defer conn.Close()

	return fn(ctx, m.newStore(conn, nil))
}

// Backend returns an unpinned backend over the pool, for operations that
// need neither transactionality nor connection affinity.
func (m *Manager) Backend() backend.Backend[int64] {
	s := m.newStore(m.db, nil)
	s.bound = false
	return s
}

// Close releases cached statements and the pool.
func (m *Manager) Close() error {
	m.mu.Lock()
	for _, st := range m.stmts {
		st.Close()
	}
	m.stmts = map[string]*sql.Stmt{}
	m.mu.Unlock()
	return m.db.Close()
}

// relation returns the cached flattened form of an entity.
func (m *Manager) relation(e *schema.Entity, desc schema.Descriptor) (*schema.Relation, error) {
	m.mu.Lock()
	rel, ok := m.rels[e]
	m.mu.Unlock()
	if ok {
		return rel, nil
	}

	rel, err := schema.Flatten(e, desc)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.rels[e] = rel
	m.mu.Unlock()
	return rel, nil
}

// cachedStmt prepares and caches a statement on the pool. Only pool-scoped
// executors may use the cache; transaction and connection scoped backends
// prepare per call.
func (m *Manager) cachedStmt(ctx context.Context, sqlText string) (*sql.Stmt, error) {
	m.mu.Lock()
	st, ok := m.stmts[sqlText]
	m.mu.Unlock()
	if ok {
		return st, nil
	}

	st, err := m.db.PrepareContext(ctx, sqlText)
	if err != nil {
		return nil, qerr.Wrap(qerr.ErrSQLExecution, err, "cannot prepare statement").
			WithSQL(sqlText)
	}
	m.mu.Lock()
	m.stmts[sqlText] = st
	m.mu.Unlock()
	return st, nil
}

// executor is the common surface of *sql.DB, *sql.Tx, and *sql.Conn.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (m *Manager) newStore(x executor, tx *sql.Tx) *store {
	return &store{
		mgr:   m,
		x:     x,
		tx:    tx,
		d:     dialect.SQLite(),
		log:   m.log,
		bound: true,
	}
}

// descriptor is the backend descriptor: the SQLite dialect plus raw payload
// construction.
type descriptor struct {
	dialect.Dialect
}

// RawExpr wraps a ?-template and its values as the payload the renderer
// understands.
func (descriptor) RawExpr(template string, args ...primitive.Value) (any, error) {
	return dialect.RawSQL{Template: template, Args: args}, nil
}
