package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chemstore/chemstore/internal/config"
)

// ErrClosed is returned by Conn after Close was called on a handle that never
// opened its connection.
var ErrClosed = errors.New("database handle is closed")

// Handle owns the single live connection to the backing store. Creation is
// lazy and happens at most once; an open failure is sticky and surfaced to
// every caller. Callers borrow the connection per call and must not retain
// state derived from it beyond immutable descriptors.
//
// The underlying store is accessed through one logical connection. Handle
// serializes access with an explicit mutex; operations that execute SQL take
// the lock for the duration of the statement.
type Handle struct {
	cfg     config.DatabaseConfig
	dialect Dialect

	once sync.Once
	mu   sync.Mutex
	db   *sql.DB
	err  error
}

func New(cfg config.DatabaseConfig) (*Handle, error) {
	dialect, err := dialectFor(cfg.Backend)
	if err != nil {
		return nil, err
	}
	return &Handle{cfg: cfg, dialect: dialect}, nil
}

// NewWithDB wires an already-open connection, bypassing lazy creation.
// Intended for tests and callers that manage the connection lifecycle
// themselves.
func NewWithDB(database *sql.DB, dialect Dialect) (*Handle, error) {
	if database == nil {
		return nil, fmt.Errorf("database is required")
	}
	if dialect == nil {
		return nil, fmt.Errorf("dialect is required")
	}
	h := &Handle{dialect: dialect}
	h.once.Do(func() { h.db = database })
	return h, nil
}

func DialectFor(backend config.Backend) (Dialect, error) {
	return dialectFor(backend)
}

func dialectFor(backend config.Backend) (Dialect, error) {
	switch backend {
	case config.BackendDuckDB:
		return duckdbDialect{}, nil
	case config.BackendPostgres:
		return postgresDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported database backend: %q", backend)
	}
}

// Conn returns the shared connection, opening it on first call. Concurrent
// first calls observe the same instance.
func (h *Handle) Conn(ctx context.Context) (*sql.DB, error) {
	h.once.Do(func() { h.db, h.err = h.open(ctx) })
	return h.db, h.err
}

func (h *Handle) Dialect() Dialect {
	return h.dialect
}

// Lock serializes statement execution against the shared connection.
func (h *Handle) Lock() { h.mu.Lock() }

func (h *Handle) Unlock() { h.mu.Unlock() }

// Close releases the shared connection. Firing the once first synchronizes
// with a concurrent lazy open and pins a handle that was never opened into
// the closed state.
func (h *Handle) Close() error {
	h.once.Do(func() { h.err = ErrClosed })
	if h.db == nil {
		return nil
	}
	return h.db.Close()
}

func (h *Handle) open(ctx context.Context) (*sql.DB, error) {
	dsn := h.cfg.DSN
	if h.cfg.Backend == config.BackendDuckDB {
		dsn = h.cfg.Path
	}
	database, err := sql.Open(h.dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", h.dialect.Name(), err)
	}

	// One logical connection; the file backend would otherwise hand out
	// independent connections from the pool.
	database.SetMaxOpenConns(1)
	database.SetMaxIdleConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := database.PingContext(pingCtx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("ping %s database: %w", h.dialect.Name(), err)
	}
	return database, nil
}
