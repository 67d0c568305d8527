// Package store is the durable relational backing for stored messages: one
// table, written by the Post Worker (C7) and read with stable-pagination
// semantics by the Get Worker (C8).
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"
)

// Store wraps the single `message` table this bridge persists to.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres via the given DSN (see config.Config.PostgresDSN)
// and verifies the connection with a ping.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: db}, nil
}

// EnsureSchema creates the message table if it does not already exist.
// Called once at worker startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS message (
			id       SERIAL PRIMARY KEY,
			inserted TIMESTAMP NOT NULL DEFAULT now(),
			message  JSONB NOT NULL
		)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Insert persists payload as a new row and returns its assigned id. The
// strictly-increasing id invariant (Mi.id < Mj.id for i < j) follows
// directly from SERIAL allocation order, which matches broker delivery
// order since C7 consumes its queue with prefetch=1.
func (s *Store) Insert(ctx context.Context, payload json.RawMessage) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO message (message) VALUES ($1) RETURNING id`, []byte(payload),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert message: %w", err)
	}
	return id, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx runs fn inside a fresh transaction: commit on a nil return, rollback
// otherwise, and the transaction is always closed. This is the scoped
// resource the spec's design notes ask for in place of a decorator-injected
// session.
func (s *Store) WithTx(ctx context.Context, opts *sql.TxOptions, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %s)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
