package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/meetsburg/internal/persistence"
	_ "modernc.org/sqlite"
)

// ConnectionPool manages the SQLite handle with transaction support. The
// pool is capped at a single open connection: there is exactly one store
// instance, and single-writer-at-a-time semantics keep conflicting writers
// serialized by the engine itself.
type ConnectionPool struct {
	db *sql.DB
}

// NewConnectionPool opens the database described by dsn.
func NewConnectionPool(dsn string) (*ConnectionPool, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &ConnectionPool{db: db}, nil
}

// DB returns the underlying database handle.
func (cp *ConnectionPool) DB() *sql.DB {
	return cp.db
}

// Close closes the connection pool.
func (cp *ConnectionPool) Close() error {
	if cp.db != nil {
		return cp.db.Close()
	}
	return nil
}

// Ping tests the database connection.
func (cp *ConnectionPool) Ping(ctx context.Context) error {
	return cp.db.PingContext(ctx)
}

// TransactionFunc represents a function executed within a transaction.
type TransactionFunc func(tx *sql.Tx) error

// WithTransaction executes fn within a transaction, rolling back when fn
// returns an error and committing otherwise.
func (cp *ConnectionPool) WithTransaction(ctx context.Context, fn TransactionFunc) error {
	tx, err := cp.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed (rollback error: %v): %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// RetryConfig configures the bounded retry loop wrapped around every
// logical transaction. The policy is a fixed attempt count with a fixed
// short delay; once exhausted the operation fails with ErrBusy rather than
// blocking indefinitely.
type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetryConfig returns the baseline contention policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{Attempts: 3, Delay: 100 * time.Millisecond}
}

func (c RetryConfig) normalized() RetryConfig {
	if c.Attempts < 1 {
		c.Attempts = 1
	}
	if c.Delay < 0 {
		c.Delay = 0
	}
	return c
}

// withRetry runs fn up to the configured attempt count, sleeping the fixed
// delay between attempts while the error remains a contention error.
func withRetry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	cfg = cfg.normalized()

	var lastErr error
	for attempt := 0; attempt < cfg.Attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(cfg.Delay):
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		if !isBusy(err) {
			return mapError(err)
		}
		lastErr = err
	}

	return fmt.Errorf("%w: gave up after %d attempts: %v", persistence.ErrBusy, cfg.Attempts, lastErr)
}

// mapError translates driver errors to persistence sentinels. Anything not
// recognized is an unrecoverable storage failure.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}
	if errors.Is(err, persistence.ErrNotFound) ||
		errors.Is(err, persistence.ErrDuplicate) ||
		errors.Is(err, persistence.ErrConstraintViolation) ||
		errors.Is(err, persistence.ErrBusy) ||
		errors.Is(err, persistence.ErrUnavailable) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", persistence.ErrDuplicate, err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %v", persistence.ErrConstraintViolation, err)
	case strings.Contains(msg, "CHECK constraint failed"):
		return fmt.Errorf("%w: %v", persistence.ErrConstraintViolation, err)
	case isBusy(err):
		return fmt.Errorf("%w: %v", persistence.ErrBusy, err)
	}

	return fmt.Errorf("%w: %v", persistence.ErrUnavailable, err)
}

// isBusy reports whether the error signals engine-level lock contention.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database is busy") ||
		strings.Contains(msg, "SQLITE_BUSY")
}
