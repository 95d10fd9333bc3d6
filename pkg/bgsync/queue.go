package bgsync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const schema = `CREATE TABLE IF NOT EXISTS pending_mutations (
    seq             INTEGER PRIMARY KEY AUTOINCREMENT,
    id              TEXT NOT NULL UNIQUE,
    kind            TEXT NOT NULL,
    media_type      TEXT NOT NULL,
    item_id         INTEGER NOT NULL,
    payload         TEXT,
    created_at      TEXT NOT NULL,
    attempts        INTEGER NOT NULL DEFAULT 0,
    last_error      TEXT,
    last_attempt_at TEXT
)`

// Queue persists pending mutations in SQLite, in insertion order.
type Queue struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the queue database at path.
// ":memory:" creates a private in-memory queue.
func Open(path string) (*Queue, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection: a single writer, and ":memory:" is per connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	q := &Queue{db: db, path: path}
	if n, err := q.Len(context.Background()); err == nil {
		QueueDepth.Set(float64(n))
	}
	return q, nil
}

// Close closes the underlying database connection.
func (q *Queue) Close() error {
	if q == nil || q.db == nil {
		return nil
	}
	return q.db.Close()
}

// Path returns the database location.
func (q *Queue) Path() string {
	return q.path
}

// Enqueue stores m. A zero ID or CreatedAt is filled in.
func (q *Queue) Enqueue(ctx context.Context, m Mutation) (Mutation, error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if err := m.Validate(); err != nil {
		return Mutation{}, err
	}

	err := q.exec(ctx,
		`INSERT INTO pending_mutations (id, kind, media_type, item_id, payload, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID.String(),
		string(m.Kind),
		m.MediaType,
		m.ItemID,
		nullableString(string(m.Payload)),
		m.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return Mutation{}, fmt.Errorf("insert mutation: %w", err)
	}

	QueueDepth.Inc()
	return m, nil
}

// Pending returns up to limit queued mutations, oldest first.
// limit <= 0 returns all of them.
func (q *Queue) Pending(ctx context.Context, limit int) ([]Mutation, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT id, kind, media_type, item_id, payload, created_at, attempts, last_error
         FROM pending_mutations ORDER BY seq LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query pending mutations: %w", err)
	}
	defer rows.Close()

	var mutations []Mutation
	for rows.Next() {
		var (
			m         Mutation
			id        string
			kind      string
			payload   sql.NullString
			createdAt string
			lastError sql.NullString
		)
		if err := rows.Scan(&id, &kind, &m.MediaType, &m.ItemID, &payload, &createdAt, &m.Attempts, &lastError); err != nil {
			return nil, fmt.Errorf("scan mutation: %w", err)
		}

		m.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parse mutation id %q: %w", id, err)
		}
		m.Kind = Kind(kind)
		if payload.Valid {
			m.Payload = []byte(payload.String)
		}
		m.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		m.LastError = lastError.String

		mutations = append(mutations, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mutations: %w", err)
	}

	return mutations, nil
}

// Remove deletes a mutation. Returns false if it was not queued.
func (q *Queue) Remove(ctx context.Context, id uuid.UUID) (bool, error) {
	var affected int64
	err := retryOnBusy(ctx, func() error {
		res, err := q.db.ExecContext(ctx, `DELETE FROM pending_mutations WHERE id = ?`, id.String())
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, fmt.Errorf("delete mutation: %w", err)
	}

	if affected > 0 {
		QueueDepth.Dec()
	}
	return affected > 0, nil
}

// MarkAttempt records a failed delivery attempt.
func (q *Queue) MarkAttempt(ctx context.Context, id uuid.UUID, cause error) error {
	var lastError any
	if cause != nil {
		lastError = cause.Error()
	}

	err := q.exec(ctx,
		`UPDATE pending_mutations
         SET attempts = attempts + 1, last_error = ?, last_attempt_at = ?
         WHERE id = ?`,
		lastError,
		time.Now().UTC().Format(time.RFC3339Nano),
		id.String(),
	)
	if err != nil {
		return fmt.Errorf("mark attempt: %w", err)
	}
	return nil
}

// Len returns the number of queued mutations.
func (q *Queue) Len(ctx context.Context) (int, error) {
	var n int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_mutations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count mutations: %w", err)
	}
	return n, nil
}

func (q *Queue) exec(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := q.db.ExecContext(ctx, query, args...)
		return err
	})
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
