// Package queue implements the work-item transport backing the enrichment
// pipeline: a SQLite-backed queue that delivers messages in batches, tracks a
// per-message delivery attempt counter, and supports acknowledge and retry.
package queue

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Status represents the lifecycle of a queued message.
type Status string

const (
	StatusPending Status = "pending"
	StatusLeased  Status = "leased"
	StatusDone    Status = "done"
)

// Message is one transient work item. Attempts counts deliveries including
// the current one, so a consumer comparing Attempts against its ceiling sees
// the same number the transport uses.
type Message struct {
	ID         int64     `json:"id"`
	RaindropID int64     `json:"raindropId"`
	Link       string    `json:"link"`
	Title      string    `json:"title,omitempty"`
	Created    time.Time `json:"created"`
	Attempts   int       `json:"attempts"`
}

// DefaultVisibilityTimeout is how long a leased message stays invisible
// before Lease reclaims it for redelivery. It bounds how long a crashed
// consumer can hold an item hostage.
const DefaultVisibilityTimeout = 10 * time.Minute

type Queue struct {
	db         *sql.DB
	visibility time.Duration
	now        func() time.Time
}

// New creates the queue over an existing database handle, creating its table
// if needed.
func New(db *sql.DB) (*Queue, error) {
	schema := `
	CREATE TABLE IF NOT EXISTS queue_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		raindrop_id INTEGER NOT NULL,
		link TEXT NOT NULL,
		title TEXT,
		created TIMESTAMP NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'pending',
		leased_at TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_queue_status ON queue_messages(status);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create queue schema: %w", err)
	}
	return &Queue{db: db, visibility: DefaultVisibilityTimeout, now: time.Now}, nil
}

// Enqueue appends a pending message.
func (q *Queue) Enqueue(ctx context.Context, msg *Message) error {
	if msg.Created.IsZero() {
		msg.Created = time.Now()
	}
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO queue_messages (raindrop_id, link, title, created, status) VALUES (?, ?, ?, ?, ?)`,
		msg.RaindropID, msg.Link, msg.Title, msg.Created, StatusPending)
	if err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	msg.ID, err = res.LastInsertId()
	return err
}

// Lease delivers up to n pending messages, oldest first, marking them leased
// and incrementing each attempt counter. A leased message stays invisible to
// subsequent leases until Retry returns it to pending, or until its lease
// outlives the visibility timeout, at which point Lease reclaims it so a
// consumer crash cannot strand an item in flight.
func (q *Queue) Lease(ctx context.Context, n int) ([]Message, error) {
	now := q.now()

	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	cutoff := now.Add(-q.visibility)
	if _, err := tx.ExecContext(ctx,
		`UPDATE queue_messages SET status = ?, leased_at = NULL
		 WHERE status = ? AND leased_at <= ?`,
		StatusPending, StatusLeased, cutoff); err != nil {
		return nil, fmt.Errorf("lease reclaim: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, raindrop_id, link, title, created, attempts
		 FROM queue_messages WHERE status = ? ORDER BY id LIMIT ?`,
		StatusPending, n)
	if err != nil {
		return nil, fmt.Errorf("lease select: %w", err)
	}

	var msgs []Message
	for rows.Next() {
		var m Message
		var title sql.NullString
		if err := rows.Scan(&m.ID, &m.RaindropID, &m.Link, &title, &m.Created, &m.Attempts); err != nil {
			rows.Close()
			return nil, err
		}
		m.Title = title.String
		m.Attempts++
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, m := range msgs {
		if _, err := tx.ExecContext(ctx,
			`UPDATE queue_messages SET status = ?, attempts = ?, leased_at = ? WHERE id = ?`,
			StatusLeased, m.Attempts, now, m.ID); err != nil {
			return nil, fmt.Errorf("lease update: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Ack removes a message from the queue.
func (q *Queue) Ack(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM queue_messages WHERE id = ?`, id)
	return err
}

// Retry returns a leased message to pending for redelivery.
func (q *Queue) Retry(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE queue_messages SET status = ?, leased_at = NULL WHERE id = ?`, StatusPending, id)
	return err
}

// PendingCount reports how many messages await delivery.
func (q *Queue) PendingCount(ctx context.Context) (int, error) {
	var count int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM queue_messages WHERE status = ?`, StatusPending).Scan(&count)
	return count, err
}
