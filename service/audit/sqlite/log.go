package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/viant/conveyor/internal/clock"
	"github.com/viant/conveyor/service/audit"
)

// Log persists audit events in an append-only sqlite table. The rowid is
// the sequence number, so history order is the insertion order and survives
// restarts without any bookkeeping.
type Log struct {
	db *sql.DB
	mu sync.Mutex
}

var _ audit.Log = (*Log)(nil)

// New opens (or creates) a sqlite-backed audit log at dbPath.
func New(dbPath string) (*Log, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database %s: %w", dbPath, err)
	}
	ddl := `CREATE TABLE IF NOT EXISTS audit_events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		actor TEXT NOT NULL,
		action TEXT NOT NULL,
		subject_id TEXT NOT NULL,
		detail TEXT
	);`
	if _, err = db.Exec(ddl); err != nil {
		return nil, fmt.Errorf("failed to initialise audit schema: %w", err)
	}
	return &Log{db: db}, nil
}

// Append inserts the event under the writer lock, assigning Seq.
func (l *Log) Append(ctx context.Context, event *audit.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if event.Timestamp.IsZero() {
		event.Timestamp = clock.Now()
	}
	result, err := l.db.ExecContext(ctx,
		`INSERT INTO audit_events (timestamp, actor, action, subject_id, detail) VALUES (?, ?, ?, ?, ?)`,
		event.Timestamp.Format(time.RFC3339Nano), string(event.Actor), string(event.Action), event.SubjectID, event.Detail)
	if err != nil {
		return fmt.Errorf("failed to append audit event: %w", err)
	}
	seq, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read audit sequence: %w", err)
	}
	event.Seq = seq
	return nil
}

// Tail returns the last n events in history order.
func (l *Log) Tail(ctx context.Context, n int) ([]*audit.Event, error) {
	query := `SELECT seq, timestamp, actor, action, subject_id, detail FROM audit_events ORDER BY seq DESC`
	args := []interface{}{}
	if n > 0 {
		query += ` LIMIT ?`
		args = append(args, n)
	}
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit tail: %w", err)
	}
	defer rows.Close()

	var reversed []*audit.Event
	for rows.Next() {
		var event audit.Event
		var timestamp, actor, action string
		if err := rows.Scan(&event.Seq, &timestamp, &actor, &action, &event.SubjectID, &event.Detail); err != nil {
			return nil, err
		}
		event.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp)
		event.Actor = audit.Actor(actor)
		event.Action = audit.Action(action)
		reversed = append(reversed, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]*audit.Event, len(reversed))
	for i, event := range reversed {
		out[len(reversed)-1-i] = event
	}
	return out, nil
}

// Close releases the underlying database handle.
func (l *Log) Close() error {
	return l.db.Close()
}
