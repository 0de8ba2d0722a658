package memory

import (
	"context"
	"sync"

	"github.com/viant/conveyor/internal/clock"
	"github.com/viant/conveyor/service/audit"
)

// Log is an in-memory append-only audit log, the default for tests and
// embedded use.
type Log struct {
	mu     sync.Mutex
	events []*audit.Event
}

var _ audit.Log = (*Log)(nil)

// New creates an empty in-memory log.
func New() *Log {
	return &Log{}
}

// Append records the event under the writer lock, assigning Seq.
func (l *Log) Append(_ context.Context, event *audit.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	stored := *event
	stored.Seq = int64(len(l.events)) + 1
	if stored.Timestamp.IsZero() {
		stored.Timestamp = clock.Now()
	}
	l.events = append(l.events, &stored)
	event.Seq = stored.Seq
	event.Timestamp = stored.Timestamp
	return nil
}

// Tail returns the last n events in history order.
func (l *Log) Tail(_ context.Context, n int) ([]*audit.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n <= 0 || n > len(l.events) {
		n = len(l.events)
	}
	out := make([]*audit.Event, n)
	copy(out, l.events[len(l.events)-n:])
	return out, nil
}
