package fs

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/viant/conveyor/internal/clock"
	"github.com/viant/conveyor/service/audit"
)

// Log persists audit events as JSON lines at a single afs URL. Existing
// events are loaded on open so the sequence continues across restarts; the
// full content is rewritten under the writer lock on every append, which
// keeps the file readable in order at all times.
type Log struct {
	URL    string
	fs     afs.Service
	mu     sync.Mutex
	events []*audit.Event
}

var _ audit.Log = (*Log)(nil)

// New opens (or creates) the audit log at the supplied URL.
func New(URL string) (*Log, error) {
	if URL == "" {
		return nil, fmt.Errorf("audit log URL cannot be empty")
	}
	ret := &Log{URL: url.Normalize(URL, file.Scheme), fs: afs.New()}
	if err := ret.load(context.Background()); err != nil {
		return nil, err
	}
	return ret, nil
}

// Append records the event and flushes the ledger.
func (l *Log) Append(ctx context.Context, event *audit.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	stored := *event
	stored.Seq = int64(len(l.events)) + 1
	if stored.Timestamp.IsZero() {
		stored.Timestamp = clock.Now()
	}
	l.events = append(l.events, &stored)
	if err := l.flush(ctx); err != nil {
		l.events = l.events[:len(l.events)-1]
		return err
	}
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

func (l *Log) load(ctx context.Context) error {
	exists, err := l.fs.Exists(ctx, l.URL)
	if err != nil {
		return fmt.Errorf("failed to check audit log %s: %w", l.URL, err)
	}
	if !exists {
		return nil
	}
	data, err := l.fs.DownloadWithURL(ctx, l.URL)
	if err != nil {
		return fmt.Errorf("failed to read audit log %s: %w", l.URL, err)
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var event audit.Event
		if err := json.Unmarshal(line, &event); err != nil {
			return fmt.Errorf("corrupted audit log %s: %w", l.URL, err)
		}
		l.events = append(l.events, &event)
	}
	return scanner.Err()
}

func (l *Log) flush(ctx context.Context) error {
	var buffer bytes.Buffer
	for _, event := range l.events {
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal audit event: %w", err)
		}
		buffer.Write(data)
		buffer.WriteByte('\n')
	}
	if err := l.fs.Upload(ctx, l.URL, file.DefaultFileOsMode, bytes.NewReader(buffer.Bytes())); err != nil {
		return fmt.Errorf("failed to write audit log %s: %w", l.URL, err)
	}
	return nil
}
