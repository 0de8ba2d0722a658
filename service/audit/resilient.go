package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/viant/conveyor/internal/clock"
	"github.com/viant/conveyor/retry"
)

// ErrFatal marks an audit log failure that survived all retries. Losing
// audit silently is a correctness violation, so callers must treat this as
// a halt condition rather than a recoverable error.
var ErrFatal = errors.New("audit: log unavailable")

// IsFatal reports whether err is an escalated audit failure.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}

// Resilient wraps a Log with the shared retry policy: transient media
// failures are retried with backoff and escalated as ErrFatal once the
// ceiling is reached.
type Resilient struct {
	delegate Log
	policy   retry.Policy
}

var _ Log = (*Resilient)(nil)

// NewResilient wraps delegate with the supplied policy.
func NewResilient(delegate Log, policy retry.Policy) *Resilient {
	return &Resilient{delegate: delegate, policy: policy}
}

// Append retries transient failures; exhaustion escalates as ErrFatal.
func (r *Resilient) Append(ctx context.Context, event *Event) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = r.delegate.Append(ctx, event)
		if lastErr == nil {
			return nil
		}
		decision := r.policy.Next(attempt, retry.Classify(lastErr))
		if !decision.Retry {
			break
		}
		clock.Sleep(decision.Delay)
	}
	return fmt.Errorf("%w: %v", ErrFatal, lastErr)
}

// Tail delegates to the underlying log.
func (r *Resilient) Tail(ctx context.Context, n int) ([]*Event, error) {
	return r.delegate.Tail(ctx, n)
}
