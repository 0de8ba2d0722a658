package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/conveyor/internal/clock"
	"github.com/viant/conveyor/retry"
)

type flakyLog struct {
	failures int
	appended []*Event
}

func (f *flakyLog) Append(_ context.Context, event *Event) error {
	if f.failures > 0 {
		f.failures--
		return retry.Transient(errors.New("medium unavailable"))
	}
	f.appended = append(f.appended, event)
	return nil
}

func (f *flakyLog) Tail(_ context.Context, n int) ([]*Event, error) {
	return f.appended, nil
}

func TestResilient_Append(t *testing.T) {
	var slept []time.Duration
	clock.SleepFunc = func(d time.Duration) { slept = append(slept, d) }
	defer func() { clock.SleepFunc = time.Sleep }()

	policy := retry.Policy{BaseDelay: time.Millisecond, MaxDelay: 8 * time.Millisecond, MaxAttempts: 3}

	t.Run("recovers within ceiling", func(t *testing.T) {
		slept = nil
		delegate := &flakyLog{failures: 2}
		log := NewResilient(delegate, policy)
		assert.NoError(t, log.Append(context.Background(), &Event{Action: ActionStepExecuted}))
		assert.Len(t, delegate.appended, 1)
		assert.EqualValues(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, slept)
	})

	t.Run("escalates fatal on exhaustion", func(t *testing.T) {
		slept = nil
		delegate := &flakyLog{failures: 10}
		log := NewResilient(delegate, policy)
		err := log.Append(context.Background(), &Event{Action: ActionStepExecuted})
		assert.True(t, IsFatal(err))
		assert.Empty(t, delegate.appended)
	})
}
