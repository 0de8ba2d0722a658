package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/conveyor/service/audit"
)

func TestLog_AppendAssignsTotalOrder(t *testing.T) {
	ctx := context.Background()
	log := New()

	const appenders = 8
	const perAppender = 25
	var wg sync.WaitGroup
	for i := 0; i < appenders; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < perAppender; j++ {
				event := &audit.Event{
					Actor:     audit.ActorSystem,
					Action:    audit.ActionStepExecuted,
					SubjectID: fmt.Sprintf("doc-%d", worker),
				}
				assert.NoError(t, log.Append(ctx, event))
			}
		}(i)
	}
	wg.Wait()

	events, err := log.Tail(ctx, 0)
	assert.NoError(t, err)
	assert.Len(t, events, appenders*perAppender)
	for i, event := range events {
		assert.EqualValues(t, int64(i+1), event.Seq, "sequence must be gap-free")
		assert.False(t, event.Timestamp.IsZero())
	}
}

func TestLog_Tail(t *testing.T) {
	ctx := context.Background()
	log := New()
	for i := 0; i < 5; i++ {
		assert.NoError(t, log.Append(ctx, &audit.Event{
			Actor:     audit.ActorSystem,
			Action:    audit.ActionTaskReceived,
			SubjectID: fmt.Sprintf("doc-%d", i),
		}))
	}
	last2, err := log.Tail(ctx, 2)
	assert.NoError(t, err)
	assert.Len(t, last2, 2)
	assert.EqualValues(t, "doc-3", last2[0].SubjectID)
	assert.EqualValues(t, "doc-4", last2[1].SubjectID)

	all, err := log.Tail(ctx, 100)
	assert.NoError(t, err)
	assert.Len(t, all, 5)
}
