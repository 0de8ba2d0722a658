package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type claim struct {
	DocumentID string
}

func TestQueue_PublishConsume(t *testing.T) {
	ctx := context.Background()
	queue := NewQueue[claim](DefaultConfig())

	assert.NoError(t, queue.Publish(ctx, &claim{DocumentID: "doc-1"}))
	assert.NoError(t, queue.Publish(ctx, &claim{DocumentID: "doc-2"}))
	assert.EqualValues(t, 2, queue.Size())

	msg, err := queue.Consume(ctx)
	assert.NoError(t, err)
	assert.EqualValues(t, "doc-1", msg.T().DocumentID)
	assert.NoError(t, msg.Ack())
	assert.Error(t, msg.Ack())
}

func TestQueue_ConsumeHonoursContext(t *testing.T) {
	queue := NewQueue[claim](DefaultConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := queue.Consume(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestQueue_NackRedeliversThenDeadLetters(t *testing.T) {
	ctx := context.Background()
	config := Config{MaxRetries: 1, RetryDelay: time.Millisecond, QueueBuffer: 10}
	queue := NewQueue[claim](config)
	assert.NoError(t, queue.Publish(ctx, &claim{DocumentID: "doc-1"}))

	msg, err := queue.Consume(ctx)
	assert.NoError(t, err)
	assert.NoError(t, msg.Nack(errors.New("worker failure")))

	// redelivered after the retry delay
	redelivered, err := queue.Consume(ctx)
	assert.NoError(t, err)
	assert.EqualValues(t, "doc-1", redelivered.T().DocumentID)

	// second failure exceeds the retry budget
	assert.NoError(t, redelivered.Nack(errors.New("worker failure")))
	assert.EqualValues(t, 1, queue.DLQSize())
	assert.EqualValues(t, 0, queue.Size())
}
