package comms

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/conveyor/retry"
)

func TestService_Send(t *testing.T) {
	recorder := NewRecorder()
	svc := New(recorder)
	method, err := svc.Method("send")
	assert.NoError(t, err)

	output := &Receipt{}
	assert.NoError(t, method(context.Background(), &Message{
		SubjectID: "doc-1",
		Recipient: "ops@example.com",
		Subject:   "invoice posted",
	}, output))
	assert.EqualValues(t, "sim-msg-0001", output.MessageID)
	assert.True(t, output.Simulated)
	assert.Len(t, recorder.Messages(), 1)
}

func TestService_SendRequiresRecipient(t *testing.T) {
	svc := New(NewRecorder())
	method, err := svc.Method("send")
	assert.NoError(t, err)

	err = method(context.Background(), &Message{SubjectID: "doc-1"}, &Receipt{})
	assert.Error(t, err)
	// a message without a recipient never earns a retry
	assert.True(t, retry.IsPermanent(err))
}
