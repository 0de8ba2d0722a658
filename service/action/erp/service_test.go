package erp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/conveyor/retry"
)

func TestService_CreateDraft(t *testing.T) {
	recorder := NewRecorder()
	svc := New(recorder)
	method, err := svc.Method("createDraft")
	assert.NoError(t, err)

	output := &DraftResponse{}
	assert.NoError(t, method(context.Background(), &DraftRequest{SubjectID: "doc-1", Amount: 42.5}, output))
	assert.EqualValues(t, "sim-draft-doc-1", output.DraftID)
	assert.True(t, output.Simulated)
	assert.Len(t, recorder.Drafts(), 1)
}

func TestService_Post(t *testing.T) {
	recorder := NewRecorder()
	svc := New(recorder)
	method, err := svc.Method("post")
	assert.NoError(t, err)

	output := &PostResponse{}
	assert.NoError(t, method(context.Background(), &PostRequest{SubjectID: "doc-1", DraftID: "sim-draft-doc-1"}, output))
	assert.EqualValues(t, "sim-entry-sim-draft-doc-1", output.EntryID)
	assert.Len(t, recorder.Posts(), 1)
}

func TestService_ValidationIsPermanent(t *testing.T) {
	svc := New(NewRecorder())

	createDraft, err := svc.Method("createDraft")
	assert.NoError(t, err)
	err = createDraft(context.Background(), &DraftRequest{}, &DraftResponse{})
	assert.Error(t, err)
	// a malformed request never earns a retry
	assert.True(t, retry.IsPermanent(err))

	post, err := svc.Method("post")
	assert.NoError(t, err)
	err = post(context.Background(), &PostRequest{SubjectID: "doc-1"}, &PostResponse{})
	assert.Error(t, err)
	assert.True(t, retry.IsPermanent(err))
}
