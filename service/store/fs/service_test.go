package fs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/conveyor/model/document"
	"github.com/viant/conveyor/service/store"
)

func TestService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	svc, err := New(t.TempDir())
	assert.NoError(t, err)

	doc := document.New("task-1", document.OriginFilesystem, map[string]interface{}{"goal": "research X"})
	assert.NoError(t, svc.Deposit(ctx, doc))

	// duplicate deposit rejected even after the document moved on
	assert.NoError(t, svc.Move(ctx, "task-1", document.StageInbox, document.StagePlans))
	err = svc.Deposit(ctx, doc)
	assert.True(t, errors.Is(err, store.ErrDuplicateDocument))

	ids, err := svc.List(ctx, document.StagePlans)
	assert.NoError(t, err)
	assert.EqualValues(t, []string{"task-1"}, ids)

	inbox, err := svc.List(ctx, document.StageInbox)
	assert.NoError(t, err)
	assert.Empty(t, inbox, "document occupies exactly one stage")

	current, err := svc.Read(ctx, "task-1")
	assert.NoError(t, err)
	assert.EqualValues(t, document.StagePlans, current.Stage)
	assert.EqualValues(t, "research X", current.Payload["goal"])
}

func TestService_MoveErrors(t *testing.T) {
	ctx := context.Background()
	svc, err := New(t.TempDir())
	assert.NoError(t, err)

	err = svc.Move(ctx, "absent", document.StageInbox, document.StagePlans)
	assert.True(t, errors.Is(err, store.ErrNotFound))

	doc := document.New("task-1", document.OriginEmail, nil)
	assert.NoError(t, svc.Deposit(ctx, doc))
	err = svc.Move(ctx, "task-1", document.StageInbox, document.StageDone)
	assert.True(t, errors.Is(err, store.ErrInvalidTransition))

	// the document was not disturbed by the failed move
	current, err := svc.Read(ctx, "task-1")
	assert.NoError(t, err)
	assert.EqualValues(t, document.StageInbox, current.Stage)

	// a second mover on the same edge loses once the first wins
	assert.NoError(t, svc.Move(ctx, "task-1", document.StageInbox, document.StagePlans))
	err = svc.Move(ctx, "task-1", document.StageInbox, document.StagePlans)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestService_WritePersistsPlanProgress(t *testing.T) {
	ctx := context.Background()
	svc, err := New(t.TempDir())
	assert.NoError(t, err)

	doc := document.New("task-1", document.OriginChat, map[string]interface{}{"goal": "notify"})
	assert.NoError(t, svc.Deposit(ctx, doc))

	updated := doc.Clone()
	updated.Payload["progress"] = "step 1 done"
	assert.NoError(t, svc.Write(ctx, updated))

	reloaded, err := svc.Read(ctx, "task-1")
	assert.NoError(t, err)
	assert.EqualValues(t, "step 1 done", reloaded.Payload["progress"])
}
