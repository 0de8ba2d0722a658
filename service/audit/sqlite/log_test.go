package sqlite

import (
	"context"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/conveyor/service/audit"
)

func TestLog_AppendAndTail(t *testing.T) {
	ctx := context.Background()
	log, err := New(path.Join(t.TempDir(), "audit.db"))
	assert.NoError(t, err)
	defer log.Close()

	actions := []audit.Action{
		audit.ActionTaskReceived,
		audit.ActionPlanCreated,
		audit.ActionApprovalAuto,
		audit.ActionStepExecuted,
		audit.ActionTaskCompleted,
	}
	for _, action := range actions {
		event := &audit.Event{Actor: audit.ActorSystem, Action: action, SubjectID: "doc-1"}
		assert.NoError(t, log.Append(ctx, event))
		assert.NotZero(t, event.Seq)
	}

	tail, err := log.Tail(ctx, 2)
	assert.NoError(t, err)
	assert.Len(t, tail, 2)
	assert.EqualValues(t, audit.ActionStepExecuted, tail[0].Action)
	assert.EqualValues(t, audit.ActionTaskCompleted, tail[1].Action)

	all, err := log.Tail(ctx, 0)
	assert.NoError(t, err)
	assert.Len(t, all, len(actions))
	for i := 1; i < len(all); i++ {
		assert.Greater(t, all[i].Seq, all[i-1].Seq)
	}
}
