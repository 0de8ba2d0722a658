package fs

import (
	"context"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/conveyor/service/audit"
)

func TestLog_AppendSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	URL := path.Join(t.TempDir(), "audit_log.jsonl")

	log, err := New(URL)
	assert.NoError(t, err)
	assert.NoError(t, log.Append(ctx, &audit.Event{Actor: audit.ActorSystem, Action: audit.ActionTaskReceived, SubjectID: "doc-1"}))
	assert.NoError(t, log.Append(ctx, &audit.Event{Actor: audit.ActorHuman, Action: audit.ActionApprovalGranted, SubjectID: "doc-1", Detail: "looks good"}))

	// reopen: sequence continues, history preserved in order
	reopened, err := New(URL)
	assert.NoError(t, err)
	event := &audit.Event{Actor: audit.ActorSystem, Action: audit.ActionTaskCompleted, SubjectID: "doc-1"}
	assert.NoError(t, reopened.Append(ctx, event))
	assert.EqualValues(t, 3, event.Seq)

	events, err := reopened.Tail(ctx, 0)
	assert.NoError(t, err)
	assert.Len(t, events, 3)
	assert.EqualValues(t, audit.ActionTaskReceived, events[0].Action)
	assert.EqualValues(t, audit.ActionApprovalGranted, events[1].Action)
	assert.EqualValues(t, "looks good", events[1].Detail)
	assert.EqualValues(t, audit.ActionTaskCompleted, events[2].Action)
}
