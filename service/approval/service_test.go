package approval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/conveyor/model/document"
	"github.com/viant/conveyor/model/plan"
	"github.com/viant/conveyor/service/audit"
	auditmem "github.com/viant/conveyor/service/audit/memory"
	storemem "github.com/viant/conveyor/service/store/memory"
)

func plannedDoc(risk *float64, actions ...string) *document.Document {
	doc := document.New("doc-1", document.OriginEmail, nil)
	doc.Stage = document.StagePlans
	doc.RiskAmount = risk
	var steps []*plan.Step
	for _, name := range actions {
		steps = append(steps, plan.NewStep(name, nil))
	}
	doc.Plan = plan.New("plan-1", "test", steps...)
	return doc
}

func TestService_Place(t *testing.T) {
	risk := func(v float64) *float64 { return &v }
	type testCase struct {
		name        string
		doc         *document.Document
		expectStage document.Stage
		expectEvent audit.Action
	}

	tests := []testCase{
		{
			name:        "below limit auto approves",
			doc:         plannedDoc(risk(99.99), "erp.createDraft"),
			expectStage: document.StageApproved,
			expectEvent: audit.ActionApprovalAuto,
		},
		{
			name:        "at limit requires human",
			doc:         plannedDoc(risk(100.00), "erp.createDraft"),
			expectStage: document.StagePendingApproval,
			expectEvent: audit.ActionApprovalRequested,
		},
		{
			name:        "restricted action requires human regardless of risk",
			doc:         plannedDoc(risk(1), "comms.send"),
			expectStage: document.StagePendingApproval,
			expectEvent: audit.ActionApprovalRequested,
		},
		{
			name:        "no risk no restricted action auto approves",
			doc:         plannedDoc(nil, "research.collect"),
			expectStage: document.StageApproved,
			expectEvent: audit.ActionApprovalAuto,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			aStore := storemem.New()
			aLog := auditmem.New()
			svc := New(aStore, aLog, DefaultPolicy())
			assert.NoError(t, aStore.Deposit(ctx, tc.doc))

			stage, err := svc.Place(ctx, tc.doc.ID)
			assert.NoError(t, err)
			assert.EqualValues(t, tc.expectStage, stage)

			stored, err := aStore.Read(ctx, tc.doc.ID)
			assert.NoError(t, err)
			assert.EqualValues(t, tc.expectStage, stored.Stage)

			events, err := aLog.Tail(ctx, 0)
			assert.NoError(t, err)
			assert.Len(t, events, 1)
			assert.EqualValues(t, tc.expectEvent, events[0].Action)
		})
	}
}

func TestService_HumanDecisions(t *testing.T) {
	risk := func(v float64) *float64 { return &v }

	t.Run("approve releases for execution", func(t *testing.T) {
		ctx := context.Background()
		aStore := storemem.New()
		aLog := auditmem.New()
		svc := New(aStore, aLog, DefaultPolicy())

		doc := plannedDoc(risk(5000), "erp.post")
		assert.NoError(t, aStore.Deposit(ctx, doc))
		_, err := svc.Place(ctx, doc.ID)
		assert.NoError(t, err)

		assert.NoError(t, svc.Approve(ctx, doc.ID, "alice", "verified invoice"))
		stored, err := aStore.Read(ctx, doc.ID)
		assert.NoError(t, err)
		assert.EqualValues(t, document.StageApproved, stored.Stage)

		events, err := aLog.Tail(ctx, 1)
		assert.NoError(t, err)
		assert.EqualValues(t, audit.ActionApprovalGranted, events[0].Action)
		assert.EqualValues(t, audit.ActorHuman, events[0].Actor)
	})

	t.Run("reject is terminal", func(t *testing.T) {
		ctx := context.Background()
		aStore := storemem.New()
		aLog := auditmem.New()
		svc := New(aStore, aLog, DefaultPolicy())

		doc := plannedDoc(risk(5000), "erp.post")
		assert.NoError(t, aStore.Deposit(ctx, doc))
		_, err := svc.Place(ctx, doc.ID)
		assert.NoError(t, err)

		assert.NoError(t, svc.Reject(ctx, doc.ID, "alice", "duplicate invoice"))
		stored, err := aStore.Read(ctx, doc.ID)
		assert.NoError(t, err)
		assert.EqualValues(t, document.StageRejected, stored.Stage)
		assert.True(t, stored.Stage.IsTerminal())

		// no further moves out of rejected
		err = aStore.Move(ctx, doc.ID, document.StageRejected, document.StageApproved)
		assert.Error(t, err)
	})

	t.Run("approve of unknown document fails", func(t *testing.T) {
		svc := New(storemem.New(), auditmem.New(), DefaultPolicy())
		assert.Error(t, svc.Approve(context.Background(), "ghost", "alice", ""))
	})
}
