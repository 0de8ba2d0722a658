package processor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/conveyor/model/document"
	"github.com/viant/conveyor/service/audit"
	auditmem "github.com/viant/conveyor/service/audit/memory"
	storemem "github.com/viant/conveyor/service/store/memory"
)

func TestService_Process(t *testing.T) {
	type testCase struct {
		name          string
		origin        document.Origin
		payload       map[string]interface{}
		expectActions []string
		expectRisk    *float64
	}

	risk := func(v float64) *float64 { return &v }
	tests := []testCase{
		{
			name:          "amount payload infers erp plan",
			origin:        document.OriginEmail,
			payload:       map[string]interface{}{"goal": "pay invoice", "amount": "250.00", "currency": "USD"},
			expectActions: []string{"erp.createDraft", "erp.post"},
			expectRisk:    risk(250),
		},
		{
			name:          "plain payload infers research plan",
			origin:        document.OriginChat,
			payload:       map[string]interface{}{"topic": "vendor comparison"},
			expectActions: []string{"research.collect"},
		},
		{
			name:   "recipient appends notification",
			origin: document.OriginEmail,
			payload: map[string]interface{}{
				"subject":   "weekly digest",
				"recipient": "ops@example.com",
			},
			expectActions: []string{"research.collect", "comms.send"},
		},
		{
			name:   "explicit steps win over inference",
			origin: document.OriginFilesystem,
			payload: map[string]interface{}{
				"amount": 10,
				"steps": []interface{}{
					map[string]interface{}{"action": "research.collect", "params": map[string]interface{}{"topic": "x"}},
				},
			},
			expectActions: []string{"research.collect"},
			expectRisk:    risk(10),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			aStore := storemem.New()
			aLog := auditmem.New()
			svc := New(aStore, aLog)

			doc := document.New("doc-1", tc.origin, tc.payload)
			assert.NoError(t, aStore.Deposit(ctx, doc))

			planned, err := svc.Process(ctx, "doc-1")
			assert.NoError(t, err)
			assert.EqualValues(t, document.StagePlans, planned.Stage)

			var actions []string
			for _, step := range planned.Plan.Steps {
				actions = append(actions, step.Action)
			}
			assert.EqualValues(t, tc.expectActions, actions)
			if tc.expectRisk != nil {
				assert.NotNil(t, planned.RiskAmount)
				assert.EqualValues(t, *tc.expectRisk, *planned.RiskAmount)
			}

			stored, err := aStore.Read(ctx, "doc-1")
			assert.NoError(t, err)
			assert.EqualValues(t, document.StagePlans, stored.Stage)
			assert.NotNil(t, stored.Plan)

			events, err := aLog.Tail(ctx, 0)
			assert.NoError(t, err)
			assert.Len(t, events, 1)
			assert.EqualValues(t, audit.ActionPlanCreated, events[0].Action)
			assert.EqualValues(t, "doc-1", events[0].SubjectID)
		})
	}
}

func TestService_ProcessRejectsNonInbox(t *testing.T) {
	ctx := context.Background()
	aStore := storemem.New()
	svc := New(aStore, auditmem.New())

	doc := document.New("doc-1", document.OriginEmail, nil)
	doc.Stage = document.StageApproved
	assert.NoError(t, aStore.Deposit(ctx, doc))

	_, err := svc.Process(ctx, "doc-1")
	assert.Error(t, err)
}
