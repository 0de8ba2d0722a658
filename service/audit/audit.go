package audit

import (
	"context"
	"time"
)

// Actor identifies who caused an audited action.
type Actor string

const (
	ActorSystem      Actor = "system"
	ActorHuman       Actor = "human"
	ActorExternalAPI Actor = "external-api"
)

// Action is the closed set of auditable action types.
type Action string

const (
	ActionTaskReceived      Action = "TASK_RECEIVED"
	ActionPlanCreated       Action = "PLAN_CREATED"
	ActionApprovalRequested Action = "APPROVAL_REQUESTED"
	ActionApprovalAuto      Action = "APPROVAL_AUTO"
	ActionApprovalGranted   Action = "APPROVAL_GRANTED"
	ActionApprovalRejected  Action = "APPROVAL_REJECTED"
	ActionStepExecuted      Action = "STEP_EXECUTED"
	ActionStepFailed        Action = "STEP_FAILED"
	ActionRetryScheduled    Action = "RETRY_SCHEDULED"
	ActionRetryExhausted    Action = "RETRY_EXHAUSTED"
	ActionTaskCompleted     Action = "TASK_COMPLETED"
	ActionTaskFailed        Action = "TASK_FAILED"
	ActionMockSuccess       Action = "MOCK_SUCCESS"
)

// Event is an immutable audit record. Seq is assigned by the log on append
// and, together with Timestamp, defines the canonical history order.
type Event struct {
	Seq       int64     `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Actor     Actor     `json:"actor"`
	Action    Action    `json:"action"`
	SubjectID string    `json:"subjectId"`
	Detail    string    `json:"detail,omitempty"`
}

// Log is the append-only event ledger. Appends are serialized by a single
// writer so event order matches a valid causal order of the producing
// operations; entries are never edited or deleted.
type Log interface {
	// Append records the event, assigning its sequence number.
	Append(ctx context.Context, event *Event) error

	// Tail returns the last n events in history order.
	Tail(ctx context.Context, n int) ([]*Event, error)
}
