package plan

import (
	"time"
)

// Status represents the overall plan state.
type Status string

const (
	StatusDraft           Status = "draft"
	StatusRunning         Status = "running"
	StatusCompleted       Status = "completed"
	StatusPartiallyFailed Status = "partially_failed"
)

// StepStatus represents the state of a single step.
type StepStatus string

const (
	StepStatePending   StepStatus = "pending"
	StepStateRunning   StepStatus = "running"
	StepStateSucceeded StepStatus = "succeeded"
	StepStateFailed    StepStatus = "failed"
)

// Step is one executable unit of a plan. Action is a fully-qualified
// "service.method" name resolved against the action registry.
type Step struct {
	Action      string                 `json:"action"`
	Params      map[string]interface{} `json:"params,omitempty"`
	Status      StepStatus             `json:"status"`
	Attempts    int                    `json:"attempts,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Output      map[string]interface{} `json:"output,omitempty"`
	StartedAt   *time.Time             `json:"startedAt,omitempty"`
	CompletedAt *time.Time             `json:"completedAt,omitempty"`
}

// Plan is an ordered sequence of steps derived from a task document. It is
// persisted into the owning document after every step mutation so that
// progress survives a crash mid-plan.
type Plan struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	Goal      string    `json:"goal,omitempty"`
	Steps     []*Step   `json:"steps"`
	CreatedAt time.Time `json:"createdAt"`
}

// New creates a draft plan.
func New(id, goal string, steps ...*Step) *Plan {
	for _, step := range steps {
		if step.Status == "" {
			step.Status = StepStatePending
		}
	}
	return &Plan{ID: id, Status: StatusDraft, Goal: goal, Steps: steps}
}

// NewStep creates a pending step.
func NewStep(action string, params map[string]interface{}) *Step {
	return &Step{Action: action, Params: params, Status: StepStatePending}
}

// NextStep returns the first step that has not succeeded, or nil when all
// steps succeeded. Execution is strictly sequential, so a running or failed
// step blocks everything behind it.
func (p *Plan) NextStep() (int, *Step) {
	for i, step := range p.Steps {
		if step.Status != StepStateSucceeded {
			return i, step
		}
	}
	return -1, nil
}

// Completed reports whether every step succeeded.
func (p *Plan) Completed() bool {
	for _, step := range p.Steps {
		if step.Status != StepStateSucceeded {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the plan.
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	out := *p
	out.Steps = make([]*Step, len(p.Steps))
	for i, step := range p.Steps {
		cloned := *step
		if step.Params != nil {
			cloned.Params = make(map[string]interface{}, len(step.Params))
			for k, v := range step.Params {
				cloned.Params[k] = v
			}
		}
		if step.Output != nil {
			cloned.Output = make(map[string]interface{}, len(step.Output))
			for k, v := range step.Output {
				cloned.Output[k] = v
			}
		}
		out.Steps[i] = &cloned
	}
	return &out
}
