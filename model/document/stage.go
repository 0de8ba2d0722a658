package document

// Stage is one state in the document lifecycle. A document occupies exactly
// one stage at any instant and only moves forward along the transition
// graph below (plus the human-reject edge into StageRejected).
type Stage string

const (
	// StageInbox holds raw documents deposited by producers.
	StageInbox Stage = "inbox"

	// StagePlans holds documents whose plan has been drafted but not yet
	// classified by the approval gate.
	StagePlans Stage = "plans"

	// StagePendingApproval holds documents waiting for an explicit human
	// decision. Only an out-of-band move (actor=human) advances them.
	StagePendingApproval Stage = "pending_approval"

	// StageApproved holds documents cleared for execution.
	StageApproved Stage = "approved"

	// StageExecuting holds documents claimed by the execution engine.
	StageExecuting Stage = "executing"

	// StageDone, StageRejected and StageFailed are terminal.
	StageDone     Stage = "done"
	StageRejected Stage = "rejected"
	StageFailed   Stage = "failed"
)

// Stages lists every stage in pipeline order.
var Stages = []Stage{
	StageInbox,
	StagePlans,
	StagePendingApproval,
	StageApproved,
	StageExecuting,
	StageDone,
	StageRejected,
	StageFailed,
}

// successors defines the legal transition graph.
var successors = map[Stage][]Stage{
	StageInbox:           {StagePlans},
	StagePlans:           {StagePendingApproval, StageApproved},
	StagePendingApproval: {StageApproved, StageRejected},
	StageApproved:        {StageExecuting},
	StageExecuting:       {StageDone, StageFailed},
}

// IsValid reports whether the stage is a known stage.
func (s Stage) IsValid() bool {
	for _, candidate := range Stages {
		if s == candidate {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s Stage) IsTerminal() bool {
	return len(successors[s]) == 0 && s.IsValid()
}

// CanTransition reports whether moving from s to next is legal.
func (s Stage) CanTransition(next Stage) bool {
	for _, candidate := range successors[s] {
		if candidate == next {
			return true
		}
	}
	return false
}
