// Package approval gates planned documents before execution. Low-risk
// plans advance automatically; everything else waits for a human.
package approval

import (
	"context"
	"fmt"

	"github.com/viant/conveyor/model/document"
	"github.com/viant/conveyor/service/audit"
	"github.com/viant/conveyor/service/store"
)

// Service applies the approval policy to planned documents.
type Service struct {
	store  store.Service
	audit  audit.Log
	policy Policy
}

// New creates an approval service.
func New(storeService store.Service, auditLog audit.Log, policy Policy) *Service {
	return &Service{store: storeService, audit: auditLog, policy: policy}
}

// Requires reports whether the document needs a human decision, with the
// reason when it does.
func (s *Service) Requires(doc *document.Document) (bool, string) {
	if doc.RiskAmount != nil && *doc.RiskAmount >= s.policy.AutoApproveLimit {
		return true, fmt.Sprintf("risk amount %.2f at or above limit %.2f", *doc.RiskAmount, s.policy.AutoApproveLimit)
	}
	if doc.Plan != nil {
		for _, step := range doc.Plan.Steps {
			if s.policy.restricted(step.Action) {
				return true, fmt.Sprintf("plan contains restricted action %v", step.Action)
			}
		}
	}
	return false, ""
}

// Place routes a planned document through the gate: auto-approved
// documents move to approved, gated ones to pending_approval.
func (s *Service) Place(ctx context.Context, id string) (document.Stage, error) {
	doc, err := s.store.Read(ctx, id)
	if err != nil {
		return "", err
	}
	if doc.Stage != document.StagePlans {
		return "", fmt.Errorf("document %v is in stage %v, expected %v", id, doc.Stage, document.StagePlans)
	}
	needed, reason := s.Requires(doc)
	if needed {
		if err = s.store.Move(ctx, id, document.StagePlans, document.StagePendingApproval); err != nil {
			return "", err
		}
		if err = s.audit.Append(ctx, &audit.Event{
			Actor:     audit.ActorSystem,
			Action:    audit.ActionApprovalRequested,
			SubjectID: id,
			Detail:    reason,
		}); err != nil {
			return "", err
		}
		return document.StagePendingApproval, nil
	}
	if err = s.store.Move(ctx, id, document.StagePlans, document.StageApproved); err != nil {
		return "", err
	}
	if err = s.audit.Append(ctx, &audit.Event{
		Actor:     audit.ActorSystem,
		Action:    audit.ActionApprovalAuto,
		SubjectID: id,
	}); err != nil {
		return "", err
	}
	return document.StageApproved, nil
}

// Approve records a human approval and releases the document for
// execution.
func (s *Service) Approve(ctx context.Context, id, approver, note string) error {
	if err := s.store.Move(ctx, id, document.StagePendingApproval, document.StageApproved); err != nil {
		return err
	}
	detail := fmt.Sprintf("approved by %v", approver)
	if note != "" {
		detail += ": " + note
	}
	return s.audit.Append(ctx, &audit.Event{
		Actor:     audit.ActorHuman,
		Action:    audit.ActionApprovalGranted,
		SubjectID: id,
		Detail:    detail,
	})
}

// Reject records a human rejection; the document becomes terminal and
// its plan never runs.
func (s *Service) Reject(ctx context.Context, id, approver, reason string) error {
	if err := s.store.Move(ctx, id, document.StagePendingApproval, document.StageRejected); err != nil {
		return err
	}
	detail := fmt.Sprintf("rejected by %v", approver)
	if reason != "" {
		detail += ": " + reason
	}
	return s.audit.Append(ctx, &audit.Event{
		Actor:     audit.ActorHuman,
		Action:    audit.ActionApprovalRejected,
		SubjectID: id,
		Detail:    detail,
	})
}
