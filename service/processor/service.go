// Package processor turns freshly deposited documents into executable
// plans. It owns the inbox to plans transition.
package processor

import (
	"context"
	"fmt"

	"github.com/viant/conveyor/internal/clock"
	"github.com/viant/conveyor/internal/idgen"
	"github.com/viant/conveyor/model/document"
	"github.com/viant/conveyor/model/plan"
	"github.com/viant/conveyor/service/audit"
	"github.com/viant/conveyor/service/store"
	"github.com/viant/toolbox"
)

// Service builds a plan for an inbox document and advances it to the
// plans stage.
type Service struct {
	store store.Service
	audit audit.Log
}

// New creates a processor service.
func New(storeService store.Service, auditLog audit.Log) *Service {
	return &Service{store: storeService, audit: auditLog}
}

// Process plans a single inbox document: it derives the plan from the
// payload, persists it, records PLAN_CREATED and moves the document to
// the plans stage.
func (s *Service) Process(ctx context.Context, id string) (*document.Document, error) {
	doc, err := s.store.Read(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Stage != document.StageInbox {
		return nil, fmt.Errorf("document %v is in stage %v, expected %v", id, doc.Stage, document.StageInbox)
	}

	if doc.RiskAmount == nil {
		if amount, ok := riskAmount(doc.Payload); ok {
			doc.RiskAmount = &amount
		}
	}
	aPlan, err := s.buildPlan(doc)
	if err != nil {
		return nil, err
	}
	doc.Plan = aPlan
	if err = s.store.Write(ctx, doc); err != nil {
		return nil, err
	}
	if err = s.audit.Append(ctx, &audit.Event{
		Actor:     audit.ActorSystem,
		Action:    audit.ActionPlanCreated,
		SubjectID: doc.ID,
		Detail:    fmt.Sprintf("%v step(s), goal: %v", len(aPlan.Steps), aPlan.Goal),
	}); err != nil {
		return nil, err
	}
	if err = s.store.Move(ctx, doc.ID, document.StageInbox, document.StagePlans); err != nil {
		return nil, err
	}
	doc.Stage = document.StagePlans
	return doc, nil
}

// buildPlan derives plan steps from the document payload. Explicit steps
// win; otherwise a default is inferred from the payload shape.
func (s *Service) buildPlan(doc *document.Document) (*plan.Plan, error) {
	goal := payloadString(doc.Payload, "goal")
	if goal == "" {
		goal = payloadString(doc.Payload, "subject")
	}
	aPlan := plan.New(idgen.New(), goal)
	aPlan.CreatedAt = clock.Now()

	if explicit, ok := doc.Payload["steps"]; ok {
		steps, err := explicitSteps(explicit)
		if err != nil {
			return nil, fmt.Errorf("document %v had invalid steps: %w", doc.ID, err)
		}
		aPlan.Steps = steps
		return aPlan, nil
	}

	switch {
	case doc.RiskAmount != nil || doc.Origin == document.OriginERP:
		var amount float64
		if doc.RiskAmount != nil {
			amount = *doc.RiskAmount
		}
		aPlan.Steps = append(aPlan.Steps,
			plan.NewStep("erp.createDraft", map[string]interface{}{
				"subjectId": doc.ID,
				"amount":    amount,
				"currency":  payloadString(doc.Payload, "currency"),
				"memo":      goal,
			}),
			plan.NewStep("erp.post", map[string]interface{}{
				"subjectId": doc.ID,
			}),
		)
	default:
		topic := payloadString(doc.Payload, "topic")
		if topic == "" {
			topic = goal
		}
		if topic == "" {
			topic = doc.ID
		}
		aPlan.Steps = append(aPlan.Steps, plan.NewStep("research.collect", map[string]interface{}{
			"subjectId": doc.ID,
			"topic":     topic,
		}))
	}

	if recipient := payloadString(doc.Payload, "recipient"); recipient != "" {
		aPlan.Steps = append(aPlan.Steps, plan.NewStep("comms.send", map[string]interface{}{
			"subjectId": doc.ID,
			"recipient": recipient,
			"subject":   goal,
			"body":      payloadString(doc.Payload, "body"),
		}))
	}
	return aPlan, nil
}

func explicitSteps(value interface{}) ([]*plan.Step, error) {
	items, ok := value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("expected a step list, had %T", value)
	}
	var steps []*plan.Step
	for i, item := range items {
		entry := map[string]interface{}{}
		if err := toolbox.DefaultConverter.AssignConverted(&entry, item); err != nil {
			return nil, fmt.Errorf("step %v: %w", i, err)
		}
		actionName := payloadString(entry, "action")
		if actionName == "" {
			return nil, fmt.Errorf("step %v had no action", i)
		}
		params, _ := entry["params"].(map[string]interface{})
		steps = append(steps, plan.NewStep(actionName, params))
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("step list was empty")
	}
	return steps, nil
}

// riskAmount extracts a monetary exposure from the payload, coercing
// strings and numeric types alike.
func riskAmount(payload map[string]interface{}) (float64, bool) {
	for _, key := range []string{"risk_amount", "riskAmount", "amount", "total"} {
		value, ok := payload[key]
		if !ok || value == nil {
			continue
		}
		var amount float64
		if err := toolbox.DefaultConverter.AssignConverted(&amount, value); err != nil {
			continue
		}
		return amount, true
	}
	return 0, false
}

func payloadString(payload map[string]interface{}, key string) string {
	if payload == nil {
		return ""
	}
	if value, ok := payload[key]; ok && value != nil {
		return toolbox.AsString(value)
	}
	return ""
}
