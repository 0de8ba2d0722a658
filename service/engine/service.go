// Package engine executes approved plans. Steps run strictly in
// sequence; progress is persisted before and after every attempt so a
// crash mid-step is recoverable.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/viant/conveyor/internal/clock"
	"github.com/viant/conveyor/model/document"
	"github.com/viant/conveyor/model/plan"
	"github.com/viant/conveyor/retry"
	"github.com/viant/conveyor/service/action"
	"github.com/viant/conveyor/service/audit"
	"github.com/viant/conveyor/service/store"
	"github.com/viant/conveyor/tracing"
	"github.com/viant/structology/conv"
	"github.com/viant/toolbox"
)

// Result summarises one plan execution.
type Result struct {
	DocumentID string
	Stage      document.Stage
	PlanStatus plan.Status
	FailedStep string
}

// Service runs the plan of a claimed document to completion or halt.
type Service struct {
	store     store.Service
	audit     audit.Log
	registry  *action.Registry
	converter *conv.Converter
	policy    retry.Policy
	heartbeat time.Duration
}

// Option customises the engine.
type Option func(*Service)

// WithHeartbeat sets how often an in-flight execution refreshes the
// document's progress timestamp. Keep it well below the loop's stale
// claim threshold.
func WithHeartbeat(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.heartbeat = interval
		}
	}
}

// New creates an execution engine.
func New(storeService store.Service, auditLog audit.Log, registry *action.Registry, policy retry.Policy, options ...Option) *Service {
	convOptions := conv.DefaultOptions()
	convOptions.ClonePointerData = true
	convOptions.IgnoreUnmapped = true
	convOptions.AccessUnexported = true
	ret := &Service{
		store:     storeService,
		audit:     auditLog,
		registry:  registry,
		converter: conv.NewConverter(convOptions),
		policy:    policy,
		heartbeat: 10 * time.Second,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Execute runs the plan of a document already claimed into the executing
// stage. On full success the document moves to done; on step exhaustion
// or a non-recoverable step the plan is marked partially_failed,
// remaining steps are skipped and the document moves to failed. No
// compensation of already-succeeded steps is attempted.
func (s *Service) Execute(ctx context.Context, id string) (result *Result, err error) {
	ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("engine.Execute %s", id), "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()
	span.WithAttributes(map[string]string{"document.id": id})

	doc, err := s.store.Read(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Stage != document.StageExecuting {
		return nil, fmt.Errorf("document %v is in stage %v, expected %v", id, doc.Stage, document.StageExecuting)
	}
	if doc.Plan == nil || len(doc.Plan.Steps) == 0 {
		return s.halt(ctx, doc, "", "document had no executable plan")
	}

	if step := runningStep(doc.Plan); step != nil {
		// Crash recovery: a step left running has unknown outcome.
		if s.resumable(step) {
			step.Status = plan.StepStatePending
		} else {
			detail := fmt.Sprintf("step %v has unknown outcome after interruption and is not idempotent", step.Action)
			if aErr := s.event(ctx, audit.ActionStepFailed, id, detail); aErr != nil {
				return nil, aErr
			}
			step.Status = plan.StepStateFailed
			step.Error = detail
			return s.halt(ctx, doc, step.Action, detail)
		}
	}

	doc.Plan.Status = plan.StatusRunning
	if err = s.persist(ctx, doc); err != nil {
		return nil, err
	}

	carried := carriedOutputs(doc.Plan)
	for {
		_, step := doc.Plan.NextStep()
		if step == nil {
			break
		}
		ok, sErr := s.runStep(ctx, doc, step, carried)
		if sErr != nil {
			return nil, sErr
		}
		if !ok {
			return s.halt(ctx, doc, step.Action, step.Error)
		}
	}

	doc.Plan.Status = plan.StatusCompleted
	if err = s.persist(ctx, doc); err != nil {
		return nil, err
	}
	if err = s.store.Move(ctx, id, document.StageExecuting, document.StageDone); err != nil {
		return nil, err
	}
	if err = s.event(ctx, audit.ActionTaskCompleted, id, ""); err != nil {
		return nil, err
	}
	return &Result{DocumentID: id, Stage: document.StageDone, PlanStatus: plan.StatusCompleted}, nil
}

// runStep attempts one step until success or give-up. It returns false
// when the step failed for good; errors are infrastructure failures.
// Outputs of earlier steps are carried into the step params, so e.g. a
// draft id produced by one step feeds the posting step that follows;
// explicit params always win over carried values.
func (s *Service) runStep(ctx context.Context, doc *document.Document, step *plan.Step, carried map[string]interface{}) (bool, error) {
	executable, signature, err := s.registry.Resolve(step.Action)
	if err != nil {
		step.Status = plan.StepStateFailed
		step.Error = err.Error()
		if aErr := s.event(ctx, audit.ActionStepFailed, doc.ID, err.Error()); aErr != nil {
			return false, aErr
		}
		return false, s.persist(ctx, doc)
	}

	for {
		started := clock.Now()
		step.Status = plan.StepStateRunning
		step.StartedAt = &started
		if err = s.persist(ctx, doc); err != nil {
			return false, err
		}

		input, output, tErr := s.typedIO(signature, mergedParams(carried, step.Params))
		runErr := tErr
		if runErr == nil {
			runErr = s.withHeartbeat(ctx, doc, func() error {
				return executable(ctx, input, output)
			})
		}
		if runErr == nil {
			completed := clock.Now()
			step.Status = plan.StepStateSucceeded
			step.CompletedAt = &completed
			step.Error = ""
			step.Output = outputMap(output)
			for key, value := range step.Output {
				carried[key] = value
			}
			actionType := audit.ActionStepExecuted
			if simulated(output) {
				actionType = audit.ActionMockSuccess
			}
			if aErr := s.event(ctx, actionType, doc.ID, step.Action); aErr != nil {
				return false, aErr
			}
			return true, s.persist(ctx, doc)
		}

		class := retry.Classify(runErr)
		decision := s.policy.Next(step.Attempts, class)
		step.Attempts++
		step.Error = runErr.Error()
		if decision.Retry {
			if aErr := s.event(ctx, audit.ActionRetryScheduled, doc.ID,
				fmt.Sprintf("%v attempt %v failed (%v), retrying in %v", step.Action, step.Attempts, runErr, decision.Delay)); aErr != nil {
				return false, aErr
			}
			if err = s.persist(ctx, doc); err != nil {
				return false, err
			}
			_ = s.withHeartbeat(ctx, doc, func() error {
				clock.Sleep(decision.Delay)
				return nil
			})
			continue
		}

		step.Status = plan.StepStateFailed
		actionType := audit.ActionStepFailed
		detail := fmt.Sprintf("%v failed permanently: %v", step.Action, runErr)
		if class == retry.ClassTransient {
			actionType = audit.ActionRetryExhausted
			detail = fmt.Sprintf("%v exhausted %v attempt(s): %v", step.Action, step.Attempts, runErr)
		}
		if aErr := s.event(ctx, actionType, doc.ID, detail); aErr != nil {
			return false, aErr
		}
		return false, s.persist(ctx, doc)
	}
}

// halt marks the plan partially failed and parks the document in the
// failed stage for human disposition.
func (s *Service) halt(ctx context.Context, doc *document.Document, failedStep, detail string) (*Result, error) {
	if doc.Plan != nil {
		doc.Plan.Status = plan.StatusPartiallyFailed
	}
	if err := s.persist(ctx, doc); err != nil {
		return nil, err
	}
	if err := s.store.Move(ctx, doc.ID, document.StageExecuting, document.StageFailed); err != nil {
		return nil, err
	}
	if err := s.event(ctx, audit.ActionTaskFailed, doc.ID, detail); err != nil {
		return nil, err
	}
	return &Result{DocumentID: doc.ID, Stage: document.StageFailed, PlanStatus: plan.StatusPartiallyFailed, FailedStep: failedStep}, nil
}

func (s *Service) resumable(step *plan.Step) bool {
	_, signature, err := s.registry.Resolve(step.Action)
	if err != nil {
		return false
	}
	return signature.Idempotent
}

func (s *Service) persist(ctx context.Context, doc *document.Document) error {
	doc.Touch()
	return s.store.Write(ctx, doc)
}

// withHeartbeat refreshes the document's progress timestamp while fn
// blocks, so a long collaborator call or backoff sleep never looks like
// an orphaned claim to the staleness scan.
func (s *Service) withHeartbeat(ctx context.Context, doc *document.Document, fn func() error) error {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				_ = s.persist(ctx, doc)
			}
		}
	}()
	err := fn()
	close(stop)
	wg.Wait()
	return err
}

func (s *Service) event(ctx context.Context, actionType audit.Action, subjectID, detail string) error {
	return s.audit.Append(ctx, &audit.Event{
		Actor:     audit.ActorSystem,
		Action:    actionType,
		SubjectID: subjectID,
		Detail:    detail,
	})
}

// typedIO converts raw step params into the typed input of the action
// signature and allocates its output.
func (s *Service) typedIO(signature *action.Signature, params map[string]interface{}) (interface{}, interface{}, error) {
	input := newInstance(signature.Input)
	if params != nil {
		if err := s.converter.Convert(params, input); err != nil {
			return nil, nil, retry.Permanent(fmt.Errorf("failed to convert step params: %w", err))
		}
	}
	return input, newInstance(signature.Output), nil
}

func newInstance(aType reflect.Type) interface{} {
	if aType.Kind() == reflect.Ptr {
		aType = aType.Elem()
	}
	return reflect.New(aType).Interface()
}

func runningStep(aPlan *plan.Plan) *plan.Step {
	for _, step := range aPlan.Steps {
		if step.Status == plan.StepStateRunning {
			return step
		}
	}
	return nil
}

// mergedParams layers explicit step params over the outputs carried from
// earlier steps.
func mergedParams(carried, params map[string]interface{}) map[string]interface{} {
	if len(carried) == 0 {
		return params
	}
	merged := make(map[string]interface{}, len(carried)+len(params))
	for key, value := range carried {
		merged[key] = value
	}
	for key, value := range params {
		merged[key] = value
	}
	return merged
}

// carriedOutputs rebuilds the carried state from already-succeeded steps,
// so a resumed execution still sees outputs produced before the crash.
func carriedOutputs(aPlan *plan.Plan) map[string]interface{} {
	carried := map[string]interface{}{}
	for _, step := range aPlan.Steps {
		if step.Status != plan.StepStateSucceeded {
			continue
		}
		for key, value := range step.Output {
			carried[key] = value
		}
	}
	return carried
}

// outputMap flattens a typed output into its wire representation, keyed
// the same way step params are, so outputs can feed later steps.
func outputMap(output interface{}) map[string]interface{} {
	data, err := json.Marshal(output)
	if err != nil {
		return nil
	}
	aMap := map[string]interface{}{}
	if err := json.Unmarshal(data, &aMap); err != nil {
		return nil
	}
	return toolbox.DeleteEmptyKeys(aMap)
}

func simulated(output interface{}) bool {
	value := reflect.ValueOf(output)
	if value.Kind() == reflect.Ptr {
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return false
	}
	field := value.FieldByName("Simulated")
	return field.IsValid() && field.Kind() == reflect.Bool && field.Bool()
}
