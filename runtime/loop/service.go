// Package loop drives the document lifecycle: it plans inbox documents,
// routes them through the approval gate, claims approved documents for
// execution and re-queues stale claims after a crash.
package loop

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/viant/conveyor/internal/clock"
	"github.com/viant/conveyor/model/document"
	"github.com/viant/conveyor/service/approval"
	"github.com/viant/conveyor/service/audit"
	"github.com/viant/conveyor/service/engine"
	"github.com/viant/conveyor/service/messaging"
	"github.com/viant/conveyor/service/processor"
	"github.com/viant/conveyor/service/store"
	"github.com/viant/conveyor/tracing"
)

// Config represents the persistence loop configuration.
type Config struct {
	// PollingInterval is how often the loop scans the stages.
	PollingInterval time.Duration `yaml:"pollingInterval" json:"pollingInterval"`

	// StaleClaimAfter is how long an executing document may go without a
	// progress write before its claim is considered orphaned.
	StaleClaimAfter time.Duration `yaml:"staleClaimAfter" json:"staleClaimAfter"`
}

// DefaultConfig returns the default loop configuration.
func DefaultConfig() Config {
	return Config{
		PollingInterval: 5 * time.Second,
		StaleClaimAfter: 30 * time.Second,
	}
}

// Service is the persistence loop.
type Service struct {
	config    Config
	store     store.Service
	processor *processor.Service
	approval  *approval.Service
	queue     messaging.Queue[engine.Job]

	mu        sync.Mutex
	published map[string]time.Time
	fatalErr  error

	shutdownCh chan struct{}
	once       sync.Once
}

// New creates a persistence loop.
func New(config Config, storeService store.Service, processorService *processor.Service, approvalService *approval.Service, queue messaging.Queue[engine.Job]) *Service {
	if config.PollingInterval <= 0 {
		config.PollingInterval = DefaultConfig().PollingInterval
	}
	if config.StaleClaimAfter <= 0 {
		config.StaleClaimAfter = DefaultConfig().StaleClaimAfter
	}
	return &Service{
		config:     config,
		store:      storeService,
		processor:  processorService,
		approval:   approvalService,
		queue:      queue,
		published:  make(map[string]time.Time),
		shutdownCh: make(chan struct{}),
	}
}

// Start runs the loop until the context is cancelled, Shutdown is called
// or a fatal error surfaces.
func (s *Service) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.config.PollingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.shutdownCh:
			return s.Err()
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				if audit.IsFatal(err) {
					s.Fatal(err)
					return err
				}
				log.Printf("loop: tick failed: %v", err)
			}
		}
	}
}

// Shutdown stops the loop.
func (s *Service) Shutdown() {
	s.once.Do(func() { close(s.shutdownCh) })
}

// Fatal records a non-recoverable error and stops the loop. Invoked by
// the worker pool when the audit trail cannot be written.
func (s *Service) Fatal(err error) {
	s.mu.Lock()
	if s.fatalErr == nil {
		s.fatalErr = err
	}
	s.mu.Unlock()
	s.Shutdown()
}

// Err returns the fatal error, if any.
func (s *Service) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fatalErr
}

// Tick performs one scan pass over all stages. It is safe to call
// directly, e.g. from a synchronous scan endpoint.
func (s *Service) Tick(ctx context.Context) (err error) {
	ctx, span := tracing.StartSpan(ctx, "loop.Tick", "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()

	if err = s.planInbox(ctx); err != nil {
		return err
	}
	if err = s.claimApproved(ctx); err != nil {
		return err
	}
	if err = s.requeueStale(ctx); err != nil {
		return err
	}
	pending, err := s.store.List(ctx, document.StagePendingApproval)
	if err != nil {
		return err
	}
	if len(pending) > 0 {
		span.WithAttributes(map[string]string{"approval.pending": fmt.Sprintf("%d", len(pending))})
	}
	return nil
}

// planInbox turns every inbox document into a plan and routes it through
// the approval gate.
func (s *Service) planInbox(ctx context.Context) error {
	ids, err := s.store.List(ctx, document.StageInbox)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err = s.processor.Process(ctx, id); err != nil {
			if audit.IsFatal(err) {
				return err
			}
			log.Printf("loop: failed to plan %v: %v", id, err)
			continue
		}
		if _, err = s.approval.Place(ctx, id); err != nil {
			if audit.IsFatal(err) {
				return err
			}
			log.Printf("loop: failed to gate %v: %v", id, err)
		}
	}
	return nil
}

// claimApproved claims approved documents for execution. The stage move
// is the claim: with several loops sharing a store only one wins.
func (s *Service) claimApproved(ctx context.Context) error {
	ids, err := s.store.List(ctx, document.StageApproved)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err = s.store.Move(ctx, id, document.StageApproved, document.StageExecuting); err != nil {
			// Lost the claim race; not an error.
			continue
		}
		if err = s.publish(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// requeueStale re-publishes executing documents whose claim went quiet,
// e.g. after a worker crash. Engine progress writes and its in-flight
// heartbeat refresh UpdatedAt, so an actively executing document is
// never stale.
func (s *Service) requeueStale(ctx context.Context) error {
	ids, err := s.store.List(ctx, document.StageExecuting)
	if err != nil {
		return err
	}
	s.forget(ids)
	now := clock.Now()
	for _, id := range ids {
		s.mu.Lock()
		publishedAt, inFlight := s.published[id]
		s.mu.Unlock()
		if inFlight && now.Sub(publishedAt) < s.config.StaleClaimAfter {
			continue
		}
		doc, rErr := s.store.Read(ctx, id)
		if rErr != nil {
			continue
		}
		if now.Sub(doc.UpdatedAt) < s.config.StaleClaimAfter {
			continue
		}
		if err = s.publish(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// forget drops claim bookkeeping for documents that left the executing
// stage.
func (s *Service) forget(executing []string) {
	current := make(map[string]bool, len(executing))
	for _, id := range executing {
		current[id] = true
	}
	s.mu.Lock()
	for id := range s.published {
		if !current[id] {
			delete(s.published, id)
		}
	}
	s.mu.Unlock()
}

func (s *Service) publish(ctx context.Context, id string) error {
	if err := s.queue.Publish(ctx, &engine.Job{DocumentID: id}); err != nil {
		return err
	}
	s.mu.Lock()
	s.published[id] = clock.Now()
	s.mu.Unlock()
	return nil
}

// Pending reports how many documents still need system work; used by the
// drain mode to decide when to exit. Documents parked for human approval
// do not count.
func (s *Service) Pending(ctx context.Context) (int, error) {
	total := 0
	for _, stage := range []document.Stage{document.StageInbox, document.StagePlans, document.StageApproved, document.StageExecuting} {
		ids, err := s.store.List(ctx, stage)
		if err != nil {
			return 0, err
		}
		total += len(ids)
	}
	return total, nil
}
