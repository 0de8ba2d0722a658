package conveyor

import (
	"context"
	"fmt"

	"github.com/viant/conveyor/model/document"
	"github.com/viant/conveyor/runtime/loop"
	"github.com/viant/conveyor/service/action"
	"github.com/viant/conveyor/service/action/comms"
	"github.com/viant/conveyor/service/action/erp"
	"github.com/viant/conveyor/service/action/research"
	"github.com/viant/conveyor/service/approval"
	"github.com/viant/conveyor/service/audit"
	auditfs "github.com/viant/conveyor/service/audit/fs"
	auditmem "github.com/viant/conveyor/service/audit/memory"
	auditsqlite "github.com/viant/conveyor/service/audit/sqlite"
	"github.com/viant/conveyor/service/engine"
	"github.com/viant/conveyor/service/messaging"
	mmemory "github.com/viant/conveyor/service/messaging/memory"
	"github.com/viant/conveyor/service/processor"
	"github.com/viant/conveyor/service/store"
	storefs "github.com/viant/conveyor/service/store/fs"
	storemem "github.com/viant/conveyor/service/store/memory"
	"github.com/viant/conveyor/tracing"
)

// Service is the task lifecycle orchestrator façade. It owns the store,
// the audit trail, the approval gate and the execution engine, and is
// the only writer of document state.
type Service struct {
	config  Config
	runtime *Runtime

	store    store.Service
	auditLog audit.Log
	registry *action.Registry
	queue    messaging.Queue[engine.Job]

	processor *processor.Service
	approval  *approval.Service
	engine    *engine.Service

	erpClient      erp.Client
	sender         comms.Sender
	extraActions   []action.Service
	tracingApplied bool
}

// New creates an orchestrator from the configuration and options.
func New(config Config, options ...Option) (*Service, error) {
	config.init()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	s := &Service{config: config, runtime: &Runtime{}}
	for _, option := range options {
		option(s)
	}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) init() error {
	if err := s.ensureBaseSetup(); err != nil {
		return err
	}
	s.registry = action.NewRegistry()
	s.registry.Register(research.New(s.artifactURL()))
	s.registry.Register(erp.New(s.erpClient))
	s.registry.Register(comms.New(s.sender))
	for _, svc := range s.extraActions {
		s.registry.Register(svc)
	}

	s.processor = processor.New(s.store, s.auditLog)
	s.approval = approval.New(s.store, s.auditLog, s.config.Approval)
	s.engine = engine.New(s.store, s.auditLog, s.registry, s.config.Retry,
		engine.WithHeartbeat(s.config.Loop.StaleClaimAfter/3))

	s.runtime.loop = loop.New(s.config.Loop, s.store, s.processor, s.approval, s.queue)
	s.runtime.pool = engine.NewPool(s.config.Workers, s.engine, s.queue, s.runtime.loop.Fatal)
	return nil
}

func (s *Service) ensureBaseSetup() error {
	if s.config.Tracing != nil && !s.tracingApplied {
		if err := tracing.Init(s.config.Tracing.ServiceName, s.config.Tracing.Version, s.config.Tracing.OutputFile); err != nil {
			return err
		}
		s.tracingApplied = true
	}
	if s.store == nil {
		if s.config.StoreURL == "" {
			s.store = storemem.New()
		} else {
			fsStore, err := storefs.New(s.config.StoreURL)
			if err != nil {
				return err
			}
			s.store = fsStore
		}
	}
	if s.auditLog == nil {
		backend := s.config.Audit.Backend
		if backend == "" {
			if s.config.Audit.URL != "" {
				backend = "fs"
			} else {
				backend = "memory"
			}
		}
		var delegate audit.Log
		var err error
		switch backend {
		case "memory":
			delegate = auditmem.New()
		case "fs":
			delegate, err = auditfs.New(s.config.Audit.URL)
		case "sqlite":
			delegate, err = auditsqlite.New(s.config.Audit.URL)
		default:
			err = fmt.Errorf("unsupported audit backend %q", backend)
		}
		if err != nil {
			return err
		}
		s.auditLog = audit.NewResilient(delegate, s.config.Retry)
	}
	if s.queue == nil {
		s.queue = mmemory.NewQueue[engine.Job](mmemory.DefaultConfig())
	}
	if s.erpClient == nil {
		if s.config.Sandbox {
			s.erpClient = erp.NewRecorder()
		} else {
			s.erpClient = erp.NewClient(s.config.ERP)
		}
	}
	if s.sender == nil {
		s.sender = comms.NewRecorder()
	}
	return nil
}

func (s *Service) artifactURL() string {
	if s.config.ArtifactURL != "" {
		return s.config.ArtifactURL
	}
	if s.config.StoreURL != "" {
		return s.config.StoreURL + "/artifacts"
	}
	return "mem://localhost/conveyor/artifacts"
}

// Runtime returns the runtime controlling the loop and worker pool.
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

// RegisterActions adds extension action services to the registry.
func (s *Service) RegisterActions(services ...action.Service) {
	for _, svc := range services {
		s.registry.Register(svc)
	}
}

// Deposit accepts a document from a producer: it lands in the inbox and
// a TASK_RECEIVED event is recorded. Redelivery of the same id yields
// store.ErrDuplicateDocument; producers treat that as delivery confirmed.
func (s *Service) Deposit(ctx context.Context, doc *document.Document) error {
	if err := s.store.Deposit(ctx, doc); err != nil {
		return err
	}
	return s.auditLog.Append(ctx, &audit.Event{
		Actor:     audit.ActorExternalAPI,
		Action:    audit.ActionTaskReceived,
		SubjectID: doc.ID,
		Detail:    fmt.Sprintf("origin %v", doc.Origin),
	})
}

// Document returns a copy of the document.
func (s *Service) Document(ctx context.Context, id string) (*document.Document, error) {
	return s.store.Read(ctx, id)
}

// Stage lists the ids occupying a stage.
func (s *Service) Stage(ctx context.Context, stage document.Stage) ([]string, error) {
	if !stage.IsValid() {
		return nil, fmt.Errorf("unknown stage %q", stage)
	}
	return s.store.List(ctx, stage)
}

// Approve releases a gated document for execution.
func (s *Service) Approve(ctx context.Context, id, approver, note string) error {
	return s.approval.Approve(ctx, id, approver, note)
}

// Reject terminates a gated document.
func (s *Service) Reject(ctx context.Context, id, approver, reason string) error {
	return s.approval.Reject(ctx, id, approver, reason)
}

// AuditTail returns the last n audit events, or the full history when n
// is zero.
func (s *Service) AuditTail(ctx context.Context, n int) ([]*audit.Event, error) {
	return s.auditLog.Tail(ctx, n)
}

// Scan performs one synchronous pass of the persistence loop.
func (s *Service) Scan(ctx context.Context) error {
	return s.runtime.loop.Tick(ctx)
}
