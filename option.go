package conveyor

import (
	"github.com/viant/conveyor/service/action"
	"github.com/viant/conveyor/service/action/comms"
	"github.com/viant/conveyor/service/action/erp"
	"github.com/viant/conveyor/service/audit"
	"github.com/viant/conveyor/service/engine"
	"github.com/viant/conveyor/service/messaging"
	"github.com/viant/conveyor/service/store"
	"github.com/viant/conveyor/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises the orchestrator.
type Option func(*Service)

// WithStore overrides the document store.
func WithStore(svc store.Service) Option {
	return func(s *Service) {
		s.store = svc
	}
}

// WithAuditLog overrides the audit log. The supplied log is used as-is,
// without the resilient retry wrapper.
func WithAuditLog(log audit.Log) Option {
	return func(s *Service) {
		s.auditLog = log
	}
}

// WithQueue overrides the execution claim queue.
func WithQueue(queue messaging.Queue[engine.Job]) Option {
	return func(s *Service) {
		s.queue = queue
	}
}

// WithERPClient overrides the ERP collaborator client.
func WithERPClient(client erp.Client) Option {
	return func(s *Service) {
		s.erpClient = client
	}
}

// WithSender overrides the outbound message sender.
func WithSender(sender comms.Sender) Option {
	return func(s *Service) {
		s.sender = sender
	}
}

// WithActionServices registers extension action services.
func WithActionServices(services ...action.Service) Option {
	return func(s *Service) {
		s.extraActions = append(s.extraActions, services...)
	}
}

// WithTracingExporter installs a custom span exporter instead of the
// stdout exporter from the configuration.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		if err := tracing.InitWithExporter(serviceName, serviceVersion, exporter); err == nil {
			s.tracingApplied = true
		}
	}
}
