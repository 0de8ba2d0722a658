package conveyor

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/afs"
	"github.com/viant/conveyor/retry"
	"github.com/viant/conveyor/runtime/loop"
	"github.com/viant/conveyor/service/action/erp"
	"github.com/viant/conveyor/service/approval"
	"github.com/viant/conveyor/service/engine"
	"gopkg.in/yaml.v3"
)

// TracingConfig configures the stdout trace exporter.
type TracingConfig struct {
	ServiceName string `yaml:"serviceName" json:"serviceName"`
	Version     string `yaml:"version,omitempty" json:"version,omitempty"`
	OutputFile  string `yaml:"outputFile,omitempty" json:"outputFile,omitempty"`
}

// AuditConfig selects and locates the audit log backend.
type AuditConfig struct {
	// Backend is one of memory, fs or sqlite. Empty follows StoreURL:
	// memory for an in-memory store, fs otherwise.
	Backend string `yaml:"backend,omitempty" json:"backend,omitempty"`

	// URL locates the log: a JSONL file URL for fs, a database file path
	// for sqlite.
	URL string `yaml:"url,omitempty" json:"url,omitempty"`
}

// Config represents orchestrator configuration.
type Config struct {
	// StoreURL is the document store root. Empty selects the in-memory
	// store.
	StoreURL string `yaml:"storeURL,omitempty" json:"storeURL,omitempty"`

	// ArtifactURL is where research artifacts are written.
	ArtifactURL string `yaml:"artifactURL,omitempty" json:"artifactURL,omitempty"`

	Audit    AuditConfig       `yaml:"audit,omitempty" json:"audit,omitempty"`
	Retry    retry.Policy      `yaml:"retry,omitempty" json:"retry,omitempty"`
	Approval approval.Policy   `yaml:"approval,omitempty" json:"approval,omitempty"`
	Loop     loop.Config       `yaml:"loop,omitempty" json:"loop,omitempty"`
	Workers  engine.PoolConfig `yaml:"workers,omitempty" json:"workers,omitempty"`

	// Sandbox routes ERP and comms calls to recording stubs instead of
	// live collaborators.
	Sandbox bool             `yaml:"sandbox,omitempty" json:"sandbox,omitempty"`
	ERP     erp.ClientConfig `yaml:"erp,omitempty" json:"erp,omitempty"`

	Tracing *TracingConfig `yaml:"tracing,omitempty" json:"tracing,omitempty"`
}

// DefaultConfig returns a sandbox, in-memory configuration.
func DefaultConfig() Config {
	return Config{
		Retry:    retry.DefaultPolicy(),
		Approval: approval.DefaultPolicy(),
		Loop:     loop.DefaultConfig(),
		Workers:  engine.DefaultPoolConfig(),
		Sandbox:  true,
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("retry.maxAttempts must not be negative")
	}
	if c.Retry.BaseDelay < 0 || c.Retry.MaxDelay < 0 {
		return fmt.Errorf("retry delays must not be negative")
	}
	if c.Retry.MaxDelay > 0 && c.Retry.BaseDelay > c.Retry.MaxDelay {
		return fmt.Errorf("retry.baseDelay %v exceeds retry.maxDelay %v", c.Retry.BaseDelay, c.Retry.MaxDelay)
	}
	if c.Approval.AutoApproveLimit < 0 {
		return fmt.Errorf("approval.autoApproveLimit must not be negative")
	}
	switch c.Audit.Backend {
	case "", "memory", "fs", "sqlite":
	default:
		return fmt.Errorf("unsupported audit backend %q", c.Audit.Backend)
	}
	if (c.Audit.Backend == "fs" || c.Audit.Backend == "sqlite") && c.Audit.URL == "" {
		return fmt.Errorf("audit backend %q requires audit.url", c.Audit.Backend)
	}
	if !c.Sandbox && c.ERP.EndpointURL == "" {
		return fmt.Errorf("live mode requires erp.endpointURL")
	}
	return nil
}

func (c *Config) init() {
	defaults := DefaultConfig()
	if c.Retry.MaxAttempts == 0 && c.Retry.BaseDelay == 0 {
		c.Retry = defaults.Retry
	}
	if c.Approval.AutoApproveLimit == 0 && len(c.Approval.RestrictedActions) == 0 {
		c.Approval = defaults.Approval
	}
	if c.Loop.PollingInterval == 0 {
		c.Loop.PollingInterval = defaults.Loop.PollingInterval
	}
	if c.Loop.StaleClaimAfter == 0 {
		c.Loop.StaleClaimAfter = defaults.Loop.StaleClaimAfter
	}
	if c.Workers.WorkerCount == 0 {
		c.Workers = defaults.Workers
	}
	if c.ERP.Timeout == 0 {
		c.ERP.Timeout = 30 * time.Second
	}
}

// LoadConfig reads a YAML configuration from the supplied URL.
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %v: %w", URL, err)
	}
	cfg := &Config{}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %v: %w", URL, err)
	}
	cfg.init()
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
