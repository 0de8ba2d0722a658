package engine

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/viant/conveyor/service/audit"
	"github.com/viant/conveyor/service/messaging"
)

// Job is a claim handed to the worker pool: the document is already in
// the executing stage and owned by exactly one consumer.
type Job struct {
	DocumentID string
}

// PoolConfig configures the worker pool.
type PoolConfig struct {
	WorkerCount int `yaml:"workerCount" json:"workerCount"`
}

// DefaultPoolConfig returns the default pool sizing.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{WorkerCount: 5}
}

// Pool consumes execution claims and runs them through the engine.
type Pool struct {
	config  PoolConfig
	engine  *Service
	queue   messaging.Queue[Job]
	onFatal func(error)

	workers  []*worker
	workerWg sync.WaitGroup
}

type worker struct {
	id       int
	pool     *Pool
	ctx      context.Context
	cancelFn context.CancelFunc
}

// NewPool creates a worker pool. onFatal is invoked when an execution
// hits a non-recoverable infrastructure failure (a fatal audit append);
// it may be nil.
func NewPool(config PoolConfig, engineService *Service, queue messaging.Queue[Job], onFatal func(error)) *Pool {
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultPoolConfig().WorkerCount
	}
	return &Pool{config: config, engine: engineService, queue: queue, onFatal: onFatal}
}

// Start launches the worker goroutines.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.config.WorkerCount; i++ {
		workerCtx, cancel := context.WithCancel(ctx)
		w := &worker{id: i, pool: p, ctx: workerCtx, cancelFn: cancel}
		p.workers = append(p.workers, w)
		p.workerWg.Add(1)
		go w.run()
	}
}

// Shutdown stops all workers and waits for in-flight executions.
func (p *Pool) Shutdown() {
	for _, w := range p.workers {
		w.cancelFn()
	}
	p.workerWg.Wait()
}

func (w *worker) run() {
	defer w.pool.workerWg.Done()
	for {
		msg, err := w.pool.queue.Consume(w.ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if msg == nil {
			continue
		}
		w.process(msg)
	}
}

func (w *worker) process(msg messaging.Message[Job]) {
	job := msg.T()
	_, err := w.pool.engine.Execute(w.ctx, job.DocumentID)
	if err == nil {
		_ = msg.Ack()
		return
	}
	if audit.IsFatal(err) {
		_ = msg.Nack(err)
		if w.pool.onFatal != nil {
			w.pool.onFatal(err)
		}
		return
	}
	// A failed plan is a handled outcome; only infrastructure errors are
	// redelivered.
	log.Printf("worker %d: execution of %v failed: %v", w.id, job.DocumentID, err)
	_ = msg.Nack(err)
}
