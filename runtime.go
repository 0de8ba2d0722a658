package conveyor

import (
	"context"
	"time"

	"github.com/viant/conveyor/internal/clock"
	"github.com/viant/conveyor/runtime/loop"
	"github.com/viant/conveyor/service/engine"
)

// Runtime controls the persistence loop and the execution worker pool.
type Runtime struct {
	loop *loop.Service
	pool *engine.Pool
}

// Start launches the worker pool and the persistence loop. It blocks
// until the context is cancelled, Shutdown is called or a fatal error
// stops the loop.
func (r *Runtime) Start(ctx context.Context) error {
	r.pool.Start(ctx)
	defer r.pool.Shutdown()
	return r.loop.Start(ctx)
}

// StartInBackground launches the runtime without blocking.
func (r *Runtime) StartInBackground(ctx context.Context) {
	r.pool.Start(ctx)
	go func() {
		_ = r.loop.Start(ctx)
	}()
}

// Shutdown stops the loop and waits for in-flight executions.
func (r *Runtime) Shutdown() {
	r.loop.Shutdown()
	r.pool.Shutdown()
}

// Err returns the fatal error that stopped the loop, if any.
func (r *Runtime) Err() error {
	return r.loop.Err()
}

// Drain ticks the loop until no document needs system work, then
// returns. Documents waiting for human approval do not block draining.
func (r *Runtime) Drain(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.loop.Tick(ctx); err != nil {
			return err
		}
		pending, err := r.loop.Pending(ctx)
		if err != nil {
			return err
		}
		if pending == 0 {
			return r.loop.Err()
		}
		clock.Sleep(50 * time.Millisecond)
	}
}
