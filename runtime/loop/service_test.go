package loop

import (
	"context"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/conveyor/internal/clock"
	"github.com/viant/conveyor/model/document"
	"github.com/viant/conveyor/retry"
	"github.com/viant/conveyor/service/action"
	"github.com/viant/conveyor/service/action/research"
	"github.com/viant/conveyor/service/approval"
	auditmem "github.com/viant/conveyor/service/audit/memory"
	"github.com/viant/conveyor/service/engine"
	mmemory "github.com/viant/conveyor/service/messaging/memory"
	"github.com/viant/conveyor/service/processor"
	storemem "github.com/viant/conveyor/service/store/memory"
)

type fixture struct {
	loop   *Service
	store  *storemem.Service
	log    *auditmem.Log
	queue  *mmemory.Queue[engine.Job]
	engine *engine.Service
}

func newFixture(t *testing.T, config Config) *fixture {
	t.Helper()
	aStore := storemem.New()
	aLog := auditmem.New()
	queue := mmemory.NewQueue[engine.Job](mmemory.DefaultConfig())
	registry := action.NewRegistry()
	registry.Register(research.New(path.Join(t.TempDir(), "artifacts")))
	return &fixture{
		loop:   New(config, aStore, processor.New(aStore, aLog), approval.New(aStore, aLog, approval.DefaultPolicy()), queue),
		store:  aStore,
		log:    aLog,
		queue:  queue,
		engine: engine.New(aStore, aLog, registry, retry.DefaultPolicy()),
	}
}

func TestService_TickClaimsApprovedWork(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultConfig())

	doc := document.New("doc-1", document.OriginChat, map[string]interface{}{"topic": "supplier terms"})
	assert.NoError(t, f.store.Deposit(ctx, doc))

	// one pass: planned, auto-approved and claimed
	assert.NoError(t, f.loop.Tick(ctx))
	stored, err := f.store.Read(ctx, "doc-1")
	assert.NoError(t, err)
	assert.EqualValues(t, document.StageExecuting, stored.Stage)
	assert.EqualValues(t, 1, f.queue.Size())

	// drain the claim the way a worker would
	msg, err := f.queue.Consume(ctx)
	assert.NoError(t, err)
	result, err := f.engine.Execute(ctx, msg.T().DocumentID)
	assert.NoError(t, err)
	assert.NoError(t, msg.Ack())
	assert.EqualValues(t, document.StageDone, result.Stage)

	// nothing left to do
	assert.NoError(t, f.loop.Tick(ctx))
	assert.EqualValues(t, 0, f.queue.Size())
	pending, err := f.loop.Pending(ctx)
	assert.NoError(t, err)
	assert.EqualValues(t, 0, pending)
}

func TestService_TickParksGatedWork(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultConfig())

	doc := document.New("doc-1", document.OriginEmail, map[string]interface{}{"goal": "pay invoice", "amount": 5000})
	assert.NoError(t, f.store.Deposit(ctx, doc))

	assert.NoError(t, f.loop.Tick(ctx))
	stored, err := f.store.Read(ctx, "doc-1")
	assert.NoError(t, err)
	assert.EqualValues(t, document.StagePendingApproval, stored.Stage)
	assert.EqualValues(t, 0, f.queue.Size())

	// documents waiting on a human do not count as pending system work
	pending, err := f.loop.Pending(ctx)
	assert.NoError(t, err)
	assert.EqualValues(t, 0, pending)
}

func TestService_TickRequeuesStaleClaims(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	clock.NowFunc = func() time.Time { return base }
	defer func() { clock.NowFunc = time.Now }()

	ctx := context.Background()
	config := DefaultConfig()
	config.StaleClaimAfter = 30 * time.Second
	f := newFixture(t, config)

	doc := document.New("doc-1", document.OriginChat, map[string]interface{}{"topic": "stale claim"})
	assert.NoError(t, f.store.Deposit(ctx, doc))
	assert.NoError(t, f.loop.Tick(ctx))
	assert.EqualValues(t, 1, f.queue.Size())

	// recently published claim is left alone even though nothing moved
	assert.NoError(t, f.loop.Tick(ctx))
	assert.EqualValues(t, 1, f.queue.Size())

	// after the staleness window passes without progress the claim is
	// re-published, e.g. when the worker that held it crashed
	base = base.Add(time.Minute)
	assert.NoError(t, f.loop.Tick(ctx))
	assert.EqualValues(t, 2, f.queue.Size())
}
