package worker

import (
	"context"
	"hash/fnv"
	"sync"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/tasksync/internal/model"
)

// Handler processes one event. It is always called from the worker that
// owns the event's shard.
type Handler func(model.Event)

// Pool dispatches events to a fixed set of workers sharded by owner id.
// Each shard is a FIFO drained by exactly one goroutine, so events of one
// owner are handled in submission order while different owners run in parallel.
type Pool struct {
	logger *zap.Logger
	count  int
	queues []chan model.Event
	handle Handler
	wg     sync.WaitGroup

	// mu orders Submit against Stop: once stopped is set no send can start,
	// so everything accepted is already queued when the workers drain.
	mu      sync.RWMutex
	stopped bool
	stop    chan struct{}
	ctx     context.Context
}

func NewPool(logger *zap.Logger, count, queueSize int, handle Handler) *Pool {
	if count < 1 {
		count = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	queues := make([]chan model.Event, count)
	for i := range queues {
		queues[i] = make(chan model.Event, queueSize)
	}

	return &Pool{
		logger: logger,
		count:  count,
		queues: queues,
		handle: handle,
		stop:   make(chan struct{}),
		ctx:    context.Background(),
	}
}

func (p *Pool) Start(ctx context.Context) {
	p.logger.Info("Starting dispatch pool", zap.Int("workers", p.count))

	p.mu.Lock()
	p.ctx = ctx
	p.mu.Unlock()

	for i := 0; i < p.count; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop lets workers drain what is already queued, then waits for them.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.stopped {
		p.logger.Info("Stopping dispatch pool...")
		p.stopped = true
		close(p.stop)
	}
	p.mu.Unlock()
	p.wg.Wait()
	p.logger.Info("Dispatch pool stopped")
}

// Submit queues ev on its owner's shard. It blocks while the shard is full
// and returns false once the pool is stopping. True means ev will be handled.
func (p *Pool) Submit(ev model.Event) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return false
	}

	select {
	case p.queues[p.shard(ev.OwnerID)] <- ev:
		return true
	case <-p.ctx.Done():
		return false
	}
}

func (p *Pool) shard(ownerID string) int {
	h := fnv.New32a()
	h.Write([]byte(ownerID))
	return int(h.Sum32() % uint32(p.count))
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	queue := p.queues[id]
	for {
		select {
		case <-p.stop:
			p.drain(id, queue)
			return
		case <-ctx.Done():
			return
		case ev := <-queue:
			p.process(id, ev)
		}
	}
}

func (p *Pool) drain(id int, queue chan model.Event) {
	for {
		select {
		case ev := <-queue:
			p.process(id, ev)
		default:
			return
		}
	}
}

func (p *Pool) process(workerID int, ev model.Event) {
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("event handler panicked",
				zap.Int("worker", workerID),
				zap.String("owner_id", ev.OwnerID),
				zap.Any("panic", rec),
			)
		}
	}()

	p.handle(ev)
}
