package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/tasksync/internal/metrics"
	"github.com/BuzzLyutic/tasksync/internal/model"
	"github.com/BuzzLyutic/tasksync/internal/worker"
)

// Router hands change events to the registry through an owner-sharded
// worker pool. It adds no reordering: one owner's events are delivered in
// the order Publish was called.
type Router struct {
	registry *Registry
	pool     *worker.Pool
	logger   *zap.Logger
	metrics  metrics.Recorder
}

func NewRouter(registry *Registry, logger *zap.Logger, rec metrics.Recorder, workers, queueSize int) *Router {
	r := &Router{
		registry: registry,
		logger:   logger,
		metrics:  rec,
	}
	r.pool = worker.NewPool(logger, workers, queueSize, r.deliver)
	return r
}

func (r *Router) Start(ctx context.Context) { r.pool.Start(ctx) }

// Stop delivers everything already published and stops the workers.
func (r *Router) Stop() { r.pool.Stop() }

// Publish never fails the caller: the mutation is already durable by the
// time it gets here.
func (r *Router) Publish(ctx context.Context, ev model.Event) {
	r.metrics.EventPublished(string(ev.Kind))
	if !r.pool.Submit(ev) {
		r.logger.Warn("router stopped, event not delivered",
			zap.String("owner_id", ev.OwnerID),
			zap.String("event", string(ev.Kind)),
			zap.Int64("task_id", ev.TaskID),
		)
	}
}

func (r *Router) deliver(ev model.Event) {
	n := r.registry.BroadcastTo(ev.OwnerID, ev)
	r.logger.Debug("event broadcast",
		zap.String("owner_id", ev.OwnerID),
		zap.String("event", string(ev.Kind)),
		zap.Int64("task_id", ev.TaskID),
		zap.Int("sessions", n),
	)
}
