package hub

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/tasksync/internal/metrics"
	"github.com/BuzzLyutic/tasksync/internal/model"
)

var ErrOwnerMismatch = errors.New("session belongs to another owner")

// Registry maps owner id to the set of that owner's live sessions.
type Registry struct {
	mu      sync.RWMutex
	groups  map[string]map[*Session]struct{}
	logger  *zap.Logger
	metrics metrics.Recorder
}

func NewRegistry(logger *zap.Logger, rec metrics.Recorder) *Registry {
	return &Registry{
		groups:  make(map[string]map[*Session]struct{}),
		logger:  logger,
		metrics: rec,
	}
}

// Register adds s to the owner's group. Registering the same session twice is a no-op.
func (r *Registry) Register(ownerID string, s *Session) error {
	if s.OwnerID() != ownerID {
		return ErrOwnerMismatch
	}

	r.mu.Lock()
	group, ok := r.groups[ownerID]
	if !ok {
		group = make(map[*Session]struct{})
		r.groups[ownerID] = group
	}
	_, exists := group[s]
	group[s] = struct{}{}
	r.mu.Unlock()

	if !exists {
		r.metrics.SessionOpened()
		r.logger.Info("session registered",
			zap.String("owner_id", ownerID),
			zap.String("session_id", s.ID()),
		)
	}
	return nil
}

// Unregister removes s from its group and reports whether it was present.
func (r *Registry) Unregister(s *Session) bool {
	r.mu.Lock()
	group, ok := r.groups[s.OwnerID()]
	if ok {
		_, ok = group[s]
		delete(group, s)
		if len(group) == 0 {
			delete(r.groups, s.OwnerID())
		}
	}
	r.mu.Unlock()

	if ok {
		r.metrics.SessionClosed()
		r.logger.Info("session unregistered",
			zap.String("owner_id", s.OwnerID()),
			zap.String("session_id", s.ID()),
		)
	}
	return ok
}

// BroadcastTo queues ev on every session registered under ownerID and
// returns how many accepted it. The group is snapshotted, so sessions that
// join mid-delivery may miss this event. A session that cannot take the event
// is dropped and closed; the rest still get it.
func (r *Registry) BroadcastTo(ownerID string, ev model.Event) int {
	if ev.OwnerID != ownerID {
		r.logger.Error("refusing cross-owner broadcast",
			zap.String("owner_id", ownerID),
			zap.String("event_owner_id", ev.OwnerID),
		)
		return 0
	}

	targets := r.snapshot(ownerID)

	delivered := 0
	for _, s := range targets {
		if s.enqueue(ev) {
			delivered++
			r.metrics.EventDelivered()
			continue
		}

		r.metrics.EventDropped()
		r.logger.Warn("session not accepting events, dropping it",
			zap.String("owner_id", ownerID),
			zap.String("session_id", s.ID()),
			zap.String("event", string(ev.Kind)),
		)
		r.Unregister(s)
		s.Close()
	}
	return delivered
}

// Count returns the number of live sessions for ownerID.
func (r *Registry) Count(ownerID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups[ownerID])
}

// Len returns the number of live sessions across all owners.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, group := range r.groups {
		n += len(group)
	}
	return n
}

// CloseAll closes every session. Used on shutdown; the connection handlers
// unregister them as they exit.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	var all []*Session
	for _, group := range r.groups {
		for s := range group {
			all = append(all, s)
		}
	}
	r.mu.RUnlock()

	for _, s := range all {
		s.Close()
	}
}

func (r *Registry) snapshot(ownerID string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	group := r.groups[ownerID]
	targets := make([]*Session, 0, len(group))
	for s := range group {
		targets = append(targets, s)
	}
	return targets
}
