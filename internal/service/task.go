package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/tasksync/internal/metrics"
	"github.com/BuzzLyutic/tasksync/internal/model"
	"github.com/BuzzLyutic/tasksync/internal/repo"
)

var (
	ErrValidation = errors.New("validation error")
)

// Publisher receives exactly one change event per successful mutation.
type Publisher interface {
	Publish(ctx context.Context, ev model.Event)
}

// TaskService is the only entry point that creates or mutates tasks.
// Each mutation validates first, persists, and only after the store
// reports success publishes its event. Mutations of one owner are
// serialized from the store call to the publish, so events leave in
// commit order; different owners never wait on each other.
type TaskService struct {
	repo    repo.TaskRepository
	events  Publisher
	logger  *zap.Logger
	metrics metrics.Recorder
	locks   *ownerLocks
}

func NewTaskService(repo repo.TaskRepository, events Publisher, logger *zap.Logger, rec metrics.Recorder) *TaskService {
	return &TaskService{
		repo:    repo,
		events:  events,
		logger:  logger,
		metrics: rec,
		locks:   newOwnerLocks(),
	}
}

// List returns the owner's tasks in creation order.
func (s *TaskService) List(ctx context.Context, ownerID string) ([]model.Task, error) {
	tasks, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) Create(ctx context.Context, ownerID string, in model.NewTask) (model.Task, error) {
	t, err := s.validateNew(ownerID, in) // Валидация до любого обращения к БД
	if err != nil {
		s.metrics.Mutation("create", false)
		return model.Task{}, err
	}

	unlock := s.locks.lock(ownerID)
	defer unlock()

	created, err := s.repo.Create(ctx, t)
	if err != nil {
		return model.Task{}, s.fail("create", ownerID, 0, err)
	}

	s.emit(ctx, "create", model.TaskCreated(created))
	return created, nil
}

func (s *TaskService) Update(ctx context.Context, ownerID string, id int64, p model.TaskPatch) (model.Task, error) {
	if err := s.validatePatch(&p); err != nil {
		s.metrics.Mutation("update", false)
		return model.Task{}, err
	}

	unlock := s.locks.lock(ownerID)
	defer unlock()

	updated, err := s.repo.Update(ctx, ownerID, id, p)
	if err != nil {
		return model.Task{}, s.fail("update", ownerID, id, err)
	}

	s.emit(ctx, "update", model.TaskUpdated(updated))
	return updated, nil
}

// Delete returns the id of the removed task.
func (s *TaskService) Delete(ctx context.Context, ownerID string, id int64) (int64, error) {
	unlock := s.locks.lock(ownerID)
	defer unlock()

	deleted, err := s.repo.Delete(ctx, ownerID, id)
	if err != nil {
		return 0, s.fail("delete", ownerID, id, err)
	}

	s.emit(ctx, "delete", model.TaskDeleted(ownerID, deleted))
	return deleted, nil
}

// AccumulateTime adds a caller-measured delta to the task's elapsed time.
// The service keeps no timer state; retrying a delta double counts it.
func (s *TaskService) AccumulateTime(ctx context.Context, ownerID string, id int64, deltaSeconds int64) (model.Task, error) {
	if deltaSeconds < 0 {
		s.metrics.Mutation("accumulate_time", false)
		return model.Task{}, fmt.Errorf("%w: seconds must not be negative", ErrValidation)
	}

	unlock := s.locks.lock(ownerID)
	defer unlock()

	updated, err := s.repo.AddElapsed(ctx, ownerID, id, deltaSeconds)
	if err != nil {
		return model.Task{}, s.fail("accumulate_time", ownerID, id, err)
	}

	s.emit(ctx, "accumulate_time", model.TaskUpdated(updated))
	return updated, nil
}

func (s *TaskService) emit(ctx context.Context, op string, ev model.Event) {
	s.metrics.Mutation(op, true)
	s.events.Publish(ctx, ev)
	s.logger.Info("task mutated",
		zap.String("op", op),
		zap.String("owner_id", ev.OwnerID),
		zap.Int64("task_id", ev.TaskID),
	)
}

func (s *TaskService) fail(op, ownerID string, id int64, err error) error {
	s.metrics.Mutation(op, false)
	if errors.Is(err, repo.ErrorOutOfRange) {
		return fmt.Errorf("%w: value out of range", ErrValidation)
	}
	if !errors.Is(err, repo.ErrorNotFound) {
		s.logger.Error("task mutation failed",
			zap.String("op", op),
			zap.String("owner_id", ownerID),
			zap.Int64("task_id", id),
			zap.Error(err),
		)
	}
	return fmt.Errorf("%s task: %w", op, err)
}

func (s *TaskService) validateNew(ownerID string, in model.NewTask) (model.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return model.Task{}, fmt.Errorf("%w: title is required", ErrValidation)
	}

	status := in.Status
	if status == "" {
		status = model.StatusPending
	}
	if !status.Valid() {
		return model.Task{}, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	return model.Task{
		OwnerID:     ownerID,
		Title:       title,
		Description: in.Description,
		Status:      status,
		OrderIndex:  in.OrderIndex,
		DueDate:     in.DueDate,
	}, nil
}

func (s *TaskService) validatePatch(p *model.TaskPatch) error {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return fmt.Errorf("%w: title must not be empty", ErrValidation)
		}
		p.Title = &title
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, *p.Status)
	}
	return nil
}
