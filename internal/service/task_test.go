package service

import (
	"context"
	"math"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/tasksync/internal/metrics"
	"github.com/BuzzLyutic/tasksync/internal/model"
	"github.com/BuzzLyutic/tasksync/internal/repo"
)

// MockTaskRepository - мок репозитория
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.Task, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]model.Task), args.Error(1)
}

func (m *MockTaskRepository) Create(ctx context.Context, t model.Task) (model.Task, error) {
	args := m.Called(ctx, t)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) Update(ctx context.Context, ownerID string, id int64, p model.TaskPatch) (model.Task, error) {
	args := m.Called(ctx, ownerID, id, p)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) Delete(ctx context.Context, ownerID string, id int64) (int64, error) {
	args := m.Called(ctx, ownerID, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTaskRepository) AddElapsed(ctx context.Context, ownerID string, id int64, delta int64) (model.Task, error) {
	args := m.Called(ctx, ownerID, id, delta)
	return args.Get(0).(model.Task), args.Error(1)
}

// MockPublisher - мок роутера событий
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, ev model.Event) {
	m.Called(ctx, ev)
}

func newService(r repo.TaskRepository, p Publisher) *TaskService {
	return NewTaskService(r, p, zap.NewNop(), metrics.Nop{})
}

func TestTaskService_Create(t *testing.T) {
	tests := []struct {
		name      string
		input     model.NewTask
		setupMock func(*MockTaskRepository, *MockPublisher)
		wantErr   error
	}{
		{
			name:  "defaults to pending",
			input: model.NewTask{Title: "Draft"},
			setupMock: func(m *MockTaskRepository, p *MockPublisher) {
				m.On("Create", mock.Anything, mock.MatchedBy(func(t model.Task) bool {
					return t.Title == "Draft" && t.Status == model.StatusPending && t.OwnerID == "u1"
				})).Return(model.Task{ID: 1, OwnerID: "u1", Title: "Draft", Status: model.StatusPending}, nil)
				p.On("Publish", mock.Anything, mock.MatchedBy(func(ev model.Event) bool {
					return ev.Kind == model.EventCreated && ev.OwnerID == "u1" && ev.Task.ID == 1
				})).Once()
			},
		},
		{
			name:  "trims title and keeps explicit status",
			input: model.NewTask{Title: "  Ship  ", Status: model.StatusOngoing},
			setupMock: func(m *MockTaskRepository, p *MockPublisher) {
				m.On("Create", mock.Anything, mock.MatchedBy(func(t model.Task) bool {
					return t.Title == "Ship" && t.Status == model.StatusOngoing
				})).Return(model.Task{ID: 2, OwnerID: "u1", Title: "Ship", Status: model.StatusOngoing}, nil)
				p.On("Publish", mock.Anything, mock.Anything).Once()
			},
		},
		{
			name:      "validation error - empty title",
			input:     model.NewTask{Title: "   "},
			setupMock: func(m *MockTaskRepository, p *MockPublisher) {},
			wantErr:   ErrValidation,
		},
		{
			name:      "validation error - unknown status",
			input:     model.NewTask{Title: "x", Status: "archived"},
			setupMock: func(m *MockTaskRepository, p *MockPublisher) {},
			wantErr:   ErrValidation,
		},
		{
			name:  "storage failure emits nothing",
			input: model.NewTask{Title: "x"},
			setupMock: func(m *MockTaskRepository, p *MockPublisher) {
				m.On("Create", mock.Anything, mock.Anything).Return(model.Task{}, errors.New("connection reset"))
			},
			wantErr: errors.New("connection reset"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockTaskRepository)
			pub := new(MockPublisher)
			tt.setupMock(mockRepo, pub)

			service := newService(mockRepo, pub)
			result, err := service.Create(context.Background(), "u1", tt.input)

			if tt.wantErr != nil {
				require.Error(t, err)
				if errors.Is(tt.wantErr, ErrValidation) {
					assert.ErrorIs(t, err, ErrValidation)
				} else {
					assert.Contains(t, err.Error(), tt.wantErr.Error())
				}
				pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				assert.NotZero(t, result.ID)
			}

			mockRepo.AssertExpectations(t)
			pub.AssertExpectations(t)
		})
	}
}

func TestTaskService_Update(t *testing.T) {
	ongoing := model.StatusOngoing
	bogus := model.TaskStatus("blocked")
	empty := " "

	t.Run("moves status and emits updated", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		pub := new(MockPublisher)
		mockRepo.On("Update", mock.Anything, "u1", int64(1), model.TaskPatch{Status: &ongoing}).
			Return(model.Task{ID: 1, OwnerID: "u1", Status: model.StatusOngoing}, nil)
		pub.On("Publish", mock.Anything, mock.MatchedBy(func(ev model.Event) bool {
			return ev.Kind == model.EventUpdated && ev.Task.Status == model.StatusOngoing
		})).Once()

		result, err := newService(mockRepo, pub).Update(context.Background(), "u1", 1, model.TaskPatch{Status: &ongoing})
		require.NoError(t, err)
		assert.Equal(t, model.StatusOngoing, result.Status)
		mockRepo.AssertExpectations(t)
		pub.AssertExpectations(t)
	})

	t.Run("not found emits nothing", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		pub := new(MockPublisher)
		mockRepo.On("Update", mock.Anything, "u2", int64(1), mock.Anything).Return(model.Task{}, repo.ErrorNotFound)

		_, err := newService(mockRepo, pub).Update(context.Background(), "u2", 1, model.TaskPatch{Status: &ongoing})
		assert.ErrorIs(t, err, repo.ErrorNotFound)
		pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	for name, patch := range map[string]model.TaskPatch{
		"unknown status": {Status: &bogus},
		"blank title":    {Title: &empty},
	} {
		t.Run(name, func(t *testing.T) {
			mockRepo := new(MockTaskRepository)
			pub := new(MockPublisher)

			_, err := newService(mockRepo, pub).Update(context.Background(), "u1", 1, patch)
			assert.ErrorIs(t, err, ErrValidation)
			mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
		})
	}
}

func TestTaskService_Delete(t *testing.T) {
	mockRepo := new(MockTaskRepository)
	pub := new(MockPublisher)
	mockRepo.On("Delete", mock.Anything, "u1", int64(5)).Return(int64(5), nil).Once()
	mockRepo.On("Delete", mock.Anything, "u1", int64(6)).Return(int64(0), repo.ErrorNotFound).Once()
	pub.On("Publish", mock.Anything, model.TaskDeleted("u1", 5)).Once()

	service := newService(mockRepo, pub)

	id, err := service.Delete(context.Background(), "u1", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)

	_, err = service.Delete(context.Background(), "u1", 6)
	assert.ErrorIs(t, err, repo.ErrorNotFound)

	mockRepo.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestTaskService_AccumulateTime(t *testing.T) {
	t.Run("negative delta rejected before store", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		pub := new(MockPublisher)

		_, err := newService(mockRepo, pub).AccumulateTime(context.Background(), "u1", 1, -5)
		assert.ErrorIs(t, err, ErrValidation)
		mockRepo.AssertNotCalled(t, "AddElapsed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("delta passed through", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		pub := new(MockPublisher)
		mockRepo.On("AddElapsed", mock.Anything, "u1", int64(1), int64(42)).
			Return(model.Task{ID: 1, OwnerID: "u1", ElapsedSeconds: 42}, nil)
		pub.On("Publish", mock.Anything, mock.MatchedBy(func(ev model.Event) bool {
			return ev.Kind == model.EventUpdated && ev.Task.ElapsedSeconds == 42
		})).Once()

		result, err := newService(mockRepo, pub).AccumulateTime(context.Background(), "u1", 1, 42)
		require.NoError(t, err)
		assert.Equal(t, int64(42), result.ElapsedSeconds)
		pub.AssertExpectations(t)
	})

	t.Run("store range error is a validation error", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		pub := new(MockPublisher)
		mockRepo.On("AddElapsed", mock.Anything, "u1", int64(1), int64(math.MaxInt64)).
			Return(model.Task{}, repo.ErrorOutOfRange)

		_, err := newService(mockRepo, pub).AccumulateTime(context.Background(), "u1", 1, math.MaxInt64)
		assert.ErrorIs(t, err, ErrValidation)
		pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})
}

func TestTaskService_List(t *testing.T) {
	mockRepo := new(MockTaskRepository)
	mockRepo.On("ListByOwner", mock.Anything, "u1").Return([]model.Task{{ID: 1}, {ID: 2}}, nil)

	tasks, err := newService(mockRepo, new(MockPublisher)).List(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
	mockRepo.AssertExpectations(t)
}

func TestTaskService_ValidatePatch(t *testing.T) {
	service := &TaskService{}
	title := "  Trim me "
	completed := model.StatusCompleted

	p := model.TaskPatch{Title: &title, Status: &completed}
	require.NoError(t, service.validatePatch(&p))
	assert.Equal(t, "Trim me", *p.Title)
	assert.Equal(t, "  Trim me ", title, "caller's string untouched")
}
