package repo

import (
	"context"

	"github.com/BuzzLyutic/tasksync/internal/model"
)

// TaskRepository определяет интерфейс для работы с задачами.
// Every method is scoped by owner: an id alone never matches a row.
type TaskRepository interface {
	ListByOwner(ctx context.Context, ownerID string) ([]model.Task, error)
	Create(ctx context.Context, t model.Task) (model.Task, error)
	Update(ctx context.Context, ownerID string, id int64, p model.TaskPatch) (model.Task, error)
	Delete(ctx context.Context, ownerID string, id int64) (int64, error)
	AddElapsed(ctx context.Context, ownerID string, id int64, delta int64) (model.Task, error)
}

// UserRepository хранит учетные записи. Create возвращает ErrorConflict, если email уже занят.
type UserRepository interface {
	Create(ctx context.Context, u model.User) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
}
