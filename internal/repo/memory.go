package repo

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/BuzzLyutic/tasksync/internal/model"
)

// MemoryStore is an in-process TaskRepository and UserRepository.
// Used for local runs (DATABASE_URL=memory://) and tests. Each call holds
// the store lock for its whole read-modify-write.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	tasks  map[int64]model.Task
	users  map[string]model.User
	emails map[string]string
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks:  make(map[int64]model.Task),
		users:  make(map[string]model.User),
		emails: make(map[string]string),
		now:    time.Now,
	}
}

func (s *MemoryStore) ListByOwner(ctx context.Context, ownerID string) ([]model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]model.Task, 0)
	for _, t := range s.tasks {
		if t.OwnerID == ownerID {
			tasks = append(tasks, t)
		}
	}
	// ids grow with creation time
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

func (s *MemoryStore) Create(ctx context.Context, t model.Task) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	now := s.now()
	t.ID = s.nextID
	t.ElapsedSeconds = 0
	t.CreatedAt = now
	t.UpdatedAt = now
	s.tasks[t.ID] = t
	return t, nil
}

func (s *MemoryStore) Update(ctx context.Context, ownerID string, id int64, p model.TaskPatch) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return model.Task{}, ErrorNotFound
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.OrderIndex != nil {
		t.OrderIndex = *p.OrderIndex
	}
	if p.DueDate != nil {
		due := *p.DueDate
		t.DueDate = &due
	}
	t.UpdatedAt = s.now()
	s.tasks[id] = t
	return t, nil
}

func (s *MemoryStore) Delete(ctx context.Context, ownerID string, id int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return 0, ErrorNotFound
	}
	delete(s.tasks, id)
	return id, nil
}

func (s *MemoryStore) AddElapsed(ctx context.Context, ownerID string, id int64, delta int64) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return model.Task{}, ErrorNotFound
	}
	if delta < 0 || t.ElapsedSeconds > math.MaxInt64-delta {
		return model.Task{}, ErrorOutOfRange
	}
	t.ElapsedSeconds += delta
	t.UpdatedAt = s.now()
	s.tasks[id] = t
	return t, nil
}

// Users returns a UserRepository view over the same store.
func (s *MemoryStore) Users() UserRepository {
	return memoryUsers{s}
}

type memoryUsers struct {
	s *MemoryStore
}

func (m memoryUsers) Create(ctx context.Context, u model.User) (model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, taken := m.s.emails[u.Email]; taken {
		return model.User{}, ErrorConflict
	}
	if _, taken := m.s.users[u.ID]; taken {
		return model.User{}, ErrorConflict
	}
	now := m.s.now()
	u.CreatedAt = now
	u.UpdatedAt = now
	m.s.users[u.ID] = u
	m.s.emails[u.Email] = u.ID
	return u, nil
}

func (m memoryUsers) GetByEmail(ctx context.Context, email string) (model.User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	id, ok := m.s.emails[email]
	if !ok {
		return model.User{}, ErrorNotFound
	}
	return m.s.users[id], nil
}

func (m memoryUsers) GetByID(ctx context.Context, id string) (model.User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	u, ok := m.s.users[id]
	if !ok {
		return model.User{}, ErrorNotFound
	}
	return u, nil
}
