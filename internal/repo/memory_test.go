package repo

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BuzzLyutic/tasksync/internal/model"
)

func TestMemoryStore_OwnerScoping(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	a, err := store.Create(ctx, model.Task{OwnerID: "u1", Title: "A", Status: model.StatusPending})
	require.NoError(t, err)
	_, err = store.Create(ctx, model.Task{OwnerID: "u2", Title: "B", Status: model.StatusPending})
	require.NoError(t, err)
	c, err := store.Create(ctx, model.Task{OwnerID: "u1", Title: "C", Status: model.StatusPending})
	require.NoError(t, err)

	tasks, err := store.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, a.ID, tasks[0].ID)
	assert.Equal(t, c.ID, tasks[1].ID)

	title := "x"
	_, err = store.Update(ctx, "u2", a.ID, model.TaskPatch{Title: &title})
	assert.ErrorIs(t, err, ErrorNotFound)
	_, err = store.AddElapsed(ctx, "u2", a.ID, 1)
	assert.ErrorIs(t, err, ErrorNotFound)
	_, err = store.Delete(ctx, "u2", a.ID)
	assert.ErrorIs(t, err, ErrorNotFound)

	tasks, err = store.ListByOwner(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)
}

func TestMemoryStore_CreateIgnoresElapsed(t *testing.T) {
	store := NewMemoryStore()
	created, err := store.Create(context.Background(), model.Task{OwnerID: "u1", Title: "A", ElapsedSeconds: 500})
	require.NoError(t, err)
	assert.Zero(t, created.ElapsedSeconds)
}

func TestMemoryStore_ConcurrentAddElapsed(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	task, err := store.Create(ctx, model.Task{OwnerID: "u1", Title: "timer"})
	require.NoError(t, err)

	const goroutines = 50
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.AddElapsed(ctx, "u1", task.ID, 2)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	tasks, err := store.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(goroutines*2), tasks[0].ElapsedSeconds)
}

func TestMemoryStore_AddElapsedOverflow(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	task, err := store.Create(ctx, model.Task{OwnerID: "u1", Title: "timer"})
	require.NoError(t, err)

	got, err := store.AddElapsed(ctx, "u1", task.ID, math.MaxInt64)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), got.ElapsedSeconds)

	_, err = store.AddElapsed(ctx, "u1", task.ID, 1)
	assert.ErrorIs(t, err, ErrorOutOfRange)

	tasks, err := store.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), tasks[0].ElapsedSeconds)
}

func TestMemoryUsers(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryStore().Users()

	for i := 0; i < 3; i++ {
		_, err := users.Create(ctx, model.User{ID: fmt.Sprintf("id-%d", i), Email: fmt.Sprintf("u%d@example.com", i)})
		require.NoError(t, err)
	}

	_, err := users.Create(ctx, model.User{ID: "other", Email: "u1@example.com"})
	assert.ErrorIs(t, err, ErrorConflict)

	u, err := users.GetByEmail(ctx, "u2@example.com")
	require.NoError(t, err)
	assert.Equal(t, "id-2", u.ID)

	_, err = users.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrorNotFound)
}
