// Package testutil holds helpers shared by integration tests.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/BuzzLyutic/tasksync/internal/database"
)

// SetupTestDB создает тестовую БД с помощью testcontainers.
// TEST_DATABASE_URL, when set, is used instead of starting a container.
// Skipped under -short and when Docker is not reachable.
func SetupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres integration test skipped in short mode")
	}
	ctx := context.Background()

	if dbURL := os.Getenv("TEST_DATABASE_URL"); dbURL != "" {
		return connect(t, dbURL, func() {})
	}

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	return connect(t, connStr, func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Errorf("Failed to terminate container: %v", err)
		}
	})
}

func connect(t *testing.T, dbURL string, terminate func()) (*pgxpool.Pool, func()) {
	t.Helper()

	if err := database.RunMigrations(dbURL); err != nil {
		terminate()
		t.Fatalf("Failed to run migrations: %v", err)
	}

	pool, err := database.Connect(context.Background(), dbURL)
	if err != nil {
		terminate()
		t.Fatalf("Failed to connect to database: %v", err)
	}

	cleanup := func() {
		pool.Close()
		terminate()
	}
	return pool, cleanup
}

// TruncateTables очищает все таблицы
func TruncateTables(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(), "TRUNCATE tasks, users RESTART IDENTITY CASCADE")
	if err != nil {
		t.Fatalf("Failed to truncate tables: %v", err)
	}
}

// SeedUser inserts a user row and returns its id, for task foreign keys.
func SeedUser(t *testing.T, pool *pgxpool.Pool, email string) string {
	t.Helper()

	id := uuid.NewString()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO users (id, name, email, password_hash) VALUES ($1, $2, $3, $4)
	`, id, "seed", email, "x")
	if err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}
	return id
}

// WaitForCondition ждет выполнения условия с таймаутом
func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}
