package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/tasksync/internal/model"
)

var (
	ErrorNotFound   = errors.New("not found")
	ErrorConflict   = errors.New("conflict")
	ErrorOutOfRange = errors.New("value out of range")
)

const taskColumns = `id, owner_id, title, description, status, order_index, due_date,
	elapsed_seconds, created_at, updated_at`

type TaskRepo struct { // Репозиторий для работы непосредственно с БД
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo { // Конструктор
	return &TaskRepo{
		pool: pool,
	}
}

func (r *TaskRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE owner_id = $1
		ORDER BY created_at, id
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *TaskRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO tasks (owner_id, title, description, status, order_index, due_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+taskColumns,
		t.OwnerID, t.Title, t.Description, string(t.Status), t.OrderIndex, t.DueDate,
	)
	created, err := scanTask(row)
	return created, mapError(err)
}

// Update применяет патч одним запросом: либо все поля, либо ни одного.
func (r *TaskRepo) Update(ctx context.Context, ownerID string, id int64, p model.TaskPatch) (model.Task, error) {
	var status *string
	if p.Status != nil {
		s := string(*p.Status)
		status = &s
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE tasks
		SET title = COALESCE($3::text, title),
			description = COALESCE($4::text, description),
			status = COALESCE($5::text, status),
			order_index = COALESCE($6::bigint, order_index),
			due_date = COALESCE($7::timestamptz, due_date),
			updated_at = now()
		WHERE id = $1 AND owner_id = $2
		RETURNING `+taskColumns,
		id, ownerID, p.Title, p.Description, status, p.OrderIndex, p.DueDate,
	)
	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return t, ErrorNotFound
	}
	return t, mapError(err)
}

func (r *TaskRepo) Delete(ctx context.Context, ownerID string, id int64) (int64, error) {
	var deleted int64
	err := r.pool.QueryRow(ctx,
		"DELETE FROM tasks WHERE id = $1 AND owner_id = $2 RETURNING id", id, ownerID,
	).Scan(&deleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrorNotFound
	}
	return deleted, err
}

func (r *TaskRepo) AddElapsed(ctx context.Context, ownerID string, id int64, delta int64) (model.Task, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tasks
		SET elapsed_seconds = elapsed_seconds + $3, updated_at = now()
		WHERE id = $1 AND owner_id = $2
		RETURNING `+taskColumns,
		id, ownerID, delta,
	)
	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return t, ErrorNotFound
	}
	return t, mapError(err)
}

func scanTask(row pgx.Row) (model.Task, error) {
	var (
		t      model.Task
		status string
	)
	err := row.Scan(
		&t.ID, &t.OwnerID, &t.Title, &t.Description, &status, &t.OrderIndex, &t.DueDate,
		&t.ElapsedSeconds, &t.CreatedAt, &t.UpdatedAt,
	)
	t.Status = model.TaskStatus(status)
	return t, err
}

func mapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return ErrorConflict
		case "22003", "23514": // numeric_value_out_of_range, check_violation
			return ErrorOutOfRange
		}
	}
	return err
}
