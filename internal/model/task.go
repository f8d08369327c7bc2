package model

import "time"

type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusOngoing   TaskStatus = "ongoing"
	StatusCompleted TaskStatus = "completed"
)

// Valid reports whether s is one of the three persisted statuses.
// Any valid status may move to any other valid status.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusOngoing, StatusCompleted:
		return true
	}
	return false
}

type Task struct {
	ID             int64      `json:"id"`
	OwnerID        string     `json:"owner_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Status         TaskStatus `json:"status"`
	OrderIndex     int        `json:"order_index"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	ElapsedSeconds int64      `json:"elapsed_seconds"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewTask is the client payload for creating a task.
// Elapsed time is not part of it: it only grows through time accumulation.
type NewTask struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	OrderIndex  int        `json:"order_index"`
	DueDate     *time.Time `json:"due_date"`
}

// TaskPatch carries a partial update. Nil fields are left untouched.
type TaskPatch struct {
	Title       *string     `json:"title"`
	Description *string     `json:"description"`
	Status      *TaskStatus `json:"status"`
	OrderIndex  *int        `json:"order_index"`
	DueDate     *time.Time  `json:"due_date"`
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil &&
		p.OrderIndex == nil && p.DueDate == nil
}
