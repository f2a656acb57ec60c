package domain

import (
	"fmt"
	"strings"
	"time"
)

// TaskStatus is a position on the task board.
type TaskStatus string

const (
	TaskStatusBacklog    TaskStatus = "backlog"
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusReview     TaskStatus = "review"
	TaskStatusDone       TaskStatus = "done"
)

var taskStatuses = []TaskStatus{
	TaskStatusBacklog,
	TaskStatusTodo,
	TaskStatusInProgress,
	TaskStatusReview,
	TaskStatusDone,
}

// TaskStatuses returns the statuses in board order.
func TaskStatuses() []TaskStatus {
	return append([]TaskStatus(nil), taskStatuses...)
}

// Valid reports whether s is one of the enumerated statuses.
func (s TaskStatus) Valid() bool {
	for _, known := range taskStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseTaskStatus validates a raw status value. Values are matched exactly.
func ParseTaskStatus(value string) (TaskStatus, error) {
	status := TaskStatus(value)
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, value)
	}
	return status, nil
}

// Task is a unit of work inside a project.
type Task struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	DueAt       *time.Time `json:"due_at,omitempty"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Transition moves the task to status. Every status is reachable from every
// other status, including itself; the only failure is an unknown status.
func (t Task) Transition(status TaskStatus, now time.Time) (Task, error) {
	if !status.Valid() {
		return t, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	t.Status = status
	t.UpdatedAt = now
	return t, nil
}

// Key returns the pagination sort key of the task.
func (t Task) Key() SortKey {
	return SortKey{CreatedAt: t.CreatedAt, ID: t.ID}
}

// MatchesSearch reports a case-insensitive substring hit on name or description.
func (t Task) MatchesSearch(needle string) bool {
	if needle == "" {
		return true
	}
	needle = strings.ToLower(needle)
	return strings.Contains(strings.ToLower(t.Name), needle) ||
		strings.Contains(strings.ToLower(t.Description), needle)
}
