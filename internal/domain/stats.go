package domain

import "math"

// TaskStats partitions a project's tasks by status.
type TaskStats struct {
	Total      int `json:"total"`
	Backlog    int `json:"backlog"`
	Todo       int `json:"todo"`
	InProgress int `json:"in_progress"`
	Review     int `json:"review"`
	Done       int `json:"done"`
}

// Add records n tasks in status and grows the total.
func (s *TaskStats) Add(status TaskStatus, n int) {
	switch status {
	case TaskStatusBacklog:
		s.Backlog += n
	case TaskStatusTodo:
		s.Todo += n
	case TaskStatusInProgress:
		s.InProgress += n
	case TaskStatusReview:
		s.Review += n
	case TaskStatusDone:
		s.Done += n
	default:
		return
	}
	s.Total += n
}

// Count returns the number of tasks in status.
func (s TaskStats) Count(status TaskStatus) int {
	switch status {
	case TaskStatusBacklog:
		return s.Backlog
	case TaskStatusTodo:
		return s.Todo
	case TaskStatusInProgress:
		return s.InProgress
	case TaskStatusReview:
		return s.Review
	case TaskStatusDone:
		return s.Done
	}
	return 0
}

// Sum adds up the per-status counts.
func (s TaskStats) Sum() int {
	return s.Backlog + s.Todo + s.InProgress + s.Review + s.Done
}

// CompletionRate is round(100*done/total), or 0 for an empty project.
func (s TaskStats) CompletionRate() int {
	if s.Total <= 0 {
		return 0
	}
	return int(math.Round(float64(s.Done) / float64(s.Total) * 100))
}
