package memory

import (
	"context"
	"sort"
	"time"

	"github.com/splax/teamboard/internal/domain"
	"github.com/splax/teamboard/internal/repository"
)

// CreateTask inserts a task under an existing project.
func (s *Store) CreateTask(_ context.Context, task *domain.Task) error {
	if task == nil {
		return repository.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[task.ProjectID]; !ok {
		return repository.ErrNotFound
	}
	if _, exists := s.tasks[task.ID]; exists {
		return repository.ErrInvalidArgument
	}
	s.tasks[task.ID] = cloneTask(*task)
	return nil
}

// GetTaskByID fetches a task.
func (s *Store) GetTaskByID(_ context.Context, taskID string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	task = cloneTask(task)
	return &task, nil
}

// UpdateTask overwrites the mutable fields of a task.
func (s *Store) UpdateTask(_ context.Context, task *domain.Task) error {
	if task == nil {
		return repository.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.tasks[task.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if _, ok := s.projects[existing.ProjectID]; !ok {
		return repository.ErrNotFound
	}
	existing.Name = task.Name
	existing.Description = task.Description
	existing.Status = task.Status
	existing.DueAt = cloneTime(task.DueAt)
	existing.UpdatedAt = task.UpdatedAt
	s.tasks[task.ID] = existing
	return nil
}

// DeleteTask removes a task; deleting a missing task reports false.
func (s *Store) DeleteTask(_ context.Context, taskID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[taskID]; !ok {
		return false, nil
	}
	delete(s.tasks, taskID)
	return true, nil
}

// ListTasks returns the ordered slice of a project's tasks selected by query.
func (s *Store) ListTasks(_ context.Context, query domain.ListQuery) ([]domain.Task, error) {
	s.mu.RLock()
	matched := make([]domain.Task, 0)
	for _, task := range s.tasks {
		if task.ProjectID != query.Scope {
			continue
		}
		if query.Status != "" && string(task.Status) != query.Status {
			continue
		}
		if !task.MatchesSearch(query.Search) {
			continue
		}
		if !afterKey(task.Key(), query) {
			continue
		}
		matched = append(matched, cloneTask(task))
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return ordered(matched[i].Key(), matched[j].Key(), query.Descending)
	})
	return limit(matched, query.Limit), nil
}

// CountTasksByStatus scans the project's tasks and counts them per status.
func (s *Store) CountTasksByStatus(_ context.Context, projectID string) (map[domain.TaskStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[domain.TaskStatus]int)
	for _, task := range s.tasks {
		if task.ProjectID == projectID {
			counts[task.Status]++
		}
	}
	return counts, nil
}

func afterKey(key domain.SortKey, query domain.ListQuery) bool {
	if query.After == nil {
		return true
	}
	cmp := key.Compare(*query.After)
	if query.Descending {
		return cmp < 0
	}
	return cmp > 0
}

func ordered(a, b domain.SortKey, descending bool) bool {
	if descending {
		return a.Compare(b) > 0
	}
	return a.Compare(b) < 0
}

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}

func cloneTask(task domain.Task) domain.Task {
	task.DueAt = cloneTime(task.DueAt)
	return task
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
