package task

import (
	"context"

	"github.com/splax/teamboard/internal/domain"
	"github.com/splax/teamboard/internal/repository"
	"github.com/splax/teamboard/internal/service/paging"
)

// collection exposes a project's tasks to the pager.
type collection struct {
	tasks repository.TaskRepository
}

func (c collection) List(ctx context.Context, query domain.ListQuery) ([]domain.Task, error) {
	return c.tasks.ListTasks(ctx, query)
}

func (c collection) Get(ctx context.Context, id string) (domain.Task, error) {
	task, err := c.tasks.GetTaskByID(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	return *task, nil
}

func (c collection) Key(task domain.Task) domain.SortKey {
	return task.Key()
}

func (c collection) Matches(task domain.Task, filter paging.Filter) bool {
	if task.ProjectID != filter.Scope {
		return false
	}
	if filter.Status != "" && string(task.Status) != filter.Status {
		return false
	}
	return task.MatchesSearch(filter.Search)
}

func (c collection) Handles(kind domain.ChangeKind) bool {
	switch kind {
	case domain.ChangeTaskCreated, domain.ChangeTaskUpdated, domain.ChangeTaskDeleted:
		return true
	}
	return false
}
