package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/splax/teamboard/internal/domain"
	"github.com/splax/teamboard/internal/events"
	"github.com/splax/teamboard/internal/repository"
	"github.com/splax/teamboard/internal/service/access"
	"github.com/splax/teamboard/internal/service/paging"
	"github.com/splax/teamboard/internal/validate"
	"github.com/splax/teamboard/pkg/config"
)

// CreateInput describes a new task.
type CreateInput struct {
	ProjectID   string     `json:"project_id"`
	Name        string     `json:"name" validate:"nonblank,max=200"`
	Description string     `json:"description" validate:"max=5000"`
	Status      string     `json:"status" validate:"taskstatus"`
	DueAt       *time.Time `json:"due_at"`
}

// UpdateInput is a partial update. Nil fields are left unchanged.
type UpdateInput struct {
	TaskID      string     `json:"-"`
	Name        *string    `json:"name" validate:"omitnil,nonblank,max=200"`
	Description *string    `json:"description" validate:"omitnil,max=5000"`
	Status      *string    `json:"status" validate:"omitnil,taskstatus"`
	DueAt       *time.Time `json:"due_at"`
	ClearDueAt  bool       `json:"clear_due_at"`
}

func (in UpdateInput) statusOnly() bool {
	return in.Name == nil && in.Description == nil && in.DueAt == nil && !in.ClearDueAt
}

// Service applies task mutations and serves task queries.
type Service struct {
	tasks  repository.TaskRepository
	access access.Resolver
	events events.Publisher
	pager  paging.Pager[domain.Task]
	logger *slog.Logger
	now    func() time.Time
}

// New returns a task service.
func New(tasks repository.TaskRepository, resolver access.Resolver, publisher events.Publisher, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{
		tasks:  tasks,
		access: resolver,
		events: publisher,
		pager:  paging.NewPager[domain.Task](collection{tasks: tasks}, cfg.DefaultPageSize, cfg.MaxPageSize),
		logger: logger,
		now:    time.Now,
	}
}

// Create adds a task to a visible project.
func (s Service) Create(ctx context.Context, callerID string, input CreateInput) (*domain.Task, error) {
	if _, _, err := s.access.Authorize(ctx, callerID, input.ProjectID, domain.CapCreateTask); err != nil {
		return nil, err
	}
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	status := domain.TaskStatusBacklog
	if input.Status != "" {
		status = domain.TaskStatus(input.Status)
	}
	now := domain.StorageTime(s.now())
	task := &domain.Task{
		ID:          uuid.NewString(),
		ProjectID:   input.ProjectID,
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Status:      status,
		DueAt:       storageTimePtr(input.DueAt),
		CreatedBy:   callerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.tasks.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	s.logger.Info("task created", "task_id", task.ID, "project_id", task.ProjectID, "caller_id", callerID)
	s.publish(ctx, domain.ChangeTaskCreated, task)
	return task, nil
}

// Update edits a task. Changing anything but the status of a task created
// by someone else needs the edit-any-task capability.
func (s Service) Update(ctx context.Context, callerID string, input UpdateInput) (*domain.Task, error) {
	task, err := s.load(ctx, input.TaskID)
	if err != nil {
		return nil, err
	}
	_, perm, err := s.access.Authorize(ctx, callerID, task.ProjectID, domain.CapMoveTask)
	if err != nil {
		return nil, err
	}
	if !input.statusOnly() && !canEdit(perm, task, callerID) {
		return nil, fmt.Errorf("%w: only the author or a team leader may edit this task", domain.ErrForbidden)
	}
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	now := domain.StorageTime(s.now())
	updated := *task
	if input.Name != nil {
		updated.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		updated.Description = *input.Description
	}
	switch {
	case input.ClearDueAt:
		updated.DueAt = nil
	case input.DueAt != nil:
		updated.DueAt = storageTimePtr(input.DueAt)
	}
	updated.UpdatedAt = now
	if input.Status != nil {
		if updated, err = updated.Transition(domain.TaskStatus(*input.Status), now); err != nil {
			return nil, err
		}
	}
	if err := s.tasks.UpdateTask(ctx, &updated); err != nil {
		return nil, err
	}
	s.logger.Info("task updated", "task_id", updated.ID, "project_id", updated.ProjectID, "caller_id", callerID)
	s.publish(ctx, domain.ChangeTaskUpdated, &updated)
	return &updated, nil
}

// UpdateStatus moves a task on the board. Any member who can see the
// project may do so; concurrent moves are last-write-wins.
func (s Service) UpdateStatus(ctx context.Context, callerID, taskID, status string) (*domain.Task, error) {
	task, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.access.Authorize(ctx, callerID, task.ProjectID, domain.CapMoveTask); err != nil {
		return nil, err
	}
	next, err := domain.ParseTaskStatus(status)
	if err != nil {
		return nil, err
	}
	moved, err := task.Transition(next, domain.StorageTime(s.now()))
	if err != nil {
		return nil, err
	}
	if err := s.tasks.UpdateTask(ctx, &moved); err != nil {
		return nil, err
	}
	s.logger.Info("task moved", "task_id", moved.ID, "project_id", moved.ProjectID, "status", moved.Status, "caller_id", callerID)
	s.publish(ctx, domain.ChangeTaskUpdated, &moved)
	return &moved, nil
}

// Delete removes a task. Deleting a task that is already gone succeeds.
func (s Service) Delete(ctx context.Context, callerID, taskID string) error {
	task, err := s.load(ctx, taskID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	_, perm, err := s.access.Authorize(ctx, callerID, task.ProjectID, domain.CapDeleteOwnTask)
	if err != nil {
		return err
	}
	if task.CreatedBy != callerID && !perm.Can(domain.CapDeleteAnyTask) {
		return fmt.Errorf("%w: only the author or a team leader may delete this task", domain.ErrForbidden)
	}
	deleted, err := s.tasks.DeleteTask(ctx, task.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return nil
	}
	s.logger.Info("task deleted", "task_id", task.ID, "project_id", task.ProjectID, "caller_id", callerID)
	s.publish(ctx, domain.ChangeTaskDeleted, task)
	return nil
}

// Get returns a task in a visible project.
func (s Service) Get(ctx context.Context, callerID, taskID string) (*domain.Task, error) {
	task, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.access.Authorize(ctx, callerID, task.ProjectID, domain.CapReadProject); err != nil {
		return nil, err
	}
	return task, nil
}

// Page returns one page of a project's tasks. A cursor presented for a
// project the caller can no longer see fails with ErrInvalidCursor.
func (s Service) Page(ctx context.Context, callerID string, filter paging.Filter, cursor string, limit int) (paging.Page[domain.Task], error) {
	if err := s.authorizeRead(ctx, callerID, filter, cursor != ""); err != nil {
		return paging.Page[domain.Task]{}, err
	}
	return s.pager.Page(ctx, filter, cursor, limit)
}

// OpenView returns an unloaded live view over a project's tasks. The view
// re-checks the caller's access on every load and change, and closes with
// ErrNotFound once the caller can no longer see the project.
func (s Service) OpenView(ctx context.Context, callerID string, filter paging.Filter, pageSize int) (*paging.View[domain.Task], error) {
	if err := s.authorizeRead(ctx, callerID, filter, false); err != nil {
		return nil, err
	}
	projectID := filter.Normalize().Scope
	return s.pager.Open(filter, pageSize).Guarded(func(ctx context.Context) error {
		_, _, err := s.access.Authorize(ctx, callerID, projectID, domain.CapReadProject)
		return err
	}), nil
}

func (s Service) authorizeRead(ctx context.Context, callerID string, filter paging.Filter, resuming bool) error {
	filter = filter.Normalize()
	if _, _, err := s.access.Authorize(ctx, callerID, filter.Scope, domain.CapReadProject); err != nil {
		if resuming && errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: project is gone", domain.ErrInvalidCursor)
		}
		return err
	}
	if filter.Status != "" {
		if _, err := domain.ParseTaskStatus(filter.Status); err != nil {
			return err
		}
	}
	if filter.Category != "" {
		return fmt.Errorf("%w: tasks have no category", domain.ErrInvalidInput)
	}
	return nil
}

func (s Service) load(ctx context.Context, taskID string) (*domain.Task, error) {
	if strings.TrimSpace(taskID) == "" {
		return nil, fmt.Errorf("%w: task", domain.ErrNotFound)
	}
	return s.tasks.GetTaskByID(ctx, taskID)
}

func (s Service) publish(ctx context.Context, kind domain.ChangeKind, task *domain.Task) {
	if s.events == nil {
		return
	}
	event := domain.ChangeEvent{Kind: kind, Scope: task.ProjectID, EntityID: task.ID, At: s.now().UTC()}
	if err := s.events.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("failed to publish change", "kind", kind, "task_id", task.ID, "error", err)
	}
}

func canEdit(perm domain.Permission, task *domain.Task, callerID string) bool {
	if task.CreatedBy == callerID {
		return perm.Can(domain.CapEditOwnTask)
	}
	return perm.Can(domain.CapEditAnyTask)
}

func storageTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := domain.StorageTime(*t)
	return &v
}
