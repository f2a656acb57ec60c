package stats

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splax/teamboard/internal/domain"
	"github.com/splax/teamboard/internal/repository/memory"
)

type countsStub map[domain.TaskStatus]int

func (countsStub) CreateTask(context.Context, *domain.Task) error {
	return nil
}

func (countsStub) GetTaskByID(context.Context, string) (*domain.Task, error) {
	return nil, nil
}

func (countsStub) UpdateTask(context.Context, *domain.Task) error {
	return nil
}

func (countsStub) DeleteTask(context.Context, string) (bool, error) {
	return false, nil
}

func (countsStub) ListTasks(context.Context, domain.ListQuery) ([]domain.Task, error) {
	return nil, nil
}

func (c countsStub) CountTasksByStatus(context.Context, string) (map[domain.TaskStatus]int, error) {
	return c, nil
}

func TestStatsScenario(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	now := time.Now().UTC()
	require.NoError(t, store.CreateTeam(ctx, &domain.Team{ID: "team", Name: "T", CreatedAt: now}, &domain.TeamMember{TeamID: "team", UserID: "u", Role: domain.TeamRoleAdmin}))
	require.NoError(t, store.CreateProject(ctx, &domain.Project{ID: "P", TeamID: "team", Name: "P", CreatedAt: now}))

	statuses := []domain.TaskStatus{
		domain.TaskStatusDone, domain.TaskStatusDone,
		domain.TaskStatusInProgress,
		domain.TaskStatusBacklog, domain.TaskStatusBacklog,
	}
	for i, status := range statuses {
		require.NoError(t, store.CreateTask(ctx, &domain.Task{
			ID: fmt.Sprintf("t-%d", i), ProjectID: "P", Name: "task", Status: status,
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		}))
	}

	got, err := New(store).Stats(ctx, "P")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStats{Total: 5, Done: 2, InProgress: 1, Backlog: 2}, got)
	assert.Equal(t, 40, got.CompletionRate())

	_, err = store.DeleteTask(ctx, "t-0")
	require.NoError(t, err)
	got, err = New(store).Stats(ctx, "P")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Total)
	assert.Equal(t, 25, got.CompletionRate())
}

func TestStatsEmptyProject(t *testing.T) {
	got, err := New(countsStub{}).Stats(context.Background(), "P")
	require.NoError(t, err)
	assert.Zero(t, got.Total)
	assert.Zero(t, got.CompletionRate())
}

func TestStatsRejectsUnknownStatus(t *testing.T) {
	_, err := New(countsStub{domain.TaskStatusDone: 1, "archived": 2}).Stats(context.Background(), "P")
	require.Error(t, err)
}

func TestStatsTotalIsSumOfBuckets(t *testing.T) {
	got, err := New(countsStub{domain.TaskStatusTodo: 3, domain.TaskStatusReview: 1, domain.TaskStatusDone: 0}).Stats(context.Background(), "P")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStats{Total: 4, Todo: 3, Review: 1}, got)
	assert.Equal(t, got.Total, got.Sum())
}
