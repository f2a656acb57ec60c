package task

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splax/teamboard/internal/domain"
	"github.com/splax/teamboard/internal/service/access"
	"github.com/splax/teamboard/internal/service/paging"
	"github.com/splax/teamboard/internal/service/servicetest"
	"github.com/splax/teamboard/pkg/config"
)

func newService(t *testing.T) (Service, *servicetest.Fixture) {
	t.Helper()
	fx := servicetest.New(t)
	svc := New(fx.Store, access.New(fx.Store, fx.Store), fx.Bus, fx.Log, config.APIConfig{DefaultPageSize: 20, MaxPageSize: 100})
	svc.now = servicetest.Clock(time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC))
	return svc, fx
}

func create(t *testing.T, svc Service, caller, projectID, name string) *domain.Task {
	t.Helper()
	task, err := svc.Create(context.Background(), caller, CreateInput{ProjectID: projectID, Name: name})
	require.NoError(t, err)
	return task
}

func TestCreateDefaultsToBacklog(t *testing.T) {
	svc, fx := newService(t)
	sub := fx.Bus.Subscribe(fx.ProjectID, 4)
	defer sub.Close()

	task := create(t, svc, servicetest.Member, fx.ProjectID, "  Wire the arm  ")
	assert.Equal(t, domain.TaskStatusBacklog, task.Status)
	assert.Equal(t, "Wire the arm", task.Name)
	assert.Equal(t, servicetest.Member, task.CreatedBy)
	assert.Equal(t, task.CreatedAt, task.UpdatedAt)

	select {
	case ev := <-sub.C():
		assert.Equal(t, domain.ChangeTaskCreated, ev.Kind)
		assert.Equal(t, task.ID, ev.EntityID)
	case <-time.After(time.Second):
		t.Fatalf("no change event published")
	}
}

func TestCreateValidation(t *testing.T) {
	svc, fx := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, servicetest.Member, CreateInput{ProjectID: fx.ProjectID, Name: "   "})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Create(ctx, servicetest.Member, CreateInput{ProjectID: fx.ProjectID, Name: "x", Status: "archived"})
	require.ErrorIs(t, err, domain.ErrInvalidStatus)

	task, err := svc.Create(ctx, servicetest.Member, CreateInput{ProjectID: fx.ProjectID, Name: "x", Status: "review"})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusReview, task.Status)
}

func TestStrangerSeesNotFoundEverywhere(t *testing.T) {
	svc, fx := newService(t)
	ctx := context.Background()
	task := create(t, svc, servicetest.Member, fx.ProjectID, "secret")

	_, err := svc.Create(ctx, servicetest.Stranger, CreateInput{ProjectID: fx.ProjectID, Name: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.Get(ctx, servicetest.Stranger, task.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.UpdateStatus(ctx, servicetest.Stranger, task.ID, "done")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	name := "renamed"
	_, err = svc.Update(ctx, servicetest.Stranger, UpdateInput{TaskID: task.ID, Name: &name})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, servicetest.Stranger, task.ID), domain.ErrNotFound)
	_, err = svc.Page(ctx, servicetest.Stranger, paging.Filter{Scope: fx.ProjectID}, "", 10)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.OpenView(ctx, servicetest.Stranger, paging.Filter{Scope: fx.ProjectID}, 10)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NotErrorIs(t, err, domain.ErrForbidden)
}

func TestUpdateStatusOpenToMembers(t *testing.T) {
	svc, fx := newService(t)
	ctx := context.Background()
	task := create(t, svc, servicetest.Leader, fx.ProjectID, "gearbox")

	moved, err := svc.UpdateStatus(ctx, servicetest.Member, task.ID, "done")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusDone, moved.Status)
	assert.True(t, moved.UpdatedAt.After(task.UpdatedAt))

	reopened, err := svc.UpdateStatus(ctx, servicetest.Member, task.ID, "in_progress")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusInProgress, reopened.Status)

	_, err = svc.UpdateStatus(ctx, servicetest.Member, task.ID, "DONE")
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestUpdateEditRules(t *testing.T) {
	svc, fx := newService(t)
	ctx := context.Background()
	task := create(t, svc, servicetest.Other, fx.ProjectID, "intake")
	name := "intake v2"
	status := "todo"

	_, err := svc.Update(ctx, servicetest.Member, UpdateInput{TaskID: task.ID, Name: &name})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	moved, err := svc.Update(ctx, servicetest.Member, UpdateInput{TaskID: task.ID, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusTodo, moved.Status)

	renamed, err := svc.Update(ctx, servicetest.Other, UpdateInput{TaskID: task.ID, Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "intake v2", renamed.Name)
	assert.Equal(t, domain.TaskStatusTodo, renamed.Status)

	due := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	led, err := svc.Update(ctx, servicetest.Leader, UpdateInput{TaskID: task.ID, DueAt: &due})
	require.NoError(t, err)
	require.NotNil(t, led.DueAt)
	assert.True(t, led.DueAt.Equal(due))

	cleared, err := svc.Update(ctx, servicetest.Leader, UpdateInput{TaskID: task.ID, ClearDueAt: true})
	require.NoError(t, err)
	assert.Nil(t, cleared.DueAt)

	blank := " "
	_, err = svc.Update(ctx, servicetest.Other, UpdateInput{TaskID: task.ID, Name: &blank})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDeleteRulesAndIdempotence(t *testing.T) {
	svc, fx := newService(t)
	ctx := context.Background()
	mine := create(t, svc, servicetest.Member, fx.ProjectID, "mine")
	theirs := create(t, svc, servicetest.Other, fx.ProjectID, "theirs")

	assert.ErrorIs(t, svc.Delete(ctx, servicetest.Member, theirs.ID), domain.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, servicetest.Member, mine.ID))
	require.NoError(t, svc.Delete(ctx, servicetest.Member, mine.ID))
	require.NoError(t, svc.Delete(ctx, servicetest.Leader, theirs.ID))

	_, err := svc.Get(ctx, servicetest.Member, theirs.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConcurrentDeletesBothSucceed(t *testing.T) {
	svc, fx := newService(t)
	task := create(t, svc, servicetest.Member, fx.ProjectID, "race")

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.Delete(context.Background(), servicetest.Member, task.ID)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestUpdateAfterProjectDeletionIsNotFound(t *testing.T) {
	svc, fx := newService(t)
	ctx := context.Background()
	task := create(t, svc, servicetest.Member, fx.ProjectID, "orphan?")

	_, err := fx.Store.DeleteProject(ctx, fx.ProjectID)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, servicetest.Member, task.ID, "done")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.Create(ctx, servicetest.Member, CreateInput{ProjectID: fx.ProjectID, Name: "late"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPageScenario(t *testing.T) {
	svc, fx := newService(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		create(t, svc, servicetest.Member, fx.ProjectID, fmt.Sprintf("task %d", i))
	}
	filter := paging.Filter{Scope: fx.ProjectID}

	var sizes []int
	cursor := ""
	for {
		page, err := svc.Page(ctx, servicetest.Member, filter, cursor, 2)
		require.NoError(t, err)
		sizes = append(sizes, len(page.Items))
		if page.Exhausted {
			assert.Empty(t, page.NextCursor)
			break
		}
		cursor = page.NextCursor
	}
	assert.Equal(t, []int{2, 2, 1}, sizes)
}

func TestPageFiltersAndCursorRules(t *testing.T) {
	svc, fx := newService(t)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		task := create(t, svc, servicetest.Member, fx.ProjectID, fmt.Sprintf("Motor %d", i))
		if i%2 == 0 {
			_, err := svc.UpdateStatus(ctx, servicetest.Member, task.ID, "done")
			require.NoError(t, err)
		}
	}
	create(t, svc, servicetest.Member, fx.ProjectID, "Sensor")

	page, err := svc.Page(ctx, servicetest.Member, paging.Filter{Scope: fx.ProjectID, Status: "done"}, "", 10)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)

	page, err = svc.Page(ctx, servicetest.Member, paging.Filter{Scope: fx.ProjectID, Search: "MOTOR"}, "", 3)
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
	require.NotEmpty(t, page.NextCursor)

	_, err = svc.Page(ctx, servicetest.Member, paging.Filter{Scope: fx.ProjectID, Search: "sensor"}, page.NextCursor, 3)
	assert.ErrorIs(t, err, domain.ErrInvalidCursor)

	_, err = svc.Page(ctx, servicetest.Member, paging.Filter{Scope: fx.ProjectID, Status: "blocked"}, "", 3)
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, err = fx.Store.DeleteProject(ctx, fx.ProjectID)
	require.NoError(t, err)
	_, err = svc.Page(ctx, servicetest.Member, paging.Filter{Scope: fx.ProjectID, Search: "motor"}, page.NextCursor, 3)
	assert.ErrorIs(t, err, domain.ErrInvalidCursor)
	_, err = svc.Page(ctx, servicetest.Member, paging.Filter{Scope: fx.ProjectID}, "", 3)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLiveViewFollowsMutations(t *testing.T) {
	svc, fx := newService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := create(t, svc, servicetest.Member, fx.ProjectID, "first")
	create(t, svc, servicetest.Member, fx.ProjectID, "second")

	view, err := svc.OpenView(ctx, servicetest.Member, paging.Filter{Scope: fx.ProjectID, Status: "backlog"}, 10)
	require.NoError(t, err)
	require.NoError(t, view.LoadMore(ctx))
	require.Len(t, view.Items(), 2)

	sub := fx.Bus.Subscribe(fx.ProjectID, 16)
	defer sub.Close()
	changed := make(chan struct{}, 16)
	go func() { _ = view.Watch(ctx, sub, func() { changed <- struct{}{} }) }()

	wait := func() {
		t.Helper()
		select {
		case <-changed:
		case <-time.After(time.Second):
			t.Fatalf("view did not change")
		}
	}

	_, err = svc.UpdateStatus(ctx, servicetest.Member, first.ID, "done")
	require.NoError(t, err)
	wait()
	assert.Len(t, view.Items(), 1)

	third := create(t, svc, servicetest.Member, fx.ProjectID, "third")
	wait()
	items := view.Items()
	require.Len(t, items, 2)
	assert.Equal(t, third.ID, items[1].ID)

	require.NoError(t, svc.Delete(ctx, servicetest.Member, third.ID))
	wait()
	assert.Len(t, view.Items(), 1)
}

func TestLiveViewClosesWhenCallerLosesAccess(t *testing.T) {
	svc, fx := newService(t)
	ctx := context.Background()
	create(t, svc, servicetest.Other, fx.ProjectID, "before removal")

	view, err := svc.OpenView(ctx, servicetest.Other, paging.Filter{Scope: fx.ProjectID}, 10)
	require.NoError(t, err)
	require.NoError(t, view.LoadMore(ctx))
	require.Len(t, view.Items(), 1)

	sub := fx.Bus.Subscribe(fx.ProjectID, 16)
	defer sub.Close()
	done := make(chan error, 1)
	go func() { done <- view.Watch(ctx, sub, nil) }()

	removed, err := fx.Store.DeleteMember(ctx, fx.TeamID, servicetest.Other)
	require.NoError(t, err)
	require.True(t, removed)
	create(t, svc, servicetest.Leader, fx.ProjectID, "after removal")

	select {
	case err := <-done:
		assert.ErrorIs(t, err, domain.ErrNotFound)
	case <-time.After(time.Second):
		t.Fatalf("view kept following the project after access was lost")
	}
	assert.Empty(t, view.Items())
	assert.ErrorIs(t, view.Err(), domain.ErrNotFound)
	assert.ErrorIs(t, view.LoadMore(ctx), domain.ErrNotFound)

	changed, err := view.Apply(ctx, domain.ChangeEvent{Kind: domain.ChangeTaskCreated, Scope: fx.ProjectID, EntityID: "x"})
	assert.True(t, changed)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
