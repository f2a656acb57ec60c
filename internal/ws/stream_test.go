package ws

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splax/teamboard/internal/domain"
	"github.com/splax/teamboard/internal/service/access"
	"github.com/splax/teamboard/internal/service/paging"
	"github.com/splax/teamboard/internal/service/project"
	"github.com/splax/teamboard/internal/service/servicetest"
	"github.com/splax/teamboard/internal/service/stats"
	"github.com/splax/teamboard/internal/service/task"
	"github.com/splax/teamboard/pkg/config"
)

type fakeClient struct {
	cmds   chan Command
	frames chan Frame[domain.Task]
	closed chan struct{}
	once   sync.Once
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		cmds:   make(chan Command),
		frames: make(chan Frame[domain.Task], 32),
		closed: make(chan struct{}),
	}
}

func (c *fakeClient) Send(payload []byte) error {
	select {
	case <-c.closed:
		return io.ErrClosedPipe
	default:
	}
	var frame Frame[domain.Task]
	if err := json.Unmarshal(payload, &frame); err != nil {
		return err
	}
	c.frames <- frame
	return nil
}

func (c *fakeClient) ReadCommand() (Command, error) {
	select {
	case cmd, ok := <-c.cmds:
		if !ok {
			return Command{}, io.EOF
		}
		return cmd, nil
	case <-c.closed:
		return Command{}, io.EOF
	}
}

func (c *fakeClient) Close() {
	c.once.Do(func() { close(c.closed) })
}

func (c *fakeClient) next(t *testing.T) Frame[domain.Task] {
	t.Helper()
	select {
	case frame := <-c.frames:
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return Frame[domain.Task]{}
	}
}

type streamFixture struct {
	fx       *servicetest.Fixture
	tasks    task.Service
	projects project.Service
}

func newStreamFixture(t *testing.T) streamFixture {
	t.Helper()
	fx := servicetest.New(t)
	resolver := access.New(fx.Store, fx.Store)
	return streamFixture{
		fx:       fx,
		tasks:    task.New(fx.Store, resolver, fx.Bus, fx.Log, config.APIConfig{}),
		projects: project.New(fx.Store, fx.Store, resolver, stats.New(fx.Store), fx.Bus, fx.Log),
	}
}

func (sf streamFixture) start(t *testing.T, pageSize int) (*fakeClient, chan error) {
	t.Helper()
	ctx := context.Background()
	filter := paging.Filter{Scope: sf.fx.ProjectID}
	view, err := sf.tasks.OpenView(ctx, servicetest.Member, filter, pageSize)
	require.NoError(t, err)
	client := newFakeClient()
	stream := NewStream[domain.Task](view, sf.fx.Bus.Subscribe(sf.fx.ProjectID, 16), client, sf.fx.Log)
	done := make(chan error, 1)
	go func() { done <- stream.Run(ctx) }()
	return client, done
}

func wait(t *testing.T, done chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop")
		return nil
	}
}

func TestStreamSnapshotsLoadMoreAndChanges(t *testing.T) {
	sf := newStreamFixture(t)
	ctx := context.Background()
	for _, name := range []string{"one", "two", "three"} {
		_, err := sf.tasks.Create(ctx, servicetest.Member, task.CreateInput{ProjectID: sf.fx.ProjectID, Name: name})
		require.NoError(t, err)
	}

	client, done := sf.start(t, 2)

	first := client.next(t)
	assert.Equal(t, "snapshot", first.Type)
	assert.Len(t, first.Items, 2)
	assert.Equal(t, paging.StateCanLoadMore, first.State)
	assert.NotEmpty(t, first.NextCursor)

	client.cmds <- Command{Type: "load_more"}
	second := client.next(t)
	assert.Len(t, second.Items, 3)
	assert.Equal(t, paging.StateExhausted, second.State)
	assert.Empty(t, second.NextCursor)

	created, err := sf.tasks.Create(ctx, servicetest.Other, task.CreateInput{ProjectID: sf.fx.ProjectID, Name: "four"})
	require.NoError(t, err)
	third := client.next(t)
	require.Len(t, third.Items, 4)
	assert.Equal(t, created.ID, third.Items[3].ID)

	client.cmds <- Command{Type: "reorder"}
	bad := client.next(t)
	assert.Equal(t, "error", bad.Type)
	assert.Equal(t, "invalid_input", bad.Code)

	close(client.cmds)
	assert.NoError(t, wait(t, done))
}

func TestStreamStopsWhenProjectIsDeleted(t *testing.T) {
	sf := newStreamFixture(t)
	ctx := context.Background()
	_, err := sf.tasks.Create(ctx, servicetest.Member, task.CreateInput{ProjectID: sf.fx.ProjectID, Name: "one"})
	require.NoError(t, err)

	client, done := sf.start(t, 10)
	assert.Equal(t, "snapshot", client.next(t).Type)

	require.NoError(t, sf.projects.Delete(ctx, servicetest.Leader, sf.fx.ProjectID))
	frame := client.next(t)
	assert.Equal(t, "error", frame.Type)
	assert.Equal(t, "invalid_cursor", frame.Code)
	assert.ErrorIs(t, wait(t, done), domain.ErrInvalidCursor)
}

func TestStreamClosesWhenViewerLeavesTeam(t *testing.T) {
	sf := newStreamFixture(t)
	ctx := context.Background()
	client, done := sf.start(t, 10)
	assert.Equal(t, "snapshot", client.next(t).Type)

	_, err := sf.fx.Store.DeleteMember(ctx, sf.fx.TeamID, servicetest.Member)
	require.NoError(t, err)
	_, err = sf.tasks.Create(ctx, servicetest.Leader, task.CreateInput{ProjectID: sf.fx.ProjectID, Name: "leaders only"})
	require.NoError(t, err)

	frame := client.next(t)
	assert.Equal(t, "error", frame.Type)
	assert.Equal(t, "not_found", frame.Code)
	assert.Empty(t, frame.Items)
	assert.ErrorIs(t, wait(t, done), domain.ErrNotFound)
}
