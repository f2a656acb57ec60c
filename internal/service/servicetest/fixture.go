// Package servicetest builds seeded in-memory stores for service tests.
package servicetest

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/splax/teamboard/internal/domain"
	"github.com/splax/teamboard/internal/events"
	"github.com/splax/teamboard/internal/repository/memory"
)

// Callers seeded into the fixture team.
const (
	Owner    = "owner"
	Leader   = "lead"
	Member   = "mem"
	Other    = "mem-2"
	Stranger = "stranger"
)

// Fixture is one team with a project and a member of every role.
type Fixture struct {
	Store     *memory.Store
	Bus       *events.Bus
	Log       *slog.Logger
	TeamID    string
	ProjectID string
}

// New seeds a fixture and registers cleanup on t.
func New(t testing.TB) *Fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	bus := events.NewBus()
	t.Cleanup(bus.Close)

	now := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	team := &domain.Team{ID: "team-1", Name: "Robotics", LeaderID: Owner, CreatedAt: now}
	if err := store.CreateTeam(ctx, team, &domain.TeamMember{TeamID: team.ID, UserID: Owner, Role: domain.TeamRoleAdmin, CreatedAt: now}); err != nil {
		t.Fatalf("seed team: %v", err)
	}
	members := []domain.TeamMember{
		{TeamID: team.ID, UserID: Leader, Role: domain.TeamRoleTeamLeader, CreatedAt: now.Add(time.Second)},
		{TeamID: team.ID, UserID: Member, Role: domain.TeamRoleMember, CreatedAt: now.Add(2 * time.Second)},
		{TeamID: team.ID, UserID: Other, Role: domain.TeamRoleMember, CreatedAt: now.Add(3 * time.Second)},
	}
	for i := range members {
		if err := store.UpsertMember(ctx, &members[i]); err != nil {
			t.Fatalf("seed member: %v", err)
		}
	}
	project := &domain.Project{ID: "proj-1", TeamID: team.ID, Name: "Drive base", CreatedAt: now, UpdatedAt: now}
	if err := store.CreateProject(ctx, project); err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return &Fixture{
		Store:     store,
		Bus:       bus,
		Log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		TeamID:    team.ID,
		ProjectID: project.ID,
	}
}

// Clock returns a time source that advances one second per call.
func Clock(start time.Time) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}
