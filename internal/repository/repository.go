package repository

import (
	"context"

	"github.com/splax/teamboard/internal/domain"
)

// UserRepository caches identity-provider profiles.
type UserRepository interface {
	UpsertUser(ctx context.Context, user *domain.User) error
	ListUsersByID(ctx context.Context, ids []string) ([]domain.User, error)
}

// TeamRepository manages teams and memberships.
type TeamRepository interface {
	CreateTeam(ctx context.Context, team *domain.Team, owner *domain.TeamMember) error
	GetTeamByID(ctx context.Context, teamID string) (*domain.Team, error)
	ListTeamsByUser(ctx context.Context, userID string) ([]domain.Team, error)
	GetMember(ctx context.Context, teamID, userID string) (*domain.TeamMember, error)
	ListMembers(ctx context.Context, teamID string) ([]domain.TeamMember, error)
	UpsertMember(ctx context.Context, member *domain.TeamMember) error
	DeleteMember(ctx context.Context, teamID, userID string) (bool, error)
}

// ProjectRepository persists projects. DeleteProject removes the project and
// every task referencing it as one atomic unit.
type ProjectRepository interface {
	CreateProject(ctx context.Context, project *domain.Project) error
	GetProjectByID(ctx context.Context, projectID string) (*domain.Project, error)
	ListProjectsByTeams(ctx context.Context, teamIDs []string) ([]domain.Project, error)
	UpdateProject(ctx context.Context, project *domain.Project) error
	DeleteProject(ctx context.Context, projectID string) (int, error)
}

// TaskRepository persists tasks. Writes serialize with DeleteProject on the
// parent project.
type TaskRepository interface {
	CreateTask(ctx context.Context, task *domain.Task) error
	GetTaskByID(ctx context.Context, taskID string) (*domain.Task, error)
	UpdateTask(ctx context.Context, task *domain.Task) error
	DeleteTask(ctx context.Context, taskID string) (bool, error)
	ListTasks(ctx context.Context, query domain.ListQuery) ([]domain.Task, error)
	CountTasksByStatus(ctx context.Context, projectID string) (map[domain.TaskStatus]int, error)
}

// PartRepository persists team inventory.
type PartRepository interface {
	CreatePart(ctx context.Context, part *domain.Part) error
	GetPartByID(ctx context.Context, partID string) (*domain.Part, error)
	UpdatePart(ctx context.Context, part *domain.Part) error
	DeletePart(ctx context.Context, partID string) (bool, error)
	ListParts(ctx context.Context, query domain.ListQuery) ([]domain.Part, error)
	ListAllParts(ctx context.Context, teamID string) ([]domain.Part, error)
}

// Store bundles every repository a backend provides.
type Store interface {
	UserRepository
	TeamRepository
	ProjectRepository
	TaskRepository
	PartRepository
}
