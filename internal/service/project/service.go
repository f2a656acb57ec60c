package project

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/splax/teamboard/internal/domain"
	"github.com/splax/teamboard/internal/events"
	"github.com/splax/teamboard/internal/repository"
	"github.com/splax/teamboard/internal/service/access"
	"github.com/splax/teamboard/internal/service/stats"
	"github.com/splax/teamboard/internal/validate"
)

// CreateInput encapsulates project creation attributes.
type CreateInput struct {
	TeamID      string `json:"team_id"`
	Name        string `json:"name" validate:"nonblank,max=200"`
	Description string `json:"description" validate:"max=5000"`
}

// UpdateInput is a partial metadata update.
type UpdateInput struct {
	ProjectID   string  `json:"-"`
	Name        *string `json:"name" validate:"omitnil,nonblank,max=200"`
	Description *string `json:"description" validate:"omitnil,max=5000"`
}

// View is a project as one caller sees it.
type View struct {
	Project        domain.Project    `json:"project"`
	Permission     domain.Permission `json:"permission"`
	Stats          domain.TaskStats  `json:"stats"`
	CompletionRate int               `json:"completion_rate"`
}

// Summary is a project listing entry.
type Summary struct {
	Project    domain.Project    `json:"project"`
	Permission domain.Permission `json:"permission"`
}

// Service orchestrates project management.
type Service struct {
	projects repository.ProjectRepository
	teams    repository.TeamRepository
	access   access.Resolver
	stats    stats.Engine
	events   events.Publisher
	logger   *slog.Logger
	now      func() time.Time
}

// New returns a project service.
func New(projects repository.ProjectRepository, teams repository.TeamRepository, resolver access.Resolver, engine stats.Engine, publisher events.Publisher, logger *slog.Logger) Service {
	return Service{
		projects: projects,
		teams:    teams,
		access:   resolver,
		stats:    engine,
		events:   publisher,
		logger:   logger,
		now:      time.Now,
	}
}

// Create registers a project under a team the caller leads.
func (s Service) Create(ctx context.Context, callerID string, input CreateInput) (*domain.Project, error) {
	if _, err := s.access.AuthorizeTeam(ctx, callerID, input.TeamID, domain.CapCreateProject); err != nil {
		return nil, err
	}
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	now := domain.StorageTime(s.now())
	project := &domain.Project{
		ID:          uuid.NewString(),
		TeamID:      input.TeamID,
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.projects.CreateProject(ctx, project); err != nil {
		return nil, err
	}
	s.logger.Info("project created", "project_id", project.ID, "team_id", project.TeamID, "caller_id", callerID)
	return project, nil
}

// Update edits project metadata.
func (s Service) Update(ctx context.Context, callerID string, input UpdateInput) (*domain.Project, error) {
	project, _, err := s.access.Authorize(ctx, callerID, input.ProjectID, domain.CapEditProject)
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	updated := *project
	if input.Name != nil {
		updated.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		updated.Description = *input.Description
	}
	updated.UpdatedAt = domain.StorageTime(s.now())
	if err := s.projects.UpdateProject(ctx, &updated); err != nil {
		return nil, err
	}
	s.logger.Info("project updated", "project_id", updated.ID, "caller_id", callerID)
	s.publish(ctx, domain.ChangeProjectUpdated, updated.ID)
	return &updated, nil
}

// Delete removes the project together with all of its tasks.
func (s Service) Delete(ctx context.Context, callerID, projectID string) error {
	if _, _, err := s.access.Authorize(ctx, callerID, projectID, domain.CapDeleteProject); err != nil {
		return err
	}
	removed, err := s.projects.DeleteProject(ctx, projectID)
	if err != nil {
		return err
	}
	s.logger.Info("project deleted", "project_id", projectID, "removed_tasks", removed, "caller_id", callerID)
	s.publish(ctx, domain.ChangeProjectDeleted, projectID)
	return nil
}

// Get returns the project with the caller's permission and fresh statistics.
func (s Service) Get(ctx context.Context, callerID, projectID string) (*View, error) {
	project, perm, err := s.access.Authorize(ctx, callerID, projectID, domain.CapReadProject)
	if err != nil {
		return nil, err
	}
	taskStats, err := s.stats.Stats(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	return &View{
		Project:        *project,
		Permission:     perm,
		Stats:          taskStats,
		CompletionRate: taskStats.CompletionRate(),
	}, nil
}

// Stats returns the task statistics of a visible project.
func (s Service) Stats(ctx context.Context, callerID, projectID string) (domain.TaskStats, error) {
	if _, _, err := s.access.Authorize(ctx, callerID, projectID, domain.CapReadProject); err != nil {
		return domain.TaskStats{}, err
	}
	return s.stats.Stats(ctx, projectID)
}

// ListForCaller returns every project across the caller's teams.
func (s Service) ListForCaller(ctx context.Context, callerID string) ([]Summary, error) {
	if strings.TrimSpace(callerID) == "" {
		return []Summary{}, nil
	}
	teams, err := s.teams.ListTeamsByUser(ctx, callerID)
	if err != nil {
		return nil, err
	}
	perms := make(map[string]domain.Permission, len(teams))
	teamIDs := make([]string, 0, len(teams))
	for _, team := range teams {
		perm, err := s.access.ResolveTeam(ctx, callerID, team.ID)
		if err != nil {
			return nil, err
		}
		perms[team.ID] = perm
		teamIDs = append(teamIDs, team.ID)
	}
	projects, err := s.projects.ListProjectsByTeams(ctx, teamIDs)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(projects))
	for _, project := range projects {
		out = append(out, Summary{Project: project, Permission: perms[project.TeamID]})
	}
	return out, nil
}

func (s Service) publish(ctx context.Context, kind domain.ChangeKind, projectID string) {
	if s.events == nil {
		return
	}
	event := domain.ChangeEvent{Kind: kind, Scope: projectID, EntityID: projectID, At: s.now().UTC()}
	if err := s.events.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("failed to publish change", "kind", kind, "project_id", projectID, "error", err)
	}
}
