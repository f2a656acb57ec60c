// Package access derives a caller's effective permission on a project from
// team membership and gates operations on it.
package access

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/splax/teamboard/internal/domain"
	"github.com/splax/teamboard/internal/repository"
)

// Resolver computes permissions per (caller, project). Nothing is cached.
type Resolver struct {
	projects repository.ProjectRepository
	teams    repository.TeamRepository
}

// New returns a permission resolver.
func New(projects repository.ProjectRepository, teams repository.TeamRepository) Resolver {
	return Resolver{projects: projects, teams: teams}
}

// Resolve returns the caller's permission on the project. A missing project
// and a missing membership both resolve to PermissionNone.
func (r Resolver) Resolve(ctx context.Context, callerID, projectID string) (domain.Permission, error) {
	_, perm, err := r.resolve(ctx, callerID, projectID)
	return perm, err
}

// ResolveTeam returns the permission carried by the caller's role in a team.
func (r Resolver) ResolveTeam(ctx context.Context, callerID, teamID string) (domain.Permission, error) {
	if strings.TrimSpace(callerID) == "" || strings.TrimSpace(teamID) == "" {
		return domain.PermissionNone, nil
	}
	member, err := r.teams.GetMember(ctx, teamID, callerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.PermissionNone, nil
		}
		return domain.PermissionNone, err
	}
	return domain.PermissionFromRole(member.Role), nil
}

// Authorize loads the project and checks the capability. Invisible projects
// fail with ErrNotFound; visible ones lacking the capability with ErrForbidden.
func (r Resolver) Authorize(ctx context.Context, callerID, projectID string, capability domain.Capability) (*domain.Project, domain.Permission, error) {
	project, perm, err := r.resolve(ctx, callerID, projectID)
	if err != nil {
		return nil, domain.PermissionNone, err
	}
	if !perm.Visible() {
		return nil, domain.PermissionNone, fmt.Errorf("%w: project", domain.ErrNotFound)
	}
	if !perm.Can(capability) {
		return project, perm, fmt.Errorf("%w: %s may not perform this operation", domain.ErrForbidden, perm)
	}
	return project, perm, nil
}

// AuthorizeTeam is Authorize for team-scoped operations.
func (r Resolver) AuthorizeTeam(ctx context.Context, callerID, teamID string, capability domain.Capability) (domain.Permission, error) {
	perm, err := r.ResolveTeam(ctx, callerID, teamID)
	if err != nil {
		return domain.PermissionNone, err
	}
	if !perm.Visible() {
		return domain.PermissionNone, fmt.Errorf("%w: team", domain.ErrNotFound)
	}
	if !perm.Can(capability) {
		return perm, fmt.Errorf("%w: %s may not perform this operation", domain.ErrForbidden, perm)
	}
	return perm, nil
}

func (r Resolver) resolve(ctx context.Context, callerID, projectID string) (*domain.Project, domain.Permission, error) {
	if strings.TrimSpace(callerID) == "" || strings.TrimSpace(projectID) == "" {
		return nil, domain.PermissionNone, nil
	}
	project, err := r.projects.GetProjectByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.PermissionNone, nil
		}
		return nil, domain.PermissionNone, err
	}
	perm, err := r.ResolveTeam(ctx, callerID, project.TeamID)
	if err != nil {
		return nil, domain.PermissionNone, err
	}
	return project, perm, nil
}
