// Package memory is an in-process Store used by the dev driver and tests.
// A single RWMutex makes every call one serializable unit.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/splax/teamboard/internal/domain"
	"github.com/splax/teamboard/internal/repository"
)

// Store keeps every entity in maps guarded by one lock.
type Store struct {
	mu       sync.RWMutex
	users    map[string]domain.User
	teams    map[string]domain.Team
	members  map[memberKey]domain.TeamMember
	projects map[string]domain.Project
	tasks    map[string]domain.Task
	parts    map[string]domain.Part
}

type memberKey struct {
	teamID string
	userID string
}

var _ repository.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		users:    make(map[string]domain.User),
		teams:    make(map[string]domain.Team),
		members:  make(map[memberKey]domain.TeamMember),
		projects: make(map[string]domain.Project),
		tasks:    make(map[string]domain.Task),
		parts:    make(map[string]domain.Part),
	}
}

// UpsertUser stores the latest profile for a user.
func (s *Store) UpsertUser(_ context.Context, user *domain.User) error {
	if user == nil || user.ID == "" {
		return repository.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = *user
	return nil
}

// ListUsersByID returns known profiles for the ids, skipping unknown ones.
func (s *Store) ListUsersByID(_ context.Context, ids []string) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

// CreateTeam inserts the team together with its owner membership.
func (s *Store) CreateTeam(_ context.Context, team *domain.Team, owner *domain.TeamMember) error {
	if team == nil || owner == nil {
		return repository.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.teams[team.ID]; exists {
		return repository.ErrInvalidArgument
	}
	s.teams[team.ID] = *team
	s.members[memberKey{teamID: owner.TeamID, userID: owner.UserID}] = *owner
	return nil
}

// GetTeamByID returns a team by identifier.
func (s *Store) GetTeamByID(_ context.Context, teamID string) (*domain.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	team, ok := s.teams[teamID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &team, nil
}

// ListTeamsByUser returns teams the user belongs to, newest first.
func (s *Store) ListTeamsByUser(_ context.Context, userID string) ([]domain.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	teams := make([]domain.Team, 0)
	for key := range s.members {
		if key.userID != userID {
			continue
		}
		if team, ok := s.teams[key.teamID]; ok {
			teams = append(teams, team)
		}
	}
	sort.Slice(teams, func(i, j int) bool {
		if teams[i].CreatedAt.Equal(teams[j].CreatedAt) {
			return teams[i].ID < teams[j].ID
		}
		return teams[i].CreatedAt.After(teams[j].CreatedAt)
	})
	return teams, nil
}

// GetMember returns a membership record.
func (s *Store) GetMember(_ context.Context, teamID, userID string) (*domain.TeamMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	member, ok := s.members[memberKey{teamID: teamID, userID: userID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &member, nil
}

// ListMembers returns a team's memberships ordered by join time.
func (s *Store) ListMembers(_ context.Context, teamID string) ([]domain.TeamMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members := make([]domain.TeamMember, 0)
	for key, member := range s.members {
		if key.teamID == teamID {
			members = append(members, member)
		}
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].CreatedAt.Equal(members[j].CreatedAt) {
			return members[i].UserID < members[j].UserID
		}
		return members[i].CreatedAt.Before(members[j].CreatedAt)
	})
	return members, nil
}

// UpsertMember adds a member or changes their role.
func (s *Store) UpsertMember(_ context.Context, member *domain.TeamMember) error {
	if member == nil {
		return repository.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[member.TeamID]; !ok {
		return repository.ErrNotFound
	}
	key := memberKey{teamID: member.TeamID, userID: member.UserID}
	if existing, ok := s.members[key]; ok {
		existing.Role = member.Role
		s.members[key] = existing
		return nil
	}
	s.members[key] = *member
	return nil
}

// DeleteMember removes a membership, reporting whether one existed.
func (s *Store) DeleteMember(_ context.Context, teamID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memberKey{teamID: teamID, userID: userID}
	if _, ok := s.members[key]; !ok {
		return false, nil
	}
	delete(s.members, key)
	return true, nil
}

// CreateProject inserts a project under an existing team.
func (s *Store) CreateProject(_ context.Context, project *domain.Project) error {
	if project == nil {
		return repository.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[project.TeamID]; !ok {
		return repository.ErrNotFound
	}
	s.projects[project.ID] = *project
	return nil
}

// GetProjectByID fetches a project.
func (s *Store) GetProjectByID(_ context.Context, projectID string) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	project, ok := s.projects[projectID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &project, nil
}

// ListProjectsByTeams returns projects owned by any of the teams, newest first.
func (s *Store) ListProjectsByTeams(_ context.Context, teamIDs []string) ([]domain.Project, error) {
	wanted := make(map[string]struct{}, len(teamIDs))
	for _, id := range teamIDs {
		wanted[id] = struct{}{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	projects := make([]domain.Project, 0)
	for _, project := range s.projects {
		if _, ok := wanted[project.TeamID]; ok {
			projects = append(projects, project)
		}
	}
	sort.Slice(projects, func(i, j int) bool {
		a := domain.SortKey{CreatedAt: projects[i].CreatedAt, ID: projects[i].ID}
		b := domain.SortKey{CreatedAt: projects[j].CreatedAt, ID: projects[j].ID}
		return a.Compare(b) > 0
	})
	return projects, nil
}

// UpdateProject overwrites project metadata.
func (s *Store) UpdateProject(_ context.Context, project *domain.Project) error {
	if project == nil {
		return repository.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.projects[project.ID]
	if !ok {
		return repository.ErrNotFound
	}
	existing.Name = project.Name
	existing.Description = project.Description
	existing.UpdatedAt = project.UpdatedAt
	s.projects[project.ID] = existing
	return nil
}

// DeleteProject removes the project and its tasks under one lock.
func (s *Store) DeleteProject(_ context.Context, projectID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[projectID]; !ok {
		return 0, repository.ErrNotFound
	}
	removed := 0
	for id, task := range s.tasks {
		if task.ProjectID == projectID {
			delete(s.tasks, id)
			removed++
		}
	}
	delete(s.projects, projectID)
	return removed, nil
}
