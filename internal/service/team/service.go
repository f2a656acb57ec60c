package team

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/splax/teamboard/internal/domain"
	"github.com/splax/teamboard/internal/repository"
	"github.com/splax/teamboard/internal/service/access"
	"github.com/splax/teamboard/internal/validate"
)

type createInput struct {
	Name string `validate:"nonblank,max=100"`
}

// Member is a membership joined with the member's profile.
type Member struct {
	UserID    string          `json:"user_id"`
	Name      string          `json:"name"`
	AvatarURL string          `json:"avatar_url"`
	Role      domain.TeamRole `json:"role"`
	JoinedAt  time.Time       `json:"joined_at"`
}

// Detail is a team as its members see it.
type Detail struct {
	Team        domain.Team       `json:"team"`
	Leader      Member            `json:"leader"`
	Members     []Member          `json:"members"`
	MemberCount int               `json:"member_count"`
	Permission  domain.Permission `json:"permission"`
}

// Service handles team workflows.
type Service struct {
	repo   repository.TeamRepository
	users  repository.UserRepository
	access access.Resolver
	logger *slog.Logger
	now    func() time.Time
}

// New constructs a Service.
func New(repo repository.TeamRepository, users repository.UserRepository, resolver access.Resolver, logger *slog.Logger) Service {
	return Service{repo: repo, users: users, access: resolver, logger: logger, now: time.Now}
}

// Create registers a team led by the caller, who also holds the admin role.
func (s Service) Create(ctx context.Context, callerID, name string) (*domain.Team, error) {
	if strings.TrimSpace(callerID) == "" {
		return nil, fmt.Errorf("%w: caller required", domain.ErrInvalidInput)
	}
	if err := validate.Struct(createInput{Name: name}); err != nil {
		return nil, err
	}
	now := domain.StorageTime(s.now())
	team := &domain.Team{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		LeaderID:  callerID,
		CreatedAt: now,
	}
	owner := &domain.TeamMember{
		TeamID:    team.ID,
		UserID:    callerID,
		Role:      domain.TeamRoleAdmin,
		CreatedAt: now,
	}
	if err := s.repo.CreateTeam(ctx, team, owner); err != nil {
		return nil, err
	}
	s.logger.Info("team created", "team_id", team.ID, "leader_id", callerID)
	return team, nil
}

// Get returns the team with member profiles.
func (s Service) Get(ctx context.Context, callerID, teamID string) (*Detail, error) {
	perm, err := s.access.AuthorizeTeam(ctx, callerID, teamID, domain.CapReadProject)
	if err != nil {
		return nil, err
	}
	team, err := s.repo.GetTeamByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	memberships, err := s.repo.ListMembers(ctx, teamID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.UserID)
	}
	profiles, err := s.users.ListUsersByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.User, len(profiles))
	for _, u := range profiles {
		byID[u.ID] = u
	}

	detail := &Detail{Team: *team, Permission: perm, Members: make([]Member, 0, len(memberships))}
	detail.Leader = Member{UserID: team.LeaderID, Name: byID[team.LeaderID].Name, AvatarURL: byID[team.LeaderID].AvatarURL}
	for _, m := range memberships {
		member := Member{
			UserID:    m.UserID,
			Name:      byID[m.UserID].Name,
			AvatarURL: byID[m.UserID].AvatarURL,
			Role:      m.Role,
			JoinedAt:  m.CreatedAt,
		}
		if m.UserID == team.LeaderID {
			detail.Leader = member
		}
		detail.Members = append(detail.Members, member)
	}
	detail.MemberCount = len(detail.Members)
	return detail, nil
}

// ListForCaller returns the teams the caller belongs to.
func (s Service) ListForCaller(ctx context.Context, callerID string) ([]domain.Team, error) {
	if strings.TrimSpace(callerID) == "" {
		return []domain.Team{}, nil
	}
	return s.repo.ListTeamsByUser(ctx, callerID)
}

// SetMemberRole adds a member or changes their role. Only admins may grant
// or revoke the admin role; the leader's role is fixed.
func (s Service) SetMemberRole(ctx context.Context, callerID, teamID, userID, rawRole string) (*domain.TeamMember, error) {
	perm, err := s.access.AuthorizeTeam(ctx, callerID, teamID, domain.CapManageMembers)
	if err != nil {
		return nil, err
	}
	role, err := domain.ParseTeamRole(rawRole)
	if err != nil {
		return nil, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", domain.ErrInvalidInput)
	}
	team, err := s.repo.GetTeamByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if userID == team.LeaderID {
		return nil, fmt.Errorf("%w: the team leader's role cannot change", domain.ErrForbidden)
	}
	current, err := s.repo.GetMember(ctx, teamID, userID)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	touchesAdmin := role == domain.TeamRoleAdmin || (current != nil && current.Role == domain.TeamRoleAdmin)
	if touchesAdmin && !perm.Can(domain.CapGrantAdmin) {
		return nil, fmt.Errorf("%w: only admins may grant or revoke admin", domain.ErrForbidden)
	}

	member := &domain.TeamMember{TeamID: teamID, UserID: userID, Role: role, CreatedAt: domain.StorageTime(s.now())}
	if current != nil {
		member.CreatedAt = current.CreatedAt
	}
	if err := s.repo.UpsertMember(ctx, member); err != nil {
		return nil, err
	}
	s.logger.Info("member role set", "team_id", teamID, "user_id", userID, "role", role, "caller_id", callerID)
	return member, nil
}

// RemoveMember deletes a membership. Members may always leave; removing
// someone else needs manage-members. The leader cannot be removed.
func (s Service) RemoveMember(ctx context.Context, callerID, teamID, userID string) error {
	capability := domain.CapManageMembers
	if userID == callerID {
		capability = domain.CapReadProject
	}
	perm, err := s.access.AuthorizeTeam(ctx, callerID, teamID, capability)
	if err != nil {
		return err
	}
	team, err := s.repo.GetTeamByID(ctx, teamID)
	if err != nil {
		return err
	}
	if userID == team.LeaderID {
		return fmt.Errorf("%w: the team leader cannot be removed", domain.ErrForbidden)
	}
	if userID != callerID {
		target, err := s.repo.GetMember(ctx, teamID, userID)
		if err != nil {
			return err
		}
		if target.Role == domain.TeamRoleAdmin && !perm.Can(domain.CapGrantAdmin) {
			return fmt.Errorf("%w: only admins may remove an admin", domain.ErrForbidden)
		}
	}
	removed, err := s.repo.DeleteMember(ctx, teamID, userID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("%w: member", domain.ErrNotFound)
	}
	s.logger.Info("member removed", "team_id", teamID, "user_id", userID, "caller_id", callerID)
	return nil
}

func isNotFound(err error) bool {
	return err != nil && errors.Is(err, domain.ErrNotFound)
}
