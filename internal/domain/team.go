package domain

import (
	"fmt"
	"strings"
	"time"
)

// TeamRole is the role a member holds inside a team.
type TeamRole string

const (
	TeamRoleAdmin      TeamRole = "admin"
	TeamRoleTeamLeader TeamRole = "team_leader"
	TeamRoleMember     TeamRole = "member"
)

// ParseTeamRole validates a role name.
func ParseTeamRole(value string) (TeamRole, error) {
	switch role := TeamRole(strings.ToLower(strings.TrimSpace(value))); role {
	case TeamRoleAdmin, TeamRoleTeamLeader, TeamRoleMember:
		return role, nil
	default:
		return "", fmt.Errorf("%w: unknown team role %q", ErrInvalidInput, value)
	}
}

// Team is a group of users owning projects.
type Team struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	LeaderID  string    `json:"leader_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TeamMember links a user to a team with a role. Unique per (team, user).
type TeamMember struct {
	TeamID    string    `json:"team_id"`
	UserID    string    `json:"user_id"`
	Role      TeamRole  `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
