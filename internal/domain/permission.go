package domain

import "fmt"

// Permission is the effective access level a caller has on a project.
// It is computed per request and never stored.
type Permission int

const (
	PermissionNone Permission = iota
	PermissionMember
	PermissionTeamLeader
	PermissionAdmin
)

// PermissionFromRole maps a team membership role onto a project permission.
func PermissionFromRole(role TeamRole) Permission {
	switch role {
	case TeamRoleAdmin:
		return PermissionAdmin
	case TeamRoleTeamLeader:
		return PermissionTeamLeader
	case TeamRoleMember:
		return PermissionMember
	default:
		return PermissionNone
	}
}

// String returns the wire name of the permission.
func (p Permission) String() string {
	switch p {
	case PermissionAdmin:
		return "admin"
	case PermissionTeamLeader:
		return "team_leader"
	case PermissionMember:
		return "member"
	default:
		return "none"
	}
}

// MarshalText lets permissions render by name in JSON payloads.
func (p Permission) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a permission by name.
func (p *Permission) UnmarshalText(text []byte) error {
	switch string(text) {
	case "admin":
		*p = PermissionAdmin
	case "team_leader":
		*p = PermissionTeamLeader
	case "member":
		*p = PermissionMember
	case "none", "":
		*p = PermissionNone
	default:
		return fmt.Errorf("%w: permission %q", ErrInvalidInput, text)
	}
	return nil
}

// AtLeast reports whether p is the same as or above other in the total order
// none < member < team_leader < admin.
func (p Permission) AtLeast(other Permission) bool {
	return p >= other
}

// Visible reports whether the project exists from the caller's point of view.
func (p Permission) Visible() bool {
	return p > PermissionNone
}

// Capability names an operation gated by permission.
type Capability int

const (
	CapReadProject Capability = iota
	CapCreateTask
	CapMoveTask
	CapEditOwnTask
	CapDeleteOwnTask
	CapEditAnyTask
	CapDeleteAnyTask
	CapCreateProject
	CapEditProject
	CapDeleteProject
	CapManageMembers
	CapGrantAdmin
	CapEditParts
	CapDeleteParts
)

var (
	everyone   = permissionSet(PermissionMember, PermissionTeamLeader, PermissionAdmin)
	privileged = permissionSet(PermissionTeamLeader, PermissionAdmin)
	adminOnly  = permissionSet(PermissionAdmin)
)

// capabilities is the explicit whitelist of permissions per operation.
var capabilities = map[Capability]map[Permission]struct{}{
	CapReadProject:   everyone,
	CapCreateTask:    everyone,
	CapMoveTask:      everyone,
	CapEditOwnTask:   everyone,
	CapDeleteOwnTask: everyone,
	CapEditParts:     everyone,
	CapEditAnyTask:   privileged,
	CapDeleteAnyTask: privileged,
	CapCreateProject: privileged,
	CapEditProject:   privileged,
	CapDeleteProject: privileged,
	CapManageMembers: privileged,
	CapDeleteParts:   privileged,
	CapGrantAdmin:    adminOnly,
}

// Can reports whether the permission grants the capability.
func (p Permission) Can(c Capability) bool {
	allowed, ok := capabilities[c]
	if !ok {
		return false
	}
	_, ok = allowed[p]
	return ok
}

func permissionSet(perms ...Permission) map[Permission]struct{} {
	set := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}
