package team

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splax/teamboard/internal/domain"
	"github.com/splax/teamboard/internal/service/access"
	"github.com/splax/teamboard/internal/service/servicetest"
)

func newService(t *testing.T) (Service, *servicetest.Fixture) {
	t.Helper()
	fx := servicetest.New(t)
	return New(fx.Store, fx.Store, access.New(fx.Store, fx.Store), fx.Log), fx
}

func TestCreateMakesCallerLeaderAndAdmin(t *testing.T) {
	svc, fx := newService(t)
	ctx := context.Background()

	team, err := svc.Create(ctx, "founder", "  Pit Crew ")
	require.NoError(t, err)
	assert.Equal(t, "Pit Crew", team.Name)
	assert.Equal(t, "founder", team.LeaderID)

	member, err := fx.Store.GetMember(ctx, team.ID, "founder")
	require.NoError(t, err)
	assert.Equal(t, domain.TeamRoleAdmin, member.Role)

	_, err = svc.Create(ctx, "founder", " ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	teams, err := svc.ListForCaller(ctx, "founder")
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, team.ID, teams[0].ID)
}

func TestGetJoinsProfiles(t *testing.T) {
	svc, fx := newService(t)
	ctx := context.Background()
	require.NoError(t, fx.Store.UpsertUser(ctx, &domain.User{ID: servicetest.Owner, Name: "Olive", AvatarURL: "https://img/o.png"}))

	detail, err := svc.Get(ctx, servicetest.Member, fx.TeamID)
	require.NoError(t, err)
	assert.Equal(t, 4, detail.MemberCount)
	assert.Equal(t, "Olive", detail.Leader.Name)
	assert.Equal(t, domain.TeamRoleAdmin, detail.Leader.Role)
	assert.Equal(t, domain.PermissionMember, detail.Permission)

	_, err = svc.Get(ctx, servicetest.Stranger, fx.TeamID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSetMemberRoleRules(t *testing.T) {
	svc, fx := newService(t)
	ctx := context.Background()

	_, err := svc.SetMemberRole(ctx, servicetest.Member, fx.TeamID, servicetest.Other, "team_leader")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.SetMemberRole(ctx, servicetest.Leader, fx.TeamID, servicetest.Other, "admin")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.SetMemberRole(ctx, servicetest.Leader, fx.TeamID, servicetest.Owner, "member")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.SetMemberRole(ctx, servicetest.Leader, fx.TeamID, servicetest.Other, "captain")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	promoted, err := svc.SetMemberRole(ctx, servicetest.Leader, fx.TeamID, servicetest.Other, " Team_Leader ")
	require.NoError(t, err)
	assert.Equal(t, domain.TeamRoleTeamLeader, promoted.Role)

	joined, err := svc.SetMemberRole(ctx, servicetest.Leader, fx.TeamID, "newcomer", "member")
	require.NoError(t, err)
	assert.Equal(t, domain.TeamRoleMember, joined.Role)

	admin, err := svc.SetMemberRole(ctx, servicetest.Owner, fx.TeamID, servicetest.Member, "admin")
	require.NoError(t, err)
	assert.Equal(t, domain.TeamRoleAdmin, admin.Role)

	_, err = svc.SetMemberRole(ctx, servicetest.Leader, fx.TeamID, servicetest.Member, "member")
	assert.ErrorIs(t, err, domain.ErrForbidden, "leaders cannot demote admins")

	_, err = svc.SetMemberRole(ctx, servicetest.Stranger, fx.TeamID, servicetest.Member, "member")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRemoveMemberRules(t *testing.T) {
	svc, fx := newService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.RemoveMember(ctx, servicetest.Member, fx.TeamID, servicetest.Other), domain.ErrForbidden)
	assert.ErrorIs(t, svc.RemoveMember(ctx, servicetest.Leader, fx.TeamID, servicetest.Owner), domain.ErrForbidden)
	assert.ErrorIs(t, svc.RemoveMember(ctx, servicetest.Owner, fx.TeamID, servicetest.Owner), domain.ErrForbidden)

	require.NoError(t, svc.RemoveMember(ctx, servicetest.Member, fx.TeamID, servicetest.Member))
	require.NoError(t, svc.RemoveMember(ctx, servicetest.Leader, fx.TeamID, servicetest.Other))
	assert.ErrorIs(t, svc.RemoveMember(ctx, servicetest.Leader, fx.TeamID, servicetest.Other), domain.ErrNotFound)

	perm, err := access.New(fx.Store, fx.Store).Resolve(ctx, servicetest.Member, fx.ProjectID)
	require.NoError(t, err)
	assert.Equal(t, domain.PermissionNone, perm, "former members lose visibility")
}
