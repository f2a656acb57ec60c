package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splax/teamboard/internal/domain"
	"github.com/splax/teamboard/internal/service/access"
	"github.com/splax/teamboard/internal/service/paging"
	"github.com/splax/teamboard/internal/service/servicetest"
	"github.com/splax/teamboard/pkg/config"
)

func newService(t *testing.T) (Service, *servicetest.Fixture) {
	t.Helper()
	fx := servicetest.New(t)
	svc := New(fx.Store, access.New(fx.Store, fx.Store), fx.Bus, fx.Log, config.APIConfig{})
	svc.now = servicetest.Clock(time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC))
	return svc, fx
}

func seedParts(t *testing.T, svc Service, teamID string) []*domain.Part {
	t.Helper()
	inputs := []CreateInput{
		{Name: "Hex bolt", PartNumber: "HB-10", Category: "fasteners", Quantity: 0, LowStockThreshold: 5},
		{Name: "Lock nut", PartNumber: "LN-10", Category: "fasteners", Quantity: 3, LowStockThreshold: 5},
		{Name: "NEO motor", PartNumber: "REV-21", Category: "motors", Quantity: 12, LowStockThreshold: 2},
		{Name: "Zip tie", PartNumber: "ZT-1", Quantity: 200},
	}
	out := make([]*domain.Part, 0, len(inputs))
	for _, in := range inputs {
		in.TeamID = teamID
		part, err := svc.Create(context.Background(), servicetest.Member, in)
		require.NoError(t, err)
		out = append(out, part)
	}
	return out
}

func TestStatsAndCategories(t *testing.T) {
	svc, fx := newService(t)
	ctx := context.Background()
	seedParts(t, svc, fx.TeamID)

	stats, err := svc.Stats(ctx, servicetest.Member, fx.TeamID)
	require.NoError(t, err)
	assert.Equal(t, domain.InventoryStats{TotalParts: 4, TotalQuantity: 215, LowStockCount: 1, OutOfStockCount: 1}, stats)

	categories, err := svc.Categories(ctx, servicetest.Member, fx.TeamID)
	require.NoError(t, err)
	assert.Equal(t, []string{"fasteners", "motors"}, categories)

	_, err = svc.Stats(ctx, servicetest.Stranger, fx.TeamID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQuantitiesMustBeNonNegative(t *testing.T) {
	svc, fx := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, servicetest.Member, CreateInput{TeamID: fx.TeamID, Name: "Gear", Quantity: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	part, err := svc.Create(ctx, servicetest.Member, CreateInput{TeamID: fx.TeamID, Name: "Gear", Quantity: 1})
	require.NoError(t, err)
	negative := -4
	_, err = svc.Update(ctx, servicetest.Member, UpdateInput{PartID: part.ID, LowStockThreshold: &negative})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	zero := 0
	updated, err := svc.Update(ctx, servicetest.Member, UpdateInput{PartID: part.ID, Quantity: &zero})
	require.NoError(t, err)
	assert.True(t, updated.OutOfStock())
}

func TestPageByCategoryAndSearch(t *testing.T) {
	svc, fx := newService(t)
	ctx := context.Background()
	seedParts(t, svc, fx.TeamID)

	page, err := svc.Page(ctx, servicetest.Member, paging.Filter{Scope: fx.TeamID, Category: "fasteners"}, "", 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Hex bolt", page.Items[0].Name)

	next, err := svc.Page(ctx, servicetest.Member, paging.Filter{Scope: fx.TeamID, Category: "fasteners"}, page.NextCursor, 1)
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.Equal(t, "Lock nut", next.Items[0].Name)
	assert.True(t, next.Exhausted)

	_, err = svc.Page(ctx, servicetest.Member, paging.Filter{Scope: fx.TeamID, Category: "motors"}, page.NextCursor, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidCursor)

	found, err := svc.Page(ctx, servicetest.Member, paging.Filter{Scope: fx.TeamID, Search: "rev-"}, "", 10)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "NEO motor", found.Items[0].Name)

	_, err = svc.Page(ctx, servicetest.Member, paging.Filter{Scope: fx.TeamID, Status: "done"}, "", 10)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.Page(ctx, servicetest.Stranger, paging.Filter{Scope: fx.TeamID}, page.NextCursor, 10)
	assert.ErrorIs(t, err, domain.ErrInvalidCursor)
}

func TestDeleteNeedsLeaderAndIsIdempotent(t *testing.T) {
	svc, fx := newService(t)
	ctx := context.Background()
	parts := seedParts(t, svc, fx.TeamID)

	assert.ErrorIs(t, svc.Delete(ctx, servicetest.Member, parts[0].ID), domain.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, servicetest.Leader, parts[0].ID))
	require.NoError(t, svc.Delete(ctx, servicetest.Leader, parts[0].ID))
	require.NoError(t, svc.Delete(ctx, servicetest.Stranger, "never-existed"))
	assert.ErrorIs(t, svc.Delete(ctx, servicetest.Stranger, parts[1].ID), domain.ErrNotFound)
}

func TestPartViewFollowsCategoryAndMembership(t *testing.T) {
	svc, fx := newService(t)
	ctx := context.Background()
	seedParts(t, svc, fx.TeamID)

	view, err := svc.OpenView(ctx, servicetest.Other, paging.Filter{Scope: fx.TeamID, Category: "motors"}, 10)
	require.NoError(t, err)
	require.NoError(t, view.LoadMore(ctx))
	require.Len(t, view.Items(), 1)

	falcon, err := svc.Create(ctx, servicetest.Member, CreateInput{TeamID: fx.TeamID, Name: "Falcon 500", Category: "motors", Quantity: 4})
	require.NoError(t, err)
	changed, err := view.Apply(ctx, domain.ChangeEvent{Kind: domain.ChangePartCreated, Scope: fx.TeamID, EntityID: falcon.ID})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Len(t, view.Items(), 2)

	bolt, err := svc.Create(ctx, servicetest.Member, CreateInput{TeamID: fx.TeamID, Name: "Shoulder bolt", Category: "fasteners"})
	require.NoError(t, err)
	changed, err = view.Apply(ctx, domain.ChangeEvent{Kind: domain.ChangePartCreated, Scope: fx.TeamID, EntityID: bolt.ID})
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = fx.Store.DeleteMember(ctx, fx.TeamID, servicetest.Other)
	require.NoError(t, err)
	_, err = view.Apply(ctx, domain.ChangeEvent{Kind: domain.ChangePartUpdated, Scope: fx.TeamID, EntityID: falcon.ID})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, view.Items())

	_, err = svc.OpenView(ctx, servicetest.Stranger, paging.Filter{Scope: fx.TeamID}, 10)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.OpenView(ctx, servicetest.Member, paging.Filter{Scope: fx.TeamID, Status: "done"}, 10)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
