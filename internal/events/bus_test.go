package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splax/teamboard/internal/domain"
)

func receive(t *testing.T, sub *Subscription) domain.ChangeEvent {
	t.Helper()
	select {
	case ev, ok := <-sub.C():
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event")
	}
	return domain.ChangeEvent{}
}

func TestBusDeliversByScope(t *testing.T) {
	bus := NewBus()
	defer bus.Close()
	ctx := context.Background()

	a := bus.Subscribe("p-1", 4)
	b := bus.Subscribe("p-2", 4)
	defer a.Close()
	defer b.Close()

	require.NoError(t, bus.Publish(ctx, domain.ChangeEvent{Kind: domain.ChangeTaskCreated, Scope: "p-1", EntityID: "t-1"}))
	require.NoError(t, bus.Publish(ctx, domain.ChangeEvent{Kind: domain.ChangeTaskCreated, Scope: "p-2", EntityID: "t-2"}))

	assert.Equal(t, "t-1", receive(t, a).EntityID)
	assert.Equal(t, "t-2", receive(t, b).EntityID)
	assert.Empty(t, a.C())
}

func TestBusMarksSlowSubscriberLagged(t *testing.T) {
	bus := NewBus()
	defer bus.Close()
	ctx := context.Background()

	sub := bus.Subscribe("p-1", 1)
	defer sub.Close()

	for i := 0; i < 3; i++ {
		require.NoError(t, bus.Publish(ctx, domain.ChangeEvent{Kind: domain.ChangeTaskUpdated, Scope: "p-1"}))
	}
	assert.True(t, sub.Lagged())
	assert.False(t, sub.Lagged(), "flag clears after read")
	receive(t, sub)
}

func TestSubscriptionCloseClosesChannel(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	sub := bus.Subscribe("p-1", 1)
	sub.Close()
	sub.Close()
	_, ok := <-sub.C()
	assert.False(t, ok)
}

func TestBusCloseStopsPublishing(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe("p-1", 1)
	bus.Close()

	_, ok := <-sub.C()
	assert.False(t, ok)
	err := bus.Publish(context.Background(), domain.ChangeEvent{Scope: "p-1"})
	assert.ErrorIs(t, err, ErrClosed)
	sub.Close()

	late := bus.Subscribe("p-1", 1)
	_, ok = <-late.C()
	assert.False(t, ok)
}

func TestRelayIgnoresOwnOrigin(t *testing.T) {
	bus := NewBus()
	defer bus.Close()
	relay := NewRedisRelay(bus, nil, "changes", nil)
	sub := bus.Subscribe("p-1", 4)
	defer sub.Close()
	ctx := context.Background()

	own, err := json.Marshal(envelope{Origin: relay.origin, Event: domain.ChangeEvent{Scope: "p-1", EntityID: "mine"}})
	require.NoError(t, err)
	foreign, err := json.Marshal(envelope{Origin: "other", Event: domain.ChangeEvent{Scope: "p-1", EntityID: "theirs"}})
	require.NoError(t, err)

	require.NoError(t, relay.handle(ctx, own))
	require.NoError(t, relay.handle(ctx, foreign))
	assert.Error(t, relay.handle(ctx, []byte("{")))

	assert.Equal(t, "theirs", receive(t, sub).EntityID)
	assert.Empty(t, sub.C())
}
