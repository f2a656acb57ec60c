// Package events fans committed changes out to live views.
package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/splax/teamboard/internal/domain"
)

// ErrClosed is returned when publishing to a stopped bus.
var ErrClosed = errors.New("events: bus closed")

// Publisher accepts committed change events.
type Publisher interface {
	Publish(ctx context.Context, event domain.ChangeEvent) error
}

// Bus routes change events to subscriptions keyed by scope. A single run
// loop owns the subscription table; slow subscribers are never waited on.
type Bus struct {
	subs      map[string]map[*Subscription]struct{}
	register  chan *Subscription
	unreg     chan *Subscription
	broadcast chan domain.ChangeEvent
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// Subscription receives the events of one scope.
type Subscription struct {
	scope  string
	ch     chan domain.ChangeEvent
	lagged atomic.Bool
	bus    *Bus
	once   sync.Once
}

// NewBus creates a Bus and starts its run loop.
func NewBus() *Bus {
	b := &Bus{
		subs:      make(map[string]map[*Subscription]struct{}),
		register:  make(chan *Subscription),
		unreg:     make(chan *Subscription),
		broadcast: make(chan domain.ChangeEvent),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Bus) run() {
	defer close(b.stopped)
	for {
		select {
		case sub := <-b.register:
			if _, ok := b.subs[sub.scope]; !ok {
				b.subs[sub.scope] = make(map[*Subscription]struct{})
			}
			b.subs[sub.scope][sub] = struct{}{}
		case sub := <-b.unreg:
			if subs, ok := b.subs[sub.scope]; ok {
				if _, ok := subs[sub]; ok {
					delete(subs, sub)
					close(sub.ch)
				}
				if len(subs) == 0 {
					delete(b.subs, sub.scope)
				}
			}
		case event := <-b.broadcast:
			for sub := range b.subs[event.Scope] {
				select {
				case sub.ch <- event:
				default:
					sub.lagged.Store(true)
				}
			}
		case <-b.done:
			for _, subs := range b.subs {
				for sub := range subs {
					close(sub.ch)
				}
			}
			b.subs = nil
			return
		}
	}
}

// Subscribe registers interest in scope. buffer bounds how many undelivered
// events are held before the subscription is marked lagged.
func (b *Bus) Subscribe(scope string, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 1
	}
	sub := &Subscription{scope: scope, ch: make(chan domain.ChangeEvent, buffer), bus: b}
	select {
	case b.register <- sub:
	case <-b.done:
		close(sub.ch)
	}
	return sub
}

// Publish hands the event to the run loop.
func (b *Bus) Publish(ctx context.Context, event domain.ChangeEvent) error {
	select {
	case b.broadcast <- event:
		return nil
	case <-b.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the run loop and closes every subscription channel.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		close(b.done)
	})
	<-b.stopped
}

// C returns the event channel. It is closed when the subscription or the
// bus is closed.
func (s *Subscription) C() <-chan domain.ChangeEvent {
	return s.ch
}

// Scope returns the subscribed scope.
func (s *Subscription) Scope() string {
	return s.scope
}

// Lagged reports whether events were dropped since the previous call and
// clears the flag.
func (s *Subscription) Lagged() bool {
	return s.lagged.Swap(false)
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		select {
		case s.bus.unreg <- s:
		case <-s.bus.stopped:
		}
	})
}
