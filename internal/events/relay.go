package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/splax/teamboard/internal/domain"
)

// RedisRelay shares change events between API instances over Redis pub/sub.
// Local publishes reach the local bus directly; events from other instances
// are re-published locally by Run.
type RedisRelay struct {
	bus     *Bus
	client  *redis.Client
	channel string
	origin  string
	log     *slog.Logger
}

type envelope struct {
	Origin string             `json:"origin"`
	Event  domain.ChangeEvent `json:"event"`
}

// NewRedisRelay wraps bus with a Redis fan-out on channel.
func NewRedisRelay(bus *Bus, client *redis.Client, channel string, log *slog.Logger) *RedisRelay {
	if log == nil {
		log = slog.Default()
	}
	return &RedisRelay{
		bus:     bus,
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		log:     log,
	}
}

// Publish delivers locally, then announces the event to other instances.
func (r *RedisRelay) Publish(ctx context.Context, event domain.ChangeEvent) error {
	if err := r.bus.Publish(ctx, event); err != nil {
		return err
	}
	payload, err := json.Marshal(envelope{Origin: r.origin, Event: event})
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("relay change event: %w", err)
	}
	return nil
}

// Run consumes the shared channel until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	r.log.Info("change relay subscribed", "channel", r.channel, "origin", r.origin)

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if err := r.handle(ctx, []byte(msg.Payload)); err != nil {
				r.log.Warn("dropping relayed change", "error", err)
			}
		}
	}
}

func (r *RedisRelay) handle(ctx context.Context, payload []byte) error {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return fmt.Errorf("decode change event: %w", err)
	}
	if env.Origin == r.origin {
		return nil
	}
	return r.bus.Publish(ctx, env.Event)
}
