package realtime

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// Relay forwards events published on Redis by any instance into the local hub.
type Relay struct {
	client   *redis.Client
	hub      *Hub
	patterns []string
}

func NewRelay(client *redis.Client, hub *Hub) *Relay {
	return &Relay{client: client, hub: hub, patterns: []string{"customer:*", "restaurant:*"}}
}

// Run blocks until ctx is done or the subscription fails.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.PSubscribe(ctx, r.patterns...)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis psubscribe: %w", err)
	}
	logger.Info().Strs("patterns", r.patterns).Msg("redis relay subscribed")

	r.forward(ctx, sub.Channel())
	return nil
}

func (r *Relay) forward(ctx context.Context, ch <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.hub.Broadcast(msg.Channel, []byte(msg.Payload))
		}
	}
}
