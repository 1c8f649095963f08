package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/padraicbc/wagergenie/models"
)

// RedisBus publishes through a Redis channel so every instance's hub sees
// every message.
type RedisBus struct {
	r       *redis.Client
	channel string
	hub     *Hub
	log     *zap.Logger
}

// NewRedisBus returns a bus forwarding channel into hub.
func NewRedisBus(r *redis.Client, channel string, hub *Hub, log *zap.Logger) *RedisBus {
	return &RedisBus{r: r, channel: channel, hub: hub, log: log}
}

// Publish sends msg to the channel. Local delivery happens when it comes
// back through Start.
func (b *RedisBus) Publish(ctx context.Context, msg *models.ChatMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding chat message: %w", err)
	}
	if err := b.r.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publishing chat message: %w", err)
	}
	return nil
}

// Start subscribes to the channel and forwards into the hub until ctx ends.
func (b *RedisBus) Start(ctx context.Context) {
	sub := b.r.Subscribe(ctx, b.channel)
	ch := sub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var cm models.ChatMessage
				if err := json.Unmarshal([]byte(msg.Payload), &cm); err != nil {
					b.log.Warn("chat bus unmarshal error", zap.Error(err))
					continue
				}
				b.hub.Broadcast(cm)
			}
		}
	}()
}
