package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"vidsage-backend/internal/models"
)

// EventPublisher fans processing events out to the owning user's pub/sub
// channel, where the WebSocket hub picks them up.
type EventPublisher struct {
	redis *redis.Client
}

func NewEventPublisher(redisClient *redis.Client) *EventPublisher {
	return &EventPublisher{redis: redisClient}
}

func (p *EventPublisher) Publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	if p == nil || p.redis == nil {
		return
	}
	data, _ := json.Marshal(msg)
	p.redis.Publish(ctx, fmt.Sprintf("user_updates:%s", userID.String()), string(data))
}
