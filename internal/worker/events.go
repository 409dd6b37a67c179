package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"learningdash-backend/internal/models"
)

// RedisEvents publishes asset lifecycle events over Redis pub/sub: always on
// the shared asset channel, additionally on the owner's channel when known.
// The websocket hub subscribes on the other end.
type RedisEvents struct {
	redis *redis.Client
}

func NewRedisEvents(redisClient *redis.Client) *RedisEvents {
	return &RedisEvents{redis: redisClient}
}

func (e *RedisEvents) Publish(ctx context.Context, userID *string, msg models.WSMessage) {
	data, _ := json.Marshal(msg)
	e.redis.Publish(ctx, "asset_updates", string(data))
	if userID != nil && *userID != "" {
		e.redis.Publish(ctx, fmt.Sprintf("user_updates:%s", *userID), string(data))
	}
}
