package worker

import (
	"context"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisQueue hands asset IDs to the pool over Redis lists. BLPOP on the worker
// side pairs with LPUSH here.
type RedisQueue struct {
	redis *redis.Client
}

func NewRedisQueue(redisClient *redis.Client) *RedisQueue {
	return &RedisQueue{redis: redisClient}
}

func (q *RedisQueue) Enqueue(ctx context.Context, queue string, assetID uuid.UUID) error {
	return q.redis.LPush(ctx, queue, assetID.String()).Err()
}
