// Package avatar provides the job queue through which reconciliation hands
// avatar fetch work to an out-of-process fetcher.
package avatar

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"go.pilab.hu/idlink/domain"
)

// DefaultQueueKey is the Redis list the fetcher consumes with BRPOP.
const DefaultQueueKey = "idlink:avatar:jobs"

// RedisQueue pushes avatar jobs onto a Redis list.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue creates a new RedisQueue. An empty key selects
// DefaultQueueKey.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = DefaultQueueKey
	}
	return &RedisQueue{client: client, key: key}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job domain.AvatarJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal avatar job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("failed to push avatar job to redis: %w", err)
	}
	return nil
}

// Ping reports whether the backing Redis is reachable. Used by readiness
// checks.
func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

var _ domain.AvatarQueue = (*RedisQueue)(nil)
