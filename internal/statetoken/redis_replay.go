package statetoken

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisReplayGuard shares consumed token ids between server replicas.
type RedisReplayGuard struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisReplayGuard(client *redis.Client, prefix string) *RedisReplayGuard {
	return &RedisReplayGuard{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

func (r *RedisReplayGuard) redisKey(id string) string {
	return fmt.Sprintf("%s:state:%s", r.prefix, id)
}

// Consume claims id with SET NX; the key expires together with the token.
func (r *RedisReplayGuard) Consume(ctx context.Context, id string, expiresAt time.Time) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.redisKey(id), r.now().Unix(), remaining(expiresAt, r.now())).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record state token in Redis: %w", err)
	}

	return ok, nil
}
