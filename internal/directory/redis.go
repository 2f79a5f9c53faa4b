package directory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"go.pilab.hu/ghlink/domain"
)

// Redis stores each link as a hash under "<prefix>:installation:<account>".
type Redis struct {
	client *redis.Client
	prefix string
}

func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "ghlink"
	}

	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(accountID string) string {
	return fmt.Sprintf("%s:installation:%s", r.prefix, accountID)
}

func (r *Redis) Get(ctx context.Context, accountID string) (*domain.InstallationLink, error) {
	res, err := r.client.HGetAll(ctx, r.key(accountID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get installation link from Redis: %w", err)
	}
	if len(res) == 0 {
		return nil, domain.ErrLinkNotFound
	}

	return linkFromHash(accountID, res), nil
}

func (r *Redis) Put(ctx context.Context, link *domain.InstallationLink) error {
	key := r.key(link.AccountID)

	// A pipeline in a transaction replaces the hash atomically, so a stale
	// setup_action never survives an overwrite.
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, map[string]interface{}{
			"installation_id": link.InstallationID,
			"setup_action":    link.SetupAction,
			"linked_at":       link.LinkedAt.UTC().Format(time.RFC3339Nano),
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store installation link in Redis: %w", err)
	}

	return nil
}

func (r *Redis) List(ctx context.Context) ([]*domain.InstallationLink, error) {
	pattern := r.key("*")
	prefix := strings.TrimSuffix(pattern, "*")

	var out []*domain.InstallationLink
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		res, err := r.client.HGetAll(ctx, key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("failed to read installation link %s: %w", key, err)
		}
		if len(res) == 0 {
			continue
		}
		out = append(out, linkFromHash(strings.TrimPrefix(key, prefix), res))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan installation links: %w", err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })

	return out, nil
}

func linkFromHash(accountID string, res map[string]string) *domain.InstallationLink {
	link := &domain.InstallationLink{
		AccountID:      accountID,
		InstallationID: res["installation_id"],
		SetupAction:    res["setup_action"],
	}
	if ts, err := time.Parse(time.RFC3339Nano, res["linked_at"]); err == nil {
		link.LinkedAt = ts
	}

	return link
}

var _ domain.InstallationDirectory = (*Redis)(nil)
