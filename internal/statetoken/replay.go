package statetoken

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// ReplayGuard remembers consumed token ids in process memory until the tokens
// themselves expire, so each state token completes at most one callback.
type ReplayGuard struct {
	cache *ttlcache.Cache[string, struct{}]
	now   func() time.Time
}

// NewReplayGuard starts a guard whose expired entries are evicted in the
// background. Call Close to stop the eviction goroutine.
func NewReplayGuard() *ReplayGuard {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, struct{}](),
	)

	go cache.Start()

	return &ReplayGuard{cache: cache, now: time.Now}
}

// Consume marks id as used. It reports false when id was already consumed.
func (g *ReplayGuard) Consume(_ context.Context, id string, expiresAt time.Time) (bool, error) {
	_, found := g.cache.GetOrSet(id, struct{}{}, ttlcache.WithTTL[string, struct{}](remaining(expiresAt, g.now())))

	return !found, nil
}

// Len returns the number of remembered token ids.
func (g *ReplayGuard) Len() int {
	return g.cache.Len()
}

// Close stops the eviction goroutine.
func (g *ReplayGuard) Close() {
	g.cache.Stop()
}

// remaining is how long a consumed id must be remembered. Expired tokens are
// rejected by Verify; they are still kept for a second.
func remaining(expiresAt, now time.Time) time.Duration {
	if ttl := expiresAt.Sub(now); ttl > 0 {
		return ttl
	}

	return time.Second
}
