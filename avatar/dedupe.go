package avatar

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"go.pilab.hu/idlink/domain"
)

const defaultDedupeTTL = 10 * time.Minute

// DedupeQueue drops repeated jobs for the same (user, url) within a TTL
// window before handing them to the next queue. Rapid re-logins would
// otherwise enqueue the same fetch over and over.
type DedupeQueue struct {
	next domain.AvatarQueue
	seen *ttlcache.Cache[string, struct{}]
}

// NewDedupeQueue wraps next with a dedupe window. ttl <= 0 selects the
// default of ten minutes. Call Stop when done to release the cache janitor.
func NewDedupeQueue(next domain.AvatarQueue, ttl time.Duration) *DedupeQueue {
	if ttl <= 0 {
		ttl = defaultDedupeTTL
	}
	cache := ttlcache.New(
		ttlcache.WithTTL[string, struct{}](ttl),
		ttlcache.WithDisableTouchOnHit[string, struct{}](),
	)
	go cache.Start()

	return &DedupeQueue{next: next, seen: cache}
}

func (q *DedupeQueue) Enqueue(ctx context.Context, job domain.AvatarJob) error {
	key := job.UserID + "\x00" + job.URL
	if q.seen.Has(key) {
		return nil
	}
	if err := q.next.Enqueue(ctx, job); err != nil {
		return err
	}
	q.seen.Set(key, struct{}{}, ttlcache.DefaultTTL)
	return nil
}

// Stop shuts down the expiry goroutine.
func (q *DedupeQueue) Stop() {
	q.seen.Stop()
}

var _ domain.AvatarQueue = (*DedupeQueue)(nil)
