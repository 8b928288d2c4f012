package webhook

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper remembers processed delivery ids for a bounded window. Seen is a
// read-only check; Mark records the id and must only be called once the
// event has actually been processed. Marking on receipt would close the
// provider-redelivery recovery path: a delivery whose first attempt is lost
// or fails permanently would have its redelivered copies dropped at the
// door for the whole window.
type Deduper interface {
	// Seen reports whether the event id has already been processed.
	Seen(ctx context.Context, eventID string) (bool, error)

	// Mark records the event id as processed.
	Mark(ctx context.Context, eventID string) error
}

const dedupKeyPrefix = "webhook:event:"

// DefaultDedupTTL bounds how long delivery ids are remembered. Providers
// stop redelivering well within a day.
const DefaultDedupTTL = 24 * time.Hour

type redisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper creates a Deduper backed by Redis with expiry, so multiple
// dispatcher replicas share one dedup window.
func NewRedisDeduper(client *redis.Client, ttl time.Duration) Deduper {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &redisDeduper{client: client, ttl: ttl}
}

func (d *redisDeduper) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := d.client.Exists(ctx, dedupKeyPrefix+eventID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *redisDeduper) Mark(ctx context.Context, eventID string) error {
	return d.client.Set(ctx, dedupKeyPrefix+eventID, 1, d.ttl).Err()
}

type memoryDeduper struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
}

// NewMemoryDeduper creates a single-process Deduper for tests and local
// development.
func NewMemoryDeduper(ttl time.Duration) Deduper {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &memoryDeduper{
		seen: make(map[string]time.Time),
		ttl:  ttl,
	}
}

func (d *memoryDeduper) Seen(_ context.Context, eventID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.prune()
	_, ok := d.seen[eventID]
	return ok, nil
}

func (d *memoryDeduper) Mark(_ context.Context, eventID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.prune()
	d.seen[eventID] = time.Now().Add(d.ttl)
	return nil
}

func (d *memoryDeduper) prune() {
	now := time.Now()
	for id, expires := range d.seen {
		if expires.Before(now) {
			delete(d.seen, id)
		}
	}
}
