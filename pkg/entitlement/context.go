package entitlement

import (
	"context"
	"sync"
)

type snapshotCacheCtxKey struct{}

// snapshotCache memoizes subscription snapshots for the lifetime of one
// request context. Subscription state changes asynchronously via webhooks,
// so the cache must never outlive the request that created it.
type snapshotCache struct {
	mu    sync.Mutex
	snaps map[string]*Snapshot
}

// WithSnapshotCache returns a context whose entitlement reads are memoized
// per company. Install it once per inbound request (see handler middleware);
// repeated snapshot and create-eligibility checks within that request then
// cost a single store round trip.
func WithSnapshotCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, snapshotCacheCtxKey{}, &snapshotCache{
		snaps: make(map[string]*Snapshot),
	})
}

// snapshotFromCache returns a copy: callers own their snapshot, so mutating
// it cannot poison later memoized reads within the same request.
func snapshotFromCache(ctx context.Context, companyID string) (*Snapshot, bool) {
	cache, ok := ctx.Value(snapshotCacheCtxKey{}).(*snapshotCache)
	if !ok {
		return nil, false
	}
	cache.mu.Lock()
	defer cache.mu.Unlock()
	snap, ok := cache.snaps[companyID]
	if !ok {
		return nil, false
	}
	return copySnapshot(snap), true
}

func cacheSnapshot(ctx context.Context, snap *Snapshot) {
	cache, ok := ctx.Value(snapshotCacheCtxKey{}).(*snapshotCache)
	if !ok {
		return
	}
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.snaps[snap.CompanyID] = copySnapshot(snap)
}

func copySnapshot(snap *Snapshot) *Snapshot {
	cp := *snap
	if snap.ExpiresAt != nil {
		t := *snap.ExpiresAt
		cp.ExpiresAt = &t
	}
	return &cp
}
