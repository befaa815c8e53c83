package usecase

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"telegram-campaign-engine/internal/biz/domain"
	"telegram-campaign-engine/internal/biz/repo"
)

// Snapshot is an immutable view of the active campaign set. Readers hold one
// snapshot for a whole classification+matching pass; concurrent refreshes
// publish a new snapshot instead of mutating this one.
type Snapshot struct {
	Version   uint64
	FetchedAt time.Time
	Campaigns []domain.Campaign
}

// CampaignCache is the read-optimized view of active campaigns (single
// writer, concurrent readers). A refresh happens on first read, after the
// snapshot ages past ttl, or after Invalidate.
type CampaignCache struct {
	store repo.CampaignStore
	ttl   time.Duration
	log   *slog.Logger

	snap  atomic.Pointer[Snapshot]
	stale atomic.Bool

	mu          sync.Mutex // serializes refresh attempts
	version     uint64
	lastAttempt time.Time
}

// NewCampaignCache creates a cache over store with the given staleness bound.
func NewCampaignCache(store repo.CampaignStore, ttl time.Duration, log *slog.Logger) *CampaignCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &CampaignCache{
		store: store,
		ttl:   ttl,
		log:   log.With("component", "campaign_cache"),
	}
}

// Current returns the latest snapshot, refreshing first when none exists,
// the snapshot is stale, or its age exceeds the ttl. A failed refresh keeps
// the previous snapshot usable; only a process that has never seen a
// successful refresh gets the error.
func (c *CampaignCache) Current(ctx context.Context) (*Snapshot, error) {
	if s := c.snap.Load(); s != nil && !c.stale.Load() && time.Since(s.FetchedAt) < c.ttl {
		return s, nil
	}
	return c.refresh(ctx)
}

// Invalidate marks the snapshot stale; the next read triggers a refresh.
func (c *CampaignCache) Invalidate() {
	c.stale.Store(true)
}

func (c *CampaignCache) refresh(ctx context.Context) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Another reader may have refreshed while we waited for the lock. A
	// recent failed attempt also short-circuits: no retries until the next
	// scheduled refresh.
	if s := c.snap.Load(); s != nil {
		if !c.stale.Load() && time.Since(s.FetchedAt) < c.ttl {
			return s, nil
		}
		if time.Since(c.lastAttempt) < c.ttl && c.lastAttempt.After(s.FetchedAt) {
			return s, nil
		}
	}

	c.lastAttempt = time.Now()
	campaigns, err := c.store.ListActive(ctx)
	if err != nil {
		if prev := c.snap.Load(); prev != nil {
			c.log.Error("refresh failed, serving previous snapshot",
				"error", err, "version", prev.Version, "age", time.Since(prev.FetchedAt))
			return prev, nil
		}
		return nil, err
	}

	c.version++
	s := &Snapshot{
		Version:   c.version,
		FetchedAt: time.Now(),
		Campaigns: campaigns,
	}
	c.snap.Store(s)
	c.stale.Store(false)
	c.log.Debug("snapshot refreshed", "version", s.Version, "campaigns", len(campaigns))
	return s, nil
}
