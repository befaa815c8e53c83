package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"telegram-campaign-engine/internal/biz/domain"
	"telegram-campaign-engine/internal/biz/repo"
)

func TestCacheServesWithinTTL(t *testing.T) {
	store := &fakeStore{campaigns: []domain.Campaign{{ID: 1}}}
	cache := NewCampaignCache(store, time.Minute, testLogger(t))
	ctx := context.Background()

	s1, err := cache.Current(ctx)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	s2, err := cache.Current(ctx)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}

	if s1 != s2 {
		t.Error("expected the same snapshot within ttl")
	}
	if store.callCount() != 1 {
		t.Errorf("store calls = %d, want 1", store.callCount())
	}
}

func TestCacheRefreshesAfterTTL(t *testing.T) {
	store := &fakeStore{campaigns: []domain.Campaign{{ID: 1}}}
	cache := NewCampaignCache(store, 10*time.Millisecond, testLogger(t))
	ctx := context.Background()

	s1, _ := cache.Current(ctx)
	time.Sleep(20 * time.Millisecond)
	store.set([]domain.Campaign{{ID: 1}, {ID: 2}}, nil)

	s2, err := cache.Current(ctx)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if s2.Version <= s1.Version {
		t.Errorf("version = %d, want > %d", s2.Version, s1.Version)
	}
	if len(s2.Campaigns) != 2 {
		t.Errorf("campaigns = %d, want 2", len(s2.Campaigns))
	}
}

func TestCacheInvalidateForcesRefresh(t *testing.T) {
	store := &fakeStore{campaigns: []domain.Campaign{{ID: 1}}}
	cache := NewCampaignCache(store, time.Minute, testLogger(t))
	ctx := context.Background()

	s1, _ := cache.Current(ctx)
	cache.Invalidate()

	s2, err := cache.Current(ctx)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if s2.Version != s1.Version+1 {
		t.Errorf("version = %d, want %d", s2.Version, s1.Version+1)
	}
	if store.callCount() != 2 {
		t.Errorf("store calls = %d, want 2", store.callCount())
	}
}

func TestCacheKeepsPreviousSnapshotOnError(t *testing.T) {
	store := &fakeStore{campaigns: []domain.Campaign{{ID: 1}}}
	cache := NewCampaignCache(store, 10*time.Millisecond, testLogger(t))
	ctx := context.Background()

	s1, _ := cache.Current(ctx)
	time.Sleep(20 * time.Millisecond)
	store.set(nil, errors.New("db gone"))

	s2, err := cache.Current(ctx)
	if err != nil {
		t.Fatalf("Current should not fail while a snapshot exists: %v", err)
	}
	if s2.Version != s1.Version {
		t.Errorf("version = %d, want previous %d", s2.Version, s1.Version)
	}
	if len(s2.Campaigns) != 1 {
		t.Errorf("campaigns = %d, want previous 1", len(s2.Campaigns))
	}
}

func TestCacheFirstRefreshErrorPropagates(t *testing.T) {
	store := &fakeStore{err: repo.ErrStoreUnavailable}
	cache := NewCampaignCache(store, time.Minute, testLogger(t))

	if _, err := cache.Current(context.Background()); !errors.Is(err, repo.ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}
}

func TestCacheThrottlesFailedRefreshes(t *testing.T) {
	store := &fakeStore{campaigns: []domain.Campaign{{ID: 1}}}
	cache := NewCampaignCache(store, 50*time.Millisecond, testLogger(t))
	ctx := context.Background()

	cache.Current(ctx)
	time.Sleep(60 * time.Millisecond)
	store.set(nil, errors.New("db gone"))

	// One failed attempt, then repeated reads must not hammer the store.
	cache.Current(ctx)
	calls := store.callCount()
	for i := 0; i < 10; i++ {
		cache.Current(ctx)
	}
	if got := store.callCount(); got != calls {
		t.Errorf("store calls = %d, want %d (no retry storm)", got, calls)
	}
}
