package telegram

import (
	"path/filepath"
	"testing"
)

func TestPeerInfoCanonicalID(t *testing.T) {
	tests := []struct {
		name string
		info peerInfo
		want int64
	}{
		{"user keeps raw id", peerInfo{Kind: kindUser, RawID: 777}, 777},
		{"basic chat negated", peerInfo{Kind: kindChat, RawID: 200}, -200},
		{"channel marked", peerInfo{Kind: kindChannel, RawID: 1234567890}, -1001234567890},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.CanonicalID(); got != tt.want {
				t.Errorf("CanonicalID() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPeerCachePutGet(t *testing.T) {
	cache, err := OpenPeerCache(filepath.Join(t.TempDir(), "peers.db"))
	if err != nil {
		t.Fatalf("OpenPeerCache: %v", err)
	}
	defer cache.Close()

	cache.Put(peerInfo{Kind: kindChannel, RawID: 111, AccessHash: 42, Username: "News", Title: "News Channel"})

	info, ok := cache.Get(-(channelMark + 111))
	if !ok {
		t.Fatal("Get by canonical id missed")
	}
	if info.AccessHash != 42 || info.Title != "News Channel" {
		t.Errorf("info = %+v", info)
	}

	byName, ok := cache.GetByUsername("news")
	if !ok || byName.RawID != 111 {
		t.Fatalf("GetByUsername = (%+v, %v), want case-insensitive hit", byName, ok)
	}
}

func TestPeerCacheMergesKnownFields(t *testing.T) {
	cache, err := OpenPeerCache(filepath.Join(t.TempDir(), "peers.db"))
	if err != nil {
		t.Fatalf("OpenPeerCache: %v", err)
	}
	defer cache.Close()

	cache.Put(peerInfo{Kind: kindChannel, RawID: 111, AccessHash: 42, Username: "news"})
	// An update-borne entity may arrive without hash or username.
	cache.Put(peerInfo{Kind: kindChannel, RawID: 111, Title: "News"})

	info, ok := cache.Get(-(channelMark + 111))
	if !ok {
		t.Fatal("Get missed")
	}
	if info.AccessHash != 42 || info.Username != "news" || info.Title != "News" {
		t.Errorf("info = %+v, want merged fields", info)
	}
}

func TestPeerCacheSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peers.db")

	cache, err := OpenPeerCache(path)
	if err != nil {
		t.Fatalf("OpenPeerCache: %v", err)
	}
	cache.Put(peerInfo{Kind: kindUser, RawID: 777, AccessHash: 9, Username: "someone"})
	cache.Close()

	reopened, err := OpenPeerCache(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	info, ok := reopened.Get(777)
	if !ok || info.AccessHash != 9 {
		t.Fatalf("Get after reopen = (%+v, %v), want persisted entity", info, ok)
	}
}
