package telegram

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	"github.com/gotd/td/tg"
	"go.etcd.io/bbolt"
)

// channelMark shifts bare channel ids into the canonical -100xxxxxxxxxx
// form used as chat keys throughout the engine.
const channelMark = 1000000000000

const (
	kindUser byte = iota + 1
	kindChat
	kindChannel
)

var peersBucket = []byte("peers")

// peerInfo is one cached entity: enough to build an InputPeer and to match
// usernames without a network round trip.
type peerInfo struct {
	Kind       byte   `json:"kind"`
	RawID      int64  `json:"raw_id"`
	AccessHash int64  `json:"access_hash,omitempty"`
	Username   string `json:"username,omitempty"`
	Title      string `json:"title,omitempty"`
	Broadcast  bool   `json:"broadcast,omitempty"`
}

// CanonicalID returns the signed chat key for this entity.
func (p peerInfo) CanonicalID() int64 {
	switch p.Kind {
	case kindChat:
		return -p.RawID
	case kindChannel:
		return -(channelMark + p.RawID)
	default:
		return p.RawID
	}
}

// InputPeer builds the tg input peer for this entity.
func (p peerInfo) InputPeer() tg.InputPeerClass {
	switch p.Kind {
	case kindChat:
		return &tg.InputPeerChat{ChatID: p.RawID}
	case kindChannel:
		return &tg.InputPeerChannel{ChannelID: p.RawID, AccessHash: p.AccessHash}
	default:
		return &tg.InputPeerUser{UserID: p.RawID, AccessHash: p.AccessHash}
	}
}

// PeerCache keeps resolved entities (id, access hash, username) in memory,
// mirrored to a bbolt file so restarts can address known chats without
// re-resolving them.
type PeerCache struct {
	db *bbolt.DB

	mu         sync.RWMutex
	byID       map[int64]peerInfo // keyed by canonical id
	byUsername map[string]int64
}

// OpenPeerCache opens (creating if necessary) the peer cache file.
func OpenPeerCache(path string) (*PeerCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "create peers cache dir")
	}
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, errors.Wrap(err, "open peers cache")
	}

	c := &PeerCache{
		db:         db,
		byID:       make(map[int64]peerInfo),
		byUsername: make(map[string]int64),
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(peersBucket)
		if err != nil {
			return err
		}
		return b.ForEach(func(_, v []byte) error {
			var info peerInfo
			if err := json.Unmarshal(v, &info); err != nil {
				return nil // skip corrupt entries
			}
			c.remember(info)
			return nil
		})
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "load peers cache")
	}
	return c, nil
}

// Close closes the underlying file.
func (c *PeerCache) Close() error {
	return c.db.Close()
}

// Put stores an entity in memory and on disk. Disk errors are swallowed:
// the in-memory copy keeps the session working.
func (c *PeerCache) Put(info peerInfo) {
	c.mu.Lock()
	// Entities arriving via updates may lack fields we already know.
	if prev, exists := c.byID[info.CanonicalID()]; exists {
		if info.AccessHash == 0 {
			info.AccessHash = prev.AccessHash
		}
		if info.Username == "" {
			info.Username = prev.Username
		}
		if info.Title == "" {
			info.Title = prev.Title
		}
	}
	c.remember(info)
	c.mu.Unlock()

	raw, err := json.Marshal(info)
	if err != nil {
		return
	}
	_ = c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(peersBucket).Put(
			[]byte(strconv.FormatInt(info.CanonicalID(), 10)), raw)
	})
}

// Get returns the cached entity for a canonical chat key.
func (c *PeerCache) Get(id int64) (peerInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.byID[id]
	return info, ok
}

// GetByUsername returns the cached entity for a lowercase username.
func (c *PeerCache) GetByUsername(username string) (peerInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.byUsername[strings.ToLower(username)]
	if !ok {
		return peerInfo{}, false
	}
	info, ok := c.byID[id]
	return info, ok
}

// remember must be called with mu held.
func (c *PeerCache) remember(info peerInfo) {
	c.byID[info.CanonicalID()] = info
	if info.Username != "" {
		c.byUsername[strings.ToLower(info.Username)] = info.CanonicalID()
	}
}
