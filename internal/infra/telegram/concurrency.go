package telegram

import (
	"fmt"
	"sync"
	"time"
)

// chatLocks serializes outbound sends per chat so replies within one
// conversation keep their FIFO order while chats drain concurrently.
type chatLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newChatLocks() *chatLocks {
	return &chatLocks{locks: make(map[int64]*sync.Mutex)}
}

// lock acquires the per-chat lock and returns its release func.
func (c *chatLocks) lock(chatID int64) func() {
	c.mu.Lock()
	l, ok := c.locks[chatID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[chatID] = l
	}
	c.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// dedup drops repeated (chat, message) deliveries within a window, so
// re-sent updates do not double-trigger campaigns.
type dedup struct {
	mu     sync.Mutex
	window time.Duration
	seenAt map[string]time.Time
}

func newDedup(window time.Duration) *dedup {
	return &dedup{window: window, seenAt: make(map[string]time.Time)}
}

func (d *dedup) seen(chatID int64, msgID int) bool {
	key := fmt.Sprintf("%d:%d", chatID, msgID)
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if at, ok := d.seenAt[key]; ok && now.Sub(at) < d.window {
		return true
	}
	d.seenAt[key] = now

	// Lazy cleanup keeps the map bounded without a background goroutine.
	if len(d.seenAt) > 4096 {
		for k, at := range d.seenAt {
			if now.Sub(at) >= d.window {
				delete(d.seenAt, k)
			}
		}
	}
	return false
}
