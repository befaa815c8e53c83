package domain

import (
	"strconv"
	"strings"
	"time"
)

// ChatRef identifies a chat in one of the forms campaign authors use:
// "@username", a bare username, or a numeric id. Exactly one of Username
// and ID is set after normalization.
type ChatRef struct {
	Username string
	ID       int64
}

// ParseChatRef normalizes a raw chat reference: bare numeric strings become
// ById references, anything else is treated as a username with a leading "@"
// stripped and lowercased.
func ParseChatRef(raw string) ChatRef {
	raw = strings.TrimSpace(raw)
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil && raw != "" {
		return ChatRef{ID: id}
	}
	return ChatRef{Username: strings.ToLower(strings.TrimPrefix(raw, "@"))}
}

// IsZero reports whether the reference is empty.
func (r ChatRef) IsZero() bool {
	return r.ID == 0 && r.Username == ""
}

// Key returns a stable string form usable as a cache key.
func (r ChatRef) Key() string {
	if r.ID != 0 {
		return strconv.FormatInt(r.ID, 10)
	}
	return "@" + r.Username
}

func (r ChatRef) String() string {
	return r.Key()
}

// Campaign is a rule set plus prompt template. Campaigns are owned by the
// administrative collaborator; the engine only reads the active set.
type Campaign struct {
	ID                int64
	Name              string
	Active            bool
	TargetChats       []ChatRef
	Keywords          []string
	Provider          string
	Model             string
	ContextDepth      int
	SystemInstruction string
	ExampleReplies    map[string]string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// EffectiveContextDepth clamps the configured depth to [0, max].
func (c *Campaign) EffectiveContextDepth(max int) int {
	d := c.ContextDepth
	if d < 0 {
		d = 0
	}
	if max > 0 && d > max {
		d = max
	}
	return d
}
