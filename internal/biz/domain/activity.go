package domain

import "time"

// ActivityStatus is the journaled outcome of one (event, campaign) pair.
type ActivityStatus string

const (
	StatusSent    ActivityStatus = "sent"
	StatusFailed  ActivityStatus = "failed"
	StatusPending ActivityStatus = "pending"
)

// MaxJournalText caps the text fields persisted in the journal.
const MaxJournalText = 1000

// ActivityRecord is the append-only journal entry for one processed
// (event, campaign) pair. Records are immutable after creation.
type ActivityRecord struct {
	ID              string
	CampaignID      int64
	ChatID          int64
	ChatTitle       string
	MessageID       int
	MatchedKeyword  string
	OriginalMessage string
	AgentResponse   string
	Status          ActivityStatus
	Error           string
	DurationMS      int64
	CreatedAt       time.Time
}

// Truncate limits s to max runes, appending an ellipsis when cut.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
