package domain

import "time"

// EventKind classifies an incoming message by its origin.
type EventKind string

const (
	KindChannelPost       EventKind = "channel_post"
	KindDiscussionComment EventKind = "discussion_comment"
	KindGroupMessage      EventKind = "group_message"
	KindDirectMessage     EventKind = "direct_message"
)

// ReplyMode is how a generated reply is posted back.
type ReplyMode string

const (
	ReplyModePlain   ReplyMode = "plain_reply"
	ReplyModeComment ReplyMode = "comment_on_post"
	ReplyModeBare    ReplyMode = "bare_send"
)

// ClassifiedEvent is an incoming message after classification. ChatID is the
// canonical signed chat key; ChatUsername is lowercased for matching.
// Discussion comments always carry a non-zero ReplyToID.
type ClassifiedEvent struct {
	Kind         EventKind
	ChatID       int64
	ChatTitle    string
	ChatUsername string
	SenderID     int64
	MessageID    int
	Text         string
	ReplyToID    int
	Date         time.Time
}

// HistoryMessage is one prior message fetched for prompt context.
type HistoryMessage struct {
	ID       int
	SenderID int64
	Text     string
	Date     time.Time
}
