package repo

import (
	"context"
	"time"

	"telegram-campaign-engine/internal/biz/domain"
)

// ChatKind is the transport-level category of a chat.
type ChatKind string

const (
	ChatKindDirect    ChatKind = "direct"
	ChatKindGroup     ChatKind = "group"
	ChatKindBroadcast ChatKind = "broadcast"
)

// RawEvent is an inbound message as seen by the transport, before
// classification. ChatID is the canonical signed chat key.
type RawEvent struct {
	ChatID       int64
	ChatKind     ChatKind
	ChatTitle    string
	ChatUsername string
	SenderID     int64
	MessageID    int
	Text         string
	ReplyToID    int
	Date         time.Time
	Outgoing     bool
}

// ChatDescriptor is a resolved chat entity.
type ChatDescriptor struct {
	ID       int64
	Kind     ChatKind
	Title    string
	Username string
}

// ChannelInfo is a broadcast channel's metadata. LinkedChatID is zero when
// the channel has no discussion group.
type ChannelInfo struct {
	ChannelID    int64
	Title        string
	LinkedChatID int64
}

// SendTarget addresses an outbound message. ReplyToID is the message the
// reply attaches to (the parent post for comments); zero for bare sends.
type SendTarget struct {
	ChatID    int64
	ReplyToID int
	Silent    bool
}

// Transport is the message-plane surface of the Telegram session. All calls
// may suspend on network I/O; writes to the wire are serialized per chat by
// the implementation.
type Transport interface {
	ResolveEntity(ctx context.Context, ref domain.ChatRef) (*ChatDescriptor, error)
	FetchPriorMessages(ctx context.Context, chatID int64, beforeID, count int) ([]domain.HistoryMessage, error)
	SendReply(ctx context.Context, target SendTarget, text string, mode domain.ReplyMode) (int, error)
	GetChannelFull(ctx context.Context, ref domain.ChatRef) (*ChannelInfo, error)
	Join(ctx context.Context, ref domain.ChatRef) error
}

// CampaignStore is the read side of the external campaign store.
type CampaignStore interface {
	ListActive(ctx context.Context) ([]domain.Campaign, error)
}

// ActivityJournal is the append-only activity journal.
type ActivityJournal interface {
	Append(ctx context.Context, rec *domain.ActivityRecord) error
}

// GenerateRequest carries one provider invocation.
type GenerateRequest struct {
	Prompt      string
	Model       string
	MaxTokens   int
	Temperature float32
}

// Provider generates reply text from a single-string prompt. Implementations
// must honor ctx cancellation.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}
