package usecase

import (
	"strings"

	"telegram-campaign-engine/internal/biz/domain"
	"telegram-campaign-engine/internal/biz/repo"
)

// LinkedGroups is the subset of the resolver the classifier and matcher
// consult.
type LinkedGroups interface {
	LinkedGroupOf(ref domain.ChatRef) (int64, bool)
	IsLinkedGroup(chatID int64) bool
}

// Classifier turns raw transport events into classified events. A group
// message is a discussion comment when the group is the linked group of a
// bound channel and the message replies to something (the forwarded post).
type Classifier struct {
	linked LinkedGroups
}

// NewClassifier creates a classifier over the given binding view.
func NewClassifier(linked LinkedGroups) *Classifier {
	return &Classifier{linked: linked}
}

// Classify derives the event kind and canonical fields from a raw event.
func (c *Classifier) Classify(raw repo.RawEvent) domain.ClassifiedEvent {
	kind := domain.KindGroupMessage
	switch raw.ChatKind {
	case repo.ChatKindBroadcast:
		kind = domain.KindChannelPost
	case repo.ChatKindDirect:
		kind = domain.KindDirectMessage
	case repo.ChatKindGroup:
		if raw.ReplyToID != 0 && c.linked.IsLinkedGroup(raw.ChatID) {
			kind = domain.KindDiscussionComment
		}
	}

	return domain.ClassifiedEvent{
		Kind:         kind,
		ChatID:       raw.ChatID,
		ChatTitle:    raw.ChatTitle,
		ChatUsername: strings.ToLower(raw.ChatUsername),
		SenderID:     raw.SenderID,
		MessageID:    raw.MessageID,
		Text:         raw.Text,
		ReplyToID:    raw.ReplyToID,
		Date:         raw.Date,
	}
}
