package usecase

import (
	"testing"

	"telegram-campaign-engine/internal/biz/domain"
	"telegram-campaign-engine/internal/biz/repo"
)

func TestClassify(t *testing.T) {
	linked := &fakeLinked{groups: map[int64]bool{-1000000000555: true}}
	c := NewClassifier(linked)

	tests := []struct {
		name string
		raw  repo.RawEvent
		want domain.EventKind
	}{
		{
			"broadcast is channel post",
			repo.RawEvent{ChatID: -1000000000111, ChatKind: repo.ChatKindBroadcast},
			domain.KindChannelPost,
		},
		{
			"direct message",
			repo.RawEvent{ChatID: 777, ChatKind: repo.ChatKindDirect},
			domain.KindDirectMessage,
		},
		{
			"plain group message",
			repo.RawEvent{ChatID: -200, ChatKind: repo.ChatKindGroup},
			domain.KindGroupMessage,
		},
		{
			"reply in unlinked group stays group message",
			repo.RawEvent{ChatID: -200, ChatKind: repo.ChatKindGroup, ReplyToID: 5},
			domain.KindGroupMessage,
		},
		{
			"reply in linked group is discussion comment",
			repo.RawEvent{ChatID: -1000000000555, ChatKind: repo.ChatKindGroup, ReplyToID: 5},
			domain.KindDiscussionComment,
		},
		{
			"non-reply in linked group is group message",
			repo.RawEvent{ChatID: -1000000000555, ChatKind: repo.ChatKindGroup},
			domain.KindGroupMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.raw).Kind; got != tt.want {
				t.Errorf("Classify kind = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassifyLowercasesUsername(t *testing.T) {
	c := NewClassifier(&fakeLinked{})
	ev := c.Classify(repo.RawEvent{ChatKind: repo.ChatKindGroup, ChatUsername: "CryptoNews"})
	if ev.ChatUsername != "cryptonews" {
		t.Errorf("ChatUsername = %q, want cryptonews", ev.ChatUsername)
	}
}
