package usecase

import (
	"context"
	"testing"

	"telegram-campaign-engine/internal/biz/domain"
	"telegram-campaign-engine/internal/biz/repo"
)

func TestResolverBindsAndJoins(t *testing.T) {
	tr := &fakeTransport{
		channels: map[string]*repo.ChannelInfo{
			"@news": {ChannelID: -1000000000111, Title: "News", LinkedChatID: -1000000000555},
		},
	}
	r := NewResolver(tr, "", testLogger(t))
	snap := snapshotOf(domain.Campaign{ID: 1, TargetChats: []domain.ChatRef{{Username: "news"}}})

	r.EnsureJoinedFor(context.Background(), snap)

	gid, ok := r.LinkedGroupOf(domain.ChatRef{Username: "news"})
	if !ok || gid != -1000000000555 {
		t.Fatalf("LinkedGroupOf = (%d, %v), want (-1000000000555, true)", gid, ok)
	}
	if !r.IsLinkedGroup(-1000000000555) {
		t.Error("IsLinkedGroup should report the bound group")
	}
	if len(tr.joins) != 1 || tr.joins[0] != -1000000000555 {
		t.Fatalf("joins = %v, want one join of the linked group", tr.joins)
	}
}

func TestResolverJoinIsIdempotent(t *testing.T) {
	tr := &fakeTransport{
		channels: map[string]*repo.ChannelInfo{
			"@news": {ChannelID: -1000000000111, LinkedChatID: -1000000000555},
		},
	}
	r := NewResolver(tr, "", testLogger(t))
	snap := snapshotOf(domain.Campaign{ID: 1, TargetChats: []domain.ChatRef{{Username: "news"}}})

	r.EnsureJoinedFor(context.Background(), snap)
	r.EnsureJoinedFor(context.Background(), snap)

	if len(tr.joins) != 1 {
		t.Fatalf("joins = %v, want exactly one", tr.joins)
	}
}

func TestResolverNegativeBinding(t *testing.T) {
	// A plain group target is not a channel; the probe fails once and the
	// result is cached so the next pass makes no further calls.
	tr := &fakeTransport{}
	r := NewResolver(tr, "", testLogger(t))
	snap := snapshotOf(domain.Campaign{ID: 1, TargetChats: []domain.ChatRef{{ID: -300}}})

	r.EnsureJoinedFor(context.Background(), snap)

	if _, ok := r.LinkedGroupOf(domain.ChatRef{ID: -300}); ok {
		t.Error("non-channel ref should have no linked group")
	}
	if len(tr.joins) != 0 {
		t.Errorf("joins = %v, want none", tr.joins)
	}
}

func TestResolverChannelWithoutDiscussion(t *testing.T) {
	tr := &fakeTransport{
		channels: map[string]*repo.ChannelInfo{
			"@silent": {ChannelID: -1000000000222, LinkedChatID: 0},
		},
	}
	r := NewResolver(tr, "", testLogger(t))
	snap := snapshotOf(domain.Campaign{ID: 1, TargetChats: []domain.ChatRef{{Username: "silent"}}})

	r.EnsureJoinedFor(context.Background(), snap)

	if _, ok := r.LinkedGroupOf(domain.ChatRef{Username: "silent"}); ok {
		t.Error("channel without discussion group should report no binding")
	}
	if len(tr.joins) != 0 {
		t.Errorf("joins = %v, want none", tr.joins)
	}
}

func TestResolverActivationMessage(t *testing.T) {
	tr := &fakeTransport{
		channels: map[string]*repo.ChannelInfo{
			"@news": {ChannelID: -1000000000111, LinkedChatID: -1000000000555},
		},
	}
	r := NewResolver(tr, "hi", testLogger(t))
	snap := snapshotOf(domain.Campaign{ID: 1, TargetChats: []domain.ChatRef{{Username: "news"}}})

	r.EnsureJoinedFor(context.Background(), snap)

	sent := tr.sentMessages()
	if len(sent) != 1 {
		t.Fatalf("sent = %d messages, want 1 activation", len(sent))
	}
	if sent[0].Mode != domain.ReplyModeBare || !sent[0].Target.Silent {
		t.Errorf("activation = %+v, want silent bare send", sent[0])
	}
	if sent[0].Target.ChatID != -1000000000555 {
		t.Errorf("activation chat = %d, want the linked group", sent[0].Target.ChatID)
	}
}
