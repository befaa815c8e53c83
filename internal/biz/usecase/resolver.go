package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"telegram-campaign-engine/internal/biz/domain"
	"telegram-campaign-engine/internal/biz/repo"
)

// Resolver maintains the channel → discussion-group bindings and keeps the
// session a participant of every discovered group. Bindings are append-only
// within a cache generation and dropped only on restart.
type Resolver struct {
	tr  repo.Transport
	log *slog.Logger

	// activationText, when non-empty, is sent silently to a freshly joined
	// group so the transport starts delivering its updates.
	activationText string

	mu       sync.Mutex
	bindings map[string]int64 // ref key → linked group id; 0 = no linked group
	groups   map[int64]bool   // known linked group ids
	joined   map[int64]bool
}

// NewResolver creates a resolver over the given transport.
func NewResolver(tr repo.Transport, activationText string, log *slog.Logger) *Resolver {
	return &Resolver{
		tr:             tr,
		log:            log.With("component", "resolver"),
		activationText: activationText,
		bindings:       make(map[string]int64),
		groups:         make(map[int64]bool),
		joined:         make(map[int64]bool),
	}
}

// LinkedGroupOf returns the cached discussion-group id for a channel
// reference. ok is false when the channel is unknown or has no linked group.
func (r *Resolver) LinkedGroupOf(ref domain.ChatRef) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, known := r.bindings[ref.Key()]
	if !known || id == 0 {
		return 0, false
	}
	return id, true
}

// IsLinkedGroup reports whether chatID is a known discussion group of some
// bound channel. The classifier uses this to recognize comments.
func (r *Resolver) IsLinkedGroup(chatID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.groups[chatID]
}

// EnsureJoinedFor probes every channel-looking reference in the snapshot,
// caches its linked group, and joins it. Safe to call repeatedly; failures
// are per-reference and never abort the pass.
func (r *Resolver) EnsureJoinedFor(ctx context.Context, snap *Snapshot) {
	for i := range snap.Campaigns {
		for _, ref := range snap.Campaigns[i].TargetChats {
			if ref.IsZero() {
				continue
			}
			if err := r.ensureRef(ctx, ref); err != nil {
				r.log.Warn("binding probe failed", "ref", ref.Key(), "error", err)
			}
		}
	}
}

func (r *Resolver) ensureRef(ctx context.Context, ref domain.ChatRef) error {
	r.mu.Lock()
	gid, known := r.bindings[ref.Key()]
	alreadyJoined := known && gid != 0 && r.joined[gid]
	r.mu.Unlock()
	if known && (gid == 0 || alreadyJoined) {
		return nil
	}

	if !known {
		info, err := r.tr.GetChannelFull(ctx, ref)
		switch {
		case errors.Is(err, repo.ErrEntityNotFound), errors.Is(err, repo.ErrForbidden):
			// Not a channel, or inaccessible: negative binding so we do not
			// retry within this cache generation.
			r.storeBinding(ref, 0)
			return nil
		case err != nil:
			return err
		}
		gid = info.LinkedChatID
		r.storeBinding(ref, gid)
		if gid == 0 {
			r.log.Debug("channel has no discussion group", "ref", ref.Key())
			return nil
		}
		r.log.Info("discussion group bound", "ref", ref.Key(), "group_id", gid)
	}

	return r.joinGroup(ctx, gid)
}

func (r *Resolver) joinGroup(ctx context.Context, gid int64) error {
	r.mu.Lock()
	done := r.joined[gid]
	r.mu.Unlock()
	if done {
		return nil
	}

	if err := r.tr.Join(ctx, domain.ChatRef{ID: gid}); err != nil {
		return err
	}
	r.mu.Lock()
	r.joined[gid] = true
	r.mu.Unlock()

	if r.activationText != "" {
		// Wakes the update stream for the group; failure is non-fatal.
		target := repo.SendTarget{ChatID: gid, Silent: true}
		if _, err := r.tr.SendReply(ctx, target, r.activationText, domain.ReplyModeBare); err != nil {
			r.log.Debug("activation message failed", "group_id", gid, "error", err)
		}
	}
	return nil
}

func (r *Resolver) storeBinding(ref domain.ChatRef, gid int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[ref.Key()] = gid
	if gid != 0 {
		r.groups[gid] = true
	}
}
