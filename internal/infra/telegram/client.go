package telegram

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/go-faster/errors"
	tdclient "github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"

	"telegram-campaign-engine/internal/biz/domain"
	"telegram-campaign-engine/internal/biz/repo"
)

// Options configures the Telegram transport.
type Options struct {
	APIID          int
	APIHash        string
	SessionStorage tdclient.SessionStorage
	PeersCacheFile string
	AppVersion     string
}

// Client holds the authenticated MTProto user session and implements the
// engine's transport surface. Writes to the wire are serialized per chat;
// everything else runs concurrently on the shared session.
type Client struct {
	client *tdclient.Client
	api    *tg.Client
	peers  *PeerCache
	log    *slog.Logger

	onEvent func(repo.RawEvent)
	dedup   *dedup
	sends   *chatLocks

	selfID int64
	cancel context.CancelFunc
	done   chan struct{}
}

// NewClient builds the transport. Subscribe must be called before Connect.
func NewClient(opts Options, log *slog.Logger) (*Client, error) {
	peers, err := OpenPeerCache(opts.PeersCacheFile)
	if err != nil {
		return nil, err
	}

	c := &Client{
		peers: peers,
		log:   log.With("component", "transport"),
		dedup: newDedup(10 * time.Minute),
		sends: newChatLocks(),
	}

	dispatcher := tg.NewUpdateDispatcher()
	dispatcher.OnNewMessage(c.onNewMessage)
	dispatcher.OnNewChannelMessage(c.onNewChannelMessage)

	c.client = tdclient.NewClient(opts.APIID, opts.APIHash, tdclient.Options{
		SessionStorage: opts.SessionStorage,
		UpdateHandler:  dispatcher,
		Device: tdclient.DeviceConfig{
			DeviceModel:   "campaign-engine",
			SystemVersion: "linux",
			AppVersion:    opts.AppVersion,
		},
	})
	c.api = c.client.API()
	return c, nil
}

// Subscribe registers the callback invoked for each inbound message.
// Delivery is per-chat FIFO as provided by the transport.
func (c *Client) Subscribe(fn func(repo.RawEvent)) {
	c.onEvent = fn
}

// Connect establishes the link and verifies authorization. The connection
// outlives ctx (it is torn down by Close); ctx only bounds the startup wait.
// An unauthorized session fails with ErrAuthRequired: interactive login is
// not part of the engine.
func (c *Client) Connect(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	ready := make(chan error, 1)

	go func() {
		defer close(c.done)
		err := c.client.Run(runCtx, func(ctx context.Context) error {
			status, err := c.client.Auth().Status(ctx)
			if err != nil {
				ready <- errors.Wrap(err, "auth status")
				return err
			}
			if !status.Authorized {
				ready <- repo.ErrAuthRequired
				return repo.ErrAuthRequired
			}

			self, err := c.client.Self(ctx)
			if err != nil {
				ready <- errors.Wrap(err, "self")
				return err
			}
			c.selfID = self.ID
			c.log.Info("session authorized", "user_id", self.ID, "username", self.Username)

			ready <- nil
			<-ctx.Done()
			return ctx.Err()
		})
		if err != nil && runCtx.Err() == nil {
			c.log.Error("telegram client stopped", "error", err)
		}
		select {
		case ready <- err:
		default:
		}
	}()

	select {
	case err := <-ready:
		if err != nil {
			cancel()
		}
		return err
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
}

// Close terminates the connection and flushes the peer cache.
func (c *Client) Close() {
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}
	_ = c.peers.Close()
}

// ResolveEntity resolves a chat reference into a normalized descriptor.
// Numeric references must already be known to the peer cache; usernames are
// resolved over the network once and cached.
func (c *Client) ResolveEntity(ctx context.Context, ref domain.ChatRef) (*repo.ChatDescriptor, error) {
	if ref.ID != 0 {
		info, ok := c.peers.Get(ref.ID)
		if !ok {
			return nil, errors.Wrapf(repo.ErrEntityNotFound, "unknown chat id %d", ref.ID)
		}
		return descriptor(info), nil
	}

	if info, ok := c.peers.GetByUsername(ref.Username); ok {
		return descriptor(info), nil
	}

	res, err := c.api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{
		Username: ref.Username,
	})
	if err != nil {
		return nil, mapRPCError(err)
	}
	c.warmResolved(res)

	info, ok := c.peers.GetByUsername(ref.Username)
	if !ok {
		return nil, errors.Wrapf(repo.ErrEntityNotFound, "@%s", ref.Username)
	}
	return descriptor(info), nil
}

// GetChannelFull returns a broadcast channel's metadata including its
// optional linked discussion group (zero when absent).
func (c *Client) GetChannelFull(ctx context.Context, ref domain.ChatRef) (*repo.ChannelInfo, error) {
	info, err := c.channelInfo(ctx, ref)
	if err != nil {
		return nil, err
	}

	full, err := c.api.ChannelsGetFullChannel(ctx, &tg.InputChannel{
		ChannelID:  info.RawID,
		AccessHash: info.AccessHash,
	})
	if err != nil {
		return nil, mapRPCError(err)
	}
	// The response carries the linked chat entity with its access hash.
	c.warmChats(full.Chats)

	cf, ok := full.FullChat.(*tg.ChannelFull)
	if !ok {
		return nil, errors.Wrap(repo.ErrEntityNotFound, "not a channel")
	}

	out := &repo.ChannelInfo{
		ChannelID: info.CanonicalID(),
		Title:     info.Title,
	}
	if linked, ok := cf.GetLinkedChatID(); ok {
		out.LinkedChatID = -(channelMark + linked)
	}
	return out, nil
}

// Join makes the session a participant of ref. Already being a participant
// counts as success.
func (c *Client) Join(ctx context.Context, ref domain.ChatRef) error {
	info, err := c.channelInfo(ctx, ref)
	if err != nil {
		return err
	}

	_, err = c.api.ChannelsJoinChannel(ctx, &tg.InputChannel{
		ChannelID:  info.RawID,
		AccessHash: info.AccessHash,
	})
	if err != nil {
		if tgerr.Is(err, "USER_ALREADY_PARTICIPANT") {
			return nil
		}
		return mapRPCError(err)
	}
	return nil
}

// FetchPriorMessages returns up to count messages strictly older than
// beforeID, newest first.
func (c *Client) FetchPriorMessages(ctx context.Context, chatID int64, beforeID, count int) ([]domain.HistoryMessage, error) {
	info, ok := c.peers.Get(chatID)
	if !ok {
		return nil, errors.Wrapf(repo.ErrEntityNotFound, "unknown chat id %d", chatID)
	}

	res, err := c.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer:     info.InputPeer(),
		OffsetID: beforeID,
		Limit:    count,
	})
	if err != nil {
		return nil, mapRPCError(err)
	}

	var raw []tg.MessageClass
	switch m := res.(type) {
	case *tg.MessagesMessages:
		raw = m.Messages
	case *tg.MessagesMessagesSlice:
		raw = m.Messages
	case *tg.MessagesChannelMessages:
		raw = m.Messages
	default:
		return nil, errors.Errorf("unexpected history response %T", res)
	}

	history := make([]domain.HistoryMessage, 0, len(raw))
	for _, mc := range raw {
		msg, ok := mc.(*tg.Message)
		if !ok {
			continue
		}
		history = append(history, domain.HistoryMessage{
			ID:       msg.ID,
			SenderID: senderID(msg),
			Text:     msg.Message,
			Date:     time.Unix(int64(msg.Date), 0),
		})
	}
	return history, nil
}

// SendReply posts a message. Rate limits are surfaced to the caller with
// their wait hint; transient transport failures are retried at most twice
// with capped backoff. Sends are serialized per chat to preserve FIFO
// ordering within a conversation.
func (c *Client) SendReply(ctx context.Context, target repo.SendTarget, text string, mode domain.ReplyMode) (int, error) {
	info, ok := c.peers.Get(target.ChatID)
	if !ok {
		return 0, errors.Wrapf(repo.ErrEntityNotFound, "unknown chat id %d", target.ChatID)
	}

	unlock := c.sends.lock(target.ChatID)
	defer unlock()

	req := &tg.MessagesSendMessageRequest{
		Peer:     info.InputPeer(),
		Message:  text,
		RandomID: rand.Int63(),
		Silent:   target.Silent,
	}
	if mode != domain.ReplyModeBare && target.ReplyToID != 0 {
		req.ReplyTo = &tg.InputReplyToMessage{ReplyToMsgID: target.ReplyToID}
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			if backoff > 5*time.Second {
				backoff = 5 * time.Second
			}
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		}

		upd, err := c.api.MessagesSendMessage(ctx, req)
		if err == nil {
			return sentMessageID(upd), nil
		}

		mapped := mapRPCError(err)
		if _, flood := repo.AsFloodWait(mapped); flood {
			return 0, mapped
		}
		if errors.Is(mapped, repo.ErrForbidden) || errors.Is(mapped, repo.ErrEntityNotFound) {
			return 0, mapped
		}
		lastErr = mapped
		c.log.Warn("send failed, retrying", "chat_id", target.ChatID, "attempt", attempt, "error", err)
	}
	return 0, lastErr
}

// channelInfo resolves ref into a channel-kind peer entry.
func (c *Client) channelInfo(ctx context.Context, ref domain.ChatRef) (peerInfo, error) {
	var (
		info peerInfo
		ok   bool
	)
	if ref.ID != 0 {
		info, ok = c.peers.Get(ref.ID)
	} else {
		info, ok = c.peers.GetByUsername(ref.Username)
	}
	if !ok {
		if _, err := c.ResolveEntity(ctx, ref); err != nil {
			return peerInfo{}, err
		}
		if ref.ID != 0 {
			info, ok = c.peers.Get(ref.ID)
		} else {
			info, ok = c.peers.GetByUsername(ref.Username)
		}
		if !ok {
			return peerInfo{}, errors.Wrapf(repo.ErrEntityNotFound, "%s", ref.Key())
		}
	}
	if info.Kind != kindChannel {
		return peerInfo{}, errors.Wrapf(repo.ErrEntityNotFound, "%s is not a channel", ref.Key())
	}
	return info, nil
}

func (c *Client) onNewMessage(ctx context.Context, e tg.Entities, u *tg.UpdateNewMessage) error {
	c.warmEntities(e)
	c.deliver(e, u.Message)
	return nil
}

func (c *Client) onNewChannelMessage(ctx context.Context, e tg.Entities, u *tg.UpdateNewChannelMessage) error {
	c.warmEntities(e)
	c.deliver(e, u.Message)
	return nil
}

func (c *Client) deliver(e tg.Entities, mc tg.MessageClass) {
	msg, ok := mc.(*tg.Message)
	if !ok {
		return
	}
	if c.onEvent == nil {
		return
	}

	raw, ok := c.rawEvent(e, msg)
	if !ok {
		return
	}
	if raw.Outgoing {
		return
	}
	if c.dedup.seen(raw.ChatID, raw.MessageID) {
		return
	}
	c.onEvent(raw)
}

// rawEvent maps a tg message plus its entities into the transport event.
func (c *Client) rawEvent(e tg.Entities, msg *tg.Message) (repo.RawEvent, bool) {
	raw := repo.RawEvent{
		MessageID: msg.ID,
		Text:      msg.Message,
		Date:      time.Unix(int64(msg.Date), 0),
		Outgoing:  msg.Out,
	}

	switch p := msg.PeerID.(type) {
	case *tg.PeerUser:
		raw.ChatKind = repo.ChatKindDirect
		raw.ChatID = p.UserID
		if user, ok := e.Users[p.UserID]; ok {
			raw.ChatTitle = strings.TrimSpace(user.FirstName + " " + user.LastName)
			raw.ChatUsername = user.Username
		}
	case *tg.PeerChat:
		raw.ChatKind = repo.ChatKindGroup
		raw.ChatID = -p.ChatID
		if chat, ok := e.Chats[p.ChatID]; ok {
			raw.ChatTitle = chat.Title
		}
	case *tg.PeerChannel:
		raw.ChatID = -(channelMark + p.ChannelID)
		raw.ChatKind = repo.ChatKindGroup
		if ch, ok := e.Channels[p.ChannelID]; ok {
			if ch.Broadcast {
				raw.ChatKind = repo.ChatKindBroadcast
			}
			raw.ChatTitle = ch.Title
			raw.ChatUsername = ch.Username
		}
	default:
		return repo.RawEvent{}, false
	}

	if from, ok := msg.FromID.(*tg.PeerUser); ok {
		raw.SenderID = from.UserID
	} else if raw.ChatKind == repo.ChatKindDirect {
		raw.SenderID = raw.ChatID
	}
	if raw.SenderID == c.selfID && c.selfID != 0 {
		raw.Outgoing = true
	}

	if h, ok := msg.GetReplyTo(); ok {
		if rh, ok := h.(*tg.MessageReplyHeader); ok {
			if id, ok := rh.GetReplyToMsgID(); ok {
				raw.ReplyToID = id
			}
		}
	}
	return raw, true
}

// warmEntities feeds the peer cache from update entities so later sends and
// history fetches need no resolution round trip.
func (c *Client) warmEntities(e tg.Entities) {
	for _, user := range e.Users {
		hash, _ := user.GetAccessHash()
		c.peers.Put(peerInfo{
			Kind:       kindUser,
			RawID:      user.ID,
			AccessHash: hash,
			Username:   user.Username,
			Title:      strings.TrimSpace(user.FirstName + " " + user.LastName),
		})
	}
	for _, chat := range e.Chats {
		c.peers.Put(peerInfo{Kind: kindChat, RawID: chat.ID, Title: chat.Title})
	}
	for _, ch := range e.Channels {
		hash, _ := ch.GetAccessHash()
		c.peers.Put(peerInfo{
			Kind:       kindChannel,
			RawID:      ch.ID,
			AccessHash: hash,
			Username:   ch.Username,
			Title:      ch.Title,
			Broadcast:  ch.Broadcast,
		})
	}
}

func (c *Client) warmResolved(res *tg.ContactsResolvedPeer) {
	for _, uc := range res.Users {
		if user, ok := uc.(*tg.User); ok {
			hash, _ := user.GetAccessHash()
			c.peers.Put(peerInfo{
				Kind:       kindUser,
				RawID:      user.ID,
				AccessHash: hash,
				Username:   user.Username,
				Title:      strings.TrimSpace(user.FirstName + " " + user.LastName),
			})
		}
	}
	c.warmChats(res.Chats)
}

func (c *Client) warmChats(chats []tg.ChatClass) {
	for _, cc := range chats {
		switch chat := cc.(type) {
		case *tg.Chat:
			c.peers.Put(peerInfo{Kind: kindChat, RawID: chat.ID, Title: chat.Title})
		case *tg.Channel:
			hash, _ := chat.GetAccessHash()
			c.peers.Put(peerInfo{
				Kind:       kindChannel,
				RawID:      chat.ID,
				AccessHash: hash,
				Username:   chat.Username,
				Title:      chat.Title,
				Broadcast:  chat.Broadcast,
			})
		}
	}
}

func descriptor(info peerInfo) *repo.ChatDescriptor {
	kind := repo.ChatKindDirect
	switch info.Kind {
	case kindChat:
		kind = repo.ChatKindGroup
	case kindChannel:
		kind = repo.ChatKindGroup
		if info.Broadcast {
			kind = repo.ChatKindBroadcast
		}
	}
	return &repo.ChatDescriptor{
		ID:       info.CanonicalID(),
		Kind:     kind,
		Title:    info.Title,
		Username: strings.ToLower(info.Username),
	}
}

func senderID(msg *tg.Message) int64 {
	if from, ok := msg.FromID.(*tg.PeerUser); ok {
		return from.UserID
	}
	return 0
}

// sentMessageID extracts the new message id from a send result; zero when
// the update shape does not carry one.
func sentMessageID(u tg.UpdatesClass) int {
	switch v := u.(type) {
	case *tg.UpdateShortSentMessage:
		return v.ID
	case *tg.Updates:
		for _, upd := range v.Updates {
			if m, ok := upd.(*tg.UpdateMessageID); ok {
				return m.ID
			}
		}
	}
	return 0
}

// mapRPCError translates Telegram RPC errors into the engine's error kinds.
func mapRPCError(err error) error {
	if wait, ok := tgerr.AsFloodWait(err); ok {
		return &repo.FloodWaitError{Wait: wait}
	}
	if tgerr.Is(err, "CHAT_WRITE_FORBIDDEN", "CHANNEL_PRIVATE", "USER_BANNED_IN_CHANNEL", "CHAT_ADMIN_REQUIRED", "CHAT_RESTRICTED") {
		return errors.Wrap(repo.ErrForbidden, err.Error())
	}
	if tgerr.Is(err, "USERNAME_NOT_OCCUPIED", "USERNAME_INVALID", "PEER_ID_INVALID", "CHANNEL_INVALID", "MSG_ID_INVALID") {
		return errors.Wrap(repo.ErrEntityNotFound, err.Error())
	}
	return err
}
