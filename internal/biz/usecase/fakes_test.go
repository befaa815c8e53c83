package usecase

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"telegram-campaign-engine/internal/biz/domain"
	"telegram-campaign-engine/internal/biz/repo"
)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

// fakeLinked is a static binding view.
type fakeLinked struct {
	byRef  map[string]int64
	groups map[int64]bool
}

func (f *fakeLinked) LinkedGroupOf(ref domain.ChatRef) (int64, bool) {
	id, ok := f.byRef[ref.Key()]
	return id, ok
}

func (f *fakeLinked) IsLinkedGroup(chatID int64) bool {
	return f.groups[chatID]
}

type sentMessage struct {
	Target repo.SendTarget
	Text   string
	Mode   domain.ReplyMode
}

// fakeTransport records calls and replays scripted responses.
type fakeTransport struct {
	mu sync.Mutex

	history    []domain.HistoryMessage
	historyErr error
	sendErrs   []error // consumed one per SendReply call
	sent       []sentMessage

	channels map[string]*repo.ChannelInfo
	chanErr  error
	joinErr  error
	joins    []int64
}

func (f *fakeTransport) ResolveEntity(ctx context.Context, ref domain.ChatRef) (*repo.ChatDescriptor, error) {
	return nil, repo.ErrEntityNotFound
}

func (f *fakeTransport) FetchPriorMessages(ctx context.Context, chatID int64, beforeID, count int) ([]domain.HistoryMessage, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	if count < len(f.history) {
		return f.history[:count], nil
	}
	return f.history, nil
}

func (f *fakeTransport) SendReply(ctx context.Context, target repo.SendTarget, text string, mode domain.ReplyMode) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sendErrs) > 0 {
		err := f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	f.sent = append(f.sent, sentMessage{Target: target, Text: text, Mode: mode})
	return 1000 + len(f.sent), nil
}

func (f *fakeTransport) GetChannelFull(ctx context.Context, ref domain.ChatRef) (*repo.ChannelInfo, error) {
	if f.chanErr != nil {
		return nil, f.chanErr
	}
	if info, ok := f.channels[ref.Key()]; ok {
		return info, nil
	}
	return nil, repo.ErrEntityNotFound
}

func (f *fakeTransport) Join(ctx context.Context, ref domain.ChatRef) error {
	if f.joinErr != nil {
		return f.joinErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joins = append(f.joins, ref.ID)
	return nil
}

func (f *fakeTransport) sentMessages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

// fakeStore serves scripted campaign lists and counts calls.
type fakeStore struct {
	mu        sync.Mutex
	campaigns []domain.Campaign
	err       error
	calls     int
}

func (f *fakeStore) ListActive(ctx context.Context) ([]domain.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.campaigns, nil
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeStore) set(campaigns []domain.Campaign, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.campaigns = campaigns
	f.err = err
}

// fakeJournal records appended entries.
type fakeJournal struct {
	mu      sync.Mutex
	records []*domain.ActivityRecord
	err     error
}

func (f *fakeJournal) Append(ctx context.Context, rec *domain.ActivityRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeJournal) all() []*domain.ActivityRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*domain.ActivityRecord(nil), f.records...)
}

// fakeProvider replays one scripted completion or error.
type fakeProvider struct {
	name  string
	text  string
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Generate(ctx context.Context, req repo.GenerateRequest) (string, error) {
	f.calls++
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

// fakeRegistry returns its providers as the chain regardless of selectors.
type fakeRegistry struct {
	providers []repo.Provider
}

func (f *fakeRegistry) Chain(preferred, fallback string) []repo.Provider {
	return f.providers
}
