package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"telegram-campaign-engine/internal/biz/repo"
	"telegram-campaign-engine/internal/biz/usecase"
)

// Transport is the full client surface the engine drives: the RPC operations
// of the pipeline plus the update-stream lifecycle.
type Transport interface {
	repo.Transport
	Subscribe(fn func(repo.RawEvent))
	Connect(ctx context.Context) error
	Close()
}

// Metrics receives dispatcher-level counters. The pipeline carries its own.
type Metrics interface {
	EventClassified(kind string)
	CampaignMatched(kind string)
	CacheRefreshed()
}

type nopMetrics struct{}

func (nopMetrics) EventClassified(string) {}
func (nopMetrics) CampaignMatched(string) {}
func (nopMetrics) CacheRefreshed()        {}

// Config carries the dispatcher tunables.
type Config struct {
	// RefreshInterval is the period of the campaign refresh and join loop.
	RefreshInterval time.Duration
	// ShutdownDrain bounds how long in-flight replies may run after the
	// stop signal before they are cancelled.
	ShutdownDrain time.Duration
}

// Engine ties the transport's update stream to the classification, matching,
// and response pipeline. One engine instance owns the whole lifecycle.
type Engine struct {
	tr         Transport
	cache      *usecase.CampaignCache
	resolver   *usecase.Resolver
	classifier *usecase.Classifier
	matcher    *usecase.Matcher
	pipeline   *usecase.Pipeline
	metrics    Metrics
	cfg        Config
	log        *slog.Logger

	// baseCtx outlives the run context so in-flight replies can finish
	// during the drain window; baseCancel ends the window.
	baseCtx    context.Context
	baseCancel context.CancelFunc

	stopped atomic.Bool
	wg      sync.WaitGroup
}

// New creates an engine. metrics may be nil.
func New(
	tr Transport,
	cache *usecase.CampaignCache,
	resolver *usecase.Resolver,
	classifier *usecase.Classifier,
	matcher *usecase.Matcher,
	pipeline *usecase.Pipeline,
	metrics Metrics,
	cfg Config,
	log *slog.Logger,
) *Engine {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 60 * time.Second
	}
	if cfg.ShutdownDrain <= 0 {
		cfg.ShutdownDrain = 10 * time.Second
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	baseCtx, baseCancel := context.WithCancel(context.Background())
	return &Engine{
		tr:         tr,
		cache:      cache,
		resolver:   resolver,
		classifier: classifier,
		matcher:    matcher,
		pipeline:   pipeline,
		metrics:    metrics,
		cfg:        cfg,
		log:        log.With("component", "engine"),
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
	}
}

// Run connects the transport and processes updates until ctx is cancelled,
// then drains in-flight replies and tears the transport down. A missing or
// expired session is fatal here; events never are.
func (e *Engine) Run(ctx context.Context) error {
	e.tr.Subscribe(e.handleRaw)

	if err := e.tr.Connect(ctx); err != nil {
		return err
	}

	// Warm the campaign snapshot and the discussion-group bindings before
	// the first events arrive. A store failure at startup is fatal; later
	// refresh failures just keep serving the previous snapshot.
	snap, err := e.cache.Current(ctx)
	if err != nil {
		e.tr.Close()
		return err
	}
	e.resolver.EnsureJoinedFor(ctx, snap)
	e.log.Info("engine running", "campaigns", len(snap.Campaigns))

	ticker := time.NewTicker(e.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.metrics.CacheRefreshed()
			snap, err := e.cache.Current(ctx)
			if err != nil {
				e.log.Error("campaign refresh failed", "error", err)
				continue
			}
			e.resolver.EnsureJoinedFor(ctx, snap)
		case <-ctx.Done():
			e.shutdown()
			return nil
		}
	}
}

// shutdown stops accepting events, waits for in-flight replies up to the
// drain window, cancels the stragglers, and closes the transport last so
// journal writes and sends can still go out during the drain.
func (e *Engine) shutdown() {
	e.stopped.Store(true)
	e.log.Info("draining in-flight replies", "timeout", e.cfg.ShutdownDrain)

	if !e.waitTasks(e.cfg.ShutdownDrain) {
		e.log.Warn("drain timeout, cancelling remaining replies")
		e.baseCancel()
		e.waitTasks(2 * time.Second)
	} else {
		e.baseCancel()
	}

	e.tr.Close()
	e.log.Info("engine stopped")
}

func (e *Engine) waitTasks(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// handleRaw is the transport callback: classify, match, and fan out one
// pipeline task per matched campaign. Runs on the update goroutine, so
// everything slow happens in the spawned tasks.
func (e *Engine) handleRaw(raw repo.RawEvent) {
	if e.stopped.Load() || raw.Outgoing {
		return
	}

	ev := e.classifier.Classify(raw)
	e.metrics.EventClassified(string(ev.Kind))

	snap, err := e.cache.Current(e.baseCtx)
	if err != nil {
		e.log.Error("no campaign snapshot, dropping event",
			"chat_id", ev.ChatID, "message_id", ev.MessageID, "error", err)
		return
	}

	matches := e.matcher.Evaluate(ev, snap)
	if len(matches) == 0 {
		return
	}
	e.log.Debug("event matched",
		"kind", ev.Kind, "chat_id", ev.ChatID, "message_id", ev.MessageID, "campaigns", len(matches))

	for range matches {
		e.metrics.CampaignMatched(string(ev.Kind))
	}

	// One task per event; its campaigns run sequentially so their journal
	// records keep snapshot order.
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		for _, m := range matches {
			e.pipeline.Process(e.baseCtx, ev, m)
		}
	}()
}
