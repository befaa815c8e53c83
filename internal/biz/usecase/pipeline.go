package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"telegram-campaign-engine/internal/biz/domain"
	"telegram-campaign-engine/internal/biz/repo"
)

// ProviderRegistry resolves a campaign's provider selector into an ordered
// fallback chain: the campaign's provider, then the process default, then
// any other available provider, without duplicates.
type ProviderRegistry interface {
	Chain(preferred, fallback string) []repo.Provider
}

// PipelineMetrics receives pipeline outcome counters.
type PipelineMetrics interface {
	ReplySent(kind string)
	ReplyFailed(kind string)
	ProviderFailure(provider string)
}

type nopMetrics struct{}

func (nopMetrics) ReplySent(string)       {}
func (nopMetrics) ReplyFailed(string)     {}
func (nopMetrics) ProviderFailure(string) {}

// PipelineConfig carries the tunables of the response pipeline.
type PipelineConfig struct {
	DefaultProvider string
	ProviderTimeout time.Duration
	ContextDepthMax int
	MaxTokens       int
	Temperature     float32
	Canned          CannedConfig
}

// Pipeline processes one matched (event, campaign) pair: derives the reply
// mode, generates text through the provider chain, posts the reply, and
// journals the outcome. Every failure ends in exactly one journal record;
// nothing here is fatal for the process.
type Pipeline struct {
	tr       repo.Transport
	registry ProviderRegistry
	prompts  *PromptBuilder
	journal  repo.ActivityJournal
	cfg      PipelineConfig
	metrics  PipelineMetrics
	log      *slog.Logger
}

// NewPipeline creates a response pipeline. metrics may be nil.
func NewPipeline(
	tr repo.Transport,
	registry ProviderRegistry,
	prompts *PromptBuilder,
	journal repo.ActivityJournal,
	cfg PipelineConfig,
	metrics PipelineMetrics,
	log *slog.Logger,
) *Pipeline {
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 30 * time.Second
	}
	if cfg.ContextDepthMax <= 0 {
		cfg.ContextDepthMax = 50
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 512
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Pipeline{
		tr:       tr,
		registry: registry,
		prompts:  prompts,
		journal:  journal,
		cfg:      cfg,
		metrics:  metrics,
		log:      log.With("component", "pipeline"),
	}
}

// Process handles one matched pair end to end. Channel posts themselves are
// never replied to; only their discussion comments are.
func (p *Pipeline) Process(ctx context.Context, ev domain.ClassifiedEvent, m Match) {
	if ev.Kind == domain.KindChannelPost {
		p.log.Debug("skipping channel post", "chat_id", ev.ChatID, "campaign_id", m.Campaign.ID)
		return
	}

	start := time.Now()
	rec := &domain.ActivityRecord{
		CampaignID:      m.Campaign.ID,
		ChatID:          ev.ChatID,
		ChatTitle:       ev.ChatTitle,
		MessageID:       ev.MessageID,
		MatchedKeyword:  annotateKeyword(m.Keyword, ev.Kind),
		OriginalMessage: domain.Truncate(ev.Text, domain.MaxJournalText),
		Status:          domain.StatusPending,
	}

	mode, target := replyMode(ev)

	depth := m.Campaign.EffectiveContextDepth(p.cfg.ContextDepthMax)
	prompt, err := p.prompts.Build(ctx, ev, &m.Campaign, depth)
	if err != nil {
		p.finish(ctx, rec, ev.Kind, start, fmt.Errorf("context build: %w", err))
		return
	}

	text, genErr := p.generate(ctx, prompt, &m.Campaign)
	if genErr != nil {
		if errors.Is(genErr, context.Canceled) {
			p.finish(ctx, rec, ev.Kind, start, genErr)
			return
		}
		text = CannedReply(ev.Text, m.Campaign.ExampleReplies, p.cfg.Canned)
		p.log.Info("using canned reply", "campaign_id", m.Campaign.ID, "error", genErr)
	}
	rec.AgentResponse = domain.Truncate(text, domain.MaxJournalText)

	if err := p.post(ctx, target, text, mode); err != nil {
		p.finish(ctx, rec, ev.Kind, start, fmt.Errorf("send: %w", err))
		return
	}

	p.finish(ctx, rec, ev.Kind, start, nil)
}

// generate walks the provider fallback chain. Empty or whitespace-only
// completions count as failure.
func (p *Pipeline) generate(ctx context.Context, prompt string, c *domain.Campaign) (string, error) {
	chain := p.registry.Chain(c.Provider, p.cfg.DefaultProvider)
	if len(chain) == 0 {
		return "", repo.ErrProviderUnavailable
	}

	lastErr := error(repo.ErrProviderUnavailable)
	for _, prov := range chain {
		genCtx, cancel := context.WithTimeout(ctx, p.cfg.ProviderTimeout)
		out, err := prov.Generate(genCtx, repo.GenerateRequest{
			Prompt:      prompt,
			Model:       c.Model,
			MaxTokens:   p.cfg.MaxTokens,
			Temperature: p.cfg.Temperature,
		})
		cancel()

		if err == nil && strings.TrimSpace(out) != "" {
			return out, nil
		}
		if err == nil {
			err = repo.ErrEmptyCompletion
		}
		p.metrics.ProviderFailure(prov.Name())
		p.log.Warn("provider failed", "provider", prov.Name(), "model", c.Model, "error", err)
		lastErr = err

		if ctx.Err() != nil {
			return "", context.Canceled
		}
	}
	return "", lastErr
}

// post sends the reply, honoring a single rate-limit wait. A second
// rate-limit signal on the same reply demotes the outcome to failed.
func (p *Pipeline) post(ctx context.Context, target repo.SendTarget, text string, mode domain.ReplyMode) error {
	_, err := p.tr.SendReply(ctx, target, text, mode)
	wait, ok := repo.AsFloodWait(err)
	if !ok {
		return err
	}

	p.log.Warn("rate limited, deferring reply", "chat_id", target.ChatID, "wait", wait)
	select {
	case <-time.After(wait):
	case <-ctx.Done():
		return context.Canceled
	}

	_, err = p.tr.SendReply(ctx, target, text, mode)
	return err
}

func (p *Pipeline) finish(ctx context.Context, rec *domain.ActivityRecord, kind domain.EventKind, start time.Time, procErr error) {
	rec.DurationMS = time.Since(start).Milliseconds()
	if procErr != nil {
		rec.Status = domain.StatusFailed
		if errors.Is(procErr, context.Canceled) {
			rec.Error = "cancelled"
		} else {
			rec.Error = procErr.Error()
		}
		p.metrics.ReplyFailed(string(kind))
	} else {
		rec.Status = domain.StatusSent
		p.metrics.ReplySent(string(kind))
	}

	// The journal write must survive task cancellation during drain.
	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.journal.Append(jctx, rec); err != nil {
		p.log.Error("journal write failed", "campaign_id", rec.CampaignID, "error", err)
	}
}

// replyMode decides how the reply is posted: comments attach to the parent
// post, everything else replies to the triggering message.
func replyMode(ev domain.ClassifiedEvent) (domain.ReplyMode, repo.SendTarget) {
	if ev.Kind == domain.KindDiscussionComment {
		return domain.ReplyModeComment, repo.SendTarget{ChatID: ev.ChatID, ReplyToID: ev.ReplyToID}
	}
	return domain.ReplyModePlain, repo.SendTarget{ChatID: ev.ChatID, ReplyToID: ev.MessageID}
}

// annotateKeyword suffixes the matched keyword with the event kind for
// observability, e.g. "помощь (group_message)".
func annotateKeyword(kw string, kind domain.EventKind) string {
	return strings.TrimSpace(fmt.Sprintf("%s (%s)", kw, kind))
}
