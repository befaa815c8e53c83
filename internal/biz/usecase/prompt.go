package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"telegram-campaign-engine/internal/biz/domain"
	"telegram-campaign-engine/internal/biz/repo"
)

// PromptConfig contains the markers used when rendering a prompt.
type PromptConfig struct {
	HistoryMarker  string
	CurrentMarker  string
	ExamplesHeader string
}

// DefaultPromptConfig contains the default prompt markers.
var DefaultPromptConfig = PromptConfig{
	HistoryMarker:  "[Recent messages in this chat]",
	CurrentMarker:  "[Message to reply to]",
	ExamplesHeader: "[Reply style examples, use as hints only]",
}

// PromptBuilder assembles the single-string prompt a provider receives: the
// campaign's system instruction, up to context_depth prior messages in
// chronological order, the triggering message, and the example replies as
// supplementary hints.
type PromptBuilder struct {
	tr  repo.Transport
	cfg PromptConfig
}

// NewPromptBuilder creates a prompt builder fetching context via tr.
func NewPromptBuilder(tr repo.Transport, cfg PromptConfig) *PromptBuilder {
	if cfg.HistoryMarker == "" {
		cfg.HistoryMarker = DefaultPromptConfig.HistoryMarker
	}
	if cfg.CurrentMarker == "" {
		cfg.CurrentMarker = DefaultPromptConfig.CurrentMarker
	}
	if cfg.ExamplesHeader == "" {
		cfg.ExamplesHeader = DefaultPromptConfig.ExamplesHeader
	}
	return &PromptBuilder{tr: tr, cfg: cfg}
}

// Build renders the prompt for one matched pair. depth is the already
// clamped context depth.
func (b *PromptBuilder) Build(ctx context.Context, ev domain.ClassifiedEvent, c *domain.Campaign, depth int) (string, error) {
	var parts []string

	if s := strings.TrimSpace(c.SystemInstruction); s != "" {
		parts = append(parts, s)
	}

	if depth > 0 {
		history, err := b.tr.FetchPriorMessages(ctx, ev.ChatID, ev.MessageID, depth)
		if err != nil {
			return "", fmt.Errorf("fetch prior messages: %w", err)
		}
		if len(history) > 0 {
			parts = append(parts, b.formatHistory(history))
		}
	}

	parts = append(parts, fmt.Sprintf("%s\n[%s] %s",
		b.cfg.CurrentMarker, ev.Date.Format("2006-01-02 15:04:05"), ev.Text))

	if len(c.ExampleReplies) > 0 {
		parts = append(parts, b.formatExamples(c.ExampleReplies))
	}

	return strings.Join(parts, "\n\n"), nil
}

// formatHistory renders fetched messages oldest-first, one line each.
func (b *PromptBuilder) formatHistory(history []domain.HistoryMessage) string {
	var sb strings.Builder
	sb.WriteString(b.cfg.HistoryMarker)
	// The transport returns newest first; the prompt wants chronological.
	for i := len(history) - 1; i >= 0; i-- {
		m := history[i]
		if m.Text == "" {
			continue
		}
		sb.WriteString(fmt.Sprintf("\n[%s] %s", m.Date.Format("2006-01-02 15:04:05"), m.Text))
	}
	return sb.String()
}

func (b *PromptBuilder) formatExamples(examples map[string]string) string {
	keys := make([]string, 0, len(examples))
	for k := range examples {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(b.cfg.ExamplesHeader)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("\n- %s: %s", k, examples[k]))
	}
	return sb.String()
}
