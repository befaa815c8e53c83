package usecase

import "strings"

// CannedConfig maps intent categories to the cue substrings that select
// them, plus the generic reply used when nothing matches.
type CannedConfig struct {
	Generic string
	Cues    map[string][]string
}

// DefaultCannedConfig covers the intent categories campaign example replies
// are keyed by.
var DefaultCannedConfig = CannedConfig{
	Generic: "Спасибо за сообщение! Мы скоро ответим.",
	Cues: map[string][]string{
		"greeting": {"привет", "здравств", "добрый день", "добрый вечер", "hello", "hi "},
		"thanks":   {"спасибо", "благодар", "thank"},
		"help":     {"помощь", "помоги", "help"},
		"question": {"?", "как ", "почему", "зачем", "сколько"},
	},
}

// cannedOrder fixes the category precedence when several cues appear.
var cannedOrder = []string{"greeting", "thanks", "help", "question"}

// CannedReply picks a reply from the campaign's example replies by
// inspecting the triggering text for intent cues. Used when no provider is
// available or all providers failed.
func CannedReply(text string, examples map[string]string, cfg CannedConfig) string {
	lower := strings.ToLower(text)
	for _, category := range cannedOrder {
		cues := cfg.Cues[category]
		if len(cues) == 0 {
			cues = DefaultCannedConfig.Cues[category]
		}
		for _, cue := range cues {
			if cue != "" && strings.Contains(lower, cue) {
				if reply, ok := examples[category]; ok && reply != "" {
					return reply
				}
			}
		}
	}
	if cfg.Generic != "" {
		return cfg.Generic
	}
	return DefaultCannedConfig.Generic
}
