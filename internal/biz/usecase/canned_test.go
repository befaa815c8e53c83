package usecase

import "testing"

func TestCannedReply(t *testing.T) {
	examples := map[string]string{
		"greeting": "Здравствуйте!",
		"thanks":   "Всегда пожалуйста.",
		"question": "Хороший вопрос, уточняю.",
	}

	tests := []struct {
		name string
		text string
		want string
	}{
		{"greeting cue", "Привет, есть кто?", "Здравствуйте!"},
		{"english greeting", "hello there", "Здравствуйте!"},
		{"thanks cue", "спасибо большое", "Всегда пожалуйста."},
		{"question cue", "сколько это стоит?", "Хороший вопрос, уточняю."},
		{"no cue falls back to generic", "просто сообщение", DefaultCannedConfig.Generic},
		{"cue without example falls through", "помоги пожалуйста", DefaultCannedConfig.Generic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CannedReply(tt.text, examples, DefaultCannedConfig); got != tt.want {
				t.Errorf("CannedReply(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestCannedReplyPrecedence(t *testing.T) {
	// Greeting outranks question when both cues appear.
	examples := map[string]string{"greeting": "g", "question": "q"}
	if got := CannedReply("привет, почему так?", examples, DefaultCannedConfig); got != "g" {
		t.Errorf("CannedReply = %q, want greeting reply", got)
	}
}

func TestCannedReplyCustomGeneric(t *testing.T) {
	cfg := CannedConfig{Generic: "later"}
	if got := CannedReply("anything", nil, cfg); got != "later" {
		t.Errorf("CannedReply = %q, want custom generic", got)
	}
}
