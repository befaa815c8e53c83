package domain

import "testing"

func TestParseChatRef(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want ChatRef
	}{
		{"numeric id", "-1001234567890", ChatRef{ID: -1001234567890}},
		{"positive id", "42", ChatRef{ID: 42}},
		{"at username", "@CryptoNews", ChatRef{Username: "cryptonews"}},
		{"bare username", "cryptonews", ChatRef{Username: "cryptonews"}},
		{"whitespace trimmed", "  @Chat  ", ChatRef{Username: "chat"}},
		{"empty", "", ChatRef{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseChatRef(tt.raw)
			if got != tt.want {
				t.Errorf("ParseChatRef(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestChatRefKey(t *testing.T) {
	if got := (ChatRef{ID: -100500}).Key(); got != "-100500" {
		t.Errorf("Key() = %q, want -100500", got)
	}
	if got := (ChatRef{Username: "news"}).Key(); got != "@news" {
		t.Errorf("Key() = %q, want @news", got)
	}
}

func TestChatRefIsZero(t *testing.T) {
	if !(ChatRef{}).IsZero() {
		t.Error("empty ref should be zero")
	}
	if (ChatRef{ID: 1}).IsZero() || (ChatRef{Username: "x"}).IsZero() {
		t.Error("non-empty ref should not be zero")
	}
}

func TestEffectiveContextDepth(t *testing.T) {
	tests := []struct {
		name  string
		depth int
		max   int
		want  int
	}{
		{"within bounds", 10, 50, 10},
		{"clamped to max", 200, 50, 50},
		{"negative becomes zero", -5, 50, 0},
		{"zero stays zero", 0, 50, 0},
		{"no max", 200, 0, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Campaign{ContextDepth: tt.depth}
			if got := c.EffectiveContextDepth(tt.max); got != tt.want {
				t.Errorf("EffectiveContextDepth(%d) = %d, want %d", tt.max, got, tt.want)
			}
		})
	}
}
