package usecase

import (
	"strings"

	"telegram-campaign-engine/internal/biz/domain"
)

// Match is one (event, campaign) pair the pipeline should process. Keyword
// is the first keyword that matched, empty when the campaign has no keywords.
type Match struct {
	Campaign domain.Campaign
	Keyword  string
}

// Matcher evaluates classified events against a snapshot.
type Matcher struct {
	linked LinkedGroups
}

// NewMatcher creates a matcher consulting the given binding view for the
// indirect channel → discussion-group equivalence rule.
func NewMatcher(linked LinkedGroups) *Matcher {
	return &Matcher{linked: linked}
}

// Evaluate returns the campaigns triggered by ev, in snapshot order. Each
// matching campaign is emitted exactly once even when several of its target
// references match.
func (m *Matcher) Evaluate(ev domain.ClassifiedEvent, snap *Snapshot) []Match {
	var out []Match
	for i := range snap.Campaigns {
		c := snap.Campaigns[i]
		if !m.chatMatches(ev, &c) {
			continue
		}
		kw, ok := firstKeyword(ev.Text, c.Keywords)
		if !ok {
			continue
		}
		out = append(out, Match{Campaign: c, Keyword: kw})
	}
	return out
}

// chatMatches applies the equivalence rules in order: numeric id, username
// (case-insensitive, "@" stripped at parse time), then indirect equivalence
// through the discussion binding.
func (m *Matcher) chatMatches(ev domain.ClassifiedEvent, c *domain.Campaign) bool {
	for _, ref := range c.TargetChats {
		if ref.ID != 0 && ref.ID == ev.ChatID {
			return true
		}
		if ref.Username != "" && ev.ChatUsername != "" && strings.EqualFold(ref.Username, ev.ChatUsername) {
			return true
		}
		if gid, ok := m.linked.LinkedGroupOf(ref); ok && gid == ev.ChatID {
			return true
		}
	}
	return false
}

// firstKeyword returns the first keyword (in declared order) appearing as a
// case-insensitive substring of text. An empty keyword set matches anything;
// a non-empty set never matches empty text.
func firstKeyword(text string, keywords []string) (string, bool) {
	if len(keywords) == 0 {
		return "", true
	}
	if text == "" {
		return "", false
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			return kw, true
		}
	}
	return "", false
}
