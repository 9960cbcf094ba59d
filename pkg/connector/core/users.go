package core

import (
	"strings"
)

// UserRule is one entry of an adapter's relevant-user extraction table: when
// any keyword matches the event summary, the extraction strategy is tried.
// Rules are evaluated in priority order; the first rule that both matches and
// extracts a non-empty user wins.
type UserRule struct {
	// Keywords matched as substrings against the lowercased summary. An empty
	// set matches every summary.
	Keywords []string
	// Extract attempts to pull a user from the record. Returning ("", false)
	// passes evaluation to the next rule.
	Extract func(rec RawRecord) (string, bool)
}

func (r UserRule) matches(summary string) bool {
	if len(r.Keywords) == 0 {
		return true
	}
	for _, kw := range r.Keywords {
		if strings.Contains(summary, kw) {
			return true
		}
	}
	return false
}

// ResolveUser evaluates the rule table against the record and returns the
// extracted user, or fallback when no rule applies. It never fails:
// malformed records simply fall through to the fallback.
func ResolveUser(rec RawRecord, summary string, rules []UserRule, fallback string) string {
	summary = strings.ToLower(summary)
	for _, rule := range rules {
		if !rule.matches(summary) {
			continue
		}
		if user, ok := rule.Extract(rec); ok && user != "" {
			return user
		}
	}
	return fallback
}
