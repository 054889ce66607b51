// Package leakage proposes negative-keyword candidates from spend that
// produced clicks but no conversions. It only ever emits a reviewable queue;
// nothing here blocks a term or edits the dictionary.
package leakage

import (
	"sort"
	"strings"

	"kwintel/internal/models"
)

// DefaultMinClicks is the click threshold used when none is configured.
const DefaultMinClicks = 20

// Suggester scans processed keywords for leakage.
type Suggester struct {
	MinClicks int64
}

// New creates a Suggester. A non-positive threshold uses DefaultMinClicks.
func New(minClicks int64) *Suggester {
	if minClicks <= 0 {
		minClicks = DefaultMinClicks
	}
	return &Suggester{MinClicks: minClicks}
}

// Suggest returns one pending suggestion per (scope, scope ref, candidate)
// with the ids of every keyword supporting it. Output order is stable.
func (s *Suggester) Suggest(keywords []models.ProcessedKeyword, metrics map[string]models.KeywordMetrics) []models.LeakageSuggestion {
	q := NewQueue(nil)
	for i := range keywords {
		pk := &keywords[i]
		m, ok := metrics[pk.Keyword.ID]
		if !ok || !s.qualifies(pk, m) {
			continue
		}
		candidate, ok := MinimalPhrase(pk)
		if !ok {
			continue
		}
		scope, ref := suggestedScope(pk)
		q.Add(models.LeakageSuggestion{
			CandidateText:      candidate,
			EvidenceKeywordIDs: []string{pk.Keyword.ID},
			SuggestedScope:     scope,
			ScopeRef:           ref,
			Status:             models.SuggestionPending,
		})
	}
	return q.Items()
}

func (s *Suggester) qualifies(pk *models.ProcessedKeyword, m models.KeywordMetrics) bool {
	switch pk.FinalCategory {
	case models.CategoryNoMoneyIntent, models.CategoryGeneric:
	default:
		return false
	}
	return m.Clicks >= s.MinClicks && m.Conversions == 0 && m.Cost > 0
}

// MinimalPhrase returns the text of the shortest winning match (earliest on
// ties). Matches swallowed by a longer overlapping match never qualify. Keywords without such a match have no
// candidate: proposing the whole query would over-block unrelated traffic.
func MinimalPhrase(pk *models.ProcessedKeyword) (string, bool) {
	var best *models.Match
	winners := pk.WinningMatches()
	for i := range winners {
		m := &winners[i]
		if best == nil || m.Span.Len() < best.Span.Len() ||
			(m.Span.Len() == best.Span.Len() && m.Span.Start < best.Span.Start) {
			best = m
		}
	}
	if best == nil {
		return "", false
	}
	tokens := pk.NormalizedTerm.Tokens
	if best.Span.Start < 0 || best.Span.End > len(tokens) || best.Span.Len() <= 0 {
		return "", false
	}
	return strings.Join(tokens[best.Span.Start:best.Span.End], " "), true
}

// suggestedScope picks where the negative should live. No-money intent is
// unwanted everywhere, so it goes to the account; generic leakage is
// context-dependent and stays with the narrowest known container.
func suggestedScope(pk *models.ProcessedKeyword) (string, string) {
	if pk.FinalCategory == models.CategoryNoMoneyIntent {
		return models.SuggestScopeAccount, ""
	}
	switch {
	case pk.Keyword.CampaignID != "":
		return models.SuggestScopeCampaign, pk.Keyword.CampaignID
	case pk.Keyword.AdGroupID != "":
		return models.SuggestScopeAdGroup, pk.Keyword.AdGroupID
	}
	return models.SuggestScopeAccount, ""
}

// Queue is an append-only set of suggestions keyed by scope and candidate.
type Queue struct {
	items []models.LeakageSuggestion
	index map[string]int
}

// NewQueue starts a queue from existing suggestions, e.g. the pending
// suggestions already stored by the consumer.
func NewQueue(existing []models.LeakageSuggestion) *Queue {
	q := &Queue{index: make(map[string]int)}
	for _, s := range existing {
		q.Add(s)
	}
	return q
}

// Add merges s into the queue and reports whether a new suggestion was
// created. Evidence for an existing pending suggestion is appended; accepted
// or dismissed suggestions are left alone and never duplicated.
func (q *Queue) Add(s models.LeakageSuggestion) bool {
	s.EvidenceKeywordIDs = evidenceSet(nil, s.EvidenceKeywordIDs)
	key := s.DedupKey()
	if i, ok := q.index[key]; ok {
		cur := &q.items[i]
		if cur.IsPending() {
			cur.EvidenceKeywordIDs = evidenceSet(cur.EvidenceKeywordIDs, s.EvidenceKeywordIDs)
		}
		return false
	}
	q.index[key] = len(q.items)
	q.items = append(q.items, s)
	return true
}

// Merge adds every suggestion and returns how many were new.
func (q *Queue) Merge(suggestions []models.LeakageSuggestion) int {
	added := 0
	for _, s := range suggestions {
		if q.Add(s) {
			added++
		}
	}
	return added
}

// Items returns a copy of the queue in insertion order.
func (q *Queue) Items() []models.LeakageSuggestion {
	out := make([]models.LeakageSuggestion, len(q.items))
	for i, s := range q.items {
		s.EvidenceKeywordIDs = append([]string(nil), s.EvidenceKeywordIDs...)
		out[i] = s
	}
	return out
}

// Len returns the number of suggestions.
func (q *Queue) Len() int { return len(q.items) }

// evidenceSet returns the sorted union of a and b without empty ids.
func evidenceSet(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, id := range list {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
