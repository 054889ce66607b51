// Package classifier resolves a normalized keyword to exactly one category
// using the effective dictionary of a pinned snapshot view.
//
// Candidate matches are found in a single pass with an Aho-Corasick
// automaton over the space-delimited token string, so each pattern can only
// hit whole tokens (or a token prefix, for prefix patterns).
package classifier

import (
	"fmt"
	"sort"
	"strings"

	aho "github.com/petar-dambovaliev/aho-corasick"

	"kwintel/internal/dictionary"
	"kwintel/internal/models"
)

// Evidence notes for degraded inputs.
const (
	EvidenceEmptyInput      = "empty input"
	EvidenceUnknownLanguage = "unknown language: normalized and matched as en"
)

// languageIndex is the automaton for one language of a view.
type languageIndex struct {
	automaton aho.AhoCorasick
	patterns  []dictionary.EffectivePattern
}

// Matcher classifies keywords against one view. It is immutable after
// construction and safe for concurrent use.
type Matcher struct {
	view    *dictionary.View
	indexes map[models.Language]*languageIndex
}

// NewMatcher compiles automata for both languages of the view.
func NewMatcher(view *dictionary.View) *Matcher {
	m := &Matcher{
		view:    view,
		indexes: make(map[models.Language]*languageIndex, 2),
	}
	for _, lang := range []models.Language{models.LanguageEN, models.LanguageAR} {
		m.indexes[lang] = buildIndex(view.Patterns(lang))
	}
	return m
}

func buildIndex(patterns []dictionary.EffectivePattern) *languageIndex {
	idx := &languageIndex{patterns: patterns}
	if len(patterns) == 0 {
		return idx
	}
	needles := make([]string, len(patterns))
	for i, ep := range patterns {
		needles[i] = needle(ep.Pattern)
	}
	builder := aho.NewAhoCorasickBuilder(aho.Opts{
		DFA: true,
	})
	idx.automaton = builder.Build(needles)
	return idx
}

// needle renders a pattern for the automaton: sequence patterns are
// delimited on both sides, prefix patterns only on the left.
func needle(cp dictionary.CompiledPattern) string {
	s := " " + strings.Join(cp.Tokens, " ")
	if !cp.IsPrefix() {
		s += " "
	}
	return s
}

// VersionID returns the snapshot version the matcher was built from.
func (m *Matcher) VersionID() int64 { return m.view.VersionID() }

// Classify is a convenience wrapper that builds a Matcher for one call.
// Batch callers should build the Matcher once and reuse it.
func Classify(term models.NormalizedTerm, view *dictionary.View) models.ProcessedKeyword {
	return NewMatcher(view).Classify(term)
}

// Classify finds every match in the term and resolves the final category:
// a match overlapped by a strictly longer match is discarded, then the
// strongest remaining category by precedence wins.
func (m *Matcher) Classify(term models.NormalizedTerm) models.ProcessedKeyword {
	pk := models.ProcessedKeyword{
		NormalizedTerm: term,
		FinalCategory:  models.CategoryGeneric,
		VersionID:      m.view.VersionID(),
		Matches:        []models.Match{},
		Evidence:       []string{},
	}

	if len(term.Tokens) == 0 {
		pk.Evidence = append(pk.Evidence, EvidenceEmptyInput)
		return pk
	}

	lang := term.Language
	if lang != models.LanguageEN && lang != models.LanguageAR {
		pk.Evidence = append(pk.Evidence, EvidenceUnknownLanguage)
		lang = models.LanguageEN
	}

	pk.Matches = m.indexes[lang].scan(term.Tokens)
	for _, match := range pk.Matches {
		pk.Evidence = append(pk.Evidence, fmt.Sprintf("%s %q -> %s (tokens %d-%d)",
			match.Source, match.Text, match.Category, match.Span.Start, match.Span.End))
	}

	final, notes := resolve(pk.Matches)
	pk.FinalCategory = final
	pk.Evidence = append(pk.Evidence, notes...)
	return pk
}

// scan returns the deduplicated matches of tokens, sorted by span, then
// category precedence, then pattern.
func (idx *languageIndex) scan(tokens []string) []models.Match {
	if len(idx.patterns) == 0 {
		return []models.Match{}
	}

	haystack := " " + strings.Join(tokens, " ") + " "
	// byte offset of the space before each token -> token index
	starts := make(map[int]int, len(tokens))
	off := 0
	for i, tok := range tokens {
		starts[off] = i
		off += 1 + len(tok)
	}

	seen := make(map[string]bool)
	matches := []models.Match{}
	iter := idx.automaton.IterOverlappingByte([]byte(haystack))
	for next := iter.Next(); next != nil; next = iter.Next() {
		hit := *next
		start, ok := starts[hit.Start()]
		if !ok {
			continue
		}
		ep := idx.patterns[hit.Pattern()]
		span := models.Span{Start: start, End: start + len(ep.Pattern.Tokens)}
		key := fmt.Sprintf("%d:%d:%s", span.Start, span.End, ep.Pattern.Key())
		if seen[key] {
			continue
		}
		seen[key] = true
		matches = append(matches, models.Match{
			Category: ep.Category,
			Span:     span,
			Source:   ep.Source,
			Pattern:  ep.Pattern.Pattern,
			RuleKey:  ep.RuleKey,
			Text:     strings.Join(tokens[span.Start:span.End], " "),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Span.Start != b.Span.Start {
			return a.Span.Start < b.Span.Start
		}
		if a.Span.End != b.Span.End {
			return a.Span.End < b.Span.End
		}
		if a.Category.Precedence() != b.Category.Precedence() {
			return a.Category.Precedence() < b.Category.Precedence()
		}
		return a.Pattern.String() < b.Pattern.String()
	})
	return matches
}

// resolve applies the two-stage tie-break and explains it.
func resolve(matches []models.Match) (models.Category, []string) {
	if len(matches) == 0 {
		return models.CategoryGeneric, []string{"no dictionary match: generic"}
	}

	var notes []string
	best := models.Category("")
	for i, m := range matches {
		if dominated(i, matches) {
			matches[i].Superseded = true
			notes = append(notes, fmt.Sprintf("%q superseded by a longer overlapping match", m.Text))
			continue
		}
		if best == "" || m.Category.Precedence() < best.Precedence() {
			best = m.Category
		}
	}
	notes = append(notes, fmt.Sprintf("final category %s by precedence", best))
	return best, notes
}

func dominated(i int, matches []models.Match) bool {
	m := matches[i]
	for j, o := range matches {
		if j != i && o.Span.Overlaps(m.Span) && o.Span.Len() > m.Span.Len() {
			return true
		}
	}
	return false
}
