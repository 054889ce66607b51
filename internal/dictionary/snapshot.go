// Package dictionary holds immutable, versioned snapshots of the system
// dictionary and custom rules. A batch pins one snapshot for its whole run;
// edits made to the store afterwards only show up in the next version.
package dictionary

import (
	"fmt"
	"sort"
	"sync"

	"kwintel/internal/models"
)

// SnapshotData is the serializable content of one dictionary version after
// resolution: at most one entry per (language, term) and one rule per key.
type SnapshotData struct {
	VersionID int64                    `json:"version_id"`
	Entries   []models.DictionaryEntry `json:"entries"`
	Rules     []models.CustomRule      `json:"rules"`
}

type compiledEntry struct {
	entry   models.DictionaryEntry
	pattern CompiledPattern
}

type compiledRule struct {
	rule    models.CustomRule
	pattern CompiledPattern
}

// Snapshot is a read-only view over one dictionary version. It is safe for
// concurrent use and must not be copied.
type Snapshot struct {
	data    SnapshotData
	entries []compiledEntry
	rules   []compiledRule
	views   sync.Map // entity ID -> *View
}

// NewSnapshot validates and compiles data. The input slices are copied so
// later changes by the caller cannot leak into the snapshot.
func NewSnapshot(data SnapshotData) (*Snapshot, error) {
	s := &Snapshot{
		data: SnapshotData{
			VersionID: data.VersionID,
			Entries:   append([]models.DictionaryEntry(nil), data.Entries...),
			Rules:     make([]models.CustomRule, len(data.Rules)),
		},
	}
	for i, r := range data.Rules {
		s.data.Rules[i] = copyRule(r)
	}

	for _, e := range s.data.Entries {
		if e.Tombstone {
			continue
		}
		if !e.Category.Valid() {
			return nil, fmt.Errorf("entry %q: unknown category %q", e.Term, e.Category)
		}
		cp, err := Compile(models.Literal(e.Term))
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", e.Term, err)
		}
		if e.Language == models.LanguageEN || e.Language == models.LanguageAR {
			cp.Language = e.Language
		}
		s.entries = append(s.entries, compiledEntry{entry: e, pattern: cp})
	}

	for _, r := range s.data.Rules {
		if err := ValidateRule(r); err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.RuleKey, err)
		}
		cp, err := Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.RuleKey, err)
		}
		s.rules = append(s.rules, compiledRule{rule: r, pattern: cp})
	}

	return s, nil
}

// ValidateRule checks a custom rule for closed-set values.
func ValidateRule(r models.CustomRule) error {
	if err := r.Pattern.Validate(); err != nil {
		return err
	}
	if r.CategoryOverride != nil && !r.CategoryOverride.Valid() {
		return fmt.Errorf("unknown category override %q", *r.CategoryOverride)
	}
	if r.ActionOverride != nil && !r.ActionOverride.Overridable() {
		return fmt.Errorf("action %q cannot be forced by a rule", *r.ActionOverride)
	}
	switch r.Scope {
	case models.ScopeAccount:
	case models.ScopeEntity:
		if r.EntityID == "" {
			return fmt.Errorf("entity scope requires an entity id")
		}
	default:
		return fmt.Errorf("unknown scope %q", r.Scope)
	}
	return nil
}

// VersionID returns the pinned version.
func (s *Snapshot) VersionID() int64 {
	return s.data.VersionID
}

// Data returns a copy of the snapshot content, suitable for caching.
func (s *Snapshot) Data() SnapshotData {
	out := SnapshotData{
		VersionID: s.data.VersionID,
		Entries:   append([]models.DictionaryEntry(nil), s.data.Entries...),
		Rules:     make([]models.CustomRule, len(s.data.Rules)),
	}
	for i, r := range s.data.Rules {
		out.Rules[i] = copyRule(r)
	}
	return out
}

// Rules returns a copy of the custom rules in the snapshot.
func (s *Snapshot) Rules() []models.CustomRule {
	return s.Data().Rules
}

// EffectivePattern is one pattern that survived the overlay for a language.
type EffectivePattern struct {
	Pattern  CompiledPattern
	Category models.Category
	Source   models.Source
	RuleKey  string
}

// View is the effective dictionary for one entity: system entries overlaid
// by account rules overlaid by the entity's rules.
type View struct {
	versionID int64
	entityID  string
	patterns  map[models.Language][]EffectivePattern
	rules     []models.CustomRule
}

type candidate struct {
	ep        EffectivePattern
	scopeRank int
	priority  int
	versionID int64
}

// beats reports whether c wins over o for the same pattern key.
func (c candidate) beats(o candidate) bool {
	if c.scopeRank != o.scopeRank {
		return c.scopeRank < o.scopeRank
	}
	if c.priority != o.priority {
		return c.priority > o.priority
	}
	if c.versionID != o.versionID {
		return c.versionID > o.versionID
	}
	return c.ep.RuleKey < o.ep.RuleKey
}

const systemScopeRank = 2

// View returns the overlay for entityID, building it on first use. An empty
// entityID sees system entries and account rules only. Views are immutable,
// so every caller for the same entity shares one instance.
func (s *Snapshot) View(entityID string) *View {
	if v, ok := s.views.Load(entityID); ok {
		return v.(*View)
	}
	v, _ := s.views.LoadOrStore(entityID, s.buildView(entityID))
	return v.(*View)
}

func (s *Snapshot) buildView(entityID string) *View {
	winners := make(map[models.Language]map[string]candidate)
	offer := func(lang models.Language, c candidate) {
		byKey, ok := winners[lang]
		if !ok {
			byKey = make(map[string]candidate)
			winners[lang] = byKey
		}
		key := c.ep.Pattern.Key()
		if cur, ok := byKey[key]; !ok || c.beats(cur) {
			byKey[key] = c
		}
	}

	for _, ce := range s.entries {
		offer(ce.pattern.Language, candidate{
			ep: EffectivePattern{
				Pattern:  ce.pattern,
				Category: ce.entry.Category,
				Source:   models.SourceSystem,
			},
			scopeRank: systemScopeRank,
			versionID: ce.entry.VersionID,
		})
	}

	var rules []models.CustomRule
	for _, cr := range s.rules {
		if !cr.rule.AppliesTo(entityID) {
			continue
		}
		rules = append(rules, copyRule(cr.rule))
		if cr.rule.CategoryOverride == nil {
			continue
		}
		offer(cr.pattern.Language, candidate{
			ep: EffectivePattern{
				Pattern:  cr.pattern,
				Category: *cr.rule.CategoryOverride,
				Source:   models.SourceCustom,
				RuleKey:  cr.rule.RuleKey,
			},
			scopeRank: cr.rule.ScopeRank(),
			priority:  cr.rule.Priority,
			versionID: cr.rule.VersionID,
		})
	}

	v := &View{
		versionID: s.data.VersionID,
		entityID:  entityID,
		patterns:  make(map[models.Language][]EffectivePattern, len(winners)),
		rules:     rules,
	}
	for lang, byKey := range winners {
		keys := make([]string, 0, len(byKey))
		for k := range byKey {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		eps := make([]EffectivePattern, 0, len(keys))
		for _, k := range keys {
			eps = append(eps, byKey[k].ep)
		}
		v.patterns[lang] = eps
	}
	return v
}

// VersionID returns the snapshot version the view was built from.
func (v *View) VersionID() int64 { return v.versionID }

// EntityID returns the entity the view was built for.
func (v *View) EntityID() string { return v.entityID }

// Patterns returns the effective patterns for a language, sorted by key.
// Unknown language falls back to English.
func (v *View) Patterns(lang models.Language) []EffectivePattern {
	if lang != models.LanguageAR {
		lang = models.LanguageEN
	}
	return v.patterns[lang]
}

// Rules returns the active custom rules in scope for the view's entity.
func (v *View) Rules() []models.CustomRule {
	out := make([]models.CustomRule, len(v.rules))
	for i, r := range v.rules {
		out[i] = copyRule(r)
	}
	return out
}

func copyRule(r models.CustomRule) models.CustomRule {
	if r.CategoryOverride != nil {
		c := *r.CategoryOverride
		r.CategoryOverride = &c
	}
	if r.ActionOverride != nil {
		a := *r.ActionOverride
		r.ActionOverride = &a
	}
	return r
}
