package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Source records where a match came from.
type Source string

// Source constants
const (
	SourceSystem Source = "system"
	SourceCustom Source = "custom"
)

// PatternKind is the closed set of pattern shapes a rule may use.
type PatternKind string

// Pattern kind constants
const (
	PatternLiteral PatternKind = "literal"
	PatternPhrase  PatternKind = "phrase"
	PatternPrefix  PatternKind = "prefix"
)

// Pattern describes what a dictionary entry or custom rule matches.
// Literal matches a single token (or the exact token run its text normalizes
// to), Phrase matches an exact contiguous token sequence and Prefix matches
// tokens starting with the given text.
type Pattern struct {
	Kind PatternKind `json:"kind" yaml:"kind"`
	Text string      `json:"text" yaml:"text"`
}

// Literal returns a literal pattern.
func Literal(text string) Pattern { return Pattern{Kind: PatternLiteral, Text: text} }

// Phrase returns a phrase-sequence pattern.
func Phrase(text string) Pattern { return Pattern{Kind: PatternPhrase, Text: text} }

// Prefix returns a prefix pattern.
func Prefix(text string) Pattern { return Pattern{Kind: PatternPrefix, Text: text} }

// Validate checks that the pattern kind is known and the text non-empty.
func (p Pattern) Validate() error {
	switch p.Kind {
	case PatternLiteral, PatternPhrase, PatternPrefix:
	default:
		return fmt.Errorf("unknown pattern kind %q", p.Kind)
	}
	if p.Text == "" {
		return fmt.Errorf("%s pattern has empty text", p.Kind)
	}
	return nil
}

func (p Pattern) String() string {
	return string(p.Kind) + ":" + p.Text
}

// DictionaryEntry is a system dictionary term. Entries are never updated;
// a later version supersedes an earlier entry for the same term and language.
type DictionaryEntry struct {
	ID        uuid.UUID `json:"id"`
	Term      string    `json:"term"`
	Language  Language  `json:"language"`
	Category  Category  `json:"category"`
	Source    Source    `json:"source"`
	VersionID int64     `json:"version_id"`
	Tombstone bool      `json:"tombstone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RuleScope constants
const (
	ScopeAccount = "account"
	ScopeEntity  = "entity"
)

// CustomRule is an account- or entity-level override authored by an admin.
// RuleKey identifies the rule across versions.
type CustomRule struct {
	ID               uuid.UUID   `json:"id"`
	RuleKey          string      `json:"rule_key"`
	Pattern          Pattern     `json:"pattern"`
	CategoryOverride *Category   `json:"category_override,omitempty"`
	ActionOverride   *ActionType `json:"action_override,omitempty"`
	Scope            string      `json:"scope"`
	EntityID         string      `json:"entity_id,omitempty"`
	Priority         int         `json:"priority"`
	Active           bool        `json:"active"`
	VersionID        int64       `json:"version_id"`
	CreatedAt        time.Time   `json:"created_at"`
}

// IsEntityScoped returns true if the rule applies to a single entity.
func (r *CustomRule) IsEntityScoped() bool {
	return r.Scope == ScopeEntity
}

// AppliesTo reports whether the rule is active and in scope for the entity.
func (r *CustomRule) AppliesTo(entityID string) bool {
	if !r.Active {
		return false
	}
	if r.IsEntityScoped() {
		return entityID != "" && r.EntityID == entityID
	}
	return true
}

// ScopeRank orders rules by scope strength: entity before account.
func (r *CustomRule) ScopeRank() int {
	if r.IsEntityScoped() {
		return 0
	}
	return 1
}

// DictionaryVersion is one append-only revision of the dictionary store.
type DictionaryVersion struct {
	ID        int64     `json:"id"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}
