package models

import (
	"time"

	"github.com/google/uuid"
)

// Suggestion status constants
const (
	SuggestionPending   = "pending"
	SuggestionAccepted  = "accepted"
	SuggestionDismissed = "dismissed"
)

// Suggestion scope constants
const (
	SuggestScopeCampaign = "campaign"
	SuggestScopeAdGroup  = "ad_group"
	SuggestScopeAccount  = "account"
)

// LeakageSuggestion is a reviewable negative-keyword candidate.
type LeakageSuggestion struct {
	ID                 uuid.UUID `json:"id"`
	CandidateText      string    `json:"candidate_text"`
	EvidenceKeywordIDs []string  `json:"evidence_keyword_ids"`
	SuggestedScope     string    `json:"suggested_scope"`
	ScopeRef           string    `json:"scope_ref,omitempty"`
	Status             string    `json:"status"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// IsPending returns true if the suggestion still awaits review.
func (s *LeakageSuggestion) IsPending() bool {
	return s.Status == SuggestionPending
}

// DedupKey identifies a suggestion within its scope.
func (s *LeakageSuggestion) DedupKey() string {
	return s.SuggestedScope + "|" + s.ScopeRef + "|" + s.CandidateText
}

// CanTransitionTo reports whether a status change is allowed. Only pending
// suggestions may be accepted or dismissed.
func (s *LeakageSuggestion) CanTransitionTo(status string) bool {
	if !s.IsPending() {
		return false
	}
	return status == SuggestionAccepted || status == SuggestionDismissed
}
