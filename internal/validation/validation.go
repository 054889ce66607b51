package validation

import (
	"regexp"
	"unicode/utf8"

	"kwintel/internal/models"
	"kwintel/internal/normalize"
)

// Input limits.
const (
	MaxKeywordLength = 256
	MaxPatternLength = 100
	MaxIDLength      = 128
)

// IDPattern defines the valid format for keyword, entity, campaign and ad
// group ids supplied by callers.
var IDPattern = regexp.MustCompile(`^[a-zA-Z0-9_.:-]+$`)

// ValidateID checks an externally supplied identifier.
func ValidateID(id string) (bool, string) {
	if id == "" {
		return false, "id is required"
	}
	if len(id) > MaxIDLength {
		return false, "id is too long"
	}
	if !IDPattern.MatchString(id) {
		return false, "id may only contain letters, digits, '_', '.', ':' and '-'"
	}
	return true, ""
}

// ValidateOptionalID accepts an empty id.
func ValidateOptionalID(id string) (bool, string) {
	if id == "" {
		return true, ""
	}
	return ValidateID(id)
}

// ValidateKeywordText checks raw keyword text. Empty text is allowed; the
// classifier records it as empty input.
func ValidateKeywordText(text string) (bool, string) {
	if !utf8.ValidString(text) {
		return false, "text is not valid UTF-8"
	}
	if utf8.RuneCountInString(text) > MaxKeywordLength {
		return false, "text is too long"
	}
	return true, ""
}

// ValidateLanguage checks a language hint. Empty means no hint.
func ValidateLanguage(lang string) (bool, string) {
	if _, err := models.ParseLanguage(lang); err != nil {
		return false, "language must be en, ar or empty"
	}
	return true, ""
}

// ValidatePattern checks a custom rule pattern before it is stored.
func ValidatePattern(p models.Pattern) (bool, string) {
	if err := p.Validate(); err != nil {
		return false, err.Error()
	}
	if utf8.RuneCountInString(p.Text) > MaxPatternLength {
		return false, "pattern is too long"
	}
	if len(normalize.Normalize(p.Text, "").Tokens) == 0 {
		return false, "pattern has no matchable text"
	}
	return true, ""
}

// ValidateStatusTransition checks a requested suggestion review outcome.
func ValidateStatusTransition(status string) (bool, string) {
	switch status {
	case models.SuggestionAccepted, models.SuggestionDismissed:
		return true, ""
	case models.SuggestionPending:
		return false, "suggestions cannot be reopened"
	}
	return false, "status must be accepted or dismissed"
}
