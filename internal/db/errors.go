package db

import "errors"

// Domain-level database error sentinels.
var (
	// Dictionary errors
	ErrNoVersions       = errors.New("no dictionary versions published")
	ErrVersionNotFound  = errors.New("dictionary version not found")
	ErrDuplicateEntry   = errors.New("term already exists in this version")
	ErrDuplicateRuleKey = errors.New("rule key already exists in this version")

	// Suggestion errors
	ErrSuggestionNotFound = errors.New("suggestion not found")
	ErrSuggestionClosed   = errors.New("suggestion has already been reviewed")
)
