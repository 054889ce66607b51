package models

import "fmt"

// Language identifies the script a keyword is written in.
type Language string

// Language constants
const (
	LanguageEN      Language = "en"
	LanguageAR      Language = "ar"
	LanguageUnknown Language = "unknown"
)

// ParseLanguage converts a hint string to a Language. Empty input yields
// LanguageUnknown with no error so callers can treat it as "no hint".
func ParseLanguage(s string) (Language, error) {
	switch Language(s) {
	case LanguageEN, LanguageAR:
		return Language(s), nil
	case "", LanguageUnknown:
		return LanguageUnknown, nil
	}
	return LanguageUnknown, fmt.Errorf("unknown language %q", s)
}

// Category is the intent/safety class assigned to a keyword.
type Category string

// Category constants
const (
	CategoryMoneyIntent   Category = "money_intent"
	CategoryNoMoneyIntent Category = "no_money_intent"
	CategoryCompetitor    Category = "competitor"
	CategoryEducation     Category = "education"
	CategoryGeo           Category = "geo"
	CategoryBrand         Category = "brand"
	CategoryGeneric       Category = "generic"
)

// Categories lists every category from strongest to weakest precedence.
var Categories = []Category{
	CategoryCompetitor,
	CategoryEducation,
	CategoryNoMoneyIntent,
	CategoryMoneyIntent,
	CategoryGeo,
	CategoryBrand,
	CategoryGeneric,
}

// Precedence returns the rank used to break ties between non-overlapping
// matches. Lower wins. Unknown categories rank after Generic.
func (c Category) Precedence() int {
	switch c {
	case CategoryCompetitor:
		return 0
	case CategoryEducation:
		return 1
	case CategoryNoMoneyIntent:
		return 2
	case CategoryMoneyIntent:
		return 3
	case CategoryGeo:
		return 4
	case CategoryBrand:
		return 5
	case CategoryGeneric:
		return 6
	}
	return len(Categories)
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c.Precedence() < len(Categories)
}

// IsProtected reports whether terms in this category must never be
// auto-negated.
func (c Category) IsProtected() bool {
	return c == CategoryCompetitor || c == CategoryEducation
}

// ParseCategory converts a string to a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// ActionType is the account-hygiene action recommended for a keyword.
type ActionType string

// Action constants
const (
	ActionMove              ActionType = "move"
	ActionIsolate           ActionType = "isolate"
	ActionAdjustAdCopy      ActionType = "adjust_ad_copy"
	ActionAdjustLandingPage ActionType = "adjust_landing_page"
	ActionAddNegative       ActionType = "add_negative"
	ActionReviewManually    ActionType = "review_manually"
	ActionNoAction          ActionType = "no_action"
)

// Actions lists every action type.
var Actions = []ActionType{
	ActionMove,
	ActionIsolate,
	ActionAdjustAdCopy,
	ActionAdjustLandingPage,
	ActionAddNegative,
	ActionReviewManually,
	ActionNoAction,
}

// Valid reports whether a is one of the known actions.
func (a ActionType) Valid() bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

// Overridable reports whether a custom rule may force this action.
func (a ActionType) Overridable() bool {
	switch a {
	case ActionMove, ActionIsolate, ActionAdjustAdCopy, ActionAdjustLandingPage:
		return true
	}
	return false
}

// ParseAction converts a string to an ActionType.
func ParseAction(s string) (ActionType, error) {
	a := ActionType(s)
	if !a.Valid() {
		return "", fmt.Errorf("unknown action %q", s)
	}
	return a, nil
}
