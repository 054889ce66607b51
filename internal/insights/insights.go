// Package insights turns a classified keyword plus optional performance
// metrics into exactly one account-hygiene action.
//
// Decide is pure: it performs no I/O and its output depends only on its
// arguments and the engine thresholds.
package insights

import (
	"fmt"
	"sort"

	"kwintel/internal/dictionary"
	"kwintel/internal/models"
)

// DefaultCostThreshold is the spend above which a converting-free money
// intent keyword is flagged.
const DefaultCostThreshold = 200.0

// Thresholds configures the metric-driven decision step.
type Thresholds struct {
	CostThreshold float64 `yaml:"cost_threshold" json:"cost_threshold"`
}

// Engine decides actions.
type Engine struct {
	Thresholds Thresholds
}

// New creates an Engine. A non-positive cost threshold uses the default.
func New(t Thresholds) *Engine {
	if t.CostThreshold <= 0 {
		t.CostThreshold = DefaultCostThreshold
	}
	return &Engine{Thresholds: t}
}

// Decide evaluates the decision order and returns the first action that
// applies. metrics may be nil. rules are the custom rules of the pinned
// snapshot; only active rules in scope for the keyword's entity are used.
func (e *Engine) Decide(pk models.ProcessedKeyword, metrics *models.KeywordMetrics, rules []models.CustomRule) models.ActionDecision {
	d := models.ActionDecision{
		KeywordID:          pk.Keyword.ID,
		DecidedAtVersionID: pk.VersionID,
	}
	set := func(action models.ActionType, step models.DecisionStep, why string) models.ActionDecision {
		d.Action = action
		d.Step = step
		d.Rationale = fmt.Sprintf("%s: %s", step, why)
		return d
	}

	// Competitor and education terms are never acted on automatically,
	// whatever rules or metrics say.
	if pk.FinalCategory.IsProtected() {
		d.SafeguardTriggered = true
		return set(models.ActionReviewManually, models.StepSafeguard,
			fmt.Sprintf("%s terms require manual review", pk.FinalCategory))
	}

	if pk.FinalCategory == models.CategoryNoMoneyIntent {
		return set(models.ActionAddNegative, models.StepNoMoneyIntent, "no money intent")
	}

	if r, ok := OverrideFor(pk, rules); ok {
		return set(*r.ActionOverride, models.StepRuleOverride,
			fmt.Sprintf("rule %q (%s) sets %s", r.RuleKey, r.Pattern, *r.ActionOverride))
	}

	switch pk.FinalCategory {
	case models.CategoryMoneyIntent:
		if metrics != nil && metrics.Cost > e.Thresholds.CostThreshold && metrics.Conversions == 0 {
			why := fmt.Sprintf("cost %.2f over %.2f with no conversions", metrics.Cost, e.Thresholds.CostThreshold)
			if metrics.HasLandingPageMismatch() {
				return set(models.ActionAdjustLandingPage, models.StepSpendNoConvert, why+", landing page mismatch flagged")
			}
			return set(models.ActionAdjustAdCopy, models.StepSpendNoConvert, why)
		}
	case models.CategoryBrand:
		if !pk.Keyword.Isolated {
			return set(models.ActionMove, models.StepBrandComingling, "brand term co-mingled with non-brand traffic")
		}
	case models.CategoryGeo:
		if !pk.Keyword.Isolated {
			return set(models.ActionIsolate, models.StepGeoIsolation, "geo term not yet isolated")
		}
	case models.CategoryGeneric:
	case models.CategoryCompetitor, models.CategoryEducation, models.CategoryNoMoneyIntent:
		// handled above
	}

	return set(models.ActionNoAction, models.StepDefault, "no rule applies")
}

// OverrideFor returns the custom rule whose action override applies to the
// keyword: the rule must be active, in scope for the keyword's entity, carry
// an overridable action and match the keyword's tokens. Entity rules beat
// account rules, then higher priority, later version and rule key decide.
func OverrideFor(pk models.ProcessedKeyword, rules []models.CustomRule) (models.CustomRule, bool) {
	var hits []models.CustomRule
	for _, r := range rules {
		if r.ActionOverride == nil || !r.ActionOverride.Overridable() || !r.AppliesTo(pk.Keyword.EntityID) {
			continue
		}
		cp, err := dictionary.Compile(r.Pattern)
		if err != nil {
			continue
		}
		if len(cp.Spans(pk.NormalizedTerm.Tokens)) == 0 {
			continue
		}
		hits = append(hits, r)
	}
	if len(hits) == 0 {
		return models.CustomRule{}, false
	}
	sort.Slice(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.ScopeRank() != b.ScopeRank() {
			return a.ScopeRank() < b.ScopeRank()
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.VersionID != b.VersionID {
			return a.VersionID > b.VersionID
		}
		return a.RuleKey < b.RuleKey
	})
	return hits[0], true
}
