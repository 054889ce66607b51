// Package engine pins a dictionary snapshot and runs keywords through the
// normalizer, classifier, leakage suggester and action engine.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"kwintel/internal/classifier"
	"kwintel/internal/dictionary"
	"kwintel/internal/insights"
	"kwintel/internal/leakage"
	"kwintel/internal/models"
	"kwintel/internal/normalize"
	"kwintel/internal/validation"
)

// Config tunes an Engine.
type Config struct {
	Workers    int
	MinClicks  int64
	Thresholds insights.Thresholds
	Observer   Observer
}

// Engine runs batches against snapshots loaded from a repository.
type Engine struct {
	snapshots SnapshotRepository
	suggester *leakage.Suggester
	decider   *insights.Engine
	workers   int
	observer  Observer
	matchers  *matcherCache
}

// New creates an Engine. Zero config values fall back to defaults.
func New(snapshots SnapshotRepository, cfg Config) *Engine {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	observer := cfg.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	return &Engine{
		snapshots: snapshots,
		suggester: leakage.New(cfg.MinClicks),
		decider:   insights.New(cfg.Thresholds),
		workers:   workers,
		observer:  observer,
		matchers:  newMatcherCache(),
	}
}

// BatchResult is the output of one pinned batch. Processed and Decisions are
// in input order.
type BatchResult struct {
	VersionID   int64                      `json:"version_id"`
	Processed   []models.ProcessedKeyword  `json:"processed"`
	Decisions   []models.ActionDecision    `json:"decisions"`
	Suggestions []models.LeakageSuggestion `json:"suggestions"`
}

// Snapshot loads the pinned snapshot, or the latest when version is nil.
func (e *Engine) Snapshot(ctx context.Context, version *int64) (*dictionary.Snapshot, error) {
	snap, err := e.snapshots.LoadSnapshot(ctx, version)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSnapshotUnavailable, err)
	}
	if snap == nil {
		return nil, fmt.Errorf("%w: repository returned no snapshot", ErrSnapshotUnavailable)
	}
	return snap, nil
}

// Versions lists the dictionary versions known to the repository.
func (e *Engine) Versions(ctx context.Context) ([]int64, error) {
	versions, err := e.snapshots.ListVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSnapshotUnavailable, err)
	}
	return versions, nil
}

// Normalize canonicalizes raw keyword text.
func (e *Engine) Normalize(raw string, hint models.Language) models.NormalizedTerm {
	return normalize.Normalize(raw, hint)
}

// Classify classifies one keyword against a freshly pinned snapshot.
func (e *Engine) Classify(ctx context.Context, kw models.Keyword, version *int64) (models.ProcessedKeyword, error) {
	snap, err := e.Snapshot(ctx, version)
	if err != nil {
		return models.ProcessedKeyword{}, err
	}
	pk, _ := Process(e.matchers.get(snap.View(kw.EntityID)), kw)
	return pk, nil
}

// Decide classifies one keyword and decides its action.
func (e *Engine) Decide(ctx context.Context, kw models.Keyword, metrics *models.KeywordMetrics, version *int64) (models.ProcessedKeyword, models.ActionDecision, error) {
	snap, err := e.Snapshot(ctx, version)
	if err != nil {
		return models.ProcessedKeyword{}, models.ActionDecision{}, err
	}
	view := snap.View(kw.EntityID)
	pk, verr := Process(e.matchers.get(view), kw)
	d := e.decide(pk, verr, metrics, view.Rules())
	e.observer.ObserveKeyword(pk, d)
	return pk, d, nil
}

// SuggestLeakage runs the leakage suggester over already processed keywords.
func (e *Engine) SuggestLeakage(keywords []models.ProcessedKeyword, metrics map[string]models.KeywordMetrics) []models.LeakageSuggestion {
	return e.suggester.Suggest(keywords, metrics)
}

// RunBatch pins one snapshot and processes every keyword against it. A
// failing metrics lookup is logged and treated as missing metrics; only an
// unavailable snapshot or a cancelled context fails the batch.
func (e *Engine) RunBatch(ctx context.Context, keywords []models.Keyword, version *int64, metrics MetricsProvider) (*BatchResult, error) {
	start := time.Now()

	snap, err := e.Snapshot(ctx, version)
	if err != nil {
		return nil, err
	}

	// One view and automaton per entity, shared read-only by the workers.
	type entityView struct {
		matcher *classifier.Matcher
		rules   []models.CustomRule
	}
	views := make(map[string]*entityView)
	for _, kw := range keywords {
		if _, ok := views[kw.EntityID]; ok {
			continue
		}
		v := snap.View(kw.EntityID)
		views[kw.EntityID] = &entityView{matcher: e.matchers.get(v), rules: v.Rules()}
	}

	res := &BatchResult{
		VersionID: snap.VersionID(),
		Processed: make([]models.ProcessedKeyword, len(keywords)),
		Decisions: make([]models.ActionDecision, len(keywords)),
	}
	found := make([]*models.KeywordMetrics, len(keywords))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, kw := range keywords {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ev := views[kw.EntityID]
			pk, verr := Process(ev.matcher, kw)
			m := lookupMetrics(gctx, metrics, kw.ID)
			d := e.decide(pk, verr, m, ev.rules)

			res.Processed[i] = pk
			res.Decisions[i] = d
			found[i] = m
			e.observer.ObserveKeyword(pk, d)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byID := make(map[string]models.KeywordMetrics, len(keywords))
	for i, m := range found {
		if m != nil {
			byID[keywords[i].ID] = *m
		}
	}
	res.Suggestions = e.suggester.Suggest(res.Processed, byID)

	e.observer.ObserveBatch(len(keywords), time.Since(start))
	slog.Info("batch processed",
		"version", res.VersionID,
		"keywords", len(keywords),
		"suggestions", len(res.Suggestions),
		"duration", time.Since(start))
	return res, nil
}

// Process validates and classifies one keyword with a prepared matcher.
// Malformed input is downgraded to generic and the validation error is
// returned alongside for the caller's decision step.
func Process(m *classifier.Matcher, kw models.Keyword) (models.ProcessedKeyword, *ValidationError) {
	if verr := validateKeyword(kw); verr != nil {
		pk := models.ProcessedKeyword{
			Keyword:        kw,
			NormalizedTerm: models.NormalizedTerm{Original: kw.Text, Language: models.LanguageUnknown, Tokens: []string{}},
			Matches:        []models.Match{},
			FinalCategory:  models.CategoryGeneric,
			Evidence:       []string{verr.Error()},
			VersionID:      m.VersionID(),
		}
		return pk, verr
	}

	hint, err := models.ParseLanguage(string(kw.LanguageHint))
	var langNote string
	if err != nil {
		langNote = fmt.Sprintf("%v %q: language detected from text", ErrUnknownLanguage, kw.LanguageHint)
		hint = models.LanguageUnknown
	}

	pk := m.Classify(normalize.Normalize(kw.Text, hint))
	pk.Keyword = kw
	if langNote != "" {
		pk.Evidence = append([]string{langNote}, pk.Evidence...)
	}
	return pk, nil
}

func (e *Engine) decide(pk models.ProcessedKeyword, verr *ValidationError, metrics *models.KeywordMetrics, rules []models.CustomRule) models.ActionDecision {
	if verr != nil {
		return models.ActionDecision{
			KeywordID:          pk.Keyword.ID,
			Action:             models.ActionNoAction,
			Step:               models.StepDefault,
			Rationale:          fmt.Sprintf("%s: %v", models.StepDefault, verr),
			DecidedAtVersionID: pk.VersionID,
		}
	}
	return e.decider.Decide(pk, metrics, rules)
}

func validateKeyword(kw models.Keyword) *ValidationError {
	if ok, msg := validation.ValidateID(kw.ID); !ok {
		return &ValidationError{Field: "id", Reason: msg}
	}
	if ok, msg := validation.ValidateKeywordText(kw.Text); !ok {
		return &ValidationError{Field: "text", Reason: msg}
	}
	return nil
}

func lookupMetrics(ctx context.Context, p MetricsProvider, keywordID string) *models.KeywordMetrics {
	if p == nil || keywordID == "" {
		return nil
	}
	m, err := p.GetMetrics(ctx, keywordID)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Warn("metrics lookup failed, deciding without metrics", "keyword_id", keywordID, "error", err)
		}
		return nil
	}
	return m
}
