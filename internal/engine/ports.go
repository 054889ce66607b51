package engine

import (
	"context"
	"time"

	"kwintel/internal/dictionary"
	"kwintel/internal/models"
)

// SnapshotRepository loads pinned dictionary snapshots. A nil version means
// the latest version.
type SnapshotRepository interface {
	LoadSnapshot(ctx context.Context, versionID *int64) (*dictionary.Snapshot, error)
	ListVersions(ctx context.Context) ([]int64, error)
}

// MetricsProvider returns performance metrics for a keyword. A nil result
// with a nil error means no metrics are known.
type MetricsProvider interface {
	GetMetrics(ctx context.Context, keywordID string) (*models.KeywordMetrics, error)
}

// Sink persists batch output.
type Sink interface {
	SaveDecisions(ctx context.Context, decisions []models.ActionDecision) error
	SaveSuggestions(ctx context.Context, suggestions []models.LeakageSuggestion) ([]models.LeakageSuggestion, error)
}

// Observer receives batch telemetry. Implementations must be safe for
// concurrent use; ObserveKeyword is called from worker goroutines.
type Observer interface {
	ObserveKeyword(pk models.ProcessedKeyword, d models.ActionDecision)
	ObserveBatch(size int, elapsed time.Duration)
}

// StaticMetrics serves metrics from an in-memory map.
type StaticMetrics map[string]models.KeywordMetrics

// GetMetrics implements MetricsProvider.
func (s StaticMetrics) GetMetrics(_ context.Context, keywordID string) (*models.KeywordMetrics, error) {
	m, ok := s[keywordID]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

// MetricsFunc adapts a function to MetricsProvider.
type MetricsFunc func(ctx context.Context, keywordID string) (*models.KeywordMetrics, error)

// GetMetrics implements MetricsProvider.
func (f MetricsFunc) GetMetrics(ctx context.Context, keywordID string) (*models.KeywordMetrics, error) {
	return f(ctx, keywordID)
}

type nopObserver struct{}

func (nopObserver) ObserveKeyword(models.ProcessedKeyword, models.ActionDecision) {}
func (nopObserver) ObserveBatch(int, time.Duration)                                {}
