package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"kwintel/internal/models"
)

var (
	suggestionsDesc = prometheus.NewDesc(
		"kwintel_leakage_suggestions",
		"Leakage suggestions currently stored, by review status",
		[]string{"status"},
		nil,
	)
)

// SuggestionCounter reports stored suggestion counts. Implemented by the
// database.
type SuggestionCounter interface {
	CountSuggestionsByStatus(ctx context.Context) (map[string]int64, error)
}

// SuggestionCollector is a custom Prometheus collector that reads suggestion
// counts from the database on each scrape.
type SuggestionCollector struct {
	counter SuggestionCounter
	timeout time.Duration
}

// NewSuggestionCollector creates a collector over counter.
func NewSuggestionCollector(counter SuggestionCounter) *SuggestionCollector {
	return &SuggestionCollector{counter: counter, timeout: 5 * time.Second}
}

// Describe sends the metric descriptor to the channel.
func (c *SuggestionCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- suggestionsDesc
}

// Collect queries the database for suggestion counts and emits them as gauges.
func (c *SuggestionCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	counts, err := c.counter.CountSuggestionsByStatus(ctx)
	if err != nil {
		slog.Error("failed to collect suggestion metrics", "error", err)
		return
	}
	for status, n := range counts {
		ch <- prometheus.MustNewConstMetric(
			suggestionsDesc,
			prometheus.GaugeValue,
			float64(n),
			status,
		)
	}
}

// Recorder counts classification and decision outcomes. It implements the
// engine's batch observer and is safe for concurrent use.
type Recorder struct {
	classifications *prometheus.CounterVec
	decisions       *prometheus.CounterVec
	safeguards      prometheus.Counter
	batchDuration   prometheus.Histogram
	batchSize       prometheus.Histogram
}

// NewRecorder creates a Recorder and registers its metrics with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kwintel_classifications_total",
			Help: "Keywords classified, by final category",
		}, []string{"category"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kwintel_decisions_total",
			Help: "Action decisions, by action and the decision step that fired",
		}, []string{"action", "step"}),
		safeguards: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kwintel_safeguard_triggers_total",
			Help: "Decisions routed to manual review by the competitor/education safeguard",
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kwintel_batch_duration_seconds",
			Help:    "Wall time of pinned batch runs",
			Buckets: prometheus.DefBuckets,
		}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kwintel_batch_keywords",
			Help:    "Keywords per batch run",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
	reg.MustRegister(r.classifications, r.decisions, r.safeguards, r.batchDuration, r.batchSize)
	return r
}

// ObserveKeyword records one classified and decided keyword.
func (r *Recorder) ObserveKeyword(pk models.ProcessedKeyword, d models.ActionDecision) {
	r.classifications.WithLabelValues(string(pk.FinalCategory)).Inc()
	r.decisions.WithLabelValues(string(d.Action), string(d.Step)).Inc()
	if d.SafeguardTriggered {
		r.safeguards.Inc()
	}
}

// ObserveBatch records one batch run.
func (r *Recorder) ObserveBatch(size int, elapsed time.Duration) {
	r.batchDuration.Observe(elapsed.Seconds())
	r.batchSize.Observe(float64(size))
}

var (
	recorder     *Recorder
	recorderOnce sync.Once
)

// Init registers the custom collector and the recorder with the default
// registry and returns the recorder. Safe to call more than once.
func Init(counter SuggestionCounter) *Recorder {
	recorderOnce.Do(func() {
		recorder = NewRecorder(prometheus.DefaultRegisterer)
		if counter != nil {
			prometheus.MustRegister(NewSuggestionCollector(counter))
		}
	})
	return recorder
}
