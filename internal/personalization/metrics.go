package personalization

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	feedbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "personalization_feedback_total",
			Help: "Total number of feedback events applied",
		},
		[]string{"kind"},
	)

	matchScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "personalization_match_scores",
			Help:    "Distribution of candidate match scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	candidatesFiltered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "personalization_candidates_filtered_total",
			Help: "Candidates rejected by the hard blocklist gate",
		},
	)

	diversificationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "personalization_diversification_total",
			Help: "Diversification outcomes by mode (bucketed or flat fallback)",
		},
		[]string{"mode"},
	)

	degradedReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "personalization_degraded_reads_total",
			Help: "Store reads that degraded to empty defaults",
		},
		[]string{"source"},
	)

	patternLocks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "personalization_pattern_locks_total",
			Help: "Pattern-lock detections forcing wider exploration",
		},
	)

	promotionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "personalization_soft_promotions_total",
			Help: "Soft-to-hard blocklist promotion sweeps that promoted entries",
		},
	)

	cycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "personalization_cycle_duration_seconds",
			Help: "Duration of one score-and-diversify cycle",
		},
	)
)

func RecordFeedback(kind string) {
	feedbackTotal.WithLabelValues(kind).Inc()
}

func RecordMatchScore(score float64) {
	matchScores.Observe(score)
}

func RecordFiltered() {
	candidatesFiltered.Inc()
}

func RecordDiversification(mode string) {
	diversificationTotal.WithLabelValues(mode).Inc()
}

func RecordDegradedRead(source string) {
	degradedReads.WithLabelValues(source).Inc()
}

func RecordPatternLock() {
	patternLocks.Inc()
}

func RecordPromotion() {
	promotionsTotal.Inc()
}

func RecordCycleDuration(d time.Duration) {
	cycleDuration.Observe(d.Seconds())
}
