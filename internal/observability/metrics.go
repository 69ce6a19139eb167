package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	badgesAwardedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gamification_service",
		Subsystem: "awards",
		Name:      "badges_awarded_total",
		Help:      "Number of badge awards persisted, labeled by badge.",
	}, []string{"badge_id"})

	duplicateAwardCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gamification_service",
		Subsystem: "awards",
		Name:      "duplicate_awards_skipped_total",
		Help:      "Award attempts skipped because the user already holds the badge.",
	})

	notificationFailureCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gamification_service",
		Subsystem: "awards",
		Name:      "notification_failures_total",
		Help:      "Badge notifications that failed after the award was persisted.",
	})

	lastAwardGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "gamification_service",
		Subsystem: "awards",
		Name:      "last_badge_awarded_timestamp_seconds",
		Help:      "Unix timestamp of the most recent badge award.",
	})

	evaluationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "gamification_service",
		Subsystem: "awards",
		Name:      "evaluation_duration_seconds",
		Help:      "Time spent computing stats and evaluating active badges for one user.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	participationTransitionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gamification_service",
		Subsystem: "participation",
		Name:      "status_transitions_total",
		Help:      "Participation status transitions, labeled by target status.",
	}, []string{"status"})

	sessionsLoggedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gamification_service",
		Subsystem: "participation",
		Name:      "workout_sessions_logged_total",
		Help:      "Workout sessions appended to participations.",
	})
)

func init() {
	prometheus.MustRegister(
		badgesAwardedCounter,
		duplicateAwardCounter,
		notificationFailureCounter,
		lastAwardGauge,
		evaluationDuration,
		participationTransitionCounter,
		sessionsLoggedCounter,
	)
}

// RecordBadgeAwarded counts a persisted award and moves the award watermark.
func RecordBadgeAwarded(badgeID string, ts time.Time) {
	badgesAwardedCounter.WithLabelValues(badgeID).Inc()
	if !ts.IsZero() {
		lastAwardGauge.Set(float64(ts.Unix()))
	}
}

// RecordDuplicateAward counts an award attempt that turned out to be a no-op.
func RecordDuplicateAward() {
	duplicateAwardCounter.Inc()
}

// RecordNotificationFailure counts a swallowed notification error.
func RecordNotificationFailure() {
	notificationFailureCounter.Inc()
}

// ObserveEvaluation records how long a badge evaluation pass took.
func ObserveEvaluation(d time.Duration) {
	evaluationDuration.Observe(d.Seconds())
}

// RecordStatusTransition counts a participation entering status.
func RecordStatusTransition(status string) {
	participationTransitionCounter.WithLabelValues(status).Inc()
}

// RecordSessionLogged counts an appended workout session.
func RecordSessionLogged() {
	sessionsLoggedCounter.Inc()
}
