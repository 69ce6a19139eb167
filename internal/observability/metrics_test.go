package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordBadgeAwardedMovesWatermark(t *testing.T) {
	before := testutil.ToFloat64(badgesAwardedCounter.WithLabelValues("badge-metrics"))
	earned := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	RecordBadgeAwarded("badge-metrics", earned)
	require.Equal(t, before+1, testutil.ToFloat64(badgesAwardedCounter.WithLabelValues("badge-metrics")))
	require.Equal(t, float64(earned.Unix()), testutil.ToFloat64(lastAwardGauge))

	RecordBadgeAwarded("badge-metrics", time.Time{})
	require.Equal(t, float64(earned.Unix()), testutil.ToFloat64(lastAwardGauge), "zero time leaves the watermark")
}

func TestRecordStatusTransition(t *testing.T) {
	before := testutil.ToFloat64(participationTransitionCounter.WithLabelValues("completed"))
	RecordStatusTransition("completed")
	require.Equal(t, before+1, testutil.ToFloat64(participationTransitionCounter.WithLabelValues("completed")))
}

func TestObserveEvaluation(t *testing.T) {
	ObserveEvaluation(3 * time.Millisecond)
	require.Equal(t, 1, testutil.CollectAndCount(evaluationDuration))
}
