package sweep

import "github.com/prometheus/client_golang/prometheus"

var (
	sweepRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gamification_service",
		Subsystem: "sweep",
		Name:      "runs_total",
		Help:      "Badge re-evaluation sweeps by outcome.",
	}, []string{"outcome"})
	sweptUsers = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gamification_service",
		Subsystem: "sweep",
		Name:      "users_total",
		Help:      "Users re-evaluated by sweeps.",
	})
	repairedAwards = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gamification_service",
		Subsystem: "sweep",
		Name:      "awards_total",
		Help:      "Badges awarded by sweeps rather than by session writes.",
	})
)

func init() {
	prometheus.MustRegister(sweepRuns, sweptUsers, repairedAwards)
}
