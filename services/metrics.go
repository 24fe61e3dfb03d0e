package services

import "github.com/prometheus/client_golang/prometheus"

var (
	challengeFinalizations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "challenge_finalizations_total",
			Help: "Challenges finalized by the lazy completion check",
		},
		[]string{"result"},
	)
	statsRecomputes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "participant_stats_recomputes_total",
			Help: "Participant stats recompute attempts",
		},
		[]string{"result"},
	)
	leaderboardBuilds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "global_leaderboard_builds_total",
			Help: "Global leaderboard computations by cache outcome",
		},
		[]string{"source"},
	)
)

// InitMetrics registers the engine metrics. Call this from main.go, after
// middleware.InitPrometheus.
func InitMetrics() {
	prometheus.MustRegister(challengeFinalizations)
	prometheus.MustRegister(statsRecomputes)
	prometheus.MustRegister(leaderboardBuilds)
}
