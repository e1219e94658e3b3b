package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the arena's prometheus collectors. A fresh registry per
// instance keeps tests independent.
type Metrics struct {
	QueueDepth      *prometheus.GaugeVec
	SearchTimeouts  *prometheus.CounterVec
	MatchesStarted  *prometheus.CounterVec
	MatchesFinished *prometheus.CounterVec
	MovesTotal      prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		QueueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "arena_queue_depth",
			Help: "Players currently waiting in a matchmaking queue",
		}, []string{"queue"}),
		SearchTimeouts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_search_timeouts_total",
			Help: "Searches that expired without finding an opponent",
		}, []string{"queue"}),
		MatchesStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_matches_started_total",
			Help: "Matches created by the matchmaking queues",
		}, []string{"queue"}),
		MatchesFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_matches_finished_total",
			Help: "Matches settled, by terminal outcome",
		}, []string{"outcome"}),
		MovesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "arena_moves_total",
			Help: "Accepted board moves",
		}),
	}
}

// QueueLabel maps the staked flag to the queue metric label.
func QueueLabel(staked bool) string {
	if staked {
		return "star"
	}
	return "trophy"
}
