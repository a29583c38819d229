package dialogue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	turnsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "felia_turns_total",
		Help: "Inbound dialogue turns handled.",
	})
	searchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "felia_searches_total",
		Help: "Turns that reached the retrieval path.",
	})
	resultTurns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "felia_result_turns_total",
		Help: "Turns that ended with a product listing.",
	})
	oracleFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "felia_oracle_failures_total",
		Help: "Oracle calls absorbed into deterministic fallbacks.",
	}, []string{"op"})
)
