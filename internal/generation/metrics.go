package generation

import "github.com/prometheus/client_golang/prometheus"

var attemptsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cast_generation_attempts_total",
		Help: "Generation backend calls by result.",
	},
	[]string{"result"}, // ok | backend_error | parse_error
)

func init() {
	prometheus.MustRegister(attemptsTotal)
}
