package actions

import "github.com/prometheus/client_golang/prometheus"

var repliesPublished = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cast_replies_published_total",
		Help: "Replies published, by path (action or default).",
	},
	[]string{"path"},
)

func init() {
	prometheus.MustRegister(repliesPublished)
}
