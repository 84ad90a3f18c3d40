package services

import "github.com/prometheus/client_golang/prometheus"

// Webhook outcomes.
const (
	OutcomeInvalid          = "invalid"
	OutcomeUnsupported      = "unsupported_event"
	OutcomeDuplicate        = "duplicate"
	OutcomeIgnored          = "not_addressed"
	OutcomeAlreadyResponded = "already_responded"
	OutcomeGenerationFailed = "generation_exhausted"
	OutcomePublishFailed    = "publish_failed"
	OutcomeUpstreamFailed   = "upstream_failed"
	OutcomeSuppressed       = "suppressed"
	OutcomeAnswered         = "answered"
	OutcomeInternalError    = "error"
)

var webhookEvents = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cast_webhook_events_total",
		Help: "Webhook events processed, by outcome.",
	},
	[]string{"outcome"},
)

var dedupEntries = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "cast_dedup_entries",
		Help: "Live entries in the webhook dedup cache.",
	},
)

func init() {
	prometheus.MustRegister(webhookEvents, dedupEntries)
}
