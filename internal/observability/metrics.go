package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Domain collectors. Labels are bounded enums; domains and child IDs are
// never used as label values.
var (
	// PolicyDecisions counts non-dry-run decisions by action and reason.
	PolicyDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "policy_decisions_total",
			Help: "Access decisions by action and reason.",
		},
		[]string{"action", "reason"},
	)

	// ClassifierResults counts classification attempts by outcome
	// (ok, unavailable, unparseable).
	ClassifierResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classifier_results_total",
			Help: "Domain classification attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// HeartbeatSeconds sums the usage seconds accepted from heartbeats.
	HeartbeatSeconds = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "usage_heartbeat_seconds_total",
			Help: "Usage seconds recorded from heartbeats.",
		},
	)

	// QuotaGrants counts grant requests by whether usage was changed.
	QuotaGrants = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quota_grants_total",
			Help: "Time grants by whether recorded usage changed.",
		},
		[]string{"changed"},
	)
)

func init() {
	prometheus.MustRegister(PolicyDecisions, ClassifierResults, HeartbeatSeconds, QuotaGrants)
}

// ObserveGrant records a grant outcome.
func ObserveGrant(changed bool) {
	QuotaGrants.WithLabelValues(strconv.FormatBool(changed)).Inc()
}
