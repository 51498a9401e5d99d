// Package metrics exposes the gateway's Prometheus counters: store mutation
// outcomes, forward-auth decisions, and OIDC login outcomes.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	storeMutations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authgate_store_mutations_total",
		Help: "Total store mutation attempts by operation and outcome",
	}, []string{"operation", "outcome"})

	forwardAuthOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authgate_forwardauth_requests_total",
		Help: "Total forward-auth validation requests by proxy kind and outcome",
	}, []string{"proxy", "outcome"})

	oidcLogins = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authgate_oidc_logins_total",
		Help: "Total OIDC login attempts by outcome",
	}, []string{"outcome"})

	initOnce sync.Once
)

// Init registers the gateway's collectors. Must be called once at startup,
// before the /metrics handler serves its first scrape.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(storeMutations, forwardAuthOutcomes, oidcLogins)
	})
}

// RecordStoreMutation increments the mutation counter for operation
// ("create_entry", "update_group", …) and outcome ("ok" or "error").
func RecordStoreMutation(operation, outcome string) {
	storeMutations.WithLabelValues(operation, outcome).Inc()
}

// RecordForwardAuth increments the forward-auth outcome counter for the
// given proxy kind ("traefik"/"nginx") and outcome ("allow"/"deny").
func RecordForwardAuth(proxy, outcome string) {
	forwardAuthOutcomes.WithLabelValues(proxy, outcome).Inc()
}

// RecordOIDCLogin increments the login-outcome counter ("success",
// "claims_rejected", "error").
func RecordOIDCLogin(outcome string) {
	oidcLogins.WithLabelValues(outcome).Inc()
}
