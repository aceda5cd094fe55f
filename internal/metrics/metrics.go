// Package metrics provides Prometheus instrumentation for Credstore
// core operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Verification result labels.
const (
	ResultValid    = "valid"
	ResultNotFound = "not_found"
	ResultRevoked  = "revoked"
	ResultExpired  = "expired"
	ResultError    = "error"
)

// Metrics holds the Prometheus collectors for the credential core.
type Metrics struct {
	// KeysIssued counts access keys created.
	KeysIssued prometheus.Counter

	// Verifications counts verification attempts by outcome. The collapsed
	// "invalid" result keeps its specific reason here and in the logs.
	Verifications *prometheus.CounterVec

	// Revocations counts revoke operations.
	Revocations prometheus.Counter

	// UsageLogFailures counts usage events that could not be written and
	// were swallowed with a warning.
	UsageLogFailures prometheus.Counter
}

// New creates the collectors and registers them with reg.
// Pass nil to create unregistered collectors (useful in tests).
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		KeysIssued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "credstore",
			Name:      "access_keys_issued_total",
			Help:      "Total number of access keys issued.",
		}),
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "credstore",
			Name:      "key_verifications_total",
			Help:      "Total number of access key verification attempts by result.",
		}, []string{"result"}),
		Revocations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "credstore",
			Name:      "access_keys_revoked_total",
			Help:      "Total number of access key revocations.",
		}),
		UsageLogFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "credstore",
			Name:      "usage_log_failures_total",
			Help:      "Total number of usage events dropped due to write failures.",
		}),
	}
}
