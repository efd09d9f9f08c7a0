// Package metrics defines and registers the custom Prometheus metrics of the
// identity service. It is the single source of truth for metric names, labels
// and help strings.
//
// Metrics are registered with the default registry on import (promauto) and
// exposed on GET /metrics next to echoprometheus' HTTP metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "identity"

// ── Auth outcomes ─────────────────────────────────────────────────────────────

// RegistrationsTotal counts register attempts that reached the service.
// Label:
//   - result: "created", "duplicate_email", "duplicate_username" or "error"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, by result.",
	},
	[]string{"result"},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: "success", "invalid_credentials" or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// AuthorizationsTotal counts bearer-token checks on protected routes.
// Label:
//   - result: "allowed", "missing_token", "invalid_token", "expired_token", "user_gone" or "error"
//
// The label is internal; callers always see a single 401.
var AuthorizationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authorizations_total",
		Help:      "Total number of request authorizations, by result.",
	},
	[]string{"result"},
)

// PasswordHashDuration measures hash and verify cost.
// Label:
//   - op: "hash", "verify" or "verify_dummy"
var PasswordHashDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "password_hash_duration_seconds",
		Help:      "Duration of password hashing and verification.",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
	},
	[]string{"op"},
)

// ── Audit queue ───────────────────────────────────────────────────────────────

// AuditQueueDepth tracks events waiting in each audit worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// AuditEventsTotal counts audit events by outcome.
// Labels:
//   - type: the auth event type (e.g. "login_failed")
//   - result: "written", "dropped" or "sink_error"
var AuditEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_total",
		Help:      "Total number of audit events, by type and delivery result.",
	},
	[]string{"type", "result"},
)
