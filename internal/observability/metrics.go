package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gate decision labels.
const (
	DecisionAllowPublic  = "allow_public"
	DecisionAllowStatic  = "allow_static"
	DecisionAllowSession = "allow_session"
	DecisionPromote      = "promote"
	DecisionDeny         = "deny"
)

// Metrics exposes Prometheus counters for the auth subsystem.
type Metrics struct {
	Requests       *prometheus.CounterVec
	Errors         *prometheus.CounterVec
	GateDecisions  *prometheus.CounterVec
	SignIns        *prometheus.CounterVec
	TokensIssued   prometheus.Counter
	TokensConsumed *prometheus.CounterVec
}

// NewMetrics registers all collectors with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by path, method and status.",
		}, []string{"path", "method", "status"}),
		Errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Request errors by domain error code.",
		}, []string{"code"}),
		GateDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_gate_decisions_total",
			Help: "Access-control gate outcomes per request.",
		}, []string{"decision"}),
		SignIns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_signin_total",
			Help: "Sign-in attempts by result.",
		}, []string{"result"}),
		TokensIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "auth_verification_tokens_issued_total",
			Help: "One-time verification tokens issued.",
		}),
		TokensConsumed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_verification_tokens_consumed_total",
			Help: "Verification link consumption attempts by result.",
		}, []string{"result"}),
	}
}
