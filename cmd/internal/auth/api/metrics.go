package authapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts session lifecycle events.
type Metrics struct {
	Issued        prometheus.Counter
	Rotated       prometheus.Counter
	ReuseDetected prometheus.Counter
	Revoked       prometheus.Counter
}

// NewMetrics registers the auth counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Issued: factory.NewCounter(prometheus.CounterOpts{
			Name: "auth_sessions_issued_total",
			Help: "Sessions created by login or rotation.",
		}),
		Rotated: factory.NewCounter(prometheus.CounterOpts{
			Name: "auth_sessions_rotated_total",
			Help: "Successful refresh-token rotations.",
		}),
		ReuseDetected: factory.NewCounter(prometheus.CounterOpts{
			Name: "auth_refresh_reuse_detected_total",
			Help: "Refresh tokens presented after being consumed.",
		}),
		Revoked: factory.NewCounter(prometheus.CounterOpts{
			Name: "auth_sessions_revoked_total",
			Help: "Sessions revoked by logout or logout-all.",
		}),
	}
}
