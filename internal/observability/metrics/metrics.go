// Package metrics registers the engine's prometheus collectors.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Module provides the metrics registry.
var Module = fx.Module("observability.metrics",
	fx.Provide(New),
)

type Metrics struct {
	sessionsIngested   *prometheus.CounterVec
	entitlementDenials *prometheus.CounterVec
	softLimitsReached  *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		sessionsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cadence_sessions_ingested_total",
			Help: "Session records accepted, by outcome.",
		}, []string{"outcome"}),
		entitlementDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cadence_entitlement_denials_total",
			Help: "Entitlement decisions that locked a user, by reason.",
		}, []string{"reason"}),
		softLimitsReached: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cadence_soft_limits_reached_total",
			Help: "Organization soft-limit thresholds newly reached.",
		}, []string{"threshold"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cadence_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	prometheus.MustRegister(
		m.sessionsIngested,
		m.entitlementDenials,
		m.softLimitsReached,
		m.httpDuration,
	)
	return m
}

func (m *Metrics) IncSessionIngested(outcome string) {
	if m == nil {
		return
	}
	m.sessionsIngested.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncEntitlementDenial(reason string) {
	if m == nil {
		return
	}
	m.entitlementDenials.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncSoftLimitReached(thresholdPercent int) {
	if m == nil {
		return
	}
	m.softLimitsReached.WithLabelValues(strconv.Itoa(thresholdPercent)).Inc()
}

// GinMiddleware records request latency per route.
func GinMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpDuration.WithLabelValues(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}
