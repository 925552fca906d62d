package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_session_events_total",
		Help: "Pointer events applied to canvas sessions by type",
	}, []string{"type"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "canvas_sessions_active",
		Help: "Canvas sessions currently held in memory",
	})
)
