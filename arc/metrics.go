// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package arc

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exports session outcomes. Attach it to sessions as an
// Observer; it implements RunningObserver and StateObserver too.
type Metrics struct {
	stops    *prometheus.CounterVec
	bootTime *prometheus.HistogramVec
	state    prometheus.Gauge
}

// NewMetrics registers the session metrics with registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		stops: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arc",
			Subsystem: "session",
			Name:      "stops_total",
			Help:      "Sessions that reached STOPPED, by reason and whether they ever ran.",
		}, []string{"reason", "was_running"}),
		bootTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "arc",
			Subsystem: "session",
			Name:      "boot_seconds",
			Help:      "Time from Start to each running state.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"mode"}),
		state: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "arc",
			Subsystem: "session",
			Name:      "state",
			Help:      "Current session state, in lifecycle order (0 NOT_STARTED to 6 STOPPED).",
		}),
	}
}

func (m *Metrics) OnSessionStopped(reason StopReason, wasRunning bool) {
	m.stops.WithLabelValues(reason.String(), strconv.FormatBool(wasRunning)).Inc()
}

func (m *Metrics) OnSessionRunning(mode Mode, bootTime time.Duration) {
	m.bootTime.WithLabelValues(mode.String()).Observe(bootTime.Seconds())
}

func (m *Metrics) OnSessionStateChanged(state State) {
	m.state.Set(float64(state))
}
