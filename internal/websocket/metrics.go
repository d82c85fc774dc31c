package websocket

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	Connections prometheus.Gauge
	Delivered   prometheus.Counter
	Dropped     prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ws_connections",
			Help: "Registered websocket connections.",
		}),
		Delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ws_broadcast_delivered_total",
			Help: "Frames enqueued to connections.",
		}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ws_broadcast_dropped_total",
			Help: "Frames dropped because a send queue overflowed.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Connections, m.Delivered, m.Dropped)
	}
	return m
}
