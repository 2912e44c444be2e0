package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters and gauges for the live broadcast path.
var (
	ConnectedViewers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "live_connected_viewers",
		Help: "Number of currently connected viewer sessions.",
	})

	BroadcastsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "live_broadcasts_total",
		Help: "Total number of snapshots published on the live channel.",
	})

	DroppedFramesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "live_dropped_frames_total",
		Help: "Frames dropped because a viewer's send buffer was full.",
	})
)
