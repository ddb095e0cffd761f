// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BusDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "video360_bus_dropped_total",
		Help: "Total number of in-memory bus message drops by topic and reason",
	}, []string{"topic", "reason"})

	loopDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "video360_loop_dropped_total",
		Help: "Callbacks dropped because a coordination loop queue was full",
	}, []string{"loop"})
)

// IncBusDrop records a dropped bus message for the given topic.
func IncBusDrop(topic string) {
	IncBusDropReason(topic, "full")
}

// IncBusDropReason records a dropped bus message with a concrete reason.
func IncBusDropReason(topic, reason string) {
	BusDroppedTotal.WithLabelValues(orUnknown(topic), orUnknown(reason)).Inc()
}

// IncLoopDrop records a TryPost that found the loop queue full.
// Loop names are per kind ("view", "tracker"), never per instance.
func IncLoopDrop(loop string) {
	loopDroppedTotal.WithLabelValues(orUnknown(loop)).Inc()
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
