// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterVecValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, vec.WithLabelValues(labels...).Write(m))
	return m.GetCounter().GetValue()
}

func histogramCount(t *testing.T, vec *prometheus.HistogramVec, labels ...string) uint64 {
	t.Helper()
	obs, err := vec.GetMetricWithLabelValues(labels...)
	require.NoError(t, err)
	h, ok := obs.(prometheus.Histogram)
	require.True(t, ok)
	m := &dto.Metric{}
	require.NoError(t, h.Write(m))
	return m.GetHistogram().GetSampleCount()
}

func TestIncBusDrop_NormalizesEmptyLabels(t *testing.T) {
	before := counterVecValue(t, BusDroppedTotal, "unknown", "full")
	IncBusDrop("")
	assert.Equal(t, before+1, counterVecValue(t, BusDroppedTotal, "unknown", "full"))
}

func TestIncLoopDrop(t *testing.T) {
	before := counterVecValue(t, loopDroppedTotal, "view")
	IncLoopDrop("view")
	IncLoopDrop("view")
	assert.Equal(t, before+2, counterVecValue(t, loopDroppedTotal, "view"))
}

func TestIncCommand_FoldsUnknownMethods(t *testing.T) {
	before := counterVecValue(t, commandsTotal, "unknown", OutcomeRejected)
	IncCommand("someRandomMethod", OutcomeRejected, false)
	assert.Equal(t, before+1, counterVecValue(t, commandsTotal, "unknown", OutcomeRejected))

	beforePlay := counterVecValue(t, commandsTotal, "play", OutcomeOK)
	IncCommand("play", OutcomeOK, true)
	assert.Equal(t, beforePlay+1, counterVecValue(t, commandsTotal, "play", OutcomeOK))
}

func TestObserveMediaLoad(t *testing.T) {
	before := histogramCount(t, mediaLoadSeconds, "ok")
	ObserveMediaLoad("ok", 0.3)
	assert.Equal(t, before+1, histogramCount(t, mediaLoadSeconds, "ok"))
}
