// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/video360/internal/metrics"
)

func getCounterValue(t *testing.T, counter prometheus.Counter) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, counter.Write(metric))
	return metric.GetCounter().GetValue()
}

func TestMemoryBusPublishContextTimeoutIncrementsDropMetrics(t *testing.T) {
	b := NewMemoryBusWithBuffer(4)
	sub, err := b.Subscribe(context.Background(), "topic")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Close() })

	for i := 0; i < cap(sub.C()); i++ {
		require.NoError(t, b.Publish(context.Background(), "topic", "msg"))
	}

	initial := getCounterValue(t, metrics.BusDroppedTotal.WithLabelValues("topic", "timeout"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = b.Publish(ctx, "topic", "blocked")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	final := getCounterValue(t, metrics.BusDroppedTotal.WithLabelValues("topic", "timeout"))
	require.Greater(t, final, initial, "expected bus drop counter to increase")
}

func TestMemoryBusPublishRejectsNilContext(t *testing.T) {
	b := NewMemoryBus()
	//nolint:staticcheck // nil context is the case under test
	err := b.Publish(nil, "topic", "msg")
	require.Error(t, err)
	require.Contains(t, err.Error(), "context is nil")
}

func TestMemoryBusTryPublishIsLossy(t *testing.T) {
	b := NewMemoryBusWithBuffer(2)
	slow, err := b.Subscribe(context.Background(), "view")
	require.NoError(t, err)
	defer slow.Close()

	initial := getCounterValue(t, metrics.BusDroppedTotal.WithLabelValues("view", "full"))

	require.True(t, b.TryPublish("view", 1))
	require.True(t, b.TryPublish("view", 2))
	require.False(t, b.TryPublish("view", 3))

	require.Equal(t, 1, <-slow.C())
	require.Equal(t, 2, <-slow.C())
	select {
	case m := <-slow.C():
		t.Fatalf("unexpected message %v", m)
	default:
	}
	require.Equal(t, initial+1, getCounterValue(t, metrics.BusDroppedTotal.WithLabelValues("view", "full")))
}

func TestMemoryBusCloseUnblocksPublisher(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := NewMemoryBusWithBuffer(1)
	sub, err := b.Subscribe(context.Background(), "view")
	require.NoError(t, err)
	require.NoError(t, b.Publish(context.Background(), "view", "first"))

	errCh := make(chan error, 1)
	go func() { errCh <- b.Publish(context.Background(), "view", "second") }()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, sub.Close())
	require.NoError(t, <-errCh)
	require.Equal(t, 0, b.Subscribers("view"))

	// Closed subscription drains the buffered message and then ends.
	var got []Message
	for m := range sub.C() {
		got = append(got, m)
	}
	require.Equal(t, []Message{"first"}, got)
	require.NoError(t, sub.Close())
}
