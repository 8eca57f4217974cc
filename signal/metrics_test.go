package signal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, RecordListeners: true})

	assert.NotNil(t, m)
	assert.Equal(t, "signal", m.MetricsName())
	assert.True(t, m.IsMetricsEnabled())
	assert.False(t, m.IsRegistered())

	assert.False(t, NewMetrics(MetricsConfig{}).IsMetricsEnabled())
}

func TestMetrics_RegisterMetrics(t *testing.T) {
	t.Run("registers all instruments", func(t *testing.T) {
		m := NewMetrics(MetricsConfig{Enabled: true, RecordListeners: true})
		require.NoError(t, m.RegisterMetrics(noop.NewMeterProvider().Meter("test")))

		assert.True(t, m.IsRegistered())
		assert.NotNil(t, m.emits)
		assert.NotNil(t, m.invocations)
		assert.NotNil(t, m.panics)
		assert.NotNil(t, m.emitDuration)
		assert.NotNil(t, m.listeners)
	})

	t.Run("idempotent registration", func(t *testing.T) {
		m := NewMetrics(MetricsConfig{Enabled: true})
		meter := noop.NewMeterProvider().Meter("test")

		require.NoError(t, m.RegisterMetrics(meter))
		require.NoError(t, m.RegisterMetrics(meter))
		assert.Nil(t, m.listeners, "gauge only with record_listeners")
	})
}

func TestMetrics_RecordBeforeRegister(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	assert.NotPanics(t, func() {
		m.RecordEmit(context.Background(), "s", Continue, time.Millisecond)
		m.RecordInvocation(context.Background(), "s", resultPanic)
	})
}

// ===== SDK 采集 测试 =====

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

// sumWhere adds up int64 sum points whose attributes contain every kv
func sumWhere(t *testing.T, m metricdata.Metrics, kvs ...attribute.KeyValue) int64 {
	t.Helper()

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)

	var total int64
	for _, dp := range sum.DataPoints {
		match := true
		for _, kv := range kvs {
			v, found := dp.Attributes.Value(kv.Key)
			if !found || v != kv.Value {
				match = false
				break
			}
		}
		if match {
			total += dp.Value
		}
	}
	return total
}

func TestSignal_MetricsRecorded(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	m := NewMetrics(MetricsConfig{Enabled: true, RecordListeners: true})
	require.NoError(t, m.RegisterMetrics(mp.Meter("test")))

	s := New[int](WithName("orders"), WithMetrics(m))
	s.On(func(ctx context.Context, n int) error { return nil })
	s.On(func(ctx context.Context, n int) error { return errors.New("soft failure") })
	s.On(func(ctx context.Context, n int) error { panic("boom") })
	s.On(func(ctx context.Context, n int) error { return ErrBreak })
	s.On(func(ctx context.Context, n int) error { return nil })

	s.Emit(context.Background(), 1)
	s.Emit(context.Background(), 2)

	metrics := collect(t, reader)
	signalAttr := attribute.String("signal", "orders")

	assert.Equal(t, int64(2), sumWhere(t, metrics["signal_emit_total"], signalAttr, attribute.String("halted_by", "break")))

	inv := metrics["signal_listener_invocations_total"]
	assert.Equal(t, int64(2), sumWhere(t, inv, attribute.String("result", "continue")))
	assert.Equal(t, int64(2), sumWhere(t, inv, attribute.String("result", resultError)))
	assert.Equal(t, int64(2), sumWhere(t, inv, attribute.String("result", resultPanic)))
	assert.Equal(t, int64(2), sumWhere(t, inv, attribute.String("result", "break")))
	assert.Equal(t, int64(8), sumWhere(t, inv, signalAttr))

	assert.Equal(t, int64(2), sumWhere(t, metrics["signal_listener_panics_total"], signalAttr))

	hist, ok := metrics["signal_emit_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(2), hist.DataPoints[0].Count)

	gauge, ok := metrics["signal_listeners"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(5), gauge.DataPoints[0].Value)
}

func TestSignal_MetricsSharedAcrossSignals(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	m := NewMetrics(MetricsConfig{Enabled: true, RecordListeners: true})
	require.NoError(t, m.RegisterMetrics(mp.Meter("test")))

	a := New[int](WithName("a"), WithMetrics(m))
	b := New[string](WithName("b"), WithMetrics(m))
	a.On(func(ctx context.Context, n int) error { return nil })
	b.On(func(ctx context.Context, s string) error { return nil })
	b.On(func(ctx context.Context, s string) error { return ErrUnsubscribe })

	a.Emit(context.Background(), 1)
	b.Emit(context.Background(), "x")

	metrics := collect(t, reader)
	emits := metrics["signal_emit_total"]
	assert.Equal(t, int64(1), sumWhere(t, emits, attribute.String("signal", "a"), attribute.String("halted_by", "continue")))
	assert.Equal(t, int64(1), sumWhere(t, emits, attribute.String("signal", "b"), attribute.String("halted_by", "unsubscribe")))

	gauge := metrics["signal_listeners"].Data.(metricdata.Gauge[int64])
	counts := make(map[string]int64)
	for _, dp := range gauge.DataPoints {
		name, _ := dp.Attributes.Value("signal")
		counts[name.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"a": 1, "b": 1}, counts)
}

func gaugeByName(t *testing.T, m metricdata.Metrics) map[string]int64 {
	t.Helper()

	gauge, ok := m.Data.(metricdata.Gauge[int64])
	require.True(t, ok, "metric %s is not an int64 gauge", m.Name)

	counts := make(map[string]int64)
	for _, dp := range gauge.DataPoints {
		name, _ := dp.Attributes.Value("signal")
		counts[name.AsString()] = dp.Value
	}
	return counts
}

func TestSignal_ListenerGaugeSumsSameName(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	m := NewMetrics(MetricsConfig{Enabled: true, RecordListeners: true})
	require.NoError(t, m.RegisterMetrics(mp.Meter("test")))

	first := New[int](WithMetrics(m))
	second := New[string](WithMetrics(m))
	for i := 0; i < 3; i++ {
		first.On(func(ctx context.Context, n int) error { return nil })
	}
	second.On(func(ctx context.Context, s string) error { return nil })

	require.Equal(t, first.Name(), second.Name())
	assert.Equal(t, map[string]int64{first.Name(): 4}, gaugeByName(t, collect(t, reader)["signal_listeners"]))

	first.Close()
	assert.Equal(t, 0, first.Len())
	assert.Equal(t, 1, m.tracked())
	assert.Equal(t, map[string]int64{second.Name(): 1}, gaugeByName(t, collect(t, reader)["signal_listeners"]))

	// idempotent, and the closed signal keeps working off the gauge
	first.Close()
	first.On(func(ctx context.Context, n int) error { return nil })
	assert.Equal(t, 1, m.tracked())
	assert.Equal(t, map[string]int64{second.Name(): 1}, gaugeByName(t, collect(t, reader)["signal_listeners"]))

	second.Close()
	assert.Equal(t, 0, m.tracked())
}

func TestSignal_CloseWithoutMetrics(t *testing.T) {
	s := New[int]()
	s.On(func(ctx context.Context, n int) error { return nil })

	assert.NotPanics(t, s.Close)
	assert.Equal(t, 0, s.Len())
}
