package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestHistogramObservation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	histograms := []struct {
		name string
		h    metric.Float64Histogram
	}{
		{"parley.capture.duration", m.CaptureDuration},
		{"parley.audiogen.duration", m.AudiogenDuration},
	}
	for _, h := range histograms {
		h.h.Record(ctx, 0.42)
	}

	rm := collect(t, reader)
	for _, h := range histograms {
		md := findMetric(rm, h.name)
		if md == nil {
			t.Errorf("metric %q not found after recording", h.name)
			continue
		}
		hist, ok := md.Data.(metricdata.Histogram[float64])
		if !ok {
			t.Errorf("metric %q: data type = %T, want Histogram[float64]", h.name, md.Data)
			continue
		}
		if got := hist.DataPoints[0].Count; got != 1 {
			t.Errorf("metric %q: count = %d, want 1", h.name, got)
		}
	}
}

func TestCounterIncrements(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.CaptureRestarts.Add(ctx, 1)
	m.CaptureRestarts.Add(ctx, 1)
	m.CaptureSends.Add(ctx, 1)
	m.PlaybackRequests.Add(ctx, 3)

	rm := collect(t, reader)

	checks := []struct {
		name string
		want int64
	}{
		{"parley.capture.restarts", 2},
		{"parley.capture.sends", 1},
		{"parley.playback.requests", 3},
	}
	for _, c := range checks {
		md := findMetric(rm, c.name)
		if md == nil {
			t.Errorf("metric %q not found", c.name)
			continue
		}
		sum, ok := md.Data.(metricdata.Sum[int64])
		if !ok {
			t.Errorf("metric %q: data type = %T, want Sum[int64]", c.name, md.Data)
			continue
		}
		if got := sum.DataPoints[0].Value; got != c.want {
			t.Errorf("metric %q: value = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestRecordSuggestion(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordSuggestion(ctx, "lawyer", 14.54)

	rm := collect(t, reader)

	md := findMetric(rm, "parley.suggestions")
	if md == nil {
		t.Fatal("metric parley.suggestions not found")
	}
	sum, ok := md.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("data type = %T, want Sum[int64]", md.Data)
	}
	dp := sum.DataPoints[0]
	if dp.Value != 1 {
		t.Errorf("suggestions = %d, want 1", dp.Value)
	}
	if v, ok := dp.Attributes.Value(attribute.Key("persona")); !ok || v.AsString() != "lawyer" {
		t.Errorf("persona attribute = %v, want lawyer", v)
	}

	sc := findMetric(rm, "parley.suggestion.score")
	if sc == nil {
		t.Fatal("metric parley.suggestion.score not found")
	}
	hist, ok := sc.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("data type = %T, want Histogram[float64]", sc.Data)
	}
	if got := hist.DataPoints[0].Sum; got < 14.5 || got > 14.6 {
		t.Errorf("score sum = %v, want ~14.54", got)
	}
}

func TestRecordPlaybackFallback(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordPlaybackFallback(context.Background(), "synthesis")

	rm := collect(t, reader)
	md := findMetric(rm, "parley.playback.fallbacks")
	if md == nil {
		t.Fatal("metric parley.playback.fallbacks not found")
	}
	sum, ok := md.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("data type = %T, want Sum[int64]", md.Data)
	}
	dp := sum.DataPoints[0]
	if dp.Value != 1 {
		t.Errorf("fallbacks = %d, want 1", dp.Value)
	}
	if v, ok := dp.Attributes.Value(attribute.Key("backend")); !ok || v.AsString() != "synthesis" {
		t.Errorf("backend attribute = %v, want synthesis", v)
	}
}

func TestActiveStreamsUpDown(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ActiveStreams.Add(ctx, 1)
	m.ActiveStreams.Add(ctx, 1)
	m.ActiveStreams.Add(ctx, -1)

	rm := collect(t, reader)
	md := findMetric(rm, "parley.active_streams")
	if md == nil {
		t.Fatal("metric parley.active_streams not found")
	}
	sum, ok := md.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("data type = %T, want Sum[int64]", md.Data)
	}
	if got := sum.DataPoints[0].Value; got != 1 {
		t.Errorf("active streams = %d, want 1", got)
	}
}
