package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/parleyhq/parley/internal/observe"
)

func TestFallbackGroup_PrimaryFirst(t *testing.T) {
	t.Parallel()

	fg := NewFallbackGroup("primary-value", "primary", FallbackConfig{})
	fg.Add("secondary", "secondary-value")

	var seen []string
	err := fg.Execute(func(name string, v string) error {
		seen = append(seen, v)
		return nil
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(seen) != 1 || seen[0] != "primary-value" {
		t.Errorf("tried = %v, want [primary-value]", seen)
	}
}

func TestFallbackGroup_FailoverOrder(t *testing.T) {
	t.Parallel()

	fg := NewFallbackGroup("a", "a", FallbackConfig{})
	fg.Add("b", "b")
	fg.Add("c", "c")

	var seen []string
	err := fg.Execute(func(name string, v string) error {
		seen = append(seen, v)
		if v != "c" {
			return errBoom
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := []string{"a", "b", "c"}
	if len(seen) != len(want) {
		t.Fatalf("tried = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("tried = %v, want %v", seen, want)
		}
	}
}

func TestFallbackGroup_AllFailed(t *testing.T) {
	t.Parallel()

	fg := NewFallbackGroup("a", "a", FallbackConfig{})
	fg.Add("b", "b")

	err := fg.Execute(func(string, string) error { return errBoom })
	if !errors.Is(err, ErrAllFailed) {
		t.Errorf("Execute: err = %v, want ErrAllFailed", err)
	}
}

func TestFallbackGroup_SkipsOpenBreaker(t *testing.T) {
	t.Parallel()

	fg := NewFallbackGroup("a", "a", FallbackConfig{
		Breaker: BreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour},
	})
	fg.Add("b", "b")

	// Trip the primary's breaker.
	_ = fg.Execute(func(_ string, v string) error {
		if v == "a" {
			return errBoom
		}
		return nil
	})

	// The primary is skipped without being invoked.
	var seen []string
	err := fg.Execute(func(_ string, v string) error {
		seen = append(seen, v)
		return nil
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(seen) != 1 || seen[0] != "b" {
		t.Errorf("tried = %v, want [b] (open primary must be skipped)", seen)
	}
}

// fakeSpeaker implements speech.Speaker for fallback testing.
type fakeSpeaker struct {
	err    error
	spoken []string
}

func (f *fakeSpeaker) Speak(_ context.Context, text, _ string, onDone func()) (func(), error) {
	if f.err != nil {
		return nil, f.err
	}
	f.spoken = append(f.spoken, text)
	if onDone != nil {
		onDone()
	}
	return func() {}, nil
}

func TestSpeakerFallback_DegradesToLocal(t *testing.T) {
	t.Parallel()

	remote := &fakeSpeaker{err: errBoom}
	local := &fakeSpeaker{}

	sf := NewSpeakerFallback(remote, "audiogen", FallbackConfig{})
	sf.Add("synthesis", local)

	done := false
	cancel, err := sf.Speak(context.Background(), "hello", "nova", func() { done = true })
	if err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if cancel == nil {
		t.Fatal("Speak: cancel = nil")
	}
	if len(local.spoken) != 1 || local.spoken[0] != "hello" {
		t.Errorf("local.spoken = %v, want [hello]", local.spoken)
	}
	if !done {
		t.Error("completion callback did not fire")
	}
}

// fallbackCount sums the parley.playback.fallbacks counter.
func fallbackCount(t *testing.T, reader *sdkmetric.ManualReader) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if md.Name != "parley.playback.fallbacks" {
				continue
			}
			sum, ok := md.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("data type = %T, want Sum[int64]", md.Data)
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestSpeakerFallback_CountsNonPrimaryServes(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	sf := NewSpeakerFallback(&fakeSpeaker{err: errBoom}, "audiogen", FallbackConfig{},
		WithSpeakerMetrics(m))
	sf.Add("synthesis", &fakeSpeaker{})

	if _, err := sf.Speak(context.Background(), "hello", "nova", nil); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if got := fallbackCount(t, reader); got != 1 {
		t.Errorf("fallbacks = %d, want 1 after degrading to synthesis", got)
	}
}

func TestSpeakerFallback_PrimaryServeNotCounted(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	sf := NewSpeakerFallback(&fakeSpeaker{}, "audiogen", FallbackConfig{},
		WithSpeakerMetrics(m))
	sf.Add("synthesis", &fakeSpeaker{})

	if _, err := sf.Speak(context.Background(), "hello", "nova", nil); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if got := fallbackCount(t, reader); got != 0 {
		t.Errorf("fallbacks = %d, want 0 when the primary serves", got)
	}
}

func TestSpeakerFallback_AllFail(t *testing.T) {
	t.Parallel()

	sf := NewSpeakerFallback(&fakeSpeaker{err: errBoom}, "audiogen", FallbackConfig{})
	sf.Add("synthesis", &fakeSpeaker{err: errBoom})

	if _, err := sf.Speak(context.Background(), "hello", "nova", nil); !errors.Is(err, ErrAllFailed) {
		t.Errorf("Speak: err = %v, want ErrAllFailed", err)
	}
}
