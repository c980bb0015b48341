// Package observe provides application-wide observability primitives for
// Parley: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Parley metrics.
const meterName = "github.com/parleyhq/parley"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// CaptureDuration tracks the wall-clock length of a capture session,
	// from mic-on to user stop.
	CaptureDuration metric.Float64Histogram

	// AudiogenDuration tracks remote audio-generation request latency.
	AudiogenDuration metric.Float64Histogram

	// SuggestionScore tracks the winning expert-context score of each
	// evaluated transcript. Use with attribute:
	//   attribute.String("context", ...)
	SuggestionScore metric.Float64Histogram

	// --- Counters ---

	// CaptureRestarts counts silent auto-restarts after unsolicited
	// recognizer ends.
	CaptureRestarts metric.Int64Counter

	// CaptureSends counts finalized transcripts delivered to the caller.
	CaptureSends metric.Int64Counter

	// PlaybackRequests counts utterances submitted for playback.
	PlaybackRequests metric.Int64Counter

	// PlaybackFallbacks counts utterances that degraded past the primary
	// backend. Use with attribute:
	//   attribute.String("backend", ...)
	PlaybackFallbacks metric.Int64Counter

	// Suggestions counts persona suggestions surfaced to the user. Use
	// with attribute:
	//   attribute.String("persona", ...)
	Suggestions metric.Int64Counter

	// --- Gauges ---

	// ActiveStreams tracks the number of connected transcript-stream
	// subscribers.
	ActiveStreams metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes:
	//   attribute.String("route", ...), attribute.Int("status", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for voice-interaction latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// scoreBuckets defines histogram bucket boundaries for expert-context
// scores. The suggestion threshold sits at 5.
var scoreBuckets = []float64{
	1, 2, 3, 4, 5, 7.5, 10, 15, 25, 50,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.CaptureDuration, err = m.Float64Histogram("parley.capture.duration",
		metric.WithDescription("Length of a capture session from start to user stop."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AudiogenDuration, err = m.Float64Histogram("parley.audiogen.duration",
		metric.WithDescription("Latency of remote audio-generation requests."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SuggestionScore, err = m.Float64Histogram("parley.suggestion.score",
		metric.WithDescription("Winning expert-context score per evaluated transcript."),
		metric.WithExplicitBucketBoundaries(scoreBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.CaptureRestarts, err = m.Int64Counter("parley.capture.restarts",
		metric.WithDescription("Silent capture restarts after unsolicited recognizer ends."),
	); err != nil {
		return nil, err
	}
	if met.CaptureSends, err = m.Int64Counter("parley.capture.sends",
		metric.WithDescription("Finalized transcripts delivered on user stop."),
	); err != nil {
		return nil, err
	}
	if met.PlaybackRequests, err = m.Int64Counter("parley.playback.requests",
		metric.WithDescription("Utterances submitted for playback."),
	); err != nil {
		return nil, err
	}
	if met.PlaybackFallbacks, err = m.Int64Counter("parley.playback.fallbacks",
		metric.WithDescription("Utterances served by a non-primary backend."),
	); err != nil {
		return nil, err
	}
	if met.Suggestions, err = m.Int64Counter("parley.suggestions",
		metric.WithDescription("Persona suggestions surfaced to the user by persona ID."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveStreams, err = m.Int64UpDownCounter("parley.active_streams",
		metric.WithDescription("Connected transcript-stream subscribers."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("parley.http.request.duration",
		metric.WithDescription("HTTP request latency by matched route."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordSuggestion records one surfaced persona suggestion together with the
// score that produced it.
func (m *Metrics) RecordSuggestion(ctx context.Context, personaID string, score float64) {
	m.Suggestions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("persona", personaID)),
	)
	m.SuggestionScore.Record(ctx, score,
		metric.WithAttributes(attribute.String("context", personaID)),
	)
}

// RecordPlaybackFallback records an utterance served by a non-primary
// backend.
func (m *Metrics) RecordPlaybackFallback(ctx context.Context, backend string) {
	m.PlaybackFallbacks.Add(ctx, 1,
		metric.WithAttributes(attribute.String("backend", backend)),
	)
}
