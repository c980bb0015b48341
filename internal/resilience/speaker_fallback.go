package resilience

import (
	"context"

	"github.com/parleyhq/parley/internal/observe"
	"github.com/parleyhq/parley/pkg/speech"
)

// SpeakerFallback implements [speech.Speaker] with automatic failover across
// ordered speaking backends. In the standard wiring the primary is the
// remote audio-generation path and the single fallback is the host's local
// speech synthesis, so repeated endpoint failures open the remote breaker
// and utterances go straight to local synthesis without waiting on timeouts.
type SpeakerFallback struct {
	group   *FallbackGroup[speech.Speaker]
	primary string
	metrics *observe.Metrics
}

var _ speech.Speaker = (*SpeakerFallback)(nil)

// SpeakerOption is a functional option for configuring a [SpeakerFallback].
type SpeakerOption func(*SpeakerFallback)

// WithSpeakerMetrics attaches metric instruments; every utterance served by a
// non-primary backend is counted. When nil (the default) no metrics are
// recorded.
func WithSpeakerMetrics(m *observe.Metrics) SpeakerOption {
	return func(f *SpeakerFallback) {
		f.metrics = m
	}
}

// NewSpeakerFallback creates a [SpeakerFallback] with primary as the
// preferred backend.
func NewSpeakerFallback(primary speech.Speaker, primaryName string, cfg FallbackConfig, opts ...SpeakerOption) *SpeakerFallback {
	f := &SpeakerFallback{
		group:   NewFallbackGroup(primary, primaryName, cfg),
		primary: primaryName,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Add registers an additional speaking backend, tried after the primary.
func (f *SpeakerFallback) Add(name string, s speech.Speaker) {
	f.group.Add(name, s)
}

// Speak starts output on the first healthy backend. Only starting is covered
// by failover; once a backend has begun speaking, its completion and cancel
// semantics apply unchanged.
func (f *SpeakerFallback) Speak(ctx context.Context, text, voice string, onDone func()) (func(), error) {
	return ExecuteWithResult(f.group, func(name string, s speech.Speaker) (func(), error) {
		cancel, err := s.Speak(ctx, text, voice, onDone)
		if err == nil && name != f.primary && f.metrics != nil {
			f.metrics.RecordPlaybackFallback(ctx, name)
		}
		return cancel, err
	})
}
