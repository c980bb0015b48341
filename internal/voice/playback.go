package voice

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/parleyhq/parley/internal/observe"
	"github.com/parleyhq/parley/pkg/audiogen"
	"github.com/parleyhq/parley/pkg/speech"
)

// Playback plays assistant utterances with an at-most-one-concurrent
// invariant: starting a new utterance first cancels any in-flight one, and
// an explicit [Playback.Cancel] is idempotent and callable at any time.
//
// Supersession is tracked with a generation counter. Every Speak and Cancel
// bumps the generation; completion callbacks and late remote fetches compare
// their generation against the current one and become inert when stale, so a
// superseded fetch can never resurrect the speaking state or start
// unexpected audio.
type Playback struct {
	speaker speech.Speaker
	metrics *observe.Metrics

	mu         sync.Mutex
	gen        uint64
	speaking   bool
	cancelCur  func()             // active backend's cancel, nil when idle
	abortFetch context.CancelFunc // aborts the current utterance's context
}

// PlaybackOption is a functional option for configuring [Playback].
type PlaybackOption func(*Playback)

// WithPlaybackMetrics attaches metric instruments. When nil (the default) no
// metrics are recorded.
func WithPlaybackMetrics(m *observe.Metrics) PlaybackOption {
	return func(p *Playback) {
		p.metrics = m
	}
}

// NewPlayback creates a Playback over the given speaker, typically a
// [resilience.SpeakerFallback] composing [RemoteSpeaker] and [LocalSpeaker].
func NewPlayback(speaker speech.Speaker, opts ...PlaybackOption) *Playback {
	p := &Playback{speaker: speaker}
	for _, o := range opts {
		o(p)
	}
	return p
}

// IsSpeaking reports whether an assistant utterance is currently playing or
// being fetched.
func (p *Playback) IsSpeaking() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.speaking
}

// Speak starts speaking text with the given voice, cancelling any in-flight
// playback first. onDone is invoked exactly once when output ends naturally;
// it never fires for a superseded or cancelled utterance. onDone may be nil.
//
// The remote fetch and playback start run asynchronously; failures degrade
// through the speaker's fallback chain and, if every backend fails, are
// logged and swallowed — playback errors never surface to the user.
func (p *Playback) Speak(ctx context.Context, text, voice string, onDone func()) {
	p.mu.Lock()
	p.supersedeLocked()
	p.gen++
	gen := p.gen
	p.speaking = true
	ctx, p.abortFetch = context.WithCancel(ctx)
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.PlaybackRequests.Add(context.Background(), 1)
	}

	go p.start(ctx, gen, text, voice, onDone)
}

// start performs the fetch-and-play for one utterance generation.
func (p *Playback) start(ctx context.Context, gen uint64, text, voice string, onDone func()) {
	cancel, err := p.speaker.Speak(ctx, text, voice, func() {
		p.mu.Lock()
		if p.gen != gen {
			// Superseded; the newer utterance owns the speaking state.
			p.mu.Unlock()
			return
		}
		p.speaking = false
		p.cancelCur = nil
		p.mu.Unlock()
		if onDone != nil {
			onDone()
		}
	})

	p.mu.Lock()
	if err != nil {
		if p.gen == gen {
			p.speaking = false
		}
		p.mu.Unlock()
		slog.Warn("playback failed on all backends", "error", err)
		return
	}
	if p.gen != gen {
		// Superseded while starting: stop the stale audio immediately.
		p.mu.Unlock()
		cancel()
		return
	}
	if !p.speaking {
		// The backend completed synchronously before we got here; storing
		// its cancel would re-invoke it on the next Speak or Cancel.
		p.mu.Unlock()
		return
	}
	p.cancelCur = cancel
	p.mu.Unlock()
}

// Cancel stops any in-flight playback immediately, on both the remote-audio
// and local-synthesis paths. Calling it when nothing is playing is a safe
// no-op.
func (p *Playback) Cancel() {
	p.mu.Lock()
	p.supersedeLocked()
	p.gen++
	p.speaking = false
	p.mu.Unlock()
}

// supersedeLocked aborts the current utterance's context and stops its
// backend, if any. Caller holds p.mu. The stored cancel funcs are invoked
// inline; both are safe to call under the lock since backends must not call
// back into Playback from cancel.
func (p *Playback) supersedeLocked() {
	if p.abortFetch != nil {
		p.abortFetch()
		p.abortFetch = nil
	}
	if p.cancelCur != nil {
		p.cancelCur()
		p.cancelCur = nil
	}
}

// RemoteSpeaker is the primary [speech.Speaker]: it fetches a synthesised
// clip from the audio-generation endpoint and plays it through the host
// audio primitive.
type RemoteSpeaker struct {
	Client *audiogen.Client
	Player speech.Player

	// Metrics, when non-nil, receives the fetch latency of every
	// generation request, successful or not.
	Metrics *observe.Metrics
}

var _ speech.Speaker = (*RemoteSpeaker)(nil)

// Speak fetches a clip for text and starts playback. Any fetch or playback
// start failure is returned so the fallback chain can take over.
func (r *RemoteSpeaker) Speak(ctx context.Context, text, voice string, onDone func()) (func(), error) {
	start := time.Now()
	clip, err := r.Client.Generate(ctx, text, voice)
	if r.Metrics != nil {
		r.Metrics.AudiogenDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		return nil, err
	}
	stop, err := r.Player.Play(clip, onDone)
	if err != nil {
		return nil, err
	}
	return stop, nil
}

// LocalSpeaker is the fallback [speech.Speaker] backed by the host's
// built-in speech synthesis.
type LocalSpeaker struct {
	Synth speech.Synthesizer
}

var _ speech.Speaker = (*LocalSpeaker)(nil)

// Speak queues text on the host synthesizer. The voice identifier is ignored
// — the host picks its own default voice. Cancellation maps to the host's
// cancel-all, which is the only cancellation primitive local synthesis has.
func (l *LocalSpeaker) Speak(_ context.Context, text, _ string, onDone func()) (func(), error) {
	l.Synth.Speak(text, onDone)
	return l.Synth.CancelAll, nil
}
