// Package voice implements the press-to-talk capture state machine and the
// non-overlapping playback controller that together form the voice I/O
// engine.
//
// The host speech recognizer is a noisy primitive: it ends a capture segment
// on its own every few seconds of silence, even while the user is still
// conceptually "recording". [CaptureEngine] papers over this by running the
// recognizer in non-continuous mode and simulating continuity in software —
// every unsolicited end event triggers a delayed restart that preserves the
// accumulated transcript, so the user experiences one uninterrupted
// recording between pressing start and pressing stop.
//
// [Playback] guarantees at most one assistant utterance plays at a time and
// degrades from the remote audio-generation endpoint to the host's local
// speech synthesis through a [speech.Speaker] fallback chain.
//
// Both types serialise their event handling with an internal mutex and are
// safe for concurrent use.
package voice

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/parleyhq/parley/internal/observe"
	"github.com/parleyhq/parley/pkg/speech"
)

// defaultRestartDelay is the pause before restarting capture after an
// unsolicited recognizer end, avoiding a busy-restart loop.
const defaultRestartDelay = 200 * time.Millisecond

// defaultLanguage is the recognition language applied when none is
// configured.
const defaultLanguage = "en-US"

// CaptureCallbacks is the event sink for a [CaptureEngine]. Any field may be
// nil.
type CaptureCallbacks struct {
	// OnTranscript receives the live transcript after every recognition
	// result event. This is the only notification the UI sees during an
	// active session.
	OnTranscript func(live string)

	// OnSend receives the final trimmed transcript when the user
	// explicitly stops with non-empty accumulated text. Invoked exactly
	// once per stop; never invoked for empty or whitespace-only sessions.
	OnSend func(text string)

	// OnRecordingChange reports recording-state transitions the user
	// should see. Auto-restarts do not trigger it — the illusion of
	// continuous listening is the point.
	OnRecordingChange func(recording bool)

	// OnUnsupported fires when a recording operation is attempted but the
	// host has no speech-recognition capability.
	OnUnsupported func()
}

// CaptureOption is a functional option for configuring a [CaptureEngine].
type CaptureOption func(*CaptureEngine)

// WithRestartDelay overrides the auto-restart delay. Mainly for tests.
func WithRestartDelay(d time.Duration) CaptureOption {
	return func(e *CaptureEngine) {
		e.restartDelay = d
	}
}

// WithLanguage sets the recognition language tag. Default: "en-US".
func WithLanguage(lang string) CaptureOption {
	return func(e *CaptureEngine) {
		e.language = lang
	}
}

// WithInterrupt installs a hook invoked right before capture starts. The
// application wires [Playback.Cancel] here so the assistant never talks over
// the user.
func WithInterrupt(fn func()) CaptureOption {
	return func(e *CaptureEngine) {
		e.interrupt = fn
	}
}

// WithCaptureMetrics attaches metric instruments. When nil (the default) no
// metrics are recorded.
func WithCaptureMetrics(m *observe.Metrics) CaptureOption {
	return func(e *CaptureEngine) {
		e.metrics = m
	}
}

// CaptureEngine turns the restart-prone host recognizer into a reliable
// press-to-talk, release-to-send interaction.
//
// The session state machine is driven by two flags: active (between user
// start and user stop) and finalizeAndSend (set only by an explicit stop).
// The recognizer's end event consults them to distinguish "engine timed out,
// restart silently" from "user stopped, deliver the transcript".
type CaptureEngine struct {
	rec          speech.Recognizer // nil when the capability is absent
	cb           CaptureCallbacks
	restartDelay time.Duration
	language     string
	interrupt    func()
	metrics      *observe.Metrics

	mu              sync.Mutex
	active          bool
	finalizeAndSend bool
	finalText       string // accumulated finalized segments, space-joined
	interim         string // current in-progress segment text
	live            string // last pushed live transcript
	startedAt       time.Time
}

// NewCaptureEngine creates a CaptureEngine over the given recognizer. A nil
// recognizer is valid and marks the capability as unsupported: every
// recording operation becomes a no-op that reports "not supported" through
// the OnUnsupported callback.
func NewCaptureEngine(rec speech.Recognizer, cb CaptureCallbacks, opts ...CaptureOption) *CaptureEngine {
	e := &CaptureEngine{
		rec:          rec,
		cb:           cb,
		restartDelay: defaultRestartDelay,
		language:     defaultLanguage,
	}
	for _, o := range opts {
		o(e)
	}

	if rec != nil {
		// Continuous mode stays off: it triggers an audio feedback defect
		// on at least one common mobile platform. Continuity is simulated
		// via the auto-restart in handleEnd.
		rec.Configure(speech.Config{
			Continuous:     false,
			InterimResults: true,
			Language:       e.language,
		})
		rec.SetHandlers(speech.Handlers{
			OnResult: e.handleResult,
			OnError:  e.handleError,
			OnEnd:    e.handleEnd,
		})
	}
	return e
}

// Supported reports whether the host provides a speech-recognition
// capability.
func (e *CaptureEngine) Supported() bool {
	return e.rec != nil
}

// Recording reports whether a capture session is active.
func (e *CaptureEngine) Recording() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// Live returns the most recent live transcript.
func (e *CaptureEngine) Live() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.live
}

// Toggle is the "press mic button" operation.
//
// Inactive → cancel any in-flight playback, clear the transcript buffers,
// and start capture. Active → mark the session for finalize-and-send and
// request the recognizer stop; the actual send happens in the end handler
// once all pending results have arrived. Unsupported → report and return.
func (e *CaptureEngine) Toggle() {
	if e.rec == nil {
		slog.Warn("capture toggle ignored: speech recognition not supported")
		if e.cb.OnUnsupported != nil {
			e.cb.OnUnsupported()
		}
		return
	}

	e.mu.Lock()
	if e.active {
		e.active = false
		e.finalizeAndSend = true
		startedAt := e.startedAt
		e.mu.Unlock()

		if e.metrics != nil && !startedAt.IsZero() {
			e.metrics.CaptureDuration.Record(context.Background(), time.Since(startedAt).Seconds())
		}
		e.notifyRecording(false)
		e.rec.Stop()
		return
	}

	e.finalText = ""
	e.interim = ""
	e.live = ""
	e.active = true
	e.finalizeAndSend = false
	e.startedAt = time.Now()
	e.mu.Unlock()

	// The user's voice must never compete with assistant audio.
	if e.interrupt != nil {
		e.interrupt()
	}
	e.notifyRecording(true)

	if err := e.rec.Start(); err != nil {
		slog.Warn("capture start failed", "error", err)
		e.mu.Lock()
		e.active = false
		e.mu.Unlock()
		e.notifyRecording(false)
	}
}

// handleResult processes one recognizer result event: final segments are
// appended to the accumulated transcript, interim segments become the
// current in-progress text, and the combined live transcript is pushed to
// the caller.
func (e *CaptureEngine) handleResult(segments []speech.Segment) {
	e.mu.Lock()
	if !e.active && !e.finalizeAndSend {
		// Late event after a forced end; nothing to accumulate into.
		e.mu.Unlock()
		return
	}

	var final, interim strings.Builder
	for _, seg := range segments {
		if len(seg.Alternatives) == 0 {
			continue
		}
		text := seg.Alternatives[0].Transcript
		if seg.IsFinal {
			final.WriteString(text)
		} else {
			interim.WriteString(text)
		}
	}

	if final.Len() > 0 {
		e.finalText += final.String() + " "
	}
	e.interim = interim.String()
	e.live = normalizeTranscript(e.finalText + e.interim)

	live := e.live
	onTranscript := e.cb.OnTranscript
	e.mu.Unlock()

	if onTranscript != nil {
		onTranscript(live)
	}
}

// handleError force-ends the session on permission or capture-device
// errors. Every other error kind is ignored; the recognizer's own end event
// governs what happens next.
func (e *CaptureEngine) handleError(kind speech.ErrorKind) {
	if kind != speech.ErrNotAllowed && kind != speech.ErrAudioCapture {
		slog.Debug("recognizer error ignored", "kind", kind)
		return
	}

	slog.Warn("capture session terminated by recognizer error", "kind", kind)
	e.mu.Lock()
	wasActive := e.active
	e.active = false
	e.finalizeAndSend = false
	e.mu.Unlock()

	if wasActive {
		e.notifyRecording(false)
	}
}

// handleEnd is the core state-machine transition, fired whenever the
// recognizer ends a capture segment — periodically on its own, after an
// error, or in response to Stop.
func (e *CaptureEngine) handleEnd() {
	e.mu.Lock()
	switch {
	case e.active && !e.finalizeAndSend:
		// Recognizer timeout, not a user stop: restart without losing the
		// buffer and without telling the caller anything happened.
		e.mu.Unlock()
		if e.metrics != nil {
			e.metrics.CaptureRestarts.Add(context.Background(), 1)
		}
		time.AfterFunc(e.restartDelay, e.restart)

	case e.finalizeAndSend:
		e.finalizeAndSend = false
		text := normalizeTranscript(e.finalText + e.interim)
		e.finalText = ""
		e.interim = ""
		e.live = ""
		onSend := e.cb.OnSend
		e.mu.Unlock()

		if text == "" {
			return
		}
		if e.metrics != nil {
			e.metrics.CaptureSends.Add(context.Background(), 1)
		}
		if onSend != nil {
			onSend(text)
		}

	default:
		// Session already force-ended; nothing to do.
		e.mu.Unlock()
	}
}

// restart resumes capture after an unsolicited end, unless the session was
// stopped in the meantime. Start failures (e.g., a double-start race with
// the host) are swallowed.
func (e *CaptureEngine) restart() {
	e.mu.Lock()
	resume := e.active && !e.finalizeAndSend
	e.mu.Unlock()
	if !resume {
		return
	}
	if err := e.rec.Start(); err != nil {
		slog.Debug("capture auto-restart swallowed error", "error", err)
	}
}

func (e *CaptureEngine) notifyRecording(recording bool) {
	if e.cb.OnRecordingChange != nil {
		e.cb.OnRecordingChange(recording)
	}
}

// normalizeTranscript collapses whitespace runs to single spaces and trims
// leading/trailing whitespace. Idempotent.
func normalizeTranscript(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
