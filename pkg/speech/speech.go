// Package speech defines the host-capability interfaces the voice engine is
// built against: a speech [Recognizer], a local [Synthesizer] used as the
// playback fallback, and a [Player] for synthesised audio clips.
//
// On the web front-end these map onto the browser globals (the recognition
// object, speechSynthesis, and the Audio element). Keeping them as injected
// interfaces lets the capture and playback state machines be unit-tested with
// scripted fakes that deterministically emit the same event sequences — see
// the mock subpackage.
//
// A capability may simply be absent from the host (most commonly the
// recognizer). Callers express this by passing a nil interface value; the
// engine records it as "unsupported" and degrades to no-ops rather than
// erroring.
package speech

import "context"

// Config holds the fixed recognizer options the engine applies to every
// recognition session.
type Config struct {
	// Continuous enables the recognizer's own continuous-capture mode.
	// The engine always sets this to false: continuous mode triggers an
	// audio feedback defect on at least one common mobile platform, so
	// continuity across recognizer timeouts is simulated in software
	// instead (see the voice package).
	Continuous bool

	// InterimResults requests partial transcripts before a segment is
	// finalised. Required for live UI feedback.
	InterimResults bool

	// Language is the BCP-47 recognition language tag (e.g., "en-US").
	Language string
}

// Alternative is one ranked recognition hypothesis for a segment.
type Alternative struct {
	// Transcript is the recognised text for this hypothesis.
	Transcript string

	// Confidence is the recogniser's confidence (0.0–1.0). May be zero
	// when the host does not report confidence.
	Confidence float64
}

// Segment is one recognised span within a result event. A result event
// delivers zero or more segments, each carrying ranked alternatives and a
// final/interim flag.
type Segment struct {
	// Alternatives is the ranked hypothesis list, best first. Never empty
	// for a well-formed event; consumers use Alternatives[0].
	Alternatives []Alternative

	// IsFinal reports whether the recogniser has committed to this segment.
	// Interim segments may still be revised by later events.
	IsFinal bool
}

// ErrorKind identifies a recognizer error event. The set of values mirrors
// the host's error codes; only the two below change engine behaviour.
type ErrorKind string

const (
	// ErrNotAllowed means the user denied microphone permission.
	ErrNotAllowed ErrorKind = "not-allowed"

	// ErrAudioCapture means no usable capture device is available.
	ErrAudioCapture ErrorKind = "audio-capture"

	// ErrNoSpeech is emitted when a capture segment ends without detecting
	// speech. Ignored by the engine; the end event governs what happens next.
	ErrNoSpeech ErrorKind = "no-speech"

	// ErrAborted is emitted when the host aborts a capture segment.
	ErrAborted ErrorKind = "aborted"

	// ErrNetwork is emitted when the host's recognition service is
	// unreachable.
	ErrNetwork ErrorKind = "network"
)

// Handlers is the event sink a [Recognizer] delivers into. Any field may be
// nil, in which case that event kind is dropped.
//
// The host delivers events sequentially: result events for a capture segment
// are delivered in arrival order, and the end event for a segment always
// runs after all of that segment's result events.
type Handlers struct {
	// OnResult delivers the segments of one result event, in event order.
	OnResult func(segments []Segment)

	// OnError delivers a recognizer error. The recognizer's own end event
	// still follows and governs subsequent behaviour.
	OnError func(kind ErrorKind)

	// OnEnd signals that the current capture segment has ended, whether
	// naturally (silence timeout), after Stop, or following an error.
	OnEnd func()
}

// Recognizer is the speech-recognition capability. Implementations wrap a
// host recognition primitive and must deliver events through the handler set
// installed with SetHandlers.
//
// Event delivery is sequential; implementations must not deliver two events
// concurrently.
type Recognizer interface {
	// Configure applies the session options. Called once by the engine
	// before the first Start.
	Configure(cfg Config)

	// SetHandlers installs the event sink. Must be called before Start.
	SetHandlers(h Handlers)

	// Start begins a capture segment. Starting an already-started
	// recognizer returns an error (the engine swallows it on auto-restart).
	Start() error

	// Stop requests the current capture segment to end. The recognizer
	// emits any pending result events followed by an end event. Stopping
	// an idle recognizer is a no-op.
	Stop()
}

// Synthesizer is the host's built-in speech synthesis, used as the playback
// fallback when the remote audio-generation endpoint fails.
type Synthesizer interface {
	// Speak queues text for synthesis. onDone is invoked exactly once when
	// speech finishes naturally; it is not invoked after CancelAll.
	// onDone may be nil.
	Speak(text string, onDone func())

	// CancelAll discards all queued and in-progress utterances. Calling it
	// when nothing is queued is a safe no-op.
	CancelAll()
}

// Speaker turns text into audible output. The voice package provides two
// implementations — a remote one (audio-generation endpoint + [Player]) and
// a local one ([Synthesizer]) — composed behind a fallback group so a failing
// remote path degrades to local synthesis instead of erroring.
type Speaker interface {
	// Speak starts speaking text with the given voice. onDone is invoked
	// exactly once when output ends naturally; it is not invoked after the
	// returned cancel function runs. cancel is safe to call more than once.
	//
	// An error means output never started; no callbacks fire in that case.
	Speak(ctx context.Context, text, voice string, onDone func()) (cancel func(), err error)
}

// Player is the playable-audio primitive for synthesised clips.
type Player interface {
	// Play starts playback of clip. onDone is invoked exactly once when
	// playback ends naturally; it is not invoked after stop is called.
	// The returned stop function halts playback immediately and is safe to
	// call more than once. onDone may be nil.
	Play(clip Clip, onDone func()) (stop func(), err error)
}
