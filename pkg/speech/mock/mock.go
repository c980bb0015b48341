// Package mock provides test doubles for the speech package interfaces.
//
// Recognizer records control calls and exposes Emit* helpers so tests can
// script the exact event sequences a host recognizer would deliver.
// Synthesizer and Player record what was spoken or played and let the test
// finish or cancel playback deterministically.
//
// Example:
//
//	rec := &mock.Recognizer{}
//	eng := voice.NewCaptureEngine(rec, ...)
//	eng.Toggle()
//	rec.EmitResult(mock.FinalSegment("hello "))
//	rec.EmitEnd()
package mock

import (
	"sync"

	"github.com/parleyhq/parley/pkg/speech"
)

// FinalSegment builds a single-alternative final segment for scripting.
func FinalSegment(text string) speech.Segment {
	return speech.Segment{
		Alternatives: []speech.Alternative{{Transcript: text, Confidence: 0.9}},
		IsFinal:      true,
	}
}

// InterimSegment builds a single-alternative interim segment for scripting.
func InterimSegment(text string) speech.Segment {
	return speech.Segment{
		Alternatives: []speech.Alternative{{Transcript: text, Confidence: 0.4}},
	}
}

// Recognizer is a scriptable mock implementation of speech.Recognizer.
type Recognizer struct {
	mu sync.Mutex

	// Cfg is the last configuration applied via Configure.
	Cfg speech.Config

	// StartErr, if non-nil, is returned by every Start call.
	StartErr error

	// StartCalls counts Start invocations (including failed ones).
	StartCalls int

	// StopCalls counts Stop invocations.
	StopCalls int

	handlers speech.Handlers
	started  bool
}

var _ speech.Recognizer = (*Recognizer)(nil)

// Configure records cfg.
func (r *Recognizer) Configure(cfg speech.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Cfg = cfg
}

// SetHandlers installs the event sink used by the Emit* helpers.
func (r *Recognizer) SetHandlers(h speech.Handlers) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = h
}

// Start records the call and returns StartErr.
func (r *Recognizer) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.StartCalls++
	if r.StartErr != nil {
		return r.StartErr
	}
	r.started = true
	return nil
}

// Stop records the call. It does not emit an end event on its own; tests
// script that explicitly with EmitEnd to control ordering.
func (r *Recognizer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.StopCalls++
	r.started = false
}

// Started reports whether the recognizer is currently between Start and Stop.
func (r *Recognizer) Started() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

// EmitResult delivers one result event with the given segments.
func (r *Recognizer) EmitResult(segments ...speech.Segment) {
	r.mu.Lock()
	h := r.handlers
	r.mu.Unlock()
	if h.OnResult != nil {
		h.OnResult(segments)
	}
}

// EmitError delivers one error event.
func (r *Recognizer) EmitError(kind speech.ErrorKind) {
	r.mu.Lock()
	h := r.handlers
	r.mu.Unlock()
	if h.OnError != nil {
		h.OnError(kind)
	}
}

// EmitEnd delivers the end event for the current capture segment.
func (r *Recognizer) EmitEnd() {
	r.mu.Lock()
	h := r.handlers
	r.started = false
	r.mu.Unlock()
	if h.OnEnd != nil {
		h.OnEnd()
	}
}

// SpeakCall records a single invocation of Synthesizer.Speak.
type SpeakCall struct {
	// Text is the text passed to Speak.
	Text string
}

// Synthesizer is a mock implementation of speech.Synthesizer. Completion is
// driven by the test through FinishCurrent.
type Synthesizer struct {
	mu sync.Mutex

	// SpeakCalls records every Speak invocation in order.
	SpeakCalls []SpeakCall

	// CancelAllCalls counts CancelAll invocations.
	CancelAllCalls int

	onDone func()
}

var _ speech.Synthesizer = (*Synthesizer)(nil)

// Speak records the call and retains onDone for FinishCurrent.
func (s *Synthesizer) Speak(text string, onDone func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SpeakCalls = append(s.SpeakCalls, SpeakCall{Text: text})
	s.onDone = onDone
}

// Spoken returns a copy of the recorded Speak calls, safe to use while
// other goroutines keep speaking.
func (s *Synthesizer) Spoken() []SpeakCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SpeakCall(nil), s.SpeakCalls...)
}

// CancelAll records the call and discards the pending completion, matching
// host synthesis semantics (a cancelled utterance never completes).
func (s *Synthesizer) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CancelAllCalls++
	s.onDone = nil
}

// FinishCurrent invokes the completion callback of the most recent Speak
// call, simulating natural end of speech. No-op if nothing is pending.
func (s *Synthesizer) FinishCurrent() {
	s.mu.Lock()
	done := s.onDone
	s.onDone = nil
	s.mu.Unlock()
	if done != nil {
		done()
	}
}

// PlayCall records a single invocation of Player.Play.
type PlayCall struct {
	// Clip is the clip passed to Play.
	Clip speech.Clip

	// Stopped reports whether the returned stop function was invoked.
	Stopped bool
}

// Player is a mock implementation of speech.Player.
type Player struct {
	mu sync.Mutex

	// PlayErr, if non-nil, is returned by every Play call.
	PlayErr error

	// PlayCalls records every Play invocation in order.
	PlayCalls []PlayCall

	onDone  func()
	current int
}

var _ speech.Player = (*Player)(nil)

// Play records the call and retains onDone for FinishCurrent.
func (p *Player) Play(clip speech.Clip, onDone func()) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.PlayErr != nil {
		return nil, p.PlayErr
	}
	p.PlayCalls = append(p.PlayCalls, PlayCall{Clip: clip})
	idx := len(p.PlayCalls) - 1
	p.current = idx
	p.onDone = onDone

	stop := func() {
		p.mu.Lock()
		p.PlayCalls[idx].Stopped = true
		if p.current == idx {
			p.onDone = nil
		}
		p.mu.Unlock()
	}
	return stop, nil
}

// FinishCurrent invokes the completion callback of the most recent Play
// call, simulating natural end of playback. No-op if playback was stopped.
func (p *Player) FinishCurrent() {
	p.mu.Lock()
	done := p.onDone
	p.onDone = nil
	p.mu.Unlock()
	if done != nil {
		done()
	}
}
