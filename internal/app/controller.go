package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/parleyhq/parley/internal/observe"
	"github.com/parleyhq/parley/internal/persona"
	"github.com/parleyhq/parley/internal/server"
	"github.com/parleyhq/parley/internal/voice"
	"github.com/parleyhq/parley/internal/voicecmd"
)

// ErrNothingToRepeat is returned by RepeatLast before the assistant has
// spoken anything.
var ErrNothingToRepeat = errors.New("app: nothing to repeat")

// Controller is the conversation glue between capture, playback, scoring,
// and the event stream. It owns the active persona and the last assistant
// utterance, and implements [voicecmd.Actions].
//
// The chat backend that produces assistant replies is out of scope here; the
// embedding layer calls [Controller.Say] with whatever its backend returns.
type Controller struct {
	playback *voice.Playback
	hub      *server.Hub
	metrics  *observe.Metrics

	mu           sync.Mutex
	personas     []persona.Persona
	scorer       *persona.Scorer
	filter       *voicecmd.Filter
	defaultVoice string
	current      persona.Persona
	lastSpoken   string
}

var _ voicecmd.Actions = (*Controller)(nil)

// NewController creates a Controller. The first persona in the list is the
// initial active persona; an empty list leaves the zero persona active until
// a switch.
func NewController(personas []persona.Persona, scorer *persona.Scorer, playback *voice.Playback, hub *server.Hub, m *observe.Metrics, defaultVoice string) *Controller {
	c := &Controller{
		playback:     playback,
		hub:          hub,
		metrics:      m,
		personas:     personas,
		scorer:       scorer,
		filter:       voicecmd.New(nil, personas),
		defaultVoice: defaultVoice,
	}
	if len(personas) > 0 {
		c.current = personas[0]
	}
	return c
}

// Current returns the active persona.
func (c *Controller) Current() persona.Persona {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// SetPersonas replaces the persona list and scorer contexts, used on config
// hot-reload. The active persona is kept when it still exists, otherwise it
// falls back to the first entry.
func (c *Controller) SetPersonas(personas []persona.Persona, contexts []persona.ExpertContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.personas = personas
	c.scorer = persona.NewScorer(contexts)
	c.filter = voicecmd.New(nil, personas)
	if persona.FindByID(personas, c.current.ID) == nil && len(personas) > 0 {
		c.current = personas[0]
	}
}

// SwitchPersona makes p the active persona, interrupts any playback, speaks
// p's greeting, and announces the change on the event stream.
func (c *Controller) SwitchPersona(ctx context.Context, p persona.Persona) error {
	c.mu.Lock()
	c.current = p
	c.mu.Unlock()

	slog.Info("active persona changed", "persona", p.ID)
	c.hub.Publish(server.Event{
		Type:        server.EventPersona,
		PersonaID:   p.ID,
		PersonaName: p.Name,
	})

	if p.Greeting != "" {
		c.Say(ctx, p.Greeting)
	} else {
		c.playback.Cancel()
	}
	return nil
}

// StopSpeaking cancels any in-flight assistant playback.
func (c *Controller) StopSpeaking() {
	c.playback.Cancel()
}

// RepeatLast replays the most recent assistant utterance.
func (c *Controller) RepeatLast(ctx context.Context) error {
	c.mu.Lock()
	last := c.lastSpoken
	c.mu.Unlock()
	if last == "" {
		return ErrNothingToRepeat
	}
	c.Say(ctx, last)
	return nil
}

// Say speaks text in the active persona's voice, superseding any playback in
// progress, and remembers it for RepeatLast.
func (c *Controller) Say(ctx context.Context, text string) {
	c.mu.Lock()
	c.lastSpoken = text
	voiceID := c.current.Voice
	if voiceID == "" {
		voiceID = c.defaultVoice
	}
	c.mu.Unlock()

	c.playback.Speak(ctx, text, voiceID, nil)
}

// HandleSend processes one finalized transcript: voice commands are executed
// and consumed; everything else goes onto the event stream, followed by a
// persona suggestion when the text scores past the threshold against a
// non-active expert context.
func (c *Controller) HandleSend(ctx context.Context, text string) {
	c.mu.Lock()
	filter := c.filter
	scorer := c.scorer
	personas := c.personas
	currentID := c.current.ID
	c.mu.Unlock()

	if matched, err := filter.Check(ctx, text, c); matched {
		if err != nil {
			slog.Warn("voice command failed", "error", err)
		}
		return
	}

	c.hub.Publish(server.Event{Type: server.EventSend, Text: text})

	p := scorer.Suggest(text, currentID, personas)
	if p == nil {
		return
	}
	best, _ := scorer.Best(text, currentID)

	slog.Debug("persona suggested", "persona", p.ID, "score", best.Total)
	if c.metrics != nil {
		c.metrics.RecordSuggestion(ctx, p.ID, best.Total)
	}
	c.hub.Publish(server.Event{
		Type:        server.EventSuggestion,
		Text:        text,
		PersonaID:   p.ID,
		PersonaName: p.Name,
		Score:       best.Total,
	})
}

// HandleTranscript forwards the live transcript onto the event stream.
func (c *Controller) HandleTranscript(live string) {
	c.hub.Publish(server.Event{Type: server.EventTranscript, Text: live})
}

// HandleRecording forwards recording-state transitions onto the event stream.
func (c *Controller) HandleRecording(recording bool) {
	c.hub.Publish(server.Event{Type: server.EventRecording, Recording: recording})
}
