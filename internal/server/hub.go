// Package server exposes the Parley HTTP surface: health and readiness
// probes, Prometheus metrics, and a WebSocket stream of conversation events
// for UI clients.
package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/parleyhq/parley/internal/observe"
)

// EventType discriminates the frames sent over the transcript stream.
type EventType string

const (
	// EventTranscript carries the live transcript after a recognition
	// result.
	EventTranscript EventType = "transcript"

	// EventSend carries a finalized transcript the user stopped and sent.
	EventSend EventType = "send"

	// EventSuggestion carries a persona suggestion for the last sent text.
	EventSuggestion EventType = "suggestion"

	// EventRecording reports recording-state transitions.
	EventRecording EventType = "recording"

	// EventPersona reports that the active persona changed.
	EventPersona EventType = "persona"
)

// Event is one frame on the transcript stream. Fields are omitted when not
// meaningful for the event type.
type Event struct {
	Type        EventType `json:"type"`
	Text        string    `json:"text,omitempty"`
	PersonaID   string    `json:"persona_id,omitempty"`
	PersonaName string    `json:"persona_name,omitempty"`
	Score       float64   `json:"score,omitempty"`
	Recording   bool      `json:"recording,omitempty"`
}

// subscriberBuffer is the per-client event queue depth. A client that falls
// further behind than this starts losing events rather than stalling the
// publisher.
const subscriberBuffer = 64

type subscriber struct {
	ch chan Event
}

// Hub fans conversation events out to all connected stream subscribers.
// Publish never blocks; slow subscribers drop events.
type Hub struct {
	metrics *observe.Metrics

	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

// HubOption is a functional option for configuring a [Hub].
type HubOption func(*Hub)

// WithHubMetrics attaches metric instruments. When nil (the default) no
// metrics are recorded.
func WithHubMetrics(m *observe.Metrics) HubOption {
	return func(h *Hub) {
		h.metrics = m
	}
}

// NewHub creates an empty hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{subs: make(map[*subscriber]struct{})}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Publish delivers ev to every subscriber. It never blocks: a subscriber
// whose buffer is full loses this event.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		select {
		case s.ch <- ev:
		default:
			slog.Debug("transcript stream subscriber lagging, event dropped", "type", ev.Type)
		}
	}
}

// Subscribers reports the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) subscribe() *subscriber {
	s := &subscriber{ch: make(chan Event, subscriberBuffer)}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.ActiveStreams.Add(context.Background(), 1)
	}
	return s
}

func (h *Hub) unsubscribe(s *subscriber) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.ActiveStreams.Add(context.Background(), -1)
	}
}
