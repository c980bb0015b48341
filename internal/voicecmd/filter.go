// Package voicecmd implements keyword detection on finalized transcripts for
// hands-free shortcuts. It checks sent transcripts against a set of regex
// patterns and executes the corresponding conversation actions when a match
// is found.
//
// Voice commands are intercepted before the utterance reaches the chat
// pipeline, so "switch to the lawyer" changes persona instead of being sent
// as a message.
package voicecmd

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/parleyhq/parley/internal/persona"
)

// Actions is the surface a matched voice command drives. The application
// wires this to the conversation controller.
type Actions interface {
	// SwitchPersona makes p the active conversation partner.
	SwitchPersona(ctx context.Context, p persona.Persona) error

	// StopSpeaking cancels any in-flight assistant playback.
	StopSpeaking()

	// RepeatLast replays the assistant's most recent utterance.
	RepeatLast(ctx context.Context) error
}

// Pattern pairs a compiled regex with the action to execute when it matches.
type Pattern struct {
	// Regex is the compiled pattern. Positional groups are passed to
	// Action as matches[1], matches[2], etc.
	Regex *regexp.Regexp

	// Name is a human-readable label for logging.
	Name string

	// Action executes the voice command using the matched groups.
	// matches is the full submatch slice from Regex.FindStringSubmatch.
	Action func(ctx context.Context, f *Filter, acts Actions, matches []string) (string, error)
}

// Filter checks finalized transcripts against a set of patterns and executes
// matching voice commands.
//
// All methods are safe for concurrent use. The persona list is read-only
// after construction.
type Filter struct {
	patterns []Pattern
	matcher  *persona.NameMatcher
	personas []persona.Persona
}

// New creates a Filter over the given personas. Spoken persona references
// are resolved with matcher, so "switch to the law yer" still finds the
// lawyer. A nil matcher gets the default thresholds.
func New(matcher *persona.NameMatcher, personas []persona.Persona) *Filter {
	if matcher == nil {
		matcher = persona.NewNameMatcher()
	}
	return &Filter{
		patterns: defaultPatterns(),
		matcher:  matcher,
		personas: personas,
	}
}

// Check tests whether text matches a voice command pattern. If a match is
// found, the corresponding action is executed on acts and Check returns
// (true, nil). If no pattern matches, it returns (false, nil) and the text
// should continue into the chat pipeline. Errors from action execution are
// returned as (true, err) — the text was a command, it just failed.
func (f *Filter) Check(ctx context.Context, text string, acts Actions) (bool, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false, nil
	}

	for _, p := range f.patterns {
		matches := p.Regex.FindStringSubmatch(trimmed)
		if matches == nil {
			continue
		}

		result, err := p.Action(ctx, f, acts, matches)
		if err != nil {
			slog.Warn("voicecmd: command failed",
				"pattern", p.Name,
				"text", trimmed,
				"error", err,
			)
			return true, fmt.Errorf("voicecmd: %s: %w", p.Name, err)
		}

		slog.Info("voicecmd: command executed",
			"pattern", p.Name,
			"text", trimmed,
			"result", result,
		)
		return true, nil
	}

	return false, nil
}

// defaultPatterns returns the built-in set of voice command patterns.
func defaultPatterns() []Pattern {
	return []Pattern{
		{
			Name:  "switch-persona",
			Regex: regexp.MustCompile(`(?i)^(?:switch|talk|speak)\s+to\s+(?:the\s+)?(.+?)[.!]?$`),
			Action: func(ctx context.Context, f *Filter, acts Actions, matches []string) (string, error) {
				return switchPersona(ctx, f, acts, matches[1])
			},
		},
		{
			Name:  "be-quiet",
			Regex: regexp.MustCompile(`(?i)^(?:(?:.+?,?\s+)?be\s+quiet|stop\s+talking|quiet|stop)[.!]?$`),
			Action: func(_ context.Context, _ *Filter, acts Actions, _ []string) (string, error) {
				acts.StopSpeaking()
				return "stopped playback", nil
			},
		},
		{
			Name:  "repeat-last",
			Regex: regexp.MustCompile(`(?i)^(?:repeat|say)\s+that(?:\s+again)?[.!]?$`),
			Action: func(ctx context.Context, _ *Filter, acts Actions, _ []string) (string, error) {
				if err := acts.RepeatLast(ctx); err != nil {
					return "", err
				}
				return "repeated last utterance", nil
			},
		},
	}
}

// switchPersona resolves the spoken name against the configured personas and
// switches to the best match.
func switchPersona(ctx context.Context, f *Filter, acts Actions, spoken string) (string, error) {
	p, confidence, ok := f.matcher.Match(strings.TrimSpace(spoken), f.personas)
	if !ok {
		return "", fmt.Errorf("no persona matching %q", spoken)
	}
	if err := acts.SwitchPersona(ctx, *p); err != nil {
		return "", err
	}
	return fmt.Sprintf("switched to %s (confidence %.2f)", p.Name, confidence), nil
}
