// Package config provides the configuration schema, loader, and file watcher
// for the Parley persona-chat server.
package config

import (
	"time"

	"github.com/parleyhq/parley/internal/persona"
)

// LogLevel controls log verbosity for the Parley server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for Parley.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Audiogen   AudiogenConfig   `yaml:"audiogen"`
	Recognizer RecognizerConfig `yaml:"recognizer"`
	Personas   []PersonaConfig  `yaml:"personas"`
}

// ServerConfig holds network and logging settings for the Parley server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// LogFile, when non-empty, sends logs to a size-rotated file instead of
	// stderr.
	LogFile string `yaml:"log_file"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// AudiogenConfig points at the remote audio-generation endpoint used for the
// primary playback path. When BaseURL is empty, playback degrades to local
// speech synthesis only.
type AudiogenConfig struct {
	// BaseURL is the endpoint root, e.g. "https://audio.example.com".
	BaseURL string `yaml:"base_url"`

	// Timeout bounds a single generation request. Zero means the client
	// default.
	Timeout time.Duration `yaml:"timeout"`

	// Voice is the fallback voice identifier used when the active persona
	// does not specify one.
	Voice string `yaml:"voice"`
}

// RecognizerConfig tunes the capture engine.
type RecognizerConfig struct {
	// Language is the recognition language tag (e.g., "en-US").
	Language string `yaml:"language"`

	// RestartDelay is the pause before capture resumes after an unsolicited
	// recognizer end. Zero means the engine default.
	RestartDelay time.Duration `yaml:"restart_delay"`
}

// PersonaConfig describes a single chat persona: its identity, voice, and
// the expert-context keyword clusters that make it suggestible.
type PersonaConfig struct {
	// ID uniquely identifies the persona (e.g., "lawyer").
	ID string `yaml:"id"`

	// Name is the display name shown and spoken to the user.
	Name string `yaml:"name"`

	// Description is a free-text summary of the persona's expertise.
	Description string `yaml:"description"`

	// Voice is the audio-generation voice identifier for this persona.
	Voice string `yaml:"voice"`

	// Greeting is spoken when the user switches to this persona.
	Greeting string `yaml:"greeting"`

	// Weight scales this persona's expert-context score. Zero disables
	// suggestion for this persona.
	Weight float64 `yaml:"weight"`

	// Clusters are groups of related keywords. A cluster only contributes
	// to the score when enough of its keywords appear in the transcript.
	Clusters [][]string `yaml:"clusters"`
}

// Persona converts the config entry to the domain type.
func (p PersonaConfig) Persona() persona.Persona {
	return persona.Persona{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Voice:       p.Voice,
		Greeting:    p.Greeting,
	}
}

// PersonaList converts all configured personas to domain types.
func (c *Config) PersonaList() []persona.Persona {
	out := make([]persona.Persona, len(c.Personas))
	for i, p := range c.Personas {
		out[i] = p.Persona()
	}
	return out
}

// ExpertContexts converts the suggestible personas (weight > 0 with at least
// one cluster) into scorer contexts. Returns nil when nothing is
// suggestible, which makes the scorer fall back to its built-in contexts.
func (c *Config) ExpertContexts() []persona.ExpertContext {
	var out []persona.ExpertContext
	for _, p := range c.Personas {
		if p.Weight <= 0 || len(p.Clusters) == 0 {
			continue
		}
		out = append(out, persona.ExpertContext{
			ID:       p.ID,
			Weight:   p.Weight,
			Clusters: p.Clusters,
		})
	}
	return out
}
