// Package app wires all Parley subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run executes until the context is cancelled, and Shutdown
// tears everything down in order.
//
// The host speech capabilities (recognizer, synthesizer, clip player) are
// injected through [Capabilities]; tests use the pkg/speech/mock doubles.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/health"
	"github.com/parleyhq/parley/internal/observe"
	"github.com/parleyhq/parley/internal/persona"
	"github.com/parleyhq/parley/internal/resilience"
	"github.com/parleyhq/parley/internal/server"
	"github.com/parleyhq/parley/internal/voice"
	"github.com/parleyhq/parley/pkg/audiogen"
	"github.com/parleyhq/parley/pkg/speech"
)

// Capabilities holds the host speech primitives. Recognizer may be nil when
// the host cannot capture speech; the engine then reports "not supported"
// for every recording operation.
type Capabilities struct {
	Recognizer  speech.Recognizer
	Synthesizer speech.Synthesizer
	Player      speech.Player
}

// App owns all subsystem lifetimes.
type App struct {
	cfg *config.Config

	metrics    *observe.Metrics
	hub        *server.Hub
	playback   *voice.Playback
	engine     *voice.CaptureEngine
	controller *Controller
	srv        *server.Server

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New.
type Option func(*App)

// WithMetrics injects a Metrics instance instead of the package default.
// Used by tests to avoid cross-test instrument pollution.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New creates an App by wiring all subsystems together: remote audio client
// (when configured) behind the speaker fallback chain, playback, capture
// engine, conversation controller, and HTTP server.
func New(cfg *config.Config, caps Capabilities, opts ...Option) (*App, error) {
	if caps.Synthesizer == nil {
		return nil, errors.New("app: a speech synthesizer capability is required")
	}

	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	a.hub = server.NewHub(server.WithHubMetrics(a.metrics))

	// Playback: remote audio generation first, local synthesis as fallback.
	// Without a configured endpoint the local path is the only backend.
	local := &voice.LocalSpeaker{Synth: caps.Synthesizer}
	var spk speech.Speaker
	var checkers []health.Checker
	if cfg.Audiogen.BaseURL != "" {
		if caps.Player == nil {
			return nil, errors.New("app: audiogen is configured but no clip player capability was provided")
		}
		client, err := audiogen.New(cfg.Audiogen.BaseURL, audiogen.WithTimeout(cfg.Audiogen.Timeout))
		if err != nil {
			return nil, fmt.Errorf("app: audiogen client: %w", err)
		}
		sf := resilience.NewSpeakerFallback(
			&voice.RemoteSpeaker{Client: client, Player: caps.Player, Metrics: a.metrics},
			"audiogen",
			resilience.FallbackConfig{},
			resilience.WithSpeakerMetrics(a.metrics),
		)
		sf.Add("synthesis", local)
		spk = sf
		checkers = append(checkers, health.EndpointCheck("audiogen", cfg.Audiogen.BaseURL))
	} else {
		spk = local
	}
	a.playback = voice.NewPlayback(spk, voice.WithPlaybackMetrics(a.metrics))

	// Scoring and conversation control.
	personas := cfg.PersonaList()
	scorer := persona.NewScorer(cfg.ExpertContexts())
	a.controller = NewController(personas, scorer, a.playback, a.hub, a.metrics, cfg.Audiogen.Voice)

	// Capture engine.
	var engineOpts []voice.CaptureOption
	if cfg.Recognizer.Language != "" {
		engineOpts = append(engineOpts, voice.WithLanguage(cfg.Recognizer.Language))
	}
	if cfg.Recognizer.RestartDelay > 0 {
		engineOpts = append(engineOpts, voice.WithRestartDelay(cfg.Recognizer.RestartDelay))
	}
	engineOpts = append(engineOpts,
		voice.WithInterrupt(a.playback.Cancel),
		voice.WithCaptureMetrics(a.metrics),
	)
	a.engine = voice.NewCaptureEngine(caps.Recognizer, voice.CaptureCallbacks{
		OnTranscript:      a.controller.HandleTranscript,
		OnSend:            func(text string) { a.controller.HandleSend(context.Background(), text) },
		OnRecordingChange: a.controller.HandleRecording,
		OnUnsupported: func() {
			slog.Warn("speech recognition not supported on this host")
		},
	}, engineOpts...)

	// HTTP surface.
	checkers = append(checkers, health.Checker{
		Name: "personas",
		Check: func(context.Context) error {
			if len(personas) == 0 && len(persona.DefaultContexts()) == 0 {
				return errors.New("no personas configured")
			}
			return nil
		},
	})
	srvCfg := server.Config{ListenAddr: cfg.Server.ListenAddr}
	if cfg.Server.TLS != nil {
		srvCfg.CertFile = cfg.Server.TLS.CertFile
		srvCfg.KeyFile = cfg.Server.TLS.KeyFile
	}
	a.srv = server.New(srvCfg, a.hub, health.New(checkers...), a.metrics)

	a.closers = append(a.closers, func() error {
		a.playback.Cancel()
		return nil
	})

	return a, nil
}

// Engine returns the capture engine. The embedding layer binds its mic
// button to Engine().Toggle.
func (a *App) Engine() *voice.CaptureEngine {
	return a.engine
}

// Controller returns the conversation controller. The embedding layer calls
// Say with its chat backend's replies.
func (a *App) Controller() *Controller {
	return a.controller
}

// Hub returns the event hub, mainly for tests.
func (a *App) Hub() *server.Hub {
	return a.hub
}

// ApplyConfig hot-applies a reloaded config. Only persona and suggestion
// data is applied; network settings require a restart.
func (a *App) ApplyConfig(old, new *config.Config) {
	d := config.Diff(old, new)
	if d.PersonasChanged {
		slog.Info("applying persona config changes", "changes", len(d.PersonaChanges))
		a.controller.SetPersonas(new.PersonaList(), new.ExpertContexts())
	}
}

// Run serves until ctx is cancelled. It blocks.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.srv.Run(ctx) })
	return g.Wait()
}

// Shutdown stops playback and releases resources. Safe to call more than
// once; only the first call does work.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	a.stopOnce.Do(func() {
		var errs []error
		for _, c := range a.closers {
			if e := c(); e != nil {
				errs = append(errs, e)
			}
		}
		err = errors.Join(errs...)
	})
	return err
}
