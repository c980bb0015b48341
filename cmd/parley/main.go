// Command parley is the headless entry point for the Parley persona voice
// server. It runs the conversation engine with host-adapter speech
// primitives: utterances are logged (or fetched from the audio-generation
// endpoint) and conversation events stream to UI clients over
// /v1/transcripts. Deployments embedding the engine in a host with real
// speech capabilities wire those through internal/app directly.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/parleyhq/parley/internal/app"
	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/observe"
	"github.com/parleyhq/parley/pkg/speech"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "parley.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "parley: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "parley: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger, lvl := newLogger(cfg.Server)
	slog.SetDefault(logger)

	slog.Info("parley starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry providers ───────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "parley",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	// ── Application ───────────────────────────────────────────────────────────
	caps := app.Capabilities{
		Synthesizer: &logSynthesizer{},
	}
	if cfg.Audiogen.BaseURL != "" {
		caps.Player = &nopPlayer{}
	}

	application, err := app.New(cfg, caps)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// ── Config hot-reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		application.ApplyConfig(old, new)
		d := config.Diff(old, new)
		if d.LogLevelChanged {
			lvl.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level changed", "level", d.NewLogLevel)
		}
	})
	if err != nil {
		slog.Error("failed to start config watcher", "err", err)
		return 1
	}
	defer watcher.Stop()

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║          Parley — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	audiogen := cfg.Audiogen.BaseURL
	if audiogen == "" {
		audiogen = "(local synthesis only)"
	}
	printRow("Audiogen", audiogen)
	printRow("Language", orDefault(cfg.Recognizer.Language, "en-US"))
	fmt.Printf("║  Personas        : %-19d ║\n", len(cfg.Personas))
	suggestible := 0
	for _, p := range cfg.Personas {
		if p.Weight > 0 && len(p.Clusters) > 0 {
			suggestible++
		}
	}
	fmt.Printf("║  Suggestible     : %-19d ║\n", suggestible)
	if cfg.Server.ListenAddr != "" {
		printRow("Listen addr", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printRow(kind, value string) {
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// ── Logger ─────────────────────────────────────────────────────────────────────

// newLogger builds the process logger. With server.log_file set, output goes
// to a size-rotated file; otherwise to stderr. The returned LevelVar allows
// hot-reload of the verbosity.
func newLogger(sc config.ServerConfig) (*slog.Logger, *slog.LevelVar) {
	lvl := new(slog.LevelVar)
	lvl.Set(slogLevel(sc.LogLevel))

	var out io.Writer = os.Stderr
	if sc.LogFile != "" {
		out = &lumberjack.Logger{
			Filename:   sc.LogFile,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: lvl})), lvl
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ── Host adapters ─────────────────────────────────────────────────────────────

// logSynthesizer is the headless local-synthesis adapter: utterances are
// logged and complete immediately.
type logSynthesizer struct{}

var _ speech.Synthesizer = (*logSynthesizer)(nil)

func (*logSynthesizer) Speak(text string, onDone func()) {
	slog.Info("speak", "text", text)
	if onDone != nil {
		onDone()
	}
}

func (*logSynthesizer) CancelAll() {}

// nopPlayer discards fetched clips, completing immediately. It keeps the
// remote audio-generation path exercisable in headless runs.
type nopPlayer struct{}

var _ speech.Player = (*nopPlayer)(nil)

func (*nopPlayer) Play(clip speech.Clip, onDone func()) (func(), error) {
	slog.Debug("play", "mime", clip.MIME, "bytes", len(clip.Data))
	if onDone != nil {
		onDone()
	}
	return func() {}, nil
}
