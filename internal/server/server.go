package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/parleyhq/parley/internal/health"
	"github.com/parleyhq/parley/internal/observe"
)

// writeTimeout bounds a single WebSocket frame write. A client that cannot
// take a frame within this window is disconnected.
const writeTimeout = 5 * time.Second

// Config holds the server's network settings.
type Config struct {
	// ListenAddr is the TCP address to listen on (e.g., ":8080").
	ListenAddr string

	// CertFile and KeyFile enable TLS when both are set.
	CertFile string
	KeyFile  string
}

// Server is the Parley HTTP server. Routes:
//
//   - /healthz, /readyz — via [health.Handler]
//   - /metrics          — Prometheus scrape endpoint
//   - /v1/transcripts   — WebSocket stream of [Event] frames
type Server struct {
	cfg    Config
	hub    *Hub
	httpd  *http.Server
	health *health.Handler
}

// New assembles the server. All routes run through the observability
// middleware, which handles tracing, correlation IDs, and request metrics.
func New(cfg Config, hub *Hub, hh *health.Handler, m *observe.Metrics) *Server {
	s := &Server{
		cfg:    cfg,
		hub:    hub,
		health: hh,
	}

	mux := http.NewServeMux()
	hh.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/transcripts", s.handleTranscripts)

	s.httpd = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           observe.Middleware(m)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully. It blocks.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if s.cfg.CertFile != "" && s.cfg.KeyFile != "" {
			err = s.httpd.ListenAndServeTLS(s.cfg.CertFile, s.cfg.KeyFile)
		} else {
			err = s.httpd.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpd.Shutdown(shutdownCtx)
	}
}

// handleTranscripts upgrades the connection and forwards hub events as JSON
// text frames until the client disconnects.
func (s *Server) handleTranscripts(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// The UI is served from a different origin than the engine.
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Warn("transcript stream accept failed", "error", err)
		return
	}

	sub := s.hub.subscribe()
	defer s.hub.unsubscribe(sub)

	// CloseRead watches for client-initiated close and control frames; we
	// never expect data frames from the client.
	ctx := conn.CloseRead(r.Context())
	defer conn.Close(websocket.StatusNormalClosure, "done")

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sub.ch:
			data, err := json.Marshal(ev)
			if err != nil {
				slog.Error("transcript stream marshal failed", "error", err)
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				slog.Debug("transcript stream write failed, dropping client", "error", err)
				return
			}
		}
	}
}
