// Package audiogen provides an HTTP client for the remote audio-generation
// endpoint that turns assistant replies into playable audio clips.
//
// The endpoint contract is a single call: POST <base>/generate-audio with the
// form-encoded fields "text" and "voice"; a successful response is a JSON
// object carrying the base64-encoded audio payload. Any deviation — network
// failure, non-2xx status, malformed JSON, invalid base64 — is returned as an
// error so the playback layer can degrade to local speech synthesis.
//
// Typical usage:
//
//	c, err := audiogen.New("https://api.example.com",
//	    audiogen.WithTimeout(10*time.Second),
//	)
//	clip, err := c.Generate(ctx, "Hello there.", "nova")
package audiogen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/parleyhq/parley/pkg/speech"
)

const (
	generateEndpoint = "/generate-audio"
	defaultTimeout   = 15 * time.Second
	defaultMIME      = "audio/mpeg"

	// maxResponseBytes caps how much of a response body is read. Clips are
	// short utterances; anything beyond this is a misbehaving server.
	maxResponseBytes = 16 << 20
)

// Option is a functional option for configuring a [Client].
type Option func(*Client)

// WithTimeout sets the per-request HTTP timeout. Defaults to 15s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client entirely. Useful for
// tests and for callers that manage their own transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// Client calls the remote audio-generation endpoint. It is safe for
// concurrent use; multiple Generate calls may run in parallel.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client that targets the audio-generation service at baseURL
// (e.g., "https://api.example.com"). baseURL must be non-empty.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("audiogen: baseURL must not be empty")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// generateResponse is the JSON body returned by POST /generate-audio.
type generateResponse struct {
	// Audio is the base64-encoded clip payload.
	Audio string `json:"audio"`

	// Format is the optional audio MIME type. Defaults to audio/mpeg.
	Format string `json:"format,omitempty"`

	// Error carries a server-side failure description, if any.
	Error string `json:"error,omitempty"`
}

// Generate synthesises text with the named voice and returns the resulting
// clip. The returned error wraps enough detail for logging; callers are
// expected to treat any error as "fall back to local synthesis" rather than
// surfacing it to the user.
func (c *Client) Generate(ctx context.Context, text, voice string) (speech.Clip, error) {
	form := url.Values{}
	form.Set("text", text)
	form.Set("voice", voice)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+generateEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return speech.Clip{}, fmt.Errorf("audiogen: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return speech.Clip{}, fmt.Errorf("audiogen: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return speech.Clip{}, fmt.Errorf("audiogen: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return speech.Clip{}, fmt.Errorf("audiogen: server returned %s: %s",
			resp.Status, truncate(string(body), 200))
	}

	var gr generateResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return speech.Clip{}, fmt.Errorf("audiogen: decode response: %w", err)
	}
	if gr.Error != "" {
		return speech.Clip{}, fmt.Errorf("audiogen: server error: %s", gr.Error)
	}
	if gr.Audio == "" {
		return speech.Clip{}, errors.New("audiogen: response missing audio payload")
	}

	data, err := base64.StdEncoding.DecodeString(gr.Audio)
	if err != nil {
		return speech.Clip{}, fmt.Errorf("audiogen: audio payload is not valid base64: %w", err)
	}

	mime := gr.Format
	if mime == "" {
		mime = defaultMIME
	}
	return speech.Clip{MIME: mime, Data: data}, nil
}

// truncate shortens s to at most n bytes for error messages.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
