package audiogen_test

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/parleyhq/parley/pkg/audiogen"
)

func TestGenerate_Success(t *testing.T) {
	t.Parallel()

	payload := []byte{0x49, 0x44, 0x33, 0x04, 0x00} // ID3 header start
	var gotText, gotVoice string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/generate-audio" {
			t.Errorf("path = %s, want /generate-audio", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("Content-Type = %q, want form-encoded", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		gotText = r.PostFormValue("text")
		gotVoice = r.PostFormValue("voice")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"audio":"` + base64.StdEncoding.EncodeToString(payload) + `","format":"audio/mpeg"}`))
	}))
	defer srv.Close()

	c, err := audiogen.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	clip, err := c.Generate(context.Background(), "hello there", "nova")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if gotText != "hello there" || gotVoice != "nova" {
		t.Errorf("form fields = (%q, %q), want (hello there, nova)", gotText, gotVoice)
	}
	if clip.MIME != "audio/mpeg" {
		t.Errorf("clip.MIME = %q, want audio/mpeg", clip.MIME)
	}
	if string(clip.Data) != string(payload) {
		t.Errorf("clip.Data = %v, want %v", clip.Data, payload)
	}
}

func TestGenerate_DefaultMIME(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"audio":"` + base64.StdEncoding.EncodeToString([]byte("pcm")) + `"}`))
	}))
	defer srv.Close()

	c, _ := audiogen.New(srv.URL)
	clip, err := c.Generate(context.Background(), "hi", "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if clip.MIME != "audio/mpeg" {
		t.Errorf("clip.MIME = %q, want default audio/mpeg", clip.MIME)
	}
}

func TestGenerate_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error status",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{"audio": not-json`))
			},
		},
		{
			name: "missing audio field",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{}`))
			},
		},
		{
			name: "invalid base64",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{"audio":"@@not base64@@"}`))
			},
		},
		{
			name: "error field set",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{"error":"voice not found"}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c, _ := audiogen.New(srv.URL)
			if _, err := c.Generate(context.Background(), "hi", "nova"); err == nil {
				t.Fatal("Generate: err = nil, want non-nil")
			}
		})
	}
}

func TestGenerate_NetworkFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // closed before use: connection refused

	c, _ := audiogen.New(srv.URL)
	if _, err := c.Generate(context.Background(), "hi", "nova"); err == nil {
		t.Fatal("Generate against closed server: err = nil, want non-nil")
	}
}

func TestNew_EmptyBaseURL(t *testing.T) {
	t.Parallel()

	if _, err := audiogen.New(""); err == nil {
		t.Fatal("New(\"\"): err = nil, want non-nil")
	}
}
