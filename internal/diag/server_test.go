package diag

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/thisisprabha/summary/internal/audio"
	"github.com/thisisprabha/summary/internal/config"
	"github.com/thisisprabha/summary/internal/session"
	"github.com/thisisprabha/summary/internal/transcription"
)

type idleDevice struct{}

func (idleDevice) Open(format audio.Format) (audio.FrameReader, error) {
	return nil, io.ErrUnexpectedEOF
}

func newTestServer(t *testing.T, remoteURL string) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Default()
	cfg.Server.BaseURL = remoteURL

	client, err := transcription.NewClient(transcription.Config{
		BaseURL: remoteURL,
		Timeout: 2 * time.Second,
	}, logger)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	capture := audio.NewCapture(idleDevice{}, audio.DefaultFormat, logger)
	orch := session.NewOrchestrator(capture, client, nil, nil, logger, session.Config{
		TempDir: t.TempDir(),
	})

	diag := NewServer(cfg.Diag, logger, cfg, orch, client, nil)
	srv := httptest.NewServer(diag.server.Handler)
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string) map[string]interface{} {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return body
}

func TestHealthEndpoint(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	}))
	defer remote.Close()

	srv := newTestServer(t, remote.URL)
	body := getJSON(t, srv.URL+"/health")

	if body["status"] != "healthy" {
		t.Fatalf("status = %v, want healthy", body["status"])
	}

	components := body["components"].(map[string]interface{})
	server := components["transcription_server"].(map[string]interface{})
	if server["reachable"] != true {
		t.Fatal("remote server should be reported reachable")
	}

	sessionInfo := components["session"].(map[string]interface{})
	if sessionInfo["state"] != "idle" {
		t.Fatalf("session state = %v, want idle", sessionInfo["state"])
	}
}

func TestSessionEndpointIdle(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1")
	body := getJSON(t, srv.URL+"/session")

	if body["state"] != "idle" {
		t.Fatalf("state = %v, want idle", body["state"])
	}
	if _, ok := body["session_id"]; ok {
		t.Fatal("idle session should not carry a session_id")
	}
}

func TestConfigEndpointSanitized(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1")
	body := getJSON(t, srv.URL+"/config")

	audioCfg := body["audio"].(map[string]interface{})
	if audioCfg["sample_rate"].(float64) != 16000 {
		t.Fatalf("sample_rate = %v, want 16000", audioCfg["sample_rate"])
	}
	if _, ok := audioCfg["temp_dir"]; ok {
		t.Fatal("temp_dir is a local path and should not be exposed")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1")

	resp, err := http.Post(srv.URL+"/session", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
}
