package progress

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// progressServer upgrades connections, records the join frame, and lets the
// test script push frames to the client.
type progressServer struct {
	*httptest.Server
	joins  chan string
	conns  chan *websocket.Conn
	closed chan struct{}
}

func newProgressServer(t *testing.T) *progressServer {
	t.Helper()

	upgrader := websocket.Upgrader{}
	ps := &progressServer{
		joins:  make(chan string, 1),
		conns:  make(chan *websocket.Conn, 1),
		closed: make(chan struct{}),
	}

	ps.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}

		_, frame, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			return
		}

		ps.joins <- string(frame)
		ps.conns <- conn
		<-ps.closed
	}))

	t.Cleanup(func() {
		close(ps.closed)
		ps.Close()
	})

	return ps
}

func (ps *progressServer) push(t *testing.T, conn *websocket.Conn, event Event) {
	t.Helper()

	frame, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("failed to marshal event: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("failed to push event: %v", err)
	}
}

func chunkEvent(sessionID string, num int, text string) Event {
	return Event{
		SessionID: sessionID,
		Stage:     "transcribing",
		Progress:  0.5,
		Message:   "partial transcript",
		Chunk: &TranscriptChunk{
			Timestamp:   "00:00:01",
			Text:        text,
			ChunkNumber: num,
		},
	}
}

func collect(t *testing.T, events <-chan Event, n int) []Event {
	t.Helper()

	var got []Event
	timeout := time.After(2 * time.Second)
	for len(got) < n {
		select {
		case event, ok := <-events:
			if !ok {
				t.Fatalf("channel closed after %d of %d events", len(got), n)
			}
			got = append(got, event)
		case <-timeout:
			t.Fatalf("timed out after %d of %d events", len(got), n)
		}
	}
	return got
}

func TestSubscribeSendsJoinFrame(t *testing.T) {
	server := newProgressServer(t)
	channel := NewChannel(server.URL, Config{}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := channel.Subscribe(ctx, "session-abc"); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	select {
	case join := <-server.joins:
		if !strings.HasPrefix(join, "join_session:") {
			t.Errorf("join frame missing prefix: %q", join)
		}

		var body map[string]string
		if err := json.Unmarshal([]byte(strings.TrimPrefix(join, "join_session:")), &body); err != nil {
			t.Fatalf("join frame payload is not JSON: %v", err)
		}

		if body["session_id"] != "session-abc" {
			t.Errorf("expected session_id session-abc, got %q", body["session_id"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("join frame never arrived")
	}
}

func TestChunksReorderedByNumber(t *testing.T) {
	server := newProgressServer(t)
	channel := NewChannel(server.URL, Config{JitterWindow: 4}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := channel.Subscribe(ctx, "s1")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	<-server.joins
	conn := <-server.conns

	// Deliver chunks out of order: 2, 1, 3.
	server.push(t, conn, chunkEvent("s1", 2, "world"))
	server.push(t, conn, chunkEvent("s1", 1, "hello"))
	server.push(t, conn, chunkEvent("s1", 3, "again"))

	got := collect(t, events, 3)

	want := []string{"hello", "world", "again"}
	for i, event := range got {
		if event.Chunk == nil || event.Chunk.Text != want[i] {
			t.Errorf("event %d: expected chunk %q, got %+v", i, want[i], event.Chunk)
		}
	}
}

func TestNonChunkEventsPassThrough(t *testing.T) {
	server := newProgressServer(t)
	channel := NewChannel(server.URL, Config{}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := channel.Subscribe(ctx, "s1")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	<-server.joins
	conn := <-server.conns

	server.push(t, conn, Event{SessionID: "s1", Stage: "uploading", Progress: 0.1, Message: "received"})
	server.push(t, conn, Event{SessionID: "s1", Stage: "transcribing", Progress: 0.6, Message: "working"})

	got := collect(t, events, 2)
	if got[0].Stage != "uploading" || got[1].Stage != "transcribing" {
		t.Errorf("events out of order: %+v", got)
	}
}

func TestServerCloseEndsStream(t *testing.T) {
	server := newProgressServer(t)
	channel := NewChannel(server.URL, Config{}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := channel.Subscribe(ctx, "s1")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	<-server.joins
	conn := <-server.conns

	server.push(t, conn, chunkEvent("s1", 1, "hello"))
	collect(t, events, 1)

	conn.Close()

	select {
	case _, ok := <-events:
		if ok {
			t.Error("expected channel to close without more events")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel did not close after server disconnect")
	}
}

func TestUndecodableFramesSkipped(t *testing.T) {
	server := newProgressServer(t)
	channel := NewChannel(server.URL, Config{}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := channel.Subscribe(ctx, "s1")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	<-server.joins
	conn := <-server.conns

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("push failed: %v", err)
	}
	server.push(t, conn, chunkEvent("s1", 1, "hello"))

	got := collect(t, events, 1)
	if got[0].Chunk.Text != "hello" {
		t.Errorf("expected chunk after bad frame, got %+v", got[0])
	}
}

func TestSubscribeDialFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	channel := NewChannel(server.URL, Config{HandshakeTimeout: 200 * time.Millisecond}, testLogger())

	if _, err := channel.Subscribe(context.Background(), "s1"); err == nil {
		t.Error("expected dial failure")
	}
}

func TestSchemeUpgrade(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://host:9000", "ws://host:9000"},
		{"https://host", "wss://host"},
		{"ws://host", "ws://host"},
	}

	for _, tt := range tests {
		channel := NewChannel(tt.in, Config{}, testLogger())
		if got := channel.SchemeUpgraded(); got != tt.want {
			t.Errorf("SchemeUpgraded(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestChunkOrdererSkipsPersistentGap(t *testing.T) {
	order := newChunkOrderer(2)

	if got := order.add(chunkEvent("s", 1, "a")); len(got) != 1 {
		t.Fatalf("expected chunk 1 released immediately, got %d events", len(got))
	}

	// Chunk 2 never arrives; 3, 4, 5 pile up past the window.
	order.add(chunkEvent("s", 3, "c"))
	order.add(chunkEvent("s", 4, "d"))
	released := order.add(chunkEvent("s", 5, "e"))

	if len(released) != 3 {
		t.Fatalf("expected gap to be skipped releasing 3 chunks, got %d", len(released))
	}

	if released[0].Chunk.Text != "c" {
		t.Errorf("expected chunk 3 first after skip, got %q", released[0].Chunk.Text)
	}
}
