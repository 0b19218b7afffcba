package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// joinPrefix precedes the JSON join frame sent after connecting
const joinPrefix = "join_session:"

// Event is one server-side processing update for a session
type Event struct {
	SessionID string           `json:"session_id"`
	Stage     string           `json:"stage"`
	Progress  float64          `json:"progress"`
	Message   string           `json:"message"`
	Chunk     *TranscriptChunk `json:"transcription_chunk,omitempty"`
}

// TranscriptChunk is a partial-transcript fragment. Chunk numbers, not
// arrival order, define display order.
type TranscriptChunk struct {
	Timestamp   string `json:"timestamp"`
	Text        string `json:"text"`
	ChunkNumber int    `json:"chunk_number"`
}

// Config contains progress channel configuration
type Config struct {
	JitterWindow     int
	HandshakeTimeout time.Duration
}

// Channel subscribes to streaming progress updates over a websocket
type Channel struct {
	serverURL    string
	jitterWindow int
	dialer       *websocket.Dialer
	logger       *slog.Logger
}

// NewChannel creates a progress channel against the HTTP server base URL.
// The scheme is upgraded to the websocket variant on dial.
func NewChannel(serverURL string, config Config, logger *slog.Logger) *Channel {
	if config.JitterWindow <= 0 {
		config.JitterWindow = 8
	}

	if config.HandshakeTimeout <= 0 {
		config.HandshakeTimeout = 10 * time.Second
	}

	return &Channel{
		serverURL:    serverURL,
		jitterWindow: config.JitterWindow,
		dialer: &websocket.Dialer{
			HandshakeTimeout: config.HandshakeTimeout,
		},
		logger: logger,
	}
}

// wsURL converts the HTTP base URL to its websocket equivalent
func (c *Channel) wsURL() (string, error) {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL %q: %w", c.serverURL, err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
		// already a websocket URL
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	return u.String(), nil
}

// Subscribe connects, announces the session, and returns an ordered event
// stream. The join frame is fire-and-forget: no acknowledgment is expected.
// The returned channel closes when the connection drops, the context is
// cancelled, or the server closes the socket. No reconnection is attempted.
func (c *Channel) Subscribe(ctx context.Context, sessionID string) (<-chan Event, error) {
	target, err := c.wsURL()
	if err != nil {
		return nil, err
	}

	conn, _, err := c.dialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect progress channel: %w", err)
	}

	join, err := json.Marshal(map[string]string{"session_id": sessionID})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to encode join frame: %w", err)
	}

	if err := conn.WriteMessage(websocket.TextMessage, append([]byte(joinPrefix), join...)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send join frame: %w", err)
	}

	c.logger.Info("Progress channel subscribed",
		slog.String("session_id", sessionID),
		slog.String("url", target),
	)

	events := make(chan Event)
	go c.readLoop(ctx, conn, sessionID, events)

	return events, nil
}

// readLoop decodes frames and releases chunk events in chunk-number order
// within the jitter window. Non-chunk events pass through as they arrive.
func (c *Channel) readLoop(ctx context.Context, conn *websocket.Conn, sessionID string, events chan<- Event) {
	defer close(events)
	defer conn.Close()

	// Close the socket when the subscriber cancels so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	order := newChunkOrderer(c.jitterWindow)

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			// Connection loss is non-fatal to the owning session.
			c.logger.Info("Progress channel closed",
				slog.String("session_id", sessionID),
				slog.String("reason", err.Error()),
			)
			c.flush(ctx, order, events)
			return
		}

		var event Event
		if err := json.Unmarshal(frame, &event); err != nil {
			c.logger.Debug("Skipping undecodable progress frame",
				slog.String("session_id", sessionID),
				slog.Int("frame_bytes", len(frame)),
			)
			continue
		}

		for _, ready := range order.add(event) {
			select {
			case events <- ready:
			case <-ctx.Done():
				return
			}
		}
	}
}

// flush drains any chunks still held in the jitter window
func (c *Channel) flush(ctx context.Context, order *chunkOrderer, events chan<- Event) {
	for _, ready := range order.drain() {
		select {
		case events <- ready:
		case <-ctx.Done():
			return
		}
	}
}

// chunkOrderer reorders transcript-chunk events by chunk number, holding at
// most window out-of-order chunks before skipping a gap. Chunk numbering
// starts at 1.
type chunkOrderer struct {
	window  int
	next    int
	pending map[int]Event
}

func newChunkOrderer(window int) *chunkOrderer {
	return &chunkOrderer{
		window:  window,
		next:    1,
		pending: make(map[int]Event),
	}
}

func (o *chunkOrderer) add(event Event) []Event {
	if event.Chunk == nil {
		return []Event{event}
	}

	num := event.Chunk.ChunkNumber
	if num < o.next {
		// Duplicate or already-superseded chunk; drop it.
		return nil
	}

	o.pending[num] = event

	var ready []Event
	for {
		if event, ok := o.pending[o.next]; ok {
			ready = append(ready, event)
			delete(o.pending, o.next)
			o.next++
			continue
		}

		// A persistent gap beyond the jitter window is skipped rather than
		// stalling the stream forever.
		if len(o.pending) > o.window {
			o.next++
			continue
		}

		return ready
	}
}

// drain releases all held chunks in ascending order
func (o *chunkOrderer) drain() []Event {
	var ready []Event
	for len(o.pending) > 0 {
		if event, ok := o.pending[o.next]; ok {
			ready = append(ready, event)
			delete(o.pending, o.next)
		}
		o.next++
	}
	return ready
}

// SchemeUpgraded reports the websocket URL this channel will dial, for
// diagnostics output.
func (c *Channel) SchemeUpgraded() string {
	target, err := c.wsURL()
	if err != nil {
		return c.serverURL
	}
	if !strings.HasPrefix(target, "ws") {
		return c.serverURL
	}
	return target
}
