// Command stubserver is a local stand-in for the transcription server,
// useful for end-to-end testing of the recorder without GPU hardware.
// It accepts uploads, returns canned transcripts, streams fake progress
// over websocket, and serves history and downloads from memory.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const cannedTranscript = "This is a stub transcription of the uploaded meeting audio"

type record struct {
	ID        int
	Filename  string
	CreatedAt time.Time
	FileSize  int64
	Text      string
	Summary   string
}

type store struct {
	mu      sync.Mutex
	nextID  int
	records map[int]*record
}

func newStore() *store {
	return &store{nextID: 1, records: make(map[int]*record)}
}

func (s *store) add(filename string, size int64, text string) *record {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := &record{
		ID:        s.nextID,
		Filename:  filename,
		CreatedAt: time.Now(),
		FileSize:  size,
		Text:      text,
	}
	s.records[r.ID] = r
	s.nextID++
	return r
}

func (s *store) get(id int) (*record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	return r, ok
}

func (s *store) all() []*record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	return out
}

// hub tracks websocket subscribers by session id
type hub struct {
	mu    sync.Mutex
	conns map[string][]*websocket.Conn
}

func newHub() *hub {
	return &hub{conns: make(map[string][]*websocket.Conn)}
}

func (h *hub) join(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[sessionID] = append(h.conns[sessionID], conn)
	h.mu.Unlock()
}

func (h *hub) broadcast(sessionID string, v interface{}) {
	h.mu.Lock()
	conns := append([]*websocket.Conn(nil), h.conns[sessionID]...)
	h.mu.Unlock()
	for _, conn := range conns {
		conn.WriteJSON(v)
	}
}

type server struct {
	store    *store
	hub      *hub
	upgrader websocket.Upgrader
	delay    time.Duration
}

func (s *server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "could not parse multipart form"})
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "missing audio field"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": "could not read audio"})
		return
	}

	log.Printf("upload received: %s (%d bytes)", header.Filename, len(data))

	// Stream fake partial transcripts to any joined session before
	// answering, so progress ordering can be exercised end to end.
	sessionID := strings.TrimSuffix(header.Filename, ".wav")
	sessionID = strings.TrimPrefix(sessionID, "meeting_")
	words := strings.Fields(cannedTranscript)
	for i, word := range words {
		s.hub.broadcast(sessionID, map[string]interface{}{
			"session_id": sessionID,
			"stage":      "transcribing",
			"progress":   float64(i+1) / float64(len(words)),
			"transcription_chunk": map[string]interface{}{
				"timestamp":    time.Now().Format(time.RFC3339),
				"text":         word,
				"chunk_number": i + 1,
			},
		})
		time.Sleep(s.delay)
	}

	rec := s.store.add(header.Filename, int64(len(data)), cannedTranscript)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":          true,
		"transcription":    rec.Text,
		"transcription_id": rec.ID,
		"filename":         rec.Filename,
		"download_url":     fmt.Sprintf("/download/transcription/%d", rec.ID),
		"analysis": map[string]interface{}{
			"language":         "english",
			"quality":          "good",
			"total_words":      len(words),
			"unique_words":     len(words),
			"repetition_ratio": 0.0,
		},
	})
}

func (s *server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Transcription   string `json:"transcription"`
		TranscriptionID int    `json:"transcription_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "invalid request body"})
		return
	}

	summary := "Summary: " + firstWords(req.Transcription, 8)
	if rec, ok := s.store.get(req.TranscriptionID); ok {
		s.store.mu.Lock()
		rec.Summary = summary
		s.store.mu.Unlock()
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"summary":      summary,
		"download_url": fmt.Sprintf("/download/summary/%d", req.TranscriptionID),
	})
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries := []map[string]interface{}{}
	for _, rec := range s.store.all() {
		entry := map[string]interface{}{
			"id":                rec.ID,
			"filename":          rec.Filename,
			"created_at":        rec.CreatedAt.Format(time.RFC3339),
			"file_size":         rec.FileSize,
			"has_summary":       rec.Summary != "",
			"transcription_url": fmt.Sprintf("/download/transcription/%d", rec.ID),
		}
		if rec.Summary != "" {
			entry["summary_url"] = fmt.Sprintf("/download/summary/%d", rec.ID)
		}
		entries = append(entries, entry)
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *server) handleDownload(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/download/"), "/")
	if len(parts) != 2 {
		http.NotFound(w, r)
		return
	}

	id, err := strconv.Atoi(parts[1])
	if err != nil {
		http.Error(w, "Invalid id", http.StatusBadRequest)
		return
	}

	rec, ok := s.store.get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	switch parts[0] {
	case "transcription":
		fmt.Fprint(w, rec.Text)
	case "summary":
		if rec.Summary == "" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, rec.Summary)
	default:
		http.NotFound(w, r)
	}
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "healthy"})
}

// handleRoot upgrades websocket connections for progress streaming
func (s *server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		http.NotFound(w, r)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	go func() {
		defer conn.Close()
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				return
			}
			text := string(frame)
			if strings.HasPrefix(text, "join_session:") {
				var join struct {
					SessionID string `json:"session_id"`
				}
				if json.Unmarshal([]byte(strings.TrimPrefix(text, "join_session:")), &join) == nil {
					log.Printf("session joined: %s", join.SessionID)
					s.hub.join(join.SessionID, conn)
				}
			}
		}
	}()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func firstWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

func main() {
	port := flag.Int("port", 9000, "listen port")
	delay := flag.Duration("chunk-delay", 50*time.Millisecond, "delay between fake progress chunks")
	flag.Parse()

	srv := &server{
		store: newStore(),
		hub:   newHub(),
		delay: *delay,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/upload", srv.handleUpload)
	mux.HandleFunc("/summarize", srv.handleSummarize)
	mux.HandleFunc("/history", srv.handleHistory)
	mux.HandleFunc("/download/", srv.handleDownload)
	mux.HandleFunc("/health", srv.handleHealth)
	mux.HandleFunc("/", srv.handleRoot)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("stub transcription server listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal("server failed to start:", err)
	}
}
