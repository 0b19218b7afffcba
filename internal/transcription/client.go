package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/thisisprabha/summary/internal/payload"
)

// Client provides HTTP client functionality for the transcription service
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger

	baseURL string

	// Statistics
	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64
	avgResponseTime time.Duration

	mu sync.RWMutex
}

// Config contains transcription client configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Result represents a successful transcription response
type Result struct {
	TranscriptionID int
	Transcription   string
	Filename        string
	DownloadURL     string
	Analysis        *Analysis
}

// Analysis carries the server's language analysis of a transcript
type Analysis struct {
	Language             string  `json:"language"`
	Quality              string  `json:"quality"`
	TotalWords           int     `json:"total_words"`
	UniqueWords          int     `json:"unique_words"`
	RepetitionRatio      float64 `json:"repetition_ratio"`
	TamilWordsDetected   *int    `json:"tamil_words_detected,omitempty"`
	EnglishWordsDetected *int    `json:"english_words_detected,omitempty"`
}

// HistoryEntry describes one past transcription from the /history endpoint
type HistoryEntry struct {
	ID               int    `json:"id"`
	Filename         string `json:"filename"`
	CreatedAt        string `json:"created_at"`
	FileSize         int64  `json:"file_size"`
	HasSummary       bool   `json:"has_summary"`
	TranscriptionURL string `json:"transcription_url"`
	SummaryURL       string `json:"summary_url,omitempty"`
}

// ClientStats represents client statistics
type ClientStats struct {
	TotalRequests   uint64        `json:"total_requests"`
	SuccessRequests uint64        `json:"success_requests"`
	FailedRequests  uint64        `json:"failed_requests"`
	SuccessRate     float64       `json:"success_rate"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
}

// uploadResponse mirrors the server's /upload JSON schema
type uploadResponse struct {
	Success         bool      `json:"success"`
	Transcription   string    `json:"transcription"`
	TranscriptionID int       `json:"transcription_id"`
	Filename        string    `json:"filename"`
	DownloadURL     string    `json:"download_url"`
	Analysis        *Analysis `json:"analysis"`
	Error           string    `json:"error"`
}

// summaryResponse mirrors the server's /summarize JSON schema
type summaryResponse struct {
	Success     bool   `json:"success"`
	Summary     string `json:"summary"`
	DownloadURL string `json:"download_url"`
	Error       string `json:"error"`
}

// NewClient creates a new transcription HTTP client
func NewClient(config Config, logger *slog.Logger) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}

	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
	}, nil
}

// BaseURL returns the current server base URL
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// UpdateBaseURL changes the server endpoint at runtime
func (c *Client) UpdateBaseURL(url string) {
	c.mu.Lock()
	c.baseURL = strings.TrimRight(url, "/")
	c.mu.Unlock()
}

func (c *Client) endpoint(path string) string {
	return c.BaseURL() + path
}

// Submit uploads an encoded audio payload and returns the transcription.
// Exactly one network attempt is made; the audio artifact stays local so a
// failed upload is loss-free to retry with a new session.
func (c *Client) Submit(ctx context.Context, p *payload.Payload) (*Result, error) {
	startTime := time.Now()
	c.incrementTotalRequests()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/upload"), bytes.NewReader(p.Body))
	if err != nil {
		c.incrementFailedRequests()
		return nil, transportError(err)
	}
	req.Header.Set("Content-Type", p.ContentType())
	req.Header.Set("Accept", "application/json")

	c.logger.Info("Submitting recording for transcription",
		slog.String("filename", p.Filename),
		slog.Int("payload_bytes", len(p.Body)),
	)

	body, status, err := c.do(req)
	if err != nil {
		c.incrementFailedRequests()
		return nil, err
	}

	var resp uploadResponse
	if status != http.StatusOK {
		c.incrementFailedRequests()
		// The server reports structured errors even on non-200; fall back to
		// the raw body when it does not decode.
		if json.Unmarshal(body, &resp) == nil && resp.Error != "" {
			return nil, rejectedError(resp.Error)
		}
		return nil, rejectedError(fmt.Sprintf("HTTP %d: %s", status, strings.TrimSpace(string(body))))
	}

	if err := json.Unmarshal(body, &resp); err != nil {
		c.incrementFailedRequests()
		return nil, protocolError(fmt.Errorf("failed to decode upload response: %w", err))
	}

	if resp.Error != "" || !resp.Success {
		c.incrementFailedRequests()
		if resp.Error == "" {
			return nil, rejectedError("server reported failure without a message")
		}
		return nil, rejectedError(resp.Error)
	}

	c.incrementSuccessRequests()
	c.updateAvgResponseTime(time.Since(startTime))

	c.logger.Info("Transcription received",
		slog.Int("transcription_id", resp.TranscriptionID),
		slog.Int("transcript_length", len(resp.Transcription)),
		slog.Float64("duration", time.Since(startTime).Seconds()),
	)

	return &Result{
		TranscriptionID: resp.TranscriptionID,
		Transcription:   resp.Transcription,
		Filename:        resp.Filename,
		DownloadURL:     resp.DownloadURL,
		Analysis:        resp.Analysis,
	}, nil
}

// GenerateSummary requests a summary for a previously obtained transcription
func (c *Client) GenerateSummary(ctx context.Context, transcript string, transcriptionID int) (string, error) {
	c.incrementTotalRequests()
	startTime := time.Now()

	reqBody, err := json.Marshal(map[string]interface{}{
		"transcription":    transcript,
		"transcription_id": transcriptionID,
	})
	if err != nil {
		c.incrementFailedRequests()
		return "", transportError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/summarize"), bytes.NewReader(reqBody))
	if err != nil {
		c.incrementFailedRequests()
		return "", transportError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, status, err := c.do(req)
	if err != nil {
		c.incrementFailedRequests()
		return "", err
	}

	var resp summaryResponse
	if status != http.StatusOK {
		c.incrementFailedRequests()
		if json.Unmarshal(body, &resp) == nil && resp.Error != "" {
			return "", rejectedError(resp.Error)
		}
		return "", rejectedError(fmt.Sprintf("HTTP %d: %s", status, strings.TrimSpace(string(body))))
	}

	if err := json.Unmarshal(body, &resp); err != nil {
		c.incrementFailedRequests()
		return "", protocolError(fmt.Errorf("failed to decode summary response: %w", err))
	}

	if resp.Error != "" || !resp.Success {
		c.incrementFailedRequests()
		if resp.Error == "" {
			return "", rejectedError("server reported failure without a message")
		}
		return "", rejectedError(resp.Error)
	}

	c.incrementSuccessRequests()
	c.updateAvgResponseTime(time.Since(startTime))

	c.logger.Info("Summary received",
		slog.Int("transcription_id", transcriptionID),
		slog.Int("summary_length", len(resp.Summary)),
	)

	return resp.Summary, nil
}

// HealthCheck reports whether the server is reachable. Diagnostics only;
// it never gates the session state machine and raises no typed errors.
func (c *Client) HealthCheck(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/health"), nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK
}

// History fetches the list of past transcriptions. Entries are never cached;
// each query reflects the server's current state.
func (c *Client) History(ctx context.Context) ([]HistoryEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/history"), nil)
	if err != nil {
		return nil, transportError(err)
	}
	req.Header.Set("Accept", "application/json")

	body, status, err := c.do(req)
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK {
		return nil, rejectedError(fmt.Sprintf("HTTP %d: %s", status, strings.TrimSpace(string(body))))
	}

	var entries []HistoryEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, protocolError(fmt.Errorf("failed to decode history response: %w", err))
	}

	return entries, nil
}

// DownloadTranscription fetches the raw transcript text for an id
func (c *Client) DownloadTranscription(ctx context.Context, id int) (string, error) {
	return c.downloadText(ctx, fmt.Sprintf("/download/transcription/%d", id))
}

// DownloadSummary fetches the raw summary text for a transcription id
func (c *Client) DownloadSummary(ctx context.Context, id int) (string, error) {
	return c.downloadText(ctx, fmt.Sprintf("/download/summary/%d", id))
}

func (c *Client) downloadText(ctx context.Context, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path), nil)
	if err != nil {
		return "", transportError(err)
	}

	body, status, err := c.do(req)
	if err != nil {
		return "", err
	}

	if status != http.StatusOK {
		return "", rejectedError(fmt.Sprintf("HTTP %d: %s", status, strings.TrimSpace(string(body))))
	}

	return string(body), nil
}

// do performs a single request and reads the full response body.
// Transport-level failures, including timeouts and unreadable bodies,
// come back as ErrTransport.
func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, transportError(fmt.Errorf("failed to read response body: %w", err))
	}

	return body, resp.StatusCode, nil
}

// Statistics methods

func (c *Client) incrementTotalRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
}

func (c *Client) incrementSuccessRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.successRequests++
}

func (c *Client) incrementFailedRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failedRequests++
}

func (c *Client) updateAvgResponseTime(responseTime time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Simple moving average
	if c.avgResponseTime == 0 {
		c.avgResponseTime = responseTime
	} else {
		c.avgResponseTime = (c.avgResponseTime + responseTime) / 2
	}
}

// GetStats returns current client statistics
func (c *Client) GetStats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	successRate := float64(0)
	if c.totalRequests > 0 {
		successRate = float64(c.successRequests) / float64(c.totalRequests) * 100
	}

	return ClientStats{
		TotalRequests:   c.totalRequests,
		SuccessRequests: c.successRequests,
		FailedRequests:  c.failedRequests,
		SuccessRate:     successRate,
		AvgResponseTime: c.avgResponseTime,
	}
}
