package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thisisprabha/summary/internal/audio"
	"github.com/thisisprabha/summary/internal/metrics"
	"github.com/thisisprabha/summary/internal/payload"
	"github.com/thisisprabha/summary/internal/progress"
	"github.com/thisisprabha/summary/internal/transcription"
)

const transcriptPreviewLimit = 200

// Config holds orchestrator tunables
type Config struct {
	// TempDir is where session artifacts are written before upload
	TempDir string

	// UploadTimeout bounds the upload and the summary request each
	UploadTimeout time.Duration
}

// Snapshot is a point-in-time copy of the current session for callers
// that poll state (CLI status line, diagnostics endpoint).
type Snapshot struct {
	ID            string
	State         State
	StartedAt     time.Time
	Transcription *transcription.Result
	Summary       string
}

// session carries the mutable per-session record. A new one is allocated
// by Start; terminal sessions are kept for snapshotting until replaced.
type session struct {
	id           string
	startedAt    time.Time
	artifactPath string
	state        State
	processing   bool
	result       *transcription.Result
	summary      string
	done         chan struct{}
}

// Orchestrator owns the session lifecycle. All state transitions happen
// under its lock; observer callbacks fire after the lock is released so
// observers may call back into the orchestrator.
type Orchestrator struct {
	capture *audio.Capture
	client  *transcription.Client
	channel *progress.Channel
	metrics *metrics.Metrics
	logger  *slog.Logger
	config  Config

	mu        sync.Mutex
	observers []Observer
	current   *session
}

// NewOrchestrator wires the capture engine, upload client, and optional
// progress channel together. channel and m may be nil to disable streamed
// progress and instrumentation respectively.
func NewOrchestrator(capture *audio.Capture, client *transcription.Client, channel *progress.Channel, m *metrics.Metrics, logger *slog.Logger, config Config) *Orchestrator {
	if config.TempDir == "" {
		config.TempDir = os.TempDir()
	}
	if config.UploadTimeout <= 0 {
		config.UploadTimeout = 30 * time.Second
	}

	return &Orchestrator{
		capture: capture,
		client:  client,
		channel: channel,
		metrics: m,
		logger:  logger,
		config:  config,
	}
}

// AddObserver registers a lifecycle observer. Observers added after a
// transition has fired do not receive it retroactively.
func (o *Orchestrator) AddObserver(obs Observer) {
	o.mu.Lock()
	o.observers = append(o.observers, obs)
	o.mu.Unlock()
}

// Start begins a new recording session. It refuses with ErrAlreadyActive
// while another session is in flight; the active session is not disturbed.
func (o *Orchestrator) Start() error {
	o.mu.Lock()
	if o.current != nil && !o.current.state.Terminal() {
		o.mu.Unlock()
		return ErrAlreadyActive
	}

	s := &session{
		id:        uuid.NewString(),
		startedAt: time.Now(),
		state:     StateRecording,
		done:      make(chan struct{}),
	}
	s.artifactPath = filepath.Join(o.config.TempDir, fmt.Sprintf("meeting_%s.wav", s.id))
	o.current = s
	o.mu.Unlock()

	if err := o.capture.Start(s.artifactPath); err != nil {
		failure := Failure{
			Kind:    FailureCapture,
			Message: "could not start recording: microphone unavailable",
			Err:     err,
		}
		o.fail(s, failure)
		return fmt.Errorf("failed to start recording: %w", err)
	}

	if o.metrics != nil {
		o.metrics.SessionsStarted.Inc()
	}

	o.logger.Info("Recording session started",
		slog.String("session_id", s.id),
		slog.String("artifact", s.artifactPath),
	)

	o.notify(func(obs Observer) { obs.RecordingStateChanged(true) })
	return nil
}

// Stop ends the capture and hands the artifact to the upload pipeline,
// which runs asynchronously. Stopping while nothing is recording is a
// no-op.
func (o *Orchestrator) Stop() error {
	o.mu.Lock()
	s := o.current
	if s == nil || s.state != StateRecording {
		o.mu.Unlock()
		return nil
	}
	s.state = StateStopping
	s.processing = true
	o.mu.Unlock()

	o.notify(func(obs Observer) { obs.RecordingStateChanged(false) })
	o.notify(func(obs Observer) { obs.ProcessingStateChanged(true) })

	artifact, err := o.capture.Stop()
	if err != nil {
		if o.stateOf(s) == StateCancelled {
			// Cancel won the race and already tore the capture down.
			return nil
		}
		o.fail(s, Failure{
			Kind:    FailureCapture,
			Message: "recording could not be finalized",
			Err:     err,
		})
		return fmt.Errorf("failed to stop recording: %w", err)
	}

	duration := time.Since(s.startedAt)
	if o.metrics != nil {
		o.metrics.RecordingDuration.Observe(duration.Seconds())
	}

	data, err := os.ReadFile(artifact)
	if err != nil {
		o.fail(s, Failure{
			Kind:    FailureCapture,
			Message: "recording artifact could not be read",
			Err:     err,
		})
		return fmt.Errorf("failed to read artifact: %w", err)
	}

	p, err := payload.Build(data, filepath.Base(artifact))
	if err != nil {
		o.fail(s, Failure{
			Kind:    FailureUpload,
			Message: "recording could not be packaged for upload",
			Err:     err,
		})
		return fmt.Errorf("failed to build upload payload: %w", err)
	}

	if !o.transition(s, StateStopping, StateUploading) {
		// Cancelled between capture stop and upload; artifact cleanup
		// is handled by Cancel.
		return nil
	}

	o.logger.Info("Recording stopped, uploading",
		slog.String("session_id", s.id),
		slog.Duration("duration", duration),
		slog.Int("payload_bytes", len(p.Body)),
	)

	go o.process(s, p)
	return nil
}

// Cancel abandons the current session. It only applies while recording or
// stopping; calling it in any other state, or repeatedly, is a no-op. The
// artifact is removed and no upload is attempted.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	s := o.current
	if s == nil || (s.state != StateRecording && s.state != StateStopping) {
		o.mu.Unlock()
		return
	}
	wasRecording := s.state == StateRecording
	wasProcessing := s.processing
	s.state = StateCancelled
	o.mu.Unlock()

	o.capture.Abort()
	os.Remove(s.artifactPath)

	if o.metrics != nil {
		o.metrics.SessionsCancelled.Inc()
	}

	o.logger.Info("Recording session cancelled", slog.String("session_id", s.id))

	if wasRecording {
		o.notify(func(obs Observer) { obs.RecordingStateChanged(false) })
	}
	if wasProcessing {
		o.notify(func(obs Observer) { obs.ProcessingStateChanged(false) })
	}
	close(s.done)
}

// process runs the upload and the auto-chained summary request. The
// artifact is deleted once the upload outcome is known, success or not.
func (o *Orchestrator) process(s *session, p *payload.Payload) {
	progressCtx, cancelProgress := context.WithCancel(context.Background())
	defer cancelProgress()
	o.subscribeProgress(progressCtx, s)

	ctx, cancel := context.WithTimeout(context.Background(), o.config.UploadTimeout)
	defer cancel()

	if o.metrics != nil {
		o.metrics.UploadRequests.Inc()
		o.metrics.UploadBytes.Observe(float64(len(p.Body)))
	}

	start := time.Now()
	result, err := o.client.Submit(ctx, p)
	os.Remove(s.artifactPath)

	if err != nil {
		if o.metrics != nil {
			o.metrics.UploadFailures.Inc()
		}
		o.fail(s, uploadFailure(err))
		return
	}

	if o.metrics != nil {
		o.metrics.UploadSuccesses.Inc()
		o.metrics.UploadDuration.Observe(time.Since(start).Seconds())
	}

	o.mu.Lock()
	if s.state != StateUploading {
		o.mu.Unlock()
		return
	}
	s.state = StateTranscribed
	s.result = result
	o.mu.Unlock()

	o.logger.Info("Transcription received",
		slog.String("session_id", s.id),
		slog.Int("transcription_id", result.TranscriptionID),
	)

	o.notify(func(obs Observer) { obs.SummaryReceived(preview(result.Transcription)) })

	o.summarize(s, result)
}

// summarize runs the best-effort summary request. Failure here is
// reported but never demotes the session: the transcript is already safe.
func (o *Orchestrator) summarize(s *session, result *transcription.Result) {
	o.mu.Lock()
	if s.state != StateTranscribed {
		o.mu.Unlock()
		return
	}
	s.state = StateSummarizing
	o.mu.Unlock()

	if o.metrics != nil {
		o.metrics.SummaryRequests.Inc()
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.config.UploadTimeout)
	defer cancel()

	summary, err := o.client.GenerateSummary(ctx, result.Transcription, result.TranscriptionID)

	o.mu.Lock()
	s.state = StateComplete
	if err == nil {
		s.summary = summary
	}
	o.mu.Unlock()

	if o.metrics != nil {
		o.metrics.SessionsCompleted.Inc()
	}

	if err != nil {
		if o.metrics != nil {
			o.metrics.SummaryFailures.Inc()
		}
		o.logger.Warn("Summary generation failed, transcript retained",
			slog.String("session_id", s.id),
			slog.String("error", err.Error()),
		)
		o.notify(func(obs Observer) {
			obs.ErrorOccurred(Failure{
				Kind:    FailureSummary,
				Message: "summary generation failed; the transcript is still available",
				Err:     err,
			})
		})
	} else {
		o.logger.Info("Session complete", slog.String("session_id", s.id))
		o.notify(func(obs Observer) { obs.SummaryReceived(summary) })
	}

	o.notify(func(obs Observer) { obs.ProcessingStateChanged(false) })
	close(s.done)
}

// subscribeProgress joins the streamed progress channel for the session.
// The channel is optional and its failures never affect the upload.
func (o *Orchestrator) subscribeProgress(ctx context.Context, s *session) {
	if o.channel == nil {
		return
	}

	events, err := o.channel.Subscribe(ctx, s.id)
	if err != nil {
		o.logger.Warn("Progress channel unavailable",
			slog.String("session_id", s.id),
			slog.String("error", err.Error()),
		)
		return
	}

	go func() {
		for event := range events {
			if o.metrics != nil {
				o.metrics.ProgressEvents.Inc()
				if event.Chunk != nil {
					o.metrics.ProgressChunks.Inc()
				}
			}
			o.notifyProgress(event)
		}
		if o.metrics != nil {
			o.metrics.ProgressDisconnects.Inc()
		}
	}()
}

// fail moves the session to Errored, removes the artifact, and reports
// the failure. Already-terminal sessions are left alone.
func (o *Orchestrator) fail(s *session, failure Failure) {
	o.mu.Lock()
	if s.state.Terminal() {
		o.mu.Unlock()
		return
	}
	s.state = StateErrored
	wasProcessing := s.processing
	o.mu.Unlock()

	os.Remove(s.artifactPath)

	if o.metrics != nil {
		o.metrics.SessionsFailed.Inc()
	}

	o.logger.Error("Recording session failed",
		slog.String("session_id", s.id),
		slog.String("kind", string(failure.Kind)),
		slog.String("error", failure.Error()),
	)

	if wasProcessing {
		o.notify(func(obs Observer) { obs.ProcessingStateChanged(false) })
	}
	o.notify(func(obs Observer) { obs.ErrorOccurred(failure) })
	close(s.done)
}

// transition performs a compare-and-set state change
func (o *Orchestrator) transition(s *session, from, to State) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s.state != from {
		return false
	}
	s.state = to
	return true
}

func (o *Orchestrator) stateOf(s *session) State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return s.state
}

// State reports the current session state, StateIdle when none exists
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil {
		return StateIdle
	}
	return o.current.state
}

// Snapshot returns a copy of the current session record
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil {
		return Snapshot{State: StateIdle}
	}
	return Snapshot{
		ID:            o.current.id,
		State:         o.current.state,
		StartedAt:     o.current.startedAt,
		Transcription: o.current.result,
		Summary:       o.current.summary,
	}
}

// Elapsed returns the recorded duration of the running capture
func (o *Orchestrator) Elapsed() time.Duration {
	return o.capture.Elapsed()
}

// Done returns a channel closed when the current session reaches a
// terminal state. With no session it returns an already-closed channel.
func (o *Orchestrator) Done() <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return o.current.done
}

// notify fans a callback out to all observers outside the lock
func (o *Orchestrator) notify(fn func(Observer)) {
	o.mu.Lock()
	observers := make([]Observer, len(o.observers))
	copy(observers, o.observers)
	o.mu.Unlock()

	for _, obs := range observers {
		fn(obs)
	}
}

func (o *Orchestrator) notifyProgress(event progress.Event) {
	o.mu.Lock()
	observers := make([]Observer, len(o.observers))
	copy(observers, o.observers)
	o.mu.Unlock()

	for _, obs := range observers {
		if po, ok := obs.(ProgressObserver); ok {
			po.ProgressUpdated(event)
		}
	}
}

// uploadFailure maps a typed client error to a user-facing failure.
// Server-supplied messages pass through verbatim.
func uploadFailure(err error) Failure {
	message := "upload failed"
	switch transcription.KindOf(err) {
	case transcription.ErrTransport:
		message = "could not reach the transcription server"
	case transcription.ErrServerRejected:
		message = serverMessage(err)
	case transcription.ErrProtocolMismatch:
		message = "the server returned an unexpected response; client and server versions may not match"
	}
	return Failure{Kind: FailureUpload, Message: message, Err: err}
}

func serverMessage(err error) string {
	var e *transcription.Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "the server rejected the upload"
}

func preview(transcript string) string {
	if len(transcript) <= transcriptPreviewLimit {
		return transcript
	}
	return transcript[:transcriptPreviewLimit] + "..."
}
