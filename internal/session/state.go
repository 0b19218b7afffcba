package session

import (
	"errors"

	"github.com/thisisprabha/summary/internal/progress"
)

// ErrAlreadyActive is returned by Start while another session is still
// in flight. The active session is left untouched.
var ErrAlreadyActive = errors.New("a recording session is already active")

// State identifies where a session is in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateStopping
	StateUploading
	StateTranscribed
	StateSummarizing
	StateComplete
	StateErrored
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateStopping:
		return "stopping"
	case StateUploading:
		return "uploading"
	case StateTranscribed:
		return "transcribed"
	case StateSummarizing:
		return "summarizing"
	case StateComplete:
		return "complete"
	case StateErrored:
		return "errored"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the session can no longer make progress.
func (s State) Terminal() bool {
	switch s {
	case StateComplete, StateErrored, StateCancelled:
		return true
	}
	return false
}

// FailureKind classifies a session failure for observers.
type FailureKind string

const (
	FailureCapture FailureKind = "capture_failure"
	FailureUpload  FailureKind = "upload_failure"
	FailureSummary FailureKind = "summary_failure"
)

// Failure carries a user-presentable message alongside the underlying error.
// Messages originating from the server are passed through verbatim.
type Failure struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (f Failure) Error() string {
	return f.Message
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Observer receives lifecycle callbacks. Each callback fires exactly once
// per matching transition, outside the orchestrator lock.
type Observer interface {
	RecordingStateChanged(recording bool)
	ProcessingStateChanged(processing bool)
	SummaryReceived(text string)
	ErrorOccurred(failure Failure)
}

// ProgressObserver is optionally implemented by observers that also want
// streamed progress events. Checked by type assertion at dispatch time.
type ProgressObserver interface {
	ProgressUpdated(event progress.Event)
}
