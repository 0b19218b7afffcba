// Package session drives the recording session lifecycle: capture, upload,
// transcription, and best-effort summary generation. The orchestrator owns
// all session mutable state and reports transitions to observers; at most
// one session is non-terminal at a time.
package session
