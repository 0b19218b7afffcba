// Package payload builds the multipart upload body for a completed recording.
// Encoding is a pure function of the audio bytes, filename, and boundary token,
// which keeps the wire format reproducible in tests.
package payload
