// Package progress implements the optional websocket channel that streams
// server-side processing updates for a session. The channel is best-effort:
// connection loss stops events but never affects the session outcome, which
// is determined by the HTTP response alone.
package progress
