// Package transcription implements the HTTP client for the remote
// transcription and summarization service. It submits multipart audio
// uploads, chains summary generation, and maps transport and protocol
// failures into a typed error taxonomy. Each call performs exactly one
// network attempt; retry policy belongs to the caller.
package transcription
