// Package audio handles microphone capture and WAV encoding for recording sessions.
// It owns the exclusive device handle, pumps PCM frames into a file-backed sink,
// and finalizes well-formed WAV artifacts sized for speech transcription.
package audio
