package audio

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// Sink accumulates PCM frames into a WAV file on disk. The file carries a
// placeholder header while recording; Finalize rewrites it with the real
// data size so the artifact is a playable WAV even for short captures.
type Sink struct {
	path   string
	format Format
	file   *os.File

	bytesWritten uint32
	frameCount   uint64
	lastWrite    time.Time
	finalized    bool

	mu sync.Mutex
}

// NewSink creates the artifact file and writes the placeholder header
func NewSink(path string, format Format) (*Sink, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio artifact %s: %w", path, err)
	}

	if err := WriteWAVHeader(file, 0, format); err != nil {
		file.Close()
		os.Remove(path)
		return nil, err
	}

	return &Sink{
		path:   path,
		format: format,
		file:   file,
	}, nil
}

// Write appends a PCM frame to the artifact
func (s *Sink) Write(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return fmt.Errorf("sink is closed")
	}

	if len(frame) == 0 {
		return nil
	}

	blockAlign := s.format.Channels * s.format.BitDepth / 8
	if len(frame)%blockAlign != 0 {
		return fmt.Errorf("frame length %d is not aligned to %d-byte frames", len(frame), blockAlign)
	}

	if _, err := s.file.Write(frame); err != nil {
		return fmt.Errorf("failed to write audio frame: %w", err)
	}

	s.bytesWritten += uint32(len(frame))
	s.frameCount++
	s.lastWrite = time.Now()

	return nil
}

// Duration returns the recorded duration derived from the byte count
func (s *Sink) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	byteRate := s.format.SampleRate * s.format.Channels * s.format.BitDepth / 8
	return time.Duration(float64(s.bytesWritten) / float64(byteRate) * float64(time.Second))
}

// BytesWritten returns the number of PCM bytes recorded so far
func (s *Sink) BytesWritten() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytesWritten
}

// Path returns the artifact location
func (s *Sink) Path() string {
	return s.path
}

// Finalize rewrites the WAV header with the real data size and closes the file
func (s *Sink) Finalize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		if s.finalized {
			return nil
		}
		return fmt.Errorf("sink is closed")
	}

	if s.bytesWritten == 0 {
		s.closeAndRemoveLocked()
		return fmt.Errorf("no audio recorded")
	}

	if _, err := s.file.Seek(0, 0); err != nil {
		s.closeAndRemoveLocked()
		return fmt.Errorf("failed to rewind artifact: %w", err)
	}

	if err := WriteWAVHeader(s.file, s.bytesWritten, s.format); err != nil {
		s.closeAndRemoveLocked()
		return err
	}

	if err := s.file.Close(); err != nil {
		s.file = nil
		os.Remove(s.path)
		return fmt.Errorf("failed to close artifact: %w", err)
	}

	s.file = nil
	s.finalized = true

	return nil
}

// Discard closes the sink and removes the artifact. Safe to call repeatedly
// and after Finalize, so cleanup paths can always invoke it.
func (s *Sink) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeAndRemoveLocked()
}

func (s *Sink) closeAndRemoveLocked() {
	if s.file != nil {
		s.file.Close()
		s.file = nil
	}
	os.Remove(s.path)
	s.finalized = false
}
