package audio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// ErrDeviceBusy is returned when a capture is started while the device
// handle is already held by an active capture.
var ErrDeviceBusy = errors.New("audio device is already capturing")

// Format describes the PCM capture format
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// DefaultFormat is tuned for speech transcription (Whisper-style models)
var DefaultFormat = Format{
	SampleRate: 16000,
	Channels:   1,
	BitDepth:   16,
}

// Validate checks the format parameters
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", f.SampleRate)
	}

	if f.Channels < 1 {
		return fmt.Errorf("channel count must be at least 1, got %d", f.Channels)
	}

	if f.BitDepth != 16 {
		return fmt.Errorf("bit depth must be 16, got %d", f.BitDepth)
	}

	return nil
}

// FrameReader delivers PCM frames from an open device. ReadFrame blocks
// until a frame is available and returns io.EOF once the device is closed.
type FrameReader interface {
	ReadFrame() ([]byte, error)
	Close() error
}

// Device is the platform microphone boundary. Implementations own the OS
// handle; everything above this interface is platform independent.
type Device interface {
	Open(format Format) (FrameReader, error)
}

// Capture owns the microphone device handle for at most one active
// recording and pumps its frames into a file-backed WAV sink.
type Capture struct {
	device Device
	format Format
	logger *slog.Logger

	mu       sync.Mutex
	active   bool
	sink     *Sink
	frames   FrameReader
	pumpDone chan struct{}
	pumpErr  error
}

// NewCapture creates a capture engine bound to a device
func NewCapture(device Device, format Format, logger *slog.Logger) *Capture {
	return &Capture{
		device: device,
		format: format,
		logger: logger,
	}
}

// Start opens the device and begins writing frames to the artifact at path.
// It refuses with ErrDeviceBusy if a capture is already running rather than
// stealing the device handle. On failure no partial artifact is left behind.
func (c *Capture) Start(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active {
		return ErrDeviceBusy
	}

	sink, err := NewSink(path, c.format)
	if err != nil {
		return fmt.Errorf("failed to create audio sink: %w", err)
	}

	frames, err := c.device.Open(c.format)
	if err != nil {
		sink.Discard()
		return fmt.Errorf("failed to open audio device: %w", err)
	}

	c.active = true
	c.sink = sink
	c.frames = frames
	c.pumpDone = make(chan struct{})
	c.pumpErr = nil

	go c.pump(frames, sink, c.pumpDone)

	c.logger.Info("Audio capture started",
		slog.String("artifact", path),
		slog.Int("sample_rate", c.format.SampleRate),
		slog.Int("channels", c.format.Channels),
		slog.Int("bit_depth", c.format.BitDepth),
	)

	return nil
}

// pump copies frames from the device into the sink until the reader is closed
func (c *Capture) pump(frames FrameReader, sink *Sink, done chan struct{}) {
	defer close(done)

	for {
		frame, err := frames.ReadFrame()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.setPumpErr(fmt.Errorf("device read failed: %w", err))
			}
			return
		}

		if err := sink.Write(frame); err != nil {
			c.setPumpErr(err)
			return
		}
	}
}

func (c *Capture) setPumpErr(err error) {
	c.mu.Lock()
	if c.pumpErr == nil {
		c.pumpErr = err
	}
	c.mu.Unlock()
	c.logger.Error("Audio capture pump failed", slog.String("error", err.Error()))
}

// Active reports whether a capture is currently running
func (c *Capture) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Elapsed returns the recorded duration of the running capture
func (c *Capture) Elapsed() time.Duration {
	c.mu.Lock()
	sink := c.sink
	c.mu.Unlock()

	if sink == nil {
		return 0
	}
	return sink.Duration()
}

// Stop finalizes the capture and returns the artifact path. The device
// handle is released; a pump error surfaces here and the artifact is
// removed so failure paths never leak files.
func (c *Capture) Stop() (string, error) {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return "", fmt.Errorf("no capture in progress")
	}

	frames := c.frames
	sink := c.sink
	done := c.pumpDone

	c.active = false
	c.frames = nil
	c.sink = nil
	c.mu.Unlock()

	frames.Close()
	<-done

	c.mu.Lock()
	pumpErr := c.pumpErr
	c.mu.Unlock()

	if pumpErr != nil {
		sink.Discard()
		return "", pumpErr
	}

	if err := sink.Finalize(); err != nil {
		return "", err
	}

	c.logger.Info("Audio capture stopped",
		slog.String("artifact", sink.Path()),
		slog.Uint64("pcm_bytes", uint64(sink.BytesWritten())),
	)

	return sink.Path(), nil
}

// Abort tears down a running capture and removes the artifact.
// It is a no-op when nothing is capturing, so cancellation paths can
// always call it.
func (c *Capture) Abort() {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}

	frames := c.frames
	sink := c.sink
	done := c.pumpDone

	c.active = false
	c.frames = nil
	c.sink = nil
	c.mu.Unlock()

	frames.Close()
	<-done
	sink.Discard()

	c.logger.Info("Audio capture aborted", slog.String("artifact", sink.Path()))
}
