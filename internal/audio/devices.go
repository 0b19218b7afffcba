package audio

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"runtime"
)

// FFmpegDevice captures the default input device through an ffmpeg child
// process emitting raw little-endian PCM on stdout.
type FFmpegDevice struct {
	// Input overrides the platform default input spec (e.g. ":0" on macOS,
	// "default" on Linux).
	Input string
}

// CheckFFmpeg verifies that ffmpeg is available on PATH
func CheckFFmpeg() error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("ffmpeg not found on PATH")
	}
	return nil
}

// Open starts the ffmpeg capture process for the requested format
func (d *FFmpegDevice) Open(format Format) (FrameReader, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}

	inputFormat, input := platformInput(d.Input)
	cmd := exec.Command("ffmpeg",
		"-loglevel", "error",
		"-f", inputFormat,
		"-i", input,
		"-ac", fmt.Sprintf("%d", format.Channels),
		"-ar", fmt.Sprintf("%d", format.SampleRate),
		"-f", "s16le",
		"-",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open ffmpeg stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	// 100ms of audio per frame keeps elapsed-duration reporting responsive.
	frameSize := format.SampleRate * format.Channels * format.BitDepth / 8 / 10

	return &ffmpegReader{
		cmd:       cmd,
		stdout:    bufio.NewReaderSize(stdout, frameSize*4),
		frameSize: frameSize,
	}, nil
}

func platformInput(override string) (string, string) {
	switch runtime.GOOS {
	case "darwin":
		if override == "" {
			override = ":default"
		}
		return "avfoundation", override
	default:
		if override == "" {
			override = "default"
		}
		return "alsa", override
	}
}

type ffmpegReader struct {
	cmd       *exec.Cmd
	stdout    *bufio.Reader
	frameSize int
	closed    bool
}

// ReadFrame reads one fixed-size PCM frame; a short final read is returned
// before io.EOF so no captured audio is dropped.
func (r *ffmpegReader) ReadFrame() ([]byte, error) {
	frame := make([]byte, r.frameSize)
	n, err := io.ReadFull(r.stdout, frame)
	if n > 0 {
		return frame[:n], nil
	}

	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return nil, err
}

// Close terminates the ffmpeg process and releases the device
func (r *ffmpegReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	if r.cmd.Process != nil {
		r.cmd.Process.Kill()
	}
	r.cmd.Wait()

	return nil
}
