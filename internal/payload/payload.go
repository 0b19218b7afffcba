package payload

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/google/uuid"
)

// FieldName is the multipart form field carrying the audio file
const FieldName = "audio"

// audioContentType is the content type declared for the audio part
const audioContentType = "audio/wav"

// Payload is an immutable snapshot of an encoded upload body.
// It is produced once per session and consumed exactly once by the client.
type Payload struct {
	Body     []byte
	Boundary string
	Filename string
}

// ContentType returns the request Content-Type header value
func (p *Payload) ContentType() string {
	return "multipart/form-data; boundary=" + p.Boundary
}

// NewBoundary returns a fresh boundary token unique per request
func NewBoundary() string {
	return "recorder-" + uuid.NewString()
}

// Encode serializes audio bytes into a multipart body with a caller-supplied
// boundary. The output is deterministic for identical inputs: a single part
// named "audio" with the given filename, terminated by the closing marker
// "--{boundary}--\r\n". A boundary that collides with the audio content or
// the filename is rejected.
func Encode(audio []byte, filename, boundary string) ([]byte, error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("audio data cannot be empty")
	}

	if filename == "" {
		return nil, fmt.Errorf("filename cannot be empty")
	}

	if err := validateBoundary(audio, filename, boundary); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.SetBoundary(boundary); err != nil {
		return nil, fmt.Errorf("invalid boundary %q: %w", boundary, err)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name=%q; filename=%q`, FieldName, filename))
	header.Set("Content-Type", audioContentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio part: %w", err)
	}

	if _, err := part.Write(audio); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart body: %w", err)
	}

	return buf.Bytes(), nil
}

// Build encodes audio with a freshly generated boundary, regenerating if the
// token happens to occur in the content.
func Build(audio []byte, filename string) (*Payload, error) {
	var lastErr error

	for attempt := 0; attempt < 3; attempt++ {
		boundary := NewBoundary()

		body, err := Encode(audio, filename, boundary)
		if err == nil {
			return &Payload{
				Body:     body,
				Boundary: boundary,
				Filename: filename,
			}, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("failed to build upload payload: %w", lastErr)
}

// validateBoundary checks RFC constraints and content collision
func validateBoundary(audio []byte, filename, boundary string) error {
	if boundary == "" {
		return fmt.Errorf("boundary cannot be empty")
	}

	if strings.ContainsAny(boundary, "\r\n") {
		return fmt.Errorf("boundary must not contain CR or LF")
	}

	marker := []byte("--" + boundary)
	if bytes.Contains(audio, marker) || strings.Contains(filename, boundary) {
		return fmt.Errorf("boundary %q collides with payload content", boundary)
	}

	return nil
}
