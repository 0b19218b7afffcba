package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// wavHeaderSize is the size of a canonical PCM WAV header
const wavHeaderSize = 44

// WAVHeader represents the header structure of a WAV file
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16  // Number of channels
	SampleRate    uint32  // Sample rate
	ByteRate      uint32  // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16  // NumChannels * BitsPerSample / 8
	BitsPerSample uint16  // Bits per sample
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of bytes in the data
}

func newWAVHeader(dataSize uint32, format Format) WAVHeader {
	return WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1, // PCM
		NumChannels:   uint16(format.Channels),
		SampleRate:    uint32(format.SampleRate),
		ByteRate:      uint32(format.SampleRate * format.Channels * format.BitDepth / 8),
		BlockAlign:    uint16(format.Channels * format.BitDepth / 8),
		BitsPerSample: uint16(format.BitDepth),
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}
}

// WriteWAVHeader writes a PCM WAV header describing dataSize bytes of audio
func WriteWAVHeader(w io.Writer, dataSize uint32, format Format) error {
	if err := format.Validate(); err != nil {
		return err
	}

	header := newWAVHeader(dataSize, format)
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("failed to write WAV header: %w", err)
	}

	return nil
}

// EncodeWAV wraps raw little-endian PCM bytes into a WAV container
func EncodeWAV(pcm []byte, format Format) ([]byte, error) {
	if len(pcm) == 0 {
		return nil, fmt.Errorf("cannot encode empty audio data")
	}

	if err := format.Validate(); err != nil {
		return nil, err
	}

	blockAlign := format.Channels * format.BitDepth / 8
	if len(pcm)%blockAlign != 0 {
		return nil, fmt.Errorf("PCM data length %d is not aligned to %d-byte frames", len(pcm), blockAlign)
	}

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(pcm)))
	if err := WriteWAVHeader(buf, uint32(len(pcm)), format); err != nil {
		return nil, err
	}

	if _, err := buf.Write(pcm); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}

	return buf.Bytes(), nil
}

// DecodeWAV extracts raw PCM bytes and the capture format from WAV data
func DecodeWAV(data []byte) ([]byte, Format, error) {
	var format Format

	if len(data) < wavHeaderSize {
		return nil, format, fmt.Errorf("WAV data too short: need at least %d bytes, got %d", wavHeaderSize, len(data))
	}

	var header WAVHeader
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &header); err != nil {
		return nil, format, fmt.Errorf("failed to read WAV header: %w", err)
	}

	if string(header.ChunkID[:]) != "RIFF" {
		return nil, format, fmt.Errorf("invalid WAV file: missing RIFF header")
	}

	if string(header.Format[:]) != "WAVE" {
		return nil, format, fmt.Errorf("invalid WAV file: missing WAVE format")
	}

	if string(header.Subchunk1ID[:]) != "fmt " {
		return nil, format, fmt.Errorf("invalid WAV file: missing fmt chunk")
	}

	if string(header.Subchunk2ID[:]) != "data" {
		return nil, format, fmt.Errorf("invalid WAV file: missing data chunk")
	}

	if header.AudioFormat != 1 {
		return nil, format, fmt.Errorf("unsupported audio format: %d (only PCM is supported)", header.AudioFormat)
	}

	format = Format{
		SampleRate: int(header.SampleRate),
		Channels:   int(header.NumChannels),
		BitDepth:   int(header.BitsPerSample),
	}

	dataSize := int(header.Subchunk2Size)
	if dataSize <= 0 {
		return nil, format, fmt.Errorf("no audio data found")
	}

	if wavHeaderSize+dataSize > len(data) {
		return nil, format, fmt.Errorf("WAV data truncated: header declares %d data bytes, %d available", dataSize, len(data)-wavHeaderSize)
	}

	return data[wavHeaderSize : wavHeaderSize+dataSize], format, nil
}

// WAVDuration calculates the duration of a WAV file in seconds
func WAVDuration(data []byte) (float64, error) {
	pcm, format, err := DecodeWAV(data)
	if err != nil {
		return 0, err
	}

	byteRate := format.SampleRate * format.Channels * format.BitDepth / 8
	return float64(len(pcm)) / float64(byteRate), nil
}
