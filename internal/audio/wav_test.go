package audio

import (
	"bytes"
	"math"
	"testing"
)

// sinePCM generates little-endian 16-bit mono PCM of a 440Hz tone
func sinePCM(sampleRate int, seconds float64) []byte {
	numSamples := int(float64(sampleRate) * seconds)
	pcm := make([]byte, numSamples*2)

	for i := 0; i < numSamples; i++ {
		ts := float64(i) / float64(sampleRate)
		sample := int16(16383.0 * math.Sin(2*math.Pi*440.0*ts))
		pcm[i*2] = byte(sample)
		pcm[i*2+1] = byte(sample >> 8)
	}

	return pcm
}

func TestEncodeWAV(t *testing.T) {
	pcm := sinePCM(16000, 0.1)

	wavData, err := EncodeWAV(pcm, DefaultFormat)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	expectedSize := wavHeaderSize + len(pcm)
	if len(wavData) != expectedSize {
		t.Errorf("expected WAV size %d, got %d", expectedSize, len(wavData))
	}

	if string(wavData[0:4]) != "RIFF" || string(wavData[8:12]) != "WAVE" {
		t.Error("generated WAV is missing RIFF/WAVE markers")
	}

	duration, err := WAVDuration(wavData)
	if err != nil {
		t.Fatalf("WAVDuration failed: %v", err)
	}

	if math.Abs(duration-0.1) > 0.001 {
		t.Errorf("expected duration 0.100, got %.3f", duration)
	}
}

func TestDecodeWAVRoundTrip(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}

	wavData, err := EncodeWAV(pcm, DefaultFormat)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	decoded, format, err := DecodeWAV(wavData)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}

	if format != DefaultFormat {
		t.Errorf("expected format %+v, got %+v", DefaultFormat, format)
	}

	if !bytes.Equal(decoded, pcm) {
		t.Errorf("decoded PCM differs: expected %v, got %v", pcm, decoded)
	}
}

func TestEncodeWAVRejectsBadInput(t *testing.T) {
	if _, err := EncodeWAV(nil, DefaultFormat); err == nil {
		t.Error("expected error for empty PCM data")
	}

	if _, err := EncodeWAV([]byte{0x01}, DefaultFormat); err == nil {
		t.Error("expected error for unaligned PCM data")
	}

	if _, err := EncodeWAV([]byte{0x01, 0x02}, Format{SampleRate: 0, Channels: 1, BitDepth: 16}); err == nil {
		t.Error("expected error for zero sample rate")
	}
}

func TestDecodeWAVRejectsBadInput(t *testing.T) {
	if _, _, err := DecodeWAV([]byte("short")); err == nil {
		t.Error("expected error for truncated data")
	}

	wavData, err := EncodeWAV([]byte{0x01, 0x02, 0x03, 0x04}, DefaultFormat)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	corrupted := append([]byte(nil), wavData...)
	copy(corrupted[0:4], "JUNK")
	if _, _, err := DecodeWAV(corrupted); err == nil {
		t.Error("expected error for missing RIFF header")
	}

	truncated := wavData[:len(wavData)-2]
	if _, _, err := DecodeWAV(truncated); err == nil {
		t.Error("expected error for truncated data section")
	}
}
