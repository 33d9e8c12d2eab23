package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestHeaderLayout(t *testing.T) {
	h := Header(16000)
	if len(h) != HeaderSize {
		t.Fatalf("header is %d bytes, want %d", len(h), HeaderSize)
	}

	if !bytes.Equal(h[0:4], []byte("RIFF")) {
		t.Errorf("bytes 0:4 = %q, want RIFF", h[0:4])
	}
	if !bytes.Equal(h[8:12], []byte("WAVE")) {
		t.Errorf("bytes 8:12 = %q, want WAVE", h[8:12])
	}
	if !bytes.Equal(h[12:16], []byte("fmt ")) {
		t.Errorf("bytes 12:16 = %q, want 'fmt '", h[12:16])
	}
	if !bytes.Equal(h[36:40], []byte("data")) {
		t.Errorf("bytes 36:40 = %q, want data", h[36:40])
	}

	fields := []struct {
		name   string
		got    uint32
		want   uint32
	}{
		{"chunk size", binary.LittleEndian.Uint32(h[4:8]), 2*16000 + 36},
		{"fmt size", binary.LittleEndian.Uint32(h[16:20]), 16},
		{"sample rate", binary.LittleEndian.Uint32(h[24:28]), 16000},
		{"byte rate", binary.LittleEndian.Uint32(h[28:32]), 32000},
		{"data size", binary.LittleEndian.Uint32(h[40:44]), 2 * 16000},
	}
	for _, f := range fields {
		if f.got != f.want {
			t.Errorf("%s = %d, want %d", f.name, f.got, f.want)
		}
	}

	if format := binary.LittleEndian.Uint16(h[20:22]); format != 1 {
		t.Errorf("audio format = %d, want 1 (PCM)", format)
	}
	if channels := binary.LittleEndian.Uint16(h[22:24]); channels != 1 {
		t.Errorf("channels = %d, want 1", channels)
	}
	if align := binary.LittleEndian.Uint16(h[32:34]); align != 2 {
		t.Errorf("block align = %d, want 2", align)
	}
	if bits := binary.LittleEndian.Uint16(h[34:36]); bits != 16 {
		t.Errorf("bits per sample = %d, want 16", bits)
	}
}

func TestPatchHeaderTouchesOnlyLengthFields(t *testing.T) {
	buf := Header(0)
	before := append([]byte(nil), buf...)

	PatchHeader(buf, 5000)

	if got := binary.LittleEndian.Uint32(buf[4:8]); got != 2*5000+36 {
		t.Errorf("chunk size = %d, want %d", got, 2*5000+36)
	}
	if got := binary.LittleEndian.Uint32(buf[40:44]); got != 2*5000 {
		t.Errorf("data size = %d, want %d", got, 2*5000)
	}

	for i := range buf {
		if i >= 4 && i < 8 || i >= 40 && i < 44 {
			continue
		}
		if buf[i] != before[i] {
			t.Errorf("byte %d changed from %#x to %#x", i, before[i], buf[i])
		}
	}
}

func TestFlushThreshold(t *testing.T) {
	// Header plus one second of 16-bit mono audio at 16kHz.
	if FlushThreshold != 32044 {
		t.Fatalf("FlushThreshold = %d, want 32044", FlushThreshold)
	}
}
