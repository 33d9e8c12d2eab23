package codec

import (
	"fmt"

	"github.com/hraban/opus"
)

const (
	sampleRate = 16000
	channels   = 1

	// FrameSamples is the fixed frame size in both directions: 60ms at 16kHz.
	FrameSamples = 960

	// maxFrameBytes is the largest possible Opus frame (RFC 6716).
	maxFrameBytes = 1275
)

// OpusEncoder compresses 16kHz mono PCM with the VoIP application profile.
type OpusEncoder struct {
	enc *opus.Encoder
	buf []byte
}

// NewOpusEncoder creates a voice-optimized encoder.
func NewOpusEncoder() (*OpusEncoder, error) {
	enc, err := opus.NewEncoder(sampleRate, channels, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("codec: create encoder: %w", err)
	}
	return &OpusEncoder{enc: enc, buf: make([]byte, maxFrameBytes)}, nil
}

// Encode compresses one frame of PCM samples. The returned slice is owned by
// the caller.
func (e *OpusEncoder) Encode(pcm []int16) ([]byte, error) {
	n, err := e.enc.Encode(pcm, e.buf)
	if err != nil {
		return nil, fmt.Errorf("codec: encode %d samples: %w", len(pcm), err)
	}
	out := make([]byte, n)
	copy(out, e.buf[:n])
	return out, nil
}

// OpusDecoder expands compressed frames back to 16kHz mono PCM.
type OpusDecoder struct {
	dec *opus.Decoder
}

// NewOpusDecoder creates a decoder expecting FrameSamples samples per frame.
func NewOpusDecoder() (*OpusDecoder, error) {
	dec, err := opus.NewDecoder(sampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("codec: create decoder: %w", err)
	}
	return &OpusDecoder{dec: dec}, nil
}

// Decode expands one compressed frame.
func (d *OpusDecoder) Decode(frame []byte) ([]int16, error) {
	pcm := make([]int16, FrameSamples)
	n, err := d.dec.Decode(frame, pcm)
	if err != nil {
		return nil, fmt.Errorf("codec: decode %d byte frame: %w", len(frame), err)
	}
	return pcm[:n], nil
}
