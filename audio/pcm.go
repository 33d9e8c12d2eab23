// Package audio implements the PCM plumbing for the bridge: float32 sample
// decoding, 16-bit conversion, fixed-size chunking for the encoder, and the
// WAV container header the downlink ships to the client.
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Float32LE decodes little-endian 32-bit float PCM bytes into samples.
func Float32LE(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("float32 PCM length must be a multiple of 4, got %d bytes", len(data))
	}
	samples := make([]float32, len(data)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return samples, nil
}

// Int16LE encodes 16-bit signed PCM samples as little-endian bytes.
func Int16LE(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
