package audio

import (
	"bytes"
	"encoding/binary"
)

const (
	// HeaderSize is the fixed WAV header length in bytes.
	HeaderSize = 44

	// SampleRate is the only rate the bridge speaks, in both directions.
	SampleRate = 16000

	// FlushThreshold is the container size that triggers an automatic flush:
	// the header plus exactly one second of 16kHz 16-bit mono PCM.
	FlushThreshold = HeaderSize + 2*SampleRate
)

// WAVHeader mirrors the canonical 44-byte RIFF/WAVE header layout.
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // file size - 8
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // payload bytes
}

// Header builds the 44-byte header describing a mono, 16-bit, 16kHz linear
// PCM stream of totalSamples samples.
func Header(totalSamples int) []byte {
	h := WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(2*totalSamples + 36),
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   1,
		SampleRate:    SampleRate,
		ByteRate:      SampleRate * 2,
		BlockAlign:    2,
		BitsPerSample: 16,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: uint32(2 * totalSamples),
	}

	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize))
	// binary.Write to a bytes.Buffer cannot fail for a fixed-size struct.
	_ = binary.Write(buf, binary.LittleEndian, h)
	return buf.Bytes()
}

// PatchHeader overwrites the two length fields of a buffer known to start
// with a Header, leaving every other byte untouched.
func PatchHeader(buf []byte, totalSamples int) {
	binary.LittleEndian.PutUint32(buf[4:8], uint32(2*totalSamples+36))
	binary.LittleEndian.PutUint32(buf[40:44], uint32(2*totalSamples))
}
