// Package codec is the boundary to the Opus codec. Both directions use
// fixed 960-sample (60ms) frames at 16kHz mono.
package codec

// Encoder compresses one frame of 16-bit PCM samples. Implementations are
// stateful and not safe for concurrent use; each session owns its own.
type Encoder interface {
	Encode(pcm []int16) ([]byte, error)
}

// Decoder expands one compressed frame to 16-bit PCM samples.
type Decoder interface {
	Decode(frame []byte) ([]int16, error)
}

// DecoderFactory builds a fresh Decoder. The inbound pump recreates its
// decoder at every tts start/stop boundary so each stream decodes from a
// clean slate.
type DecoderFactory func() (Decoder, error)
