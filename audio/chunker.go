package audio

import "math"

// ChunkSamples is the fixed encoder frame size: 960 samples, 60ms at 16kHz.
const ChunkSamples = 960

// Chunker accumulates float32 samples from the client and slices them into
// fixed-size 16-bit chunks ready for compression. Leftovers below a full
// chunk stay buffered until Drain or Reset; they are never auto-flushed.
//
// Not safe for concurrent use. Each bridge's outbound pump owns exactly one
// Chunker and nothing else touches it.
type Chunker struct {
	pending []float32
}

// NewChunker returns an empty chunker.
func NewChunker() *Chunker {
	return &Chunker{}
}

// Push appends samples in arrival order and returns every completed
// 960-sample chunk, in order, converted to 16-bit PCM.
func (c *Chunker) Push(samples []float32) [][]int16 {
	c.pending = append(c.pending, samples...)

	var chunks [][]int16
	for len(c.pending) >= ChunkSamples {
		chunks = append(chunks, toPCM16(c.pending[:ChunkSamples]))
		c.pending = c.pending[ChunkSamples:]
	}
	return chunks
}

// Drain converts and returns whatever remains, whatever its length, and
// leaves the chunker empty. Returns nil when nothing is pending.
func (c *Chunker) Drain() []int16 {
	if len(c.pending) == 0 {
		return nil
	}
	out := toPCM16(c.pending)
	c.pending = nil
	return out
}

// Reset discards all pending samples.
func (c *Chunker) Reset() {
	c.pending = nil
}

// Pending returns the number of buffered samples below a full chunk.
func (c *Chunker) Pending() int {
	return len(c.pending)
}

// toPCM16 scales [-1,1] floats by 32767 and truncates toward zero. Input is
// expected in range already; values outside it are clamped so a misbehaving
// client cannot wrap the sign bit.
func toPCM16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		v := s * 32767
		switch {
		case v > math.MaxInt16:
			out[i] = math.MaxInt16
		case v < math.MinInt16:
			out[i] = math.MinInt16
		default:
			out[i] = int16(v)
		}
	}
	return out
}
