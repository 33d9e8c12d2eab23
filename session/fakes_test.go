package session

import (
	"encoding/binary"
	"errors"
	"math"

	"voxbridge/audio"
	"voxbridge/codec"
)

var errSendFailed = errors.New("send failed")

// fakeEncoder stands in for the real codec: the "compressed" frame is just
// the PCM bytes, so tests can inspect exactly what went out.
type fakeEncoder struct {
	fail bool
}

func (f *fakeEncoder) Encode(pcm []int16) ([]byte, error) {
	if f.fail {
		return nil, errors.New("encode failed")
	}
	return audio.Int16LE(pcm), nil
}

// fakeDecoder emits a fixed number of silent samples per frame.
type fakeDecoder struct {
	samples int
	fail    bool
}

func (f *fakeDecoder) Decode(frame []byte) ([]int16, error) {
	if f.fail {
		return nil, errors.New("decode failed")
	}
	return make([]int16, f.samples), nil
}

// decoderMaker is a DecoderFactory that counts how many decoders it built,
// so tests can tell a soft flush from a full reset.
type decoderMaker struct {
	samples int
	made    int
}

func (m *decoderMaker) factory() (codec.Decoder, error) {
	m.made++
	return &fakeDecoder{samples: m.samples}, nil
}

// sentFrame is one send observed by a recorder, in order.
type sentFrame struct {
	text bool
	data []byte
}

// recorder is a sender that keeps every frame. A non-nil err makes every
// send fail, standing in for a dead socket.
type recorder struct {
	frames []sentFrame
	err    error
}

func (r *recorder) record(text bool, data []byte) error {
	if r.err != nil {
		return r.err
	}
	r.frames = append(r.frames, sentFrame{text: text, data: append([]byte(nil), data...)})
	return nil
}

func (r *recorder) SendText(data []byte) error   { return r.record(true, data) }
func (r *recorder) SendBinary(data []byte) error { return r.record(false, data) }

func (r *recorder) binaries() [][]byte {
	var out [][]byte
	for _, f := range r.frames {
		if !f.text {
			out = append(out, f.data)
		}
	}
	return out
}

func (r *recorder) texts() [][]byte {
	var out [][]byte
	for _, f := range r.frames {
		if f.text {
			out = append(out, f.data)
		}
	}
	return out
}

// floatPayload builds a binary client frame of n float32 samples set to v.
func floatPayload(n int, v float32) []byte {
	data := make([]byte, n*4)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}
	return data
}
