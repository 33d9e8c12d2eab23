package session

import (
	"fmt"
	"log"
	"time"

	"voxbridge/audio"
	"voxbridge/codec"
	"voxbridge/messages"
	"voxbridge/metrics"

	"github.com/gorilla/websocket"
)

// drainDelay is how long a stop announcement is held back after the final
// container, giving the client a beat to start playback before it sees the
// stream end.
const drainDelay = 100 * time.Millisecond

// assembler rebuilds playable containers from the compressed frames the
// voice server sends. Runs entirely on the inbound pump goroutine.
type assembler struct {
	buf          []byte
	totalSamples int
	decoder      codec.Decoder
	newDecoder   codec.DecoderFactory
	client       sender
	metrics      *metrics.Metrics
	id           string
	wait         func(d time.Duration)
}

// inboundPump reads the upstream socket until it fails or the bridge closes.
func (b *Bridge) inboundPump() error {
	decoder, err := b.newDecoder()
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}

	asm := &assembler{
		decoder:    decoder,
		newDecoder: b.newDecoder,
		client:     b.clientOut,
		metrics:    b.metrics,
		id:         b.shortID(),
		wait:       b.sleep,
	}

	for {
		messageType, data, err := b.upstreamConn.ReadMessage()
		if err != nil {
			return err
		}
		b.touch()
		b.metrics.UpstreamFrames.Inc()

		switch messageType {
		case websocket.BinaryMessage:
			if err := asm.handleFrame(data); err != nil {
				return err
			}
		case websocket.TextMessage:
			if err := asm.handleText(data); err != nil {
				return err
			}
		}
	}
}

// handleFrame decodes one compressed frame into the container, flushing when
// a full second of audio has accumulated. Decode failures drop the frame and
// keep the session alive.
func (a *assembler) handleFrame(frame []byte) error {
	pcm, err := a.decoder.Decode(frame)
	if err != nil {
		a.metrics.DecodeErrors.Inc()
		log.Printf("⚠️ [%s] dropping %d byte frame: %v", a.id, len(frame), err)
		return nil
	}
	if len(pcm) == 0 {
		return nil
	}

	if len(a.buf) == 0 {
		// Length fields are placeholders until flush patches them.
		a.buf = append(a.buf, audio.Header(0)...)
	}
	a.buf = append(a.buf, audio.Int16LE(pcm)...)
	a.totalSamples += len(pcm)

	if len(a.buf) >= audio.FlushThreshold {
		// The decoder survives a size-triggered flush: the stream continues
		// and later frames may reference earlier codec state.
		if err := a.flush(); err != nil {
			return err
		}
	}
	return nil
}

// handleText intercepts stream boundary announcements, then forwards the
// original bytes to the client after any flush they triggered.
func (a *assembler) handleText(data []byte) error {
	if msg, ok := messages.Parse(data); ok && msg.Type == messages.TypeTTS {
		switch msg.State {
		case messages.StateStart:
			if a.hasAudio() {
				if err := a.flush(); err != nil {
					return err
				}
			}
			if err := a.reset(); err != nil {
				return err
			}
		case messages.StateStop:
			if a.hasAudio() {
				if err := a.flush(); err != nil {
					return err
				}
				a.wait(drainDelay)
				if err := a.reset(); err != nil {
					return err
				}
			}
		}
	}

	if err := a.client.SendText(data); err != nil {
		return fmt.Errorf("send client: %w", err)
	}
	a.metrics.BytesTransferred.WithLabelValues("inbound").Add(float64(len(data)))
	return nil
}

// hasAudio reports whether any samples follow the header.
func (a *assembler) hasAudio() bool {
	return len(a.buf) > audio.HeaderSize
}

// flush patches the container's length fields and delivers it.
func (a *assembler) flush() error {
	audio.PatchHeader(a.buf, a.totalSamples)

	if err := a.client.SendBinary(a.buf); err != nil {
		return fmt.Errorf("send client: %w", err)
	}
	a.metrics.ContainersFlushed.Inc()
	a.metrics.BytesTransferred.WithLabelValues("inbound").Add(float64(len(a.buf)))

	a.buf = nil
	a.totalSamples = 0
	return nil
}

// reset discards assembly state and rebuilds the decoder so the next stream
// decodes from a clean slate.
func (a *assembler) reset() error {
	a.buf = nil
	a.totalSamples = 0

	decoder, err := a.newDecoder()
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}
	a.decoder = decoder
	return nil
}
