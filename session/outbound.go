package session

import (
	"fmt"
	"log"

	"voxbridge/audio"
	"voxbridge/codec"
	"voxbridge/messages"
	"voxbridge/metrics"

	"github.com/gorilla/websocket"
)

// outbound turns client traffic into upstream traffic: raw float samples are
// chunked and compressed, control messages are intercepted, everything else
// passes through. Runs entirely on the outbound pump goroutine.
type outbound struct {
	chunker  *audio.Chunker
	encoder  codec.Encoder
	upstream sender
	client   sender
	metrics  *metrics.Metrics
	id       string
}

// outboundPump reads the client socket until it fails or the bridge closes.
func (b *Bridge) outboundPump() error {
	out := &outbound{
		chunker:  audio.NewChunker(),
		encoder:  b.encoder,
		upstream: b.upstreamOut,
		client:   b.clientOut,
		metrics:  b.metrics,
		id:       b.shortID(),
	}

	for {
		messageType, data, err := b.clientConn.ReadMessage()
		if err != nil {
			return err
		}
		b.touch()
		b.metrics.ClientFrames.Inc()

		switch messageType {
		case websocket.BinaryMessage:
			if err := out.handleAudio(data); err != nil {
				return err
			}
		case websocket.TextMessage:
			if err := out.handleText(data); err != nil {
				return err
			}
		}
	}
}

// handleAudio buffers raw samples and ships every completed chunk upstream.
// A non-nil return is a transport failure; malformed payloads and codec
// errors are logged and swallowed so one bad frame cannot end the session.
func (o *outbound) handleAudio(data []byte) error {
	samples, err := audio.Float32LE(data)
	if err != nil {
		log.Printf("⚠️ [%s] dropping audio frame: %v", o.id, err)
		return nil
	}

	for _, chunk := range o.chunker.Push(samples) {
		if err := o.sendChunk(chunk); err != nil {
			return err
		}
	}
	return nil
}

func (o *outbound) sendChunk(chunk []int16) error {
	frame, err := o.encoder.Encode(chunk)
	if err != nil {
		o.metrics.EncodeErrors.Inc()
		log.Printf("⚠️ [%s] dropping %d sample chunk: %v", o.id, len(chunk), err)
		return nil
	}

	if err := o.upstream.SendBinary(frame); err != nil {
		return fmt.Errorf("send upstream: %w", err)
	}
	o.metrics.ChunksEncoded.Inc()
	o.metrics.BytesTransferred.WithLabelValues("outbound").Add(float64(len(frame)))
	return nil
}

func (o *outbound) handleText(data []byte) error {
	msg, ok := messages.Parse(data)
	if !ok {
		// Fail open: frames the bridge cannot parse belong to the endpoints.
		return o.forward(data)
	}

	switch msg.Type {
	case messages.TypeReset:
		o.chunker.Reset()
		return nil
	case messages.TypeGetLastData:
		return o.flushRemainder()
	default:
		return o.forward(data)
	}
}

func (o *outbound) forward(data []byte) error {
	if err := o.upstream.SendText(data); err != nil {
		return fmt.Errorf("send upstream: %w", err)
	}
	o.metrics.BytesTransferred.WithLabelValues("outbound").Add(float64(len(data)))
	return nil
}

// flushRemainder ships the partial chunk upstream as one short frame, then
// acknowledges the client. The ack goes out even when nothing was buffered
// so the client can always await it.
func (o *outbound) flushRemainder() error {
	if rest := o.chunker.Drain(); len(rest) > 0 {
		if err := o.sendChunk(rest); err != nil {
			return err
		}
	}

	if err := o.client.SendText(messages.NewLastDataAck()); err != nil {
		return fmt.Errorf("send client: %w", err)
	}
	return nil
}
