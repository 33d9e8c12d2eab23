package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"voxbridge/codec"
	"voxbridge/config"
	"voxbridge/metrics"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 10 * time.Second
	readLimit    = 512 * 1024 // 512KB max message
)

// sender is the write half of a WebSocket peer. The pumps send through this
// instead of the connection so transport failures surface synchronously in
// the pump that caused them.
type sender interface {
	SendText(data []byte) error
	SendBinary(data []byte) error
}

type connSender struct {
	conn *websocket.Conn
}

func (s *connSender) send(messageType int, data []byte) error {
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(messageType, data)
}

func (s *connSender) SendText(data []byte) error {
	return s.send(websocket.TextMessage, data)
}

func (s *connSender) SendBinary(data []byte) error {
	return s.send(websocket.BinaryMessage, data)
}

// clientWriter serializes writes to the client socket. Both pumps send to the
// client (containers from one side, acks from the other) and gorilla permits
// only one concurrent writer.
type clientWriter struct {
	mu sync.Mutex
	s  sender
}

func (w *clientWriter) SendText(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.s.SendText(data)
}

func (w *clientWriter) SendBinary(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.s.SendBinary(data)
}

// Bridge relays one client connection to its own upstream connection. All
// transcoding state lives in the two pumps; the Bridge owns the sockets and
// the shared lifecycle.
type Bridge struct {
	ID string

	clientConn   *websocket.Conn
	upstreamConn *websocket.Conn
	clientOut    sender
	upstreamOut  sender

	encoder    codec.Encoder
	newDecoder codec.DecoderFactory
	metrics    *metrics.Metrics

	CreatedAt    time.Time
	lastActivity atomic.Int64

	mu        sync.RWMutex
	closed    bool
	CloseChan chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewBridge dials the upstream voice server and pairs it with clientConn.
// The dial carries the identity headers and is bounded by cfg.DialTimeout; a
// handshake failure aborts the bridge before any relaying starts.
func NewBridge(ctx context.Context, id string, clientConn *websocket.Conn, cfg *config.Config, m *metrics.Metrics, enc codec.Encoder, newDecoder codec.DecoderFactory) (*Bridge, error) {
	dialer := &websocket.Dialer{HandshakeTimeout: cfg.DialTimeout}

	dialCtx, dialCancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer dialCancel()

	upstreamConn, resp, err := dialer.DialContext(dialCtx, cfg.UpstreamURL, cfg.UpstreamHeaders())
	if err != nil {
		m.DialFailures.Inc()
		if resp != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("dial upstream %s: status %s: %w", cfg.UpstreamURL, resp.Status, err)
		}
		return nil, fmt.Errorf("dial upstream %s: %w", cfg.UpstreamURL, err)
	}

	clientConn.SetReadLimit(readLimit)
	upstreamConn.SetReadLimit(readLimit)

	bctx, cancel := context.WithCancel(ctx)

	b := &Bridge{
		ID:           id,
		clientConn:   clientConn,
		upstreamConn: upstreamConn,
		clientOut:    &clientWriter{s: &connSender{conn: clientConn}},
		upstreamOut:  &connSender{conn: upstreamConn},
		encoder:      enc,
		newDecoder:   newDecoder,
		metrics:      m,
		CreatedAt:    time.Now(),
		CloseChan:    make(chan struct{}),
		ctx:          bctx,
		cancel:       cancel,
	}
	b.touch()

	return b, nil
}

// Run relays frames in both directions until either socket fails or closes.
// It blocks until both pumps have exited.
func (b *Bridge) Run() {
	defer b.Close()

	errChan := make(chan error, 2)
	go func() { errChan <- b.outboundPump() }()
	go func() { errChan <- b.inboundPump() }()

	err := <-errChan
	if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		log.Printf("🔌 [%s] bridge closing: %v", b.shortID(), err)
	}

	// Closing both sockets unblocks the sibling pump's pending read.
	b.Close()
	<-errChan
}

// Close terminates the bridge and both connections. Safe to call more than
// once and from any goroutine.
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	close(b.CloseChan)

	// WriteControl is safe concurrently with the pumps' writes; a surviving
	// pump may still be mid-frame on this connection.
	b.clientConn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout),
	)

	b.upstreamConn.Close()
	b.clientConn.Close()

	return nil
}

// IsClosed returns whether the bridge has been closed
func (b *Bridge) IsClosed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}

// LastActivity returns the time of the last frame seen on either socket.
func (b *Bridge) LastActivity() time.Time {
	return time.Unix(0, b.lastActivity.Load())
}

func (b *Bridge) touch() {
	b.lastActivity.Store(time.Now().UnixNano())
}

// sleep waits for d unless the bridge closes first.
func (b *Bridge) sleep(d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-b.ctx.Done():
	}
}

func (b *Bridge) shortID() string {
	if len(b.ID) > 8 {
		return b.ID[:8]
	}
	return b.ID
}
