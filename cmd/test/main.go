// Probe client for the bridge: streams a synthetic tone the way a browser
// capture pipeline would, drains the remainder, and reports whatever the
// bridge sends back.
package main

import (
	"encoding/binary"
	"encoding/json"
	"flag"
	"log"
	"math"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
)

type controlMessage struct {
	Type  string `json:"type"`
	State string `json:"state,omitempty"`
}

func main() {
	// Flags
	serverURL := flag.String("server", "ws://localhost:5002/", "Bridge WebSocket URL")
	seconds := flag.Float64("seconds", 2.0, "Tone duration to stream")
	freq := flag.Float64("freq", 440.0, "Tone frequency in Hz")
	flag.Parse()

	log.Printf("🔌 Connecting to %s...", *serverURL)

	conn, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	log.Println("✅ Connected!")

	// Handle interrupt
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	done := make(chan struct{})

	// Read responses from the bridge
	go func() {
		defer close(done)
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}

			if messageType == websocket.BinaryMessage {
				log.Printf("🔊 Received container: %d bytes", len(message))
				continue
			}

			var msg controlMessage
			if err := json.Unmarshal(message, &msg); err != nil {
				log.Printf("📝 Passthrough text: %s", message)
				continue
			}

			switch msg.Type {
			case "lastData":
				log.Println("📊 Remainder drained, bridge acknowledged")
			case "tts":
				log.Printf("📊 Stream boundary: %s", msg.State)
			default:
				log.Printf("📝 Server message: %s", message)
			}
		}
	}()

	// Stream the tone as float32 frames, 100ms at a time, the way a browser
	// capture pipeline delivers audio.
	const sampleRate = 16000
	const frameSamples = 1600 // 100ms at 16kHz

	total := int(*seconds * sampleRate)
	frame := make([]byte, frameSamples*4)

	log.Printf("📤 Streaming %.1fs of %.0fHz tone...", *seconds, *freq)

	for sent := 0; sent < total; sent += frameSamples {
		n := frameSamples
		if total-sent < n {
			n = total - sent
		}
		for i := 0; i < n; i++ {
			t := float64(sent+i) / sampleRate
			s := float32(0.5 * math.Sin(2*math.Pi*(*freq)*t))
			binary.LittleEndian.PutUint32(frame[i*4:], math.Float32bits(s))
		}

		if err := conn.WriteMessage(websocket.BinaryMessage, frame[:n*4]); err != nil {
			log.Fatalf("Send error: %v", err)
		}

		// Simulate real-time streaming pace
		time.Sleep(100 * time.Millisecond)
	}

	// Ask the bridge to flush whatever partial chunk remains
	drain, _ := json.Marshal(controlMessage{Type: "getLastData"})
	if err := conn.WriteMessage(websocket.TextMessage, drain); err != nil {
		log.Fatalf("Send error: %v", err)
	}

	log.Println("✅ Tone sent, waiting for responses...")

	select {
	case <-done:
		log.Println("Connection closed")
	case <-interrupt:
		log.Println("\n👋 Interrupted, closing...")
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	case <-time.After(30 * time.Second):
		log.Println("⏰ Timeout waiting for responses")
	}
}
