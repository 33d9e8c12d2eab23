// Package messages defines the JSON text frames exchanged on both sockets.
package messages

import "github.com/bytedance/sonic"

// Message types carried in the "type" field.
const (
	TypeReset       = "reset"
	TypeGetLastData = "getLastData"
	TypeTTS         = "tts"
	TypeLastData    = "lastData"
)

// TTS announcement states.
const (
	StateStart = "start"
	StateStop  = "stop"
)

// Control is the common shape of every text frame the bridge inspects.
// Fields the bridge does not act on are ignored, not rejected; the original
// bytes are what gets forwarded.
type Control struct {
	Type  string `json:"type"`
	State string `json:"state,omitempty"`
}

// Parse attempts to decode a text frame. ok is false for frames that are not
// JSON objects with a string type; the caller forwards those untouched.
func Parse(data []byte) (Control, bool) {
	var c Control
	if err := sonic.Unmarshal(data, &c); err != nil {
		return Control{}, false
	}
	if c.Type == "" {
		return Control{}, false
	}
	return c, true
}

// NewLastDataAck builds the acknowledgement sent to the client after a
// getLastData request has been served.
func NewLastDataAck() []byte {
	data, _ := sonic.Marshal(Control{Type: TypeLastData})
	return data
}
