package messages

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantOK    bool
		wantType  string
		wantState string
	}{
		{"reset", `{"type":"reset"}`, true, TypeReset, ""},
		{"getLastData", `{"type":"getLastData"}`, true, TypeGetLastData, ""},
		{"tts start", `{"type":"tts","state":"start"}`, true, TypeTTS, StateStart},
		{"tts stop", `{"type":"tts","state":"stop"}`, true, TypeTTS, StateStop},
		{"unknown type kept", `{"type":"listen","mode":"auto"}`, true, "listen", ""},
		{"extra fields ignored", `{"type":"reset","session":"abc"}`, true, TypeReset, ""},
		{"not json", `hello`, false, "", ""},
		{"truncated json", `{"type":"res`, false, "", ""},
		{"no type field", `{"state":"start"}`, false, "", ""},
		{"empty", ``, false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok := Parse([]byte(tt.data))
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if msg.Type != tt.wantType {
				t.Errorf("type = %q, want %q", msg.Type, tt.wantType)
			}
			if msg.State != tt.wantState {
				t.Errorf("state = %q, want %q", msg.State, tt.wantState)
			}
		})
	}
}

func TestNewLastDataAck(t *testing.T) {
	msg, ok := Parse(NewLastDataAck())
	if !ok {
		t.Fatal("ack did not parse")
	}
	if msg.Type != TypeLastData {
		t.Errorf("type = %q, want %q", msg.Type, TypeLastData)
	}
}
