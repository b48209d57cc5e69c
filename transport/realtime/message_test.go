package realtime

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func pendingSet(ids ...string) func(string) bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return func(id string) bool { return set[id] }
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		pending []string
		want    string
	}{
		{
			name: "shot event",
			raw:  `{"type":"shot_event","killer":{"id":1,"name":"a"},"target":{"id":2,"name":"b"}}`,
			want: "shot",
		},
		{
			name:    "shot event wins over pending request id",
			raw:     `{"type":"shot_event","requestId":"req_1","killer":{"id":1},"target":{"id":2}}`,
			pending: []string{"req_1"},
			want:    "shot",
		},
		{
			name: "shot event without target is not a shot",
			raw:  `{"type":"shot_event","killer":{"id":1}}`,
			want: "unclassified",
		},
		{
			name: "shot event with non-object killer is not a shot",
			raw:  `{"type":"shot_event","killer":"bob","target":{"id":2}}`,
			want: "unclassified",
		},
		{
			name:    "correlated response",
			raw:     `{"requestId":"req_1","success":true,"message":"Hit!"}`,
			pending: []string{"req_1"},
			want:    "response",
		},
		{
			name:    "correlated game reset is a response",
			raw:     `{"type":"game_reset","requestId":"req_1"}`,
			pending: []string{"req_1"},
			want:    "response",
		},
		{
			name: "unknown request id game reset is a reset",
			raw:  `{"type":"game_reset","requestId":"req_other"}`,
			want: "reset",
		},
		{
			name: "game reset",
			raw:  `{"type":"game_reset"}`,
			want: "reset",
		},
		{
			name: "unknown request id",
			raw:  `{"requestId":"req_gone","success":true}`,
			want: "unclassified",
		},
		{
			name: "unknown type",
			raw:  `{"type":"chat","text":"hi"}`,
			want: "unclassified",
		},
		{
			name: "array",
			raw:  `[1,2,3]`,
			want: "unclassified",
		},
		{
			name: "string",
			raw:  `"hello"`,
			want: "unclassified",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Classify([]byte(tt.raw), pendingSet(tt.pending...))
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}

			var got string
			switch msg.(type) {
			case ShotEvent:
				got = "shot"
			case CorrelatedResponse:
				got = "response"
			case GameReset:
				got = "reset"
			case Unclassified:
				got = "unclassified"
			}

			if got != tt.want {
				t.Errorf("Classify() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassifyMalformed(t *testing.T) {
	for _, raw := range []string{"", "{", "not json", `{"type":}`} {
		_, err := Classify([]byte(raw), nil)
		if !errors.Is(err, ErrMalformed) {
			t.Errorf("Classify(%q) error = %v, want ErrMalformed", raw, err)
		}
	}
}

func TestClassifyShotEventFields(t *testing.T) {
	raw := `{"type":"shot_event","killer":{"id":1,"name":"alice","kills":3,"score":300},"target":{"id":2,"name":"bob","health":4,"deaths":6}}`

	msg, err := Classify([]byte(raw), nil)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	ev, ok := msg.(ShotEvent)
	if !ok {
		t.Fatalf("Classify() = %T, want ShotEvent", msg)
	}
	if ev.Killer.Name != "alice" || ev.Killer.Kills != 3 || ev.Killer.Score != 300 {
		t.Errorf("unexpected killer %+v", ev.Killer)
	}
	if ev.Target.ID != 2 || ev.Target.Health != 4 || ev.Target.Deaths != 6 {
		t.Errorf("unexpected target %+v", ev.Target)
	}
}

func TestClassifyResponseSuccess(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{`{"requestId":"r","success":true,"message":"ok"}`, true},
		{`{"requestId":"r","success":false}`, false},
		{`{"requestId":"r","success":"true"}`, false},
		{`{"requestId":"r","success":1}`, false},
		{`{"requestId":"r"}`, false},
	}

	for _, tt := range tests {
		msg, err := Classify([]byte(tt.raw), pendingSet("r"))
		if err != nil {
			t.Fatalf("Classify(%s) error = %v", tt.raw, err)
		}
		resp, ok := msg.(CorrelatedResponse)
		if !ok {
			t.Fatalf("Classify(%s) = %T, want CorrelatedResponse", tt.raw, msg)
		}
		if resp.Success != tt.want {
			t.Errorf("Classify(%s).Success = %v, want %v", tt.raw, resp.Success, tt.want)
		}
	}
}

func TestClassifyAck(t *testing.T) {
	msg, err := Classify([]byte(`{"success":false,"message":"No face detected"}`), nil)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	u, ok := msg.(Unclassified)
	if !ok {
		t.Fatalf("Classify() = %T, want Unclassified", msg)
	}
	if u.Ack == nil {
		t.Fatal("expected Ack to be set")
	}
	if u.Ack.Success || u.Ack.Message != "No face detected" {
		t.Errorf("unexpected ack %+v", u.Ack)
	}
}

func TestCapturePayload(t *testing.T) {
	jpeg := []byte{0xff, 0xd8, 0xff, 0xe0}

	payload := CapturePayload(jpeg, 7)

	if payload[FieldType] != TypeCaptureImage {
		t.Errorf("type = %v, want %s", payload[FieldType], TypeCaptureImage)
	}
	if payload[FieldPlayerID] != 7 {
		t.Errorf("player_id = %v, want 7", payload[FieldPlayerID])
	}

	image, _ := payload[FieldImage].(string)
	decoded, err := base64.StdEncoding.DecodeString(image)
	if err != nil {
		t.Fatalf("image is not base64: %v", err)
	}
	if string(decoded) != string(jpeg) {
		t.Error("image does not round trip")
	}
	if strings.HasPrefix(image, "data:") {
		t.Error("image should not carry a data URI prefix")
	}
}

func TestStripDataURI(t *testing.T) {
	tests := map[string]string{
		"data:image/jpeg;base64,AAAA": "AAAA",
		"AAAA":                        "AAAA",
		"data:nocomma":                "data:nocomma",
	}
	for in, want := range tests {
		if got := StripDataURI(in); got != want {
			t.Errorf("StripDataURI(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewRequestIDFormat(t *testing.T) {
	id := NewRequestID()

	parts := strings.Split(id, "_")
	if len(parts) != 3 || parts[0] != "req" {
		t.Fatalf("unexpected request id %q", id)
	}
	if len(parts[2]) != 9 {
		t.Errorf("suffix %q should have 9 characters", parts[2])
	}
}
