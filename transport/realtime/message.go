package realtime

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/SpherCodes/LaserStrike/game/player"
)

// Broadcast discriminants
const (
	TypeShotEvent    = "shot_event"
	TypeGameReset    = "game_reset"
	TypeCaptureImage = "capture_image"
)

// Outbound field names
const (
	FieldRequestID = "requestId"
	FieldType      = "type"
	FieldImage     = "image"
	FieldPlayerID  = "player_id"
)

// ErrMalformed is returned by Classify for frames that are not JSON
var ErrMalformed = errors.New("malformed message")

// Inbound is one classified frame from the backend.
// It is exactly one of ShotEvent, CorrelatedResponse, GameReset or Unclassified.
type Inbound interface {
	isInbound()
}

// ShotEvent is a broadcast describing one capture outcome
type ShotEvent struct {
	player.ShotEvent
}

// CorrelatedResponse answers an operation this client sent
type CorrelatedResponse struct {
	RequestID string
	Success   bool
	Message   string
}

// GameReset signals that the backend cleared all game state
type GameReset struct{}

// Unclassified is any frame with no routing semantics
type Unclassified struct {
	Raw json.RawMessage
	// Ack is set when the frame carries a boolean success flag
	Ack *Ack
}

// Ack is an informational {success, message} acknowledgement
type Ack struct {
	Success bool
	Message string
}

func (ShotEvent) isInbound()          {}
func (CorrelatedResponse) isInbound() {}
func (GameReset) isInbound()          {}
func (Unclassified) isInbound()       {}

// Classify parses raw and returns its variant. isPending reports whether a
// correlation id is still awaiting a response; it may be nil.
func Classify(raw []byte, isPending func(id string) bool) (Inbound, error) {
	trimmed := bytes.TrimSpace(raw)
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("%w: %q", ErrMalformed, truncate(trimmed, 64))
	}

	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Unclassified{Raw: json.RawMessage(trimmed)}, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	msgType := stringField(fields, FieldType)

	if msgType == TypeShotEvent && isObject(fields["killer"]) && isObject(fields["target"]) {
		var ev player.ShotEvent
		if err := json.Unmarshal(fields["killer"], &ev.Killer); err != nil {
			return nil, fmt.Errorf("%w: killer: %v", ErrMalformed, err)
		}
		if err := json.Unmarshal(fields["target"], &ev.Target); err != nil {
			return nil, fmt.Errorf("%w: target: %v", ErrMalformed, err)
		}
		return ShotEvent{ShotEvent: ev}, nil
	}

	if id := stringField(fields, FieldRequestID); id != "" && isPending != nil && isPending(id) {
		return CorrelatedResponse{
			RequestID: id,
			Success:   boolField(fields, "success"),
			Message:   stringField(fields, "message"),
		}, nil
	}

	if msgType == TypeGameReset {
		return GameReset{}, nil
	}

	unclassified := Unclassified{Raw: json.RawMessage(trimmed)}
	if success, ok := fields["success"]; ok {
		var flag bool
		if json.Unmarshal(success, &flag) == nil {
			unclassified.Ack = &Ack{Success: flag, Message: stringField(fields, "message")}
		}
	}
	return unclassified, nil
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// boolField is true only for a literal JSON true
func boolField(fields map[string]json.RawMessage, key string) bool {
	return bytes.Equal(bytes.TrimSpace(fields[key]), []byte("true"))
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// CapturePayload builds the capture_image operation for a JPEG image
func CapturePayload(jpeg []byte, playerID int) map[string]interface{} {
	return map[string]interface{}{
		FieldType:     TypeCaptureImage,
		FieldImage:    base64.StdEncoding.EncodeToString(jpeg),
		FieldPlayerID: playerID,
	}
}

// StripDataURI removes a data:...;base64, prefix if present
func StripDataURI(image string) string {
	if !strings.HasPrefix(image, "data:") {
		return image
	}
	if i := strings.Index(image, ","); i >= 0 {
		return image[i+1:]
	}
	return image
}
