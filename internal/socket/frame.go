// Package socket implements the realtime channel to the Homework
// Assistant service: a single websocket connection carrying named JSON
// event frames, owned by a Manager with a fixed-delay bounded
// reconnect policy.
package socket

import (
	"encoding/json"
	"fmt"
)

// Frame is the wire envelope for one event. Every frame is a JSON text
// message; there is no binary framing and no transport fallback.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EncodeFrame marshals an event and its payload into a wire frame.
func EncodeFrame(event string, payload any) ([]byte, error) {
	f := Frame{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", event, err)
		}
		f.Data = data
	}
	return json.Marshal(f)
}

// DecodeFrame parses a wire frame. Frames without an event name are
// rejected; payloads are left raw for the dispatcher to interpret.
func DecodeFrame(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, fmt.Errorf("malformed frame: %w", err)
	}
	if f.Event == "" {
		return Frame{}, fmt.Errorf("frame missing event name")
	}
	return f, nil
}
