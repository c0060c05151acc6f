package dispatch

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/brilliance/hwachat/internal/models"
)

func TestDecodeSystemMessage(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
		drop bool
	}{
		{name: "bare string", data: `"maintenance at noon"`, want: "maintenance at noon"},
		{name: "object form", data: `{"message":"session expired"}`, want: "session expired"},
		{name: "object with non-string message", data: `{"message":42}`, drop: true},
		{name: "number", data: `17`, drop: true},
		{name: "array", data: `["a","b"]`, drop: true},
		{name: "empty object", data: `{}`, drop: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Decode(models.EventSystemMessage, json.RawMessage(tt.data))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if tt.drop {
				if ev != nil {
					t.Fatalf("Decode() = %#v, want drop", ev)
				}
				return
			}
			sys, ok := ev.(SystemEvent)
			if !ok {
				t.Fatalf("Decode() = %T, want SystemEvent", ev)
			}
			if sys.Message != tt.want {
				t.Errorf("Message = %q, want %q", sys.Message, tt.want)
			}
		})
	}
}

func TestDecodeResponse(t *testing.T) {
	data := `{"success":true,"data":{"message":"F = ma","timestamp":"2026-03-01T10:00:00Z","groupId":"grp-9"}}`

	ev, err := Decode(models.EventResponse, json.RawMessage(data))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	resp, ok := ev.(ResponseEvent)
	if !ok {
		t.Fatalf("Decode() = %T, want ResponseEvent", ev)
	}
	if !resp.Success {
		t.Error("Success = false, want true")
	}
	if resp.Message != "F = ma" {
		t.Errorf("Message = %q", resp.Message)
	}
	if resp.GroupID != "grp-9" {
		t.Errorf("GroupID = %q, want grp-9", resp.GroupID)
	}
	want := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if !resp.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", resp.Timestamp, want)
	}
}

func TestDecodeResponseTopLevelGroupID(t *testing.T) {
	data := `{"success":true,"groupId":"grp-old","data":{"message":"hi"}}`

	ev, _ := Decode(models.EventResponse, json.RawMessage(data))
	resp := ev.(ResponseEvent)
	if resp.GroupID != "grp-old" {
		t.Errorf("GroupID = %q, want grp-old", resp.GroupID)
	}
}

func TestDecodeResponseBadTimestamp(t *testing.T) {
	data := `{"success":true,"data":{"message":"hi","timestamp":"yesterday"}}`

	ev, _ := Decode(models.EventResponse, json.RawMessage(data))
	resp := ev.(ResponseEvent)
	if !resp.Timestamp.IsZero() {
		t.Errorf("Timestamp = %v, want zero", resp.Timestamp)
	}
}

func TestDecodeHistory(t *testing.T) {
	data := `{"success":true,"data":[
		{"question":"q1","answer":"a1","createdAt":"2026-01-02T08:00:00Z"},
		{"question":"q2","answer":"a2","createdAt":"2026-01-02T09:00:00Z"}
	]}`

	ev, err := Decode(models.EventHistoryResponse, json.RawMessage(data))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	hist, ok := ev.(HistoryEvent)
	if !ok {
		t.Fatalf("Decode() = %T, want HistoryEvent", ev)
	}
	if !hist.Success {
		t.Error("Success = false, want true")
	}
	if len(hist.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(hist.Items))
	}
	if hist.Items[0].Question != "q1" || hist.Items[0].Answer != "a1" {
		t.Errorf("Items[0] = %+v", hist.Items[0])
	}
	if hist.Items[1].CreatedAt.Hour() != 9 {
		t.Errorf("Items[1].CreatedAt = %v", hist.Items[1].CreatedAt)
	}
}

func TestDecodeTypingIgnoresPayload(t *testing.T) {
	ev, err := Decode(models.EventTyping, json.RawMessage(`{"anything":"goes"}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if _, ok := ev.(TypingEvent); !ok {
		t.Fatalf("Decode() = %T, want TypingEvent", ev)
	}
}

func TestDecodeUnknownEvent(t *testing.T) {
	ev, err := Decode("weather:update", json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if ev != nil {
		t.Fatalf("Decode() = %#v, want nil", ev)
	}
}
