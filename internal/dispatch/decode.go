// Package dispatch translates user actions into outbound events on the
// realtime channel and inbound events into conversation-store updates.
//
// Inbound payloads are decoded at the boundary into a closed set of
// typed events. The service is lenient about shapes (a system message
// may be a bare string or an object), so decoding uses gjson and drops
// anything unrecognized instead of failing.
package dispatch

import (
	"encoding/json"
	"time"

	"github.com/tidwall/gjson"

	"github.com/brilliance/hwachat/internal/models"
)

// Inbound is one decoded realtime event.
type Inbound interface {
	inbound()
}

// ResponseEvent is an assistant reply to a request.
type ResponseEvent struct {
	Success   bool
	Message   string
	Timestamp time.Time // zero when the server omitted or mangled it
	GroupID   string    // set when the server minted a new group
}

// TypingEvent signals the assistant is composing. No payload.
type TypingEvent struct{}

// HistoryItem is one question/answer pair from the server archive.
type HistoryItem struct {
	Question   string
	Answer     string
	CreatedAt  time.Time
	QuestionAt time.Time // optional richer timestamps
	AnswerAt   time.Time
}

// HistoryEvent carries a full conversation history.
type HistoryEvent struct {
	Success bool
	Items   []HistoryItem
}

// SystemEvent is a service notice to show in the transcript.
type SystemEvent struct {
	Message string
}

func (ResponseEvent) inbound() {}
func (TypingEvent) inbound()   {}
func (HistoryEvent) inbound()  {}
func (SystemEvent) inbound()   {}

// Decode parses one inbound event. A nil, nil return means the event is
// unrecognized or malformed and must be silently dropped; that leniency
// is part of the contract, not an error path.
func Decode(event string, data json.RawMessage) (Inbound, error) {
	switch event {
	case models.EventTyping:
		return TypingEvent{}, nil
	case models.EventSystemMessage:
		return decodeSystem(data), nil
	case models.EventResponse:
		return decodeResponse(data), nil
	case models.EventHistoryResponse:
		return decodeHistory(data), nil
	default:
		return nil, nil
	}
}

// decodeSystem accepts either a bare JSON string or an object with a
// string "message" field. Every other shape yields nothing.
func decodeSystem(data json.RawMessage) Inbound {
	parsed := gjson.ParseBytes(data)
	switch {
	case parsed.Type == gjson.String:
		return SystemEvent{Message: parsed.String()}
	case parsed.IsObject():
		msg := parsed.Get("message")
		if msg.Type == gjson.String {
			return SystemEvent{Message: msg.String()}
		}
	}
	return nil
}

func decodeResponse(data json.RawMessage) Inbound {
	parsed := gjson.ParseBytes(data)
	if !parsed.IsObject() {
		return nil
	}

	ev := ResponseEvent{
		Success: parsed.Get("success").Bool(),
		Message: parsed.Get("data.message").String(),
	}

	if ts := parsed.Get("data.timestamp").String(); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			ev.Timestamp = t
		}
	}

	// The group id appears under data.groupId on newer servers and at
	// the top level on older ones.
	if id := parsed.Get("data.groupId").String(); id != "" {
		ev.GroupID = id
	} else if id := parsed.Get("groupId").String(); id != "" {
		ev.GroupID = id
	}

	return ev
}

func decodeHistory(data json.RawMessage) Inbound {
	parsed := gjson.ParseBytes(data)
	if !parsed.IsObject() {
		return nil
	}

	ev := HistoryEvent{Success: parsed.Get("success").Bool()}

	items := parsed.Get("data")
	if !items.IsArray() {
		return ev
	}

	items.ForEach(func(_, item gjson.Result) bool {
		hi := HistoryItem{
			Question: item.Get("question").String(),
			Answer:   item.Get("answer").String(),
		}
		hi.CreatedAt = parseTime(item.Get("createdAt"))
		hi.QuestionAt = parseTime(item.Get("questionAt"))
		hi.AnswerAt = parseTime(item.Get("answerAt"))
		ev.Items = append(ev.Items, hi)
		return true
	})

	return ev
}

func parseTime(r gjson.Result) time.Time {
	if r.Type != gjson.String {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, r.String())
	if err != nil {
		return time.Time{}
	}
	return t
}
