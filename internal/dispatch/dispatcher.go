package dispatch

import (
	"encoding/json"
	"sync"
	"time"

	hwaerrors "github.com/brilliance/hwachat/internal/errors"
	"github.com/brilliance/hwachat/internal/models"
	"github.com/brilliance/hwachat/internal/socket"
	"github.com/brilliance/hwachat/internal/store"
)

// disconnectedNotice is shown in the transcript when a send is attempted
// without a live connection. Nothing is emitted in that case.
const disconnectedNotice = "Unable to send message - not connected to server"

// Transport is the slice of the realtime channel the dispatcher needs.
// *socket.Manager satisfies it.
type Transport interface {
	Connected() bool
	Emit(event string, payload any) error
}

// envelope mirrors the service's outbound wire shape: the event name is
// repeated inside the payload.
type envelope struct {
	EventName string      `json:"eventName"`
	Data      requestData `json:"data"`
}

type requestData struct {
	Message     string `json:"message,omitempty"`
	Curriculum  string `json:"curriculum,omitempty"`
	ClassLevel  string `json:"classLevel,omitempty"`
	GroupID     string `json:"groupId,omitempty"`
	IsNewChat   bool   `json:"isNewChat"`
	MediaURL    string `json:"mediaUrl,omitempty"`
	MessageType string `json:"messageType,omitempty"`
}

// Defaults are applied to every outbound request unless overridden.
type Defaults struct {
	Curriculum string
	ClassLevel string
}

// Dispatcher owns the traffic between the conversation store and the
// realtime channel. One dispatcher serves one store.
type Dispatcher struct {
	transport Transport
	store     *store.Conversation
	defaults  Defaults

	// onGroupsChanged fires after the server mints a group id for a new
	// conversation, so the sidebar listing can refresh.
	onGroupsChanged func()

	debugf func(format string, args ...any)

	// History responses carry no request tag, but they arrive on the
	// single read goroutine in request order, so pairing the n-th
	// response with the n-th request identifies stale ones.
	histMu      sync.Mutex
	histSeq     uint64 // sequence of the latest history request
	histRespSeq uint64 // sequence of the latest history response
	histGroup   string // group id of the latest request, "" for a new session
	histPending bool
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithGroupsChanged registers a callback invoked when a new conversation
// group is adopted.
func WithGroupsChanged(fn func()) Option {
	return func(d *Dispatcher) { d.onGroupsChanged = fn }
}

// WithDebugLog routes internal diagnostics to fn.
func WithDebugLog(fn func(format string, args ...any)) Option {
	return func(d *Dispatcher) { d.debugf = fn }
}

// New creates a dispatcher bound to the given transport and store.
func New(t Transport, s *store.Conversation, defaults Defaults, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		transport: t,
		store:     s,
		defaults:  defaults,
		debugf:    func(string, ...any) {},
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Bind subscribes the dispatcher to every inbound event on the manager.
// Handlers run on the connection's read loop, so per-event order is the
// server's order.
func (d *Dispatcher) Bind(m *socket.Manager) {
	for _, event := range []string{
		models.EventMessage,
		models.EventSystemMessage,
		models.EventResponse,
		models.EventTyping,
		models.EventHistoryResponse,
	} {
		event := event
		m.On(event, func(data json.RawMessage) {
			d.HandleEvent(event, data)
		})
	}
}

// SendText appends the user's message optimistically, sets the typing
// indicator, and emits a request. Any pending attachment is consumed and
// rides along as mediaUrl. Without a live connection nothing is emitted;
// a system notice lands in the transcript instead.
func (d *Dispatcher) SendText(text string) error {
	if !d.transport.Connected() {
		d.store.Append(models.NewSystemMessage(disconnectedNotice))
		return hwaerrors.ErrNotConnected
	}

	active := d.store.Active()
	if active.Phase == models.PhaseIdle {
		d.store.StartNew()
		active = d.store.Active()
	}
	isNew := active.Phase == models.PhasePendingNew

	att := d.store.TakePendingAttachment()

	data := requestData{
		Message:     text,
		Curriculum:  d.defaults.Curriculum,
		ClassLevel:  d.defaults.ClassLevel,
		GroupID:     active.GroupID,
		IsNewChat:   isNew,
		MessageType: models.MessageTypeText,
	}
	if att != nil {
		data.MediaURL = att.URL
		data.MessageType = att.Kind.MessageType()
	}

	d.store.Append(models.NewUserMessage(text, att))
	d.store.SetTyping(true)

	if err := d.transport.Emit(models.EventRequest, envelope{EventName: models.EventRequest, Data: data}); err != nil {
		d.store.SetTyping(false)
		d.store.Append(models.NewSystemMessage(disconnectedNotice))
		return err
	}

	if isNew {
		if err := d.store.BeginCreating(); err != nil {
			d.debugf("dispatch: %v", err)
		}
	}
	return nil
}

// RequestHistory asks the server for the transcript of an existing
// group. The request is tagged so a response that arrives after the user
// has moved on is discarded instead of clobbering the transcript.
func (d *Dispatcher) RequestHistory(groupID string) error {
	d.histMu.Lock()
	d.histSeq++
	d.histGroup = groupID
	d.histPending = true
	d.histMu.Unlock()

	return d.transport.Emit(models.EventHistoryRequest, envelope{
		EventName: models.EventHistoryRequest,
		Data:      requestData{GroupID: groupID},
	})
}

// RequestHistoryForNewSession primes a fresh conversation. Some servers
// reply with seed content; most reply with an empty history.
func (d *Dispatcher) RequestHistoryForNewSession(curriculum string) error {
	d.histMu.Lock()
	d.histSeq++
	d.histGroup = ""
	d.histPending = true
	d.histMu.Unlock()

	return d.transport.Emit(models.EventHistoryRequest, envelope{
		EventName: models.EventHistoryRequest,
		Data:      requestData{Curriculum: curriculum},
	})
}

// HandleEvent decodes one inbound event and applies it to the store.
// Unrecognized or malformed events are dropped.
func (d *Dispatcher) HandleEvent(event string, data json.RawMessage) {
	ev, err := Decode(event, data)
	if err != nil || ev == nil {
		if event == models.EventMessage {
			d.debugf("dispatch: chatter on %q: %s", event, data)
		} else {
			d.debugf("dispatch: dropped %q event: %s", event, data)
		}
		return
	}

	switch ev := ev.(type) {
	case TypingEvent:
		d.store.SetTyping(true)
	case SystemEvent:
		d.store.Append(models.NewSystemMessage(ev.Message))
	case ResponseEvent:
		d.handleResponse(ev)
	case HistoryEvent:
		d.handleHistory(ev)
	}
}

func (d *Dispatcher) handleResponse(ev ResponseEvent) {
	d.store.SetTyping(false)

	if !ev.Success {
		msg := ev.Message
		if msg == "" {
			msg = "The assistant could not answer. Please try again."
		}
		d.store.Append(models.NewSystemMessage(msg))
		return
	}

	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	d.store.Append(models.DisplayMessage{
		Role:   models.RoleAssistant,
		Text:   ev.Message,
		SentAt: ts,
	})

	if ev.GroupID != "" && d.store.Active().Phase == models.PhaseCreating {
		if err := d.store.AdoptGroup(ev.GroupID); err != nil {
			d.debugf("dispatch: %v", err)
			return
		}
		if d.onGroupsChanged != nil {
			d.onGroupsChanged()
		}
	}
}

// handleHistory hydrates the transcript from an archive response. Only
// the response paired with the latest request is applied; responses for
// requests the user has since superseded are stale and dropped, as is a
// response for a group that is no longer the selected one.
func (d *Dispatcher) handleHistory(ev HistoryEvent) {
	d.histMu.Lock()
	if !d.histPending {
		d.histMu.Unlock()
		d.debugf("dispatch: dropped unsolicited history response")
		return
	}
	d.histRespSeq++
	seq, latest, group := d.histRespSeq, d.histSeq, d.histGroup
	if seq == latest {
		d.histPending = false
	}
	d.histMu.Unlock()

	if seq != latest {
		d.debugf("dispatch: dropped stale history response %d, latest request is %d", seq, latest)
		return
	}
	if group != "" {
		active := d.store.Active()
		if active.Phase != models.PhaseActive || active.GroupID != group {
			d.debugf("dispatch: dropped stale history for group %s", group)
			return
		}
	}
	if !ev.Success {
		d.debugf("dispatch: history request failed")
		return
	}

	// An empty archive leaves the transcript alone.
	if len(ev.Items) == 0 {
		return
	}

	msgs := make([]models.DisplayMessage, 0, 2*len(ev.Items))
	for _, item := range ev.Items {
		qAt := item.QuestionAt
		if qAt.IsZero() {
			qAt = item.CreatedAt
		}
		aAt := item.AnswerAt
		if aAt.IsZero() {
			aAt = item.CreatedAt
		}
		msgs = append(msgs,
			models.DisplayMessage{Role: models.RoleUser, Text: item.Question, SentAt: qAt},
			models.DisplayMessage{Role: models.RoleAssistant, Text: item.Answer, SentAt: aAt},
		)
	}
	d.store.ReplaceMessages(msgs)
}
