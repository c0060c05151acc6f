package socket

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/gorilla/websocket"

	apierrors "github.com/brilliance/hwachat/internal/errors"
)

// Handler receives the raw payload of one inbound event. Handlers for
// the same event run in arrival order on the read goroutine; ordering
// across different event names is not guaranteed.
type Handler func(data json.RawMessage)

// wireConn is the subset of *websocket.Conn the channel needs. Tests
// substitute an in-memory implementation.
type wireConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Conn is one live realtime connection.
type Conn struct {
	ws wireConn

	writeMu sync.Mutex // gorilla allows one concurrent writer

	handlersMu sync.RWMutex
	handlers   map[string][]Handler

	closeOnce sync.Once
	closed    chan struct{}

	// onClose is invoked once when the read loop ends. serverInitiated
	// is true when the peer sent a close frame.
	onClose func(serverInitiated bool, err error)

	debugf func(format string, args ...any)
}

func newConn(ws wireConn, debugf func(string, ...any)) *Conn {
	if debugf == nil {
		debugf = func(string, ...any) {}
	}
	return &Conn{
		ws:       ws,
		handlers: make(map[string][]Handler),
		closed:   make(chan struct{}),
		debugf:   debugf,
	}
}

// On registers a handler for an inbound event name.
func (c *Conn) On(event string, h Handler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.handlers[event] = append(c.handlers[event], h)
}

// Emit sends one event frame. It fails with ErrNotConnected once the
// connection is closed.
func (c *Conn) Emit(event string, payload any) error {
	select {
	case <-c.closed:
		return apierrors.ErrNotConnected
	default:
	}

	frame, err := EncodeFrame(event, payload)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.debugf("emit %s failed: %v", event, err)
		return apierrors.NewConnectionError(0, err)
	}
	c.debugf("emit %s", event)
	return nil
}

// Alive reports whether the connection is still open.
func (c *Conn) Alive() bool {
	select {
	case <-c.closed:
		return false
	default:
		return true
	}
}

// Close tears the connection down locally. onClose fires with
// serverInitiated=false.
func (c *Conn) Close() error {
	err := c.ws.Close()
	c.finish(false, nil)
	return err
}

// start runs the read loop. One goroutine per connection: per-event
// arrival order is preserved by construction.
func (c *Conn) start() {
	go func() {
		for {
			_, raw, err := c.ws.ReadMessage()
			if err != nil {
				_ = c.ws.Close()
				c.finish(isServerClose(err), err)
				return
			}

			frame, err := DecodeFrame(raw)
			if err != nil {
				// Lenient boundary: unparseable frames are dropped.
				c.debugf("dropping frame: %v", err)
				continue
			}
			c.dispatch(frame)
		}
	}()
}

func (c *Conn) dispatch(f Frame) {
	c.handlersMu.RLock()
	hs := c.handlers[f.Event]
	c.handlersMu.RUnlock()

	c.debugf("recv %s (%d handlers)", f.Event, len(hs))
	for _, h := range hs {
		h(f.Data)
	}
}

func (c *Conn) finish(serverInitiated bool, err error) {
	c.closeOnce.Do(func() {
		close(c.closed)
		if c.onClose != nil {
			c.onClose(serverInitiated, err)
		}
	})
}

// isServerClose reports whether the read error carries a close frame
// from the peer, i.e. a forced server-initiated disconnect.
func isServerClose(err error) bool {
	var ce *websocket.CloseError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == websocket.CloseNormalClosure ||
		ce.Code == websocket.CloseGoingAway ||
		ce.Code == websocket.CloseServiceRestart
}
