package socket

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brilliance/hwachat/internal/config"
	apierrors "github.com/brilliance/hwachat/internal/errors"
	"github.com/brilliance/hwachat/internal/models"
)

const (
	// reconnectDelay is the fixed delay before every automatic retry.
	// The policy is deliberately fixed-delay with a fixed ceiling, not
	// exponential backoff.
	reconnectDelay = 1000 * time.Millisecond

	// maxAttempts bounds consecutive automatic retries after connect
	// errors. Once spent, reconnecting requires an explicit Connect.
	maxAttempts = 5
)

// Dialer opens the underlying websocket. The default uses
// websocket.DefaultDialer; tests substitute an in-memory dialer.
type Dialer func(url string) (wireConn, error)

func defaultDialer(u string) (wireConn, error) {
	ws, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		return nil, err
	}
	return ws, nil
}

// StateListener observes connection-state transitions.
type StateListener func(connected bool)

// Option configures a Manager.
type Option func(*Manager)

// WithDialer substitutes the websocket dialer.
func WithDialer(d Dialer) Option {
	return func(m *Manager) { m.dial = d }
}

// WithAfterFunc substitutes the retry timer source.
func WithAfterFunc(after func(time.Duration, func()) *time.Timer) Option {
	return func(m *Manager) { m.after = after }
}

// WithDebugLog enables verbose traffic logging.
func WithDebugLog(logf func(format string, args ...any)) Option {
	return func(m *Manager) { m.debugf = logf }
}

// Manager owns the single realtime connection for the process. It is
// created once and handed to collaborators; there is no package-level
// instance.
type Manager struct {
	host string

	mu         sync.Mutex
	creds      config.Credentials
	configured bool
	closed     bool
	conn       *Conn
	attempts   int
	retryTimer *time.Timer

	// handler registry, re-applied to every new connection so
	// subscriptions survive reconnects
	handlers map[string][]Handler

	listenersMu sync.Mutex
	listeners   map[int]StateListener
	nextListID  int

	dial   Dialer
	after  func(time.Duration, func()) *time.Timer
	debugf func(format string, args ...any)
}

// NewManager creates a Manager for the given realtime host (an http(s)
// base URL; the websocket scheme is derived from it).
func NewManager(host string, opts ...Option) *Manager {
	m := &Manager{
		host:      host,
		handlers:  make(map[string][]Handler),
		listeners: make(map[int]StateListener),
		dial:      defaultDialer,
		after:     time.AfterFunc,
		debugf:    func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Configure stores connection credentials and triggers a connect
// attempt if no connection is active.
func (m *Manager) Configure(creds config.Credentials) error {
	m.mu.Lock()
	m.creds = creds
	m.configured = true
	m.closed = false
	m.attempts = 0
	alreadyUp := m.conn != nil && m.conn.Alive()
	m.mu.Unlock()

	if alreadyUp {
		return nil
	}
	_, err := m.Connect()
	return err
}

// Connect returns the current connection if one is live, otherwise
// opens a new one. An explicit call restarts the retry budget.
func (m *Manager) Connect() (*Conn, error) {
	m.mu.Lock()
	m.closed = false
	m.attempts = 0
	conn, fresh, err := m.connectLocked()
	m.mu.Unlock()

	if fresh {
		m.notify(true)
	}
	return conn, err
}

// Current returns the live connection, reconnecting synchronously if
// needed.
func (m *Manager) Current() (*Conn, error) {
	m.mu.Lock()
	if m.conn != nil && m.conn.Alive() {
		conn := m.conn
		m.mu.Unlock()
		return conn, nil
	}
	conn, fresh, err := m.connectLocked()
	m.mu.Unlock()

	if fresh {
		m.notify(true)
	}
	return conn, err
}

// Emit sends one event on the live connection, reconnecting first if
// needed.
func (m *Manager) Emit(event string, payload any) error {
	conn, err := m.Current()
	if err != nil {
		return err
	}
	return conn.Emit(event, payload)
}

// Connected reports whether a live connection exists.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil && m.conn.Alive()
}

// Disconnect tears down the connection and cancels any pending retry.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.closed = true
	conn := m.conn
	m.conn = nil
	m.attempts = 0
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}

// On registers an event handler. The subscription applies to the
// current connection and to every connection created afterwards.
func (m *Manager) On(event string, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[event] = append(m.handlers[event], h)
	if m.conn != nil {
		m.conn.On(event, h)
	}
}

// Subscribe registers a connection-state listener and returns its
// unsubscribe function. Listeners must be removed on teardown.
func (m *Manager) Subscribe(l StateListener) (unsubscribe func()) {
	m.listenersMu.Lock()
	id := m.nextListID
	m.nextListID++
	m.listeners[id] = l
	m.listenersMu.Unlock()

	return func() {
		m.listenersMu.Lock()
		delete(m.listeners, id)
		m.listenersMu.Unlock()
	}
}

func (m *Manager) notify(connected bool) {
	m.listenersMu.Lock()
	ls := make([]StateListener, 0, len(m.listeners))
	for _, l := range m.listeners {
		ls = append(ls, l)
	}
	m.listenersMu.Unlock()

	for _, l := range ls {
		l(connected)
	}
}

// connectLocked dials a new connection. Callers hold m.mu and are
// responsible for notifying listeners when fresh is true.
func (m *Manager) connectLocked() (conn *Conn, fresh bool, err error) {
	if !m.configured {
		return nil, false, apierrors.ErrNotConfigured
	}
	if m.conn != nil && m.conn.Alive() {
		return m.conn, false, nil
	}

	u, err := m.dialURL()
	if err != nil {
		return nil, false, err
	}

	ws, err := m.dial(u)
	if err != nil {
		m.attempts++
		m.debugf("connect error (attempt %d/%d): %v", m.attempts, maxAttempts, err)
		if m.attempts <= maxAttempts {
			m.scheduleRetryLocked()
		}
		cerr := apierrors.NewConnectionError(m.attempts, err)
		cerr.Exhausted = m.attempts > maxAttempts
		return nil, false, cerr
	}

	m.attempts = 0
	conn = newConn(ws, m.debugf)
	conn.onClose = m.handleClose
	for event, hs := range m.handlers {
		for _, h := range hs {
			conn.On(event, h)
		}
	}
	m.conn = conn
	conn.start()
	m.debugf("connected to %s", u)
	return conn, true, nil
}

// handleClose runs when a connection's read loop ends. A forced
// server-initiated disconnect gets exactly one reconnect attempt after
// the fixed delay.
func (m *Manager) handleClose(serverInitiated bool, err error) {
	m.mu.Lock()
	m.conn = nil
	m.mu.Unlock()

	m.debugf("disconnected (server=%v): %v", serverInitiated, err)
	m.notify(false)

	if serverInitiated {
		m.mu.Lock()
		m.scheduleRetryLocked()
		m.mu.Unlock()
	}
}

// scheduleRetryLocked arms the single retry timer. Callers hold m.mu.
func (m *Manager) scheduleRetryLocked() {
	if m.retryTimer != nil {
		m.retryTimer.Stop()
	}
	m.retryTimer = m.after(reconnectDelay, func() {
		m.mu.Lock()
		// Stop races with a callback that already fired; an explicit
		// Disconnect must still win.
		if m.closed {
			m.mu.Unlock()
			return
		}
		m.retryTimer = nil
		_, fresh, err := m.connectLocked()
		m.mu.Unlock()
		if fresh {
			m.notify(true)
		}
		if err != nil {
			m.debugf("scheduled reconnect failed: %v", err)
		}
	})
}

// dialURL builds the websocket URL: namespace path under the host,
// credentials as query parameters, ws scheme derived from the host's.
func (m *Manager) dialURL() (string, error) {
	u, err := url.Parse(m.host)
	if err != nil {
		return "", fmt.Errorf("invalid realtime host %q: %w", m.host, err)
	}

	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported scheme %q in realtime host", u.Scheme)
	}

	u.Path = u.Path + models.Namespace
	q := u.Query()
	q.Set("token", m.creds.Token)
	q.Set("hwaApplicationId", m.creds.ApplicationID)
	u.RawQuery = q.Encode()

	return u.String(), nil
}
