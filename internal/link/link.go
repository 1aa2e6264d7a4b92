// Package link manages the two long-lived WebSocket connections to the
// field device: /out (device -> backend telemetry) and /in (backend ->
// device dispatch), each as an independent reconnecting state machine.
package link

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tetraslam/griddy/internal/logging"
)

// State is one state in the per-link connection state machine.
type State int

const (
	Disconnected State = iota
	Resolving
	Connecting
	Open
	Closing
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Resolving:
		return "resolving"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closing:
		return "closing"
	default:
		return "unknown"
	}
}

// MaxMessageBytes is the per-message size ceiling enforced on both links.
const MaxMessageBytes = 1 << 20 // 1 MiB

// Backoff is the fixed delay after a link drops before it restarts from
// Resolving.
const Backoff = 5 * time.Second

// Ready is a one-shot readiness signal: it is set exactly once, the first
// time /out successfully decodes a frame, and remains set for the process
// lifetime.
type Ready struct {
	once sync.Once
	ch   chan struct{}
}

// NewReady constructs an unfired Ready signal.
func NewReady() *Ready {
	return &Ready{ch: make(chan struct{})}
}

// Fire sets the signal. Safe to call more than once; only the first call
// has any effect.
func (r *Ready) Fire() {
	r.once.Do(func() { close(r.ch) })
}

// Done returns a channel closed once the signal has fired.
func (r *Ready) Done() <-chan struct{} {
	return r.ch
}

// Link is one reconnecting WebSocket connection to the device.
type Link struct {
	Name     string // "out" or "in", used in log lines only
	ResolveURL func() string
	Dialer   *websocket.Dialer
	Logger   *logging.Logger

	mu    sync.Mutex
	state State
	conn  *websocket.Conn
}

// NewLink constructs a Link with a default dialer.
func NewLink(name string, resolveURL func() string, logger *logging.Logger) *Link {
	return &Link{
		Name:       name,
		ResolveURL: resolveURL,
		Dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		Logger:     logger,
		state:      Disconnected,
	}
}

func (l *Link) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
	l.Logger.Debug("link state transition", "link", l.Name, "state", s.String())
}

// State returns the link's current state.
func (l *Link) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// FrameHandler processes one decoded binary message. An error does not tear
// down the connection; DecodeError-class failures are counted and dropped
// by the caller.
type FrameHandler func(b []byte) error

// Run drives the link's reconnect state machine until ctx is cancelled. For
// each connection attempt it resolves the URL, dials, and on success reads
// binary messages and passes them to handle; text messages are logged and
// discarded. On a dial error the link returns to Disconnected; on a read
// error it transitions through Closing back to Disconnected. Either way it
// then waits Backoff and restarts from Resolving.
func (l *Link) Run(ctx context.Context, handle FrameHandler) {
	for {
		if ctx.Err() != nil {
			l.setState(Disconnected)
			return
		}

		l.setState(Resolving)
		url := l.ResolveURL()

		l.setState(Connecting)
		conn, _, err := l.Dialer.DialContext(ctx, url, nil)
		if err != nil {
			l.Logger.Warn("link connect failed", "link", l.Name, "url", url, "error", err)
			l.setState(Disconnected)
			l.waitBackoff(ctx)
			continue
		}
		conn.SetReadLimit(MaxMessageBytes)

		l.mu.Lock()
		l.conn = conn
		l.mu.Unlock()
		l.setState(Open)
		l.Logger.Info("link open", "link", l.Name, "url", url)

		l.readLoop(ctx, conn, handle)

		l.setState(Closing)
		conn.Close()
		l.mu.Lock()
		l.conn = nil
		l.mu.Unlock()
		l.setState(Disconnected)

		l.waitBackoff(ctx)
	}
}

func (l *Link) readLoop(ctx context.Context, conn *websocket.Conn, handle FrameHandler) {
	for {
		if ctx.Err() != nil {
			return
		}
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			l.Logger.Warn("link read failed", "link", l.Name, "error", err)
			return
		}
		if msgType == websocket.TextMessage {
			l.Logger.Info("discarding text message on link", "link", l.Name, "len", len(data))
			continue
		}
		if err := handle(data); err != nil {
			l.Logger.Warn("frame handler error", "link", l.Name, "error", err)
		}
	}
}

func (l *Link) waitBackoff(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(Backoff):
	}
}

// Send writes a binary message on the link. It returns an error if the link
// is not Open; the caller is expected to drop the message in that case
// rather than block or queue it.
func (l *Link) Send(b []byte) error {
	l.mu.Lock()
	conn := l.conn
	state := l.state
	l.mu.Unlock()

	if state != Open || conn == nil {
		return errLinkNotOpen
	}
	return conn.WriteMessage(websocket.BinaryMessage, b)
}

var errLinkNotOpen = &notOpenError{}

type notOpenError struct{}

func (e *notOpenError) Error() string { return "link: not open" }
