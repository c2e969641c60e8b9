package realtime

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/junolabs/go-juno/internal/log"
	"github.com/junolabs/go-juno/pkg/debug"
)

// ConnState is the connection lifecycle state.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateClosing
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

const (
	handshakeTimeout  = 10 * time.Second
	keepAliveInterval = 30 * time.Second
	writeTimeout      = 10 * time.Second
	readTimeout       = 120 * time.Second
)

// transport is the subset of *websocket.Conn the connection manager needs.
// Tests substitute a scripted fake.
type transport interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// dialFunc opens a transport. The default uses gorilla/websocket.
type dialFunc func(url string, header http.Header) (transport, error)

func gorillaDial(url string, header http.Header) (transport, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	ws, _, err := dialer.Dial(url, header)
	if err != nil {
		return nil, err
	}
	return ws, nil
}

// Conn owns one websocket connection's lifecycle and serializes outbound
// writes. State transitions happen only on socket callbacks or an explicit
// Close; every other component reads the state to gate sends.
//
// Conn never reconnects on its own. A transition to StateDisconnected plus
// the failure callback is the whole story; reconnection policy belongs to
// the caller.
type Conn struct {
	dial dialFunc

	mu    sync.Mutex // guards state, ws, and write interleaving
	state ConnState
	ws    transport
	done  chan struct{}

	// OnMessage receives every inbound text frame. Called from the read
	// goroutine; must not block.
	OnMessage func(data []byte)

	// OnStateChange observes lifecycle transitions.
	OnStateChange func(state ConnState)

	// OnFailure reports abnormal termination. The state is already
	// StateDisconnected when it fires.
	OnFailure func(err error)
}

// NewConn returns a Conn in the Disconnected state.
func NewConn() *Conn {
	return &Conn{dial: gorillaDial}
}

// State returns the current connection state.
func (c *Conn) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect dials the endpoint and starts the read and keepalive loops.
// Calling Connect while connecting or connected is rejected.
func (c *Conn) Connect(url string, header http.Header) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		state := c.state
		c.mu.Unlock()
		log.Warn("realtime: connect ignored", "state", state.String())
		return ErrAlreadyConnected
	}
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()

	ws, err := c.dial(url, header)
	if err != nil {
		c.mu.Lock()
		c.setStateLocked(StateDisconnected)
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.ws = ws
	c.done = make(chan struct{})
	c.setStateLocked(StateConnected)
	done := c.done
	c.mu.Unlock()

	go c.readLoop(ws)
	go c.keepAlive(ws, done)

	return nil
}

// Send writes one text frame. It returns false, without blocking or
// queueing, when the connection is not in the Connected state or the write
// fails; the message is simply dropped and the caller decides what that
// means.
func (c *Conn) Send(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateConnected || c.ws == nil {
		debug.WireLog("conn: dropped %d byte send in state %s\n", len(data), c.state)
		return false
	}

	c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Warn("realtime: write failed", "err", err)
		return false
	}
	return true
}

// Close initiates a graceful shutdown. The transition to Disconnected
// happens when the read loop observes the socket closing.
func (c *Conn) Close() {
	c.mu.Lock()
	if c.state != StateConnected {
		c.mu.Unlock()
		return
	}
	c.setStateLocked(StateClosing)
	ws := c.ws
	c.mu.Unlock()

	if ws != nil {
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeTimeout))
		ws.Close()
	}
}

func (c *Conn) readLoop(ws transport) {
	for {
		ws.SetReadDeadline(time.Now().Add(readTimeout))
		_, data, err := ws.ReadMessage()
		if err != nil {
			c.readClosed(ws, err)
			return
		}
		if c.OnMessage != nil {
			c.OnMessage(data)
		}
	}
}

// readClosed finishes the lifecycle after the read loop exits. A close that
// was requested locally (or a clean peer close) ends quietly; anything else
// counts as a transport failure.
func (c *Conn) readClosed(ws transport, err error) {
	c.mu.Lock()
	wasClosing := c.state == StateClosing
	if !wasClosing && websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		// Peer-initiated close: pass through Closing before Disconnected.
		c.setStateLocked(StateClosing)
		wasClosing = true
	}
	c.ws = nil
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
	c.setStateLocked(StateDisconnected)
	c.mu.Unlock()

	ws.Close()

	if !wasClosing && c.OnFailure != nil {
		c.OnFailure(err)
	}
}

// keepAlive pings every 30 seconds so half-open connections surface as read
// errors instead of silent stalls.
func (c *Conn) keepAlive(ws transport, done chan struct{}) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.state != StateConnected {
				c.mu.Unlock()
				return
			}
			err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			c.mu.Unlock()
			if err != nil {
				debug.Log("conn: keepalive ping failed: %v\n", err)
				return
			}
		}
	}
}

// setStateLocked updates the state and notifies. Caller holds c.mu.
func (c *Conn) setStateLocked(state ConnState) {
	if c.state == state {
		return
	}
	c.state = state
	debug.Log("conn: state -> %s\n", state)
	if c.OnStateChange != nil {
		// Fire outside the lock to keep observers from deadlocking.
		go c.OnStateChange(state)
	}
}
