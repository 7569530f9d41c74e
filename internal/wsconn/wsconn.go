// Package wsconn is a WebSocket client with reconnection, keep-alive pings
// and a callback-based read loop.
package wsconn

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/fd1az/swap-router/internal/apperror"
)

// State represents the connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed"
)

// Config holds WebSocket client configuration.
type Config struct {
	URL            string
	Name           string
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxReconnects  int // 0 = infinite
	PingInterval   time.Duration
	PongTimeout    time.Duration
	ReadTimeout    time.Duration // 0 = none
	WriteTimeout   time.Duration
	MaxMessageSize int64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(url, name string) Config {
	return Config{
		URL:            url,
		Name:           name,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		MaxReconnects:  0,
		PingInterval:   30 * time.Second,
		PongTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxMessageSize: 1 << 20,
	}
}

// MessageHandler receives every data frame read from the connection.
type MessageHandler func(ctx context.Context, msg []byte)

// StateHandler observes state transitions; err is set when a transition was
// caused by a failure.
type StateHandler func(state State, err error)

// Client is a WebSocket client. Reads run in a background goroutine and are
// dispatched to the message handler; writes are serialized.
type Client struct {
	config Config

	state   State
	stateMu sync.RWMutex

	conn   *websocket.Conn
	connMu sync.RWMutex
	// cancel stops the read and ping loops of the current connection.
	cancel context.CancelFunc

	writeMu sync.Mutex

	onMessage     MessageHandler
	onStateChange StateHandler
	handlersMu    sync.RWMutex

	closeOnce sync.Once
	done      chan struct{}
}

// New creates a client. It does not dial.
func New(config Config) (*Client, error) {
	if config.URL == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("wsconn: url is required"))
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = time.Second
	}
	if config.MaxBackoff < config.InitialBackoff {
		config.MaxBackoff = config.InitialBackoff
	}

	return &Client{
		config: config,
		state:  StateDisconnected,
		done:   make(chan struct{}),
	}, nil
}

// OnMessage sets the handler for incoming messages.
func (c *Client) OnMessage(h MessageHandler) {
	c.handlersMu.Lock()
	c.onMessage = h
	c.handlersMu.Unlock()
}

// OnStateChange sets the state transition observer.
func (c *Client) OnStateChange(h StateHandler) {
	c.handlersMu.Lock()
	c.onStateChange = h
	c.handlersMu.Unlock()
}

// Connect dials once.
func (c *Client) Connect(ctx context.Context) error {
	if c.isClosed() {
		return apperror.New(apperror.CodeWebSocketClosed, apperror.WithContext(c.config.Name))
	}

	c.setState(StateConnecting, nil)

	conn, _, err := websocket.Dial(ctx, c.config.URL, nil)
	if err != nil {
		wrapped := apperror.New(apperror.CodeWebSocketConnectionError,
			apperror.WithCause(err),
			apperror.WithContext(c.config.Name+": dial "+c.config.URL))
		c.setState(StateDisconnected, wrapped)
		return wrapped
	}
	if c.config.MaxMessageSize > 0 {
		conn.SetReadLimit(c.config.MaxMessageSize)
	}

	// Loops outlive the dial context; they stop on Close or connection loss.
	loopCtx, cancel := context.WithCancel(context.Background())

	c.connMu.Lock()
	c.conn = conn
	c.cancel = cancel
	c.connMu.Unlock()

	c.setState(StateConnected, nil)

	go c.readLoop(loopCtx, conn)
	if c.config.PingInterval > 0 {
		go c.pingLoop(loopCtx, conn)
	}
	return nil
}

// ConnectWithRetry dials with exponential backoff until it succeeds, ctx is
// done or MaxReconnects attempts failed.
func (c *Client) ConnectWithRetry(ctx context.Context) error {
	backoff := c.config.InitialBackoff
	for attempt := 1; ; attempt++ {
		err := c.Connect(ctx)
		if err == nil {
			return nil
		}
		if c.isClosed() || (c.config.MaxReconnects > 0 && attempt >= c.config.MaxReconnects) {
			return err
		}

		c.setState(StateReconnecting, err)
		select {
		case <-ctx.Done():
			c.setState(StateDisconnected, ctx.Err())
			return apperror.New(apperror.CodeWebSocketConnectionError,
				apperror.WithCause(ctx.Err()),
				apperror.WithContext(c.config.Name))
		case <-c.done:
			return apperror.New(apperror.CodeWebSocketClosed, apperror.WithContext(c.config.Name))
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > c.config.MaxBackoff {
			backoff = c.config.MaxBackoff
		}
	}
}

// Send writes a text frame.
func (c *Client) Send(ctx context.Context, msg []byte) error {
	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()

	if conn == nil || c.State() != StateConnected {
		return apperror.New(apperror.CodeWebSocketSendError,
			apperror.WithContext(c.config.Name+": not connected"))
	}

	if c.config.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.WriteTimeout)
		defer cancel()
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
		return apperror.New(apperror.CodeWebSocketSendError,
			apperror.WithCause(err),
			apperror.WithContext(c.config.Name))
	}
	return nil
}

// SendJSON marshals v and sends it as a text frame.
func (c *Client) SendJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return apperror.New(apperror.CodeWebSocketSendError,
			apperror.WithCause(err),
			apperror.WithContext(c.config.Name+": encode"))
	}
	return c.Send(ctx, data)
}

// State returns the current connection state.
func (c *Client) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// Close performs the close handshake and stops the background loops. It is
// idempotent; a peer that already went away is not an error.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)

		c.connMu.Lock()
		conn, cancel := c.conn, c.cancel
		c.conn, c.cancel = nil, nil
		c.connMu.Unlock()

		if conn != nil {
			_ = conn.Close(websocket.StatusNormalClosure, "closing")
		}
		if cancel != nil {
			cancel()
		}
		c.setState(StateClosed, nil)
	})
	return nil
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		readCtx := ctx
		var cancel context.CancelFunc
		if c.config.ReadTimeout > 0 {
			readCtx, cancel = context.WithTimeout(ctx, c.config.ReadTimeout)
		}
		_, data, err := conn.Read(readCtx)
		if cancel != nil {
			cancel()
		}
		if err != nil {
			c.dropConnection(conn, err)
			return
		}

		c.handlersMu.RLock()
		h := c.onMessage
		c.handlersMu.RUnlock()
		if h != nil {
			h(ctx, data)
		}
	}
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, c.config.PongTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				c.dropConnection(conn, err)
				return
			}
		}
	}
}

// dropConnection tears down conn after a read or ping failure unless the
// client has already moved on to another connection or was closed.
func (c *Client) dropConnection(conn *websocket.Conn, cause error) {
	c.connMu.Lock()
	if c.conn != conn {
		c.connMu.Unlock()
		return
	}
	cancel := c.cancel
	c.conn, c.cancel = nil, nil
	c.connMu.Unlock()

	if cancel != nil {
		cancel()
	}
	_ = conn.CloseNow()

	if c.isClosed() {
		return
	}
	c.setState(StateDisconnected, apperror.New(apperror.CodeWebSocketClosed,
		apperror.WithCause(cause),
		apperror.WithContext(c.config.Name)))
}

func (c *Client) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Client) setState(state State, err error) {
	c.stateMu.Lock()
	c.state = state
	c.stateMu.Unlock()

	c.handlersMu.RLock()
	h := c.onStateChange
	c.handlersMu.RUnlock()
	if h != nil {
		h(state, err)
	}
}
