package websocket

import (
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

const (
	sendChSize   = 1_000
	maxReconnect = 10
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
)

// connection manages a WebSocket connection with a single write goroutine.
type connection struct {
	mu     sync.Mutex
	conn   *ws.Conn
	sendCh chan []byte
	done   chan struct{} // closed on shutdown
	closed bool

	wsURL  string
	secret string

	// hello is written first on every (re)connect.
	hello []byte

	onMessage func([]byte)
	onState   func(connected bool)

	baseBackoff time.Duration
	logger      *slog.Logger
}

func newConnection(logger *slog.Logger, onMessage func([]byte), onState func(bool)) *connection {
	return &connection{
		sendCh:      make(chan []byte, sendChSize),
		done:        make(chan struct{}),
		onMessage:   onMessage,
		onState:     onState,
		baseBackoff: time.Second,
		logger:      logger,
	}
}

// dial connects to the host, writes hello and starts read/write loops.
func (c *connection) dial(rawURL, secret string, hello []byte) error {
	c.wsURL = rawURL
	c.secret = secret
	c.hello = hello

	conn, err := c.dialOnce()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.onState(true)
	go c.writeLoop(conn)
	go c.readLoop(conn)

	return nil
}

// dialOnce performs a single dial with the secret query param and sends hello.
func (c *connection) dialOnce() (*ws.Conn, error) {
	u, err := url.Parse(c.wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	if c.secret != "" {
		q := u.Query()
		q.Set("secret", c.secret)
		u.RawQuery = q.Encode()
	}

	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}

	if c.hello != nil {
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("set hello deadline: %w", err)
		}
		if err := conn.WriteMessage(ws.TextMessage, c.hello); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("send hello: %w", err)
		}
	}
	return conn, nil
}

// writeLoop drains sendCh and writes messages to conn.
// It returns on error, shutdown or when conn is replaced.
func (c *connection) writeLoop(conn *ws.Conn) {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.sendCh:
			if !c.current(conn) {
				// a newer loop owns the socket; hand the message over
				c.requeue(data)
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Warn("WebSocket SetWriteDeadline error", "error", err)
				c.requeue(data)
				go c.reconnect(conn)
				return
			}
			if err := conn.WriteMessage(ws.TextMessage, data); err != nil {
				c.logger.Warn("WebSocket write error", "error", err)
				go c.reconnect(conn)
				return
			}
		}
	}
}

// readLoop hands every inbound message to onMessage, in arrival order.
func (c *connection) readLoop(conn *ws.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			c.logger.Warn("WebSocket read error", "error", err)
			go c.reconnect(conn)
			return
		}
		c.onMessage(message)
	}
}

func (c *connection) current(conn *ws.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn == conn
}

func (c *connection) requeue(data []byte) {
	select {
	case c.sendCh <- data:
	default:
		c.logger.Warn("WebSocket send channel full, dropping message")
	}
}

// reconnect re-establishes the connection with exponential backoff.
// Only the first caller for a broken conn does the work.
func (c *connection) reconnect(broken *ws.Conn) {
	c.mu.Lock()
	if c.closed || c.conn != broken {
		c.mu.Unlock()
		return
	}
	_ = c.conn.Close()
	c.conn = nil
	c.mu.Unlock()
	c.onState(false)

	backoff := c.baseBackoff
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		c.logger.Info("Reconnecting to host", "attempt", attempt, "backoff", backoff)
		select {
		case <-c.done:
			return
		case <-time.After(backoff):
		}

		conn, err := c.dialOnce()
		if err != nil {
			c.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = conn.Close()
			return
		}
		c.conn = conn
		c.mu.Unlock()

		c.logger.Info("Host reconnected", "attempt", attempt)
		c.onState(true)
		go c.writeLoop(conn)
		go c.readLoop(conn)
		return
	}

	c.logger.Error("Host reconnect failed after max attempts", "maxAttempts", maxReconnect)
}

// send pushes data to the write loop. It fails when the channel is full or
// the connection is closed.
func (c *connection) send(data []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.sendCh <- data:
		return nil
	default:
		return fmt.Errorf("send channel full")
	}
}

// close sends a close frame and shuts down all goroutines.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		c.onState(false)
		_ = conn.WriteControl(
			ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		return conn.Close()
	}
	return nil
}
