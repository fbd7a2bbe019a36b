// Package websocket connects the companion to the tabletop host.
//
// Requests (get_items, add_items, delete_items) carry a uuid and are answered
// by a result message with the same id. Unsolicited host messages (ready,
// items_changed) are decoded and handed to an EventSink in arrival order.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/OCAP2/trail/internal/dispatcher"
	"github.com/OCAP2/trail/pkg/scene"
	"github.com/OCAP2/trail/pkg/streaming"
)

// DefaultRequestTimeout bounds a request when Config leaves it unset.
const DefaultRequestTimeout = 10 * time.Second

var (
	// ErrClosed is returned by requests issued after, or pending at, Close.
	ErrClosed = errors.New("host connection closed")
	// ErrHostRejected wraps the error text of a failed result.
	ErrHostRejected = errors.New("host rejected request")
	// ErrTimeout is returned when no result arrives within the request timeout.
	ErrTimeout = errors.New("host request timed out")
)

// EventSink receives decoded host events. *dispatcher.Dispatcher implements it.
type EventSink interface {
	Dispatch(e dispatcher.Event) (any, error)
}

// Config holds host connection configuration.
type Config struct {
	URL            string
	Secret         string
	ExtensionID    string
	Version        string
	RequestTimeout time.Duration
}

// Client is a host connection.
type Client struct {
	cfg       Config
	conn      *connection
	sink      EventSink
	logger    *slog.Logger
	connected atomic.Bool

	mu      sync.Mutex
	pending map[string]chan streaming.ResultPayload

	// OnConnectionChange, when set before Connect, observes link state.
	OnConnectionChange func(connected bool)
}

// New creates a client. Call Connect to dial.
func New(cfg Config, sink EventSink, logger *slog.Logger) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		cfg:     cfg,
		sink:    sink,
		logger:  logger,
		pending: make(map[string]chan streaming.ResultPayload),
	}
	c.conn = newConnection(logger, c.handleMessage, c.setConnected)
	return c
}

// Connect dials the host and introduces the companion.
func (c *Client) Connect() error {
	hello, err := marshalEnvelope(streaming.TypeHello, "", streaming.HelloPayload{
		ExtensionID: c.cfg.ExtensionID,
		Version:     c.cfg.Version,
	})
	if err != nil {
		return err
	}
	return c.conn.dial(c.cfg.URL, c.cfg.Secret, hello)
}

// Close disconnects and fails all pending requests with ErrClosed.
func (c *Client) Close() error {
	err := c.conn.close()

	c.mu.Lock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.mu.Unlock()
	return err
}

// Connected reports whether the link is currently up.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// GetItems fetches the full item set of the current scene.
func (c *Client) GetItems(ctx context.Context) ([]scene.Item, error) {
	res, err := c.request(ctx, streaming.TypeGetItems, struct{}{})
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

// AddItems creates items and returns them with host-assigned IDs.
func (c *Client) AddItems(ctx context.Context, items []scene.Item) ([]scene.Item, error) {
	res, err := c.request(ctx, streaming.TypeAddItems, streaming.ItemsPayload{Items: items})
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

// DeleteItems removes items by ID.
func (c *Client) DeleteItems(ctx context.Context, ids []string) error {
	_, err := c.request(ctx, streaming.TypeDeleteItems, streaming.DeleteItemsPayload{IDs: ids})
	return err
}

func (c *Client) setConnected(v bool) {
	c.connected.Store(v)
	if c.OnConnectionChange != nil {
		c.OnConnectionChange(v)
	}
}

// request sends a message and waits for the matching result.
func (c *Client) request(ctx context.Context, msgType string, payload any) (streaming.ResultPayload, error) {
	id := uuid.NewString()
	data, err := marshalEnvelope(msgType, id, payload)
	if err != nil {
		return streaming.ResultPayload{}, err
	}

	ch := make(chan streaming.ResultPayload, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	defer c.forget(id)

	if err := c.conn.send(data); err != nil {
		return streaming.ResultPayload{}, fmt.Errorf("%s: %w", msgType, err)
	}

	timer := time.NewTimer(c.cfg.RequestTimeout)
	defer timer.Stop()

	select {
	case res, ok := <-ch:
		if !ok {
			return streaming.ResultPayload{}, fmt.Errorf("%s: %w", msgType, ErrClosed)
		}
		if res.Error != "" {
			return res, fmt.Errorf("%s: %w: %s", msgType, ErrHostRejected, res.Error)
		}
		return res, nil
	case <-timer.C:
		return streaming.ResultPayload{}, fmt.Errorf("%s: %w", msgType, ErrTimeout)
	case <-ctx.Done():
		return streaming.ResultPayload{}, fmt.Errorf("%s: %w", msgType, ctx.Err())
	}
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// handleMessage runs on the read loop.
func (c *Client) handleMessage(raw []byte) {
	var env streaming.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.logger.Debug("Malformed host message", "error", err)
		return
	}

	switch env.Type {
	case streaming.TypeResult:
		var res streaming.ResultPayload
		if err := json.Unmarshal(env.Payload, &res); err != nil {
			c.logger.Debug("Malformed result", "error", err)
			return
		}
		if res.For == "" {
			res.For = env.ID
		}
		c.mu.Lock()
		ch, ok := c.pending[res.For]
		if ok {
			delete(c.pending, res.For)
		}
		c.mu.Unlock()
		if !ok {
			c.logger.Debug("Result for unknown request", "for", res.For)
			return
		}
		ch <- res

	case streaming.TypeReady:
		var p streaming.ReadyPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			c.logger.Debug("Malformed ready", "error", err)
			return
		}
		c.emit(env.Type, p)

	case streaming.TypeItemsChanged:
		var p streaming.ItemsPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			c.logger.Debug("Malformed items_changed", "error", err)
			return
		}
		c.emit(env.Type, p.Items)

	default:
		c.logger.Debug("Ignoring host message", "type", env.Type)
	}
}

func (c *Client) emit(msgType string, payload any) {
	if c.sink == nil {
		return
	}
	if _, err := c.sink.Dispatch(dispatcher.Event{Type: msgType, Payload: payload, Timestamp: time.Now()}); err != nil {
		c.logger.Warn("Host event not dispatched", "type", msgType, "error", err)
	}
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType, id string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, ID: id, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}
