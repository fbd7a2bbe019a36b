// Package dispatcher routes inbound host messages to their handlers.
//
// A handler registered with Buffered gets its own queue and a single
// consumer goroutine, so events of one type are handled one at a time in
// the order they were dispatched.
package dispatcher

import (
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Event is an inbound message from the host.
type Event struct {
	Type      string
	Payload   any
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*route)

// Buffered queues events of this type for a dedicated goroutine.
// Dispatch returns "queued" as soon as the event is enqueued.
func Buffered(size int) Option {
	return func(r *route) { r.size = size }
}

// Blocking makes Dispatch wait for room in a full queue instead of failing.
func Blocking() Option {
	return func(r *route) { r.blocking = true }
}

// Logged logs the start, end and failure of every event.
func Logged() Option {
	return func(r *route) { r.logged = true }
}

type route struct {
	handle   HandlerFunc
	size     int
	blocking bool
	logged   bool
	queue    chan Event
	attr     metric.MeasurementOption
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	logger  Logger
	metrics *metrics

	routes map[string]*route

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// New creates a Dispatcher. Metrics go to the global OTel meter.
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		logger: logger,
		routes: make(map[string]*route),
	}
	m, err := newMetrics(d.queueLengths)
	if err != nil {
		return nil, err
	}
	d.metrics = m
	return d, nil
}

// Register adds a handler for eventType. It must be called before the
// first Dispatch.
func (d *Dispatcher) Register(eventType string, h HandlerFunc, opts ...Option) {
	r := &route{
		handle: h,
		attr:   metric.WithAttributes(attribute.String("type", eventType)),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logged {
		r.handle = d.withLogging(eventType, r.handle)
	}
	if r.size > 0 {
		r.queue = make(chan Event, r.size)
		d.wg.Add(1)
		go d.consume(r)
	}

	d.mu.Lock()
	d.routes[eventType] = r
	d.mu.Unlock()
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	r, ok := d.routes[e.Type]
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", e.Type)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if r.queue == nil {
		return r.handle(e)
	}

	// Close takes the write lock, so the queue stays open while we hold RLock.
	if d.closed {
		d.metrics.rejected(r.attr)
		return nil, fmt.Errorf("dispatcher closed: %s", e.Type)
	}
	if r.blocking {
		r.queue <- e
		return "queued", nil
	}
	select {
	case r.queue <- e:
		return "queued", nil
	default:
		d.metrics.rejected(r.attr)
		return nil, fmt.Errorf("queue full: %s", e.Type)
	}
}

// Close stops accepting buffered events and waits until the queued ones are handled.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, r := range d.routes {
		if r.queue != nil {
			close(r.queue)
		}
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) consume(r *route) {
	defer d.wg.Done()
	for e := range r.queue {
		_, _ = r.handle(e)
		d.metrics.handled(r.attr)
	}
}

func (d *Dispatcher) queueLengths(observe func(n int, attr metric.MeasurementOption)) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, r := range d.routes {
		if r.queue != nil {
			observe(len(r.queue), r.attr)
		}
	}
}

func (d *Dispatcher) withLogging(eventType string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("Handling event", "type", eventType)
		result, err := h(e)
		if err != nil {
			d.logger.Error("Event failed", "type", eventType, "duration", time.Since(start), "error", err)
			return result, err
		}
		d.logger.Debug("Event handled", "type", eventType, "duration", time.Since(start))
		return result, nil
	}
}
