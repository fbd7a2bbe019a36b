package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/OCAP2/trail/internal/queue"
)

const instrumentationName = "github.com/OCAP2/trail/internal/worker"

// Serial runs submitted tasks one at a time, in submission order, on a
// single goroutine. It implements trail.Runner.
type Serial struct {
	tasks  *queue.Queue[func()]
	logger *slog.Logger

	closed  atomic.Bool
	busy    atomic.Bool
	stop    chan struct{}
	stopped chan struct{}
	once    sync.Once

	queueSize metric.Int64ObservableGauge
	completed metric.Int64Counter
	panicked  metric.Int64Counter
	rejected  metric.Int64Counter
}

// NewSerial creates a stopped Serial. Tasks submitted before Start wait.
func NewSerial(logger *slog.Logger) (*Serial, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Serial{
		tasks:   queue.New[func()](),
		logger:  logger,
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	m := otel.Meter(instrumentationName)
	var err error

	s.queueSize, err = m.Int64ObservableGauge("worker.queue.size",
		metric.WithDescription("Host calls waiting to run"))
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}
	_, err = m.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		o.ObserveInt64(s.queueSize, int64(s.tasks.Len()))
		return nil
	}, s.queueSize)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	s.completed, err = m.Int64Counter("worker.tasks.completed",
		metric.WithDescription("Host calls run"))
	if err != nil {
		return nil, fmt.Errorf("creating completed counter: %w", err)
	}
	s.panicked, err = m.Int64Counter("worker.tasks.panicked",
		metric.WithDescription("Host calls that panicked"))
	if err != nil {
		return nil, fmt.Errorf("creating panicked counter: %w", err)
	}
	s.rejected, err = m.Int64Counter("worker.tasks.rejected",
		metric.WithDescription("Tasks submitted after Close"))
	if err != nil {
		return nil, fmt.Errorf("creating rejected counter: %w", err)
	}
	return s, nil
}

// Start launches the worker goroutine. Calling it twice is a no-op.
func (s *Serial) Start() {
	s.once.Do(func() { go s.loop() })
}

// Submit queues a task. Tasks submitted after Close are dropped.
func (s *Serial) Submit(task func()) {
	if s.closed.Load() {
		s.rejected.Add(context.Background(), 1)
		s.logger.Debug("Task submitted after worker closed")
		return
	}
	s.tasks.Push(task)
}

// Len returns the number of queued tasks, including one that is running.
func (s *Serial) Len() int {
	n := s.tasks.Len()
	if s.busy.Load() {
		n++
	}
	return n
}

// Close stops accepting tasks, runs the ones already queued and waits for
// the worker to exit. On a Serial that was never started the queued tasks
// run on the caller's goroutine, and a later Start does nothing.
func (s *Serial) Close() {
	if s.closed.Swap(true) {
		<-s.stopped
		return
	}
	s.once.Do(func() {
		s.drain()
		close(s.stopped)
	})
	close(s.stop)
	<-s.stopped
}

func (s *Serial) loop() {
	defer close(s.stopped)
	for {
		s.drain()
		select {
		case <-s.tasks.Ready():
		case <-s.stop:
			s.drain()
			return
		}
	}
}

func (s *Serial) drain() {
	for {
		task, ok := s.tasks.Pop()
		if !ok {
			return
		}
		s.run(task)
	}
}

func (s *Serial) run(task func()) {
	s.busy.Store(true)
	defer s.busy.Store(false)
	defer func() {
		if r := recover(); r != nil {
			s.panicked.Add(context.Background(), 1)
			s.logger.Error("Worker task panicked", "panic", r)
		}
	}()
	task()
	s.completed.Add(context.Background(), 1)
}
