package trail

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/OCAP2/trail/pkg/scene"
)

// fakeClock fires timers only when advanced.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	c       *fakeClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	tm := &fakeTimer{c: c, at: c.now + d, f: f}
	c.timers = append(c.timers, tm)
	return tm
}

func (tm *fakeTimer) Stop() bool {
	tm.c.mu.Lock()
	defer tm.c.mu.Unlock()
	if tm.stopped || tm.fired {
		return false
	}
	tm.stopped = true
	return true
}

// Advance moves time forward, firing due timers in order outside the lock.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, tm := range c.timers {
			if tm.stopped || tm.fired || tm.at > target {
				continue
			}
			if next == nil || tm.at < next.at {
				next = tm
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.fired = true
		c.now = next.at
		c.mu.Unlock()
		next.f()
	}
}

// Pending returns the number of armed timers.
func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, tm := range c.timers {
		if !tm.stopped && !tm.fired {
			n++
		}
	}
	return n
}

// fakeHost records calls in order and assigns sequential trail IDs.
type fakeHost struct {
	mu        sync.Mutex
	calls     []string
	added     []scene.Item
	deleted   []string
	nextID    int
	addErr    error
	deleteErr error
}

func (h *fakeHost) AddItems(_ context.Context, items []scene.Item) ([]scene.Item, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]scene.Item, 0, len(items))
	for _, it := range items {
		h.calls = append(h.calls, "add:"+trailOf(it))
		if h.addErr != nil {
			return nil, h.addErr
		}
		h.nextID++
		it.ID = fmt.Sprintf("trail-%d", h.nextID)
		h.added = append(h.added, it)
		out = append(out, it)
	}
	return out, nil
}

func (h *fakeHost) DeleteItems(_ context.Context, ids []string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range ids {
		h.calls = append(h.calls, "delete:"+id)
	}
	if h.deleteErr != nil {
		return h.deleteErr
	}
	h.deleted = append(h.deleted, ids...)
	return nil
}

func (h *fakeHost) Calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

func (h *fakeHost) Added() []scene.Item {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]scene.Item(nil), h.added...)
}

func trailOf(it scene.Item) string {
	meta, ok := it.Metadata[DefaultExtensionID].(map[string]any)
	if !ok {
		return ""
	}
	id, _ := meta[MetaTrailOf].(string)
	return id
}

type fakePrefs struct {
	mu      sync.Mutex
	color   string
	enabled bool
}

func (p *fakePrefs) Color() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.color
}

func (p *fakePrefs) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

func (p *fakePrefs) set(color string, enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.color = color
	p.enabled = enabled
}

// queueRunner holds tasks until drained, to simulate in-flight host calls.
type queueRunner struct {
	mu    sync.Mutex
	tasks []func()
}

func (r *queueRunner) Submit(task func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, task)
}

func (r *queueRunner) Drain() {
	for {
		r.mu.Lock()
		if len(r.tasks) == 0 {
			r.mu.Unlock()
			return
		}
		task := r.tasks[0]
		r.tasks = r.tasks[1:]
		r.mu.Unlock()
		task()
	}
}

type fakeRecorder struct {
	mu      sync.Mutex
	created []Created
	removed []Removed
}

func (r *fakeRecorder) TrailCreated(c Created) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, c)
}

func (r *fakeRecorder) TrailRemoved(rm Removed) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, rm)
}

type harness struct {
	tr     *Tracker
	clock  *fakeClock
	host   *fakeHost
	prefs  *fakePrefs
	rec    *fakeRecorder
	logBuf *bytes.Buffer
}

func newHarness(t *testing.T, runner Runner) *harness {
	t.Helper()
	h := &harness{
		clock:  &fakeClock{},
		host:   &fakeHost{},
		prefs:  &fakePrefs{color: "#FF3B3B", enabled: true},
		rec:    &fakeRecorder{},
		logBuf: &bytes.Buffer{},
	}
	logger := slog.New(slog.NewTextHandler(h.logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	tr, err := New(DefaultConfig(), Dependencies{
		Host:     h.host,
		Prefs:    h.prefs,
		Runner:   runner,
		Clock:    h.clock,
		Recorder: h.rec,
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("failed to create tracker: %v", err)
	}
	t.Cleanup(tr.Close)
	h.tr = tr
	return h
}

func token(id string, x, y float64) scene.Item {
	return scene.Item{
		ID:       id,
		Type:     scene.TypeImage,
		Layer:    scene.LayerCharacter,
		Position: &scene.Vector2{X: x, Y: y},
	}
}

func pt(x, y float64) scene.Vector2 {
	return scene.Vector2{X: x, Y: y}
}
