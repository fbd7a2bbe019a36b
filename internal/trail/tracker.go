// Package trail turns a stream of token snapshots into trail curves.
//
// A token is Idle until its position changes between two snapshots. The
// first change starts a gesture: the previous trail of the token is removed
// and a buffer is seeded with the position the token moved from. Each further
// change appends a point and re-arms an inactivity timer. When the timer
// expires the buffer is turned into a single curve on the host.
package trail

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/OCAP2/trail/pkg/scene"
)

// Defaults for Config.
const (
	DefaultInactivity    = 320 * time.Millisecond
	DefaultStrokeWidth   = 4
	DefaultStrokeOpacity = 0.9
	DefaultExtensionID   = "com.owlbear.trail"
)

// Host is the subset of host operations the tracker issues.
type Host interface {
	AddItems(ctx context.Context, items []scene.Item) ([]scene.Item, error)
	DeleteItems(ctx context.Context, ids []string) error
}

// Preferences supplies the user settings read by the tracker.
type Preferences interface {
	Color() string
	Enabled() bool
}

// Runner executes host calls in submission order, off the caller's goroutine.
type Runner interface {
	Submit(task func())
}

// Recorder receives trail lifecycle outcomes. Calls happen on the Runner.
type Recorder interface {
	TrailCreated(c Created)
	TrailRemoved(r Removed)
}

// Created describes a trail the host confirmed.
type Created struct {
	TokenID scene.ItemID
	TrailID scene.ItemID
	Color   string
	Points  []scene.Vector2
	At      time.Time
}

// Removed describes a deletion attempt. Err is nil when the host confirmed it.
type Removed struct {
	TokenID scene.ItemID
	TrailID scene.ItemID
	Err     error
	At      time.Time
}

// Config holds the tracker's fixed parameters.
type Config struct {
	Inactivity    time.Duration
	StrokeWidth   float64
	StrokeOpacity float64
	TrackedLayer  string
	CurveLayer    string
	ExtensionID   string
	PruneMissing  bool
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		Inactivity:    DefaultInactivity,
		StrokeWidth:   DefaultStrokeWidth,
		StrokeOpacity: DefaultStrokeOpacity,
		TrackedLayer:  scene.LayerCharacter,
		CurveLayer:    scene.LayerDrawing,
		ExtensionID:   DefaultExtensionID,
		PruneMissing:  true,
	}
}

// Dependencies holds the tracker's collaborators.
// Host and Prefs are required. A nil Runner runs tasks inline, a nil Clock
// uses the system clock.
type Dependencies struct {
	Host     Host
	Prefs    Preferences
	Runner   Runner
	Clock    Clock
	Recorder Recorder
	Logger   *slog.Logger
}

// Stats is a point-in-time view of the tracker's table.
type Stats struct {
	Tokens   int `json:"tokens"`
	Dragging int `json:"dragging"`
	Trails   int `json:"trails"`
}

// Totals counts creation results since the tracker started. Superseded
// curves are deleted again and are not counted as created.
type Totals struct {
	Created    uint64 `json:"created"`
	Superseded uint64 `json:"superseded"`
}

// Tracker owns the per-token state table.
type Tracker struct {
	cfg     Config
	deps    Dependencies
	metrics *metrics

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	tokens  map[scene.ItemID]*tokenState
	nextGen uint64
	closed  bool
}

type inlineRunner struct{}

func (inlineRunner) Submit(task func()) { task() }

// New creates a Tracker.
func New(cfg Config, deps Dependencies) (*Tracker, error) {
	if deps.Runner == nil {
		deps.Runner = inlineRunner{}
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.Inactivity <= 0 {
		cfg.Inactivity = DefaultInactivity
	}

	m, err := newMetrics()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Tracker{
		cfg:     cfg,
		deps:    deps,
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
		tokens:  make(map[scene.ItemID]*tokenState),
	}, nil
}

func (t *Tracker) trackable(it scene.Item) bool {
	return scene.IsImage(it) && it.Layer == t.cfg.TrackedLayer && it.Position != nil
}

// Seed records baselines for tokens not seen yet. It never starts a gesture.
func (t *Tracker) Seed(items []scene.Item) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	for _, it := range items {
		if !t.trackable(it) {
			continue
		}
		if _, ok := t.tokens[it.ID]; !ok {
			t.tokens[it.ID] = &tokenState{last: *it.Position}
		}
	}
}

// Observe processes one token snapshot.
func (t *Tracker) Observe(it scene.Item) {
	if !t.trackable(it) {
		return
	}
	pos := *it.Position

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}

	st, ok := t.tokens[it.ID]
	if !ok {
		t.tokens[it.ID] = &tokenState{last: pos}
		t.mu.Unlock()
		return
	}
	if st.last == pos {
		t.mu.Unlock()
		return
	}

	var prev scene.ItemID
	if !st.dragging() {
		if !t.deps.Prefs.Enabled() {
			st.last = pos
			t.mu.Unlock()
			return
		}
		prev = st.takeTrail()
		t.nextGen++
		st.start(t.nextGen)
		t.metrics.inc(t.metrics.started)
	}

	st.push(pos)
	st.last = pos
	t.rescheduleLocked(it.ID, st)
	t.mu.Unlock()

	if prev != "" {
		t.removeTrail(it.ID, prev)
	}
}

// Sync processes a full item set: every item is observed, then idle tokens
// whose ID is absent from the set are pruned when PruneMissing is on. A token
// still in the scene keeps its state even when this snapshot shows it on
// another layer or without a position. It returns the number of pruned tokens.
func (t *Tracker) Sync(items []scene.Item) int {
	for _, it := range items {
		t.Observe(it)
	}
	if !t.cfg.PruneMissing {
		return 0
	}

	present := make(map[scene.ItemID]struct{}, len(items))
	for _, it := range items {
		present[it.ID] = struct{}{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	pruned := 0
	for id, st := range t.tokens {
		if _, ok := present[id]; ok || !st.idle() {
			continue
		}
		delete(t.tokens, id)
		pruned++
	}
	if pruned > 0 {
		t.deps.Logger.Debug("Pruned tokens missing from scene", "count", pruned)
	}
	return pruned
}

// Stats returns counts over the state table.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := Stats{Tokens: len(t.tokens)}
	for _, st := range t.tokens {
		if st.dragging() {
			s.Dragging++
		}
		if st.trailID != "" {
			s.Trails++
		}
	}
	return s
}

// Totals returns the creation counters.
func (t *Tracker) Totals() Totals {
	return Totals{
		Created:    t.metrics.createdTotal.Load(),
		Superseded: t.metrics.staleTotal.Load(),
	}
}

// Close stops all pending timers and cancels in-flight host calls.
// Buffers of unfinished gestures are dropped.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	for _, st := range t.tokens {
		st.disarm()
		st.buffer = nil
	}
	t.mu.Unlock()
	t.cancel()
}

func (t *Tracker) rescheduleLocked(id scene.ItemID, st *tokenState) {
	st.disarm()
	st.timerSeq++
	seq := st.timerSeq
	st.timer = t.deps.Clock.AfterFunc(t.cfg.Inactivity, func() {
		t.expire(id, seq)
	})
}

// expire runs when a token's inactivity window elapses.
func (t *Tracker) expire(id scene.ItemID, seq uint64) {
	t.mu.Lock()
	st, ok := t.tokens[id]
	if t.closed || !ok || st.timer == nil || st.timerSeq != seq {
		t.mu.Unlock()
		return
	}
	st.timer = nil
	points := st.buffer
	st.buffer = nil
	gen := st.gen
	t.mu.Unlock()

	t.finalize(id, gen, points)
}
