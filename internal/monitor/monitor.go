// Package monitor periodically writes a JSON status document describing
// the companion's live state.
package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/OCAP2/trail/internal/session"
	"github.com/OCAP2/trail/internal/trail"
)

// DefaultInterval is used when Dependencies.Interval is unset.
const DefaultInterval = 10 * time.Second

// StatsSource reports the tracker's table counts and creation totals.
type StatsSource interface {
	Stats() trail.Stats
	Totals() trail.Totals
}

// QueueSource reports the length of the outbound queue.
type QueueSource interface {
	Len() int
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Tracker  StatsSource
	Outbound QueueSource
	Session  *session.Context
	Logger   *slog.Logger
	Path     string
	Interval time.Duration
}

// Status is the document written to the status file.
type Status struct {
	Time          time.Time `json:"time"`
	SceneID       string    `json:"sceneId"`
	HostConnected bool      `json:"hostConnected"`
	ReadyAt       time.Time `json:"readyAt,omitzero"`
	TrailsEnabled bool      `json:"trailsEnabled"`
	Tokens        int       `json:"tokens"`
	Dragging      int       `json:"dragging"`
	Trails        int       `json:"trails"`
	OutboundQueue int       `json:"outboundQueue"`

	TrailsCreated    uint64 `json:"trailsCreated"`
	TrailsSuperseded uint64 `json:"trailsSuperseded"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Status collects the current status.
func (s *Service) Status() Status {
	st := Status{Time: time.Now().UTC()}
	if s.deps.Tracker != nil {
		stats := s.deps.Tracker.Stats()
		st.Tokens, st.Dragging, st.Trails = stats.Tokens, stats.Dragging, stats.Trails
		totals := s.deps.Tracker.Totals()
		st.TrailsCreated, st.TrailsSuperseded = totals.Created, totals.Superseded
	}
	if s.deps.Outbound != nil {
		st.OutboundQueue = s.deps.Outbound.Len()
	}
	if s.deps.Session != nil {
		st.SceneID = s.deps.Session.SceneID()
		st.HostConnected = s.deps.Session.Connected()
		st.ReadyAt = s.deps.Session.ReadyAt()
		st.TrailsEnabled = s.deps.Session.TrailsEnabled()
	}
	return st
}

// WriteStatus writes the current status to the status file, replacing it
// atomically.
func (s *Service) WriteStatus() error {
	data, err := json.MarshalIndent(s.Status(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}

	dir := filepath.Dir(s.deps.Path)
	tmp, err := os.CreateTemp(dir, ".status-*.json")
	if err != nil {
		return fmt.Errorf("failed to create status file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write status file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write status file: %w", err)
	}
	if err := os.Rename(tmpName, s.deps.Path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace status file: %w", err)
	}
	return nil
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	if s.deps.Path == "" {
		return fmt.Errorf("no status file path configured")
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.Logger
		logger.Debug("Starting status monitor", "path", s.deps.Path, "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			if err := s.WriteStatus(); err != nil {
				logger.Error("Error writing status file", "error", err)
			}
			select {
			case <-stop:
				return
			case <-ticker.C:
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for the goroutine to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
