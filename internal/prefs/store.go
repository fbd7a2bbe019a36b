package prefs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Store holds the live preferences of the running companion.
// Reads are cheap and safe from any goroutine.
type Store struct {
	path   string
	logger *slog.Logger

	mu        sync.RWMutex
	current   Prefs
	listeners []func(enabled bool)
}

// Open loads preferences from path into a new Store.
func Open(path string, logger *slog.Logger) (*Store, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, fmt.Errorf("resolve prefs path: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	p, _ := Load(resolved)
	return &Store{path: resolved, logger: logger, current: p}, nil
}

// Path returns the resolved preferences file.
func (s *Store) Path() string {
	return s.path
}

// Color returns the current trail color.
func (s *Store) Color() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Color
}

// Enabled reports whether new trails may start.
func (s *Store) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Enabled
}

// Snapshot returns a copy of the current preferences.
func (s *Store) Snapshot() Prefs {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// SetColor validates, stores and persists a color. An invalid color leaves
// the current one in place and returns ErrInvalidColor.
func (s *Store) SetColor(hex string) error {
	color, err := NormalizeColor(hex)
	if err != nil {
		return err
	}
	return s.update(func(p *Prefs) { p.Color = color })
}

// SetEnabled stores and persists the enabled flag.
func (s *Store) SetEnabled(v bool) error {
	return s.update(func(p *Prefs) { p.Enabled = v })
}

// OnEnabledChange registers fn to be called after the enabled flag changes.
func (s *Store) OnEnabledChange(fn func(enabled bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) update(change func(*Prefs)) error {
	s.mu.Lock()
	next := s.current
	change(&next)
	if err := Save(s.path, next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	s.apply(next)
	return nil
}

// Reload re-reads the file and applies what changed.
func (s *Store) Reload() {
	p, _ := Load(s.path)
	s.apply(p)
}

func (s *Store) apply(p Prefs) {
	s.mu.Lock()
	prev := s.current
	s.current = p
	listeners := append([]func(bool){}, s.listeners...)
	s.mu.Unlock()

	if prev.Color != p.Color {
		s.logger.Info("Trail color changed", "from", prev.Color, "to", p.Color)
	}
	if prev.Enabled != p.Enabled {
		s.logger.Info("Trails toggled", "enabled", p.Enabled)
		for _, fn := range listeners {
			fn(p.Enabled)
		}
	}
}

// Watch reloads the store whenever the file changes, until ctx is done.
// The directory is watched so editors that replace the file are seen too.
func (s *Store) Watch(ctx context.Context) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create prefs watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != s.path {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove) {
					s.Reload()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Warn("Prefs watcher error", "error", err)
			}
		}
	}()
	return nil
}
