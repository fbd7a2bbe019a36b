package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/OCAP2/trail/internal/config"
	"github.com/OCAP2/trail/internal/dispatcher"
	wshost "github.com/OCAP2/trail/internal/host/websocket"
	"github.com/OCAP2/trail/internal/logging"
	"github.com/OCAP2/trail/internal/monitor"
	"github.com/OCAP2/trail/internal/prefs"
	"github.com/OCAP2/trail/internal/session"
	"github.com/OCAP2/trail/internal/storage"
	"github.com/OCAP2/trail/internal/trail"
	"github.com/OCAP2/trail/internal/worker"
)

// appOptions is the configuration the companion runs with.
type appOptions struct {
	Host    config.HostConfig
	Trail   config.TrailConfig
	Prefs   config.PrefsConfig
	Storage config.StorageConfig
	Monitor config.MonitorConfig
}

// app wires the companion's services together.
type app struct {
	logs   *logging.SlogManager
	logger *slog.Logger

	session    *session.Context
	prefs      *prefs.Store
	dispatcher *dispatcher.Dispatcher
	serial     *worker.Serial
	client     *wshost.Client
	tracker    *trail.Tracker
	backend    storage.Backend
	monitor    *monitor.Service

	cancel context.CancelFunc
}

func trailConfig(c config.TrailConfig) trail.Config {
	return trail.Config{
		Inactivity:    c.Inactivity,
		StrokeWidth:   c.StrokeWidth,
		StrokeOpacity: c.StrokeOpacity,
		TrackedLayer:  c.TrackedLayer,
		CurveLayer:    c.CurveLayer,
		ExtensionID:   c.ExtensionID,
		PruneMissing:  c.PruneMissing,
	}
}

// newApp builds every service. Nothing talks to the host until start.
func newApp(opts appOptions, logs *logging.SlogManager, sess *session.Context) (_ *app, err error) {
	a := &app{logs: logs, logger: logs.Logger(), session: sess}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	a.prefs, err = prefs.Open(opts.Prefs.Path, a.logger.With("component", "prefs"))
	if err != nil {
		return nil, err
	}
	p := a.prefs.Snapshot()
	a.logger.Info("Preferences loaded", "path", a.prefs.Path(), "color", p.Color, "enabled", p.Enabled)
	sess.SetTrailsEnabled(p.Enabled)
	a.prefs.OnEnabledChange(func(enabled bool) {
		sess.SetTrailsEnabled(enabled)
		if !enabled {
			a.logger.Info("Trails disabled, drags in progress still finish")
		}
	})

	a.backend, err = createStorageBackend(opts.Storage, logs)
	if err != nil {
		return nil, err
	}
	var recorder trail.Recorder
	if a.backend != nil {
		if err = a.backend.Init(); err != nil {
			return nil, fmt.Errorf("failed to initialize storage backend: %w", err)
		}
		recorder = storage.NewRecorder(a.backend, sess, a.logger.With("component", "storage"))
	}

	a.dispatcher, err = dispatcher.New(logging.NewDispatcherLogger(a.logger.With("component", "dispatcher")))
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}

	a.serial, err = worker.NewSerial(a.logger.With("component", "outbound"))
	if err != nil {
		return nil, fmt.Errorf("failed to create outbound worker: %w", err)
	}

	a.client = wshost.New(wshost.Config{
		URL:            opts.Host.URL,
		Secret:         opts.Host.Secret,
		ExtensionID:    opts.Trail.ExtensionID,
		Version:        CurrentVersion,
		RequestTimeout: opts.Host.RequestTimeout,
	}, a.dispatcher, a.logger.With("component", "host"))
	a.client.OnConnectionChange = func(connected bool) {
		sess.SetConnected(connected)
		if connected {
			a.logger.Info("Host connected")
		} else {
			a.logger.Warn("Host connection lost")
		}
	}

	a.tracker, err = trail.New(trailConfig(opts.Trail), trail.Dependencies{
		Host:     a.client,
		Prefs:    a.prefs,
		Runner:   a.serial,
		Recorder: recorder,
		Logger:   a.logger.With("component", "tracker"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracker: %w", err)
	}

	worker.NewManager(worker.Dependencies{
		Tracker:        a.tracker,
		Items:          a.client,
		Session:        sess,
		Logger:         a.logger.With("component", "worker"),
		RequestTimeout: opts.Host.RequestTimeout,
	}).RegisterHandlers(a.dispatcher)

	if opts.Monitor.Enabled {
		a.monitor = monitor.NewService(monitor.Dependencies{
			Tracker:  a.tracker,
			Outbound: a.serial,
			Session:  sess,
			Logger:   a.logger.With("component", "monitor"),
			Path:     opts.Monitor.Path,
			Interval: opts.Monitor.Interval,
		})
	}

	return a, nil
}

// start connects to the host and starts the background services.
func (a *app) start(ctx context.Context, watchPrefs bool) error {
	ctx, a.cancel = context.WithCancel(ctx)

	a.serial.Start()

	if watchPrefs {
		if err := a.prefs.Watch(ctx); err != nil {
			a.logger.Warn("Preferences will not reload live", "error", err)
		}
	}
	if a.monitor != nil {
		if err := a.monitor.Start(); err != nil {
			a.logger.Warn("Status monitor not started", "error", err)
		}
	}

	if err := a.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect to host: %w", err)
	}
	return nil
}

// close stops every service, inbound first so queued work drains.
func (a *app) close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.client != nil {
		if err := a.client.Close(); err != nil {
			a.logger.Debug("Host close", "error", err)
		}
	}
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	if a.tracker != nil {
		a.tracker.Close()
	}
	if a.serial != nil {
		a.serial.Close()
	}
	if a.monitor != nil {
		a.monitor.Stop()
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.logger.Error("Failed to close storage backend", "error", err)
		}
	}
}
