// Package sqlitestorage archives trails in a SQLite file.
// It wraps the GORM backend and adds periodic snapshots via VACUUM INTO.
package sqlitestorage

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/OCAP2/trail/internal/database"
	gormstorage "github.com/OCAP2/trail/internal/storage/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	Path             string // empty for an in-memory database
	SnapshotPath     string
	SnapshotInterval time.Duration
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db  *gorm.DB
	cfg Config
	log zerolog.Logger

	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New opens the SQLite database and creates the backend.
func New(cfg Config, log zerolog.Logger) (*Backend, error) {
	db, err := database.OpenSqlite(cfg.Path, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite DB: %w", err)
	}

	return &Backend{
		Backend:  gormstorage.New(db, log),
		db:       db,
		cfg:      cfg,
		log:      log,
		stopChan: make(chan struct{}),
	}, nil
}

// Init migrates the schema and starts the snapshot goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.cfg.SnapshotPath != "" && b.cfg.SnapshotInterval > 0 {
		b.wg.Add(1)
		go b.snapshotLoop()
	}
	return nil
}

// Close stops the snapshot goroutine and closes the database.
func (b *Backend) Close() error {
	b.stopOnce.Do(func() { close(b.stopChan) })
	b.wg.Wait()
	return b.Backend.Close()
}

// Snapshot writes the database to the configured snapshot path now.
func (b *Backend) Snapshot() error {
	if b.cfg.SnapshotPath == "" {
		return fmt.Errorf("no snapshot path configured")
	}
	return database.VacuumInto(b.db, b.cfg.SnapshotPath)
}

func (b *Backend) snapshotLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.SnapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			if err := b.Snapshot(); err != nil {
				b.log.Error().Err(err).Msg("Error writing SQLite snapshot")
			} else {
				b.log.Debug().Dur("took", time.Since(start)).Msg("SQLite snapshot written")
			}
		}
	}
}
