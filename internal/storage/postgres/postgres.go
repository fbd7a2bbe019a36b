// Package postgres archives trails in PostgreSQL. Records are queued and a
// background writer inserts them in batches.
package postgres

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/OCAP2/trail/internal/database"
	"github.com/OCAP2/trail/internal/queue"
	"github.com/OCAP2/trail/internal/storage"
	gormstorage "github.com/OCAP2/trail/internal/storage/gorm"
)

// Defaults for Config.
const (
	DefaultFlushInterval = 2 * time.Second
	DefaultBatchSize     = 100
)

// Config holds configuration for the Postgres storage backend.
type Config struct {
	Connection    database.PostgresConfig
	FlushInterval time.Duration
	BatchSize     int
}

// queues holds the pending rows for batch insertion.
type queues struct {
	Trails   *queue.Queue[gormstorage.Trail]
	Removals *queue.Queue[gormstorage.TrailRemoval]
}

// Backend queues rows and writes them from a single goroutine.
// Reads go straight to the database after a flush.
type Backend struct {
	gorm *gormstorage.Backend
	db   *gorm.DB
	cfg  Config
	log  zerolog.Logger

	queues *queues

	flushMu  sync.Mutex
	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New connects to Postgres and creates the backend.
func New(cfg Config, log zerolog.Logger) (*Backend, error) {
	db, err := database.OpenPostgres(cfg.Connection, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return newWithDB(db, cfg, log), nil
}

func newWithDB(db *gorm.DB, cfg Config, log zerolog.Logger) *Backend {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Backend{
		gorm: gormstorage.New(db, log),
		db:   db,
		cfg:  cfg,
		log:  log,
		queues: &queues{
			Trails:   queue.New[gormstorage.Trail](),
			Removals: queue.New[gormstorage.TrailRemoval](),
		},
		stopChan: make(chan struct{}),
	}
}

// Init migrates the schema and starts the writer.
func (b *Backend) Init() error {
	if err := b.gorm.Init(); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.wg.Add(1)
	go b.writeLoop()
	return nil
}

// Close stops the writer, flushes what is queued and closes the connection.
func (b *Backend) Close() error {
	b.stopOnce.Do(func() { close(b.stopChan) })
	b.wg.Wait()
	if err := b.Flush(); err != nil {
		b.log.Error().Err(err).Msg("Failed to flush queued rows on close")
	}
	return b.gorm.Close()
}

// RecordTrail queues a trail row.
func (b *Backend) RecordTrail(r storage.TrailRecord) error {
	row, err := gormstorage.TrailRow(r)
	if err != nil {
		return err
	}
	b.queues.Trails.Push(row)
	return nil
}

// RecordRemoval queues a removal row.
func (b *Backend) RecordRemoval(r storage.RemovalRecord) error {
	b.queues.Removals.Push(gormstorage.RemovalRow(r))
	return nil
}

// RecentTrails flushes queued rows and queries the database.
func (b *Backend) RecentTrails(tokenID string, limit int) ([]storage.TrailRecord, error) {
	if err := b.Flush(); err != nil {
		return nil, err
	}
	return b.gorm.RecentTrails(tokenID, limit)
}

// Pending returns the number of queued rows.
func (b *Backend) Pending() int {
	return b.queues.Trails.Len() + b.queues.Removals.Len()
}

// Flush writes all queued rows. Rows of a failed batch are dropped.
func (b *Backend) Flush() error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	var firstErr error
	if trails := b.queues.Trails.GetAndEmpty(); len(trails) > 0 {
		if err := b.db.CreateInBatches(&trails, b.cfg.BatchSize).Error; err != nil {
			firstErr = fmt.Errorf("failed to insert %d trails: %w", len(trails), err)
		} else {
			b.log.Debug().Int("count", len(trails)).Msg("Trails written")
		}
	}
	if removals := b.queues.Removals.GetAndEmpty(); len(removals) > 0 {
		if err := b.db.CreateInBatches(&removals, b.cfg.BatchSize).Error; err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to insert %d trail removals: %w", len(removals), err)
		}
	}
	return firstErr
}

func (b *Backend) writeLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.log.Error().Err(err).Msg("Failed to write queued rows")
			}
		}
	}
}
