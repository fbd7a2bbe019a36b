package main

import (
	"fmt"
	"strings"

	"github.com/OCAP2/trail/internal/config"
	"github.com/OCAP2/trail/internal/database"
	"github.com/OCAP2/trail/internal/influx"
	"github.com/OCAP2/trail/internal/logging"
	"github.com/OCAP2/trail/internal/storage"
	influxstorage "github.com/OCAP2/trail/internal/storage/influx"
	"github.com/OCAP2/trail/internal/storage/memory"
	pgstorage "github.com/OCAP2/trail/internal/storage/postgres"
	sqlitestorage "github.com/OCAP2/trail/internal/storage/sqlite"
)

// createStorageBackend returns the archive selected by storageCfg.Type, or
// nil for "none".
func createStorageBackend(storageCfg config.StorageConfig, logs *logging.SlogManager) (storage.Backend, error) {
	logger := logs.Logger()

	switch strings.ToLower(storageCfg.Type) {
	case "none":
		logger.Info("Trail archive disabled")
		return nil, nil

	case "postgres":
		backend, err := pgstorage.New(pgstorage.Config{
			Connection: database.PostgresConfig{
				Host:     storageCfg.DB.Host,
				Port:     storageCfg.DB.Port,
				Username: storageCfg.DB.Username,
				Password: storageCfg.DB.Password,
				Database: storageCfg.DB.Database,
			},
			FlushInterval: storageCfg.DB.FlushInterval,
			BatchSize:     storageCfg.DB.BatchSize,
		}, logs.Zerolog("postgres"))
		if err != nil {
			return nil, fmt.Errorf("failed to create Postgres backend: %w", err)
		}
		logger.Info("Postgres storage backend initialized", "host", storageCfg.DB.Host)
		return backend, nil

	case "sqlite":
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			Path:             storageCfg.Sqlite.Path,
			SnapshotPath:     storageCfg.Sqlite.SnapshotPath,
			SnapshotInterval: storageCfg.Sqlite.SnapshotInterval,
		}, logs.Zerolog("sqlite"))
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		logger.Info("SQLite storage backend initialized", "path", storageCfg.Sqlite.Path)
		return backend, nil

	case "influx":
		logger.Info("InfluxDB storage backend initialized", "bucket", storageCfg.Influx.Bucket)
		return influxstorage.New(influx.Config{
			Protocol:   storageCfg.Influx.Protocol,
			Host:       storageCfg.Influx.Host,
			Port:       storageCfg.Influx.Port,
			Token:      storageCfg.Influx.Token,
			Org:        storageCfg.Influx.Org,
			Bucket:     storageCfg.Influx.Bucket,
			BackupPath: storageCfg.Influx.BackupPath,
		}, logs.Zerolog("influx")), nil

	case "memory", "":
		logger.Info("Memory storage backend initialized")
		return memory.New(memory.Config{Capacity: storageCfg.Memory.Capacity}), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}
