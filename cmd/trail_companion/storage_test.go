package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/trail/internal/config"
	"github.com/OCAP2/trail/internal/logging"
	influxstorage "github.com/OCAP2/trail/internal/storage/influx"
	"github.com/OCAP2/trail/internal/storage/memory"
	sqlitestorage "github.com/OCAP2/trail/internal/storage/sqlite"
)

func testLogs() *logging.SlogManager {
	m := logging.NewSlogManager()
	m.Setup(&bytes.Buffer{}, "info", nil)
	return m
}

func TestCreateStorageBackend(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.StorageConfig
		check   func(t *testing.T, b any)
		wantErr bool
	}{
		{
			name: "memory",
			cfg:  config.StorageConfig{Type: "memory", Memory: config.MemoryConfig{Capacity: 10}},
			check: func(t *testing.T, b any) {
				assert.IsType(t, &memory.Backend{}, b)
			},
		},
		{
			name: "empty defaults to memory",
			cfg:  config.StorageConfig{},
			check: func(t *testing.T, b any) {
				assert.IsType(t, &memory.Backend{}, b)
			},
		},
		{
			name: "sqlite",
			cfg:  config.StorageConfig{Type: "sqlite", Sqlite: config.SqliteConfig{Path: filepath.Join(t.TempDir(), "t.db")}},
			check: func(t *testing.T, b any) {
				backend, ok := b.(*sqlitestorage.Backend)
				require.True(t, ok)
				require.NoError(t, backend.Close())
			},
		},
		{
			name: "influx",
			cfg:  config.StorageConfig{Type: "INFLUX"},
			check: func(t *testing.T, b any) {
				assert.IsType(t, &influxstorage.Backend{}, b)
			},
		},
		{
			name:    "unknown",
			cfg:     config.StorageConfig{Type: "cassandra"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, err := createStorageBackend(tt.cfg, testLogs())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, backend)
		})
	}
}

func TestCreateStorageBackend_None(t *testing.T) {
	backend, err := createStorageBackend(config.StorageConfig{Type: "none"}, testLogs())
	require.NoError(t, err)
	assert.Nil(t, backend)
}
