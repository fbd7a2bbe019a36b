package sqlitestorage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/trail/internal/storage"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func TestFileBackend_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trails.db")

	b, err := New(Config{Path: path}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, b.Init())
	require.NoError(t, b.RecordTrail(storage.TrailRecord{TokenID: "a", TrailID: "1", CreatedAt: time.Now()}))
	require.NoError(t, b.Close())

	b, err = New(Config{Path: path}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer b.Close()

	got, err := b.RecentTrails("a", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].TrailID)
}

func TestSnapshot(t *testing.T) {
	dir := t.TempDir()
	snap := filepath.Join(dir, "snapshot.db")

	b, err := New(Config{SnapshotPath: snap}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.RecordTrail(storage.TrailRecord{TokenID: "a", TrailID: "1", CreatedAt: time.Now()}))
	require.NoError(t, b.Snapshot())

	info, err := os.Stat(snap)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	// a second snapshot replaces the first
	require.NoError(t, b.Snapshot())
}

func TestSnapshot_NoPath(t *testing.T) {
	b, err := New(Config{}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer b.Close()

	assert.Error(t, b.Snapshot())
}

func TestClose_StopsSnapshotLoop(t *testing.T) {
	b, err := New(Config{SnapshotPath: filepath.Join(t.TempDir(), "s.db"), SnapshotInterval: time.Hour}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, b.Init())
	require.NoError(t, b.Close())
}
