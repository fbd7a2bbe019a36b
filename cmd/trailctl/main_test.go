package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/trail/internal/prefs"
	"github.com/OCAP2/trail/internal/storage"
	sqlitestorage "github.com/OCAP2/trail/internal/storage/sqlite"
	"github.com/OCAP2/trail/pkg/scene"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func runCtl(t *testing.T, args ...string) result {
	t.Helper()
	t.Cleanup(viper.Reset)
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func TestShow_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")

	res := runCtl(t, "-config", t.TempDir(), "-prefs", path)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "on")
	assert.Contains(t, res.stdout, prefs.DefaultColor)
	assert.Contains(t, res.stdout, "(preset)")
	assert.Contains(t, res.stdout, path)
}

func TestColor_PersistsNormalized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")

	res := runCtl(t, "-config", t.TempDir(), "-prefs", path, "color", "#00ff7f")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "#00FF7F")

	p, err := prefs.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "#00FF7F", p.Color)
}

func TestColor_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")

	res := runCtl(t, "-config", t.TempDir(), "-prefs", path, "color", "red")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "invalid color")
	assert.Contains(t, res.stderr, "#1E90FF", "presets are suggested")

	p, err := prefs.Load(path)
	require.NoError(t, err)
	assert.Equal(t, prefs.DefaultColor, p.Color, "color unchanged")
}

func TestColor_MissingArgument(t *testing.T) {
	res := runCtl(t, "-config", t.TempDir(), "color")
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stderr, "Usage: trailctl color")
}

func TestEnableDisable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	cfg := t.TempDir()

	res := runCtl(t, "-config", cfg, "-prefs", path, "disable")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "off")
	p, _ := prefs.Load(path)
	assert.False(t, p.Enabled)

	res = runCtl(t, "-config", cfg, "-prefs", path, "enable")
	require.Equal(t, 0, res.code, res.stderr)
	p, _ = prefs.Load(path)
	assert.True(t, p.Enabled)
}

func TestPresets(t *testing.T) {
	res := runCtl(t, "-config", t.TempDir(), "presets")
	require.Equal(t, 0, res.code)
	for _, c := range prefs.Presets() {
		assert.Contains(t, res.stdout, c)
	}
}

func TestHistory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "trails.db")
	backend, err := sqlitestorage.New(sqlitestorage.Config{Path: dbPath}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, backend.Init())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, backend.RecordTrail(storage.TrailRecord{
		TokenID: "goblin", TrailID: "c1", Color: "#1E90FF",
		Points: []scene.Vector2{{X: 0, Y: 0}, {X: 3, Y: 4}}, Length: 5, CreatedAt: base,
	}))
	require.NoError(t, backend.RecordTrail(storage.TrailRecord{
		TokenID: "wizard", TrailID: "c2", Color: "#2ECC71",
		Points: []scene.Vector2{{X: 0, Y: 0}, {X: 0, Y: 7}}, Length: 7, CreatedAt: base.Add(time.Second),
	}))
	require.NoError(t, backend.Close())

	t.Setenv("TRAIL_STORAGE_SQLITE_PATH", dbPath)

	res := runCtl(t, "-config", t.TempDir(), "history")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "TOKEN")
	assert.Contains(t, res.stdout, "goblin")
	assert.Contains(t, res.stdout, "wizard")
	assert.Contains(t, res.stdout, "7.0")

	res = runCtl(t, "-config", t.TempDir(), "history", "goblin")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "goblin")
	assert.NotContains(t, res.stdout, "wizard")
}

func TestHistory_NoArchive(t *testing.T) {
	t.Setenv("TRAIL_STORAGE_SQLITE_PATH", filepath.Join(t.TempDir(), "missing.db"))

	res := runCtl(t, "-config", t.TempDir(), "history")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "no trail archive")
}

func TestUnknownCommand(t *testing.T) {
	res := runCtl(t, "-config", t.TempDir(), "paint")
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stderr, "Unknown command: paint")
}
