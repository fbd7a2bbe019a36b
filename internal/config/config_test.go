package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfg := `{
		"logLevel": "debug",
		"host": { "url": "ws://tabletop:9000/ext", "requestTimeout": "3s" },
		"trail": { "inactivity": "500ms", "strokeWidth": 6 },
		"storage": { "type": "sqlite", "sqlite": { "path": "/tmp/t.db" } }
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(cfg), 0644))

	require.NoError(t, Load(dir))

	assert.Equal(t, "debug", GetString("logLevel"))

	host := GetHostConfig()
	assert.Equal(t, "ws://tabletop:9000/ext", host.URL)
	assert.Equal(t, 3*time.Second, host.RequestTimeout)

	tr := GetTrailConfig()
	assert.Equal(t, 500*time.Millisecond, tr.Inactivity)
	assert.Equal(t, 6.0, tr.StrokeWidth)
	assert.Equal(t, 0.9, tr.StrokeOpacity, "unset keys keep defaults")

	st := GetStorageConfig()
	assert.Equal(t, "sqlite", st.Type)
	assert.Equal(t, "/tmp/t.db", st.Sqlite.Path)
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(`{}`), 0644))

	require.NoError(t, Load(dir))

	assert.Equal(t, "info", GetString("logLevel"))
	assert.Equal(t, "./traillogs", GetString("logsDir"))

	assert.Equal(t, HostConfig{
		URL:            "ws://localhost:7070/extension",
		RequestTimeout: 10 * time.Second,
	}, GetHostConfig())

	assert.Equal(t, TrailConfig{
		Inactivity:    320 * time.Millisecond,
		StrokeWidth:   4,
		StrokeOpacity: 0.9,
		TrackedLayer:  "CHARACTER",
		CurveLayer:    "DRAWING",
		ExtensionID:   "com.owlbear.trail",
		PruneMissing:  true,
	}, GetTrailConfig())

	assert.Equal(t, PrefsConfig{Path: "~/.config/trail/prefs.toml", Watch: true}, GetPrefsConfig())

	st := GetStorageConfig()
	assert.Equal(t, "memory", st.Type)
	assert.Equal(t, 1000, st.Memory.Capacity)
	assert.Equal(t, "./trails.db", st.Sqlite.Path)
	assert.Equal(t, 5*time.Minute, st.Sqlite.SnapshotInterval)
	assert.Equal(t, "localhost", st.DB.Host)
	assert.Equal(t, "5432", st.DB.Port)
	assert.Equal(t, "trails", st.DB.Database)
	assert.Equal(t, 2*time.Second, st.DB.FlushInterval)
	assert.Equal(t, 100, st.DB.BatchSize)
	assert.Equal(t, "http", st.Influx.Protocol)
	assert.Equal(t, "8086", st.Influx.Port)
	assert.Equal(t, "trail", st.Influx.Org)
	assert.Equal(t, "trails", st.Influx.Bucket)

	assert.Equal(t, OTelConfig{
		ServiceName:  "trail-companion",
		BatchTimeout: 5 * time.Second,
		Insecure:     true,
	}, GetOTelConfig())

	assert.Equal(t, GraylogConfig{Address: "localhost:12201"}, GetGraylogConfig())

	assert.Equal(t, MonitorConfig{
		Interval: 10 * time.Second,
		Path:     "./trail_status.json",
	}, GetMonitorConfig())
}

func TestLoad_MissingFileKeepsDefaults(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(t.TempDir()))
	assert.Equal(t, "memory", GetString("storage.type"))
}

func TestLoad_InvalidFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(`{not json`), 0644))

	err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("TRAIL_HOST_SECRET", "from-env")

	require.NoError(t, Load(t.TempDir()))
	assert.Equal(t, "from-env", GetHostConfig().Secret)
}

func TestLoad_DotEnvFile(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Cleanup(func() { os.Unsetenv("TRAIL_STORAGE_TYPE") })

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TRAIL_STORAGE_TYPE=none\n"), 0644))

	require.NoError(t, Load(dir))
	assert.Equal(t, "none", GetStorageConfig().Type)
}

func TestGetters(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	viper.Set("testInt", 42)
	viper.Set("testBool", true)

	assert.Equal(t, "testValue", GetString("testKey"))
	assert.Equal(t, 42, GetInt("testInt"))
	assert.True(t, GetBool("testBool"))
}
