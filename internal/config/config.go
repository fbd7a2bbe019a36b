package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "trail_companion.cfg.json"

// HostConfig holds the websocket connection to the tabletop host.
type HostConfig struct {
	URL            string        `json:"url" mapstructure:"url"`
	Secret         string        `json:"secret" mapstructure:"secret"`
	RequestTimeout time.Duration `json:"requestTimeout" mapstructure:"requestTimeout"`
}

// TrailConfig holds the tracker parameters.
type TrailConfig struct {
	Inactivity    time.Duration `json:"inactivity" mapstructure:"inactivity"`
	StrokeWidth   float64       `json:"strokeWidth" mapstructure:"strokeWidth"`
	StrokeOpacity float64       `json:"strokeOpacity" mapstructure:"strokeOpacity"`
	TrackedLayer  string        `json:"trackedLayer" mapstructure:"trackedLayer"`
	CurveLayer    string        `json:"curveLayer" mapstructure:"curveLayer"`
	ExtensionID   string        `json:"extensionId" mapstructure:"extensionId"`
	PruneMissing  bool          `json:"pruneMissing" mapstructure:"pruneMissing"`
}

// PrefsConfig locates the user preferences file.
type PrefsConfig struct {
	Path  string `json:"path" mapstructure:"path"`
	Watch bool   `json:"watch" mapstructure:"watch"`
}

// MemoryConfig holds in-memory storage backend settings
type MemoryConfig struct {
	Capacity int `json:"capacity" mapstructure:"capacity"`
}

// SqliteConfig holds SQLite storage backend settings
type SqliteConfig struct {
	Path             string        `json:"path" mapstructure:"path"`
	SnapshotPath     string        `json:"snapshotPath" mapstructure:"snapshotPath"`
	SnapshotInterval time.Duration `json:"snapshotInterval" mapstructure:"snapshotInterval"`
}

// DBConfig holds Postgres connection settings
type DBConfig struct {
	Host          string        `json:"host" mapstructure:"host"`
	Port          string        `json:"port" mapstructure:"port"`
	Username      string        `json:"username" mapstructure:"username"`
	Password      string        `json:"password" mapstructure:"password"`
	Database      string        `json:"database" mapstructure:"database"`
	FlushInterval time.Duration `json:"flushInterval" mapstructure:"flushInterval"`
	BatchSize     int           `json:"batchSize" mapstructure:"batchSize"`
}

// InfluxConfig holds InfluxDB settings
type InfluxConfig struct {
	Protocol   string `json:"protocol" mapstructure:"protocol"`
	Host       string `json:"host" mapstructure:"host"`
	Port       string `json:"port" mapstructure:"port"`
	Token      string `json:"token" mapstructure:"token"`
	Org        string `json:"org" mapstructure:"org"`
	Bucket     string `json:"bucket" mapstructure:"bucket"`
	BackupPath string `json:"backupPath" mapstructure:"backupPath"`
}

// StorageConfig selects and configures the trail archive.
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`
	Sqlite SqliteConfig `json:"sqlite" mapstructure:"sqlite"`
	DB     DBConfig     `json:"db" mapstructure:"db"`
	Influx InfluxConfig `json:"influx" mapstructure:"influx"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// GraylogConfig holds the GELF log sink.
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// MonitorConfig holds the status file writer settings.
type MonitorConfig struct {
	Enabled  bool          `json:"enabled" mapstructure:"enabled"`
	Interval time.Duration `json:"interval" mapstructure:"interval"`
	Path     string        `json:"path" mapstructure:"path"`
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./traillogs")

	viper.SetDefault("host.url", "ws://localhost:7070/extension")
	viper.SetDefault("host.secret", "")
	viper.SetDefault("host.requestTimeout", "10s")

	viper.SetDefault("trail.inactivity", "320ms")
	viper.SetDefault("trail.strokeWidth", 4)
	viper.SetDefault("trail.strokeOpacity", 0.9)
	viper.SetDefault("trail.trackedLayer", "CHARACTER")
	viper.SetDefault("trail.curveLayer", "DRAWING")
	viper.SetDefault("trail.extensionId", "com.owlbear.trail")
	viper.SetDefault("trail.pruneMissing", true)

	viper.SetDefault("prefs.path", "~/.config/trail/prefs.toml")
	viper.SetDefault("prefs.watch", true)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.capacity", 1000)
	viper.SetDefault("storage.sqlite.path", "./trails.db")
	viper.SetDefault("storage.sqlite.snapshotPath", "")
	viper.SetDefault("storage.sqlite.snapshotInterval", "5m")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "trails")
	viper.SetDefault("db.flushInterval", "2s")
	viper.SetDefault("db.batchSize", 100)

	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "trail")
	viper.SetDefault("influx.bucket", "trails")
	viper.SetDefault("influx.backupPath", "./trail_influx_backup.log.gz")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "trail-companion")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("monitor.enabled", false)
	viper.SetDefault("monitor.interval", "10s")
	viper.SetDefault("monitor.path", "./trail_status.json")
}

// Load reads configuration from the JSON file in configDir and sets default
// values. A .env file in configDir is loaded into the environment first, and
// TRAIL_* variables override file values (TRAIL_HOST_URL for host.url).
// A missing config file leaves the defaults in place.
func Load(configDir string) error {
	if err := godotenv.Load(filepath.Join(configDir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	setDefaults()

	viper.SetEnvPrefix("TRAIL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(FileName)
	viper.SetConfigType("json")
	viper.AddConfigPath(configDir)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetHostConfig returns the host connection settings.
func GetHostConfig() HostConfig {
	return HostConfig{
		URL:            viper.GetString("host.url"),
		Secret:         viper.GetString("host.secret"),
		RequestTimeout: viper.GetDuration("host.requestTimeout"),
	}
}

// GetTrailConfig returns the tracker settings.
func GetTrailConfig() TrailConfig {
	return TrailConfig{
		Inactivity:    viper.GetDuration("trail.inactivity"),
		StrokeWidth:   viper.GetFloat64("trail.strokeWidth"),
		StrokeOpacity: viper.GetFloat64("trail.strokeOpacity"),
		TrackedLayer:  viper.GetString("trail.trackedLayer"),
		CurveLayer:    viper.GetString("trail.curveLayer"),
		ExtensionID:   viper.GetString("trail.extensionId"),
		PruneMissing:  viper.GetBool("trail.pruneMissing"),
	}
}

// GetPrefsConfig returns the preferences file settings.
func GetPrefsConfig() PrefsConfig {
	return PrefsConfig{
		Path:  viper.GetString("prefs.path"),
		Watch: viper.GetBool("prefs.watch"),
	}
}

// GetStorageConfig returns the archive settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			Capacity: viper.GetInt("storage.memory.capacity"),
		},
		Sqlite: SqliteConfig{
			Path:             viper.GetString("storage.sqlite.path"),
			SnapshotPath:     viper.GetString("storage.sqlite.snapshotPath"),
			SnapshotInterval: viper.GetDuration("storage.sqlite.snapshotInterval"),
		},
		DB: DBConfig{
			Host:          viper.GetString("db.host"),
			Port:          viper.GetString("db.port"),
			Username:      viper.GetString("db.username"),
			Password:      viper.GetString("db.password"),
			Database:      viper.GetString("db.database"),
			FlushInterval: viper.GetDuration("db.flushInterval"),
			BatchSize:     viper.GetInt("db.batchSize"),
		},
		Influx: InfluxConfig{
			Protocol:   viper.GetString("influx.protocol"),
			Host:       viper.GetString("influx.host"),
			Port:       viper.GetString("influx.port"),
			Token:      viper.GetString("influx.token"),
			Org:        viper.GetString("influx.org"),
			Bucket:     viper.GetString("influx.bucket"),
			BackupPath: viper.GetString("influx.backupPath"),
		},
	}
}

// GetOTelConfig returns the telemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetGraylogConfig returns the GELF sink settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetMonitorConfig returns the status file settings.
func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Enabled:  viper.GetBool("monitor.enabled"),
		Interval: viper.GetDuration("monitor.interval"),
		Path:     viper.GetString("monitor.path"),
	}
}
