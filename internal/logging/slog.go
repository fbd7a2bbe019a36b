package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// ServiceName tags OTel and Graylog records.
const ServiceName = "trail-companion"

// replaced in tests
var osStdout = os.Stdout

// SlogManager manages slog-based logging with optional OTel and Graylog output.
type SlogManager struct {
	logger *slog.Logger
	level  string
	out    io.Writer

	attrs AttrsFunc

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider
	graylog     *gelf.Writer
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{out: osStdout, level: "info"}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseZerologLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// EnableGraylog sends every record to a GELF UDP endpoint. Call before Setup.
func (m *SlogManager) EnableGraylog(address string) error {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return fmt.Errorf("failed to create GELF writer for %s: %w", address, err)
	}
	w.Facility = ServiceName
	m.graylog = w
	return nil
}

// SetAttrs registers a function whose attributes are added to every record.
// Call before Setup.
func (m *SlogManager) SetAttrs(fn AttrsFunc) {
	m.attrs = fn
}

// Setup initializes the logging system. When file is nil records go to
// stdout, otherwise only to the file. If provider is nil, OTel logging is
// disabled.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider) {
	lvl := parseLevel(level)
	m.level = level
	m.logProvider = provider

	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	m.out = osStdout
	if file != nil {
		m.out = file
	}

	handlers := []slog.Handler{slog.NewTextHandler(m.out, handlerOpts)}
	if provider != nil {
		handlers = append(handlers, otelslog.NewHandler(ServiceName, otelslog.WithLoggerProvider(provider)))
	}
	if m.graylog != nil {
		handlers = append(handlers, slog.NewJSONHandler(m.graylog, handlerOpts))
	}

	var handler slog.Handler = NewMultiHandler(handlers...)
	if m.attrs != nil {
		handler = NewContextHandler(handler, m.attrs)
	}

	m.logger = slog.New(handler)
	m.logger.Info("Logging initialized", "level", level, "graylog", m.graylog != nil, "otel", provider != nil)
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Zerolog returns a zerolog.Logger for component that writes to the same
// destinations as Logger, except OTel.
func (m *SlogManager) Zerolog(component string) zerolog.Logger {
	writers := []io.Writer{zerolog.ConsoleWriter{
		Out:        m.out,
		TimeFormat: time.RFC3339,
		NoColor:    m.out != io.Writer(osStdout),
	}}
	if m.graylog != nil {
		writers = append(writers, m.graylog)
	}
	return zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(parseZerologLevel(m.level)).
		With().Timestamp().Str("component", component).
		Logger()
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}

// Close releases the Graylog connection.
func (m *SlogManager) Close() error {
	if m.graylog == nil {
		return nil
	}
	err := m.graylog.Close()
	m.graylog = nil
	return err
}
