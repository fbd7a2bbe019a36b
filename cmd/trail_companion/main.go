package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OCAP2/trail/internal/config"
	"github.com/OCAP2/trail/internal/logging"
	intOtel "github.com/OCAP2/trail/internal/otel"
	"github.com/OCAP2/trail/internal/session"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// module defs - set at build time via ldflags
var (
	CurrentVersion = "0.0.1"
	BuildDate      = "unknown"

	ExtensionName = "trail_companion"
)

func main() {
	os.Exit(run())
}

func run() int {
	configDir := flag.String("config", ".", "directory containing "+config.FileName)
	flag.Parse()

	sessionStart := time.Now()

	if err := config.Load(*configDir); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", ExtensionName, err)
		return 1
	}

	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "%s: failed to create logs dir: %v\n", ExtensionName, err)
		return 1
	}
	logFilePath := logging.LogFilePath(logsDir, ExtensionName, sessionStart)
	logFile, err := os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: failed to open log file: %v\n", ExtensionName, err)
		return 1
	}
	defer logFile.Close()

	sess := session.NewContext()
	logs := logging.NewSlogManager()
	logs.SetAttrs(sess.Attrs)
	defer logs.Close()

	if gl := config.GetGraylogConfig(); gl.Enabled {
		if err := logs.EnableGraylog(gl.Address); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", ExtensionName, err)
		}
	}

	var otelProvider *intOtel.Provider
	if otelCfg := config.GetOTelConfig(); otelCfg.Enabled {
		otelProvider, err = intOtel.New(intOtel.Config{
			Enabled:        true,
			ServiceName:    otelCfg.ServiceName,
			ServiceVersion: CurrentVersion,
			BatchTimeout:   otelCfg.BatchTimeout,
			LogWriter:      logFile,
			Endpoint:       otelCfg.Endpoint,
			Insecure:       otelCfg.Insecure,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: failed to initialize OTel provider: %v\n", ExtensionName, err)
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if otelProvider != nil {
		otelLogProvider = otelProvider.LoggerProvider()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := otelProvider.Shutdown(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", ExtensionName, err)
			}
		}()
	}

	logs.Setup(logFile, config.GetString("logLevel"), otelLogProvider)
	logger := logs.Logger()
	logger.Info("Starting up", "version", CurrentVersion, "buildDate", BuildDate, "logFile", logFilePath)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	prefsCfg := config.GetPrefsConfig()
	a, err := newApp(appOptions{
		Host:    config.GetHostConfig(),
		Trail:   config.GetTrailConfig(),
		Prefs:   prefsCfg,
		Storage: config.GetStorageConfig(),
		Monitor: config.GetMonitorConfig(),
	}, logs, sess)
	if err != nil {
		logger.Error("Failed to set up companion", "error", err)
		return 1
	}
	defer a.close()

	if err := a.start(ctx, prefsCfg.Watch); err != nil {
		logger.Error("Failed to start companion", "error", err)
		return 1
	}

	<-ctx.Done()
	logger.Info("Shutting down")
	return 0
}
