package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// LogFilePath returns the log file for one companion session,
// e.g. logs/trail_companion.20260212_213836.log.
func LogFilePath(logsDir, name string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", name, sessionStart.Format("20060102_150405")),
	)
}
