package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// HumanLog appends one timestamped line per call to a database's
// logs/db.log, for human consumption rather than structured
// telemetry. Open-append-close per call; it reports failures to the
// caller, but callers never abort a mutation over a logging failure.
type HumanLog struct {
	path string
}

// NewHumanLog targets path, creating parent directories as needed.
func NewHumanLog(path string) *HumanLog {
	return &HumanLog{path: path}
}

// Write appends one line: "[RFC3339 timestamp] msg".
func (l *HumanLog) Write(msg string) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("catalog: mkdir %s: %w", filepath.Dir(l.path), err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("catalog: open log %s: %w", l.path, err)
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "[%s] %s\n", time.Now().Format(time.RFC3339), msg)
	return err
}
