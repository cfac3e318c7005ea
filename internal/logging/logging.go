// Package logging routes the standard logger to stderr and an optional log file
// and adds leveled, component-tagged helpers on top of it.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	mu      sync.Mutex
	logFile *os.File
	debug   bool
)

// Init sends log output to stderr and, when logPath is set, appends to that file as well.
func Init(logPath string, debugEnabled bool) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	debug = debugEnabled

	writers := []io.Writer{os.Stderr}
	if logPath != "" {
		if dir := filepath.Dir(logPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		logFile = file
		writers = append(writers, logFile)
	}

	log.SetOutput(io.MultiWriter(writers...))
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	return nil
}

// Close flushes and detaches the log file.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	log.SetOutput(os.Stderr)
	err := logFile.Close()
	logFile = nil
	return err
}

// SetOutput redirects log output, mostly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	log.SetOutput(w)
}

// DebugEnabled reports whether Debugf lines are emitted.
func DebugEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return debug
}

func Debugf(component, format string, args ...any) {
	if !DebugEnabled() {
		return
	}
	emit("DEBUG", component, format, args...)
}

func Infof(component, format string, args ...any) { emit("INFO", component, format, args...) }

func Warnf(component, format string, args ...any) { emit("WARN", component, format, args...) }

func Errorf(component, format string, args ...any) { emit("ERROR", component, format, args...) }

func emit(level, component, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if component = strings.TrimSpace(component); component != "" {
		log.Printf("[%s] %s: %s", level, component, msg)
		return
	}
	log.Printf("[%s] %s", level, msg)
}

// Request logs one leg of an upstream exchange at debug level.
func Request(direction, service, endpoint string, payload any) {
	if !DebugEnabled() {
		return
	}
	parts := []string{fmt.Sprintf("[%s]", strings.ToUpper(strings.TrimSpace(direction)))}
	parts = append(parts, "service="+orUnknown(service))
	parts = append(parts, "endpoint="+orUnknown(endpoint))
	parts = append(parts, "payload="+formatPayload(payload))
	log.Println("[DEBUG] " + strings.Join(parts, " "))
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "unknown"
	}
	return s
}

func formatPayload(payload any) string {
	switch v := payload.(type) {
	case nil:
		return "null"
	case string:
		if strings.TrimSpace(v) == "" {
			return `""`
		}
		return v
	case []byte:
		if len(v) == 0 {
			return "[]"
		}
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
