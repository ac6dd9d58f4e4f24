// Package runlog maintains the append-only outcome log. The log is the
// single source of truth for a job's final result; one complete JSON record
// is appended per line, exactly once per job reaching a terminal state.
package runlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry is one immutable run-log record.
type Entry struct {
	ID      string    `json:"id"`
	Dir     string    `json:"dir"`
	RepoKey string    `json:"repo_key"`
	OK      bool      `json:"ok"`
	TS      time.Time `json:"ts"`
	Error   string    `json:"error,omitempty"`
}

// Logger appends entries to a JSONL file. Appends are serialized so two
// workers finishing at once never interleave within a record.
type Logger struct {
	mu   sync.Mutex
	path string
}

// New creates a run logger writing to path, creating parent directories.
func New(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &Logger{path: path}, nil
}

// Path returns the log file location.
func (l *Logger) Path() string { return l.path }

// Append writes one record. A zero TS is stamped with the current time.
func (l *Logger) Append(entry Entry) error {
	if entry.TS.IsZero() {
		entry.TS = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal run log entry: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open run log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to append run log entry: %w", err)
	}
	return nil
}

// Find returns the record for a job ID, or nil if the job has not reached a
// terminal state. The last matching record wins, though normal operation
// writes at most one.
func (l *Logger) Find(id string) (*Entry, error) {
	entries, err := l.read()
	if err != nil {
		return nil, err
	}
	var found *Entry
	for i := range entries {
		if entries[i].ID == id {
			found = &entries[i]
		}
	}
	return found, nil
}

// Tail returns up to n most recent records, oldest first.
func (l *Logger) Tail(n int) ([]Entry, error) {
	entries, err := l.read()
	if err != nil {
		return nil, err
	}
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}

func (l *Logger) read() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			// A torn trailing line from a crash is skipped, not fatal.
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan run log: %w", err)
	}
	return entries, nil
}
