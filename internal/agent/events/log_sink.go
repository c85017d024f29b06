package events

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileLogSink appends every Event it receives as one JSON line to a file
// under a session directory. It is meant to be driven by a single Bus
// subscription, so writes are never concurrent and no internal locking is
// needed beyond what *os.File already gives a single writer.
type FileLogSink struct {
	f *os.File
}

// NewFileLogSink opens (creating if necessary) path for append and returns a
// sink that writes one JSON object per line to it.
func NewFileLogSink(path string) (*FileLogSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("events: create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("events: open log file: %w", err)
	}
	return &FileLogSink{f: f}, nil
}

// HandleEvent implements Subscriber. A marshal failure is swallowed after
// logging would be circular here, so it is simply dropped; malformed Data
// should not be able to reach this point since it is plain JSON-shaped data
// throughout the orchestrator.
func (s *FileLogSink) HandleEvent(e Event) {
	line, err := json.Marshal(e)
	if err != nil {
		return
	}
	line = append(line, '\n')
	s.f.Write(line)
}

// Close flushes and closes the underlying file.
func (s *FileLogSink) Close() error {
	return s.f.Close()
}
