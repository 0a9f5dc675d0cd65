package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// fileSink is an io.WriteCloser that appends to a log file and reopens it
// when the file was removed or replaced underneath it (e.g. by logrotate or
// by cleaning the .recorder directory between sessions).
type fileSink struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	failed bool
}

func newFileSink(path string) *fileSink {
	return &fileSink{path: path}
}

// Write implements the io.Writer interface.
func (s *fileSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.writer()
	if err != nil {
		// Report once, then keep dropping silently.
		if !s.failed {
			fmt.Fprintf(os.Stderr, "recorder-log: cannot write %s: %v\n", s.path, err)
			s.failed = true
		}
		return len(p), nil
	}
	return w.Write(p)
}

// Close implements the io.Closer interface.
func (s *fileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

func (s *fileSink) writer() (io.Writer, error) {
	if s.file != nil && !s.replaced() {
		return s.file, nil
	}
	if s.file != nil {
		s.file.Close()
		s.file = nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	s.file = file
	s.failed = false
	return s.file, nil
}

// replaced reports whether the open handle no longer backs s.path.
func (s *fileSink) replaced() bool {
	onDisk, err := os.Stat(s.path)
	if err != nil {
		return true
	}
	open, err := s.file.Stat()
	if err != nil {
		return true
	}
	return !os.SameFile(onDisk, open)
}
