// Package logging routes the standard logger to stderr and, when configured,
// duplicates every line into an append-only log file.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Fanout holds the optional log file so callers can close it on shutdown.
type Fanout struct {
	file *os.File
}

// Setup points the standard logger at stderr plus the configured file. An
// empty file path means console-only logging. The returned Fanout is never
// nil; Close is safe either way.
func Setup(filePath string) (*Fanout, error) {
	log.SetFlags(log.LstdFlags | log.LUTC)

	fanout := &Fanout{}
	path := strings.TrimSpace(filePath)
	if path == "" {
		log.SetOutput(os.Stderr)
		return fanout, nil
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.SetOutput(os.Stderr)
			return fanout, fmt.Errorf("logging: create directory %q: %w", dir, err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.SetOutput(os.Stderr)
		return fanout, fmt.Errorf("logging: open %q: %w", path, err)
	}
	fanout.file = file
	log.SetOutput(io.MultiWriter(os.Stderr, file))
	return fanout, nil
}

// Close releases the log file and restores console-only output.
func (f *Fanout) Close() error {
	if f == nil || f.file == nil {
		return nil
	}
	log.SetOutput(os.Stderr)
	err := f.file.Close()
	f.file = nil
	return err
}
