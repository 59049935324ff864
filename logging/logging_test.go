package logging

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupConsoleOnly(t *testing.T) {
	fanout, err := Setup("")
	if err != nil {
		t.Fatalf("Setup() error: %v", err)
	}
	defer fanout.Close()
	if err := fanout.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}

func TestSetupDuplicatesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "rbnmap.log")
	fanout, err := Setup(path)
	if err != nil {
		t.Fatalf("Setup() error: %v", err)
	}
	log.Printf("roster refresh complete")
	if err := fanout.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "roster refresh complete") {
		t.Errorf("log file missing expected line, got %q", data)
	}
}
