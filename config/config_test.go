package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rbnmap.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
station:
  callsign: W1AW
  grid: FN31pr
sources:
  timeout_seconds: 30
store:
  path: /tmp/spotters.db
  retention_days: 14
archive:
  enabled: true
  path: /tmp/spots.sqlite
dedup:
  enabled: true
  window_seconds: 120
  prefer_stronger: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Station.Callsign != "W1AW" || cfg.Station.Grid != "FN31pr" {
		t.Errorf("station = %+v", cfg.Station)
	}
	if cfg.DownloadTimeout() != 30*time.Second {
		t.Errorf("DownloadTimeout() = %v, want 30s", cfg.DownloadTimeout())
	}
	if cfg.DedupWindow() != 2*time.Minute {
		t.Errorf("DedupWindow() = %v, want 2m", cfg.DedupWindow())
	}
	if cfg.Sources.HistoryBaseURL == "" {
		t.Error("history base URL default not applied")
	}
}

func TestLoadRejectsBadGrid(t *testing.T) {
	path := writeConfig(t, `
station:
  grid: ZZ99
`)
	if _, err := Load(path); err == nil {
		t.Error("Load() with invalid grid: want error, got nil")
	}
}

func TestLoadRejectsArchiveWithoutPath(t *testing.T) {
	path := writeConfig(t, `
archive:
  enabled: true
`)
	if _, err := Load(path); err == nil {
		t.Error("Load() with pathless archive: want error, got nil")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() error: %v", err)
	}
	if cfg.DedupWindow() != 0 {
		t.Errorf("DedupWindow() with dedup disabled = %v, want 0", cfg.DedupWindow())
	}
	if cfg.Store.Path == "" || cfg.Sources.RosterURL == "" {
		t.Error("defaults not applied")
	}
}
