package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"rbnmap/locator"
)

// Config represents the complete rbnmap configuration
type Config struct {
	Station StationConfig `yaml:"station"`
	Sources SourcesConfig `yaml:"sources"`
	Store   StoreConfig   `yaml:"store"`
	Archive ArchiveConfig `yaml:"archive"`
	Dedup   DedupConfig   `yaml:"dedup"`
	Logging LoggingConfig `yaml:"logging"`
}

// StationConfig identifies the reference station distances are computed from
type StationConfig struct {
	Callsign string `yaml:"callsign"`
	Grid     string `yaml:"grid"`
}

// SourcesConfig holds remote data locations
type SourcesConfig struct {
	HistoryBaseURL string `yaml:"history_base_url"`
	RosterURL      string `yaml:"roster_url"`
	DownloadDir    string `yaml:"download_dir"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// StoreConfig configures the persistent spotter directory
type StoreConfig struct {
	Path            string `yaml:"path"`
	CacheSizeMB     int    `yaml:"cache_size_mb"`
	BloomBitsPerKey int    `yaml:"bloom_bits_per_key"`
	CSVExportPath   string `yaml:"csv_export_path"`
	RetentionDays   int    `yaml:"retention_days"`
}

// ArchiveConfig configures the SQLite spot archive
type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DedupConfig contains deduplication settings
type DedupConfig struct {
	Enabled        bool `yaml:"enabled"`
	WindowSeconds  int  `yaml:"window_seconds"`
	PreferStronger bool `yaml:"prefer_stronger"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load loads configuration from a YAML file
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration usable without a file on disk.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Sources.HistoryBaseURL == "" {
		c.Sources.HistoryBaseURL = "https://data.reversebeacon.net/rbn_history"
	}
	if c.Sources.RosterURL == "" {
		c.Sources.RosterURL = "https://reversebeacon.net/cont_updates/nodes.php"
	}
	if c.Sources.DownloadDir == "" {
		c.Sources.DownloadDir = "downloads"
	}
	if c.Sources.TimeoutSeconds <= 0 {
		c.Sources.TimeoutSeconds = 60
	}
	if c.Store.Path == "" {
		c.Store.Path = "spotters.db"
	}
	if c.Dedup.WindowSeconds <= 0 {
		c.Dedup.WindowSeconds = 300
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if grid := strings.TrimSpace(c.Station.Grid); grid != "" && !locator.Valid(grid) {
		return fmt.Errorf("config: station grid %q is not a valid locator", grid)
	}
	if c.Archive.Enabled && strings.TrimSpace(c.Archive.Path) == "" {
		return fmt.Errorf("config: archive enabled but no path set")
	}
	if c.Store.RetentionDays < 0 {
		return fmt.Errorf("config: retention_days must not be negative")
	}
	return nil
}

// DownloadTimeout returns the source timeout as a duration.
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Sources.TimeoutSeconds) * time.Second
}

// DedupWindow returns the dedup window as a duration, zero when disabled.
func (c *Config) DedupWindow() time.Duration {
	if !c.Dedup.Enabled {
		return 0
	}
	return time.Duration(c.Dedup.WindowSeconds) * time.Second
}

// Print displays the configuration
func (c *Config) Print() {
	if c.Station.Callsign != "" {
		fmt.Printf("Station: %s (%s)\n", c.Station.Callsign, c.Station.Grid)
	}
	fmt.Printf("Sources: history=%s roster=%s\n", c.Sources.HistoryBaseURL, c.Sources.RosterURL)
	fmt.Printf("Spotter store: %s\n", c.Store.Path)
	if c.Archive.Enabled {
		fmt.Printf("Archive: %s\n", c.Archive.Path)
	}
	if c.Dedup.Enabled {
		fmt.Printf("Dedup: window=%ds prefer_stronger=%v\n", c.Dedup.WindowSeconds, c.Dedup.PreferStronger)
	}
}
