// Command spotterupdate refreshes the persistent spotter directory from the
// RBN nodes roster. It downloads (or reads) the roster, extracts callsign and
// grid pairs, merges them over the stored directory with newest-wins
// semantics, and optionally exports the merged directory as CSV.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"rbnmap/config"
	"rbnmap/directory"
	"rbnmap/fetch"
	"rbnmap/ingest"
	"rbnmap/logging"
	"rbnmap/spotterstore"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	inputPath := flag.String("input", "", "local roster file instead of downloading, - for stdin")
	rosterURL := flag.String("url", "", "roster URL, overrides sources.roster_url from the config")
	csvPath := flag.String("csv", "", "export the merged directory as CSV to this path")
	purgeDays := flag.Int("purge", 0, "drop stored spotters not refreshed within this many days")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("spotterupdate: %v", err)
	}
	logs, err := logging.Setup(cfg.Logging.File)
	if err != nil {
		log.Printf("spotterupdate: %v", err)
	}
	defer logs.Close()
	if *rosterURL != "" {
		cfg.Sources.RosterURL = *rosterURL
	}
	if *csvPath != "" {
		cfg.Store.CSVExportPath = *csvPath
	}
	if *purgeDays > 0 {
		cfg.Store.RetentionDays = *purgeDays
	}

	raw, err := readRoster(cfg, *inputPath)
	if err != nil {
		log.Fatalf("spotterupdate: %v", err)
	}

	result, err := parseRoster(raw)
	if err != nil {
		log.Fatalf("spotterupdate: parse roster: %v", err)
	}
	if result.Skipped > 0 {
		log.Printf("roster: %d rows skipped", result.Skipped)
	}
	fresh := directory.Build(result.Pairs)

	store, err := spotterstore.Open(cfg.Store.Path, spotterstore.Options{
		CacheSizeBytes:        int64(cfg.Store.CacheSizeMB) << 20,
		BloomFilterBitsPerKey: cfg.Store.BloomBitsPerKey,
	})
	if err != nil {
		log.Fatalf("spotterupdate: open store: %v", err)
	}
	defer store.Close()

	stored, err := store.Snapshot()
	if err != nil {
		log.Fatalf("spotterupdate: read store: %v", err)
	}
	merged := directory.Merge(stored, fresh)

	now := time.Now().UTC()
	batch := make([]spotterstore.Entry, 0, fresh.Len())
	for _, entry := range fresh.Entries() {
		batch = append(batch, spotterstore.Entry{
			Callsign:  entry.Callsign,
			Coord:     entry.Coord,
			UpdatedAt: now,
		})
	}
	if err := store.UpsertBatch(batch); err != nil {
		log.Fatalf("spotterupdate: write store: %v", err)
	}

	if days := cfg.Store.RetentionDays; days > 0 {
		cutoff := now.AddDate(0, 0, -days)
		purged, err := store.PurgeOlderThan(cutoff)
		if err != nil {
			log.Fatalf("spotterupdate: purge: %v", err)
		}
		if purged > 0 {
			log.Printf("purged %s stale spotters", humanize.Comma(purged))
		}
	}

	if path := cfg.Store.CSVExportPath; path != "" {
		if err := exportCSV(merged, path); err != nil {
			log.Fatalf("spotterupdate: %v", err)
		}
	}

	total, err := store.Count()
	if err != nil {
		log.Fatalf("spotterupdate: count: %v", err)
	}
	fmt.Printf("roster: %s fresh, %s stored total\n",
		humanize.Comma(int64(fresh.Len())), humanize.Comma(total))
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func readRoster(cfg *config.Config, inputPath string) ([]byte, error) {
	switch inputPath {
	case "-":
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return raw, nil
	case "":
	default:
		raw, err := os.ReadFile(inputPath)
		if err != nil {
			return nil, fmt.Errorf("read roster file: %w", err)
		}
		return raw, nil
	}

	dest := filepath.Join(cfg.Sources.DownloadDir, "nodes.html")
	result, err := fetch.Download(context.Background(), fetch.Request{
		URL:         cfg.Sources.RosterURL,
		Destination: dest,
		Timeout:     cfg.DownloadTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("download roster: %w", err)
	}
	log.Printf("roster download: %s", result.Status)
	raw, err := os.ReadFile(dest)
	if err != nil {
		return nil, fmt.Errorf("read download: %w", err)
	}
	return raw, nil
}

// parseRoster chooses the HTML extractor for markup and the plain
// tab-separated extractor for everything else.
func parseRoster(raw []byte) (ingest.Result, error) {
	if strings.Contains(strings.ToLower(string(raw)), "<html") ||
		strings.Contains(string(raw), "<table") {
		return ingest.HTMLRosterSource{}.Parse(raw)
	}
	return ingest.RosterSource{}.Parse(raw)
}

func exportCSV(dir *directory.Directory, path string) error {
	data, err := dir.MarshalCSV()
	if err != nil {
		return fmt.Errorf("encode CSV: %w", err)
	}
	if parent := filepath.Dir(path); parent != "" && parent != "." {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return fmt.Errorf("create export directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write CSV export: %w", err)
	}
	return nil
}
